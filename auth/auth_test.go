package auth

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"udpforum/registry"
)

func newTestStore(t *testing.T) *CredentialStore {
	t.Helper()
	return NewCredentialStore(filepath.Join(t.TempDir(), "credentials.txt"))
}

// scriptedLink feeds a fixed sequence of client payloads and records every
// reply.
type scriptedLink struct {
	incoming []string
	sent     []string
}

func (l *scriptedLink) SendText(msg string) bool {
	l.sent = append(l.sent, msg)
	return true
}

func (l *scriptedLink) Receive(ctx context.Context) ([]byte, bool, error) {
	if len(l.incoming) == 0 {
		return nil, false, errors.New("scripted link exhausted")
	}
	msg := l.incoming[0]
	l.incoming = l.incoming[1:]
	return []byte(msg), false, nil
}

func (l *scriptedLink) lastSent(t *testing.T) string {
	t.Helper()
	if len(l.sent) == 0 {
		t.Fatal("no reply was sent")
	}
	return l.sent[len(l.sent)-1]
}

func TestCredentialStore_CreateAndVerify(t *testing.T) {
	cs := newTestStore(t)

	created, err := cs.Create("han", "solo1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !created {
		t.Fatal("Create reported the name as taken in an empty store")
	}

	exists, err := cs.Lookup("han")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if !exists {
		t.Error("Lookup did not find the created account")
	}

	ok, err := cs.Verify("han", "solo1")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !ok {
		t.Error("Verify rejected the correct password")
	}

	ok, err = cs.Verify("han", "wrong")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if ok {
		t.Error("Verify accepted a wrong password")
	}
}

func TestCredentialStore_VerifyUnknownUser(t *testing.T) {
	cs := newTestStore(t)
	ok, err := cs.Verify("nobody", "whatever")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if ok {
		t.Error("Verify accepted an unknown username")
	}
}

func TestCredentialStore_DuplicateCreateRejected(t *testing.T) {
	cs := newTestStore(t)
	if _, err := cs.Create("han", "solo1"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	created, err := cs.Create("han", "other")
	if err != nil {
		t.Fatalf("second Create: %v", err)
	}
	if created {
		t.Error("duplicate Create succeeded")
	}
	// The original password must still verify.
	if ok, _ := cs.Verify("han", "solo1"); !ok {
		t.Error("original password no longer verifies")
	}
}

func TestCredentialStore_ConcurrentCreateOneWinner(t *testing.T) {
	cs := newTestStore(t)

	const goroutines = 10
	var winners atomic.Int32
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			created, err := cs.Create("race", "pw")
			if err == nil && created {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := winners.Load(); got != 1 {
		t.Errorf("concurrent Create winners = %d, want exactly 1", got)
	}
}

func TestNegotiate_NewUser(t *testing.T) {
	cs := newTestStore(t)
	a := NewAuthenticator(cs, registry.New())
	link := &scriptedLink{incoming: []string{"han", "solo1"}}

	res, err := a.Negotiate(context.Background(), link)
	if err != nil {
		t.Fatalf("Negotiate: %v", err)
	}
	if !res.Authenticated || res.Username != "han" {
		t.Fatalf("result = %+v, want authenticated han", res)
	}
	if got := link.lastSent(t); got != "Account Created" {
		t.Errorf("reply = %q, want %q", got, "Account Created")
	}
	if exists, _ := cs.Lookup("han"); !exists {
		t.Error("account was not persisted")
	}
}

func TestNegotiate_ExistingUserWelcome(t *testing.T) {
	cs := newTestStore(t)
	cs.Create("han", "solo1")
	a := NewAuthenticator(cs, registry.New())
	link := &scriptedLink{incoming: []string{"han", "solo1"}}

	res, err := a.Negotiate(context.Background(), link)
	if err != nil {
		t.Fatalf("Negotiate: %v", err)
	}
	if !res.Authenticated {
		t.Fatalf("result = %+v, want authenticated", res)
	}
	if got := link.sent[0]; got != "Username OK" {
		t.Errorf("first reply = %q, want %q", got, "Username OK")
	}
	if got := link.lastSent(t); got != "Welcome" {
		t.Errorf("final reply = %q, want %q", got, "Welcome")
	}
}

func TestNegotiate_WrongPassword(t *testing.T) {
	cs := newTestStore(t)
	cs.Create("han", "solo1")
	reg := registry.New()
	a := NewAuthenticator(cs, reg)
	link := &scriptedLink{incoming: []string{"han", "nope"}}

	res, err := a.Negotiate(context.Background(), link)
	if err != nil {
		t.Fatalf("Negotiate: %v", err)
	}
	if res.Authenticated {
		t.Fatal("wrong password authenticated")
	}
	if got := link.lastSent(t); got != "Invalid Password" {
		t.Errorf("reply = %q, want %q", got, "Invalid Password")
	}
	// The rejected attempt must not leave the name held.
	if !reg.TryAcquire("han") {
		t.Error("username still held after a failed attempt")
	}
}

func TestNegotiate_EmptyUsername(t *testing.T) {
	a := NewAuthenticator(newTestStore(t), registry.New())
	link := &scriptedLink{incoming: []string{"   "}}

	res, err := a.Negotiate(context.Background(), link)
	if err != nil {
		t.Fatalf("Negotiate: %v", err)
	}
	if res.Authenticated {
		t.Fatal("blank username authenticated")
	}
	if got := link.lastSent(t); got != "Invalid username" {
		t.Errorf("reply = %q, want %q", got, "Invalid username")
	}
}

func TestNegotiate_UsernameInUse(t *testing.T) {
	cs := newTestStore(t)
	cs.Create("han", "solo1")
	reg := registry.New()
	reg.TryAcquire("han")
	a := NewAuthenticator(cs, reg)
	link := &scriptedLink{incoming: []string{"han"}}

	res, err := a.Negotiate(context.Background(), link)
	if err != nil {
		t.Fatalf("Negotiate: %v", err)
	}
	if res.Authenticated {
		t.Fatal("second session for a live username authenticated")
	}
	if got := link.lastSent(t); got != "Username in use" {
		t.Errorf("reply = %q, want %q", got, "Username in use")
	}
}

func TestNegotiate_SuccessHoldsRegistrySlot(t *testing.T) {
	cs := newTestStore(t)
	cs.Create("han", "solo1")
	reg := registry.New()
	a := NewAuthenticator(cs, reg)
	link := &scriptedLink{incoming: []string{"han", "solo1"}}

	res, err := a.Negotiate(context.Background(), link)
	if err != nil || !res.Authenticated {
		t.Fatalf("Negotiate = %+v, %v", res, err)
	}
	if reg.TryAcquire("han") {
		t.Error("authenticated username was not held in the registry")
	}
}
