package transport

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

// newPair starts a listening channel on loopback and dials it, returning the
// client side and the server channel. Cleanup closes both.
func newPair(t *testing.T, serverOpts, clientOpts Options) (*Channel, *Peer, *Channel) {
	t.Helper()
	server, err := Listen("udp4", "127.0.0.1:0", serverOpts)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	t.Cleanup(func() { server.Close() })

	client, peer, err := Dial("udp4", fmt.Sprintf("127.0.0.1:%d", server.LocalPort()), clientOpts)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client, peer, server
}

func TestSendReceive_NoLoss(t *testing.T) {
	_, toServer, server := newPair(t, Options{}, Options{})

	done := make(chan bool, 1)
	go func() {
		done <- toServer.SendText("hello forum")
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	fromClient, err := server.Accept(ctx)
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	payload, binary, err := fromClient.Receive(ctx)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if string(payload) != "hello forum" {
		t.Errorf("payload = %q, want %q", payload, "hello forum")
	}
	if binary {
		t.Error("binary = true, want false")
	}
	if !<-done {
		t.Error("Send reported failure on a lossless link")
	}
}

func TestSendReceive_Binary(t *testing.T) {
	_, toServer, server := newPair(t, Options{}, Options{})

	raw := []byte{0, 1, '|', 'B', 'I', 'N', '|', 255}
	go toServer.Send(raw, true)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	fromClient, err := server.Accept(ctx)
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	payload, binary, err := fromClient.Receive(ctx)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if !binary {
		t.Error("binary = false, want true")
	}
	if string(payload) != string(raw) {
		t.Errorf("payload = %v, want %v", payload, raw)
	}
}

func TestSendReceive_BothDirections(t *testing.T) {
	_, toServer, server := newPair(t, Options{}, Options{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	go toServer.SendText("ping")
	fromClient, err := server.Accept(ctx)
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if _, _, err := fromClient.Receive(ctx); err != nil {
		t.Fatalf("server Receive: %v", err)
	}

	if !fromClient.SendText("pong") {
		t.Fatal("server Send reported failure")
	}
	payload, _, err := toServer.Receive(ctx)
	if err != nil {
		t.Fatalf("client Receive: %v", err)
	}
	if string(payload) != "pong" {
		t.Errorf("payload = %q, want %q", payload, "pong")
	}
}

func TestSend_TotalLossFailsBounded(t *testing.T) {
	opts := Options{AckTimeout: 30 * time.Millisecond, MaxRetries: 3, LossRate: 1, Seed: 1}
	_, toServer, _ := newPair(t, Options{}, opts)

	start := time.Now()
	if toServer.SendText("doomed") {
		t.Fatal("Send succeeded at loss rate 1")
	}
	elapsed := time.Since(start)

	// Exactly MaxRetries timeout windows, with some scheduling slack.
	if elapsed < 90*time.Millisecond {
		t.Errorf("Send gave up after %v, want at least 3 full timeouts", elapsed)
	}
	if elapsed > time.Second {
		t.Errorf("Send took %v, want bounded by the retry budget", elapsed)
	}
}

func TestSend_RecoversFromPartialLoss(t *testing.T) {
	// Drop roughly half the datagrams on the receiving side; every send
	// must still get through within the retry budget.
	serverOpts := Options{LossRate: 0.5, Seed: 7, AckTimeout: 100 * time.Millisecond, MaxRetries: 12}
	clientOpts := Options{AckTimeout: 100 * time.Millisecond, MaxRetries: 12}
	_, toServer, server := newPair(t, serverOpts, clientOpts)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	results := make(chan bool, 5)
	go func() {
		for i := 0; i < 5; i++ {
			results <- toServer.SendText(fmt.Sprintf("msg-%d", i))
		}
	}()

	fromClient, err := server.Accept(ctx)
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	for i := 0; i < 5; i++ {
		payload, _, err := fromClient.Receive(ctx)
		if err != nil {
			t.Fatalf("Receive %d: %v", i, err)
		}
		want := fmt.Sprintf("msg-%d", i)
		if string(payload) != want {
			t.Errorf("payload = %q, want %q", payload, want)
		}
		if !<-results {
			t.Errorf("send %d reported failure", i)
		}
	}
}

func TestSend_ConcurrentSendsSettleIndependently(t *testing.T) {
	_, toServer, server := newPair(t, Options{}, Options{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	const sends = 8
	var wg sync.WaitGroup
	failures := make(chan int, sends)
	wg.Add(sends)
	for i := 0; i < sends; i++ {
		go func(i int) {
			defer wg.Done()
			if !toServer.SendText(fmt.Sprintf("concurrent-%d", i)) {
				failures <- i
			}
		}(i)
	}

	fromClient, err := server.Accept(ctx)
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	seen := make(map[string]bool)
	for i := 0; i < sends; i++ {
		payload, _, err := fromClient.Receive(ctx)
		if err != nil {
			t.Fatalf("Receive: %v", err)
		}
		seen[string(payload)] = true
	}

	wg.Wait()
	close(failures)
	for i := range failures {
		t.Errorf("send %d was never acknowledged", i)
	}
	for i := 0; i < sends; i++ {
		if msg := fmt.Sprintf("concurrent-%d", i); !seen[msg] {
			t.Errorf("payload %q never delivered", msg)
		}
	}
}

func TestReceive_ContextCancel(t *testing.T) {
	_, toServer, _ := newPair(t, Options{}, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	if _, _, err := toServer.Receive(ctx); err != context.Canceled {
		t.Errorf("Receive err = %v, want context.Canceled", err)
	}
}

func TestAccept_OnePeerPerEndpoint(t *testing.T) {
	_, toServer, server := newPair(t, Options{}, Options{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	go func() {
		toServer.SendText("first")
		toServer.SendText("second")
	}()

	fromClient, err := server.Accept(ctx)
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	for _, want := range []string{"first", "second"} {
		payload, _, err := fromClient.Receive(ctx)
		if err != nil {
			t.Fatalf("Receive: %v", err)
		}
		if string(payload) != want {
			t.Errorf("payload = %q, want %q", payload, want)
		}
	}

	// The same endpoint must not surface on Accept a second time.
	shortCtx, shortCancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer shortCancel()
	if extra, err := server.Accept(shortCtx); err == nil {
		t.Errorf("Accept yielded a second peer %v for one endpoint", extra.Addr())
	}
}
