package auth

import (
	"context"
	"strings"

	"udpforum/registry"
)

// Link is the slice of a session the authenticator needs: one reliable text
// exchange in each direction.
type Link interface {
	SendText(msg string) bool
	Receive(ctx context.Context) (payload []byte, binary bool, err error)
}

// Result reports the outcome of one authentication attempt. A failed
// attempt is not an error; the client simply starts over with a fresh
// username exchange.
type Result struct {
	Authenticated bool
	Username      string
}

// Authenticator runs the username/password negotiation against the
// credential store and the live-session registry.
type Authenticator struct {
	creds    *CredentialStore
	registry *registry.Registry
}

// NewAuthenticator wires an authenticator to its collaborators.
func NewAuthenticator(creds *CredentialStore, reg *registry.Registry) *Authenticator {
	return &Authenticator{creds: creds, registry: reg}
}

// Negotiate runs one authentication attempt over link: receive a username,
// branch on whether it is known, exchange a password, reply with the
// outcome. On success the username is held in the registry and the caller
// owns the matching Release. An error means the link or a store failed; a
// clean rejection returns Authenticated false with a nil error.
func (a *Authenticator) Negotiate(ctx context.Context, link Link) (*Result, error) {
	payload, _, err := link.Receive(ctx)
	if err != nil {
		return nil, err
	}
	username := strings.TrimSpace(string(payload))
	if username == "" {
		link.SendText("Invalid username")
		return &Result{}, nil
	}

	// The registry slot is held across the password exchange so two
	// sessions negotiating the same name cannot both reach Welcome.
	if !a.registry.TryAcquire(username) {
		link.SendText("Username in use")
		return &Result{}, nil
	}

	res, err := a.negotiatePassword(ctx, link, username)
	if err != nil || !res.Authenticated {
		a.registry.Release(username)
	}
	return res, err
}

func (a *Authenticator) negotiatePassword(ctx context.Context, link Link, username string) (*Result, error) {
	exists, err := a.creds.Lookup(username)
	if err != nil {
		return nil, err
	}

	if exists {
		if !link.SendText("Username OK") {
			return &Result{}, nil
		}
		payload, _, err := link.Receive(ctx)
		if err != nil {
			return nil, err
		}
		ok, err := a.creds.Verify(username, strings.TrimSpace(string(payload)))
		if err != nil {
			return nil, err
		}
		if !ok {
			link.SendText("Invalid Password")
			return &Result{}, nil
		}
		link.SendText("Welcome")
		return &Result{Authenticated: true, Username: username}, nil
	}

	if !link.SendText("New User") {
		return &Result{}, nil
	}
	payload, _, err := link.Receive(ctx)
	if err != nil {
		return nil, err
	}
	created, err := a.creds.Create(username, strings.TrimSpace(string(payload)))
	if err != nil {
		return nil, err
	}
	if !created {
		link.SendText("Account creation failed")
		return &Result{}, nil
	}
	link.SendText("Account Created")
	return &Result{Authenticated: true, Username: username}, nil
}
