// Package client implements the forum client session: authentication, the
// command round trip, and the TCP side of bulk transfers.
package client

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"udpforum/transfer"
	"udpforum/transport"
)

const (
	// replyTimeout bounds the wait for an ordinary command reply.
	replyTimeout = 10 * time.Second
	// transferReplyTimeout bounds the wait for the confirmation after a
	// bulk transfer, which only arrives once the stream completes.
	transferReplyTimeout = 2 * time.Minute

	readyPrefix = "Ready for TCP transfer"
)

// ErrNoReply reports a command whose reply never arrived.
var ErrNoReply = errors.New("client: no reply from server")

// AuthStatus classifies one authentication attempt.
type AuthStatus int

const (
	AuthOK AuthStatus = iota
	AuthUsernameInvalid
	AuthUsernameTaken
	AuthBadPassword
	AuthCreateFailed
	AuthFailed
)

// ForumClient is one connection to a forum server.
type ForumClient struct {
	channel    *transport.Channel
	peer       *transport.Peer
	serverHost string
	serverPort int

	username      string
	authenticated bool
}

// New dials the server's datagram socket.
func New(host string, port int, opts transport.Options) (*ForumClient, error) {
	channel, peer, err := transport.Dial("udp4", fmt.Sprintf("%s:%d", host, port), opts)
	if err != nil {
		return nil, err
	}
	return &ForumClient{
		channel:    channel,
		peer:       peer,
		serverHost: host,
		serverPort: port,
	}, nil
}

// Close releases the datagram socket.
func (c *ForumClient) Close() {
	c.channel.Close()
}

// Username returns the authenticated username, empty before login.
func (c *ForumClient) Username() string {
	return c.username
}

// IsAuthenticated reports whether login completed.
func (c *ForumClient) IsAuthenticated() bool {
	return c.authenticated
}

// receiveReply waits for one text reply within timeout.
func (c *ForumClient) receiveReply(timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	payload, _, err := c.peer.Receive(ctx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", ErrNoReply
		}
		return "", err
	}
	return string(payload), nil
}

// Authenticate runs one username/password attempt. askPassword is called
// with the server's prompt context ("Enter password: " or
// "Create a password: ") when one is needed. The returned message is the
// server's final reply for display.
func (c *ForumClient) Authenticate(username string, askPassword func(prompt string) (string, error)) (AuthStatus, string, error) {
	if !c.peer.SendText(username) {
		return AuthFailed, "", ErrNoReply
	}
	reply, err := c.receiveReply(replyTimeout)
	if err != nil {
		return AuthFailed, "", err
	}

	switch {
	case reply == "Invalid username":
		return AuthUsernameInvalid, reply, nil
	case reply == "Username in use":
		return AuthUsernameTaken, reply, nil
	case reply == "Username OK":
		return c.exchangePassword(askPassword, "Enter password: ", "Welcome", AuthBadPassword)
	case reply == "New User":
		return c.exchangePassword(askPassword, "Create a password: ", "Account Created", AuthCreateFailed)
	default:
		return AuthFailed, reply, nil
	}
}

func (c *ForumClient) exchangePassword(askPassword func(string) (string, error), promptText, wantReply string, failure AuthStatus) (AuthStatus, string, error) {
	password, err := askPassword(promptText)
	if err != nil {
		return AuthFailed, "", err
	}
	if !c.peer.SendText(password) {
		return AuthFailed, "", ErrNoReply
	}
	reply, err := c.receiveReply(replyTimeout)
	if err != nil {
		return AuthFailed, "", err
	}
	if reply != wantReply {
		return failure, reply, nil
	}
	return AuthOK, reply, nil
}

// SetAuthenticated records a completed login for prompt display.
func (c *ForumClient) SetAuthenticated(username string) {
	c.username = username
	c.authenticated = true
}

// Do sends one command and returns the reply.
func (c *ForumClient) Do(command string) (string, error) {
	if !c.peer.SendText(command) {
		return "", ErrNoReply
	}
	return c.receiveReply(replyTimeout)
}

// Upload sends a local file to a thread: UPD round trip, then the TCP
// stream, then the confirmation reply. The ready check happens before any
// bytes move; a missing or malformed ready aborts locally.
func (c *ForumClient) Upload(thread, filename string) (string, error) {
	f, err := os.Open(filename)
	if err != nil {
		return "", fmt.Errorf("client: open %s: %w", filename, err)
	}
	defer f.Close()

	reply, err := c.Do(fmt.Sprintf("UPD %s %s", thread, filename))
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(reply, readyPrefix) {
		return reply, nil
	}

	if _, err := transfer.DialAndSend(c.transferAddr(), f); err != nil {
		return "", err
	}
	return c.receiveReply(transferReplyTimeout)
}

// Download fetches a stored file from a thread into the working directory.
// progress (if non-nil) is called with running byte counts when the ready
// reply carries a parseable size.
func (c *ForumClient) Download(thread, filename string, progress func(received, total int64)) (string, error) {
	reply, err := c.Do(fmt.Sprintf("DWN %s %s", thread, filename))
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(reply, readyPrefix) {
		return reply, nil
	}

	// "Ready for TCP transfer|<size>"; an unparseable size only disables
	// progress reporting.
	var total int64
	if _, sizeField, ok := strings.Cut(reply, "|"); ok {
		if size, err := strconv.ParseInt(strings.TrimSpace(sizeField), 10, 64); err == nil {
			total = size
		}
	}

	out, err := os.Create(filename)
	if err != nil {
		return "", fmt.Errorf("client: create %s: %w", filename, err)
	}
	_, terr := transfer.DialAndReceive(c.transferAddr(), out, total, progress)
	if cerr := out.Close(); terr == nil {
		terr = cerr
	}
	if terr != nil {
		return "", terr
	}
	return c.receiveReply(transferReplyTimeout)
}

func (c *ForumClient) transferAddr() string {
	return fmt.Sprintf("%s:%d", c.serverHost, c.serverPort)
}
