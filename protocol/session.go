package protocol

import (
	"context"
	"fmt"
	"log"
	"os"

	"udpforum/store"
	"udpforum/transfer"
	"udpforum/transport"
)

// Session is one client's connection lifecycle: the authentication phase
// followed by the command loop, with its own prefixed logger.
type Session struct {
	server *Server
	peer   *transport.Peer
	logger *log.Logger

	username      string
	authenticated bool
}

func newSession(server *Server, peer *transport.Peer) *Session {
	return &Session{
		server: server,
		peer:   peer,
		logger: log.New(os.Stdout, fmt.Sprintf("[%s] ", peer.Addr()), log.LstdFlags),
	}
}

// run drives the session until the client exits, the link dies, or the
// server shuts down.
func (s *Session) run(ctx context.Context) {
	res, err := s.server.auth.Negotiate(ctx, s.peer)
	if err != nil {
		s.logger.Printf("authentication aborted: %v", err)
		return
	}
	if !res.Authenticated {
		s.logger.Printf("authentication attempt rejected")
		return
	}
	s.username = res.Username
	s.authenticated = true
	s.logger.Printf("user %s logged in", s.username)

	handler := NewCommandHandler(s)
	for {
		payload, _, err := s.peer.Receive(ctx)
		if err != nil {
			s.logger.Printf("command loop ended: %v", err)
			return
		}
		command := string(payload)
		s.logger.Printf("%s issued: %s", s.username, command)
		if !handler.HandleCommand(ctx, command) {
			return
		}
	}
}

// teardown releases everything the session holds. Safe on every exit path,
// including after HandleXIT already deregistered the username.
func (s *Session) teardown() {
	s.Deregister()
	s.peer.Close()
	s.logger.Printf("session closed")
}

// Reply sends one reliable reply frame to the client.
func (s *Session) Reply(msg string) bool {
	if !s.peer.SendText(msg) {
		s.logger.Printf("reply undeliverable after retries: %.40q", msg)
		return false
	}
	return true
}

// LogPrintf writes to the session's prefixed logger.
func (s *Session) LogPrintf(format string, args ...interface{}) {
	s.logger.Printf(format, args...)
}

// Username returns the authenticated username.
func (s *Session) Username() string {
	return s.username
}

// Threads returns the server's thread store.
func (s *Session) Threads() *store.ThreadStore {
	return s.server.threads
}

// Files returns the server's upload store.
func (s *Session) Files() *store.FileStore {
	return s.server.files
}

// AcceptUpload runs the server side of an upload handoff: bind the shared
// port, accept the client's connection and stream the file into the upload
// store. The server-wide transfer lock serializes handoffs so concurrent
// sessions queue for the port instead of failing to bind.
func (s *Session) AcceptUpload(ctx context.Context, thread, filename string) (int64, error) {
	s.server.transferMu.Lock()
	defer s.server.transferMu.Unlock()

	f, err := s.server.files.Create(thread, filename)
	if err != nil {
		return 0, err
	}
	n, err := transfer.AcceptAndReceive(ctx, s.server.Port(), f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return n, err
}

// ServeDownload runs the server side of a download handoff: bind the shared
// port, accept the client's connection and stream the stored file out.
func (s *Session) ServeDownload(ctx context.Context, thread, filename string) (int64, error) {
	s.server.transferMu.Lock()
	defer s.server.transferMu.Unlock()

	f, _, err := s.server.files.Open(thread, filename)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return transfer.AcceptAndSend(ctx, s.server.Port(), f)
}

// Deregister releases the session's username. Idempotent.
func (s *Session) Deregister() {
	if s.authenticated {
		s.server.registry.Release(s.username)
		s.authenticated = false
	}
}
