// Package protocol implements the forum server: the acceptor that turns
// datagram endpoints into sessions, the per-session worker, and the command
// handlers.
package protocol

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"udpforum/auth"
	"udpforum/config"
	"udpforum/registry"
	"udpforum/store"
	"udpforum/transport"
)

// Server owns the shared datagram channel and the collaborators every
// session uses.
type Server struct {
	cfg *config.Config

	channel  *transport.Channel
	registry *registry.Registry
	auth     *auth.Authenticator
	threads  *store.ThreadStore
	files    *store.FileStore

	// transferMu serializes TCP handoffs on the shared port.
	transferMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer builds a server from cfg, creating the on-disk stores.
func NewServer(cfg *config.Config) (*Server, error) {
	threads, err := store.NewThreadStore(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	files, err := store.NewFileStore(cfg.UploadDir)
	if err != nil {
		return nil, err
	}
	reg := registry.New()
	creds := auth.NewCredentialStore(cfg.CredentialsFile)

	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		cfg:      cfg,
		registry: reg,
		auth:     auth.NewAuthenticator(creds, reg),
		threads:  threads,
		files:    files,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Listen binds the datagram socket. Port reports the bound port afterwards,
// which matters when cfg.Port is 0.
func (s *Server) Listen() error {
	ch, err := transport.Listen("udp4", fmt.Sprintf(":%d", s.cfg.Port), transport.Options{
		AckTimeout: s.cfg.AckTimeout,
		MaxRetries: s.cfg.MaxRetries,
		LossRate:   s.cfg.LossRate,
		BufferSize: s.cfg.BufferSize,
	})
	if err != nil {
		return err
	}
	s.channel = ch
	return nil
}

// Serve accepts sessions until Shutdown. A session failing never stops the
// acceptor.
func (s *Server) Serve() error {
	log.Printf("Forum server listening on UDP port %d", s.Port())
	for {
		peer, err := s.channel.Accept(s.ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, transport.ErrClosed) {
				return nil
			}
			return err
		}
		log.Printf("New client endpoint %s", peer.Addr())
		s.wg.Add(1)
		go s.handleSession(peer)
	}
}

// Start binds the socket and serves until Shutdown.
func (s *Server) Start() error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve()
}

// Port returns the bound UDP port. Valid after Listen.
func (s *Server) Port() int {
	return s.channel.LocalPort()
}

// Shutdown stops the acceptor, interrupts sessions at their next receive
// and waits for them to finish.
func (s *Server) Shutdown() {
	s.cancel()
	if s.channel != nil {
		s.channel.Close()
	}
	s.wg.Wait()
}

// handleSession runs one session worker. A panic tears down this session
// only; the recover boundary keeps the rest of the server alive.
func (s *Server) handleSession(peer *transport.Peer) {
	defer s.wg.Done()
	session := newSession(s, peer)
	defer func() {
		if r := recover(); r != nil {
			session.logger.Printf("session panic: %v", r)
		}
		session.teardown()
	}()
	session.run(s.ctx)
}
