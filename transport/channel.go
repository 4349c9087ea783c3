// Package transport implements the forum's reliable datagram channel: a
// stop-and-wait protocol over UDP with per-send acknowledgments, bounded
// retransmission and optional simulated loss. One Channel wraps one socket
// and demultiplexes it into per-endpoint Peers, so any number of session
// goroutines can share the socket safely.
package transport

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"sync"
	"time"
)

const (
	// DefaultAckTimeout is how long a sender waits for an acknowledgment
	// before retransmitting.
	DefaultAckTimeout = 2 * time.Second
	// DefaultMaxRetries is the total number of transmission attempts per
	// frame before the send is reported failed.
	DefaultMaxRetries = 3
	// DefaultBufferSize is the datagram receive buffer size.
	DefaultBufferSize = 1024

	// seqRange bounds the random sequence number space.
	seqRange = 10000

	acceptBacklog = 128
	inboxDepth    = 32
)

// ErrClosed is returned by Receive and Accept after the channel shuts down.
var ErrClosed = errors.New("transport: channel closed")

// Options tunes a Channel. Zero values take the protocol defaults.
type Options struct {
	AckTimeout time.Duration
	MaxRetries int
	LossRate   float64
	BufferSize int
	// Seed makes loss simulation and sequence numbers reproducible in
	// tests; 0 seeds from entropy.
	Seed int64
}

func (o Options) withDefaults() Options {
	if o.AckTimeout <= 0 {
		o.AckTimeout = DefaultAckTimeout
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = DefaultMaxRetries
	}
	if o.BufferSize <= 0 {
		o.BufferSize = DefaultBufferSize
	}
	return o
}

// Channel owns one UDP socket. A background read loop routes incoming
// acknowledgments to waiting senders and queues data frames to per-endpoint
// inboxes; endpoints seen for the first time surface on Accept.
type Channel struct {
	conn net.PacketConn
	opts Options
	loss *LossSimulator

	mu    sync.Mutex
	peers map[string]*Peer
	rng   *rand.Rand

	accept    chan *Peer
	done      chan struct{}
	closeOnce sync.Once
}

func newChannel(conn net.PacketConn, opts Options) *Channel {
	opts = opts.withDefaults()
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Channel{
		conn:   conn,
		opts:   opts,
		loss:   NewLossSimulator(opts.LossRate, seed),
		peers:  make(map[string]*Peer),
		rng:    rand.New(rand.NewSource(seed)),
		accept: make(chan *Peer, acceptBacklog),
		done:   make(chan struct{}),
	}
}

// Listen binds a datagram socket and starts serving it. Remote endpoints
// that send a frame appear on Accept.
func Listen(network, addr string, opts Options) (*Channel, error) {
	conn, err := net.ListenPacket(network, addr)
	if err != nil {
		return nil, fmt.Errorf("transport: listen %s: %w", addr, err)
	}
	ch := newChannel(conn, opts)
	go ch.readLoop()
	return ch, nil
}

// Dial binds an ephemeral local socket and returns the peer for the remote
// address, pre-registered so replies are delivered to it rather than
// surfacing on Accept.
func Dial(network, addr string, opts Options) (*Channel, *Peer, error) {
	raddr, err := net.ResolveUDPAddr(network, addr)
	if err != nil {
		return nil, nil, fmt.Errorf("transport: resolve %s: %w", addr, err)
	}
	conn, err := net.ListenPacket(network, ":0")
	if err != nil {
		return nil, nil, fmt.Errorf("transport: dial %s: %w", addr, err)
	}
	ch := newChannel(conn, opts)
	ch.mu.Lock()
	peer := ch.addPeerLocked(raddr)
	ch.mu.Unlock()
	go ch.readLoop()
	return ch, peer, nil
}

// Accept blocks until a previously unseen endpoint sends a frame, the
// context is cancelled, or the channel closes.
func (c *Channel) Accept(ctx context.Context) (*Peer, error) {
	select {
	case p := <-c.accept:
		return p, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.done:
		return nil, ErrClosed
	}
}

// LocalPort returns the port the socket is bound to.
func (c *Channel) LocalPort() int {
	return c.conn.LocalAddr().(*net.UDPAddr).Port
}

// Close shuts the socket down and releases every blocked Send, Receive and
// Accept.
func (c *Channel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.conn.Close()
	})
	return err
}

func (c *Channel) readLoop() {
	buf := make([]byte, c.opts.BufferSize)
	for {
		n, addr, err := c.conn.ReadFrom(buf)
		if err != nil {
			return
		}
		data := make([]byte, n)
		copy(data, buf[:n])
		c.dispatch(addr, data)
	}
}

func (c *Channel) dispatch(addr net.Addr, data []byte) {
	kind, frame, ackSeq := decodeDatagram(data)
	switch kind {
	case datagramAck:
		if c.settle(addr, ackSeq) {
			return
		}
		// A bare number matching nothing in flight is legacy raw text.
		c.deliver(addr, inbound{payload: data}, false)
	case datagramFrame:
		// Simulated receive-side loss happens before the ack goes out,
		// so the sender sees a timeout and retransmits.
		if c.loss.Drop() {
			return
		}
		// Acknowledge before delivery: the sender may unblock as soon
		// as the frame is accepted, not when the session reads it.
		c.conn.WriteTo(EncodeAck(frame.Seq), addr)
		c.deliver(addr, inbound{payload: frame.Payload, binary: frame.Binary}, true)
	case datagramRaw:
		c.deliver(addr, inbound{payload: data}, false)
	}
}

// settle routes an acknowledgment to the pending send it belongs to.
// It reports whether the ack was consumed, including duplicates for a
// sequence number that was already settled.
func (c *Channel) settle(addr net.Addr, seq int) bool {
	c.mu.Lock()
	p := c.peers[addr.String()]
	c.mu.Unlock()
	if p == nil {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if waiter, ok := p.pending[seq]; ok {
		delete(p.pending, seq)
		p.rememberSettledLocked(seq)
		close(waiter)
		return true
	}
	_, dup := p.settled[seq]
	return dup
}

// deliver queues a payload to the endpoint's inbox. Only data frames may
// create a new peer; raw legacy datagrams from unknown endpoints are
// discarded.
func (c *Channel) deliver(addr net.Addr, in inbound, mayCreate bool) {
	key := addr.String()
	c.mu.Lock()
	p := c.peers[key]
	if p == nil {
		if !mayCreate {
			c.mu.Unlock()
			return
		}
		p = c.addPeerLocked(addr)
		c.mu.Unlock()
		select {
		case c.accept <- p:
		default:
			// Accept backlog full: forget the endpoint so its next
			// frame retries the handoff.
			c.forget(p)
			return
		}
	} else {
		c.mu.Unlock()
	}
	select {
	case p.inbox <- in:
	default:
		// Stop-and-wait peers never have this many frames outstanding;
		// an overflowing inbox means the endpoint is not following the
		// protocol, and dropping is the lossy-network outcome anyway.
	}
}

// addPeerLocked registers addr; the caller holds c.mu.
func (c *Channel) addPeerLocked(addr net.Addr) *Peer {
	p := &Peer{
		ch:      c,
		addr:    addr,
		inbox:   make(chan inbound, inboxDepth),
		pending: make(map[int]chan struct{}),
		settled: make(map[int]struct{}),
	}
	c.peers[addr.String()] = p
	return p
}

func (c *Channel) forget(p *Peer) {
	c.mu.Lock()
	if c.peers[p.addr.String()] == p {
		delete(c.peers, p.addr.String())
	}
	c.mu.Unlock()
}

// nextSeq draws a random sequence number from the protocol's space.
func (c *Channel) nextSeq() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rng.Intn(seqRange)
}
