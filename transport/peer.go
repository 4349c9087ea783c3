package transport

import (
	"context"
	"net"
	"sync"
	"time"
)

// settledMemory caps how many acknowledged sequence numbers a peer keeps
// for duplicate-ack suppression.
const settledMemory = 1024

type inbound struct {
	payload []byte
	binary  bool
}

// Peer is one remote endpoint multiplexed over a Channel's socket. Sends
// from multiple goroutines are safe; each carries its own sequence number
// and waits on its own acknowledgment.
type Peer struct {
	ch    *Channel
	addr  net.Addr
	inbox chan inbound

	mu      sync.Mutex
	pending map[int]chan struct{}
	settled map[int]struct{}
}

// Addr returns the remote endpoint's address.
func (p *Peer) Addr() net.Addr {
	return p.addr
}

// Send transmits one payload reliably: it picks a fresh sequence number,
// sends the frame (subject to simulated loss) and waits for the matching
// acknowledgment, retransmitting on timeout. It reports whether the frame
// was acknowledged within the retry budget. Delivery failure is an expected
// protocol outcome, not an error.
func (p *Peer) Send(payload []byte, binary bool) bool {
	seq, acked := p.register()
	defer p.unregister(seq)

	packet := Frame{Seq: seq, Binary: binary, Payload: payload}.Encode()
	for attempt := 0; attempt < p.ch.opts.MaxRetries; attempt++ {
		if !p.ch.loss.Drop() {
			if _, err := p.ch.conn.WriteTo(packet, p.addr); err != nil {
				return false
			}
		}
		timer := time.NewTimer(p.ch.opts.AckTimeout)
		select {
		case <-acked:
			timer.Stop()
			return true
		case <-timer.C:
		case <-p.ch.done:
			timer.Stop()
			return false
		}
	}
	return false
}

// SendText transmits a text payload reliably.
func (p *Peer) SendText(msg string) bool {
	return p.Send([]byte(msg), false)
}

// Receive blocks until a payload arrives from this endpoint, the context is
// cancelled, or the channel closes.
func (p *Peer) Receive(ctx context.Context) ([]byte, bool, error) {
	select {
	case in := <-p.inbox:
		return in.payload, in.binary, nil
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case <-p.ch.done:
		return nil, false, ErrClosed
	}
}

// Close removes the peer from the channel's demultiplexing table. A later
// frame from the same endpoint starts a fresh peer.
func (p *Peer) Close() {
	p.ch.forget(p)
}

// register reserves a sequence number unique among this peer's in-flight
// sends and returns the channel its acknowledgment will close.
func (p *Peer) register() (int, chan struct{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for {
		seq := p.ch.nextSeq()
		if _, inFlight := p.pending[seq]; inFlight {
			continue
		}
		acked := make(chan struct{})
		p.pending[seq] = acked
		return seq, acked
	}
}

func (p *Peer) unregister(seq int) {
	p.mu.Lock()
	delete(p.pending, seq)
	p.mu.Unlock()
}

// rememberSettledLocked records an acknowledged sequence number so a
// retransmitted ack is swallowed instead of surfacing as a raw datagram.
// The caller holds p.mu.
func (p *Peer) rememberSettledLocked(seq int) {
	if len(p.settled) >= settledMemory {
		p.settled = make(map[int]struct{})
	}
	p.settled[seq] = struct{}{}
}
