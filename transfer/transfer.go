// Package transfer moves file contents over a short-lived TCP connection
// after the datagram channel has agreed on a handoff. The server side binds
// the same port number the datagram socket uses, accepts exactly one
// connection, streams until EOF and closes.
package transfer

import (
	"context"
	"fmt"
	"io"
	"net"
)

// copyBufferSize is the chunk size for streaming copies.
const copyBufferSize = 32 * 1024

// acceptOne binds the handoff port and waits for the single expected
// connection. Cancelling ctx closes the listener and unblocks the accept.
func acceptOne(ctx context.Context, port int) (net.Conn, *net.TCPListener, error) {
	lc := listenConfig()
	ln, err := lc.Listen(ctx, "tcp4", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, nil, fmt.Errorf("transfer: listen port %d: %w", port, err)
	}
	tcpLn := ln.(*net.TCPListener)

	stop := context.AfterFunc(ctx, func() { tcpLn.Close() })
	conn, err := tcpLn.Accept()
	stop()
	if err != nil {
		tcpLn.Close()
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		return nil, nil, fmt.Errorf("transfer: accept on port %d: %w", port, err)
	}
	return conn, tcpLn, nil
}

// AcceptAndReceive accepts one connection on port and copies the incoming
// stream into w until the sender closes. It returns the byte count.
func AcceptAndReceive(ctx context.Context, port int, w io.Writer) (int64, error) {
	conn, ln, err := acceptOne(ctx, port)
	if err != nil {
		return 0, err
	}
	defer ln.Close()
	defer conn.Close()

	n, err := io.CopyBuffer(w, conn, make([]byte, copyBufferSize))
	if err != nil {
		return n, fmt.Errorf("transfer: receive stream: %w", err)
	}
	return n, nil
}

// AcceptAndSend accepts one connection on port and copies r into it, then
// closes so the receiver sees EOF. It returns the byte count.
func AcceptAndSend(ctx context.Context, port int, r io.Reader) (int64, error) {
	conn, ln, err := acceptOne(ctx, port)
	if err != nil {
		return 0, err
	}
	defer ln.Close()
	defer conn.Close()

	n, err := io.CopyBuffer(conn, r, make([]byte, copyBufferSize))
	if err != nil {
		return n, fmt.Errorf("transfer: send stream: %w", err)
	}
	return n, nil
}

// DialAndSend connects to addr and streams r until EOF, closing the
// connection to terminate the transfer.
func DialAndSend(addr string, r io.Reader) (int64, error) {
	conn, err := net.Dial("tcp4", addr)
	if err != nil {
		return 0, fmt.Errorf("transfer: dial %s: %w", addr, err)
	}
	defer conn.Close()

	n, err := io.CopyBuffer(conn, r, make([]byte, copyBufferSize))
	if err != nil {
		return n, fmt.Errorf("transfer: send stream: %w", err)
	}
	return n, nil
}

// DialAndReceive connects to addr and copies the incoming stream into w
// until the sender closes. When total is positive, progress (if non-nil) is
// called after each chunk with the running byte count.
func DialAndReceive(addr string, w io.Writer, total int64, progress func(received, total int64)) (int64, error) {
	conn, err := net.Dial("tcp4", addr)
	if err != nil {
		return 0, fmt.Errorf("transfer: dial %s: %w", addr, err)
	}
	defer conn.Close()

	buf := make([]byte, copyBufferSize)
	var received int64
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return received, fmt.Errorf("transfer: write stream: %w", werr)
			}
			received += int64(n)
			if progress != nil && total > 0 {
				progress(received, total)
			}
		}
		if err == io.EOF {
			return received, nil
		}
		if err != nil {
			return received, fmt.Errorf("transfer: receive stream: %w", err)
		}
	}
}
