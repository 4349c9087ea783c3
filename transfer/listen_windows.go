//go:build windows
// +build windows

package transfer

import (
	"net"
	"syscall"

	"golang.org/x/sys/windows"
)

// listenConfig sets SO_REUSEADDR so the stream listener can bind the port
// number the datagram socket already holds.
func listenConfig() net.ListenConfig {
	return net.ListenConfig{
		Control: func(network, address string, c syscall.RawConn) error {
			var sockErr error
			err := c.Control(func(fd uintptr) {
				sockErr = windows.SetsockoptInt(windows.Handle(fd), windows.SOL_SOCKET, windows.SO_REUSEADDR, 1)
			})
			if err != nil {
				return err
			}
			return sockErr
		},
	}
}
