package protocol

import (
	"context"

	"udpforum/store"
)

// SessionInterface is the slice of a session the command handlers depend
// on, injected so handlers can be driven by a fake in tests.
type SessionInterface interface {
	// Reply sends one reliable reply frame. It reports delivery; an
	// undeliverable reply is logged by the session, and handlers carry on.
	Reply(msg string) bool
	LogPrintf(format string, args ...interface{})

	// Session state
	Username() string

	// Collaborators
	Threads() *store.ThreadStore
	Files() *store.FileStore

	// Bulk transfer handoff. Both block until the one-shot TCP exchange
	// finishes and return the byte count.
	AcceptUpload(ctx context.Context, thread, filename string) (int64, error)
	ServeDownload(ctx context.Context, thread, filename string) (int64, error)

	// Deregister releases the session's username ahead of teardown.
	Deregister()
}
