package protocol

import (
	"errors"
	"fmt"
	"strings"

	"udpforum/store"
)

// HandleCRT creates a new thread with the caller as its creator.
func (h *CommandHandler) HandleCRT(args string) {
	title := firstField(args)
	if title == "" {
		h.session.Reply("Invalid command")
		return
	}

	err := h.session.Threads().Create(title, h.session.Username())
	switch {
	case err == nil:
		h.session.Reply(fmt.Sprintf("Thread %s created successfully", title))
	case errors.Is(err, store.ErrExists):
		h.session.Reply(fmt.Sprintf("Thread %s already exists", title))
	case errors.Is(err, store.ErrBadName):
		h.session.Reply("Invalid command")
	default:
		h.session.LogPrintf("create thread %s: %v", title, err)
		h.session.Reply("Invalid command")
	}
}

// HandleLST lists every thread title.
func (h *CommandHandler) HandleLST() {
	titles, err := h.session.Threads().Titles()
	if err != nil {
		h.session.LogPrintf("list threads: %v", err)
		h.session.Reply("No threads available")
		return
	}
	if len(titles) == 0 {
		h.session.Reply("No threads available")
		return
	}
	h.session.Reply("Threads:\n" + strings.Join(titles, "\n"))
}

// HandleRDT returns a thread's messages, creator header excluded.
func (h *CommandHandler) HandleRDT(args string) {
	title := firstField(args)
	if title == "" {
		h.session.Reply("Invalid command")
		return
	}

	lines, err := h.session.Threads().ReadLines(title)
	if err != nil {
		h.session.Reply(fmt.Sprintf("Thread %s does not exist", title))
		return
	}
	if len(lines) <= 1 {
		h.session.Reply(fmt.Sprintf("Thread %s is empty", title))
		return
	}
	h.session.Reply(fmt.Sprintf("Thread %s:\n%s", title, strings.Join(lines[1:], "\n")))
}

// HandleRMV removes a thread and purges its uploads. Only the creator may
// remove a thread.
func (h *CommandHandler) HandleRMV(args string) {
	title := firstField(args)
	if title == "" {
		h.session.Reply("Invalid command")
		return
	}

	ts := h.session.Threads()
	lines, err := ts.ReadLines(title)
	if err != nil {
		h.session.Reply(fmt.Sprintf("Thread %s does not exist", title))
		return
	}
	if len(lines) == 0 || lines[0] != h.session.Username() {
		h.session.Reply("You can only remove threads you created")
		return
	}
	if err := ts.Remove(title); err != nil {
		h.session.LogPrintf("remove thread %s: %v", title, err)
		h.session.Reply(fmt.Sprintf("Thread %s does not exist", title))
		return
	}
	if err := h.session.Files().Purge(title); err != nil {
		h.session.LogPrintf("purge uploads for %s: %v", title, err)
	}
	h.session.Reply(fmt.Sprintf("Thread %s removed", title))
}
