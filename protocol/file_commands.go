package protocol

import (
	"context"
	"errors"
	"fmt"

	"udpforum/store"
)

// HandleUPD receives a file upload over the TCP handoff and records it in
// the thread. The thread is only touched after the transfer completes.
func (h *CommandHandler) HandleUPD(ctx context.Context, args string) {
	title, filename, ok := splitArg(args)
	if !ok {
		h.session.Reply("Invalid upload format. Use: UPD threadtitle filename")
		return
	}

	ts := h.session.Threads()
	if !ts.Exists(title) {
		h.session.Reply(fmt.Sprintf("Thread %s does not exist", title))
		return
	}
	if !h.session.Reply("Ready for TCP transfer") {
		// The client never learned we are listening; abort before
		// binding the port.
		return
	}

	n, err := h.session.AcceptUpload(ctx, title, filename)
	if err != nil {
		h.session.LogPrintf("upload %s to %s: %v", filename, title, err)
		h.session.Reply(fmt.Sprintf("File %s upload failed", filename))
		return
	}
	h.session.LogPrintf("received %s (%d bytes) into %s", filename, n, title)

	record := fmt.Sprintf("%s uploaded %s", h.session.Username(), filename)
	if err := ts.AppendLine(title, record); err != nil {
		h.session.LogPrintf("record upload in %s: %v", title, err)
	}
	h.session.Reply(fmt.Sprintf("File %s uploaded successfully", filename))
}

// HandleDWN serves a previously uploaded file over the TCP handoff. The
// ready reply carries the file size so the client can report progress.
func (h *CommandHandler) HandleDWN(ctx context.Context, args string) {
	title, filename, ok := splitArg(args)
	if !ok {
		h.session.Reply("Invalid download format. Use: DWN threadtitle filename")
		return
	}

	if !h.session.Threads().Exists(title) {
		h.session.Reply(fmt.Sprintf("Thread %s does not exist", title))
		return
	}
	size, err := fileSize(h.session.Files(), title, filename)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrBadName) {
			h.session.Reply(fmt.Sprintf("File %s does not exist in thread %s", filename, title))
			return
		}
		h.session.LogPrintf("stat %s in %s: %v", filename, title, err)
		h.session.Reply(fmt.Sprintf("File %s does not exist in thread %s", filename, title))
		return
	}
	if !h.session.Reply(fmt.Sprintf("Ready for TCP transfer|%d", size)) {
		return
	}

	n, err := h.session.ServeDownload(ctx, title, filename)
	if err != nil {
		h.session.LogPrintf("download %s from %s: %v", filename, title, err)
		h.session.Reply(fmt.Sprintf("File %s download failed", filename))
		return
	}
	h.session.LogPrintf("served %s (%d bytes) from %s", filename, n, title)
	h.session.Reply(fmt.Sprintf("File %s downloaded successfully", filename))
}

// HandleXIT says goodbye and ends the session. The username is released
// before the reply so the client can immediately log back in.
func (h *CommandHandler) HandleXIT() bool {
	h.session.Deregister()
	h.session.Reply("Goodbye")
	return false
}

func fileSize(fs *store.FileStore, thread, filename string) (int64, error) {
	f, size, err := fs.Open(thread, filename)
	if err != nil {
		return 0, err
	}
	f.Close()
	return size, nil
}
