package protocol

import (
	"fmt"
	"strconv"
	"strings"
)

// HandleMSG appends a message to a thread. The message number is the line's
// index in the thread file, so numbering starts at 1 below the creator
// header.
func (h *CommandHandler) HandleMSG(args string) {
	title, body, ok := splitArg(args)
	if !ok {
		h.session.Reply("Invalid message format. Use: MSG threadtitle message")
		return
	}

	ts := h.session.Threads()
	if !ts.Exists(title) {
		h.session.Reply(fmt.Sprintf("Thread %s does not exist", title))
		return
	}
	user := h.session.Username()
	err := ts.Update(title, func(lines []string) ([]string, bool) {
		return append(lines, fmt.Sprintf("%d %s: %s", len(lines), user, body)), true
	})
	if err != nil {
		h.session.LogPrintf("post to %s: %v", title, err)
		h.session.Reply(fmt.Sprintf("Thread %s does not exist", title))
		return
	}
	h.session.Reply(fmt.Sprintf("Message posted to %s", title))
}

// HandleDLT deletes the caller's own message and renumbers the rest of the
// thread so message numbers stay dense.
func (h *CommandHandler) HandleDLT(args string) {
	title, numArg, ok := splitArg(args)
	if !ok {
		h.session.Reply("Invalid delete format. Use: DLT threadtitle messagenumber")
		return
	}
	num, err := strconv.Atoi(strings.TrimSpace(numArg))
	if err != nil {
		h.session.Reply("Invalid message number")
		return
	}

	ts := h.session.Threads()
	if !ts.Exists(title) {
		h.session.Reply(fmt.Sprintf("Thread %s does not exist", title))
		return
	}
	user := h.session.Username()
	var reply string
	err = ts.Update(title, func(lines []string) ([]string, bool) {
		if num <= 0 || num >= len(lines) {
			reply = fmt.Sprintf("Message %d does not exist in thread %s", num, title)
			return nil, false
		}
		if !ownsMessage(lines[num], num, user) {
			reply = "You can only delete your own messages"
			return nil, false
		}
		lines = append(lines[:num], lines[num+1:]...)
		renumber(lines, num)
		reply = fmt.Sprintf("Message %d deleted from %s", num, title)
		return lines, true
	})
	if err != nil {
		h.session.LogPrintf("delete from %s: %v", title, err)
		h.session.Reply(fmt.Sprintf("Thread %s does not exist", title))
		return
	}
	h.session.Reply(reply)
}

// HandleEDT replaces the body of the caller's own message.
func (h *CommandHandler) HandleEDT(args string) {
	title, rest, ok := splitArg(args)
	if !ok {
		h.session.Reply("Invalid edit format. Use: EDT threadtitle messagenumber message")
		return
	}
	numArg, body, ok := splitArg(rest)
	if !ok {
		h.session.Reply("Invalid edit format. Use: EDT threadtitle messagenumber message")
		return
	}
	num, err := strconv.Atoi(numArg)
	if err != nil {
		h.session.Reply("Invalid message number")
		return
	}

	ts := h.session.Threads()
	if !ts.Exists(title) {
		h.session.Reply(fmt.Sprintf("Thread %s does not exist", title))
		return
	}
	user := h.session.Username()
	var reply string
	err = ts.Update(title, func(lines []string) ([]string, bool) {
		if num <= 0 || num >= len(lines) {
			reply = fmt.Sprintf("Message %d does not exist in thread %s", num, title)
			return nil, false
		}
		if !ownsMessage(lines[num], num, user) {
			reply = "You can only edit your own messages"
			return nil, false
		}
		lines[num] = fmt.Sprintf("%d %s: %s", num, user, body)
		reply = fmt.Sprintf("Message %d edited in %s", num, title)
		return lines, true
	})
	if err != nil {
		h.session.LogPrintf("edit in %s: %v", title, err)
		h.session.Reply(fmt.Sprintf("Thread %s does not exist", title))
		return
	}
	h.session.Reply(reply)
}
