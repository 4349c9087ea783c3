package protocol

import (
	"context"
	"strings"
)

// HandleCommand routes one command line to its handler. Every path sends
// exactly one reply frame (plus the transfer confirmation for UPD/DWN). It
// reports false when the session should end (XIT).
func (h *CommandHandler) HandleCommand(ctx context.Context, command string) bool {
	verb, args := splitCommand(command)

	switch strings.ToUpper(verb) {
	// Thread commands
	case "CRT":
		h.HandleCRT(args)
	case "LST":
		h.HandleLST()
	case "RDT":
		h.HandleRDT(args)
	case "RMV":
		h.HandleRMV(args)

	// Message commands
	case "MSG":
		h.HandleMSG(args)
	case "DLT":
		h.HandleDLT(args)
	case "EDT":
		h.HandleEDT(args)

	// Bulk transfer commands
	case "UPD":
		h.HandleUPD(ctx, args)
	case "DWN":
		h.HandleDWN(ctx, args)

	case "XIT":
		return h.HandleXIT()

	default:
		h.session.Reply("Invalid command")
	}
	return true
}

// splitCommand separates the verb from the argument remainder, preserving
// spaces inside the remainder for message bodies.
func splitCommand(command string) (verb, args string) {
	trimmed := strings.TrimSpace(command)
	if idx := strings.IndexByte(trimmed, ' '); idx >= 0 {
		return trimmed[:idx], strings.TrimLeft(trimmed[idx+1:], " ")
	}
	return trimmed, ""
}
