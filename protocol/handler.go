package protocol

// CommandHandler implements every forum command against an injected
// session.
type CommandHandler struct {
	session SessionInterface
}

// NewCommandHandler creates a command handler bound to session.
func NewCommandHandler(session SessionInterface) *CommandHandler {
	return &CommandHandler{session: session}
}
