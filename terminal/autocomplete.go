package terminal

import (
	"os"
	"strings"

	"github.com/c-bata/go-prompt"
)

// CommandCompleter suggests forum verbs and their arguments. Thread titles
// come from the last LST round trip; local filenames back the UPD second
// argument.
type CommandCompleter struct {
	forumCommands []prompt.Suggest
	threadTitles  []string
}

// NewCommandCompleter creates a completer preloaded with the forum verbs.
func NewCommandCompleter() *CommandCompleter {
	return &CommandCompleter{
		forumCommands: []prompt.Suggest{
			{Text: "CRT", Description: "Create a new thread"},
			{Text: "LST", Description: "List all threads"},
			{Text: "MSG", Description: "Post a message to a thread"},
			{Text: "RDT", Description: "Read a thread's messages"},
			{Text: "DLT", Description: "Delete your message from a thread"},
			{Text: "EDT", Description: "Edit your message in a thread"},
			{Text: "RMV", Description: "Remove a thread you created"},
			{Text: "UPD", Description: "Upload a file to a thread"},
			{Text: "DWN", Description: "Download a file from a thread"},
			{Text: "XIT", Description: "Log out and exit"},
			{Text: "HELP", Description: "Show help information"},
			{Text: "theme", Description: "Change terminal theme"},
			{Text: "clear", Description: "Clear terminal screen"},
		},
	}
}

// UpdateThreads replaces the cached thread titles used for argument
// suggestions.
func (c *CommandCompleter) UpdateThreads(titles []string) {
	c.threadTitles = titles
}

// Completer returns suggestions for the current input.
func (c *CommandCompleter) Completer(d prompt.Document) []prompt.Suggest {
	text := d.TextBeforeCursor()
	words := strings.Fields(text)

	if len(words) == 0 || (len(words) == 1 && !strings.HasSuffix(text, " ")) {
		return c.suggestCommands(words)
	}
	return c.suggestArguments(words, strings.HasSuffix(text, " "))
}

func (c *CommandCompleter) suggestCommands(words []string) []prompt.Suggest {
	if len(words) == 0 {
		return c.forumCommands
	}
	prefix := strings.ToUpper(words[0])
	var filtered []prompt.Suggest
	for _, s := range c.forumCommands {
		if strings.HasPrefix(strings.ToUpper(s.Text), prefix) {
			filtered = append(filtered, s)
		}
	}
	return filtered
}

func (c *CommandCompleter) suggestArguments(words []string, trailingSpace bool) []prompt.Suggest {
	cmd := strings.ToUpper(words[0])
	argIndex := len(words) - 1
	lastWord := words[len(words)-1]
	if trailingSpace {
		argIndex++
		lastWord = ""
	}

	switch cmd {
	case "MSG", "RDT", "DLT", "EDT", "RMV", "UPD", "DWN":
		if argIndex == 1 {
			return c.suggestThreads(lastWord)
		}
		if argIndex == 2 && cmd == "UPD" {
			return suggestLocalFiles(lastWord)
		}
	case "THEME":
		if argIndex == 1 {
			return []prompt.Suggest{
				{Text: "dark", Description: "Dark theme"},
				{Text: "light", Description: "Light theme"},
			}
		}
	}
	return nil
}

func (c *CommandCompleter) suggestThreads(prefix string) []prompt.Suggest {
	var suggestions []prompt.Suggest
	for _, title := range c.threadTitles {
		if strings.HasPrefix(strings.ToLower(title), strings.ToLower(prefix)) {
			suggestions = append(suggestions, prompt.Suggest{
				Text:        title,
				Description: "Thread",
			})
		}
	}
	return suggestions
}

func suggestLocalFiles(prefix string) []prompt.Suggest {
	cwd, err := os.Getwd()
	if err != nil {
		return nil
	}
	entries, err := os.ReadDir(cwd)
	if err != nil {
		return nil
	}
	var suggestions []prompt.Suggest
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") && !strings.HasPrefix(prefix, ".") {
			continue
		}
		if strings.HasPrefix(strings.ToLower(name), strings.ToLower(prefix)) {
			suggestions = append(suggestions, prompt.Suggest{
				Text:        name,
				Description: "Local file",
			})
		}
	}
	return suggestions
}
