package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/c-bata/go-prompt"
	"golang.org/x/term"

	"udpforum/client"
	"udpforum/terminal"
	"udpforum/transport"
)

var (
	forumClient    *client.ForumClient
	themeManager   *terminal.ThemeManager
	completer      *terminal.CommandCompleter
	tableFormatter *terminal.TableFormatter
)

func main() {
	port := 9090
	host := "127.0.0.1"
	if len(os.Args) > 1 {
		p, err := strconv.Atoi(os.Args[1])
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid port number: %s\n", os.Args[1])
			os.Exit(1)
		}
		port = p
	}
	if len(os.Args) > 2 {
		host = os.Args[2]
	}

	var err error
	themeManager, err = terminal.NewThemeManager()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize theme: %v\n", err)
		os.Exit(1)
	}
	completer = terminal.NewCommandCompleter()
	tableFormatter = terminal.NewTableFormatter()

	forumClient, err = client.New(host, port, transport.Options{})
	if err != nil {
		themeManager.ErrorColor().Printf("failed to reach server: %v\n", err)
		os.Exit(1)
	}
	defer forumClient.Close()

	themeManager.InfoColor().Printf("Connected to forum server at %s:%d\n", host, port)
	authenticate()
	showHelp()

	p := prompt.New(
		executor,
		completer.Completer,
		prompt.OptionTitle("udpforum client"),
		prompt.OptionLivePrefix(livePrefix),
		prompt.OptionPrefixTextColor(prompt.Green),
	)
	p.Run()
}

func livePrefix() (string, bool) {
	return fmt.Sprintf("%s> ", forumClient.Username()), true
}

// authenticate loops until the server says Welcome or Account Created.
func authenticate() {
	reader := bufio.NewReader(os.Stdin)
	for {
		themeManager.PromptColor().Print("Enter username: ")
		line, err := reader.ReadString('\n')
		if err != nil {
			os.Exit(1)
		}
		username := strings.TrimSpace(line)
		if username == "" {
			themeManager.ErrorColor().Println("Username cannot be empty")
			continue
		}

		status, msg, err := forumClient.Authenticate(username, readPassword)
		if err != nil {
			themeManager.ErrorColor().Printf("Authentication failed: %v\n", err)
			continue
		}
		if status == client.AuthOK {
			themeManager.SuccessColor().Println(msg)
			forumClient.SetAuthenticated(username)
			return
		}
		themeManager.ErrorColor().Println(msg)
	}
}

// readPassword reads a password without echoing it.
func readPassword(promptText string) (string, error) {
	themeManager.PromptColor().Print(promptText)
	pw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(pw)), nil
}

func executor(input string) {
	input = strings.TrimSpace(input)
	if input == "" {
		return
	}
	verb := strings.ToUpper(strings.Fields(input)[0])

	switch verb {
	case "XIT":
		handleExit()
	case "LST":
		handleList()
	case "RDT":
		handleRead(input)
	case "UPD":
		handleUpload(input)
	case "DWN":
		handleDownload(input)
	case "HELP":
		showHelp()
	case "THEME":
		handleTheme(input)
	case "CLEAR":
		fmt.Print("\033[2J\033[H")
	default:
		reply, err := forumClient.Do(input)
		if err != nil {
			themeManager.ErrorColor().Printf("Error: %v\n", err)
			return
		}
		printReply(reply)
	}
}

func handleExit() {
	reply, err := forumClient.Do("XIT")
	if err != nil {
		themeManager.ErrorColor().Printf("Error: %v\n", err)
	} else {
		themeManager.SuccessColor().Println(reply)
	}
	forumClient.Close()
	os.Exit(0)
}

func handleList() {
	reply, err := forumClient.Do("LST")
	if err != nil {
		themeManager.ErrorColor().Printf("Error: %v\n", err)
		return
	}
	if !strings.HasPrefix(reply, "Threads:") {
		printReply(reply)
		return
	}
	titles := strings.Split(reply, "\n")[1:]
	completer.UpdateThreads(titles)
	tableFormatter.RenderThreadList(titles)
}

func handleRead(input string) {
	fields := strings.Fields(input)
	if len(fields) != 2 {
		themeManager.ErrorColor().Println("Invalid read format. Use: RDT threadtitle")
		return
	}
	reply, err := forumClient.Do(input)
	if err != nil {
		themeManager.ErrorColor().Printf("Error: %v\n", err)
		return
	}
	prefix := fmt.Sprintf("Thread %s:\n", fields[1])
	if !strings.HasPrefix(reply, prefix) {
		printReply(reply)
		return
	}
	lines := strings.Split(strings.TrimPrefix(reply, prefix), "\n")
	tableFormatter.RenderThread(fields[1], lines)
}

func handleUpload(input string) {
	fields := strings.Fields(input)
	if len(fields) != 3 {
		themeManager.ErrorColor().Println("Invalid upload format. Use: UPD threadtitle filename")
		return
	}
	thread, filename := fields[1], fields[2]
	if _, err := os.Stat(filename); err != nil {
		themeManager.ErrorColor().Printf("Local file %s not found\n", filename)
		return
	}

	themeManager.InfoColor().Printf("Uploading %s...\n", filename)
	reply, err := forumClient.Upload(thread, filename)
	if err != nil {
		themeManager.ErrorColor().Printf("Upload failed: %v\n", err)
		return
	}
	printReply(reply)
}

func handleDownload(input string) {
	fields := strings.Fields(input)
	if len(fields) != 3 {
		themeManager.ErrorColor().Println("Invalid download format. Use: DWN threadtitle filename")
		return
	}
	thread, filename := fields[1], fields[2]

	lastPercent := -1
	reply, err := forumClient.Download(thread, filename, func(received, total int64) {
		percent := int(received * 100 / total)
		if percent != lastPercent {
			fmt.Printf("\rDownloading %s... %d%%", filename, percent)
			lastPercent = percent
		}
	})
	if lastPercent >= 0 {
		fmt.Println()
	}
	if err != nil {
		themeManager.ErrorColor().Printf("Download failed: %v\n", err)
		return
	}
	printReply(reply)
}

func handleTheme(input string) {
	fields := strings.Fields(input)
	if len(fields) != 2 {
		themeManager.InfoColor().Printf("Current theme: %s (try: theme dark | theme light)\n", themeManager.ThemeName())
		return
	}
	if err := themeManager.SetTheme(fields[1]); err != nil {
		themeManager.ErrorColor().Printf("Error: %v\n", err)
		return
	}
	themeManager.SuccessColor().Printf("Theme set to %s\n", fields[1])
}

// printReply colors a server reply by outcome: confirmations green,
// rejections red, everything else plain.
func printReply(reply string) {
	switch {
	case strings.Contains(reply, "successfully") || reply == "Goodbye":
		themeManager.SuccessColor().Println(reply)
	case strings.HasPrefix(reply, "Invalid") || strings.HasPrefix(reply, "You can only") ||
		strings.Contains(reply, "does not exist") || strings.Contains(reply, "failed"):
		themeManager.ErrorColor().Println(reply)
	default:
		themeManager.TextColor().Println(reply)
	}
}

func showHelp() {
	info := themeManager.InfoColor()
	info.Println("Commands:")
	info.Println("  CRT threadtitle                  Create a thread")
	info.Println("  LST                              List threads")
	info.Println("  MSG threadtitle message          Post a message")
	info.Println("  RDT threadtitle                  Read a thread")
	info.Println("  EDT threadtitle number message   Edit your message")
	info.Println("  DLT threadtitle number           Delete your message")
	info.Println("  RMV threadtitle                  Remove a thread you created")
	info.Println("  UPD threadtitle filename         Upload a file")
	info.Println("  DWN threadtitle filename         Download a file")
	info.Println("  XIT                              Log out and exit")
	info.Println("  theme [dark|light], clear, HELP")
}
