package terminal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
)

// Theme names the colors used for each class of client output.
type Theme struct {
	Name         string `json:"name"`
	PromptColor  string `json:"promptColor"`
	TextColor    string `json:"textColor"`
	ErrorColor   string `json:"errorColor"`
	SuccessColor string `json:"successColor"`
	InfoColor    string `json:"infoColor"`
}

// ThemeManager loads, persists and switches the client theme. The active
// theme is kept in ~/.forumconfig.json so it survives restarts.
type ThemeManager struct {
	currentTheme Theme
	configPath   string
}

var builtinThemes = map[string]Theme{
	"dark": {
		Name:         "dark",
		PromptColor:  "green",
		TextColor:    "white",
		ErrorColor:   "red",
		SuccessColor: "green",
		InfoColor:    "cyan",
	},
	"light": {
		Name:         "light",
		PromptColor:  "blue",
		TextColor:    "black",
		ErrorColor:   "red",
		SuccessColor: "green",
		InfoColor:    "blue",
	},
}

// NewThemeManager returns a manager with the saved theme, or the dark
// default when no config file exists yet.
func NewThemeManager() (*ThemeManager, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("terminal: home directory: %w", err)
	}
	tm := &ThemeManager{
		configPath:   filepath.Join(homeDir, ".forumconfig.json"),
		currentTheme: builtinThemes["dark"],
	}
	if err := tm.load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("terminal: load theme: %w", err)
		}
		if err := tm.save(); err != nil {
			return nil, fmt.Errorf("terminal: save default theme: %w", err)
		}
	}
	return tm, nil
}

func (tm *ThemeManager) load() error {
	data, err := os.ReadFile(tm.configPath)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, &tm.currentTheme)
}

func (tm *ThemeManager) save() error {
	data, err := json.MarshalIndent(tm.currentTheme, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(tm.configPath, data, 0644)
}

// SetTheme switches to a built-in theme and persists the choice.
func (tm *ThemeManager) SetTheme(name string) error {
	theme, ok := builtinThemes[name]
	if !ok {
		return fmt.Errorf("unknown theme: %s", name)
	}
	tm.currentTheme = theme
	return tm.save()
}

// ThemeName returns the active theme's name.
func (tm *ThemeManager) ThemeName() string {
	return tm.currentTheme.Name
}

// PromptColor returns the color for the prompt line.
func (tm *ThemeManager) PromptColor() *color.Color {
	return colorByName(tm.currentTheme.PromptColor)
}

// TextColor returns the color for ordinary server replies.
func (tm *ThemeManager) TextColor() *color.Color {
	return colorByName(tm.currentTheme.TextColor)
}

// ErrorColor returns the color for errors and rejections.
func (tm *ThemeManager) ErrorColor() *color.Color {
	return colorByName(tm.currentTheme.ErrorColor)
}

// SuccessColor returns the color for confirmations.
func (tm *ThemeManager) SuccessColor() *color.Color {
	return colorByName(tm.currentTheme.SuccessColor)
}

// InfoColor returns the color for progress and status output.
func (tm *ThemeManager) InfoColor() *color.Color {
	return colorByName(tm.currentTheme.InfoColor)
}

func colorByName(name string) *color.Color {
	switch name {
	case "black":
		return color.New(color.FgBlack)
	case "red":
		return color.New(color.FgRed)
	case "green":
		return color.New(color.FgGreen)
	case "yellow":
		return color.New(color.FgYellow)
	case "blue":
		return color.New(color.FgBlue)
	case "magenta":
		return color.New(color.FgMagenta)
	case "cyan":
		return color.New(color.FgCyan)
	case "white":
		return color.New(color.FgWhite)
	default:
		return color.New(color.FgWhite)
	}
}
