package terminal

import (
	"testing"

	"github.com/c-bata/go-prompt"
)

func suggestFor(t *testing.T, c *CommandCompleter, input string) []prompt.Suggest {
	t.Helper()
	buf := prompt.NewBuffer()
	buf.InsertText(input, false, true)
	return c.Completer(*buf.Document())
}

func texts(suggestions []prompt.Suggest) []string {
	var out []string
	for _, s := range suggestions {
		out = append(out, s.Text)
	}
	return out
}

func TestCompleter_VerbPrefix(t *testing.T) {
	c := NewCommandCompleter()
	got := texts(suggestFor(t, c, "D"))
	want := map[string]bool{"DLT": true, "DWN": true}
	if len(got) != len(want) {
		t.Fatalf("suggestions for %q = %v", "D", got)
	}
	for _, text := range got {
		if !want[text] {
			t.Errorf("unexpected suggestion %q", text)
		}
	}
}

func TestCompleter_ThreadArguments(t *testing.T) {
	c := NewCommandCompleter()
	c.UpdateThreads([]string{"Cantina", "Falcon", "Carbonite"})

	got := texts(suggestFor(t, c, "RDT Ca"))
	want := map[string]bool{"Cantina": true, "Carbonite": true}
	if len(got) != len(want) {
		t.Fatalf("suggestions for %q = %v", "RDT Ca", got)
	}
	for _, text := range got {
		if !want[text] {
			t.Errorf("unexpected suggestion %q", text)
		}
	}
}

func TestCompleter_AllThreadsAfterVerb(t *testing.T) {
	c := NewCommandCompleter()
	c.UpdateThreads([]string{"Cantina", "Falcon"})

	got := texts(suggestFor(t, c, "MSG "))
	if len(got) != 2 {
		t.Fatalf("suggestions for %q = %v, want both threads", "MSG ", got)
	}
}

func TestCompleter_NoThreadSuggestionsForCRT(t *testing.T) {
	c := NewCommandCompleter()
	c.UpdateThreads([]string{"Cantina"})

	// A new thread's title is free-form; suggesting existing ones would
	// only invite "already exists" replies.
	if got := suggestFor(t, c, "CRT "); len(got) != 0 {
		t.Errorf("suggestions for %q = %v, want none", "CRT ", texts(got))
	}
}

func TestSplitOrdinal(t *testing.T) {
	cases := []struct {
		line    string
		num     string
		rest    string
		ordinal bool
	}{
		{"1 han: Hello", "1", "han: Hello", true},
		{"12 leia: Hi", "12", "leia: Hi", true},
		{"han uploaded x.txt", "", "han uploaded x.txt", false},
		{"justoneword", "", "justoneword", false},
	}
	for _, tc := range cases {
		num, rest, ok := splitOrdinal(tc.line)
		if ok != tc.ordinal || num != tc.num || rest != tc.rest {
			t.Errorf("splitOrdinal(%q) = (%q, %q, %v), want (%q, %q, %v)",
				tc.line, num, rest, ok, tc.num, tc.rest, tc.ordinal)
		}
	}
}
