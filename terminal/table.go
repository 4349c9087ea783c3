package terminal

import (
	"fmt"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// TableFormatter renders thread listings and thread contents as aligned
// tables.
type TableFormatter struct {
	table *tablewriter.Table
}

// NewTableFormatter creates a formatter writing to stdout.
func NewTableFormatter() *TableFormatter {
	table := tablewriter.NewWriter(os.Stdout)
	table.Options(
		tablewriter.WithRendition(tw.Rendition{Borders: tw.Border{Left: tw.Pending, Right: tw.Pending, Top: tw.Pending, Bottom: tw.Pending}}),
		tablewriter.WithPadding(tw.Padding{Left: "  ", Right: "  "}),
	)
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Header = tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignLeft},
		}
		cfg.Row = tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignLeft},
		}
	})
	return &TableFormatter{table: table}
}

// RenderThreadList prints the thread titles from an LST reply.
func (tf *TableFormatter) RenderThreadList(titles []string) error {
	if len(titles) == 0 {
		fmt.Println("No threads available")
		return nil
	}
	tf.table.Reset()
	tf.table.Header("Thread")
	for _, title := range titles {
		tf.table.Append([]string{title})
	}
	return tf.table.Render()
}

// RenderThread prints an RDT reply body: message lines in one column,
// upload records in another.
func (tf *TableFormatter) RenderThread(title string, lines []string) error {
	tf.table.Reset()
	tf.table.Header("#", "Entry")
	for _, line := range lines {
		num, rest, ok := splitOrdinal(line)
		if ok {
			tf.table.Append([]string{num, rest})
		} else {
			tf.table.Append([]string{"-", line})
		}
	}
	fmt.Printf("Thread %s:\n", title)
	return tf.table.Render()
}

// splitOrdinal cuts the leading message number off a thread line. Upload
// records have none.
func splitOrdinal(line string) (num, rest string, ok bool) {
	head, tail, found := strings.Cut(line, " ")
	if !found {
		return "", line, false
	}
	for _, r := range head {
		if r < '0' || r > '9' {
			return "", line, false
		}
	}
	return head, tail, head != ""
}
