package protocol

import (
	"fmt"
	"strconv"
	"strings"
)

// firstField returns the first whitespace-delimited token of args.
func firstField(args string) string {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// splitArg cuts one leading token off args, returning the token and the
// remainder. ok is false when either side is empty.
func splitArg(args string) (head, rest string, ok bool) {
	head, rest, _ = strings.Cut(args, " ")
	rest = strings.TrimLeft(rest, " ")
	return head, rest, head != "" && rest != ""
}

// ownsMessage reports whether the stored line at ordinal num was written by
// user. Message lines are "<num> <user>: <body>".
func ownsMessage(line string, num int, user string) bool {
	return strings.HasPrefix(line, fmt.Sprintf("%d %s:", num, user))
}

// renumber rewrites the leading ordinal of message lines from index from
// onward so ordinals stay dense after a delete. Upload records carry no
// ordinal and are left untouched.
func renumber(lines []string, from int) {
	for i := from; i < len(lines); i++ {
		head, rest, ok := strings.Cut(lines[i], " ")
		if !ok {
			continue
		}
		if _, err := strconv.Atoi(head); err != nil {
			continue
		}
		lines[i] = fmt.Sprintf("%d %s", i, rest)
	}
}
