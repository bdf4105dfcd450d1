package protocol

import (
	"io"
	"strings"
)

// Terminal ends every output line.
const Terminal = "\n"

// WriteLines writes each line followed by Terminal in a single write.
func WriteLines(w io.Writer, lines ...string) error {
	if len(lines) == 0 {
		return nil
	}

	_, err := w.Write(JoinLines(lines...))
	return err
}

// JoinLines terminates and concatenates lines.
func JoinLines(lines ...string) []byte {
	return []byte(strings.Join(lines, Terminal) + Terminal)
}
