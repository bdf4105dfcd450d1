package protocol

import (
	"io"

	"github.com/tidwall/sjson"
)

// Result describes what a single Decode call did.
type Result struct {
	// Framed is false when the input was rejected by the framing check, in
	// which case every other field is zero.
	Framed bool

	// Prefix is the raw first ten characters of the message.
	Prefix string

	Opcode  Opcode
	Payload string

	// Lines are the output lines without their terminating newline.
	Lines []string

	// Recorded is true when Opcode was pushed onto the History.
	Recorded bool
}

// WriteTo writes every line, each terminated by '\n', in a single write.
func (r Result) WriteTo(w io.Writer) (int64, error) {
	if len(r.Lines) == 0 {
		return 0, nil
	}

	n, err := w.Write(JoinLines(r.Lines...))
	return int64(n), err
}

func (r Result) MarshalJSON() (data []byte, err error) {
	lines := r.Lines
	if lines == nil {
		lines = []string{}
	}

	data = []byte(`{}`)

	if data, err = sjson.SetBytes(data, "framed", r.Framed); err != nil {
		return nil, err
	}

	if data, err = sjson.SetBytes(data, "opcode", r.Prefix); err != nil {
		return nil, err
	}

	if data, err = sjson.SetBytes(data, "known", r.Opcode != Unknown); err != nil {
		return nil, err
	}

	if data, err = sjson.SetBytes(data, "payload", r.Payload); err != nil {
		return nil, err
	}

	if data, err = sjson.SetBytes(data, "lines", lines); err != nil {
		return nil, err
	}

	return sjson.SetBytes(data, "recorded", r.Recorded)
}

var _ io.WriterTo = Result{}
