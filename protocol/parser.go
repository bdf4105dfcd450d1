package protocol

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	// Sentinel terminates every framed message.
	Sentinel = '#'

	// MinMessageLen is an opcode plus the sentinel.
	MinMessageLen = OpcodeLen + 1

	// MaxFieldNameLen is the longest parameter name D_USR_FLD_ accepts.
	MaxFieldNameLen = 15

	HeaderParameters = "Parameters:"
)

var ErrOddFieldCount = errors.New("Parameter list is malformed, it has a name without a value")

// Field is a single name/value pair carried by a D_USR_FLD_ message.
type Field struct {
	Name  string
	Value string
}

// Parse decodes input against history and writes the resulting lines to w.
//
// Protocol problems never surface as errors: rejected frames and unknown
// opcodes write nothing, payload problems are reported as output lines. The
// returned error is only ever a failure to write to w.
func Parse(w io.Writer, history *History, input string) error {
	res := Decode(history, input)
	if len(res.Lines) == 0 {
		return nil
	}

	_, err := res.WriteTo(w)
	return err
}

// Decode validates framing, dispatches on the opcode and records data opcodes
// in history. Nothing is written anywhere, the output is returned in the Result.
func Decode(history *History, input string) Result {
	if len(input) < MinMessageLen || input[len(input)-1] != Sentinel {
		return Result{}
	}

	prefix := input[:OpcodeLen]
	payload := strings.TrimSuffix(input[OpcodeLen:], string(Sentinel))

	res := Result{
		Framed:  true,
		Prefix:  prefix,
		Opcode:  LookupOpcode(prefix),
		Payload: payload,
	}

	switch res.Opcode {
	case RunNumber:
		res.Lines = decodeNumber("Run number", payload)
		res.Recorded = true

	case PolarNumber:
		res.Lines = decodeNumber("Polar number", payload)
		res.Recorded = true

	case UserMessage:
		res.Lines = []string{payload}
		res.Recorded = true

	case UserFields:
		fields, err := ParseFields(payload)
		if err != nil {
			// An odd token count is dropped without output or a history record
			return res
		}

		res.Lines = decodeFields(fields)
		res.Recorded = true

	case HistoryQuery:
		history.Each(func(op Opcode) {
			res.Lines = append(res.Lines, string(op))
		})

	case Unknown:
		// Unknown opcodes are ignored so newer senders do not break us
	}

	if res.Recorded {
		history.Record(res.Opcode)
	}

	return res
}

// ParseFields splits a D_USR_FLD_ payload into name/value pairs. Empty tokens,
// such as the one left by a trailing comma, are dropped before pairing.
func ParseFields(payload string) ([]Field, error) {
	tokens := make([]string, 0, strings.Count(payload, ",")+1)
	for _, token := range strings.Split(payload, ",") {
		if token != "" {
			tokens = append(tokens, token)
		}
	}

	if len(tokens)%2 != 0 {
		return nil, fmt.Errorf("Failed to parse '%s': %w", payload, ErrOddFieldCount)
	}

	fields := make([]Field, 0, len(tokens)/2)
	for i := 0; i+1 < len(tokens); i += 2 {
		fields = append(fields, Field{Name: tokens[i], Value: tokens[i+1]})
	}

	return fields, nil
}

// RemoveTrailingCR drops the optional '\r' a line based transport leaves behind.
func RemoveTrailingCR(line string) string {
	return strings.TrimSuffix(line, "\r")
}

func decodeNumber(label, payload string) []string {
	n, err := strconv.Atoi(payload)
	if err != nil {
		return []string{fmt.Sprintf("Invalid %s: %s", label, payload)}
	}

	return []string{fmt.Sprintf("%s: %d", label, n)}
}

func decodeFields(fields []Field) []string {
	lines := make([]string, 0, len(fields)+1)
	lines = append(lines, HeaderParameters)

	for _, f := range fields {
		if utf8.RuneCountInString(f.Name) > MaxFieldNameLen {
			lines = append(lines, "Parameter name too long: "+f.Name)
			continue
		}

		value, ok := parseDecimal(f.Value)
		if !ok {
			lines = append(lines, "Invalid parameter value for parameter: "+f.Name)
			continue
		}

		lines = append(lines, fmt.Sprintf("%s = %v", f.Name, value))
	}

	return lines
}

// parseDecimal only accepts plain decimal notation with an optional exponent,
// which keeps NaN, Inf and hex floats out.
func parseDecimal(s string) (float64, bool) {
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
		case c == '+', c == '-', c == '.', c == 'e', c == 'E':
		default:
			return 0, false
		}
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}

	return v, true
}
