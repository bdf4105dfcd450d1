package protocol

// Opcode is the fixed-width identifier at the start of every message.
type Opcode string

// OpcodeLen is the width of every opcode, underscore padding included.
const OpcodeLen = 10

const (
	RunNumber    Opcode = "RUN_NO____"
	PolarNumber  Opcode = "POLAR_NO__"
	UserMessage  Opcode = "USR_MSG___"
	UserFields   Opcode = "D_USR_FLD_"
	HistoryQuery Opcode = "HISTORY___"

	// Unknown is any ten character prefix that is not one of the above.
	Unknown Opcode = ""
)

var knownOpcodes = []Opcode{RunNumber, PolarNumber, UserMessage, UserFields, HistoryQuery}

// Opcodes returns the recognised opcodes in declaration order.
func Opcodes() []Opcode {
	out := make([]Opcode, len(knownOpcodes))
	copy(out, knownOpcodes)
	return out
}

// LookupOpcode maps a raw prefix to its Opcode, or Unknown.
func LookupOpcode(s string) Opcode {
	switch op := Opcode(s); op {
	case RunNumber, PolarNumber, UserMessage, UserFields, HistoryQuery:
		return op
	default:
		return Unknown
	}
}

// IsData reports whether the opcode carries data and so may be recorded in a History.
func (o Opcode) IsData() bool {
	switch o {
	case RunNumber, PolarNumber, UserMessage, UserFields:
		return true
	default:
		return false
	}
}

func (o Opcode) String() string {
	if o == Unknown {
		return "UNKNOWN"
	}

	return string(o)
}
