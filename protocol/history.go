package protocol

// HistorySize is the number of opcodes a History keeps.
const HistorySize = 5

// History is a bounded newest-first record of dispatched data opcodes.
//
// A History is not safe for concurrent use. Callers sharing one between
// producers must serialise their Parse calls.
type History struct {
	entries [HistorySize]Opcode
	n       int
}

func NewHistory() *History {
	return &History{}
}

// Record pushes op to the front, evicting the oldest entry once full.
// Opcodes that are not data opcodes are ignored.
func (h *History) Record(op Opcode) {
	if !op.IsData() {
		return
	}

	last := h.n
	if last == HistorySize {
		last--
	} else {
		h.n++
	}

	copy(h.entries[1:last+1], h.entries[:last])
	h.entries[0] = op
}

// Entries returns a copy of the recorded opcodes, newest first.
func (h *History) Entries() []Opcode {
	out := make([]Opcode, h.n)
	copy(out, h.entries[:h.n])
	return out
}

// Each calls fn for every entry, newest first.
func (h *History) Each(fn func(Opcode)) {
	for i := 0; i < h.n; i++ {
		fn(h.entries[i])
	}
}

func (h *History) Len() int {
	return h.n
}
