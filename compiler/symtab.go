package compiler

// symTable assigns each distinct named variable in one clause or query a
// stable frame offset, in first-occurrence order (§4.7 "offset within
// the activation frame").
//
// The anonymous variable "_" is exempt: every occurrence gets its own
// fresh offset rather than sharing one, matching the name's conventional
// meaning (a variable the writer explicitly doesn't care to unify
// repeatedly against itself). This is not spelled out in spec.md, which
// only defines "_" as a valid variable-name character class; it is
// carried over from the Prolog convention the distillation assumes (see
// DESIGN.md).
type symTable struct {
	offsets map[string]uint32
	next    uint32
}

func newSymTable() *symTable {
	return &symTable{offsets: make(map[string]uint32)}
}

// resolve returns the offset for name, and whether this is its first
// occurrence (FIRSTVAR) or a repeat (VAR).
func (s *symTable) resolve(name string) (offset uint32, first bool) {
	if name == "_" {
		off := s.next
		s.next++
		return off, true
	}
	if off, ok := s.offsets[name]; ok {
		return off, false
	}
	off := s.next
	s.offsets[name] = off
	s.next++
	return off, true
}

// locals is the total number of frame slots the clause/query needs —
// the ENTER operand (§6.2).
func (s *symTable) locals() int {
	return int(s.next)
}
