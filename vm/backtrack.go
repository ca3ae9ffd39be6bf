package vm

import "errors"

// ErrNoMoreAnswers is raised by backtrack when there is no choice point
// left to retry (§4.9, §7 "runtime backtracking-exhausted").
var ErrNoMoreAnswers = errors.New("no more answers")

// backtrack restores the machine to the most recent choice point and
// advances it to its next alternative, or pops it entirely if none
// remain (§4.9).
func (m *Machine) backtrack() uint32 {
	if m.BL == noFrame {
		panic(ErrNoMoreAnswers)
	}
	bl := m.frame(m.BL)

	m.PM = ModeMatch
	m.PC = bl.BP.CodePtr

	if bl.CL != noFrame {
		m.CL = bl.CL
		m.L = m.BL
	}

	m.unwindTrail(bl.BT)

	m.G0 = bl.BG
	m.TR0 = bl.BT

	if bl.BP.Next != nil {
		bl.BP = bl.BP.Next
	} else {
		m.BL = bl.BLChain
	}

	return m.L
}

// unwindTrail resets every cell named on the trail between from (inclusive)
// and the current TR0 (exclusive) back to an unbound, self-referencing
// REF (§4.9, §8 invariant).
func (m *Machine) unwindTrail(from uint32) {
	for addr := from; addr < m.TR0; addr++ {
		cell := uint32(m.Memory.ReadTrail(addr))
		m.Memory.WriteWordStore(cell, refWord(cell))
	}
}
