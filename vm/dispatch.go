package vm

import "fmt"

/*
Step fetches one operator (mode | opcode), dispatches it per §4.10, and
executes it. The dispatch table below matches spec section 4.10 row for
row; mode is always the machine's current PM, so pairs like (MATCH, COPY)
that share a body (POP; FUNCTOR/CONSTANT under ARG and COPY) are written
as a single case with two patterns rather than duplicated logic.

Any operator combination the table does not list is a bytecode invariant
violation (§7): malformed cells, an out-of-range opcode, or a
mode/opcode pairing the compiler never emits. These are programmer
errors, not user errors, and abort by panicking; Run/Redo recover once at
the boundary and turn the panic into a returned error.
*/

// Step executes exactly one instruction. It returns true iff this step was
// an EXIT that completed the outermost query frame — the one point where
// control returns to the caller to print an answer (§4.11).
func (m *Machine) Step() bool {
	op := m.Program.FetchOpcode(m.PC)
	m.PC++
	var operand uint32
	if op.hasOperand() {
		operand = m.Program.FetchOperand(m.PC)
		m.PC++
	}

	switch operator(m.PM, op) {
	case operator(ModeMatch, OpFunctor):
		m.execMatchFunctor(operand)
	case operator(ModeMatch, OpConstant):
		m.execMatchConstant(operand)
	case operator(ModeMatch, OpFirstVar):
		m.execMatchFirstVar(operand)
	case operator(ModeMatch, OpVar):
		m.execMatchVar(operand)
	case operator(ModeMatch, OpEnter):
		m.execMatchEnter(operand)
	case operator(ModeMatch, OpPop), operator(ModeCopy, OpPop):
		m.execPop()
	case operator(ModeArg, OpFunctor), operator(ModeCopy, OpFunctor):
		m.execArgCopyFunctor(operand)
	case operator(ModeArg, OpConstant), operator(ModeCopy, OpConstant):
		m.execArgCopyConstant(operand)
	case operator(ModeCopy, OpFirstVar):
		m.execCopyFirstVar(operand)
	case operator(ModeCopy, OpVar):
		m.execCopyVar(operand)
	case operator(ModeArg, OpFirstVar):
		m.execArgFirstVar(operand)
	case operator(ModeArg, OpVar):
		m.execArgVar(operand)
	case operator(ModeArg, OpCall):
		m.execArgCall(operand)
	case operator(ModeArg, OpExit):
		return m.execArgExit()
	default:
		panic(fmt.Sprintf("illegal operator: mode=%v opcode=%s", m.PM, op))
	}
	return false
}

// Run steps the machine until it produces an answer (true) or exhausts
// backtracking/hits a fatal error, recovering the panics that unify,
// bind, backtrack and memory bounds raise into a returned error (§7).
func (m *Machine) Run() (solved bool, err error) {
	defer m.recoverInto(&err)
	for !m.Step() {
	}
	return true, nil
}

// Redo seeks the next answer: it backtracks once, then resumes stepping.
// A returned ErrNoMoreAnswers means backtracking is exhausted (§4.9).
func (m *Machine) Redo() (solved bool, err error) {
	defer m.recoverInto(&err)
	m.A = m.backtrack()
	for !m.Step() {
	}
	return true, nil
}

func (m *Machine) recoverInto(err *error) {
	if r := recover(); r != nil {
		if e, ok := r.(error); ok {
			*err = e
		} else {
			*err = fmt.Errorf("%v", r)
		}
	}
}

// allocSTR pushes a fresh compound term for functorIndex onto the global
// stack: a FUNC cell followed by one fresh unbound variable per argument
// (§3 "STR"). It returns the STR word referencing it and its address.
func (m *Machine) allocSTR(functorIndex uint32) (Word, uint32) {
	functor, ok := m.Program.Pool.Get(int(functorIndex)).(*FunctorSymbol)
	if !ok {
		panic(fmt.Sprintf("pool index %d is not a functor symbol", functorIndex))
	}
	strAddr := m.G0
	m.Memory.WriteGlobal(strAddr, pack(TagFunc, functorIndex))
	for i := 0; i < functor.Arity; i++ {
		argAddr := strAddr + 1 + uint32(i)
		m.Memory.WriteGlobal(argAddr, refWord(argAddr))
	}
	m.G0 += uint32(1 + functor.Arity)
	return pack(TagStr, strAddr), strAddr
}

// MATCH | FUNCTOR(f)
func (m *Machine) execMatchFunctor(f uint32) {
	da := m.deref(m.A)
	w := m.Memory.ReadWordStore(da)
	switch w.tag() {
	case TagRef:
		strWord, strAddr := m.allocSTR(f)
		m.Memory.WriteWordStore(da, strWord)
		m.trail(da)
		m.pushScratch(m.A+1, ModeMatch)
		m.PM = ModeCopy
		m.A = strAddr + 1
	case TagStr:
		fcell := m.Memory.ReadGlobal(w.value())
		if fcell.tag() != TagFunc || fcell.value() != f {
			m.A = m.backtrack()
			return
		}
		m.pushScratch(m.A+1, m.PM)
		m.A = w.value() + 1
	default:
		m.A = m.backtrack()
	}
}

// MATCH | CONSTANT(c)
func (m *Machine) execMatchConstant(c uint32) {
	da := m.deref(m.A)
	w := m.Memory.ReadWordStore(da)
	switch {
	case w.tag() == TagRef:
		m.Memory.WriteWordStore(da, pack(TagCons, c))
		m.trail(da)
	case w.tag() == TagCons && w.value() == c:
		// already equal; nothing to do
	default:
		m.A = m.backtrack()
		return
	}
	m.A++
}

// MATCH | FIRSTVAR(off)
func (m *Machine) execMatchFirstVar(off uint32) {
	m.Memory.WriteLocal(m.L+off, m.Memory.ReadWordStore(m.A))
	m.A++
}

// MATCH | VAR(off)
func (m *Machine) execMatchVar(off uint32) {
	if _, ok := m.unifiable(m.L+off, m.A); !ok {
		m.A = m.backtrack()
		return
	}
	m.A++
}

// MATCH | ENTER(size)
func (m *Machine) execMatchEnter(size uint32) {
	m.pushSourceFrame(int(size))
	m.PM = ModeArg
	m.A = m.pushTargetFrame()
}

// (MATCH|COPY) | POP
func (m *Machine) execPop() {
	addr, mode := m.popScratch()
	m.A = addr
	m.PM = mode
}

// (ARG|COPY) | FUNCTOR(f)
func (m *Machine) execArgCopyFunctor(f uint32) {
	strWord, strAddr := m.allocSTR(f)
	m.Memory.WriteWordStore(m.A, strWord)
	m.pushScratch(m.A+1, m.PM)
	m.PM = ModeCopy
	m.A = strAddr + 1
}

// (ARG|COPY) | CONSTANT(c)
func (m *Machine) execArgCopyConstant(c uint32) {
	m.Memory.WriteWordStore(m.A, pack(TagCons, c))
	m.A++
}

// COPY | FIRSTVAR(off)
func (m *Machine) execCopyFirstVar(off uint32) {
	m.Memory.WriteLocal(m.resolveVarAddr(off), m.Memory.ReadWordStore(m.A))
	m.A++
}

// COPY | VAR(off)
func (m *Machine) execCopyVar(off uint32) {
	m.bind(m.resolveVarAddr(off), m.A)
	m.A++
}

// ARG | FIRSTVAR(off)
func (m *Machine) execArgFirstVar(off uint32) {
	target := m.CL + off
	ref := refWord(target)
	m.Memory.WriteLocal(target, ref)
	m.Memory.WriteWordStore(m.A, ref)
	m.A++
}

// ARG | VAR(off)
func (m *Machine) execArgVar(off uint32) {
	m.Memory.WriteWordStore(m.A, m.Memory.ReadLocal(m.CL+off))
	m.A++
}

// ARG | CALL(pred)
func (m *Machine) execArgCall(predIndex uint32) {
	pred, ok := m.Program.Pool.Get(int(predIndex)).(*PredicateSymbol)
	if !ok {
		panic(fmt.Sprintf("pool index %d is not a predicate symbol", predIndex))
	}
	clause := pred.Clauses
	if clause == nil {
		panic(&ErrUndefinedPredicate{Name: pred.Name, Arity: pred.Arity})
	}
	if clause.Next != nil {
		m.pushChoicePoint(clause.Next)
	}
	m.PM = ModeMatch
	f := m.frame(m.L)
	f.CP = m.PC
	m.PC = clause.CodePtr
	m.A = m.L
}

// ARG | EXIT
func (m *Machine) execArgExit() bool {
	if done := m.popSourceFrame(); done {
		return true
	}
	m.A = m.pushTargetFrame()
	return false
}
