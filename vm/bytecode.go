package vm

import "fmt"

/*
Bytecode encoding (§4.4). An operator as dispatched by the fetch/decode loop
is `mode | opcode`: the processor mode occupies the high 2 bits of the
operator byte, the opcode the low 6. The code area itself stores opcodes
alone — the machine ORs in its current mode at fetch time — so one clause
body is reused polymorphically in MATCH (head) and ARG/COPY (body)
contexts.
*/

// Opcode is the low-6-bit instruction selector stored in the code area.
type Opcode byte

const (
	OpPop      Opcode = 1
	OpVar      Opcode = 4
	OpFirstVar Opcode = 5
	OpFunctor  Opcode = 9
	OpConstant Opcode = 11
	OpEnter    Opcode = 12
	OpCall     Opcode = 17
	OpExit     Opcode = 25
)

func (op Opcode) String() string {
	switch op {
	case OpPop:
		return "pop"
	case OpVar:
		return "var"
	case OpFirstVar:
		return "firstvar"
	case OpFunctor:
		return "functor"
	case OpConstant:
		return "constant"
	case OpEnter:
		return "enter"
	case OpCall:
		return "call"
	case OpExit:
		return "exit"
	default:
		return fmt.Sprintf("?opcode(%d)?", byte(op))
	}
}

// HasOperand reports whether op is followed by one operand cell in the
// code area — exported for external disassembly (§3 "-dump-bytecode").
func (op Opcode) HasOperand() bool { return op.hasOperand() }

// hasOperand reports whether op is followed by one operand cell in the
// code area.
func (op Opcode) hasOperand() bool {
	switch op {
	case OpFunctor, OpConstant, OpFirstVar, OpVar, OpCall, OpEnter:
		return true
	case OpPop, OpExit:
		return false
	default:
		panic(fmt.Sprintf("illegal opcode %d", byte(op)))
	}
}

// Mode is the machine's three-valued processor mode (§4.5, GLOSSARY). It
// occupies the high 2 bits of a dispatched operator.
type Mode byte

const (
	ModeMatch Mode = 0x40
	ModeArg   Mode = 0x80
	ModeCopy  Mode = 0xC0
)

func (m Mode) String() string {
	switch m {
	case ModeMatch:
		return "match"
	case ModeArg:
		return "arg"
	case ModeCopy:
		return "copy"
	default:
		return fmt.Sprintf("?mode(%#x)?", byte(m))
	}
}

// Operator is a fetched `mode | opcode` pair as dispatch sees it.
type Operator byte

// operator ORs a mode into an opcode the way fetch does.
func operator(mode Mode, op Opcode) Operator {
	return Operator(byte(mode) | byte(op))
}

func (o Operator) mode() Mode     { return Mode(o & 0xC0) }
func (o Operator) opcode() Opcode { return Opcode(o & 0x3F) }

// Program owns the append-only code area write cursor and the constant
// pool that clauses reference (§4.3). Both persist across queries; a
// Memento lets the REPL roll the code/pool back to the program-only state
// after each query (§5 "restores bytecode/constant-pool state").
type Program struct {
	Memory  *Memory
	Pool    *ConstantPool
	codeptr uint32
}

// NewProgram returns a Program whose code cursor starts at the heap area's
// first address.
func NewProgram(mem *Memory) *Program {
	return &Program{
		Memory:  mem,
		Pool:    NewConstantPool(),
		codeptr: HeapStart,
	}
}

// CodePtr is the address the next WriteIns*/WriteOp call will use.
func (pr *Program) CodePtr() uint32 { return pr.codeptr }

// WriteIns writes opcode then operand to the code area, advancing the
// cursor by 2 cells. Valid only for opcodes that take an operand.
func (pr *Program) WriteIns(op Opcode, operand uint32) uint32 {
	if !op.hasOperand() {
		panic(fmt.Sprintf("%s does not take an operand", op))
	}
	at := pr.codeptr
	pr.Memory.WriteHeap(pr.codeptr, Word(byte(op)))
	pr.Memory.WriteHeap(pr.codeptr+1, Word(operand))
	pr.codeptr += 2
	return at
}

// WriteOp writes a bare opcode (POP, EXIT) to the code area, advancing the
// cursor by 1 cell.
func (pr *Program) WriteOp(op Opcode) uint32 {
	if op.hasOperand() {
		panic(fmt.Sprintf("%s requires an operand", op))
	}
	at := pr.codeptr
	pr.Memory.WriteHeap(pr.codeptr, Word(byte(op)))
	pr.codeptr++
	return at
}

// FetchOpcode reads the opcode cell at addr (without advancing any
// register — the dispatch loop owns PC).
func (pr *Program) FetchOpcode(addr uint32) Opcode {
	return Opcode(byte(pr.Memory.ReadHeap(addr)))
}

// FetchOperand reads the raw operand cell following an opcode at addr.
func (pr *Program) FetchOperand(addr uint32) uint32 {
	return uint32(pr.Memory.ReadHeap(addr))
}

// CreateMemento snapshots the code cursor and pool length for O(1)
// rollback (§4.3).
func (pr *Program) CreateMemento() Memento {
	return Memento{poolLen: pr.Pool.Len(), codeptr: pr.codeptr}
}

// SetMemento restores the code cursor and truncates the pool back to a
// previously captured Memento.
func (pr *Program) SetMemento(m Memento) {
	pr.codeptr = m.codeptr
	if m.poolLen < len(pr.Pool.entries) {
		for _, sym := range pr.Pool.entries[m.poolLen:] {
			switch s := sym.(type) {
			case *FunctorSymbol:
				delete(pr.Pool.functors, functorKey{name: s.Name, arity: s.Arity})
			case *PredicateSymbol:
				delete(pr.Pool.functors, functorKey{name: s.Name, arity: s.Arity})
				delete(pr.Pool.preds, s)
			}
		}
		pr.Pool.entries = pr.Pool.entries[:m.poolLen]
	}
}
