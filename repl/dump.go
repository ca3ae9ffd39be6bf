package repl

import (
	"fmt"
	"io"

	"prozip/vm"
)

// DumpBytecode disassembles every predicate's clauses in pr's constant
// pool to w, in compiled order (§3 "-dump-bytecode CLI flag"; §6.2
// bytecode shape). Purely diagnostic — it reads the pool and code area
// and executes nothing.
func DumpBytecode(pr *vm.Program, w io.Writer) {
	for i := 1; i < pr.Pool.Len(); i++ {
		pred, ok := pr.Pool.Get(i).(*vm.PredicateSymbol)
		if !ok {
			continue
		}
		fmt.Fprintf(w, "%s/%d:\n", pred.Name, pred.Arity)
		n := 0
		for clause := pred.Clauses; clause != nil; clause = clause.Next {
			fmt.Fprintf(w, "  clause %d (locals=%d):\n", n, clause.Locals)
			dumpClause(pr, clause.CodePtr, w)
			n++
		}
	}
}

// dumpClause disassembles one clause's instruction stream starting at
// addr, stopping after the EXIT that ends it.
func dumpClause(pr *vm.Program, addr uint32, w io.Writer) {
	for {
		op := pr.FetchOpcode(addr)
		if !op.HasOperand() {
			fmt.Fprintf(w, "    %6d  %s\n", addr, op)
			if op == vm.OpExit {
				return
			}
			addr++
			continue
		}
		operand := pr.FetchOperand(addr + 1)
		fmt.Fprintf(w, "    %6d  %-10s %s\n", addr, op, describeOperand(pr, op, operand))
		addr += 2
	}
}

func describeOperand(pr *vm.Program, op vm.Opcode, operand uint32) string {
	switch op {
	case vm.OpFunctor, vm.OpConstant:
		if sym := pr.Pool.Get(int(operand)); sym != nil {
			return fmt.Sprintf("%d (%s)", operand, symbolText(sym))
		}
		return fmt.Sprintf("%d", operand)
	case vm.OpCall:
		if pred, ok := pr.Pool.Get(int(operand)).(*vm.PredicateSymbol); ok {
			return fmt.Sprintf("%d (%s/%d)", operand, pred.Name, pred.Arity)
		}
		return fmt.Sprintf("%d", operand)
	default:
		return fmt.Sprintf("%d", operand)
	}
}

func symbolText(sym vm.Symbol) string {
	switch s := sym.(type) {
	case *vm.FunctorSymbol:
		return fmt.Sprintf("%s/%d", s.Name, s.Arity)
	case *vm.PredicateSymbol:
		return fmt.Sprintf("%s/%d", s.Name, s.Arity)
	default:
		return "?"
	}
}
