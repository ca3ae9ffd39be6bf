package compiler

import (
	"fmt"

	"prozip/vm"
)

// SemanticError reports a goal that calls a predicate with no defined
// clauses (§7 "Semantic error"). It is fatal to the compilation unit
// that triggered it (no bytecode is kept for it — see repl.go's memento
// rollback).
type SemanticError struct {
	Name  string
	Arity int
}

func (e *SemanticError) Error() string {
	return fmt.Sprintf("No clauses defined for predicate %s/%d", e.Name, e.Arity)
}

// Compiler emits bytecode for parsed clauses and queries into a shared
// *vm.Program (§4.3, §6.2). One Compiler is built over one Program for
// the lifetime of a REPL session so the constant pool and predicate
// table persist across queries.
type Compiler struct {
	pr *vm.Program
}

// New returns a Compiler that emits into pr.
func New(pr *vm.Program) *Compiler {
	return &Compiler{pr: pr}
}

// predCall records one CALL site's target, so the caller can check every
// predicate referenced in one compilation unit was actually defined.
type predCall struct {
	pred *vm.PredicateSymbol
}

// CompileProgram parses and emits every clause in src (§6.1 "program"),
// then checks that every predicate any clause called has at least one
// clause defined anywhere in the program — clauses may forward-reference
// predicates defined later in the same file.
func (c *Compiler) CompileProgram(src string) error {
	p, err := NewParser(src)
	if err != nil {
		return err
	}
	clauses, err := p.ParseProgram()
	if err != nil {
		return err
	}

	var calls []predCall
	for _, cl := range clauses {
		sites, err := c.emitClause(cl)
		if err != nil {
			return err
		}
		calls = append(calls, sites...)
	}
	return checkUndefined(calls)
}

// CompileQuery parses and emits a single query (§6.1 "query") into a
// fresh code region appended after the program, returning the address to
// reset the machine to and the query's named variables in the order
// their FIRSTVAR was emitted (§4.11).
//
// A query always runs from a freshly Reset machine, whose initial target
// frame is deterministically vm.LocalStart (Reset starts with no source
// frame, so pushTargetFrame has nowhere else to put it) — so query
// variable offsets can be converted to absolute addresses here, at
// compile time, rather than threaded through at run time.
func (c *Compiler) CompileQuery(src string) (queryAddr uint32, vars []vm.QueryVar, err error) {
	p, err := NewParser(src)
	if err != nil {
		return 0, nil, err
	}
	q, err := p.ParseQuery()
	if err != nil {
		return 0, nil, err
	}

	size := countGoals(q.Goals)
	queryAddr = c.pr.WriteIns(vm.OpEnter, uint32(size))

	sym := newSymTable()
	var calls []predCall
	for _, g := range q.Goals {
		for _, arg := range Args(g) {
			emitArgTerm(c.pr, sym, arg, func(name string, off uint32) {
				vars = append(vars, vm.QueryVar{Name: name, Addr: vm.LocalStart + off})
			})
		}
		pred := c.pr.Pool.InternPredicate(Functor(g), Arity(g))
		calls = append(calls, predCall{pred: pred})
		c.pr.WriteIns(vm.OpCall, uint32(c.pr.Pool.GetPredicateIndex(pred)))
	}
	c.pr.WriteOp(vm.OpExit)

	if err := checkUndefined(calls); err != nil {
		return 0, nil, err
	}
	return queryAddr, vars, nil
}

// emitClause compiles one clause (§6.2): head-argument instructions in
// MATCH context, then ENTER, then each body goal's argument instructions
// in ARG/COPY context followed by CALL, then EXIT. The opcodes emitted
// for head and body arguments are identical (emitArgTerm does not know
// which role it is serving) — only the processor mode active when the
// dispatch loop later reaches them, itself purely a function of position
// relative to ENTER, tells them apart (§4.10's "polymorphic reuse").
func (c *Compiler) emitClause(ast *ClauseAST) ([]predCall, error) {
	headName := Functor(ast.Head)
	headArity := Arity(ast.Head)
	pred := c.pr.Pool.InternPredicate(headName, headArity)

	size := countGoals(append([]Term{ast.Head}, ast.Body...))

	headStart := c.pr.CodePtr()
	sym := newSymTable()
	for _, arg := range Args(ast.Head) {
		emitArgTerm(c.pr, sym, arg, nil)
	}
	c.pr.WriteIns(vm.OpEnter, uint32(size))

	var calls []predCall
	for _, g := range ast.Body {
		for _, arg := range Args(g) {
			emitArgTerm(c.pr, sym, arg, nil)
		}
		gpred := c.pr.Pool.InternPredicate(Functor(g), Arity(g))
		calls = append(calls, predCall{pred: gpred})
		c.pr.WriteIns(vm.OpCall, uint32(c.pr.Pool.GetPredicateIndex(gpred)))
	}
	c.pr.WriteOp(vm.OpExit)

	locals := size - countGoals([]Term{ast.Head})
	clause := &vm.Clause{Params: headArity, Locals: locals, CodePtr: headStart}
	appendClause(pred, clause)
	return calls, nil
}

// appendClause adds clause to the end of pred's clause list (§4.3
// "mutable head of its clause list" — clauses are tried in the order
// they were defined).
func appendClause(pred *vm.PredicateSymbol, clause *vm.Clause) {
	if pred.Clauses == nil {
		pred.Clauses = clause
		return
	}
	last := pred.Clauses
	for last.Next != nil {
		last = last.Next
	}
	last.Next = clause
}

func checkUndefined(calls []predCall) error {
	seen := make(map[*vm.PredicateSymbol]bool)
	for _, call := range calls {
		if seen[call.pred] {
			continue
		}
		seen[call.pred] = true
		if call.pred.Clauses == nil {
			return &SemanticError{Name: call.pred.Name, Arity: call.pred.Arity}
		}
	}
	return nil
}

// countGoals pre-scans a set of structures purely to count the distinct
// variables they introduce, so ENTER's size operand can be written
// before the real emission pass assigns FIRSTVAR/VAR per occurrence.
func countGoals(goals []Term) int {
	sym := newSymTable()
	for _, g := range goals {
		for _, arg := range Args(g) {
			countTerm(sym, arg)
		}
	}
	return sym.locals()
}

func countTerm(sym *symTable, t Term) {
	switch v := t.(type) {
	case TVar:
		sym.resolve(v.Name)
	case TCompound:
		for _, a := range v.Args {
			countTerm(sym, a)
		}
	}
}

// emitArgTerm emits the instructions for one argument term: CONSTANT for
// an atom, FIRSTVAR/VAR for a variable (first occurrence vs. repeat),
// FUNCTOR...POP for a nested compound. onFirstVar, if non-nil, is called
// with (name, offset) the first time a named (non-"_") variable is seen —
// used by CompileQuery to build the answer side-table (§4.11).
func emitArgTerm(pr *vm.Program, sym *symTable, t Term, onFirstVar func(name string, offset uint32)) {
	switch v := t.(type) {
	case TAtom:
		idx := pr.Pool.GetFunctorIndex(v.Name, 0)
		pr.WriteIns(vm.OpConstant, uint32(idx))
	case TVar:
		off, first := sym.resolve(v.Name)
		if first {
			pr.WriteIns(vm.OpFirstVar, off)
			if onFirstVar != nil && v.Name != "_" {
				onFirstVar(v.Name, off)
			}
		} else {
			pr.WriteIns(vm.OpVar, off)
		}
	case TCompound:
		idx := pr.Pool.GetFunctorIndex(v.Functor, len(v.Args))
		pr.WriteIns(vm.OpFunctor, uint32(idx))
		for _, arg := range v.Args {
			emitArgTerm(pr, sym, arg, onFirstVar)
		}
		pr.WriteOp(vm.OpPop)
	}
}
