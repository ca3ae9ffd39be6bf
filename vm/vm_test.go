package vm

import "testing"

// assert mirrors the teacher's table-driven assertion helper: a plain
// condition check with a formatted message, not a third-party matcher
// library.
func assert(t *testing.T, cond bool, format string, args ...any) {
	t.Helper()
	if !cond {
		t.Fatalf(format, args...)
	}
}

func newTestProgram() *Program {
	return NewProgram(NewMemory())
}

func TestWordPackUnpackRoundTrip(t *testing.T) {
	cases := []struct {
		tag   Tag
		value uint32
	}{
		{TagRef, 0},
		{TagStr, 8_000_001},
		{TagCons, 0xFFFFFF},
		{TagFunc, 42},
	}
	for _, c := range cases {
		w := pack(c.tag, c.value)
		assert(t, w.tag() == c.tag, "tag: got %v want %v", w.tag(), c.tag)
		assert(t, w.value() == c.value, "value: got %d want %d", w.value(), c.value)
	}
}

func TestWordValueTruncatesTo24Bits(t *testing.T) {
	w := pack(TagCons, 0x01FFFFFF)
	assert(t, w.value() == 0x00FFFFFF, "got %#x want %#x", w.value(), 0x00FFFFFF)
}

func TestDerefTerminatesOnUnboundSelfRef(t *testing.T) {
	pr := newTestProgram()
	m := NewMachine(pr)
	m.Reset(pr.CodePtr())
	addr := uint32(GlobalStart)
	m.Memory.WriteWordStore(addr, refWord(addr))
	got := m.deref(addr)
	assert(t, got == addr, "deref of unbound self-ref: got %d want %d", got, addr)
}

func TestDerefFollowsChainToBoundValue(t *testing.T) {
	pr := newTestProgram()
	m := NewMachine(pr)
	m.Reset(pr.CodePtr())
	a, b, c := uint32(GlobalStart), uint32(GlobalStart+1), uint32(GlobalStart+2)
	m.Memory.WriteWordStore(c, pack(TagCons, 7))
	m.Memory.WriteWordStore(b, refWord(c))
	m.Memory.WriteWordStore(a, refWord(b))
	got := m.deref(a)
	assert(t, got == c, "deref chain: got %d want %d", got, c)
}

func TestBindThenDerefBothSidesAgree(t *testing.T) {
	pr := newTestProgram()
	m := NewMachine(pr)
	m.Reset(pr.CodePtr())
	a, b := uint32(GlobalStart), uint32(GlobalStart+1)
	m.Memory.WriteWordStore(a, refWord(a))
	m.Memory.WriteWordStore(b, refWord(b))
	m.bind(a, b)
	da, db := m.deref(a), m.deref(b)
	assert(t, da == db, "deref(a)=%d deref(b)=%d, want equal", da, db)
}

func TestBindPanicsWhenNeitherSideIsAVariable(t *testing.T) {
	pr := newTestProgram()
	m := NewMachine(pr)
	m.Reset(pr.CodePtr())
	a, b := uint32(GlobalStart), uint32(GlobalStart+1)
	m.Memory.WriteWordStore(a, pack(TagCons, 1))
	m.Memory.WriteWordStore(b, pack(TagCons, 2))
	defer func() {
		r := recover()
		assert(t, r != nil, "expected bind to panic when neither side is a variable")
	}()
	m.bind(a, b)
}

func TestConstantPoolDeduplicatesFunctorsByValue(t *testing.T) {
	p := NewConstantPool()
	i1 := p.GetFunctorIndex("foo", 2)
	i2 := p.GetFunctorIndex("foo", 2)
	i3 := p.GetFunctorIndex("foo", 1)
	assert(t, i1 == i2, "same (name,arity) should share an index: %d vs %d", i1, i2)
	assert(t, i1 != i3, "different arity must not share an index")
}

func TestConstantPoolInternPredicateReturnsSameObject(t *testing.T) {
	p := NewConstantPool()
	a := p.InternPredicate("append", 3)
	b := p.InternPredicate("append", 3)
	assert(t, a == b, "InternPredicate must return the same object for repeated lookups")
}

func TestMementoRoundTrip(t *testing.T) {
	pr := newTestProgram()
	pr.Pool.GetFunctorIndex("a", 0)
	before := pr.CreateMemento()
	pr.WriteIns(OpConstant, 1)
	pr.Pool.GetFunctorIndex("b", 0)
	assert(t, pr.Pool.Len() == 3, "expected 3 pool entries before rollback, got %d", pr.Pool.Len())
	pr.SetMemento(before)
	assert(t, pr.Pool.Len() == 2, "expected pool rolled back to 2 entries, got %d", pr.Pool.Len())
	assert(t, pr.CodePtr() == before.codeptr, "expected code cursor rolled back")
}

func TestTrailAndBacktrackUnwindsBindings(t *testing.T) {
	pr := newTestProgram()
	m := NewMachine(pr)
	m.Reset(pr.CodePtr())

	m.L = LocalStart
	m.frames[m.L] = &frameInfo{CL: noFrame, BLChain: noFrame, Size: 1}
	m.CL = m.L

	varAddr := uint32(LocalStart)
	m.Memory.WriteLocal(varAddr, refWord(varAddr))

	// Fabricate a choice point at the current state, then bind the
	// variable and confirm backtrack restores it to unbound.
	m.pushChoicePoint(&Clause{CodePtr: pr.CodePtr()})
	m.Memory.WriteWordStore(GlobalStart, pack(TagCons, 99))
	m.bind(varAddr, GlobalStart)
	before := m.getWordAt(varAddr)
	assert(t, before.tag() == TagCons, "expected variable bound to a constant before backtrack")

	m.backtrack()

	after := m.Memory.ReadWordStore(varAddr)
	assert(t, after.tag() == TagRef && after.value() == varAddr, "expected variable restored to unbound self-ref, got tag=%v value=%d", after.tag(), after.value())
}

func TestBacktrackPanicsWithNoChoicePoint(t *testing.T) {
	pr := newTestProgram()
	m := NewMachine(pr)
	m.Reset(pr.CodePtr())
	defer func() {
		r := recover()
		assert(t, r == ErrNoMoreAnswers, "expected ErrNoMoreAnswers, got %v", r)
	}()
	m.backtrack()
}

// compileFact writes the bytecode for a zero-argument fact predicate and
// a query that calls it: enter(0), call(pred), exit.
func compileFact(pr *Program, predName string) uint32 {
	pred := pr.Pool.InternPredicate(predName, 0)
	clauseAddr := pr.WriteIns(OpEnter, 0)
	pr.WriteOp(OpExit)
	pred.Clauses = &Clause{Params: 0, Locals: 0, CodePtr: clauseAddr}

	queryAddr := pr.WriteIns(OpEnter, 0)
	pr.WriteIns(OpCall, uint32(pr.Pool.GetPredicateIndex(pred)))
	pr.WriteOp(OpExit)
	return queryAddr
}

func TestEndToEndFactQuerySucceeds(t *testing.T) {
	pr := newTestProgram()
	queryAddr := compileFact(pr, "true")
	m := NewMachine(pr)
	m.Reset(queryAddr)
	solved, err := m.Run()
	assert(t, err == nil, "unexpected error: %v", err)
	assert(t, solved, "expected the query to succeed")
}

func TestEndToEndUndefinedPredicateFails(t *testing.T) {
	pr := newTestProgram()
	pred := pr.Pool.InternPredicate("missing", 0)
	queryAddr := pr.WriteIns(OpEnter, 0)
	pr.WriteIns(OpCall, uint32(pr.Pool.GetPredicateIndex(pred)))
	pr.WriteOp(OpExit)

	m := NewMachine(pr)
	m.Reset(queryAddr)
	_, err := m.Run()
	assert(t, err != nil, "expected an error")
	_, ok := err.(*ErrUndefinedPredicate)
	assert(t, ok, "expected *ErrUndefinedPredicate, got %v (%T)", err, err)
}

func TestFormatTermRendersNestedCompound(t *testing.T) {
	// This subset has no list syntactic sugar (§1 Non-goals): a cons-style
	// list is an ordinary nested compound and prints as one, e.g. the
	// `append(cons(a,[]), cons(b,[]), X)` result `cons(a, cons(b, []))`.
	nested := Compound{Name: "cons", Args: []Term{
		Atom{Name: "a"},
		Compound{Name: "cons", Args: []Term{Atom{Name: "b"}, Atom{Name: "[]"}}},
	}}
	got := FormatTerm(nested)
	want := "cons(a, cons(b, []))"
	assert(t, got == want, "got %q want %q", got, want)
}

func TestFormatTermRendersCompound(t *testing.T) {
	c := Compound{Name: "foo", Args: []Term{Atom{Name: "a"}, Var{Name: "_G0"}}}
	got := FormatTerm(c)
	want := "foo(a, _G0)"
	assert(t, got == want, "got %q want %q", got, want)
}
