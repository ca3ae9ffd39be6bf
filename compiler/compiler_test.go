package compiler

import (
	"testing"

	"prozip/vm"
)

func assert(t *testing.T, cond bool, format string, args ...any) {
	t.Helper()
	if !cond {
		t.Fatalf(format, args...)
	}
}

func TestLexerTokenizesBasicClause(t *testing.T) {
	lex := NewLexer("parent(tom, X) :- likes(X, _). % trailing comment\n")
	var got []Kind
	for {
		tok, err := lex.Next()
		assert(t, err == nil, "unexpected lex error: %v", err)
		got = append(got, tok.Kind)
		if tok.Kind == EOF {
			break
		}
	}
	want := []Kind{Atom, LParen, Atom, Comma, Var, RParen, Rule, Atom, LParen, Var, Comma, Var, RParen, Dot, EOF}
	assert(t, len(got) == len(want), "token count: got %d want %d (%v)", len(got), len(want), got)
	for i := range want {
		assert(t, got[i] == want[i], "token %d: got %s want %s", i, got[i], want[i])
	}
}

func TestLexerRejectsUnterminatedBlockComment(t *testing.T) {
	lex := NewLexer("foo. /* never closed")
	for {
		tok, err := lex.Next()
		if err != nil {
			var se *SyntaxError
			ok := false
			if e, is := err.(*SyntaxError); is {
				se = e
				ok = true
			}
			assert(t, ok, "expected *SyntaxError, got %T", err)
			assert(t, se.Message == "unterminated block comment", "got %q", se.Message)
			return
		}
		if tok.Kind == EOF {
			t.Fatalf("expected an unterminated-comment error before EOF")
		}
	}
}

func TestLexerAcceptsEmptyListAtom(t *testing.T) {
	lex := NewLexer("[]")
	tok, err := lex.Next()
	assert(t, err == nil, "unexpected error: %v", err)
	assert(t, tok.Kind == Atom && tok.Text == "[]", "got %v %q", tok.Kind, tok.Text)
}

func TestParserParsesFactAndRule(t *testing.T) {
	p, err := NewParser("parent(tom, bob).\ngrandparent(X, Z) :- parent(X, Y), parent(Y, Z).\n")
	assert(t, err == nil, "unexpected error: %v", err)
	clauses, err := p.ParseProgram()
	assert(t, err == nil, "unexpected parse error: %v", err)
	assert(t, len(clauses) == 2, "got %d clauses", len(clauses))

	fact := clauses[0]
	assert(t, Functor(fact.Head) == "parent" && Arity(fact.Head) == 2, "fact head: %v", fact.Head)
	assert(t, len(fact.Body) == 0, "fact should have no body")

	rule := clauses[1]
	assert(t, Functor(rule.Head) == "grandparent", "rule head functor: %s", Functor(rule.Head))
	assert(t, len(rule.Body) == 2, "rule body length: got %d want 2", len(rule.Body))
	assert(t, Functor(rule.Body[0]) == "parent" && Functor(rule.Body[1]) == "parent", "rule body functors")
}

func TestParserRejectsMissingDot(t *testing.T) {
	p, err := NewParser("foo(bar)")
	assert(t, err == nil, "unexpected error: %v", err)
	_, err = p.ParseOneClause()
	assert(t, err != nil, "expected a parse error for a clause missing its terminating dot")
	var pe *ParseError
	ok := false
	if e, is := err.(*ParseError); is {
		pe = e
		ok = true
	}
	assert(t, ok, "expected *ParseError, got %T", err)
	assert(t, pe.Got.Kind == EOF, "expected EOF to be the offending token, got %s", pe.Got.Kind)
}

func TestParserRejectsBareVariableAsGoal(t *testing.T) {
	p, err := NewParser("X.")
	assert(t, err == nil, "unexpected error: %v", err)
	_, err = p.ParseQuery()
	assert(t, err != nil, "a bare variable is not a valid goal")
}

func TestSymTableAnonymousVarsAreAlwaysFresh(t *testing.T) {
	sym := newSymTable()
	off1, first1 := sym.resolve("_")
	off2, first2 := sym.resolve("_")
	assert(t, first1 && first2, "every _ occurrence must report as a first occurrence")
	assert(t, off1 != off2, "distinct _ occurrences must get distinct offsets, got %d and %d", off1, off2)
}

func TestSymTableNamedVarsShareOneOffset(t *testing.T) {
	sym := newSymTable()
	off1, first1 := sym.resolve("X")
	off2, first2 := sym.resolve("X")
	assert(t, first1 && !first2, "second occurrence of a named variable must not be reported as first")
	assert(t, off1 == off2, "repeat occurrences of X must share one offset")
}

func TestCompileProgramRejectsUndefinedPredicate(t *testing.T) {
	pr := vm.NewProgram(vm.NewMemory())
	c := New(pr)
	err := c.CompileProgram("foo :- bar.\n")
	assert(t, err != nil, "expected a semantic error for a call to an undefined predicate")
	var se *SemanticError
	ok := false
	if e, is := err.(*SemanticError); is {
		se = e
		ok = true
	}
	assert(t, ok, "expected *SemanticError, got %T (%v)", err, err)
	assert(t, se.Name == "bar" && se.Arity == 0, "got %s/%d", se.Name, se.Arity)
}

func TestCompileProgramAllowsForwardReference(t *testing.T) {
	pr := vm.NewProgram(vm.NewMemory())
	c := New(pr)
	err := c.CompileProgram("a :- b.\nb.\n")
	assert(t, err == nil, "a clause may call a predicate defined later in the same program: %v", err)
}

// TestEndToEndGrandparentQuery compiles a small family-relations program
// and a query against it, runs the query to completion on a real
// Machine, and checks the bound answer — exercising emit.go's full
// clause/query bytecode layout together with the vm package's dispatch
// loop.
func TestEndToEndGrandparentQuery(t *testing.T) {
	pr := vm.NewProgram(vm.NewMemory())
	c := New(pr)
	program := "parent(tom, bob).\n" +
		"parent(bob, ann).\n" +
		"grandparent(X, Z) :- parent(X, Y), parent(Y, Z).\n"
	err := c.CompileProgram(program)
	assert(t, err == nil, "program compile error: %v", err)

	queryAddr, vars, err := c.CompileQuery("grandparent(tom, W).\n")
	assert(t, err == nil, "query compile error: %v", err)
	assert(t, len(vars) == 1 && vars[0].Name == "W", "expected one query variable W, got %v", vars)

	m := vm.NewMachine(pr)
	m.Reset(queryAddr)
	ok, err := m.Run()
	assert(t, err == nil, "run error: %v", err)
	assert(t, ok, "expected the query to succeed")

	bindings := m.Answer(vars)
	assert(t, len(bindings) == 1, "got %d bindings", len(bindings))
	got := vm.FormatTerm(bindings[0].Term)
	assert(t, got == "ann", "W: got %q want %q", got, "ann")
}

func TestEndToEndUndefinedQueryPredicateReportsSemanticError(t *testing.T) {
	pr := vm.NewProgram(vm.NewMemory())
	c := New(pr)
	assert(t, c.CompileProgram("foo.\n") == nil, "unexpected program compile error")
	_, _, err := c.CompileQuery("nosuchpredicate(foo).\n")
	assert(t, err != nil, "expected a semantic error")
	_, ok := err.(*SemanticError)
	assert(t, ok, "expected *SemanticError, got %T", err)
}
