package vm

import "fmt"

/*
Error surface (§7). This package only ever fails in one of three shapes:

  - a bounds violation (boundsError, memory.go) — an address fell outside
    the memory area that was about to be read or written;
  - a unification contract violation (unificationContractError, unify.go)
    — bind was asked to unify two already-bound cells;
  - backtracking exhaustion (ErrNoMoreAnswers, backtrack.go) — no choice
    point remains to retry.

All three are raised by panic and recovered exactly once, at Run/Redo's
boundary, into a returned error (dispatch.go). Anything else that panics
out of this package (fmt.Sprintf'd invariant violations in dispatch.go
and machine.go) is a bytecode or compiler defect, not a condition the
REPL is expected to handle gracefully.

ErrUndefinedPredicate is the one additional runtime shape: the compiler
is expected to reject a query or clause body that calls an undefined
predicate before it ever reaches the machine (§6 semantic checking), so
seeing this at runtime means that check was bypassed.
*/

// ErrUndefinedPredicate reports a CALL to a predicate with no clauses.
type ErrUndefinedPredicate struct {
	Name  string
	Arity int
}

func (e *ErrUndefinedPredicate) Error() string {
	return fmt.Sprintf("undefined predicate %s/%d", e.Name, e.Arity)
}
