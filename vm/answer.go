package vm

import "fmt"

/*
Answer printing (§4.11). Once a query's EXIT completes the outermost
frame, the REPL walks each query variable's cell and renders the term it
is currently bound to (or the fresh name of the variable itself, if
still unbound). Term is a small public tree so callers outside this
package (the REPL) can format answers without reaching into VM
internals directly.
*/

// Term is a read-only snapshot of a walked word-store cell.
type Term interface {
	isTerm()
}

// Atom is a zero-arity functor or a CONS entry rendered as a bare name.
type Atom struct {
	Name string
}

func (Atom) isTerm() {}

// Compound is a STR cell: a functor applied to one or more argument terms.
type Compound struct {
	Name string
	Args []Term
}

func (Compound) isTerm() {}

// Var is an unbound variable, given a fresh display name the first time
// the walk reaches it (§4.11 "fresh variable naming").
type Var struct {
	Name string
}

func (Var) isTerm() {}

// varNamer hands out "_G0", "_G1", ... the first time it sees a given
// store address, and the same name on every later visit within one
// answer — so shared unbound variables print identically.
type varNamer struct {
	names map[uint32]string
	next  int
}

func newVarNamer() *varNamer {
	return &varNamer{names: make(map[uint32]string)}
}

func (n *varNamer) name(addr uint32) string {
	if existing, ok := n.names[addr]; ok {
		return existing
	}
	name := fmt.Sprintf("_G%d", n.next)
	n.names[addr] = name
	n.next++
	return name
}

// WalkTerm renders the cell at addr (following STR/CONS/REF structure)
// into a Term tree (§4.11). A LIS cell is not rendered: it panics like any
// other unexpected tag. names is shared across every variable of one
// answer so repeated references to the same unbound variable agree.
func (m *Machine) WalkTerm(addr uint32, names *varNamer) Term {
	da := m.deref(addr)
	w := m.Memory.ReadWordStore(da)

	switch w.tag() {
	case TagRef:
		return Var{Name: names.name(da)}
	case TagCons:
		sym := m.Program.Pool.Get(int(w.value()))
		return Atom{Name: symbolDisplayName(sym)}
	case TagStr:
		fcell := m.Memory.ReadGlobal(w.value())
		functor, ok := m.Program.Pool.Get(int(fcell.value())).(*FunctorSymbol)
		if !ok {
			panic("STR cell's FUNC entry is not a functor symbol")
		}
		if functor.Arity == 0 {
			return Atom{Name: functor.Name}
		}
		args := make([]Term, functor.Arity)
		for i := 0; i < functor.Arity; i++ {
			args[i] = m.WalkTerm(w.value()+1+uint32(i), names)
		}
		return Compound{Name: functor.Name, Args: args}
	default:
		panic(fmt.Sprintf("cell at %d has no valid term tag: %v", da, w.tag()))
	}
}

func symbolDisplayName(sym Symbol) string {
	if sym == nil {
		return "?"
	}
	return sym.symbolName()
}

// Binding pairs a query variable's source name with the term it resolved
// to, ready for the REPL to print as "name = term" (§4.11, §6.3).
type Binding struct {
	Name string
	Term Term
}

// Answer walks every query variable's cell and returns its binding. vars
// must be given in the same order the REPL wants them printed; one
// varNamer is shared across the whole call so aliased unbound variables
// get one name.
func (m *Machine) Answer(vars []QueryVar) []Binding {
	names := newVarNamer()
	out := make([]Binding, len(vars))
	for i, v := range vars {
		out[i] = Binding{Name: v.Name, Term: m.WalkTerm(v.Addr, names)}
	}
	return out
}

// QueryVar names one top-level variable a query introduced, and the
// local-stack address the compiler assigned it (§6.2 query compilation).
type QueryVar struct {
	Name string
	Addr uint32
}

// FormatTerm renders t the way the REPL prints answers: atoms bare,
// compounds as name(arg, arg, ...). There is no list-sugar case — the
// grammar reserves "." as the clause/query terminator token (§6.1), so no
// parsed functor is ever named ".", and lists are not syntactic sugar in
// this subset (§1 Non-goals).
func FormatTerm(t Term) string {
	switch v := t.(type) {
	case Atom:
		return v.Name
	case Var:
		return v.Name
	case Compound:
		s := v.Name + "("
		for i, a := range v.Args {
			if i > 0 {
				s += ", "
			}
			s += FormatTerm(a)
		}
		return s + ")"
	default:
		return "?"
	}
}
