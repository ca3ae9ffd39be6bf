package vm

// Symbol is the closed tagged variant of constant-pool entries: either a
// FunctorSymbol or a PredicateSymbol (§3, §9 "Symbol hierarchy is a closed
// tagged variant").
type Symbol interface {
	symbolName() string
	symbolArity() int
}

// FunctorSymbol names a compound functor or, at arity 0, an atom. Two
// FunctorSymbols with equal (Name, Arity) must resolve to the same pool
// index (§3).
type FunctorSymbol struct {
	Name  string
	Arity int
}

func (f *FunctorSymbol) symbolName() string { return f.Name }
func (f *FunctorSymbol) symbolArity() int   { return f.Arity }

// Clause is one entry in a predicate's clause list.
type Clause struct {
	Params  int    // arity of the head literal
	Locals  int    // distinct local variables in the clause body
	CodePtr uint32 // offset into the code area where the clause begins
	Next    *Clause
}

// PredicateSymbol names a callable predicate and owns the mutable head of
// its clause list. Unlike FunctorSymbol, pool lookups for a
// PredicateSymbol compare by identity, not by (Name, Arity) — it is
// InternPredicate that hands back the same *PredicateSymbol object for
// repeated occurrences of a given name/arity (§4.3).
type PredicateSymbol struct {
	Name    string
	Arity   int
	Clauses *Clause
}

func (p *PredicateSymbol) symbolName() string { return p.Name }
func (p *PredicateSymbol) symbolArity() int   { return p.Arity }

type functorKey struct {
	name  string
	arity int
}

// ConstantPool is the append-only, distinct-entries pool of §3/§4.3. Index
// 0 is reserved and never returned by GetFunctorIndex, InternPredicate or
// GetPredicateIndex.
type ConstantPool struct {
	entries  []Symbol
	functors map[functorKey]int
	preds    map[*PredicateSymbol]int
}

// NewConstantPool returns an empty pool with its reserved index 0 entry
// already in place.
func NewConstantPool() *ConstantPool {
	return &ConstantPool{
		entries:  []Symbol{nil}, // index 0 reserved
		functors: make(map[functorKey]int),
		preds:    make(map[*PredicateSymbol]int),
	}
}

// Len is the number of live entries, including the reserved slot at index
// 0 (so it always reports at least 1).
func (p *ConstantPool) Len() int {
	return len(p.entries)
}

// Get returns the entry at index, or nil if index is out of range or 0.
func (p *ConstantPool) Get(index int) Symbol {
	if index <= 0 || index >= len(p.entries) {
		return nil
	}
	return p.entries[index]
}

// GetFunctorIndex returns the existing index for a functor symbol
// structurally equal to (name, arity), appending a new entry if none
// exists.
func (p *ConstantPool) GetFunctorIndex(name string, arity int) int {
	key := functorKey{name: name, arity: arity}
	if idx, ok := p.functors[key]; ok {
		return idx
	}
	idx := len(p.entries)
	p.entries = append(p.entries, &FunctorSymbol{Name: name, Arity: arity})
	p.functors[key] = idx
	return idx
}

// InternPredicate returns the existing *PredicateSymbol for (name, arity)
// from the pool's own bookkeeping, or creates and registers one. This
// gives the front end the single shared object identity
// GetPredicateIndex's identity comparison requires.
func (p *ConstantPool) InternPredicate(name string, arity int) *PredicateSymbol {
	key := functorKey{name: name, arity: arity}
	if idx, ok := p.functors[key]; ok {
		if pred, ok := p.entries[idx].(*PredicateSymbol); ok {
			return pred
		}
	}
	pred := &PredicateSymbol{Name: name, Arity: arity}
	idx := len(p.entries)
	p.entries = append(p.entries, pred)
	p.functors[key] = idx
	p.preds[pred] = idx
	return pred
}

// GetPredicateIndex returns the pool index of pred, appending it if this
// exact object has not been registered yet (identity comparison, §4.3).
func (p *ConstantPool) GetPredicateIndex(pred *PredicateSymbol) int {
	if idx, ok := p.preds[pred]; ok {
		return idx
	}
	idx := len(p.entries)
	p.entries = append(p.entries, pred)
	p.preds[pred] = idx
	return idx
}

// Memento captures enough state to roll the pool and code area back to a
// prior point in O(1) (§4.3): the pool length and the code-area write
// cursor.
type Memento struct {
	poolLen int
	codeptr uint32
}
