package vm

// unificationContractError is a programmer error: bind requires at least one
// of its two addresses to currently be an unbound variable.
type unificationContractError struct {
	a1, a2 uint32
}

func (e *unificationContractError) Error() string {
	return "bind called with neither side a variable"
}

// deref follows a REF chain to its end (§4.8). It terminates because the
// bind rule never creates a cycle: a REF cell's value only ever points to
// an older or equal address.
func (m *Machine) deref(addr uint32) uint32 {
	for {
		w := m.Memory.ReadWordStore(addr)
		if w.tag() == TagRef && w.value() != addr {
			addr = w.value()
			continue
		}
		return addr
	}
}

// getWordAt dereferences addr and reads the resulting cell.
func (m *Machine) getWordAt(addr uint32) Word {
	return m.Memory.ReadWordStore(m.deref(addr))
}

// currentBG reports the global-stack top recorded by the most recent
// choice point, or false if there is none.
func (m *Machine) currentBG() (uint32, bool) {
	if m.BL == noFrame {
		return 0, false
	}
	return m.frame(m.BL).BG, true
}

// trail pushes addr onto the trail iff it could outlive the next
// backtrack: either it is a global cell older than the last choice point,
// or it lies anywhere in the local stack (§4.8).
//
// A historical version of this rule additionally required local addresses
// to lie below the choice point's own frame; that extra condition is
// wrong, since local-stack cells above a choice point are still live
// within its scope and must still be restored on backtrack into it (§9
// "possibly-buggy behaviors").
func (m *Machine) trail(addr uint32) {
	needsTrail := inLocal(addr)
	if !needsTrail {
		if bg, ok := m.currentBG(); ok && addr < bg {
			needsTrail = true
		}
	}
	if !needsTrail {
		return
	}
	m.Memory.WriteTrail(m.TR0, Word(addr))
	m.TR0++
}

// bind unifies a REF cell with whatever the other address currently holds
// (§4.8). At least one side must dereference to a REF; the tie-break
// binds the younger (higher-address) variable to the older so dereference
// chains never lengthen and trailing decisions stay local.
func (m *Machine) bind(a1, a2 uint32) uint32 {
	d1 := m.deref(a1)
	d2 := m.deref(a2)
	w1 := m.Memory.ReadWordStore(d1)
	w2 := m.Memory.ReadWordStore(d2)
	t1, t2 := w1.tag(), w2.tag()

	if t1 == TagRef && (t2 != TagRef || d2 < d1) {
		m.Memory.WriteWordStore(d1, w2)
		m.trail(d1)
		return d1
	}
	if t2 == TagRef {
		m.Memory.WriteWordStore(d2, w1)
		m.trail(d2)
		return d2
	}
	panic(&unificationContractError{a1: d1, a2: d2})
}

// unifiable runs Robinson unification iteratively over the PDL worklist
// (§4.8). It returns the list of addresses bound by the attempt (useful
// for diagnostics) and whether unification succeeded. On failure, any
// bindings already made are left in place — the caller backtracks, and
// trailing-driven unwind restores them.
func (m *Machine) unifiable(a1, a2 uint32) ([]uint32, bool) {
	var bound []uint32
	m.pushPDL(a1, a2)
	for m.PDLptr > PDLStart {
		x, y := m.popPDL()
		dx, dy := m.deref(x), m.deref(y)
		wx, wy := m.Memory.ReadWordStore(dx), m.Memory.ReadWordStore(dy)
		tx, ty := wx.tag(), wy.tag()

		switch {
		case tx == TagRef || ty == TagRef:
			bound = append(bound, m.bind(dx, dy))
		case tx == TagCons && ty == TagCons:
			if wx.value() != wy.value() {
				return bound, false
			}
		case tx == TagLis && ty == TagLis:
			hx, tlx := wx.value(), wx.value()+1
			hy, tly := wy.value(), wy.value()+1
			m.pushPDL(hx, hy)
			m.pushPDL(tlx, tly)
		case tx == TagStr && ty == TagStr:
			fx := m.Memory.ReadGlobal(wx.value())
			fy := m.Memory.ReadGlobal(wy.value())
			if fx.tag() != TagFunc || fy.tag() != TagFunc || fx.value() != fy.value() {
				return bound, false
			}
			functor, ok := m.Program.Pool.Get(int(fx.value())).(*FunctorSymbol)
			if !ok {
				panic("STR cell's FUNC entry is not a functor symbol")
			}
			for i := 0; i < functor.Arity; i++ {
				m.pushPDL(wx.value()+1+uint32(i), wy.value()+1+uint32(i))
			}
		default:
			return bound, false
		}
	}
	return bound, true
}
