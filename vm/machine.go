package vm

import "fmt"

// noFrame is the null frame sentinel: every valid local-stack address fits
// in [LocalStart, LocalEnd], well below the max uint32.
const noFrame uint32 = 0xFFFFFFFF

// frameInfo holds the saved-machine-state fields of an activation frame
// (§3 "Activation frame"). Frames are modeled as plain local-stack
// addresses (the Machine's L/CL/BL registers); frameInfo is the side table
// keyed by that address rather than extra cells packed into the backing
// array, per §9's guidance to use "interior indices into a slab of frame
// records keyed by local-stack address" and avoid ambient pointer cycles.
type frameInfo struct {
	Size int // params + locals

	// Meaningful when this frame is a source frame.
	CP uint32 // continuation program counter
	CL uint32 // continuation source frame, or noFrame

	// Meaningful when this frame is a choice point.
	BP      *Clause // backtrack clause pointer
	BG      uint32  // backtrack global-stack top
	BLChain uint32  // next-older choice point (prior BL), or noFrame
	BT      uint32  // backtrack trail top
}

// Machine holds every register and piece of mutable state the abstract
// machine of §4 needs: the tagged word memory, the compiled program, and
// the registers of §4.5.
type Machine struct {
	Memory  *Memory
	Program *Program

	PM  Mode
	PC  uint32
	L   uint32 // target frame pointer
	CL  uint32 // source frame pointer
	BL  uint32 // choice-point pointer (backtrack frame), noFrame if none
	G0  uint32 // global-stack top
	TR0 uint32 // trail top

	PDLptr uint32
	SPptr  uint32

	// A is the "current address register" the dispatch loop advances as
	// it walks a compound term in MATCH/ARG/COPY mode (§4.10).
	A uint32

	frames map[uint32]*frameInfo
}

// NewMachine wires a Machine to an already-compiled Program.
func NewMachine(pr *Program) *Machine {
	m := &Machine{
		Memory:  pr.Memory,
		Program: pr,
		frames:  make(map[uint32]*frameInfo),
	}
	return m
}

// Reset prepares the machine to run the query whose bytecode starts at
// queryAddr (§4.5).
func (m *Machine) Reset(queryAddr uint32) {
	m.PM = ModeMatch
	m.PC = queryAddr
	m.L = noFrame
	m.CL = noFrame
	m.BL = noFrame
	m.G0 = GlobalStart
	m.TR0 = TrailStart
	m.PDLptr = PDLStart
	m.SPptr = ScratchpadStart
	m.frames = make(map[uint32]*frameInfo)
	m.pushTargetFrame()
	m.A = LocalStart
}

func (m *Machine) frame(addr uint32) *frameInfo {
	f, ok := m.frames[addr]
	if !ok {
		panic(fmt.Sprintf("no frame recorded at local address %d", addr))
	}
	return f
}

// pushTargetFrame allocates a new frame at the smallest local-stack
// address not occupied by a live frame (§4.6) and makes it the target
// frame L.
//
// A historical version of this computation used a switch with
// fall-through and silently dropped the choice-point offset whenever both
// the CL and BL branches matched; that version is wrong. The frame must
// start above whichever of CL or BL currently reaches higher, hence the
// explicit if/else below (§9 "possibly-buggy behaviors").
func (m *Machine) pushTargetFrame() uint32 {
	var addr uint32
	if m.CL == noFrame {
		addr = LocalStart
	} else {
		clTop := m.CL + frameSpan(m.frame(m.CL).Size)
		if m.BL != noFrame {
			blTop := m.BL + frameSpan(m.frame(m.BL).Size)
			if blTop > clTop {
				addr = blTop
			} else {
				addr = clTop
			}
		} else {
			addr = clTop
		}
	}
	m.frames[addr] = &frameInfo{CL: noFrame, BLChain: noFrame}
	m.L = addr
	return addr
}

// frameSpan is how many local-stack addresses a frame of the given
// variable count occupies. A zero-variable clause still reserves one
// cell, so two frames never start at the same address and collide as
// side-table keys.
func frameSpan(size int) uint32 {
	if size <= 0 {
		return 1
	}
	return uint32(size)
}

// pushChoicePoint records clause as the alternative to retry on backtrack
// and makes the target frame the new choice point (§4.6).
func (m *Machine) pushChoicePoint(clause *Clause) {
	f := m.frame(m.L)
	f.BP = clause
	f.BG = m.G0
	f.BT = m.TR0
	f.BLChain = m.BL
	m.BL = m.L
}

// pushSourceFrame commits the target frame as the new source frame with
// the given parameter+local slot count (§4.6).
func (m *Machine) pushSourceFrame(size int) {
	f := m.frame(m.L)
	f.Size = size
	f.CL = m.CL
	m.CL = m.L
}

// popSourceFrame unwinds the source-frame chain by one (§4.6). It returns
// true once the initial query frame's continuation has been reached ("the
// query is done").
func (m *Machine) popSourceFrame() bool {
	cl := m.frame(m.CL)
	if cl.CL == noFrame {
		return true
	}
	m.PC = cl.CP
	m.CL = cl.CL
	return false
}

// pushScratch records (addr, mode) on the compound-term scratchpad (§4.7,
// GLOSSARY).
func (m *Machine) pushScratch(addr uint32, mode Mode) {
	m.Memory.WriteScratchpad(m.SPptr, Word(addr))
	m.Memory.WriteScratchpad(m.SPptr+1, Word(mode))
	m.SPptr += 2
}

// popScratch pops the most recent (addr, mode) pair.
func (m *Machine) popScratch() (uint32, Mode) {
	m.SPptr -= 2
	addr := uint32(m.Memory.ReadScratchpad(m.SPptr))
	mode := Mode(m.Memory.ReadScratchpad(m.SPptr + 1))
	return addr, mode
}

// resolveVarAddr converts a VAR/FIRSTVAR operand (a frame-relative offset)
// to an absolute local-stack address, using the mode-appropriate frame
// (§4.7).
//
// Under COPY, the offset is relative to whichever frame the nearest
// non-COPY ancestor mode used. That ancestor is found by climbing the
// scratchpad from its top, skipping entries whose saved mode is itself
// COPY (COPY nests, inheriting from its enclosing non-COPY mode).
func (m *Machine) resolveVarAddr(offset uint32) uint32 {
	switch m.PM {
	case ModeMatch:
		return offset + m.L
	case ModeArg:
		return offset + m.CL
	case ModeCopy:
		for i := m.SPptr; i > ScratchpadStart; i -= 2 {
			saved := Mode(m.Memory.ReadScratchpad(i - 1))
			if saved == ModeCopy {
				continue
			}
			if saved == ModeMatch {
				return offset + m.L
			}
			return offset + m.CL
		}
		panic("copy mode scratchpad underflow resolving variable offset")
	default:
		panic(fmt.Sprintf("illegal processor mode %v", m.PM))
	}
}

// pushPDL/popPDL drive the iterative unification worklist (§4.8,
// GLOSSARY).
func (m *Machine) pushPDL(a1, a2 uint32) {
	m.Memory.WritePDL(m.PDLptr, Word(a1))
	m.Memory.WritePDL(m.PDLptr+1, Word(a2))
	m.PDLptr += 2
}

func (m *Machine) popPDL() (uint32, uint32) {
	m.PDLptr -= 2
	a1 := uint32(m.Memory.ReadPDL(m.PDLptr))
	a2 := uint32(m.Memory.ReadPDL(m.PDLptr + 1))
	return a1, a2
}
