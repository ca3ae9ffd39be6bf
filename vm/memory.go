package vm

import "fmt"

// Address ranges for the seven virtual memory areas (§3). All areas are
// views over one backing array; global and local stacks must be adjacent
// because REF values are 24-bit indices into their union ("word store").
const (
	GlobalStart = 0
	GlobalEnd   = 7_999_999

	LocalStart = 8_000_000
	LocalEnd   = 15_999_999

	WordStoreStart = GlobalStart
	WordStoreEnd   = LocalEnd

	TrailStart = 16_000_000
	TrailEnd   = 23_999_999

	PDLStart = 24_000_000
	PDLEnd   = 24_000_255

	ScratchpadStart = 24_000_256
	ScratchpadEnd   = 24_000_511

	HeapStart = 24_000_512

	MemorySize = 25_000_512
)

// boundsError is a programmer error per §4.2/§7: out-of-range memory
// access aborts the process rather than being handled as user input.
type boundsError struct {
	area string
	addr uint32
	lo   uint32
	hi   uint32
}

func (e *boundsError) Error() string {
	return fmt.Sprintf("%s: address %d out of range [%d, %d]", e.area, e.addr, e.lo, e.hi)
}

// Memory is the single backing array for the abstract machine, sliced into
// the seven areas of §3. Every accessor panics on an out-of-range address;
// callers that can translate that into a recoverable condition (the
// dispatch loop, per §7) should `recover` once at their boundary.
type Memory struct {
	cells [MemorySize]Word
}

// NewMemory allocates the full 25M-cell arena described in §3/§5
// ("allocated once at startup at its full size").
func NewMemory() *Memory {
	return &Memory{}
}

func checkBounds(area string, addr, lo, hi uint32) {
	if addr < lo || addr > hi {
		panic(&boundsError{area: area, addr: addr, lo: lo, hi: hi})
	}
}

// ReadWord reads any addressable cell (word store, trail, PDL, scratchpad,
// heap) with no area-specific bounds check; only the whole-memory range
// is checked.
func (m *Memory) ReadWord(addr uint32) Word {
	checkBounds("memory", addr, 0, MemorySize-1)
	return m.cells[addr]
}

// WriteWord is the counterpart of ReadWord, likewise checked only against
// the whole-memory range.
func (m *Memory) WriteWord(addr uint32, w Word) {
	checkBounds("memory", addr, 0, MemorySize-1)
	m.cells[addr] = w
}

// ReadGlobal/WriteGlobal access the global (compound-term) stack.
func (m *Memory) ReadGlobal(addr uint32) Word {
	checkBounds("global", addr, GlobalStart, GlobalEnd)
	return m.cells[addr]
}

func (m *Memory) WriteGlobal(addr uint32, w Word) {
	checkBounds("global", addr, GlobalStart, GlobalEnd)
	m.cells[addr] = w
}

// ReadLocal/WriteLocal access the local (activation frame) stack.
func (m *Memory) ReadLocal(addr uint32) Word {
	checkBounds("local", addr, LocalStart, LocalEnd)
	return m.cells[addr]
}

func (m *Memory) WriteLocal(addr uint32, w Word) {
	checkBounds("local", addr, LocalStart, LocalEnd)
	m.cells[addr] = w
}

// ReadWordStore/WriteWordStore access the union of global+local, the view
// unification operates over since REF values may point into either.
func (m *Memory) ReadWordStore(addr uint32) Word {
	checkBounds("word store", addr, WordStoreStart, WordStoreEnd)
	return m.cells[addr]
}

func (m *Memory) WriteWordStore(addr uint32, w Word) {
	checkBounds("word store", addr, WordStoreStart, WordStoreEnd)
	m.cells[addr] = w
}

// ReadTrail/WriteTrail access the trail.
func (m *Memory) ReadTrail(addr uint32) Word {
	checkBounds("trail", addr, TrailStart, TrailEnd)
	return m.cells[addr]
}

func (m *Memory) WriteTrail(addr uint32, w Word) {
	checkBounds("trail", addr, TrailStart, TrailEnd)
	m.cells[addr] = w
}

// ReadPDL/WritePDL access the push-down list used by iterative unification.
func (m *Memory) ReadPDL(addr uint32) Word {
	checkBounds("pdl", addr, PDLStart, PDLEnd)
	return m.cells[addr]
}

func (m *Memory) WritePDL(addr uint32, w Word) {
	checkBounds("pdl", addr, PDLStart, PDLEnd)
	m.cells[addr] = w
}

// ReadScratchpad/WriteScratchpad access the (address, mode) scratchpad.
func (m *Memory) ReadScratchpad(addr uint32) Word {
	checkBounds("scratchpad", addr, ScratchpadStart, ScratchpadEnd)
	return m.cells[addr]
}

func (m *Memory) WriteScratchpad(addr uint32, w Word) {
	checkBounds("scratchpad", addr, ScratchpadStart, ScratchpadEnd)
	m.cells[addr] = w
}

// ReadHeap/WriteHeap access the code area (bytecode + operand cells).
func (m *Memory) ReadHeap(addr uint32) Word {
	checkBounds("heap", addr, HeapStart, MemorySize-1)
	return m.cells[addr]
}

func (m *Memory) WriteHeap(addr uint32, w Word) {
	checkBounds("heap", addr, HeapStart, MemorySize-1)
	m.cells[addr] = w
}

func inGlobal(addr uint32) bool { return addr >= GlobalStart && addr <= GlobalEnd }
func inLocal(addr uint32) bool  { return addr >= LocalStart && addr <= LocalEnd }
