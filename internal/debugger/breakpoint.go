package debugger

import (
	"sort"
	"sync"

	"github.com/greyforge/core/internal/memview"
)

// BreakpointEntry is one installed software breakpoint.
type BreakpointEntry struct {
	ID       uint32
	Addr     uint64
	OrigByte byte
	TrapByte byte
}

// BreakpointTable holds every installed breakpoint sorted by address, so
// that a range query (used by BreakpointOverlay) can binary-search rather
// than scan. The sorted-slice-plus-binary-search shape mirrors this
// project's gbf.findKeyIndexFull idiom (internal/gbf/binarysearch.go),
// adapted here from long-keyed B+-tree entries to address-keyed breakpoints.
type BreakpointTable struct {
	mu      sync.Mutex
	sorted  []BreakpointEntry // ascending by Addr
	byID    map[uint32]int    // id -> index into sorted
	nextID  uint32
}

func newBreakpointTable() *BreakpointTable {
	return &BreakpointTable{byID: make(map[uint32]int)}
}

// searchAddr returns the index of the first entry with Addr >= addr, and
// whether that entry's Addr == addr exactly. Mirrors gbf's searchMatch.
func (t *BreakpointTable) searchAddr(addr uint64) (int, bool) {
	idx := sort.Search(len(t.sorted), func(i int) bool { return t.sorted[i].Addr >= addr })
	return idx, idx < len(t.sorted) && t.sorted[idx].Addr == addr
}

// Add inserts a new breakpoint at addr and returns its id. Adding a second
// breakpoint at an address that already holds one is rejected: two
// breakpoints can never legally share an address (spec.md §4.4).
func (t *BreakpointTable) Add(addr uint64, origByte, trapByte byte) (uint32, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	idx, exact := t.searchAddr(addr)
	if exact {
		return 0, NewError(InvalidBreakpoint, "a breakpoint already exists at %#x", addr)
	}

	t.nextID++
	id := t.nextID
	entry := BreakpointEntry{ID: id, Addr: addr, OrigByte: origByte, TrapByte: trapByte}

	t.sorted = append(t.sorted, BreakpointEntry{})
	copy(t.sorted[idx+1:], t.sorted[idx:])
	t.sorted[idx] = entry

	t.reindexFrom(idx)
	return id, nil
}

// reindexFrom rebuilds byID for every entry at or after idx, called after an
// insertion or removal shifts later entries.
func (t *BreakpointTable) reindexFrom(idx int) {
	for i := idx; i < len(t.sorted); i++ {
		t.byID[t.sorted[i].ID] = i
	}
}

// Get returns the breakpoint with the given id.
func (t *BreakpointTable) Get(id uint32) (BreakpointEntry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	idx, ok := t.byID[id]
	if !ok {
		return BreakpointEntry{}, false
	}
	return t.sorted[idx], true
}

// FindByAddr returns the breakpoint installed at exactly addr.
func (t *BreakpointTable) FindByAddr(addr uint64) (BreakpointEntry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	idx, exact := t.searchAddr(addr)
	if !exact {
		return BreakpointEntry{}, false
	}
	return t.sorted[idx], true
}

// Remove deletes the breakpoint with the given id and returns its entry.
func (t *BreakpointTable) Remove(id uint32) (BreakpointEntry, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	idx, ok := t.byID[id]
	if !ok {
		return BreakpointEntry{}, NewError(InvalidBreakpoint, "no breakpoint with id %d", id)
	}
	entry := t.sorted[idx]
	t.sorted = append(t.sorted[:idx], t.sorted[idx+1:]...)
	delete(t.byID, id)
	t.reindexFrom(idx)
	return entry, nil
}

// All returns every installed breakpoint, ascending by address, for
// introspection (internal/httpapi's /breakpoints endpoint).
func (t *BreakpointTable) All() []BreakpointEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]BreakpointEntry, len(t.sorted))
	copy(out, t.sorted)
	return out
}

// InRange returns every breakpoint whose single-byte address falls within
// [addr, addr+length).
func (t *BreakpointTable) InRange(addr uint64, length int) []BreakpointEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	if length <= 0 {
		return nil
	}
	end := addr + uint64(length)
	start, _ := t.searchAddr(addr)
	var out []BreakpointEntry
	for i := start; i < len(t.sorted) && t.sorted[i].Addr < end; i++ {
		out = append(out, t.sorted[i])
	}
	return out
}

// BreakpointOverlay is a MemoryView decorator that forwards reads to its
// inner view, then substitutes original bytes for any breakpoint whose
// address intersects the request (spec.md §4.5). Writes pass through
// unchanged; a write that lands on a breakpoint's trap byte is not detected
// or reconciled (spec.md §9, an acknowledged open limitation of the source).
type BreakpointOverlay struct {
	Inner       memview.View
	Breakpoints *BreakpointTable
}

func NewBreakpointOverlay(inner memview.View, bps *BreakpointTable) *BreakpointOverlay {
	return &BreakpointOverlay{Inner: inner, Breakpoints: bps}
}

func (o *BreakpointOverlay) ReadBytes(cursor uint64, dst []byte) error {
	if err := o.Inner.ReadBytes(cursor, dst); err != nil {
		return err
	}
	for _, bp := range o.Breakpoints.InRange(cursor, len(dst)) {
		dst[bp.Addr-cursor] = bp.OrigByte
	}
	return nil
}

func (o *BreakpointOverlay) WriteBytes(cursor uint64, src []byte) error {
	return o.Inner.WriteBytes(cursor, src)
}

func (o *BreakpointOverlay) MaxAddress() uint64 { return o.Inner.MaxAddress() }

func (o *BreakpointOverlay) CanReadWhileRunning() bool { return o.Inner.CanReadWhileRunning() }

func (o *BreakpointOverlay) CanWriteWhileRunning() bool { return o.Inner.CanWriteWhileRunning() }

var _ memview.View = (*BreakpointOverlay)(nil)
