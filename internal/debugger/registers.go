package debugger

import (
	"fmt"

	"github.com/greyforge/core/internal/sleigh"
)

// RegisterKind classifies which host ptrace request a register's bytes come
// from, matching spec.md §4.4 step 6 ("issue getregs and getfpregs").
type RegisterKind int

const (
	GeneralPurpose RegisterKind = iota
	FloatingPoint
	Control
	Flag
)

// RegisterRole flags a register that the debugger core treats specially
// (program counter adjustment on breakpoint hit, stack unwinding).
type RegisterRole int

const (
	RoleNone RegisterRole = iota
	RoleProgramCounter
	RoleStackPointer
	RoleBasePointer
	RoleFlags
)

// RegisterInfo describes one register: its SLEIGH address-space offset
// (Addr/Size, used to key the per-thread register cache), which kernel
// struct holds its live value (Kind/HostOffset), and any special role.
type RegisterInfo struct {
	Name       string
	Kind       RegisterKind
	Role       RegisterRole
	Addr       uint32
	Size       uint32
	HostOffset uint32
}

// RegisterTable maps processor-spec register names to RegisterInfo and
// tracks the total register-cache size every thread's regCache must hold.
type RegisterTable struct {
	Infos     []RegisterInfo
	byName    map[string]int
	CacheSize uint32
	// ProgramCounter is the index into Infos of the RoleProgramCounter
	// register, or -1 if none was declared.
	ProgramCounter int
}

// NewRegisterTable indexes infos by name and computes the cache size needed
// to hold every register's SLEIGH-addressed bytes.
func NewRegisterTable(infos []RegisterInfo) *RegisterTable {
	t := &RegisterTable{Infos: infos, byName: make(map[string]int, len(infos)), ProgramCounter: -1}
	var maxEnd uint32
	for i, r := range infos {
		t.byName[r.Name] = i
		if end := r.Addr + r.Size; end > maxEnd {
			maxEnd = end
		}
		if r.Role == RoleProgramCounter {
			t.ProgramCounter = i
		}
	}
	t.CacheSize = maxEnd
	return t
}

// GetByName returns the RegisterInfo declared under name.
func (t *RegisterTable) GetByName(name string) (RegisterInfo, bool) {
	i, ok := t.byName[name]
	if !ok {
		return RegisterInfo{}, false
	}
	return t.Infos[i], true
}

// BuildRegisterTable cross-references a processor-spec register list against
// a loaded SLEIGH file's varnode symbols to assign each register its SLEIGH
// cache address, then merges in the host-specific ptrace struct offsets from
// hostRegs (see regmap_amd64.go). A pspec register with no matching varnode
// is a malformed processor description and fails the whole table build; a
// register that has a varnode but no host mapping entry is left out of the
// table.
func BuildRegisterTable(sl *sleigh.Sleigh, ps *sleigh.Pspec, hostRegs []hostRegisterMapping) (*RegisterTable, error) {
	hostByName := make(map[string]hostRegisterMapping, len(hostRegs))
	for _, h := range hostRegs {
		hostByName[h.name] = h
	}

	infos := make([]RegisterInfo, 0, len(ps.Registers))
	for _, reg := range ps.Registers {
		vn, ok := sl.LookupVarnode(reg.Name)
		if !ok {
			return nil, fmt.Errorf("debugger: processor spec register %q has no matching SLEIGH varnode", reg.Name)
		}
		host, ok := hostByName[reg.Name]
		if !ok {
			// Registers the host mapping doesn't know how to refresh (e.g.
			// synthetic/architectural aliases) are still addressable in the
			// cache but can never be refreshed from a clean state; skip
			// rather than fail, since pspec files list many more named
			// registers than the host regmap covers.
			continue
		}
		role := RoleNone
		if ps.ProgramCounter == reg.Name {
			role = RoleProgramCounter
		} else if host.role != RoleNone {
			role = host.role
		}
		infos = append(infos, RegisterInfo{
			Name:       reg.Name,
			Kind:       host.kind,
			Role:       role,
			Addr:       vn.Offset,
			Size:       uint32(vn.Size),
			HostOffset: host.hostOffset,
		})
	}
	return NewRegisterTable(infos), nil
}
