package debugger

import (
	"testing"

	"github.com/greyforge/core/internal/sleigh"
)

// buildTestSleigh constructs a minimal Sleigh whose global scope declares one
// varnode symbol per name in names, at successive 8-byte cache offsets, just
// enough for LookupVarnode/BuildRegisterTable to exercise.
func buildTestSleigh(names ...string) *sleigh.Sleigh {
	scope := sleigh.Scope{ID: 0, Lookup: make(map[string]uint32)}
	var symbols []sleigh.Symbol
	for i, name := range names {
		scope.Lookup[name] = uint32(i)
		symbols = append(symbols, sleigh.Symbol{
			Name: name,
			ID:   uint32(i),
			Kind: sleigh.SymVarnode,
			Varnode: &sleigh.VarnodeSym{
				Offset: uint32(i * 8),
				Size:   8,
			},
		})
	}
	return &sleigh.Sleigh{
		SymbolTable: sleigh.SymbolTable{
			Scopes:  []sleigh.Scope{scope},
			Symbols: symbols,
		},
	}
}

func TestLookupVarnodeFindsGlobalScopeEntry(t *testing.T) {
	sl := buildTestSleigh("RAX", "RIP")
	vn, ok := sl.LookupVarnode("RIP")
	if !ok {
		t.Fatalf("LookupVarnode(RIP): not found")
	}
	if vn.Offset != 8 || vn.Size != 8 {
		t.Fatalf("LookupVarnode(RIP) = %+v, want offset 8 size 8", vn)
	}

	if _, ok := sl.LookupVarnode("NOSUCH"); ok {
		t.Fatalf("LookupVarnode(NOSUCH) unexpectedly found")
	}
}

func TestBuildRegisterTableAssignsProgramCounterRole(t *testing.T) {
	sl := buildTestSleigh("RAX", "RIP", "RSP")
	ps := &sleigh.Pspec{
		ProgramCounter: "RIP",
		Registers: []sleigh.PspecRegister{
			{Name: "RAX"},
			{Name: "RIP"},
			{Name: "RSP"},
		},
	}
	hostRegs := []hostRegisterMapping{
		{name: "RAX", kind: GeneralPurpose, hostOffset: 100},
		{name: "RIP", kind: GeneralPurpose, hostOffset: 200},
		{name: "RSP", kind: GeneralPurpose, role: RoleStackPointer, hostOffset: 300},
	}

	rt, err := BuildRegisterTable(sl, ps, hostRegs)
	if err != nil {
		t.Fatalf("BuildRegisterTable: %v", err)
	}

	if rt.ProgramCounter < 0 {
		t.Fatalf("RegisterTable.ProgramCounter not set")
	}
	pc := rt.Infos[rt.ProgramCounter]
	if pc.Name != "RIP" || pc.Role != RoleProgramCounter {
		t.Fatalf("program counter register = %+v", pc)
	}

	rsp, ok := rt.GetByName("RSP")
	if !ok || rsp.Role != RoleStackPointer {
		t.Fatalf("GetByName(RSP) = %+v, %v, want RoleStackPointer", rsp, ok)
	}

	rax, ok := rt.GetByName("RAX")
	if !ok || rax.HostOffset != 100 || rax.Addr != 0 || rax.Size != 8 {
		t.Fatalf("GetByName(RAX) = %+v, %v", rax, ok)
	}

	if rt.CacheSize < 24 {
		t.Fatalf("CacheSize = %d, want at least 24 (3 registers * 8 bytes)", rt.CacheSize)
	}
}

func TestBuildRegisterTableSkipsRegistersWithoutHostMapping(t *testing.T) {
	sl := buildTestSleigh("RAX", "CR0")
	ps := &sleigh.Pspec{
		Registers: []sleigh.PspecRegister{
			{Name: "RAX"},
			{Name: "CR0"}, // no entry in hostRegs below
		},
	}
	hostRegs := []hostRegisterMapping{
		{name: "RAX", kind: GeneralPurpose, hostOffset: 0},
	}

	rt, err := BuildRegisterTable(sl, ps, hostRegs)
	if err != nil {
		t.Fatalf("BuildRegisterTable: %v", err)
	}
	if len(rt.Infos) != 1 || rt.Infos[0].Name != "RAX" {
		t.Fatalf("Infos = %+v, want only RAX", rt.Infos)
	}
}

func TestBuildRegisterTableFailsOnMissingVarnode(t *testing.T) {
	sl := buildTestSleigh("RAX")
	ps := &sleigh.Pspec{
		Registers: []sleigh.PspecRegister{{Name: "NOTREAL"}},
	}
	if _, err := BuildRegisterTable(sl, ps, nil); err == nil {
		t.Fatalf("BuildRegisterTable: expected error for unresolvable register, got nil")
	}
}
