//go:build amd64

package debugger

// hostRegisterMapping names which kernel struct a register's live value
// comes from (general-purpose via PTRACE_GETREGS, floating-point via
// PTRACE_GETREGSET/NT_PRFPREGSET) and its byte offset within that struct,
// keyed by the processor-spec register name it corresponds to. Built from
// the x86-64 `user_regs_struct` and `user_fpregs_struct` (FXSAVE) layouts
// documented in <sys/user.h>.
type hostRegisterMapping struct {
	name       string
	kind       RegisterKind
	role       RegisterRole
	hostOffset uint32
}

// amd64HostRegisters enumerates the general-purpose, flags, program-counter
// and segment registers of unix.PtraceRegs (linux/amd64), by their
// struct-field byte offset, plus XMM0-XMM7 from the FXSAVE area reachable
// through NT_PRFPREGSET. The x87 ST registers, the fs/gs base fields and the
// debug registers are not mapped.
var amd64HostRegisters = []hostRegisterMapping{
	{name: "RAX", kind: GeneralPurpose, hostOffset: 10 * 8},
	{name: "RBX", kind: GeneralPurpose, hostOffset: 5 * 8},
	{name: "RCX", kind: GeneralPurpose, hostOffset: 11 * 8},
	{name: "RDX", kind: GeneralPurpose, hostOffset: 12 * 8},
	{name: "RSI", kind: GeneralPurpose, hostOffset: 13 * 8},
	{name: "RDI", kind: GeneralPurpose, hostOffset: 14 * 8},
	{name: "RBP", kind: GeneralPurpose, role: RoleBasePointer, hostOffset: 4 * 8},
	{name: "RSP", kind: GeneralPurpose, role: RoleStackPointer, hostOffset: 19 * 8},
	{name: "R8", kind: GeneralPurpose, hostOffset: 9 * 8},
	{name: "R9", kind: GeneralPurpose, hostOffset: 8 * 8},
	{name: "R10", kind: GeneralPurpose, hostOffset: 7 * 8},
	{name: "R11", kind: GeneralPurpose, hostOffset: 6 * 8},
	{name: "R12", kind: GeneralPurpose, hostOffset: 3 * 8},
	{name: "R13", kind: GeneralPurpose, hostOffset: 2 * 8},
	{name: "R14", kind: GeneralPurpose, hostOffset: 1 * 8},
	{name: "R15", kind: GeneralPurpose, hostOffset: 0 * 8},
	{name: "RIP", kind: GeneralPurpose, role: RoleProgramCounter, hostOffset: 16 * 8},
	{name: "EFLAGS", kind: Flag, role: RoleFlags, hostOffset: 18 * 8},
	{name: "CS", kind: Control, hostOffset: 17 * 8},
	{name: "SS", kind: Control, hostOffset: 20 * 8},
	{name: "DS", kind: Control, hostOffset: 23 * 8},
	{name: "ES", kind: Control, hostOffset: 24 * 8},
	{name: "FS", kind: Control, hostOffset: 25 * 8},
	{name: "GS", kind: Control, hostOffset: 26 * 8},
	// FXSAVE area offsets: cwd/swd/ftw/fop (0-7), rip/rdp (8-23),
	// mxcsr/mxcsr_mask (24-31), st_space[32] (32-159, 8 regs * 16 bytes),
	// xmm_space[64] (160-415, 16 regs * 16 bytes).
	{name: "XMM0", kind: FloatingPoint, hostOffset: 160 + 0*16},
	{name: "XMM1", kind: FloatingPoint, hostOffset: 160 + 1*16},
	{name: "XMM2", kind: FloatingPoint, hostOffset: 160 + 2*16},
	{name: "XMM3", kind: FloatingPoint, hostOffset: 160 + 3*16},
	{name: "XMM4", kind: FloatingPoint, hostOffset: 160 + 4*16},
	{name: "XMM5", kind: FloatingPoint, hostOffset: 160 + 5*16},
	{name: "XMM6", kind: FloatingPoint, hostOffset: 160 + 6*16},
	{name: "XMM7", kind: FloatingPoint, hostOffset: 160 + 7*16},
}

// HostRegisters returns this host architecture's register mapping table,
// for callers building a RegisterTable via BuildRegisterTable. The mapping
// type itself stays unexported: callers only need to thread the returned
// value through, never construct or inspect one.
func HostRegisters() []hostRegisterMapping {
	return amd64HostRegisters
}
