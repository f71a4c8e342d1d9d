package drcbe

import "github.com/xyproto/drcarm64/asm"

// Register assignment for UML integer/float registers I0..I7 and
// F0..F7, derived from scratch against AAPCS64's callee-saved set rather
// than copied from any published reference table (those are known to
// carry at least one typo-looking entry that doesn't survive
// derivation from first principles).
//
// AAPCS64 callee-saved integer registers are X19..X28 (10 registers);
// callee-saved float/SIMD registers preserve only their low 64 bits,
// D8..D15 (8 registers). UML defines 8 integer and 8 float registers, so
// every I-register gets a direct host mapping (2 callee-saved slots
// left over for internal use) and every F-register maps 1:1 to D8..D15.
//
// Reserved beyond this map (never allocated to a UML register):
//   X29 (frame pointer)  X30 (link register)  SP
//   X27 base register (near-region anchor)
//   X28 emulated-flags register
//   X0-X18 caller-saved scratch, used freely within a block
//
// That leaves X19..X26 (8 registers) for I0..I7 — a clean monotone
// assignment with no unassigned ("cold") integer register at all on
// this host; every I-register has a home. Cold-register spilling
// still has to exist as a code path for hosts or UML
// configurations where it doesn't fit this cleanly, so RegForI still
// returns ok=false past index 7.
var intRegMap = [8]asm.Reg{
	asm.X19, asm.X20, asm.X21, asm.X22, asm.X23, asm.X24, asm.X25, asm.X26,
}

var floatRegMap = [8]asm.FReg{
	asm.V8, asm.V9, asm.V10, asm.V11, asm.V12, asm.V13, asm.V14, asm.V15,
}

// BaseReg anchors the near region: all UML
// register spill slots (none needed with the map above, but the type
// stays general) and the emulated-flags slot are reachable base-relative
// from here.
const BaseReg = asm.X27

// FlagsReg is the emulated-flags register: bit 0 holds persistent UML C,
// bit 4 holds persistent UML U.
const FlagsReg = asm.X28

// scratch registers available to any opcode generator; never assumed
// live across a call and never used to hold a UML register.
const (
	Scratch0 = asm.X9
	Scratch1 = asm.X10
	Scratch2 = asm.X11
	Scratch3 = asm.X12
)

// RegForI returns the host register backing UML integer register idx,
// or ok=false if idx is out of the directly-mapped range (spills to the
// machine-state structure instead — see cold-register handling in
// param.go).
func RegForI(idx int) (asm.Reg, bool) {
	if idx < 0 || idx >= len(intRegMap) {
		return 0, false
	}
	return intRegMap[idx], true
}

// RegForF returns the host register backing UML float register idx.
func RegForF(idx int) (asm.FReg, bool) {
	if idx < 0 || idx >= len(floatRegMap) {
		return 0, false
	}
	return floatRegMap[idx], true
}

// DirectIntCount/DirectFloatCount scan the maps for non-zero (assigned)
// entries in order, backing get_info()'s reported counts.
// Every entry in this from-scratch map is assigned, so both equal 8; the
// scan is still written generically so a future host with a smaller
// callee-saved set degrades correctly instead of silently overcounting.
func DirectIntCount() int {
	n := 0
	for _, r := range intRegMap {
		if r != 0 {
			n++
		}
	}
	return n
}

func DirectFloatCount() int {
	n := 0
	for _, r := range floatRegMap {
		if r != 0 {
			n++
		}
	}
	return n
}

// calleeSavedInt lists every AAPCS64 callee-saved integer register the
// entry trampoline must save/restore: the eight UML registers plus the
// base and emulated-flags registers.
var calleeSavedInt = []asm.Reg{
	asm.X19, asm.X20, asm.X21, asm.X22, asm.X23, asm.X24, asm.X25, asm.X26,
	BaseReg, FlagsReg,
}

// calleeSavedFloat lists the callee-saved float registers backing the
// UML float register file.
var calleeSavedFloat = []asm.FReg{
	asm.V8, asm.V9, asm.V10, asm.V11, asm.V12, asm.V13, asm.V14, asm.V15,
}
