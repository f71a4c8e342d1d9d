package drcbe

import (
	"github.com/xyproto/drcarm64/asm"
	"github.com/xyproto/drcarm64/uml"
)

// carryState is the three-valued tracking of
// whether the host's native carry flag currently reflects UML C, its
// complement, or neither.
type carryState int

const (
	carryPoison    carryState = iota // native C does not reflect UML C
	carryCanonical                   // native C == UML C (set by add-likes)
	carryLogical                     // native C == NOT UML C (borrow; set by sub/cmp)
)

// flagTracker is per-Generate() state: the running carry-state used to
// elide redundant emulated-flags reloads.
type flagTracker struct {
	state carryState
}

func (f *flagTracker) poison()          { f.state = carryPoison }
func (f *flagTracker) setCanonical()    { f.state = carryCanonical }
func (f *flagTracker) setLogical()      { f.state = carryLogical }

// emulatedCBit / emulatedUBit are the bit positions of persistent UML C
// and U within the emulated-flags register.
const (
	emulatedCBit = 0
	emulatedUBit = 4
)

// nativeCBit is the position of C within NZCV.
const nativeCBit = 29

// storeCarry persists the native carry flag into bit 0 of the emulated-
// flags register and updates the carry-state: after each arithmetic op
// that writes C, emit a cset from the native C flag and a bitfield-
// insert into position 0. invert selects the sub/cmp polarity (native C
// is a borrow-complement there).
func (be *Backend) storeCarry(invert bool) {
	cond := asm.CondCS
	if invert {
		cond = asm.CondCC
	}
	be.as.CsetReg(asm.W64, Scratch0, cond)
	be.storeCarryBit(Scratch0)
	if invert {
		be.flagState.setLogical()
	} else {
		be.flagState.setCanonical()
	}
}

// storeCarryBit bitfield-inserts an already-computed single bit value
// straight into the emulated-flags word's C position, with no CSET: the
// CARRY opcode extracts a specific bit of an arbitrary register rather
// than reading a native condition flag, so unlike storeCarry there is no
// native flag to derive it from. Does not touch carry-state; CARRY
// poisons unconditionally regardless of which of its three forms ran.
func (be *Backend) storeCarryBit(reg asm.Reg) {
	be.as.BfiImm(asm.W64, FlagsReg, reg, emulatedCBit, 1)
}

// storeUnordered ANDs together {NE, CS, VS, PL} and
// bitfield-inserts the result into bit 4 of the emulated-flags register.
// Only FCMP produces U; every other opcode leaves it untouched.
func (be *Backend) storeUnordered() {
	be.as.CsetReg(asm.W64, Scratch0, asm.CondNE)
	be.as.CsetReg(asm.W64, Scratch1, asm.CondCS)
	be.as.AndReg(asm.W64, Scratch0, Scratch0, Scratch1)
	be.as.CsetReg(asm.W64, Scratch1, asm.CondVS)
	be.as.AndReg(asm.W64, Scratch0, Scratch0, Scratch1)
	be.as.CsetReg(asm.W64, Scratch1, asm.CondPL)
	be.as.AndReg(asm.W64, Scratch0, Scratch0, Scratch1)
	be.as.BfiImm(asm.W64, FlagsReg, Scratch0, emulatedUBit, 1)
}

// afterCall marks the carry-state poisoned: after any host call,
// carry-state is POISON. Every control-flow
// lowering that leaves generated code (CALLH, CALLC, EXH, memory slow
// path, indirect dispatch calls) must call this.
func (be *Backend) afterCall() {
	be.flagState.poison()
}

// reloadCarryIntoNativeC splices the persisted UML C bit into native
// NZCV's C position so an ADCS/SBCS immediately following picks it up as
// its carry-in: read NZCV, bitfield-insert the emulated bit at position
// 29, optionally flip it for SBC's borrow polarity, and write NZCV back.
// inverted selects that polarity: SUBB's SBC wants native C == NOT(UML
// C), ADDC's ADC wants native C == UML C directly. A no-op when
// carry-state already matches the desired polarity, mirroring
// store/reload elision elsewhere in this file. Uses Scratch3 rather than
// Scratch0/Scratch1/Scratch2, since callers reach this after
// materializing operands into those.
func (be *Backend) reloadCarryIntoNativeC(inverted bool) {
	desired := carryCanonical
	if inverted {
		desired = carryLogical
	}
	if be.flagState.state == desired {
		return
	}
	be.as.MrsNZCV(Scratch3)
	be.as.BfiImm(asm.W64, Scratch3, FlagsReg, nativeCBit, 1)
	if inverted {
		// A lone set bit is always a valid bitmask immediate.
		be.as.EorImm(asm.W64, Scratch3, Scratch3, 1<<nativeCBit)
	}
	be.as.MsrNZCV(Scratch3)
	if inverted {
		be.flagState.setLogical()
	} else {
		be.flagState.setCanonical()
	}
}

// resolvedCond is a uml.Condition resolved (by resolveCondition) to the
// native CondCode to
// branch or CSET on, plus whether the caller must first ensure the
// referenced UML flag is live in the native flag register (reload) or is
// read out of the emulated-flags word directly via test-and-branch.
type resolvedCond struct {
	native      asm.CondCode
	viaEmulated bool // true: test bit `bit` of FlagsReg instead of using native
	bit         uint32
	invert      bool // for viaEmulated: branch-if-zero vs branch-if-nonzero
}

func (be *Backend) resolveCondition(c uml.Condition) resolvedCond {
	switch c {
	case uml.CondZ:
		return resolvedCond{native: asm.CondEQ}
	case uml.CondNZ:
		return resolvedCond{native: asm.CondNE}
	case uml.CondV:
		return resolvedCond{native: asm.CondVS}
	case uml.CondNV:
		return resolvedCond{native: asm.CondVC}
	case uml.CondS:
		return resolvedCond{native: asm.CondMI}
	case uml.CondNS:
		return resolvedCond{native: asm.CondPL}
	case uml.CondA:
		return resolvedCond{native: asm.CondHI}
	case uml.CondAE:
		return resolvedCond{native: asm.CondCS}
	case uml.CondB:
		return resolvedCond{native: asm.CondCC}
	case uml.CondBE:
		return resolvedCond{native: asm.CondLS}
	case uml.CondG:
		return resolvedCond{native: asm.CondGT}
	case uml.CondGE:
		return resolvedCond{native: asm.CondGE}
	case uml.CondL:
		return resolvedCond{native: asm.CondLT}
	case uml.CondLE:
		return resolvedCond{native: asm.CondLE}
	case uml.CondC:
		return be.resolveCarryCondition(false)
	case uml.CondNC:
		return be.resolveCarryCondition(true)
	case uml.CondU:
		return resolvedCond{viaEmulated: true, bit: emulatedUBit, invert: false}
	case uml.CondNU:
		return resolvedCond{viaEmulated: true, bit: emulatedUBit, invert: true}
	default:
		return resolvedCond{native: asm.CondAL}
	}
}

// resolveCarryCondition implements the carry consumer rule: a
// consumer requiring C chooses the polarity; if matching, use the native
// flag directly; if opposite, negate the condition; if POISON, extract
// bit 0 from emulated-flags.
func (be *Backend) resolveCarryCondition(want bool) resolvedCond {
	switch be.flagState.state {
	case carryCanonical:
		if want {
			return resolvedCond{native: asm.CondCS}
		}
		return resolvedCond{native: asm.CondCC}
	case carryLogical:
		// native C is the complement of UML C
		if want {
			return resolvedCond{native: asm.CondCC}
		}
		return resolvedCond{native: asm.CondCS}
	default: // carryPoison
		return resolvedCond{viaEmulated: true, bit: emulatedCBit, invert: !want}
	}
}

// emitBranchOnCondition emits either a native B.cond or a TBZ/TBNZ
// against the emulated-flags word, to l, following the dispatch table
// for conditional JMP.
func (be *Backend) emitBranchOnCondition(rc resolvedCond, l asm.Label) {
	if rc.viaEmulated {
		if rc.invert {
			be.as.TbzLabel(FlagsReg, rc.bit, l)
		} else {
			be.as.TbnzLabel(FlagsReg, rc.bit, l)
		}
		return
	}
	be.as.BCondLabel(rc.native, l)
}

// setFlagsFromByte reloads the full UML flag byte (C|V|Z|S|U packed in
// the bit positions uml.Flags defines) from a plain value, as SETFLGS
// and RESTORE do: C and U go into the emulated-flags word, V/Z/S are
// rebuilt into native NZCV. Native C is left clear rather than set from
// UML C, so carry-state is poisoned. Uses Scratch2/Scratch3 only, so src
// may be Scratch0 or Scratch1.
func (be *Backend) setFlagsFromByte(src asm.Reg) {
	// emulated-flags: bit0=C, bit4=U come straight from src's C,U bits.
	be.as.UbfxImm(asm.W64, Scratch3, src, 0, 1) // C
	be.as.BfiImm(asm.W64, FlagsReg, Scratch3, emulatedCBit, 1)
	be.as.UbfxImm(asm.W64, Scratch3, src, 4, 1) // U
	be.as.BfiImm(asm.W64, FlagsReg, Scratch3, emulatedUBit, 1)
	// native NZCV: V (bit1) -> 28, Z (bit2) -> 30, S (bit3) -> N at 31.
	be.as.MovReg(asm.W64, Scratch2, asm.XZR)
	be.as.UbfxImm(asm.W64, Scratch3, src, 1, 1)
	be.as.BfiImm(asm.W64, Scratch2, Scratch3, 28, 1)
	be.as.UbfxImm(asm.W64, Scratch3, src, 2, 1)
	be.as.BfiImm(asm.W64, Scratch2, Scratch3, 30, 1)
	be.as.UbfxImm(asm.W64, Scratch3, src, 3, 1)
	be.as.BfiImm(asm.W64, Scratch2, Scratch3, 31, 1)
	be.as.MsrNZCV(Scratch2)
	be.flagState.poison()
}

// getFlagsByte packs Z, S and V read from native NZCV (whatever the
// carry-state; no other copy of them is kept) plus the persistent C/U
// bits from the emulated-flags word into dst, in the
// {C=bit0,V=bit1,Z=bit2,S=bit3,U=bit4} layout GETFLGS returns. Uses
// Scratch3 as its temporary, so dst may be any of Scratch0-Scratch2.
func (be *Backend) getFlagsByte(dst asm.Reg) {
	be.as.UbfxImm(asm.W64, dst, FlagsReg, emulatedCBit, 1) // C -> bit0
	be.as.CsetReg(asm.W64, Scratch3, asm.CondVS)
	be.as.BfiImm(asm.W64, dst, Scratch3, 1, 1) // V -> bit1
	be.as.CsetReg(asm.W64, Scratch3, asm.CondEQ)
	be.as.BfiImm(asm.W64, dst, Scratch3, 2, 1) // Z -> bit2
	be.as.CsetReg(asm.W64, Scratch3, asm.CondMI)
	be.as.BfiImm(asm.W64, dst, Scratch3, 3, 1) // S -> bit3
	be.as.UbfxImm(asm.W64, Scratch3, FlagsReg, emulatedUBit, 1)
	be.as.BfiImm(asm.W64, dst, Scratch3, 4, 1) // U -> bit4
}
