package drcbe

import (
	"github.com/xyproto/drcarm64/asm"
	"github.com/xyproto/drcarm64/drchash"
	"github.com/xyproto/drcarm64/uml"
)

// saveOp / restoreOp dump or reload the whole MachineState (integer and
// float register files, rounding mode, exception code, flags byte) to
// and from the state pointer the front end owns.
func (be *Backend) saveOp(in *uml.Instruction) {
	ptrP := be.bindIParam(in.P(0))
	ptr := be.selectRegister(Scratch0, 8, ptrP)

	for i, r := range intRegMap {
		be.as.StrImm(8, r, ptr, int32(i*8))
	}
	for i, r := range floatRegMap {
		be.as.FmovToGpr(asm.W64, Scratch1, r)
		be.as.StrImm(8, Scratch1, ptr, int32(64+i*8))
	}
	fmodPtr, fmodOff := be.materializeMemRef(Scratch2, be.StatePtr()+stateFmodOffset, 1)
	be.as.LdrImm(1, Scratch1, fmodPtr, fmodOff)
	be.as.StrImm(1, Scratch1, ptr, stateFmodOffset)
	expPtr, expOff := be.materializeMemRef(Scratch2, be.StatePtr()+stateExpOffset, 4)
	be.as.LdrImm(4, Scratch1, expPtr, expOff)
	be.as.StrImm(4, Scratch1, ptr, stateExpOffset)
	be.getFlagsByte(Scratch1)
	be.as.StrImm(1, Scratch1, ptr, machineStateFlagsOffset)
	be.flagState.poison()
}

func (be *Backend) restoreOp(in *uml.Instruction) {
	ptrP := be.bindIParam(in.P(0))
	ptr := be.selectRegister(Scratch0, 8, ptrP)

	for i, r := range intRegMap {
		be.as.LdrImm(8, r, ptr, int32(i*8))
	}
	for i, r := range floatRegMap {
		be.as.LdrImm(8, Scratch1, ptr, int32(64+i*8))
		be.as.FmovFromGpr(asm.W64, r, Scratch1)
	}
	be.as.LdrImm(1, Scratch1, ptr, stateFmodOffset)
	fmodPtr, fmodOff := be.materializeMemRef(Scratch2, be.StatePtr()+stateFmodOffset, 1)
	be.as.StrImm(1, Scratch1, fmodPtr, fmodOff)
	be.as.LdrImm(4, Scratch1, ptr, stateExpOffset)
	expPtr, expOff := be.materializeMemRef(Scratch2, be.StatePtr()+stateExpOffset, 4)
	be.as.StrImm(4, Scratch1, expPtr, expOff)
	be.as.LdrImm(1, Scratch1, ptr, machineStateFlagsOffset)
	be.setFlagsFromByte(Scratch1)
}

// machineStateFlagsOffset mirrors the Flags field's offset in
// MachineState (after 8 IReg + 8 FReg + Fmod/pad + Exp = 8*8+8*8+8 = 136).
const machineStateFlagsOffset = 136

// getflgsOp / setflgsOp implement GETFLGS/SETFLGS directly against a
// destination register or source parameter rather than memory.
func (be *Backend) getflgsOp(in *uml.Instruction) {
	dst := be.bindIParam(in.P(0))
	out := Scratch0
	if dst.kind == beIReg {
		out = dst.ireg
	}
	be.getFlagsByte(out)
	if dst.kind != beIReg {
		be.movParamReg(int(in.Size), dst, out)
	}
}

func (be *Backend) setflgsOp(in *uml.Instruction) {
	srcP := be.bindIParam(in.P(0))
	src := be.selectRegister(Scratch0, int(in.Size), srcP)
	be.setFlagsFromByte(src)
}

// mapvarOp records a compile-time-known value for a map variable at the
// current code position, consumed later by RECOVER's stack walk.
func (be *Backend) mapvarOp(in *uml.Instruction) {
	id := drchash.MapVarID(in.P(0).MapVar.ID)
	value := in.P(1).Imm
	be.mapvars.SetValue(be.as.PC(), id, value)
}

// nopOp / breakOp / debugOp / exitOp are the remaining trivial control
// opcodes: NOP emits nothing extra (the assembler's own Nop is reserved
// for alignment, not this), BREAK emits a single NOP (no BRK trap is
// generated), DEBUG calls the
// instruction-hook when enabled, EXIT returns to the caller with an exit
// code in X0.
func (be *Backend) nopOp(in *uml.Instruction) {}

func (be *Backend) breakOp(in *uml.Instruction) {
	be.as.Nop() // placeholder trap; a real brk #0 would halt under a debugger
}

func (be *Backend) debugOp(in *uml.Instruction) {
	if !be.cfg.DebugHook {
		return
	}
	pcP := be.bindIParam(in.P(0))
	pc := be.selectRegister(asm.X0, 8, pcP)
	if pc != asm.X0 {
		be.as.MovReg(asm.W64, asm.X0, pc)
	}
	be.movImmToReg(asm.W64, Scratch0, uint64(be.debugHookAddr))
	be.as.BlrReg(Scratch0)
	be.flagState.poison()
}

// commentOp carries a source-level annotation string (in.P(0).Str) that
// exists purely for a disassembly listing; it emits nothing.
func (be *Backend) commentOp(in *uml.Instruction) {}

// stateFmodOffset / stateExpOffset mirror MachineState's Fmod and Exp
// field offsets (see machineStateFlagsOffset above: 8 IReg + 8 FReg = 128
// for Fmod, +4 padded-aligned = 132 for Exp).
const (
	stateFmodOffset = 128
	stateExpOffset  = 132
)

// getfmodOp / setfmodOp / getexpOp read or write the rounding-mode and
// last-FP-exception fields of the bound MachineState directly by fixed
// offset from the state pointer, rather than through an instruction
// parameter the way SAVE/RESTORE take theirs: the front end never passes
// this pointer explicitly for these three, since there is exactly one
// MachineState per backend and its address is known at generation time.
func (be *Backend) getfmodOp(in *uml.Instruction) {
	dst := be.bindIParam(in.P(0))
	out := Scratch1
	if dst.kind == beIReg {
		out = dst.ireg
	}
	ptr, off := be.materializeMemRef(Scratch0, be.StatePtr()+stateFmodOffset, 1)
	be.as.LdrImm(1, out, ptr, off)
	if dst.kind != beIReg {
		be.movParamReg(int(in.Size), dst, out)
	}
}

func (be *Backend) setfmodOp(in *uml.Instruction) {
	srcP := in.P(0)
	ptr, off := be.materializeMemRef(Scratch0, be.StatePtr()+stateFmodOffset, 1)
	if srcP.Kind == uml.ParamImmediate {
		be.movImmToReg(asm.W32, Scratch1, srcP.Imm&3)
	} else {
		src := be.selectRegister(Scratch1, int(in.Size), be.bindIParam(srcP))
		if !be.as.AndImm(asm.W32, Scratch1, src, 3) {
			be.movImmToReg(asm.W32, Scratch2, 3)
			be.as.AndReg(asm.W32, Scratch1, src, Scratch2)
		}
	}
	be.as.StrImm(1, Scratch1, ptr, off)
}

func (be *Backend) getexpOp(in *uml.Instruction) {
	dst := be.bindIParam(in.P(0))
	out := Scratch1
	if dst.kind == beIReg {
		out = dst.ireg
	}
	ptr, off := be.materializeMemRef(Scratch0, be.StatePtr()+stateExpOffset, 4)
	be.as.LdrImm(4, out, ptr, off)
	if dst.kind != beIReg {
		be.movParamReg(int(in.Size), dst, out)
	}
}

// carryOp implements CARRY src,bitnum: extract bit `bitnum` (mod the
// operand width) of src and persist it as UML C. Three forms depending
// on which operands are compile-time constant: both immediate folds to a
// single bit value; an immediate bit number needs only a shift; a fully
// dynamic bit number is masked to the width first. Always poisons:
// unlike ADD/SUB-family carry producers this never sets a native
// condition flag, so native NZCV never reflects the result.
func (be *Backend) carryOp(in *uml.Instruction) {
	w := widthFor(int(in.Size))
	bits := uint32(in.Size) * 8
	srcP := in.P(0)
	bitP := in.P(1)

	switch {
	case srcP.Kind == uml.ParamImmediate && bitP.Kind == uml.ParamImmediate:
		bit := (srcP.Imm >> (uint32(bitP.Imm) % bits)) & 1
		be.movImmToReg(asm.W64, Scratch0, bit)
		be.storeCarryBit(Scratch0)

	case bitP.Kind == uml.ParamImmediate:
		shift := uint32(bitP.Imm) % bits
		src := be.selectRegister(Scratch0, int(in.Size), be.bindIParam(srcP))
		if shift != 0 {
			be.as.LsrImm(w, Scratch1, src, shift)
			be.storeCarryBit(Scratch1)
		} else {
			be.storeCarryBit(src)
		}

	default:
		src := be.selectRegister(Scratch0, int(in.Size), be.bindIParam(srcP))
		shiftSrc := be.selectRegister(Scratch2, int(in.Size), be.bindIParam(bitP))
		masked := Scratch3
		if !be.as.AndImm(w, masked, shiftSrc, uint64(bits-1)) {
			be.movImmToReg(w, masked, uint64(bits-1))
			be.as.AndReg(w, masked, masked, shiftSrc)
		}
		be.as.LsrReg(w, Scratch1, src, masked)
		be.storeCarryBit(Scratch1)
	}
	be.flagState.poison()
}

func (be *Backend) exitOp(in *uml.Instruction) {
	codeP := be.bindIParam(in.P(0))
	code := be.selectRegister(asm.X0, int(in.Size), codeP)
	if code != asm.X0 {
		be.as.MovReg(asm.W64, asm.X0, code)
	}
	be.branchToExit()
}
