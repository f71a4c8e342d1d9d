package drcbe

import (
	"github.com/xyproto/drcarm64/asm"
	"github.com/xyproto/drcarm64/uml"
)

// fwidthFor maps a UML float-op size (4 or 8 bytes) to the scalar
// register width AArch64's FP instructions operate at.
func fwidthFor(sz uint8) asm.FWidth {
	if sz >= 8 {
		return asm.FDouble
	}
	return asm.FSingle
}

// floatBinary covers FADD/FSUB/FMUL/FDIV: move operands into vector
// registers at the right width, delegate to the native scalar op,
// write back.
type floatBinaryFn func(a *asm.Assembler, w asm.FWidth, dst, s1, s2 asm.FReg)

func (be *Backend) floatBinary(in *uml.Instruction, fn floatBinaryFn) {
	fw := fwidthFor(in.Size)
	dst := be.bindFParam(in.P(0))
	s1 := be.selectFRegister(0, in.P(1))
	s2 := be.selectFRegister(1, in.P(2))

	out := scratchF0
	if dst.kind == beFReg {
		out = dst.freg
	}
	fn(be.as, fw, out, s1, s2)
	if dst.kind != beFReg {
		be.movParamFReg(in.Size, dst, out)
	}
	be.flagState.poison()
}

func (be *Backend) faddOp(in *uml.Instruction) { be.floatBinary(in, (*asm.Assembler).FaddReg) }
func (be *Backend) fsubOp(in *uml.Instruction) { be.floatBinary(in, (*asm.Assembler).FsubReg) }
func (be *Backend) fmulOp(in *uml.Instruction) { be.floatBinary(in, (*asm.Assembler).FmulReg) }
func (be *Backend) fdivOp(in *uml.Instruction) { be.floatBinary(in, (*asm.Assembler).FdivReg) }

type floatUnaryFn func(a *asm.Assembler, w asm.FWidth, dst, src asm.FReg)

func (be *Backend) floatUnary(in *uml.Instruction, fn floatUnaryFn) {
	fw := fwidthFor(in.Size)
	dst := be.bindFParam(in.P(0))
	src := be.selectFRegister(0, in.P(1))
	out := scratchF0
	if dst.kind == beFReg {
		out = dst.freg
	}
	fn(be.as, fw, out, src)
	if dst.kind != beFReg {
		be.movParamFReg(in.Size, dst, out)
	}
}

func (be *Backend) fnegOp(in *uml.Instruction)   { be.floatUnary(in, (*asm.Assembler).FnegReg) }
func (be *Backend) fabsOp(in *uml.Instruction)   { be.floatUnary(in, (*asm.Assembler).FabsReg) }
func (be *Backend) fsqrtOp(in *uml.Instruction)  { be.floatUnary(in, (*asm.Assembler).FsqrtReg) }
func (be *Backend) frecipOp(in *uml.Instruction) { be.floatUnary(in, (*asm.Assembler).FrecpeReg) }
func (be *Backend) frsqrtOp(in *uml.Instruction) { be.floatUnary(in, (*asm.Assembler).FrsqrteReg) }

// fcmpOp implements FCMP: a native scalar compare, plus the U-flag
// tetrad AND-together.
func (be *Backend) fcmpOp(in *uml.Instruction) {
	fw := fwidthFor(in.Size)
	s1 := be.selectFRegister(0, in.P(0))
	s2 := be.selectFRegister(1, in.P(1))
	be.as.FcmpReg(fw, s1, s2)
	if in.FlagsMask.Has(uml.FlagU) {
		be.storeUnordered()
	}
	be.flagState.poison()
}

// fcopyiOp / icopyfOp move bit patterns between a float and integer
// register without conversion, via fmov.
func (be *Backend) fcopyiOp(in *uml.Instruction) {
	w := widthFor(int(in.Size))
	dst := be.bindIParam(in.P(0))
	src := be.selectFRegister(0, in.P(1))
	out := Scratch0
	if dst.kind == beIReg {
		out = dst.ireg
	}
	be.as.FmovToGpr(w, out, src)
	if dst.kind != beIReg {
		be.movParamReg(int(in.Size), dst, out)
	}
}

func (be *Backend) icopyfOp(in *uml.Instruction) {
	w := widthFor(int(in.Size))
	dst := be.bindFParam(in.P(0))
	src := be.selectRegister(Scratch0, int(in.Size), be.bindIParam(in.P(1)))
	out := scratchF0
	if dst.kind == beFReg {
		out = dst.freg
	}
	be.as.FmovFromGpr(w, out, src)
	if dst.kind != beFReg {
		be.movParamFReg(in.Size, dst, out)
	}
}

// frndsOp rounds a double to single precision and back (fcvt d->s; fcvt
// s->d).
func (be *Backend) frndsOp(in *uml.Instruction) {
	dst := be.bindFParam(in.P(0))
	src := be.selectFRegister(0, in.P(1))
	out := scratchF0
	if dst.kind == beFReg {
		out = dst.freg
	}
	be.as.FcvtNarrow(out, src)
	be.as.FcvtWiden(out, out)
	if dst.kind != beFReg {
		be.movParamFReg(in.Size, dst, out)
	}
}

// ftointOp converts a float to integer with an explicit UML rounding
// mode, selecting among fcvtns/fcvtps/fcvtms/fcvtzs.
// Parameters: dst (int), src (float), size (the float source's width,
// carried in a ParamSize parameter), round.
func (be *Backend) ftointOp(in *uml.Instruction) {
	dst := be.bindIParam(in.P(0))
	src := be.selectFRegister(0, in.P(1))
	fw := asm.FDouble
	if in.P(2).Kind == uml.ParamSize && in.P(2).Size == 4 {
		fw = asm.FSingle
	}
	mode := in.P(3).Round

	w := widthFor(int(in.Size))
	out := Scratch0
	if dst.kind == beIReg {
		out = dst.ireg
	}
	be.as.FcvtRound(roundModeToFcvt(mode), true, w, fw, out, src)
	if dst.kind != beIReg {
		be.movParamReg(int(in.Size), dst, out)
	}
}

func roundModeToFcvt(m uml.RoundMode) asm.FcvtMode {
	switch m {
	case uml.RoundUp:
		return asm.FcvtPlusInf
	case uml.RoundDown:
		return asm.FcvtMinusInf
	case uml.RoundTruncate:
		return asm.FcvtZero
	default:
		return asm.FcvtNearest
	}
}

// floadOp / fstoreOp implement FLOAD dst,base,index and FSTORE
// base,index,src: a scalar float load/store against a fixed host
// pointer plus a scaled index, rather than a guest address space. base
// is a compile-time-constant address (in.P(1)/in.P(0).MemPtr); index is
// either an immediate element count (folded into the address at
// generation time) or a register (scaled by log2(size) via the
// register-offset addressing mode). Neither touches carry-state: like
// the original, these carry no flags at all.
//
// AArch64 has no dedicated scalar float load/store in this assembler's
// encoder set (see selectFRegister's comment), so the value is moved
// through a GPR via fmov, same as everywhere else in this file.
func (be *Backend) floadOp(in *uml.Instruction) {
	dst := be.bindFParam(in.P(0))
	base := in.P(1).MemPtr
	indexP := in.P(2)
	sz := int(in.Size)

	out := scratchF0
	if dst.kind == beFReg {
		out = dst.freg
	}

	if indexP.Kind == uml.ParamImmediate {
		ptr := base + uintptr(indexP.Imm)*uintptr(sz)
		reg, off := be.materializeMemRef(Scratch0, ptr, sz)
		be.as.LdrImm(sz, Scratch2, reg, off)
	} else {
		idx := be.selectRegister(Scratch1, 8, be.bindIParam(indexP))
		addr := be.materializeAbsAddr(Scratch0, base)
		shift := uint32(2)
		if sz == 8 {
			shift = 3
		}
		be.as.LdrRegOffset(sz, Scratch2, addr, idx, shift)
	}
	be.as.FmovFromGpr(widthFor(sz), out, Scratch2)
	if dst.kind != beFReg {
		be.movParamFReg(in.Size, dst, out)
	}
}

func (be *Backend) fstoreOp(in *uml.Instruction) {
	base := in.P(0).MemPtr
	indexP := in.P(1)
	sz := int(in.Size)

	src := be.selectFRegister(0, in.P(2))
	be.as.FmovToGpr(widthFor(sz), Scratch2, src)

	if indexP.Kind == uml.ParamImmediate {
		ptr := base + uintptr(indexP.Imm)*uintptr(sz)
		reg, off := be.materializeMemRef(Scratch0, ptr, sz)
		be.as.StrImm(sz, Scratch2, reg, off)
	} else {
		idx := be.selectRegister(Scratch1, 8, be.bindIParam(indexP))
		addr := be.materializeAbsAddr(Scratch0, base)
		shift := uint32(2)
		if sz == 8 {
			shift = 3
		}
		be.as.StrRegOffset(sz, Scratch2, addr, idx, shift)
	}
}

// scratchF0/scratchF1 are the float scratch registers; never assumed
// live across a call and never used to hold a UML float register.
const (
	scratchF0 = asm.V0
	scratchF1 = asm.V1
)

// selectFRegister resolves a uml.Parameter float operand directly to its
// host register when one exists, else loads it into the given scratch
// slot (0 or 1) first — the float-operand analogue of selectRegister.
// The memory path never actually triggers with this host's register map
// (regmap.go maps all 8 UML float registers directly), since it covers a
// future host with fewer callee-saved float registers; it bitcasts
// through a GPR rather than requiring a dedicated float load/store.
func (be *Backend) selectFRegister(scratchSlot int, p uml.Parameter) asm.FReg {
	bp := be.bindFParam(p)
	def := scratchF0
	if scratchSlot == 1 {
		def = scratchF1
	}
	switch bp.kind {
	case beFReg:
		return bp.freg
	case beMem:
		be.as.LdrImm(8, Scratch0, bp.memBase, bp.memOff)
		be.as.FmovFromGpr(asm.W64, def, Scratch0)
		return def
	default:
		panicGen(internalError("selectFRegister: unsupported source kind"))
		return def
	}
}

// movParamFReg stores src into a float-typed beParam, spilling through
// the machine-state slot when there is no direct host register.
func (be *Backend) movParamFReg(sz uint8, dst beParam, src asm.FReg) {
	switch dst.kind {
	case beFReg:
		be.as.FmovFReg(fwidthFor(sz), dst.freg, src)
	case beMem:
		be.as.FmovToGpr(widthFor(int(sz)), Scratch0, src)
		storeSz := int(sz)
		if dst.cold {
			storeSz = 8
		}
		be.as.StrImm(storeSz, Scratch0, dst.memBase, dst.memOff)
	default:
		panicGen(internalError("movParamFReg: unsupported destination kind"))
	}
}
