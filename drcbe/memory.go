package drcbe

import (
	"github.com/xyproto/drcarm64/addrspace"
	"github.com/xyproto/drcarm64/asm"
	"github.com/xyproto/drcarm64/uml"
)

// memAccess lowers one UML READ/READM/WRITE/WRITEM against the address
// space identified by spaceIdx, following the fast/slow-path
// split. addr is the already-bound guest-address parameter; data is the
// value register for a write (ignored for reads); mask is the byte-mask
// register for a masked op (asm.XZR when unmasked). dst receives a read
// result.
//
// A write narrower than the space's native dispatch lane always takes
// the slow path here rather than composing a masked write onto the
// native-width dispatch entry: doing that fast-path composition means
// computing, from the runtime address register, which sub-lane the
// access falls in and shifting both data and mask into position before
// the call — address-shift-dependent, endianness-swizzled arithmetic
// emitted as instructions rather than folded at codegen time. The
// per-size accessors already cover every size the slow path is asked
// for, so the composition buys throughput on a narrow write, not
// correctness; left unimplemented rather than emitted un-exercised.
func (be *Backend) memAccess(spaceIdx int, sizeBytes int, write, masked bool, addr, data, mask, dst asm.Reg) {
	sp, ok := be.spaces[spaceIdx]
	if !ok {
		panicGen(internalError("memAccess: unknown address space %d", spaceIdx))
	}

	if spec, ok := sp.SpecificFor(sizeBytes); ok {
		be.memFastPath(sp, spec, sizeBytes, write, masked, addr, data, mask, dst)
	} else {
		be.memSlowPath(sp, sizeBytes, write, masked, addr, data, mask, dst)
	}
	be.afterCall()
}

// memFastPath implements the numbered fast-path steps.
func (be *Backend) memFastPath(sp *addrspace.AddressSpace, spec *addrspace.Specific, sizeBytes int, write, masked bool, addr, data, mask, dst asm.Reg) {
	// X13-X17 hold this path's own temporaries, so the caller's addr,
	// data and mask (in Scratch0-Scratch2) survive until the call.
	idxReg := asm.X13
	be.as.MovReg(asm.W64, idxReg, addr)

	be.movImmToReg(asm.W64, asm.X14, uint64(spec.DispatchBase))

	if spec.HighBitCount > 0 && sp.MaskShape != addrspace.MaskHighBits {
		be.as.UbfxImm(asm.W64, Scratch3, addr, spec.LowBitCount, spec.HighBitCount)
	}

	switch sp.MaskShape {
	case addrspace.MaskSimple:
		if !be.as.AndImm(asm.W64, idxReg, idxReg, sp.AddrMask) {
			be.movImmToReg(asm.W64, asm.X16, sp.AddrMask)
			be.as.AndReg(asm.W64, idxReg, idxReg, asm.X16)
		}
	case addrspace.MaskHighBits:
		be.movImmToReg(asm.W64, asm.X16, sp.AddrMask)
		be.as.AndReg(asm.W64, idxReg, idxReg, asm.X16)
	case addrspace.MaskNone:
		// address used as-is
	}

	if spec.HighBitCount > 0 && sp.MaskShape == addrspace.MaskHighBits {
		be.as.UbfxImm(asm.W64, Scratch3, idxReg, spec.LowBitCount, spec.HighBitCount)
	}
	indexReg := Scratch3
	if spec.HighBitCount == 0 {
		be.as.UbfxImm(asm.W64, Scratch3, idxReg, spec.LowBitCount, 64-spec.LowBitCount)
	}

	be.as.LdrRegOffset(8, asm.X14, asm.X14, indexReg, 3)

	if spec.ThisDisplacement != 0 {
		be.as.AddImm(asm.W64, asm.X14, asm.X14, uint32(spec.ThisDisplacement), spec.ThisDisplacement >= 1<<12)
	}

	target := asm.X17
	if spec.IsVirtual {
		be.as.LdrImm(8, asm.X16, asm.X14, 0) // vtable pointer
		be.as.LdrImm(8, target, asm.X16, int32(spec.VtableOffset))
	} else {
		be.movImmToReg(asm.W64, target, uint64(spec.DirectFunc))
	}

	// argument convention: X0=receiver/this, X1=address, X2=data(write),
	// X3=mask(masked); result returned in X0 for reads.
	be.as.MovReg(asm.W64, asm.X0, asm.X14)
	be.as.MovReg(asm.W64, asm.X1, addr)
	if write {
		be.as.MovReg(asm.W64, asm.X2, data)
		if masked {
			be.as.MovReg(asm.W64, asm.X3, mask)
		}
	} else if masked {
		be.as.MovReg(asm.W64, asm.X2, mask)
	}
	be.as.BlrReg(target)
	if !write {
		be.as.MovReg(asm.W64, dst, asm.X0)
	}
}

// memSlowPath calls the pre-resolved accessor function for sizes with no
// specific dispatch entry.
func (be *Backend) memSlowPath(sp *addrspace.AddressSpace, sizeBytes int, write, masked bool, addr, data, mask, dst asm.Reg) {
	fn, ok := sp.Slow.FuncFor(sizeBytes, write, masked)
	if !ok {
		panicGen(internalError("memSlowPath: address space has no accessor for size %d write=%v masked=%v", sizeBytes, write, masked))
	}
	be.movImmToReg(asm.W64, asm.X16, uint64(sp.Slow.Receiver))
	be.movImmToReg(asm.W64, asm.X17, uint64(fn))

	be.as.MovReg(asm.W64, asm.X0, asm.X16)
	be.as.MovReg(asm.W64, asm.X1, addr)
	argIdx := 2
	if write {
		be.moveToArg(argIdx, data)
		argIdx++
	}
	if masked {
		be.moveToArg(argIdx, mask)
	}
	be.as.BlrReg(asm.X17)
	if !write {
		be.as.MovReg(asm.W64, dst, asm.X0)
	}
}

func (be *Backend) moveToArg(argIdx int, src asm.Reg) {
	dst := [...]asm.Reg{asm.X0, asm.X1, asm.X2, asm.X3, asm.X4, asm.X5}[argIdx]
	be.as.MovReg(asm.W64, dst, src)
}

// readOp / writeOp are the entry points opcode generators call for
// uml.OpREAD/OpREADM/OpWRITE/OpWRITEM, resolving the UML parameters into
// registers and delegating to memAccess.
func (be *Backend) readOp(in *uml.Instruction) {
	dst := be.bindIParam(in.P(0))
	addrP := be.bindIParam(in.P(1))
	space := int(in.P(2).Space)
	masked := in.Op == uml.OpREADM

	addr := be.selectRegister(Scratch0, 8, addrP)
	var maskReg asm.Reg = asm.XZR
	if masked {
		maskP := be.bindIParam(in.P(3))
		maskReg = be.selectRegister(Scratch1, 8, maskP)
	}

	dstReg := dst.ireg
	if dst.kind != beIReg {
		dstReg = Scratch2
	}
	be.memAccess(space, int(in.Size), false, masked, addr, asm.XZR, maskReg, dstReg)
	if dst.kind != beIReg {
		be.movParamReg(int(in.Size), dst, dstReg)
	}
}

// freadOp / fwriteOp implement FREAD dst,addr,space / FWRITE
// addr,src,space: a scalar float READ/WRITE against a guest address
// space. Unlike the integer family these always go through the
// pre-resolved slow-path accessor directly, never the fast dispatch
// table, matching the source: a float memory op is rare enough that the
// original never bothered giving it a specific-size fast path either.
// The value crosses the call boundary as raw bits in a GPR, bitcast to
// or from the float register on this side.
func (be *Backend) freadOp(in *uml.Instruction) {
	dst := be.bindFParam(in.P(0))
	addrP := be.bindIParam(in.P(1))
	space := int(in.P(2).Space)
	sz := int(in.Size)

	sp, ok := be.spaces[space]
	if !ok {
		panicGen(internalError("freadOp: unknown address space %d", space))
	}
	addr := be.selectRegister(Scratch0, 8, addrP)
	out := scratchF0
	if dst.kind == beFReg {
		out = dst.freg
	}
	be.memSlowPath(sp, sz, false, false, addr, asm.XZR, asm.XZR, Scratch2)
	be.afterCall()
	be.as.FmovFromGpr(widthFor(sz), out, Scratch2)
	if dst.kind != beFReg {
		be.movParamFReg(in.Size, dst, out)
	}
}

func (be *Backend) fwriteOp(in *uml.Instruction) {
	addrP := be.bindIParam(in.P(0))
	space := int(in.P(2).Space)
	sz := int(in.Size)

	sp, ok := be.spaces[space]
	if !ok {
		panicGen(internalError("fwriteOp: unknown address space %d", space))
	}
	addr := be.selectRegister(Scratch0, 8, addrP)
	src := be.selectFRegister(0, in.P(1))
	be.as.FmovToGpr(widthFor(sz), Scratch1, src)
	be.memSlowPath(sp, sz, true, false, addr, Scratch1, asm.XZR, 0)
	be.afterCall()
}

func (be *Backend) writeOp(in *uml.Instruction) {
	addrP := be.bindIParam(in.P(0))
	dataP := be.bindIParam(in.P(1))
	space := int(in.P(2).Space)
	masked := in.Op == uml.OpWRITEM

	addr := be.selectRegister(Scratch0, 8, addrP)
	data := be.selectRegister(Scratch1, int(in.Size), dataP)
	var maskReg asm.Reg = asm.XZR
	if masked {
		maskP := be.bindIParam(in.P(3))
		maskReg = be.selectRegister(Scratch2, 8, maskP)
	}
	be.memAccess(space, int(in.Size), true, masked, addr, data, maskReg, 0)
}
