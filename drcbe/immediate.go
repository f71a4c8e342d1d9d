package drcbe

import "github.com/xyproto/drcarm64/asm"

// movImmToReg implements a priority ladder for materializing an
// arbitrary 64-bit constant into dst.
func (be *Backend) movImmToReg(w asm.Width, dst asm.Reg, value uint64) {
	if w == asm.W32 {
		value &= 0xffffffff
	}

	if be.as.MovBitmaskImm(w, dst, value) {
		return
	}
	if nz := nonZeroLanes(value, w); nz <= 1 {
		be.movSingleLane(w, dst, value)
		return
	}
	if nz := nonZeroLanes(^value, w); nz <= 1 {
		lane, ok := singleNonZeroLane(^value, w)
		if !ok {
			lane = 0
		}
		be.as.MovnImm16(w, dst, uint16((^value)>>(16*lane)), uint32(lane))
		return
	}

	// The ladder has no PC-relative or page-relative rung: code addresses
	// (the exit trampoline, handle targets, hash hits) arrive here as raw
	// values like any other constant. The base-relative rung below is the
	// only one that measures against a fixed anchor, the near region.
	if delta, ok := fitsAddSubImm(value, be.cachePseudoBase()); ok {
		mag := delta
		if mag < 0 {
			mag = -mag
		}
		shifted := mag >= 1<<12
		if shifted {
			mag >>= 12 // AddImm/SubImm take the pre-shifted value
		}
		be.as.MovReg(w, dst, BaseReg)
		if delta >= 0 {
			be.as.AddImm(w, dst, dst, uint32(mag), shifted)
		} else {
			be.as.SubImm(w, dst, dst, uint32(mag), shifted)
		}
		return
	}

	be.movFourLanes(w, dst, value)
}

// movSingleLane emits a single movz at whichever 16-bit lane is
// non-zero (or an all-zero movz #0 when value is exactly zero).
func (be *Backend) movSingleLane(w asm.Width, dst asm.Reg, value uint64) {
	lane, ok := singleNonZeroLane(value, w)
	if !ok {
		be.as.MovzImm16(w, dst, 0, 0)
		return
	}
	be.as.MovzImm16(w, dst, uint16(value>>(16*lane)), uint32(lane))
}

// movFourLanes is the fallback of last resort: up to four movz/movk.
func (be *Backend) movFourLanes(w asm.Width, dst asm.Reg, value uint64) {
	lanes := 4
	if w == asm.W32 {
		lanes = 2
	}
	first := true
	for i := 0; i < lanes; i++ {
		lane := uint16(value >> (16 * i))
		if lane == 0 && !first {
			continue
		}
		if first {
			be.as.MovzImm16(w, dst, lane, uint32(i))
			first = false
		} else {
			be.as.MovkImm16(w, dst, lane, uint32(i))
		}
	}
	if first {
		be.as.MovzImm16(w, dst, 0, 0)
	}
}

func nonZeroLanes(v uint64, w asm.Width) int {
	lanes := 4
	if w == asm.W32 {
		lanes = 2
	}
	n := 0
	for i := 0; i < lanes; i++ {
		if (v>>(16*i))&0xffff != 0 {
			n++
		}
	}
	return n
}

func singleNonZeroLane(v uint64, w asm.Width) (int, bool) {
	lanes := 4
	if w == asm.W32 {
		lanes = 2
	}
	found, idx := -1, 0
	for i := 0; i < lanes; i++ {
		if (v>>(16*i))&0xffff != 0 {
			if found >= 0 {
				return 0, false
			}
			found, idx = i, i
		}
	}
	if found < 0 {
		return 0, false
	}
	return idx, true
}

// fitsAddSubImm reports whether value-base fits a 12-bit unsigned
// immediate, optionally shifted left by 12, returning the signed delta
// so the caller can pick add vs sub.
func fitsAddSubImm(value uint64, base uintptr) (int64, bool) {
	delta := int64(value) - int64(base)
	mag := delta
	if mag < 0 {
		mag = -mag
	}
	if mag < (1 << 12) {
		return delta, true
	}
	if mag < (1<<12)<<12 && mag&0xfff == 0 {
		return delta, true
	}
	return 0, false
}

// materializeMemRef emits the load/store-address ladder, resolving ptr
// into a register suitable for an
// LdrImm/StrImm-style access at the given element size, returning that
// register and the immediate offset to use (always 0 unless the
// base-relative path was chosen).
func (be *Backend) materializeMemRef(scratch asm.Reg, ptr uintptr, elemSize int) (asm.Reg, int32) {
	if delta, ok := fitsAddSubImm(uint64(ptr), be.cachePseudoBase()); ok && delta >= 0 && delta%int64(elemSize) == 0 && delta/int64(elemSize) <= 0xfff {
		return BaseReg, int32(delta)
	}
	be.movImmToReg(asm.W64, scratch, uint64(ptr))
	return scratch, 0
}

// materializeAbsAddr resolves ptr into a single register holding the full
// absolute address, folding materializeMemRef's base-relative offset in
// with an add when one applies rather than leaving it for the caller to
// carry separately — for addressing modes (FLOAD/FSTORE's scaled
// register index) that have no immediate-offset field of their own to
// fold it into.
func (be *Backend) materializeAbsAddr(scratch asm.Reg, ptr uintptr) asm.Reg {
	reg, off := be.materializeMemRef(scratch, ptr, 1)
	if off == 0 {
		return reg
	}
	be.as.AddImm(asm.W64, scratch, reg, uint32(off), off >= 1<<12)
	return scratch
}

// cachePseudoBase is the address BaseReg is loaded with at block entry
// (the near region — see controlflow.go's entry trampoline), against
// which base-relative materialization is measured.
func (be *Backend) cachePseudoBase() uintptr { return be.near }
