package asm

import "fmt"

// Load/store and PC-relative address encodings, covering the ladder used
// to materialize constants and addresses: single-move, PC-relative
// (ADR), base-relative (ADD/SUB, in encode_int.go), page-relative
// (ADRP+ADD), and indexed LDR/STR for the memory-reference variant.

// sizeBits maps a load/store element size in bytes to the instruction's
// 2-bit `size` field (00=byte,01=half,10=word,11=double).
func sizeBits(bytes int) (uint32, error) {
	switch bytes {
	case 1:
		return 0, nil
	case 2:
		return 1, nil
	case 4:
		return 2, nil
	case 8:
		return 3, nil
	default:
		return 0, fmt.Errorf("asm: invalid load/store size %d", bytes)
	}
}

// LdrImm/StrImm emit LDR/STR Rt, [Rn, #offset] using the unsigned,
// scaled 12-bit immediate form. offset must be a non-negative multiple
// of the element size within [0, 4095*size]; callers needing negative or
// unaligned offsets use LdurImm/SturImm instead.
func (a *Assembler) LdrImm(sizeBytes int, rt, rn Reg, offset int32) {
	a.ldrStrImm(1, sizeBytes, rt, rn, offset)
}
func (a *Assembler) StrImm(sizeBytes int, rt, rn Reg, offset int32) {
	a.ldrStrImm(0, sizeBytes, rt, rn, offset)
}

func (a *Assembler) ldrStrImm(isLoad uint32, sizeBytes int, rt, rn Reg, offset int32) {
	sz, err := sizeBits(sizeBytes)
	if err != nil {
		a.fail("%v", err)
		return
	}
	if offset < 0 || offset%int32(sizeBytes) != 0 || offset/int32(sizeBytes) > 0xfff {
		a.fail("asm: ldr/str offset %d out of range for size %d", offset, sizeBytes)
		return
	}
	imm12 := uint32(offset / int32(sizeBytes))
	instr := uint32(0x39000000) | (sz << 30) | (isLoad << 22) | (imm12 << 10) | (rn.enc() << 5) | rt.enc()
	a.emit32(instr)
}

// LdurImm/SturImm emit the unscaled-offset forms (STUR/LDUR), valid for
// any 9-bit signed byte offset regardless of element size — used for
// negative base-relative displacements.
func (a *Assembler) LdurImm(sizeBytes int, rt, rn Reg, offset int32) {
	a.ldurSturImm(1, sizeBytes, rt, rn, offset)
}
func (a *Assembler) SturImm(sizeBytes int, rt, rn Reg, offset int32) {
	a.ldurSturImm(0, sizeBytes, rt, rn, offset)
}

func (a *Assembler) ldurSturImm(isLoad uint32, sizeBytes int, rt, rn Reg, offset int32) {
	sz, err := sizeBits(sizeBytes)
	if err != nil {
		a.fail("%v", err)
		return
	}
	if offset < -256 || offset > 255 {
		a.fail("asm: ldur/stur offset %d out of 9-bit range", offset)
		return
	}
	imm9 := uint32(offset) & 0x1ff
	instr := uint32(0x38000000) | (sz << 30) | (isLoad << 22) | (imm9 << 12) | (rn.enc() << 5) | rt.enc()
	a.emit32(instr)
}

// LdrRegOffset/StrRegOffset emit LDR/STR Rt, [Rn, Rm, LSL #shift] — the
// register-indexed form the dispatch-table load uses once the masked
// address has been computed into a register.
func (a *Assembler) LdrRegOffset(sizeBytes int, rt, rn, rm Reg, lslShift uint32) {
	a.ldrStrRegOffset(1, sizeBytes, rt, rn, rm, lslShift)
}
func (a *Assembler) StrRegOffset(sizeBytes int, rt, rn, rm Reg, lslShift uint32) {
	a.ldrStrRegOffset(0, sizeBytes, rt, rn, rm, lslShift)
}

func (a *Assembler) ldrStrRegOffset(isLoad uint32, sizeBytes int, rt, rn, rm Reg, lslShift uint32) {
	sz, err := sizeBits(sizeBytes)
	if err != nil {
		a.fail("%v", err)
		return
	}
	s := uint32(0)
	if lslShift != 0 {
		s = 1
	}
	instr := uint32(0x38206800) | (sz << 30) | (isLoad << 22) | (rm.enc() << 16) | (s << 12) | (rn.enc() << 5) | rt.enc()
	a.emit32(instr)
}

// LdpImm64/StpImm64 emit LDP/STP Xt1, Xt2, [Xn, #offset] (signed,
// 7-bit-scaled-by-8 immediate) — the frame-pointer/link-register pair
// pushes and pops that back HANDLE's mini-frame and the entry/exit
// trampolines' callee-saved spill.
func (a *Assembler) StpImm64(rt1, rt2, rn Reg, offset int32) {
	a.ldpStpImm64(0, rt1, rt2, rn, offset)
}
func (a *Assembler) LdpImm64(rt1, rt2, rn Reg, offset int32) {
	a.ldpStpImm64(1, rt1, rt2, rn, offset)
}

func (a *Assembler) ldpStpImm64(isLoad uint32, rt1, rt2, rn Reg, offset int32) {
	if offset%8 != 0 || offset/8 < -64 || offset/8 > 63 {
		a.fail("asm: ldp/stp offset %d out of range", offset)
		return
	}
	imm7 := uint32(offset/8) & 0x7f
	instr := uint32(0xa9000000) | (isLoad << 22) | (imm7 << 15) | (rt2.enc() << 10) | (rn.enc() << 5) | rt1.enc()
	a.emit32(instr)
}

// StpImm64F/LdpImm64F are StpImm64/LdpImm64's SIMD&FP siblings: STP/LDP
// Dt1, Dt2, [Xn, #offset], used to spill/reload a pair of 64-bit float
// registers across a call the same way the GPR pair form spills
// callee-saved integer registers.
func (a *Assembler) StpImm64F(rt1, rt2 FReg, rn Reg, offset int32) {
	a.ldpStpImm64F(0, rt1, rt2, rn, offset)
}
func (a *Assembler) LdpImm64F(rt1, rt2 FReg, rn Reg, offset int32) {
	a.ldpStpImm64F(1, rt1, rt2, rn, offset)
}

func (a *Assembler) ldpStpImm64F(isLoad uint32, rt1, rt2 FReg, rn Reg, offset int32) {
	if offset%8 != 0 || offset/8 < -64 || offset/8 > 63 {
		a.fail("asm: ldp/stp offset %d out of range", offset)
		return
	}
	imm7 := uint32(offset/8) & 0x7f
	instr := uint32(0x6d000000) | (isLoad << 22) | (imm7 << 15) | (rt2.enc() << 10) | (rn.enc() << 5) | rt1.enc()
	a.emit32(instr)
}

// StpPreIndex64/LdpPostIndex64 cover the pre-decrement push / post-
// increment pop idiom the entry trampoline uses for the callee-saved
// register file: STP X_n, X_n+1, [SP, #-16]! and LDP ..., [SP], #16.
func (a *Assembler) StpPreIndex64(rt1, rt2, rn Reg, offset int32) {
	imm7 := uint32(offset/8) & 0x7f
	instr := uint32(0xa9800000) | (imm7 << 15) | (rt2.enc() << 10) | (rn.enc() << 5) | rt1.enc()
	a.emit32(instr)
}
func (a *Assembler) LdpPostIndex64(rt1, rt2, rn Reg, offset int32) {
	imm7 := uint32(offset/8) & 0x7f
	instr := uint32(0xa8c00000) | (imm7 << 15) | (rt2.enc() << 10) | (rn.enc() << 5) | rt1.enc()
	a.emit32(instr)
}

// LdrLiteralLabel emits LDR Rt, label (PC-relative literal load) against
// a label that may not be bound yet; w selects a 32- or 64-bit load.
func (a *Assembler) LdrLiteralLabel(w Width, rt Reg, l Label) {
	opc := uint32(0)
	if w == W64 {
		opc = 1
	}
	a.emit32Fixup(l, FixupLiteral19, 0x18000000|(opc<<30)|rt.enc())
}

// AdrLabel emits ADR Rd, label (PC-relative address-of, ±1MiB).
func (a *Assembler) AdrLabel(rd Reg, l Label) {
	a.emit32Fixup(l, FixupBranch19, 0x10000000|rd.enc())
}

// AdrpLabel emits ADRP Rd, label (PC-relative page address, ±4GiB).
func (a *Assembler) AdrpLabel(rd Reg, l Label) {
	a.emit32Fixup(l, FixupAdrp21, 0x90000000|rd.enc())
}
