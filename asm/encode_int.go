package asm

// Integer data-movement and ALU encodings. Bit layouts follow the
// AArch64 reference manual; the register-lookup-then-bit-math shape
// mirrors xyproto/c67's arm64_instructions.go (AddImm64, SubImm64,
// MovImm64 there cover three of the ~40 opcodes this file provides).

// MovReg emits MOV Xd, Xn / MOV Wd, Wn (alias for ORR with XZR).
func (a *Assembler) MovReg(w Width, dst, src Reg) {
	if err := checkReg(dst); err != nil {
		a.fail("%v", err)
		return
	}
	if err := checkReg(src); err != nil {
		a.fail("%v", err)
		return
	}
	instr := uint32(0x2a0003e0) | (w.sf() << 31) | (src.enc() << 16) | dst.enc()
	a.emit32(instr)
}

// MovzImm16 emits MOVZ Rd, #imm16, LSL #(shift*16).
func (a *Assembler) MovzImm16(w Width, dst Reg, imm uint16, shift uint32) {
	instr := uint32(0x52800000) | (w.sf() << 31) | (shift << 21) | (uint32(imm) << 5) | dst.enc()
	a.emit32(instr)
}

// MovkImm16 emits MOVK Rd, #imm16, LSL #(shift*16).
func (a *Assembler) MovkImm16(w Width, dst Reg, imm uint16, shift uint32) {
	instr := uint32(0x72800000) | (w.sf() << 31) | (shift << 21) | (uint32(imm) << 5) | dst.enc()
	a.emit32(instr)
}

// MovnImm16 emits MOVN Rd, #imm16, LSL #(shift*16) (Rd = ~(imm16<<shift)).
func (a *Assembler) MovnImm16(w Width, dst Reg, imm uint16, shift uint32) {
	instr := uint32(0x12800000) | (w.sf() << 31) | (shift << 21) | (uint32(imm) << 5) | dst.enc()
	a.emit32(instr)
}

// MovBitmaskImm emits a single MOV (logical immediate alias of ORR with
// XZR) when value is encodable as an AArch64 bitmask immediate. ok is
// false when no such encoding exists (caller falls back to MOVZ/MOVK or
// the peephole ladder in drcbe/immediate.go).
func (a *Assembler) MovBitmaskImm(w Width, dst Reg, value uint64) (ok bool) {
	n, immr, imms, found := encodeBitmaskImmediate(value, w)
	if !found {
		return false
	}
	instr := uint32(0x320003e0) | (w.sf() << 31) | (n << 22) | (immr << 16) | (imms << 10) | dst.enc()
	a.emit32(instr)
	return true
}

// addSubImm encodes the ADD/SUB (immediate) family. imm must fit 12 bits,
// optionally pre-shifted left by 12 (shift12=true).
func (a *Assembler) addSubImm(op uint32, setFlags bool, w Width, dst, src Reg, imm uint32, shift12 bool) {
	if imm > 0xfff {
		a.fail("asm: immediate %#x too large for add/sub (12-bit)", imm)
		return
	}
	s := uint32(0)
	if setFlags {
		s = 1
	}
	sh := uint32(0)
	if shift12 {
		sh = 1
	}
	instr := uint32(0x11000000) | (w.sf() << 31) | (op << 30) | (s << 29) | (sh << 22) | (imm << 10) | (src.enc() << 5) | dst.enc()
	a.emit32(instr)
}

func (a *Assembler) AddImm(w Width, dst, src Reg, imm uint32, shift12 bool)  { a.addSubImm(0, false, w, dst, src, imm, shift12) }
func (a *Assembler) AddsImm(w Width, dst, src Reg, imm uint32, shift12 bool) { a.addSubImm(0, true, w, dst, src, imm, shift12) }
func (a *Assembler) SubImm(w Width, dst, src Reg, imm uint32, shift12 bool)  { a.addSubImm(1, false, w, dst, src, imm, shift12) }
func (a *Assembler) SubsImm(w Width, dst, src Reg, imm uint32, shift12 bool) { a.addSubImm(1, true, w, dst, src, imm, shift12) }

// addSubReg encodes ADD/SUB (shifted register), shift in {0=LSL,1=LSR,2=ASR}.
func (a *Assembler) addSubReg(op uint32, setFlags bool, w Width, dst, src1, src2 Reg, shiftKind, amount uint32) {
	s := uint32(0)
	if setFlags {
		s = 1
	}
	instr := uint32(0x0b000000) | (w.sf() << 31) | (op << 30) | (s << 29) | (shiftKind << 22) | (src2.enc() << 16) | (amount << 10) | (src1.enc() << 5) | dst.enc()
	a.emit32(instr)
}

func (a *Assembler) AddReg(w Width, dst, src1, src2 Reg)  { a.addSubReg(0, false, w, dst, src1, src2, 0, 0) }
func (a *Assembler) AddsReg(w Width, dst, src1, src2 Reg) { a.addSubReg(0, true, w, dst, src1, src2, 0, 0) }
func (a *Assembler) SubReg(w Width, dst, src1, src2 Reg)  { a.addSubReg(1, false, w, dst, src1, src2, 0, 0) }
func (a *Assembler) SubsReg(w Width, dst, src1, src2 Reg) { a.addSubReg(1, true, w, dst, src1, src2, 0, 0) }

// CmpReg emits CMP (== SUBS with a discarded result).
func (a *Assembler) CmpReg(w Width, src1, src2 Reg) { a.SubsReg(w, XZR, src1, src2) }

// CmpImm emits CMP Rn, #imm.
func (a *Assembler) CmpImm(w Width, src Reg, imm uint32, shift12 bool) { a.SubsImm(w, XZR, src, imm, shift12) }

// AdcReg / SbcReg add/subtract with carry-in from the native flags (used
// to lower UML ADDC/SUBB once the emulated carry has been reloaded into
// native C by the flag-emulation subsystem).
func (a *Assembler) adcSbcReg(op uint32, setFlags bool, w Width, dst, src1, src2 Reg) {
	s := uint32(0)
	if setFlags {
		s = 1
	}
	instr := uint32(0x1a000000) | (w.sf() << 31) | (op << 30) | (s << 29) | (src2.enc() << 16) | (src1.enc() << 5) | dst.enc()
	a.emit32(instr)
}

func (a *Assembler) AdcReg(w Width, dst, src1, src2 Reg)  { a.adcSbcReg(0, false, w, dst, src1, src2) }
func (a *Assembler) AdcsReg(w Width, dst, src1, src2 Reg) { a.adcSbcReg(0, true, w, dst, src1, src2) }
func (a *Assembler) SbcReg(w Width, dst, src1, src2 Reg)  { a.adcSbcReg(1, false, w, dst, src1, src2) }
func (a *Assembler) SbcsReg(w Width, dst, src1, src2 Reg) { a.adcSbcReg(1, true, w, dst, src1, src2) }

// logicalReg encodes the AND/ORR/EOR/ANDS shifted-register family.
// opc: 0=AND,1=ORR,2=EOR,3=ANDS(also TST when dst==XZR).
func (a *Assembler) logicalReg(opc uint32, w Width, dst, src1, src2 Reg) {
	instr := uint32(0x0a000000) | (w.sf() << 31) | (opc << 29) | (src2.enc() << 16) | (src1.enc() << 5) | dst.enc()
	a.emit32(instr)
}

func (a *Assembler) AndReg(w Width, dst, src1, src2 Reg)  { a.logicalReg(0, w, dst, src1, src2) }
func (a *Assembler) OrrReg(w Width, dst, src1, src2 Reg)  { a.logicalReg(1, w, dst, src1, src2) }
func (a *Assembler) EorReg(w Width, dst, src1, src2 Reg)  { a.logicalReg(2, w, dst, src1, src2) }
func (a *Assembler) AndsReg(w Width, dst, src1, src2 Reg) { a.logicalReg(3, w, dst, src1, src2) }
func (a *Assembler) TstReg(w Width, src1, src2 Reg)       { a.AndsReg(w, XZR, src1, src2) }

// logicalImm encodes the AND/ORR/EOR/ANDS-immediate family using the
// bitmask-immediate encoder. ok is false if value has no such encoding.
func (a *Assembler) logicalImm(opc uint32, w Width, dst, src Reg, value uint64) (ok bool) {
	n, immr, imms, found := encodeBitmaskImmediate(value, w)
	if !found {
		return false
	}
	instr := uint32(0x12000000) | (w.sf() << 31) | (opc << 29) | (n << 22) | (immr << 16) | (imms << 10) | (src.enc() << 5) | dst.enc()
	a.emit32(instr)
	return true
}

func (a *Assembler) AndImm(w Width, dst, src Reg, v uint64) bool  { return a.logicalImm(0, w, dst, src, v) }
func (a *Assembler) OrrImm(w Width, dst, src Reg, v uint64) bool  { return a.logicalImm(1, w, dst, src, v) }
func (a *Assembler) EorImm(w Width, dst, src Reg, v uint64) bool  { return a.logicalImm(2, w, dst, src, v) }
func (a *Assembler) AndsImm(w Width, dst, src Reg, v uint64) bool { return a.logicalImm(3, w, dst, src, v) }
func (a *Assembler) TstImm(w Width, src Reg, v uint64) bool       { return a.AndsImm(w, XZR, src, v) }

// MvnReg emits MVN Rd, Rn (bitwise NOT, alias of ORN with XZR).
func (a *Assembler) MvnReg(w Width, dst, src Reg) {
	instr := uint32(0x2a2003e0) | (w.sf() << 31) | (src.enc() << 16) | dst.enc()
	a.emit32(instr)
}

// MulReg / multiply-high encodings.
func (a *Assembler) MulReg(w Width, dst, src1, src2 Reg) {
	instr := uint32(0x1b007c00) | (w.sf() << 31) | (src2.enc() << 16) | (src1.enc() << 5) | dst.enc()
	a.emit32(instr)
}

// UmulhReg/SmulhReg compute the high 64 bits of a 64x64 multiply (always
// 64-bit form; there is no 32-bit variant in the architecture).
func (a *Assembler) UmulhReg(dst, src1, src2 Reg) {
	instr := uint32(0x9bc07c00) | (src2.enc() << 16) | (src1.enc() << 5) | dst.enc()
	a.emit32(instr)
}
func (a *Assembler) SmulhReg(dst, src1, src2 Reg) {
	instr := uint32(0x9b407c00) | (src2.enc() << 16) | (src1.enc() << 5) | dst.enc()
	a.emit32(instr)
}

// UmullReg/SmullReg compute a 32x32->64 widening multiply via UMADDL/
// SMADDL with XZR as the addend (the architecture's canonical MULL idiom).
func (a *Assembler) UmullReg(dst, src1, src2 Reg) {
	instr := uint32(0x9ba07c00) | (src2.enc() << 16) | (XZR.enc() << 10) | (src1.enc() << 5) | dst.enc()
	a.emit32(instr)
}
func (a *Assembler) SmullReg(dst, src1, src2 Reg) {
	instr := uint32(0x9b207c00) | (src2.enc() << 16) | (XZR.enc() << 10) | (src1.enc() << 5) | dst.enc()
	a.emit32(instr)
}

// MsubReg emits MSUB Rd, Rn, Rm, Ra (Rd = Ra - Rn*Rm), used to compute the
// remainder after UDIV/SDIV.
func (a *Assembler) MsubReg(w Width, dst, src1, src2, addend Reg) {
	instr := uint32(0x1b008000) | (w.sf() << 31) | (src2.enc() << 16) | (addend.enc() << 10) | (src1.enc() << 5) | dst.enc()
	a.emit32(instr)
}

func (a *Assembler) UdivReg(w Width, dst, src1, src2 Reg) {
	instr := uint32(0x1ac00800) | (w.sf() << 31) | (src2.enc() << 16) | (src1.enc() << 5) | dst.enc()
	a.emit32(instr)
}
func (a *Assembler) SdivReg(w Width, dst, src1, src2 Reg) {
	instr := uint32(0x1ac00c00) | (w.sf() << 31) | (src2.enc() << 16) | (src1.enc() << 5) | dst.enc()
	a.emit32(instr)
}

// Shift-by-register encodings (LSLV/LSRV/ASRV/RORV); the variable-count
// shift/rotate path in drcbe masks the count to the register width first.
func (a *Assembler) shiftReg(opc uint32, w Width, dst, src, count Reg) {
	instr := uint32(0x1ac02000) | (w.sf() << 31) | (count.enc() << 16) | (opc << 10) | (src.enc() << 5) | dst.enc()
	a.emit32(instr)
}

func (a *Assembler) LslReg(w Width, dst, src, count Reg) { a.shiftReg(0, w, dst, src, count) }
func (a *Assembler) LsrReg(w Width, dst, src, count Reg) { a.shiftReg(1, w, dst, src, count) }
func (a *Assembler) AsrReg(w Width, dst, src, count Reg) { a.shiftReg(2, w, dst, src, count) }
func (a *Assembler) RorReg(w Width, dst, src, count Reg) { a.shiftReg(3, w, dst, src, count) }

// UbfmImm / bitfield-move-immediate family backs the immediate-shift and
// rotate forms (LSL/LSR/ASR/ROR #imm), plus UBFX/SBFX/BFI/BFXIL used by
// the carry-splicing and ROLINS/narrow-write lowerings.
func (a *Assembler) bitfieldImm(opc uint32, w Width, dst, src Reg, immr, imms uint32) {
	n := uint32(0)
	if w == W64 {
		n = 1
	}
	instr := uint32(0x13000000) | (w.sf() << 31) | (opc << 29) | (n << 22) | (immr << 16) | (imms << 10) | (src.enc() << 5) | dst.enc()
	a.emit32(instr)
}

// UbfxImm extracts a bitfield [lsb, lsb+width) into the low bits of dst,
// zero-extended.
func (a *Assembler) UbfxImm(w Width, dst, src Reg, lsb, width uint32) {
	a.bitfieldImm(2, w, dst, src, lsb, lsb+width-1)
}

// SbfxImm is UBFX's sign-extending sibling.
func (a *Assembler) SbfxImm(w Width, dst, src Reg, lsb, width uint32) {
	a.bitfieldImm(0, w, dst, src, lsb, lsb+width-1)
}

// BfiImm inserts the low `width` bits of src into dst at bit position
// lsb, leaving the rest of dst unchanged (opc=1, BFM with destination
// preserved per the architecture's BFI pseudo-encoding: immr = -lsb mod
// regsize, imms = width-1).
func (a *Assembler) BfiImm(w Width, dst, src Reg, lsb, width uint32) {
	regsize := uint32(32)
	if w == W64 {
		regsize = 64
	}
	immr := (regsize - lsb) % regsize
	a.bitfieldImm(1, w, dst, src, immr, width-1)
}

// BfxilImm extracts [lsb, lsb+width) from src into the low bits of dst,
// leaving dst's upper bits unchanged.
func (a *Assembler) BfxilImm(w Width, dst, src Reg, lsb, width uint32) {
	a.bitfieldImm(1, w, dst, src, lsb, lsb+width-1)
}

// LslImm/LsrImm/AsrImm/RorImm are immediate-shift conveniences built on
// the bitfield-move and extract-register encodings.
func (a *Assembler) LslImm(w Width, dst, src Reg, shift uint32) {
	regsize := uint32(32)
	if w == W64 {
		regsize = 64
	}
	a.bitfieldImm(1, w, dst, src, (regsize-shift)%regsize, regsize-1-shift)
}

func (a *Assembler) LsrImm(w Width, dst, src Reg, shift uint32) {
	regsize := uint32(32)
	if w == W64 {
		regsize = 64
	}
	a.bitfieldImm(2, w, dst, src, shift, regsize-1)
}

func (a *Assembler) AsrImm(w Width, dst, src Reg, shift uint32) {
	regsize := uint32(32)
	if w == W64 {
		regsize = 64
	}
	a.bitfieldImm(0, w, dst, src, shift, regsize-1)
}

// RorImm emits EXTR Rd, Rn, Rn, #shift (the architecture's rotate-right-
// immediate idiom: there is no dedicated ROR-immediate opcode).
func (a *Assembler) RorImm(w Width, dst, src Reg, shift uint32) {
	n := uint32(0)
	if w == W64 {
		n = 1
	}
	instr := uint32(0x13800000) | (w.sf() << 31) | (n << 22) | (src.enc() << 16) | (shift << 10) | (src.enc() << 5) | dst.enc()
	a.emit32(instr)
}

// RbitReg reverses bit order (used for TZCNT via CLZ-of-reversed).
func (a *Assembler) RbitReg(w Width, dst, src Reg) {
	instr := uint32(0x5ac00000) | (w.sf() << 31) | (src.enc() << 5) | dst.enc()
	a.emit32(instr)
}

// ClzReg counts leading zeros (directly backs LZCNT).
func (a *Assembler) ClzReg(w Width, dst, src Reg) {
	instr := uint32(0x5ac01000) | (w.sf() << 31) | (src.enc() << 5) | dst.enc()
	a.emit32(instr)
}

// RevReg reverses byte order across the full register width (BSWAP).
func (a *Assembler) RevReg(w Width, dst, src Reg) {
	if w == W64 {
		instr := uint32(0xdac00c00) | (src.enc() << 5) | dst.enc()
		a.emit32(instr)
		return
	}
	instr := uint32(0x5ac00800) | (src.enc() << 5) | dst.enc()
	a.emit32(instr)
}

// CsetReg emits CSET Rd, cond (Rd = 1 if cond else 0), used to pull a
// single native flag bit into a GPR for the carry/unordered emulation
// and for the SET opcode's per-condition bit.
func (a *Assembler) CsetReg(w Width, dst Reg, cond CondCode) {
	instr := uint32(0x1a9f07e0) | (w.sf() << 31) | (invertCond(cond) << 12) | dst.enc()
	a.emit32(instr)
}

// CselReg emits CSEL Rd, Rn, Rm, cond.
func (a *Assembler) CselReg(w Width, dst, src1, src2 Reg, cond CondCode) {
	instr := uint32(0x1a800000) | (w.sf() << 31) | (src2.enc() << 16) | (uint32(cond) << 12) | (src1.enc() << 5) | dst.enc()
	a.emit32(instr)
}

// CcmpImmReg emits CCMP Rn, #imm, #nzcv, cond — compare only if cond
// holds, else force the flags to the literal nzcv.
func (a *Assembler) CcmpImmReg(w Width, src Reg, imm uint32, nzcv uint32, cond CondCode) {
	instr := uint32(0x7a400800) | (w.sf() << 31) | (imm << 16) | (uint32(cond) << 12) | (src.enc() << 5) | nzcv
	a.emit32(instr)
}

// Nop emits NOP.
func (a *Assembler) Nop() { a.emit32(0xd503201f) }

// MrsNZCV emits MRS Xt, NZCV, reading the whole condition-flags system
// register into rt.
func (a *Assembler) MrsNZCV(rt Reg) { a.emit32(0xd53b4200 | rt.enc()) }

// MsrNZCV emits MSR NZCV, Xt, writing rt back to the condition-flags
// system register.
func (a *Assembler) MsrNZCV(rt Reg) { a.emit32(0xd51b4200 | rt.enc()) }
