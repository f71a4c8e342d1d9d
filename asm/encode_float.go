package asm

// Scalar float encodings backing the float ALU lowering:
// fadd/fsub/fmul/fdiv/fneg/fabs/fsqrt/frecip/frsqrt, compare, convert,
// and round. `ftype` selects single (0) vs double (1) precision exactly
// as the architecture's `ftype` field does.

func (w FWidth) ftype() uint32 { return uint32(w) }

func (a *Assembler) fpDataProc2Src(opcode uint32, w FWidth, dst, src1, src2 FReg) {
	instr := uint32(0x1e200800) | (w.ftype() << 22) | (src2.enc() << 16) | (opcode << 12) | (src1.enc() << 5) | dst.enc()
	a.emit32(instr)
}

func (a *Assembler) FaddReg(w FWidth, dst, src1, src2 FReg) { a.fpDataProc2Src(0x2, w, dst, src1, src2) }
func (a *Assembler) FsubReg(w FWidth, dst, src1, src2 FReg) { a.fpDataProc2Src(0x3, w, dst, src1, src2) }
func (a *Assembler) FmulReg(w FWidth, dst, src1, src2 FReg) { a.fpDataProc2Src(0x0, w, dst, src1, src2) }
func (a *Assembler) FdivReg(w FWidth, dst, src1, src2 FReg) { a.fpDataProc2Src(0x1, w, dst, src1, src2) }

func (a *Assembler) fpDataProc1Src(opcode uint32, w FWidth, dst, src FReg) {
	instr := uint32(0x1e204000) | (w.ftype() << 22) | (opcode << 15) | (src.enc() << 5) | dst.enc()
	a.emit32(instr)
}

func (a *Assembler) FnegReg(w FWidth, dst, src FReg)  { a.fpDataProc1Src(0x2, w, dst, src) }
func (a *Assembler) FabsReg(w FWidth, dst, src FReg)  { a.fpDataProc1Src(0x1, w, dst, src) }
func (a *Assembler) FsqrtReg(w FWidth, dst, src FReg) { a.fpDataProc1Src(0x3, w, dst, src) }

// FrecpeReg/FrsqrteReg emit the single-step reciprocal / reciprocal-
// square-root *estimate* instructions; UML's FRECIP/FRSQRT are specified
// as the estimate (not a fully-rounded divide), matching what these
// encode (advanced SIMD scalar, two-register-misc, size from ftype).
func (a *Assembler) FrecpeReg(w FWidth, dst, src FReg) {
	sz := w.ftype()
	instr := uint32(0x5ea1d800) | (sz << 22) | (src.enc() << 5) | dst.enc()
	a.emit32(instr)
}
func (a *Assembler) FrsqrteReg(w FWidth, dst, src FReg) {
	sz := w.ftype()
	instr := uint32(0x7ea1d800) | (sz << 22) | (src.enc() << 5) | dst.enc()
	a.emit32(instr)
}

// FcmpReg emits FCMP Sn/Dn, Sm/Dm (sets native NZCV per IEEE compare
// semantics, including the all-set "unordered" pattern NZCV=0011 that
// the U-flag emulation in drcbe/flags.go reads back from).
func (a *Assembler) FcmpReg(w FWidth, src1, src2 FReg) {
	instr := uint32(0x1e202000) | (w.ftype() << 22) | (src2.enc() << 16) | (src1.enc() << 5)
	a.emit32(instr)
}

// FcmpZero emits FCMP Sn/Dn, #0.0.
func (a *Assembler) FcmpZero(w FWidth, src FReg) {
	instr := uint32(0x1e202008) | (w.ftype() << 22) | (src.enc() << 5)
	a.emit32(instr)
}

// FmovFReg emits FMOV Sd/Dd, Sn/Dn (register-to-register float move).
func (a *Assembler) FmovFReg(w FWidth, dst, src FReg) {
	instr := uint32(0x1e204000) | (w.ftype() << 22) | (src.enc() << 5) | dst.enc()
	a.emit32(instr)
}

// FmovToGpr/FmovFromGpr copy raw bits between a float register and a GPR
// at matching width — FCOPYI/ICOPYF's entire implementation.
func (a *Assembler) FmovToGpr(w Width, dst Reg, src FReg) {
	sf := w.sf()
	ftype := uint32(0)
	if w == W64 {
		ftype = 1
	}
	instr := uint32(0x1e260000) | (sf << 31) | (ftype << 22) | (src.enc() << 5) | dst.enc()
	a.emit32(instr)
}
func (a *Assembler) FmovFromGpr(w Width, dst FReg, src Reg) {
	sf := w.sf()
	ftype := uint32(0)
	if w == W64 {
		ftype = 1
	}
	instr := uint32(0x1e270000) | (sf << 31) | (ftype << 22) | (src.enc() << 5) | dst.enc()
	a.emit32(instr)
}

// FcvtNarrow narrows D->S (FCVT Sd, Dn); FcvtWiden below widens S->D
// (FCVT Dd, Sn). Together they back FRNDS's "fcvt d->s; fcvt s->d" and
// general UML float-width conversions.
func (a *Assembler) FcvtNarrow(dst, src FReg) { // D -> S
	instr := uint32(0x1e624000) | (src.enc() << 5) | dst.enc()
	a.emit32(instr)
}
func (a *Assembler) FcvtWiden(dst, src FReg) { // S -> D
	instr := uint32(0x1e22c000) | (src.enc() << 5) | dst.enc()
	a.emit32(instr)
}

// FcvtRound emits the float-to-integer conversion instruction for one of
// the architecture's four rounding submodes (nearest, toward +inf,
// toward -inf, toward zero), signed or unsigned — the entire
// implementation of UML's FTOINT round-mode selector.
func (a *Assembler) FcvtRound(mode FcvtMode, signed bool, w Width, fw FWidth, dst Reg, src FReg) {
	s := uint32(0)
	if !signed {
		s = 1
	}
	instr := uint32(0x1e200000) | (w.sf() << 31) | (fw.ftype() << 22) | (uint32(mode) << 19) | (s << 16) | (src.enc() << 5) | dst.enc()
	a.emit32(instr)
}

// FcvtMode selects the rounding submode field (bits 20:19) of the
// FCVT*S/FCVT*U float-to-integer conversion instructions.
type FcvtMode uint32

const (
	FcvtNearest FcvtMode = 0 // FCVTN_
	FcvtPlusInf FcvtMode = 1 // FCVTP_ (round up / toward +inf)
	FcvtMinusInf FcvtMode = 2 // FCVTM_ (round down / toward -inf)
	FcvtZero    FcvtMode = 3 // FCVTZ_ (truncate)
)

// ScvtfReg/UcvtfReg convert a signed/unsigned integer register to float.
func (a *Assembler) ScvtfReg(w Width, fw FWidth, dst FReg, src Reg) {
	instr := uint32(0x1e220000) | (w.sf() << 31) | (fw.ftype() << 22) | (src.enc() << 5) | dst.enc()
	a.emit32(instr)
}
func (a *Assembler) UcvtfReg(w Width, fw FWidth, dst FReg, src Reg) {
	instr := uint32(0x1e230000) | (w.sf() << 31) | (fw.ftype() << 22) | (src.enc() << 5) | dst.enc()
	a.emit32(instr)
}

// FmovImm emits FMOV Sd/Dd, #imm for the small set of float constants
// the architecture can encode directly (used when a UML float constant
// happens to match; the general case routes through ICOPYF of a
// materialized integer bit pattern).
func (a *Assembler) FmovImm(w FWidth, dst FReg, imm8 uint32) {
	instr := uint32(0x1e201000) | (w.ftype() << 22) | (imm8 << 13) | dst.enc()
	a.emit32(instr)
}
