package asm

// Branch and call encodings. Forward branches within a block go through
// the label/fixup machinery in assembler.go; branches to an already-known
// host address (a resolved handle, a direct call target) are emitted
// immediately with BImm/BlImm once the caller has computed the PC-
// relative delta itself.

// BLabel emits an unconditional branch to a not-yet-bound label.
func (a *Assembler) BLabel(l Label) {
	a.emit32Fixup(l, FixupBranch26, 0x14000000)
}

// BlLabel emits BL to a not-yet-bound label (branch-and-link, used for
// intra-block calls the generator controls, not CALLH's handle dispatch).
func (a *Assembler) BlLabel(l Label) {
	a.emit32Fixup(l, FixupBranch26, 0x94000000)
}

// BImm/BlImm emit B/BL to an already-known PC-relative word offset.
func (a *Assembler) BImm(wordOffset int32) {
	a.emit32(0x14000000 | (uint32(wordOffset) & 0x3ffffff))
}
func (a *Assembler) BlImm(wordOffset int32) {
	a.emit32(0x94000000 | (uint32(wordOffset) & 0x3ffffff))
}

// BCondLabel emits B.cond to a not-yet-bound label.
func (a *Assembler) BCondLabel(cond CondCode, l Label) {
	a.emit32Fixup(l, FixupBranch19, 0x54000000|uint32(cond))
}

// CbzLabel/CbnzLabel emit CBZ/CBNZ Rt, label.
func (a *Assembler) CbzLabel(w Width, rt Reg, l Label) {
	a.emit32Fixup(l, FixupBranch19, 0x34000000|(w.sf()<<31)|rt.enc())
}
func (a *Assembler) CbnzLabel(w Width, rt Reg, l Label) {
	a.emit32Fixup(l, FixupBranch19, 0x35000000|(w.sf()<<31)|rt.enc())
}

// TbzLabel/TbnzLabel emit TBZ/TBNZ Rt, #bit, label — the "test-and-branch
// on emulated-flag bit" lowering used when a condition depends on a bit
// sitting in the emulated-flags word while carry-state is POISON.
func (a *Assembler) TbzLabel(rt Reg, bit uint32, l Label) {
	b5 := (bit >> 5) & 1
	b40 := bit & 0x1f
	a.emit32Fixup(l, FixupBranch14, 0x36000000|(b5<<31)|(b40<<19)|rt.enc())
}
func (a *Assembler) TbnzLabel(rt Reg, bit uint32, l Label) {
	b5 := (bit >> 5) & 1
	b40 := bit & 0x1f
	a.emit32Fixup(l, FixupBranch14, 0x37000000|(b5<<31)|(b40<<19)|rt.enc())
}

// BrReg/BlrReg emit an indirect branch/call through a register — the
// hash-jump and handle-through-pointer-cell dispatch paths.
func (a *Assembler) BrReg(rn Reg) {
	a.emit32(0xd61f0000 | (rn.enc() << 5))
}
func (a *Assembler) BlrReg(rn Reg) {
	a.emit32(0xd63f0000 | (rn.enc() << 5))
}

// Ret emits RET (defaults to X30/LR).
func (a *Assembler) Ret() {
	a.emit32(0xd65f0000 | (X30.enc() << 5))
}

// RetReg emits RET Rn for a non-default link register.
func (a *Assembler) RetReg(rn Reg) {
	a.emit32(0xd65f0000 | (rn.enc() << 5))
}
