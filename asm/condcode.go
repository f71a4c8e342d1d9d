package asm

// CondCode is the native AArch64 4-bit condition field, as distinct from
// uml.Condition: the back-end's flag-emulation subsystem (drcbe/flags.go)
// maps a UML Condition plus the current carry-state to one of these.
type CondCode uint32

const (
	CondEQ CondCode = 0x0
	CondNE CondCode = 0x1
	CondCS CondCode = 0x2 // carry set / unsigned >=
	CondCC CondCode = 0x3 // carry clear / unsigned <
	CondMI CondCode = 0x4 // negative
	CondPL CondCode = 0x5 // positive or zero
	CondVS CondCode = 0x6 // overflow set
	CondVC CondCode = 0x7 // overflow clear
	CondHI CondCode = 0x8 // unsigned >
	CondLS CondCode = 0x9 // unsigned <=
	CondGE CondCode = 0xa // signed >=
	CondLT CondCode = 0xb // signed <
	CondGT CondCode = 0xc // signed >
	CondLE CondCode = 0xd // signed <=
	CondAL CondCode = 0xe // always
)

// invertCond flips a condition's sense (used by CSET, which the
// architecture defines in terms of the inverted condition internally).
func invertCond(c CondCode) uint32 {
	return uint32(c ^ 1)
}
