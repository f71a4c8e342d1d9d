package asm

import "fmt"

// Reg identifies a host AArch64 register. Integer registers are encoded
// 0..31 (31 is either XZR or SP depending on instruction context, exactly
// as the architecture overloads it); float/vector registers reuse the
// same numeric space with a separate Go type so the two families can't be
// mixed up by accident at a call site.
type Reg uint8

const (
	X0 Reg = iota
	X1
	X2
	X3
	X4
	X5
	X6
	X7
	X8
	X9
	X10
	X11
	X12
	X13
	X14
	X15
	X16
	X17
	X18
	X19
	X20
	X21
	X22
	X23
	X24
	X25
	X26
	X27
	X28
	X29 // frame pointer
	X30 // link register
	XZR // encodes as 31; SP when used as a base register
)

// SP is XZR's encoding reused as a base register; kept as a distinct name
// for call-site clarity only.
const SP = XZR

// FReg identifies a host AArch64 SIMD/FP register (V0..V31), used at
// whichever width (S, D) the surrounding opcode requests.
type FReg uint8

const (
	V0 FReg = iota
	V1
	V2
	V3
	V4
	V5
	V6
	V7
	V8
	V9
	V10
	V11
	V12
	V13
	V14
	V15
	V16
	V17
	V18
	V19
	V20
	V21
	V22
	V23
	V24
	V25
	V26
	V27
	V28
	V29
	V30
	V31
)

func (r Reg) enc() uint32 { return uint32(r) & 0x1f }
func (r FReg) enc() uint32 { return uint32(r) & 0x1f }

func checkReg(r Reg) error {
	if r > XZR {
		return fmt.Errorf("asm: invalid integer register %d", r)
	}
	return nil
}

func checkFReg(r FReg) error {
	if r > V31 {
		return fmt.Errorf("asm: invalid float register %d", r)
	}
	return nil
}

// Width distinguishes the 32-bit (W) and 64-bit (X) instruction variants.
type Width uint8

const (
	W32 Width = 0
	W64 Width = 1
)

func (w Width) sf() uint32 {
	if w == W64 {
		return 1
	}
	return 0
}

// FWidth distinguishes single- and double-precision scalar float ops.
type FWidth uint8

const (
	FSingle FWidth = 0
	FDouble FWidth = 1
)
