// Package asm is the machine-code assembler collaborator the back-end
// consumes: it accepts AArch64 mnemonics and operands, produces bytes,
// and supports labels and fixups for forward references within a block.
//
// Structurally this follows launix-de-memcp's scm.JITWriter (label table
// plus a deferred fixup list resolved once all labels are placed) but the
// instruction encoders themselves are written from the AArch64 reference
// manual's bit layouts, in the register-table-plus-bit-math style
// xyproto/c67's arm64_instructions.go uses for the handful of opcodes it
// implements.
package asm

import (
	"encoding/binary"
	"fmt"
)

// Label is an opaque forward-reference target within the instruction
// stream currently being assembled.
type Label int

const labelUnbound = -1

// FixupKind distinguishes the bit-field shape of a pending relocation.
type FixupKind int

const (
	FixupBranch26  FixupKind = iota // B, BL: imm26, word-aligned
	FixupBranch19        // B.cond, CBZ/CBNZ: imm19, word-aligned
	FixupBranch14        // TBZ/TBNZ: imm14, word-aligned
	FixupLiteral19       // LDR (literal): imm19, word-aligned
	FixupAdrp21          // ADRP: imm21 relative to the page
)

type fixup struct {
	pos   int // byte offset of the instruction to patch
	label Label
	kind  FixupKind
}

// Assembler accumulates AArch64 instructions into a byte buffer, tracking
// labels and the fixups that reference them so forward branches can be
// emitted before their target is known and patched once it is.
type Assembler struct {
	buf    []byte
	base   uintptr // host address buf[0] will eventually occupy, set by the caller before Bytes
	labels []int   // label id -> byte offset, labelUnbound until Bind
	fixups []fixup
	errs   []error
}

// NewAssembler returns an empty assembler ready to emit into a fresh
// block. Reuse across blocks by calling Reset instead of allocating a new
// one, to avoid growing garbage on every generate() call.
func NewAssembler() *Assembler {
	return &Assembler{buf: make([]byte, 0, 256)}
}

// Reset clears the assembler for reuse on the next block.
func (a *Assembler) Reset() {
	a.buf = a.buf[:0]
	a.labels = a.labels[:0]
	a.fixups = a.fixups[:0]
	a.errs = a.errs[:0]
	a.base = 0
}

// SetBase records the host address the first emitted byte will occupy.
// Needed before PC-relative encodings (ADR/ADRP/LDR-literal) can be
// checked against their range limits in absolute terms; relative offsets
// within the block don't need it.
func (a *Assembler) SetBase(base uintptr) { a.base = base }

func (a *Assembler) Base() uintptr { return a.base }

// Offset returns the current write position, in bytes from the start of
// this block's buffer.
func (a *Assembler) Offset() int { return len(a.buf) }

// PC returns the host address of the current write position, valid once
// SetBase has been called.
func (a *Assembler) PC() uintptr { return a.base + uintptr(len(a.buf)) }

// NewLabel allocates an unbound label.
func (a *Assembler) NewLabel() Label {
	a.labels = append(a.labels, labelUnbound)
	return Label(len(a.labels) - 1)
}

// Bind fixes a label's target to the current write position. A label
// referenced by an earlier branch must be bound before Bytes.
func (a *Assembler) Bind(l Label) {
	a.labels[l] = len(a.buf)
}

// fail records an assembler error. Bytes reports the first recorded error
// instead of returning the buffer, so drcbe.Generate returns it as an
// assembler GenError and the partially emitted bytes never become
// executable.
func (a *Assembler) fail(format string, args ...interface{}) {
	a.errs = append(a.errs, fmt.Errorf(format, args...))
}

// Errors returns the assembler errors accumulated since the last Reset.
func (a *Assembler) Errors() []error { return a.errs }

func (a *Assembler) emit32(instr uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], instr)
	a.buf = append(a.buf, b[:]...)
}

// emit32Fixup reserves one instruction word at the current position and
// records a fixup against it, to be patched once label is bound.
func (a *Assembler) emit32Fixup(label Label, kind FixupKind, template uint32) {
	a.fixups = append(a.fixups, fixup{pos: len(a.buf), label: label, kind: kind})
	a.emit32(template)
}

// Bytes returns the assembled instruction stream after all fixups have
// been resolved. Call once, after every label referenced by a fixup has
// been bound.
func (a *Assembler) Bytes() ([]byte, error) {
	if err := a.resolveFixups(); err != nil {
		return nil, err
	}
	if len(a.errs) > 0 {
		return nil, a.errs[0]
	}
	return a.buf, nil
}

func (a *Assembler) resolveFixups() error {
	for _, f := range a.fixups {
		target := a.labels[f.label]
		if target == labelUnbound {
			return fmt.Errorf("asm: label %d referenced at offset %d was never bound", f.label, f.pos)
		}
		delta := int32(target - f.pos)
		if delta%4 != 0 {
			return fmt.Errorf("asm: unaligned branch delta %d at offset %d", delta, f.pos)
		}
		instr := binary.LittleEndian.Uint32(a.buf[f.pos : f.pos+4])
		imm := delta / 4
		switch f.kind {
		case FixupBranch26:
			if imm < -(1<<25) || imm >= (1<<25) {
				return fmt.Errorf("asm: branch offset %d out of imm26 range", imm)
			}
			instr |= uint32(imm) & 0x3ffffff
		case FixupBranch19:
			if imm < -(1<<18) || imm >= (1<<18) {
				return fmt.Errorf("asm: branch offset %d out of imm19 range", imm)
			}
			instr |= (uint32(imm) & 0x7ffff) << 5
		case FixupBranch14:
			if imm < -(1<<13) || imm >= (1<<13) {
				return fmt.Errorf("asm: branch offset %d out of imm14 range", imm)
			}
			instr |= (uint32(imm) & 0x3fff) << 5
		case FixupLiteral19:
			if imm < -(1<<18) || imm >= (1<<18) {
				return fmt.Errorf("asm: literal offset %d out of imm19 range", imm)
			}
			instr |= (uint32(imm) & 0x7ffff) << 5
		case FixupAdrp21:
			pageImm := int32(target/4096 - f.pos/4096)
			if pageImm < -(1<<20) || pageImm >= (1<<20) {
				return fmt.Errorf("asm: adrp page delta %d out of imm21 range", pageImm)
			}
			instr |= ((uint32(pageImm) & 3) << 29) | (((uint32(pageImm) >> 2) & 0x7ffff) << 5)
		}
		binary.LittleEndian.PutUint32(a.buf[f.pos:f.pos+4], instr)
	}
	return nil
}
