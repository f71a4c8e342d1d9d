package drcbe

import (
	"github.com/xyproto/drcarm64/asm"
	"github.com/xyproto/drcarm64/uml"
)

// beParam is the resolved form of a uml.Parameter the opcode generators
// actually operate on: which of {immediate, direct integer register,
// direct float register, machine-state memory slot} it is, plus the
// cold-register bit for a spilled UML register.
type beParam struct {
	kind    beParamKind
	imm     uint64
	ireg    asm.Reg
	freg    asm.FReg
	memBase asm.Reg // base register the memory offset is relative to (BaseReg)
	memOff  int32   // offset of the 8-byte slot within MachineState
	cold    bool    // no direct host register: this is a spilled UML register
}

type beParamKind int

const (
	beImm beParamKind = iota
	beIReg
	beFReg
	beMem
)

// bindIParam resolves a uml.Parameter of ParamIReg or ParamImmediate kind
// into a beParam, spilling to the machine-state IReg slot when the UML
// register index has no direct host mapping (never happens with this
// host's from-scratch register map, but the path stays live for
// robustness against a future map that doesn't cover the full range).
func (be *Backend) bindIParam(p uml.Parameter) beParam {
	switch p.Kind {
	case uml.ParamImmediate:
		return beParam{kind: beImm, imm: p.Imm}
	case uml.ParamIReg:
		if r, ok := RegForI(p.IReg); ok {
			return beParam{kind: beIReg, ireg: r}
		}
		return beParam{kind: beMem, memBase: BaseReg, memOff: iRegSlotOffset(p.IReg), cold: true}
	default:
		panicGen(internalError("bindIParam: unexpected parameter kind %d", p.Kind))
		return beParam{}
	}
}

func (be *Backend) bindFParam(p uml.Parameter) beParam {
	switch p.Kind {
	case uml.ParamFReg:
		if r, ok := RegForF(p.FReg); ok {
			return beParam{kind: beFReg, freg: r}
		}
		return beParam{kind: beMem, memBase: BaseReg, memOff: fRegSlotOffset(p.FReg), cold: true}
	default:
		panicGen(internalError("bindFParam: unexpected parameter kind %d", p.Kind))
		return beParam{}
	}
}

// iRegSlotOffset/fRegSlotOffset locate a cold UML register's slot by
// MachineState's IReg/FReg layout (NearState holds no such slots); never
// exercised by this host's register map but kept so an opcode generator
// never has to special-case "no home register" for a smaller host.
func iRegSlotOffset(idx int) int32 { return int32(idx * 8) }
func fRegSlotOffset(idx int) int32 { return int32(64 + idx*8) }

// movRegParam loads src into dst at width sz (4 or 8 bytes). A memory
// source is read with a plain sz-wide load; AArch64 here is always
// little-endian, so that load picks up the low bytes of an 8-byte slot.
func (be *Backend) movRegParam(sz int, dst asm.Reg, src beParam) {
	w := widthFor(sz)
	switch src.kind {
	case beImm:
		be.movImmToReg(w, dst, src.imm)
	case beIReg:
		be.as.MovReg(w, dst, src.ireg)
	case beMem:
		be.as.LdrImm(sz, dst, src.memBase, src.memOff)
	default:
		panicGen(internalError("movRegParam: unsupported source kind"))
	}
}

// movParamReg stores src into dst at width sz; a cold-register spill
// always writes the full 8-byte slot regardless of sz, so the upper half of a 4-byte write to a cold register isn't left
// stale from a previous wider value.
func (be *Backend) movParamReg(sz int, dst beParam, src asm.Reg) {
	switch dst.kind {
	case beIReg:
		be.as.MovReg(widthFor(sz), dst.ireg, src)
	case beMem:
		storeSz := sz
		if dst.cold {
			storeSz = 8
		}
		be.as.StrImm(storeSz, src, dst.memBase, dst.memOff)
	default:
		panicGen(internalError("movParamReg: unsupported destination kind"))
	}
}

// movParamImm stores imm into dst, using the zero register directly when
// imm is 0 rather than materializing it first.
func (be *Backend) movParamImm(sz int, dst beParam, imm uint64) {
	if imm == 0 {
		be.movParamReg(sz, dst, asm.XZR)
		return
	}
	be.movRegParam(sz, Scratch0, beParam{kind: beImm, imm: imm})
	be.movParamReg(sz, dst, Scratch0)
}

// movParamParam picks the shortest available path: register-to-register
// direct move, immediate-to-memory direct store, or
// memory-to-memory routed through a scratch register.
func (be *Backend) movParamParam(sz int, dst, src beParam) {
	switch {
	case dst.kind == beIReg && src.kind == beIReg:
		be.as.MovReg(widthFor(sz), dst.ireg, src.ireg)
	case src.kind == beImm:
		be.movParamImm(sz, dst, src.imm)
	case dst.kind == beIReg:
		be.movRegParam(sz, dst.ireg, src)
	case src.kind == beIReg:
		be.movParamReg(sz, dst, src.ireg)
	default:
		be.movRegParam(sz, Scratch0, src)
		be.movParamReg(sz, dst, Scratch0)
	}
}

// selectRegister implements "use my register if I have one, otherwise
// your provided scratch": for a register-backed
// parameter it returns that register (loading nothing), and for anything
// else it loads the parameter into def and returns def.
func (be *Backend) selectRegister(def asm.Reg, sz int, p beParam) asm.Reg {
	if p.kind == beIReg {
		return p.ireg
	}
	be.movRegParam(sz, def, p)
	return def
}

func widthFor(sz int) asm.Width {
	if sz >= 8 {
		return asm.W64
	}
	return asm.W32
}
