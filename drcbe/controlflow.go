package drcbe

import (
	"unsafe"

	"github.com/xyproto/drcarm64/asm"
	"github.com/xyproto/drcarm64/drchash"
	"github.com/xyproto/drcarm64/uml"
)

// entryFrameSlots is the number of 16-byte (X29/X30, or a pair of
// callee-saved) slots the trampolines' frame reserves: one for X29/X30
// itself, one pair per two entries of calleeSavedInt, one pair per two
// entries of calleeSavedFloat, plus one spare pair of headroom.
func entryFrameSlots() int32 {
	return int32(len(calleeSavedInt)/2 + len(calleeSavedFloat)/2 + 2)
}

// emitEntryTrampoline generates the fixed prologue any Execute() call
// enters through: a full non-leaf frame, every callee-saved register
// saved, the base register loaded with the near-region pointer, the
// emulated-flags register reloaded from its persisted slot, then an
// indirect branch to the argument.
func (be *Backend) emitEntryTrampoline() {
	be.as.StpPreIndex64(asm.X29, asm.X30, asm.SP, -16*entryFrameSlots())
	be.as.AddImm(asm.W64, asm.X29, asm.SP, 0, false) // mov x29, sp (MovReg would read XZR)

	off := int32(16)
	for i := 0; i+1 < len(calleeSavedInt); i += 2 {
		be.as.StpImm64(calleeSavedInt[i], calleeSavedInt[i+1], asm.SP, off)
		off += 16
	}
	for i := 0; i+1 < len(calleeSavedFloat); i += 2 {
		be.as.StpImm64F(calleeSavedFloat[i], calleeSavedFloat[i+1], asm.SP, off)
		off += 16
	}

	be.movImmToReg(asm.W64, BaseReg, uint64(be.near))
	be.as.LdrImm(4, Scratch0, BaseReg, nearFlagsOffset)
	be.as.MovReg(asm.W64, FlagsReg, Scratch0)

	// X0 on entry carries the code pointer to enter (Execute's argument).
	be.as.BlrReg(asm.X0)

	be.emitExitTrampoline()
}

// emitExitTrampoline restores the stack to the frame pointer, pops the
// callee-saved registers (D8-D15 backing UML F0-F7 alongside the integer
// set — AAPCS64 only guarantees the low 64 bits of those, which is
// exactly what UML's float registers need), and returns.
func (be *Backend) emitExitTrampoline() {
	be.as.AddImm(asm.W64, asm.SP, asm.X29, 0, false) // mov sp, x29
	off := int32(16)
	for i := 0; i+1 < len(calleeSavedInt); i += 2 {
		be.as.LdpImm64(calleeSavedInt[i], calleeSavedInt[i+1], asm.SP, off)
		off += 16
	}
	for i := 0; i+1 < len(calleeSavedFloat); i += 2 {
		be.as.LdpImm64F(calleeSavedFloat[i], calleeSavedFloat[i+1], asm.SP, off)
		off += 16
	}
	be.as.LdpPostIndex64(asm.X29, asm.X30, asm.SP, 16*entryFrameSlots())
	be.as.Ret()
}

// nearFlagsOffset is the byte offset of NearState.EmulatedFlags within
// the near region.
const nearFlagsOffset = 0

// branchToExit leaves the current block for the exit trampoline. The
// trampoline lives in a codegen session assembled once at Reset time,
// so a block generated later cannot reach it with a same-buffer
// asm.Label — every caller materializes its absolute address into a
// scratch register and branches through that instead.
func (be *Backend) branchToExit() {
	be.movImmToReg(asm.W64, Scratch3, uint64(be.exitAddr))
	be.as.BrReg(Scratch3)
}

// handleOp binds a uml.CodeHandle to the current code position: an
// unconditional branch over a
// two-instruction mini-frame prologue (stp x29,x30 / mov x29,sp), whose
// address after the branch becomes the handle's target.
func (be *Backend) handleOp(in *uml.Instruction) {
	h := in.P(0).Handle
	skip := be.as.NewLabel()
	be.as.BLabel(skip)
	if h.Ptr == nil {
		h.Ptr = new(uintptr)
	}
	*h.Ptr = be.as.PC()
	be.as.StpPreIndex64(asm.X29, asm.X30, asm.SP, -16)
	be.as.MovReg(asm.W64, asm.X29, asm.SP)
	be.as.Bind(skip)
}

// hashOp registers the current code pointer at (mode,pc).
func (be *Backend) hashOp(in *uml.Instruction) {
	mode := uint32(in.P(0).Imm)
	pc := uint32(in.P(1).Imm)
	be.hash.SetCodePtr(mode, pc, be.as.PC())
}

// hashjmpOp resets the stack to the frame pointer, then resolves and
// branches to the block for (mode,pc). When mode and pc are both
// compile-time constants, an already-generated target resolves directly
// against the hash table at generation time, same as before. Otherwise —
// and this also covers a constant target that doesn't exist YET, the
// cyclic block-to-block transfer case the hash dispatch table exists
// for — the lookup has to happen at run time: generated code calls a
// small trampoline wrapping drchash.CodeTable.Lookup (see
// hashjmpTrampolineAddr), and on a miss records the looked-up pc into
// MachineState.Exp before transferring to the instruction's own
// bad_handle operand, mirroring exhOp/callhOp's indirect-branch
// resolution rather than the fixed "no code" stub.
func (be *Backend) hashjmpOp(in *uml.Instruction) {
	be.as.AddImm(asm.W64, asm.SP, asm.X29, 0, false) // mov sp, x29

	modeP, pcP := in.P(0), in.P(1)
	badHandle := in.P(2).Handle

	if modeP.Kind == uml.ParamImmediate && pcP.Kind == uml.ParamImmediate {
		mode, pc := uint32(modeP.Imm), uint32(pcP.Imm)
		if addr, ok := be.hash.Lookup(mode, pc); ok {
			be.movImmToReg(asm.W64, Scratch0, uint64(addr))
			be.as.BrReg(Scratch0)
			return
		}
	}

	modeReg := be.selectRegister(Scratch0, 4, be.bindIParam(modeP))
	pcReg := be.selectRegister(Scratch1, 4, be.bindIParam(pcP))
	if modeReg != asm.X0 {
		be.as.MovReg(asm.W32, asm.X0, modeReg)
	}
	if pcReg != asm.X1 {
		be.as.MovReg(asm.W32, asm.X1, pcReg)
	}
	be.movImmToReg(asm.W64, Scratch2, uint64(hashjmpTrampolineAddr(be)))
	be.as.BlrReg(Scratch2)
	be.afterCall()

	miss := be.as.NewLabel()
	be.as.CbzLabel(asm.W64, asm.X0, miss)
	be.as.BrReg(asm.X0)

	be.as.Bind(miss)
	// X0/X1 are caller-saved and clobbered by the trampoline call above;
	// pc is cheap to re-materialize from its original parameter rather
	// than assumed to have survived.
	pcReg = be.selectRegister(Scratch1, 4, be.bindIParam(pcP))
	ptr, off := be.materializeMemRef(Scratch0, be.StatePtr()+stateExpOffset, 4)
	be.as.StrImm(4, pcReg, ptr, off)
	be.branchToHandle(badHandle)
}

// branchToHandle transfers control to a handle target without linking:
// direct if the handle's address is already known at generation time,
// else indirect through its pointer slot — the same resolution callhOp
// does, but as a tail transfer (BR) rather than a call (BLR), for control
// paths like HASHJMP's miss branch that never return to this block.
func (be *Backend) branchToHandle(h *uml.CodeHandle) {
	if h.Ptr != nil && *h.Ptr != 0 {
		be.movImmToReg(asm.W64, Scratch2, uint64(*h.Ptr))
		be.as.BrReg(Scratch2)
	} else {
		if h.Ptr == nil {
			h.Ptr = new(uintptr)
		}
		be.movImmToReg(asm.W64, Scratch2, uint64(cellAddr(h.Ptr)))
		be.as.LdrImm(8, Scratch2, Scratch2, 0)
		be.as.BrReg(Scratch2)
	}
	be.flagState.poison()
}

// hashjmpTrampolineAddr resolves the address of a Go trampoline calling
// be.hash.Lookup with the (mode, pc) staged in W0/W1. Kept as a hook the
// same way recoverTrampolineAddr is: a production embedding registers
// this trampoline once at Backend construction and stores its address,
// since Go closures have no stable machine address generated code can
// branch to directly.
func hashjmpTrampolineAddr(be *Backend) uintptr {
	return be.hashjmpTrampoline
}

// jmpOp emits an unconditional or conditional branch to a UML label.
func (be *Backend) jmpOp(in *uml.Instruction) {
	l := be.labelFor(in.P(0).Label)
	if in.Cond == uml.CondAlways {
		be.as.BLabel(l)
		return
	}
	rc := be.resolveCondition(in.Cond)
	be.emitBranchOnCondition(rc, l)
}

// labelOp binds a uml.CodeLabel to the current position: the only
// definition site a JMP's target ever resolves against.
func (be *Backend) labelOp(in *uml.Instruction) {
	be.as.Bind(be.labelFor(in.P(0).Label))
}

// labelFor returns (creating if necessary) the asm.Label backing a
// front-end-interned uml.CodeLabel within the current block.
func (be *Backend) labelFor(cl uml.CodeLabel) asm.Label {
	if be.labels == nil {
		be.labels = make(map[uml.CodeLabel]asm.Label)
	}
	if l, ok := be.labels[cl]; ok {
		return l
	}
	l := be.as.NewLabel()
	be.labels[cl] = l
	return l
}

// callhOp branches-and-links to a handle target: direct if the handle's
// address is already known at generation time, else indirect through its
// pointer slot.
func (be *Backend) callhOp(in *uml.Instruction) {
	h := in.P(0).Handle
	if h.Ptr != nil && *h.Ptr != 0 {
		be.movImmToReg(asm.W64, Scratch0, uint64(*h.Ptr))
		be.as.BlrReg(Scratch0)
	} else {
		if h.Ptr == nil {
			h.Ptr = new(uintptr)
		}
		be.movImmToReg(asm.W64, Scratch0, uint64(cellAddr(h.Ptr)))
		be.as.LdrImm(8, Scratch0, Scratch0, 0)
		be.as.BlrReg(Scratch0)
	}
	be.flagState.poison()
}

// cellAddr returns the address of the pointer cell backing a not-yet-
// bound handle, so generated code can load through it once HANDLE binds
// the target later in the same or a subsequent block.
func cellAddr(p *uintptr) uintptr { return uintptr(unsafe.Pointer(p)) }

// exhOp stores the exception parameter into MachineState.Exp — the same
// field GETEXP reads back from, at the same fixed state-pointer offset —
// then CALLHs the handler.
func (be *Backend) exhOp(in *uml.Instruction) {
	h := in.P(0).Handle
	param := be.bindIParam(in.P(1))
	exReg := be.selectRegister(Scratch1, 4, param)
	ptr, off := be.materializeMemRef(Scratch0, be.StatePtr()+stateExpOffset, 4)
	be.as.StrImm(4, exReg, ptr, off)
	be.callhOp(&uml.Instruction{Op: uml.OpCALLH, Param: [uml.MaxParams]uml.Parameter{uml.HandleParam(h)}, NumParams: 1})
}

// retOp pops the mini-frame CALLH's callee pushed and returns.
func (be *Backend) retOp(in *uml.Instruction) {
	be.as.LdpPostIndex64(asm.X29, asm.X30, asm.SP, 16)
	be.as.Ret()
}

// callcOp persists the emulated-flags register, calls the C function
// with its single pointer argument, then reloads emulated-flags and
// poisons carry-state.
func (be *Backend) callcOp(in *uml.Instruction) {
	be.as.StrImm(4, FlagsReg, BaseReg, nearFlagsOffset)

	cf := in.P(0).CFunc
	argP := be.bindIParam(in.P(1))
	argReg := be.selectRegister(asm.X0, 8, argP)
	if argReg != asm.X0 {
		be.as.MovReg(asm.W64, asm.X0, argReg)
	}
	be.movImmToReg(asm.W64, Scratch0, uint64(cf.Fn))
	be.as.BlrReg(Scratch0)

	be.as.LdrImm(4, Scratch0, BaseReg, nearFlagsOffset)
	be.as.MovReg(asm.W64, FlagsReg, Scratch0)
	be.flagState.poison()
}

// recoverOp walks one frame up the stack, adjusts the saved return
// address to point at the call instruction itself, and asks the
// map-variable store for its value at that recovery site.
func (be *Backend) recoverOp(in *uml.Instruction) {
	dst := be.bindIParam(in.P(0))
	varID := drchash.MapVarID(in.P(1).MapVar.ID)

	be.as.LdrImm(8, Scratch0, asm.X29, 8) // saved LR of the caller's frame
	be.as.SubImm(asm.W64, Scratch0, Scratch0, 4, false)

	be.movImmToReg(asm.W64, Scratch1, uint64(varID))
	// The actual lookup runs through mapvars.GetValue at call time via a
	// small host-call trampoline; the address and id are staged in
	// Scratch0/Scratch1 for it.
	be.movImmToReg(asm.W64, Scratch2, uint64(recoverTrampolineAddr(be)))
	be.as.MovReg(asm.W64, asm.X0, Scratch0)
	be.as.MovReg(asm.W64, asm.X1, Scratch1)
	be.as.BlrReg(Scratch2)

	dstReg := dst.ireg
	if dst.kind != beIReg {
		dstReg = Scratch0
	} else {
		dstReg = dst.ireg
	}
	be.as.MovReg(asm.W64, dstReg, asm.X0)
	if dst.kind != beIReg {
		be.movParamReg(int(in.Size), dst, dstReg)
	}
	be.flagState.poison()
}

// recoverTrampolineAddr resolves the address of a Go trampoline calling
// be.mapvars.GetValue with the (returnAddr, id) staged in X0/X1. Kept as
// a hook rather than a real function-pointer materialization here: a
// production embedding registers this trampoline once at Backend
// construction and stores its address, since Go closures do not have a
// stable machine address CALLH-style code can branch to directly.
func recoverTrampolineAddr(be *Backend) uintptr {
	return be.recoverTrampoline
}

