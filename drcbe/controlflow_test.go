package drcbe

import (
	"testing"

	"github.com/xyproto/drcarm64/drchash"
	"github.com/xyproto/drcarm64/uml"
)

func TestLabelForIsStableForSameCodeLabel(t *testing.T) {
	be := newTestBackend()
	cl := uml.CodeLabel{ID: 5}
	l1 := be.labelFor(cl)
	l2 := be.labelFor(cl)
	if l1 != l2 {
		t.Errorf("labelFor should return the same asm.Label for the same uml.CodeLabel within a block")
	}
}

func TestLabelForDistinctForDifferentCodeLabels(t *testing.T) {
	be := newTestBackend()
	l1 := be.labelFor(uml.CodeLabel{ID: 1})
	l2 := be.labelFor(uml.CodeLabel{ID: 2})
	if l1 == l2 {
		t.Errorf("labelFor should mint distinct labels for distinct uml.CodeLabel ids")
	}
}

func TestLabelOpBindsAndJmpResolves(t *testing.T) {
	be := newTestBackend()
	doneLabel := uml.CodeLabel{ID: 0}

	be.jmpOp(&uml.Instruction{
		Op:        uml.OpJMP,
		Cond:      uml.CondAlways,
		Param:     [uml.MaxParams]uml.Parameter{uml.LabelParam(doneLabel)},
		NumParams: 1,
	})
	be.labelOp(&uml.Instruction{
		Op:        uml.OpLABEL,
		Param:     [uml.MaxParams]uml.Parameter{uml.LabelParam(doneLabel)},
		NumParams: 1,
	})

	if _, err := be.as.Bytes(); err != nil {
		t.Fatalf("a JMP followed by a matching LABEL should assemble cleanly: %v", err)
	}
}

func TestJmpToUnboundLabelIsAssemblerError(t *testing.T) {
	be := newTestBackend()
	be.jmpOp(&uml.Instruction{
		Op:        uml.OpJMP,
		Cond:      uml.CondAlways,
		Param:     [uml.MaxParams]uml.Parameter{uml.LabelParam(uml.CodeLabel{ID: 99})},
		NumParams: 1,
	})
	if _, err := be.as.Bytes(); err == nil {
		t.Fatalf("expected an error for a JMP whose label is never bound by a LABEL instruction")
	}
}

func TestBranchToExitEmitsMaterializeAndIndirectBranch(t *testing.T) {
	be := newTestBackend()
	be.exitAddr = 0x123456
	be.branchToExit()
	code, err := be.as.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	if len(code) == 0 {
		t.Fatalf("branchToExit should emit at least one instruction")
	}
}

func TestHandleOpBindsPointerToPrologueAddress(t *testing.T) {
	be := newTestBackend()
	h := &uml.CodeHandle{Name: "foo"}
	be.handleOp(&uml.Instruction{
		Op:        uml.OpHANDLE,
		Param:     [uml.MaxParams]uml.Parameter{uml.HandleParam(h)},
		NumParams: 1,
	})
	if h.Ptr == nil {
		t.Fatalf("handleOp should allocate the handle's pointer cell")
	}
	if *h.Ptr == 0 {
		t.Fatalf("handleOp should bind the handle to a non-zero address")
	}
	if _, err := be.as.Bytes(); err != nil {
		t.Fatalf("Bytes: %v", err)
	}
}

func TestCallhOpDirectWhenHandleAlreadyBound(t *testing.T) {
	be := newTestBackend()
	h := &uml.CodeHandle{Name: "bar", Ptr: new(uintptr)}
	*h.Ptr = 0x99000
	be.callhOp(&uml.Instruction{
		Op:        uml.OpCALLH,
		Param:     [uml.MaxParams]uml.Parameter{uml.HandleParam(h)},
		NumParams: 1,
	})
	if be.flagState.state != carryPoison {
		t.Errorf("CALLH must poison carry-state")
	}
	if _, err := be.as.Bytes(); err != nil {
		t.Fatalf("Bytes: %v", err)
	}
}

func TestCallhOpIndirectWhenHandleUnbound(t *testing.T) {
	be := newTestBackend()
	h := &uml.CodeHandle{Name: "baz"}
	be.callhOp(&uml.Instruction{
		Op:        uml.OpCALLH,
		Param:     [uml.MaxParams]uml.Parameter{uml.HandleParam(h)},
		NumParams: 1,
	})
	if h.Ptr == nil {
		t.Fatalf("callhOp should allocate a pointer cell for an unbound handle")
	}
	if _, err := be.as.Bytes(); err != nil {
		t.Fatalf("Bytes: %v", err)
	}
}

func TestHashOpRegistersCurrentPC(t *testing.T) {
	be := newTestBackend()
	be.hash = drchash.NewCodeTable()

	pcBefore := be.as.PC()
	be.hashOp(&uml.Instruction{
		Op:        uml.OpHASH,
		Param:     [uml.MaxParams]uml.Parameter{uml.Imm(0), uml.Imm(0x2000)},
		NumParams: 2,
	})
	addr, ok := be.hash.Lookup(0, 0x2000)
	if !ok {
		t.Fatalf("hashOp should register (mode,pc)")
	}
	if addr != pcBefore {
		t.Errorf("hashOp should register the PC as of entry, got %#x want %#x", addr, pcBefore)
	}
}

func hashjmpInstr(mode, pc uml.Parameter, badHandle *uml.CodeHandle) *uml.Instruction {
	return &uml.Instruction{
		Op:        uml.OpHASHJMP,
		Param:     [uml.MaxParams]uml.Parameter{mode, pc, uml.HandleParam(badHandle)},
		NumParams: 3,
	}
}

func TestHashjmpOpBranchesDirectlyOnGenerationTimeHit(t *testing.T) {
	be := newTestBackend()
	be.hash = drchash.NewCodeTable()
	be.hash.SetCodePtr(0, 0x2000, 0x77000)

	bad := &uml.CodeHandle{Name: "bad"}
	be.hashjmpOp(hashjmpInstr(uml.Imm(0), uml.Imm(0x2000), bad))
	if _, err := be.as.Bytes(); err != nil {
		t.Fatalf("Bytes: %v", err)
	}
}

func TestHashjmpOpFallsThroughToTrampolineWhenImmediateMisses(t *testing.T) {
	be := newTestBackend()
	be.hash = drchash.NewCodeTable()
	be.hashjmpTrampoline = 0x88000

	bad := &uml.CodeHandle{Name: "bad", Ptr: new(uintptr)}
	*bad.Ptr = 0x99000
	be.hashjmpOp(hashjmpInstr(uml.Imm(0), uml.Imm(0x2000), bad))
	if _, err := be.as.Bytes(); err != nil {
		t.Fatalf("Bytes: %v", err)
	}
}

func TestHashjmpOpWithRegisterOperandsCallsTrampolineAndBranchesThroughBadHandle(t *testing.T) {
	be := newTestBackend()
	be.hash = drchash.NewCodeTable()
	be.hashjmpTrampoline = 0x88000

	bad := &uml.CodeHandle{Name: "bad"}
	be.hashjmpOp(hashjmpInstr(uml.IReg(0), uml.IReg(1), bad))
	if bad.Ptr == nil {
		t.Fatalf("hashjmpOp's miss path should allocate a pointer cell for an unbound bad_handle")
	}
	if _, err := be.as.Bytes(); err != nil {
		t.Fatalf("Bytes: %v", err)
	}
}

func TestHashjmpTrampolineAddrReadsBackendField(t *testing.T) {
	be := newTestBackend()
	be.hashjmpTrampoline = 0x66100
	if hashjmpTrampolineAddr(be) != 0x66100 {
		t.Errorf("hashjmpTrampolineAddr should read be.hashjmpTrampoline")
	}
}

func TestBranchToHandleDirectAndIndirectBothPoisonFlags(t *testing.T) {
	be := newTestBackend()
	be.flagState.setCanonical()
	bound := &uml.CodeHandle{Name: "bound", Ptr: new(uintptr)}
	*bound.Ptr = 0x33000
	be.branchToHandle(bound)
	if be.flagState.state != carryPoison {
		t.Errorf("branchToHandle should poison carry-state on the direct path")
	}

	be = newTestBackend()
	unbound := &uml.CodeHandle{Name: "unbound"}
	be.branchToHandle(unbound)
	if unbound.Ptr == nil {
		t.Fatalf("branchToHandle should allocate a pointer cell for an unbound handle")
	}
	if be.flagState.state != carryPoison {
		t.Errorf("branchToHandle should poison carry-state on the indirect path")
	}
	if _, err := be.as.Bytes(); err != nil {
		t.Fatalf("Bytes: %v", err)
	}
}

func TestEntryExitTrampolinesSaveAndRestoreFloatRegisters(t *testing.T) {
	be := newTestBackend()
	be.emitEntryTrampoline()
	code, err := be.as.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	// One STP/LDP pair per two entries of calleeSavedInt and
	// calleeSavedFloat, on top of the X29/X30 push/pop and the trampoline
	// body itself: with both registers sets included, the trampoline is
	// too big to have skipped the float half by accident.
	minWords := 2 + len(calleeSavedInt)/2 + len(calleeSavedFloat)/2 + len(calleeSavedInt)/2 + len(calleeSavedFloat)/2
	if len(code)/4 < minWords {
		t.Errorf("entry+exit trampoline emitted %d words, want at least %d to cover both callee-saved sets", len(code)/4, minWords)
	}
}
