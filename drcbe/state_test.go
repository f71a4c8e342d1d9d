package drcbe

import (
	"testing"

	"github.com/xyproto/drcarm64/uml"
)

func TestSaveOpPoisonsCarryState(t *testing.T) {
	be := newTestBackend()
	be.flagState.setCanonical()
	be.saveOp(&uml.Instruction{
		Op:        uml.OpSAVE,
		Param:     [uml.MaxParams]uml.Parameter{uml.IReg(0)},
		NumParams: 1,
	})
	if be.flagState.state != carryPoison {
		t.Errorf("SAVE should poison carry-state")
	}
	if _, err := be.as.Bytes(); err != nil {
		t.Fatalf("Bytes: %v", err)
	}
}

func TestRestoreOpEmitsWithoutPanicking(t *testing.T) {
	be := newTestBackend()
	be.restoreOp(&uml.Instruction{
		Op:        uml.OpRESTORE,
		Param:     [uml.MaxParams]uml.Parameter{uml.IReg(0)},
		NumParams: 1,
	})
	if _, err := be.as.Bytes(); err != nil {
		t.Fatalf("Bytes: %v", err)
	}
}

func TestGetflgsSetflgsRoundTrip(t *testing.T) {
	be := newTestBackend()
	be.getflgsOp(&uml.Instruction{
		Op: uml.OpGETFLGS, Size: 4,
		Param:     [uml.MaxParams]uml.Parameter{uml.IReg(0)},
		NumParams: 1,
	})
	be.setflgsOp(&uml.Instruction{
		Op: uml.OpSETFLGS, Size: 4,
		Param:     [uml.MaxParams]uml.Parameter{uml.IReg(0)},
		NumParams: 1,
	})
	if be.flagState.state != carryPoison {
		t.Errorf("SETFLGS should always poison carry-state")
	}
	if _, err := be.as.Bytes(); err != nil {
		t.Fatalf("Bytes: %v", err)
	}
}

func TestMapvarOpRecordsAtCurrentPC(t *testing.T) {
	be := newRealBackend(t)
	be.as.Reset()
	addr, ok := be.cache.BeginCodegen(blockCapacity)
	if !ok {
		t.Fatalf("BeginCodegen: no room")
	}
	be.as.SetBase(addr)

	pcBefore := be.as.PC()
	be.mapvarOp(&uml.Instruction{
		Op:        uml.OpMAPVAR,
		Param:     [uml.MaxParams]uml.Parameter{{Kind: uml.ParamMapVar}, uml.Imm(77)},
		NumParams: 2,
	})
	v, err := be.mapvars.GetValue(pcBefore, 0)
	if err != nil {
		t.Fatalf("GetValue: %v", err)
	}
	if v != 77 {
		t.Errorf("GetValue = %d, want 77", v)
	}
}

func TestNopOpEmitsNothing(t *testing.T) {
	be := newTestBackend()
	before := be.as.Offset()
	be.nopOp(&uml.Instruction{Op: uml.OpNOP})
	if be.as.Offset() != before {
		t.Errorf("NOP must not emit any bytes")
	}
}

func TestExitOpBranchesToExitTrampoline(t *testing.T) {
	be := newTestBackend()
	be.exitAddr = 0x123000
	be.exitOp(&uml.Instruction{
		Op: uml.OpEXIT, Size: 4,
		Param:     [uml.MaxParams]uml.Parameter{uml.Imm(0)},
		NumParams: 1,
	})
	code, err := be.as.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	if len(code) == 0 {
		t.Errorf("EXIT should emit at least the branch-to-exit sequence")
	}
}

func TestDebugOpNoopWhenDisabled(t *testing.T) {
	be := newTestBackend()
	before := be.as.Offset()
	be.debugOp(&uml.Instruction{
		Op:        uml.OpDEBUG,
		Param:     [uml.MaxParams]uml.Parameter{uml.Imm(0x1000)},
		NumParams: 1,
	})
	if be.as.Offset() != before {
		t.Errorf("DEBUG should emit nothing when cfg.DebugHook is false")
	}
}

func TestCommentOpEmitsNothing(t *testing.T) {
	be := newTestBackend()
	before := be.as.Offset()
	be.commentOp(&uml.Instruction{
		Op:        uml.OpCOMMENT,
		Param:     [uml.MaxParams]uml.Parameter{{Kind: uml.ParamString, Str: "annotation"}},
		NumParams: 1,
	})
	if be.as.Offset() != before {
		t.Errorf("COMMENT must not emit any bytes")
	}
}

func TestGetfmodSetfmodGetexpEmitWithoutPanicking(t *testing.T) {
	be := newTestBackend()
	be.getfmodOp(&uml.Instruction{
		Op: uml.OpGETFMOD, Size: 4,
		Param:     [uml.MaxParams]uml.Parameter{uml.IReg(0)},
		NumParams: 1,
	})
	be.setfmodOp(&uml.Instruction{
		Op: uml.OpSETFMOD, Size: 4,
		Param:     [uml.MaxParams]uml.Parameter{uml.IReg(0)},
		NumParams: 1,
	})
	be.getexpOp(&uml.Instruction{
		Op: uml.OpGETEXP, Size: 4,
		Param:     [uml.MaxParams]uml.Parameter{uml.IReg(1)},
		NumParams: 1,
	})
	if _, err := be.as.Bytes(); err != nil {
		t.Fatalf("Bytes: %v", err)
	}
}

func TestSetfmodOpMasksImmediateToTwoBits(t *testing.T) {
	be := newTestBackend()
	be.setfmodOp(&uml.Instruction{
		Op: uml.OpSETFMOD, Size: 4,
		Param:     [uml.MaxParams]uml.Parameter{uml.Imm(0xff)},
		NumParams: 1,
	})
	if _, err := be.as.Bytes(); err != nil {
		t.Fatalf("Bytes: %v", err)
	}
}

func TestCarryOpBothImmediateFoldsToConstantBit(t *testing.T) {
	be := newTestBackend()
	be.flagState.setCanonical()
	be.carryOp(&uml.Instruction{
		Op: uml.OpCARRY, Size: 4,
		Param:     [uml.MaxParams]uml.Parameter{uml.Imm(0x8), uml.Imm(3)},
		NumParams: 2,
	})
	if be.flagState.state != carryPoison {
		t.Errorf("CARRY should always poison carry-state, got %v", be.flagState.state)
	}
	if _, err := be.as.Bytes(); err != nil {
		t.Fatalf("Bytes: %v", err)
	}
}

func TestCarryOpImmediateBitNumber(t *testing.T) {
	be := newTestBackend()
	be.carryOp(&uml.Instruction{
		Op: uml.OpCARRY, Size: 4,
		Param:     [uml.MaxParams]uml.Parameter{uml.IReg(0), uml.Imm(0)},
		NumParams: 2,
	})
	be.carryOp(&uml.Instruction{
		Op: uml.OpCARRY, Size: 4,
		Param:     [uml.MaxParams]uml.Parameter{uml.IReg(0), uml.Imm(5)},
		NumParams: 2,
	})
	if _, err := be.as.Bytes(); err != nil {
		t.Fatalf("Bytes: %v", err)
	}
}

func TestCarryOpFullyDynamic(t *testing.T) {
	be := newTestBackend()
	be.carryOp(&uml.Instruction{
		Op: uml.OpCARRY, Size: 8,
		Param:     [uml.MaxParams]uml.Parameter{uml.IReg(0), uml.IReg(1)},
		NumParams: 2,
	})
	if be.flagState.state != carryPoison {
		t.Errorf("CARRY should poison carry-state")
	}
	if _, err := be.as.Bytes(); err != nil {
		t.Fatalf("Bytes: %v", err)
	}
}

func TestDebugOpEmitsCallWhenEnabled(t *testing.T) {
	be := newTestBackend()
	be.cfg.DebugHook = true
	be.debugHookAddr = 0x77000
	be.debugOp(&uml.Instruction{
		Op:        uml.OpDEBUG,
		Param:     [uml.MaxParams]uml.Parameter{uml.Imm(0x1000)},
		NumParams: 1,
	})
	if be.flagState.state != carryPoison {
		t.Errorf("DEBUG should poison carry-state once it actually calls the hook")
	}
	if _, err := be.as.Bytes(); err != nil {
		t.Fatalf("Bytes: %v", err)
	}
}
