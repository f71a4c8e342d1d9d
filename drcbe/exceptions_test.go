package drcbe

import (
	"testing"

	"github.com/xyproto/drcarm64/uml"
)

func TestExhOpStoresParamAndCallsHandler(t *testing.T) {
	be := newTestBackend()
	h := &uml.CodeHandle{Name: "handler", Ptr: new(uintptr)}
	*h.Ptr = 0x44000
	be.exhOp(&uml.Instruction{
		Op:        uml.OpEXH,
		Param:     [uml.MaxParams]uml.Parameter{uml.HandleParam(h), uml.Imm(7)},
		NumParams: 2,
	})
	if be.flagState.state != carryPoison {
		t.Errorf("EXH calls through CALLH, which must poison carry-state")
	}
	if _, err := be.as.Bytes(); err != nil {
		t.Fatalf("Bytes: %v", err)
	}
}

func TestExhOpAndGetexpOpAgreeOnExpOffset(t *testing.T) {
	be := newTestBackend()
	h := &uml.CodeHandle{Name: "handler", Ptr: new(uintptr)}
	*h.Ptr = 0x44000
	be.exhOp(&uml.Instruction{
		Op:        uml.OpEXH,
		Param:     [uml.MaxParams]uml.Parameter{uml.HandleParam(h), uml.Imm(7)},
		NumParams: 2,
	})
	be.getexpOp(&uml.Instruction{
		Op:        uml.OpGETEXP,
		Param:     [uml.MaxParams]uml.Parameter{uml.IReg(0)},
		NumParams: 1,
	})
	if _, err := be.as.Bytes(); err != nil {
		t.Fatalf("EXH followed by GETEXP should both resolve MachineState.Exp and assemble: %v", err)
	}
}

func TestRetOpEmitsFrameTeardownAndReturn(t *testing.T) {
	be := newTestBackend()
	be.retOp(&uml.Instruction{Op: uml.OpRET})
	if _, err := be.as.Bytes(); err != nil {
		t.Fatalf("Bytes: %v", err)
	}
}

func TestCallcOpPersistsFlagsCallsAndReloads(t *testing.T) {
	be := newTestBackend()
	be.flagState.setCanonical()
	cf := &uml.CFunc{Name: "hook", Fn: 0x55000}
	be.callcOp(&uml.Instruction{
		Op: uml.OpCALLC,
		Param: [uml.MaxParams]uml.Parameter{
			{Kind: uml.ParamCFunc, CFunc: cf}, uml.Imm(0x9000),
		},
		NumParams: 2,
	})
	if be.flagState.state != carryPoison {
		t.Errorf("CALLC must poison carry-state after the call")
	}
	if _, err := be.as.Bytes(); err != nil {
		t.Fatalf("Bytes: %v", err)
	}
}

func TestRecoverOpWalksFrameAndPoisonsFlags(t *testing.T) {
	be := newTestBackend()
	be.recoverOp(&uml.Instruction{
		Op: uml.OpRECOVER, Size: 4,
		Param: [uml.MaxParams]uml.Parameter{
			uml.IReg(0), {Kind: uml.ParamMapVar, MapVar: uml.MapVar{ID: 3}},
		},
		NumParams: 2,
	})
	if be.flagState.state != carryPoison {
		t.Errorf("RECOVER must poison carry-state")
	}
	if _, err := be.as.Bytes(); err != nil {
		t.Fatalf("Bytes: %v", err)
	}
}

func TestRecoverTrampolineAddrReadsBackendField(t *testing.T) {
	be := newTestBackend()
	be.recoverTrampoline = 0x66000
	if recoverTrampolineAddr(be) != 0x66000 {
		t.Errorf("recoverTrampolineAddr should read be.recoverTrampoline")
	}
}

func TestCellAddrReturnsPointerAddress(t *testing.T) {
	p := new(uintptr)
	if cellAddr(p) == 0 {
		t.Errorf("cellAddr should return a non-zero address for a valid pointer")
	}
}
