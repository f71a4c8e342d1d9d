package drcbe

import (
	"testing"

	"github.com/xyproto/drcarm64/addrspace"
	"github.com/xyproto/drcarm64/asm"
	"github.com/xyproto/drcarm64/uml"
)

func spaceParam(idx int) uml.Parameter {
	return uml.Parameter{Kind: uml.ParamSizeSpace, Space: idx}
}

func TestMemAccessPanicsOnUnknownSpace(t *testing.T) {
	be := newTestBackend()
	be.spaces = map[int]*addrspace.AddressSpace{}
	defer func() {
		if recover() == nil {
			t.Fatalf("expected memAccess to panic for an unregistered address space")
		}
	}()
	be.memAccess(0, 4, false, false, asm.X0, asm.XZR, asm.XZR, asm.X1)
}

func TestMemAccessPoisonsCarryStateAfterCall(t *testing.T) {
	be := newTestBackend()
	be.spaces = map[int]*addrspace.AddressSpace{
		0: {Index: 0, Slow: addrspace.Accessors{ReadDword: 0x5000}},
	}
	be.flagState.setCanonical()
	be.memAccess(0, 4, false, false, asm.X0, asm.XZR, asm.XZR, asm.X1)
	if be.flagState.state != carryPoison {
		t.Errorf("any memory access must poison carry-state after the (real or slow-path) call")
	}
}

func TestMemAccessUsesFastPathWhenSpecificMatches(t *testing.T) {
	be := newTestBackend()
	be.spaces = map[int]*addrspace.AddressSpace{
		0: {
			Index:     0,
			MaskShape: addrspace.MaskNone,
			Specific:  &addrspace.Specific{NativeBytes: 4, DispatchBase: 0x9000, DirectFunc: 0x9100},
			Slow:      addrspace.Accessors{ReadDword: 0x5000},
		},
	}
	be.memAccess(0, 4, false, false, asm.X0, asm.XZR, asm.XZR, asm.X1)
	if _, err := be.as.Bytes(); err != nil {
		t.Fatalf("Bytes: %v", err)
	}
}

func TestReadOpDispatchesToMemAccess(t *testing.T) {
	be := newTestBackend()
	be.spaces = map[int]*addrspace.AddressSpace{
		0: {Index: 0, Slow: addrspace.Accessors{ReadDword: 0x5000}},
	}
	be.readOp(&uml.Instruction{
		Op:   uml.OpREAD,
		Size: 4,
		Param: [uml.MaxParams]uml.Parameter{
			uml.IReg(0), uml.IReg(1), spaceParam(0),
		},
		NumParams: 3,
	})
	if _, err := be.as.Bytes(); err != nil {
		t.Fatalf("Bytes: %v", err)
	}
}

func TestFreadOpUsesSlowPathAccessorAndBitcasts(t *testing.T) {
	be := newTestBackend()
	be.spaces = map[int]*addrspace.AddressSpace{
		0: {Index: 0, Slow: addrspace.Accessors{ReadQword: 0x5000}},
	}
	be.flagState.setCanonical()
	be.freadOp(&uml.Instruction{
		Op: uml.OpFREAD, Size: 8,
		Param:     [uml.MaxParams]uml.Parameter{uml.FReg(0), uml.IReg(0), spaceParam(0)},
		NumParams: 3,
	})
	if be.flagState.state != carryPoison {
		t.Errorf("FREAD must poison carry-state after its call")
	}
	if _, err := be.as.Bytes(); err != nil {
		t.Fatalf("Bytes: %v", err)
	}
}

func TestFreadOpPanicsOnUnknownSpace(t *testing.T) {
	be := newTestBackend()
	be.spaces = map[int]*addrspace.AddressSpace{}
	defer func() {
		if recover() == nil {
			t.Fatalf("expected freadOp to panic for an unregistered address space")
		}
	}()
	be.freadOp(&uml.Instruction{
		Op: uml.OpFREAD, Size: 8,
		Param:     [uml.MaxParams]uml.Parameter{uml.FReg(0), uml.IReg(0), spaceParam(0)},
		NumParams: 3,
	})
}

func TestFwriteOpUsesSlowPathAccessor(t *testing.T) {
	be := newTestBackend()
	be.spaces = map[int]*addrspace.AddressSpace{
		0: {Index: 0, Slow: addrspace.Accessors{WriteDword: 0x5100}},
	}
	be.fwriteOp(&uml.Instruction{
		Op: uml.OpFWRITE, Size: 4,
		Param:     [uml.MaxParams]uml.Parameter{uml.IReg(0), uml.FReg(0), spaceParam(0)},
		NumParams: 3,
	})
	if be.flagState.state != carryPoison {
		t.Errorf("FWRITE must poison carry-state after its call")
	}
	if _, err := be.as.Bytes(); err != nil {
		t.Fatalf("Bytes: %v", err)
	}
}

func TestWriteMaskedOpDispatchesToMemAccess(t *testing.T) {
	be := newTestBackend()
	be.spaces = map[int]*addrspace.AddressSpace{
		0: {Index: 0, Slow: addrspace.Accessors{WriteDwordMasked: 0x5100}},
	}
	be.writeOp(&uml.Instruction{
		Op:   uml.OpWRITEM,
		Size: 4,
		Param: [uml.MaxParams]uml.Parameter{
			uml.IReg(0), uml.IReg(1), spaceParam(0), uml.Imm(0xff),
		},
		NumParams: 4,
	})
	if _, err := be.as.Bytes(); err != nil {
		t.Fatalf("Bytes: %v", err)
	}
}
