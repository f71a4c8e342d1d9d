package drcbe

import (
	"testing"

	"github.com/xyproto/drcarm64/uml"
)

func TestOpcodeTableHasNoGaps(t *testing.T) {
	for op := 0; op <= maxOpcode; op++ {
		if opcodeTable[op] == nil {
			t.Errorf("opcode %s (%d) has no registered generator", uml.Opcode(op), op)
		}
	}
}

func TestOpcodeTableSizedToMaxOpcode(t *testing.T) {
	if len(opcodeTable) != maxOpcode+1 {
		t.Errorf("opcodeTable length = %d, want %d", len(opcodeTable), maxOpcode+1)
	}
	if maxOpcode != int(uml.OpFWRITE) {
		t.Errorf("maxOpcode should track the last opcode added to uml.Opcode")
	}
}

func TestDispatchPanicsOnOutOfRangeOpcode(t *testing.T) {
	be := &Backend{}
	defer func() {
		r := recover()
		if r == nil {
			t.Fatalf("expected dispatch to panic on an out-of-range opcode")
		}
		ge, ok := r.(*GenError)
		if !ok || ge.Category != CategoryInternal {
			t.Fatalf("expected a CategoryInternal *GenError, got %#v", r)
		}
	}()
	be.dispatch(&uml.Instruction{Op: uml.Opcode(maxOpcode + 1)})
}

func TestDispatchPanicsOnNegativeOpcode(t *testing.T) {
	be := &Backend{}
	defer func() {
		if recover() == nil {
			t.Fatalf("expected dispatch to panic on a negative opcode")
		}
	}()
	be.dispatch(&uml.Instruction{Op: uml.Opcode(-1)})
}

func TestREADMSharesGeneratorWithREAD(t *testing.T) {
	// masked-read/masked-write share their non-masked sibling's generator
	// and let the instruction's own parameters signal the mask.
	if opcodeTable[uml.OpREAD] == nil || opcodeTable[uml.OpREADM] == nil {
		t.Fatalf("READ/READM must both be registered")
	}
}
