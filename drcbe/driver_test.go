package drcbe

import (
	"testing"

	"github.com/xyproto/drcarm64/drcconfig"
	"github.com/xyproto/drcarm64/uml"
)

func newRealBackend(t *testing.T) *Backend {
	t.Helper()
	state := &MachineState{}
	cfg := drcconfig.Config{CacheBytes: 1 << 20}
	be, err := New(state, nil, nil, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := be.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	return be
}

func setIRegInstr(op uml.Opcode, size uint8, dst, src uml.Parameter) uml.Instruction {
	return uml.Instruction{Op: op, Size: size, Param: [uml.MaxParams]uml.Parameter{dst, src}, NumParams: 2}
}

func TestResetPopulatesTrampolineAddresses(t *testing.T) {
	be := newRealBackend(t)
	if be.entryAddr == 0 || be.exitAddr == 0 || be.nocodeAddr == 0 {
		t.Fatalf("Reset should populate every trampoline address: entry=%#x exit=%#x nocode=%#x", be.entryAddr, be.exitAddr, be.nocodeAddr)
	}
	if be.near == 0 {
		t.Fatalf("Reset should allocate the near region")
	}
}

func TestGenerateRegistersBlockInHashTable(t *testing.T) {
	be := newRealBackend(t)
	const mode, pc = 0, 0x4000

	instrs := []uml.Instruction{
		setIRegInstr(uml.OpMOV, 4, uml.IReg(0), uml.Imm(1)),
		{Op: uml.OpEXIT, Size: 4, Param: [uml.MaxParams]uml.Parameter{uml.IReg(0)}, NumParams: 1},
	}
	if err := be.Generate(mode, pc, instrs); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !be.HashExists(mode, pc) {
		t.Fatalf("HashExists should report the freshly generated block")
	}
	if len(be.blocks) != 1 {
		t.Fatalf("expected exactly one BlockInfo record, got %d", len(be.blocks))
	}
	bi := be.blocks[0]
	if bi.Mode != mode || bi.PC != pc {
		t.Errorf("BlockInfo = %+v, wrong mode/pc", bi)
	}
	if bi.Addr == 0 || bi.Size == 0 {
		t.Errorf("BlockInfo should record a non-zero address and size")
	}
}

func TestGenerateWithConditionalJumpAndLabel(t *testing.T) {
	be := newRealBackend(t)
	const mode, pc = 0, 0x5000

	doneLabel := uml.CodeLabel{ID: 0}
	instrs := []uml.Instruction{
		setIRegInstr(uml.OpMOV, 4, uml.IReg(0), uml.Imm(39)),
		{
			Op: uml.OpADD, Size: 4, FlagsMask: uml.FlagZ | uml.FlagC | uml.FlagV | uml.FlagS,
			Param:     [uml.MaxParams]uml.Parameter{uml.IReg(0), uml.IReg(0), uml.Imm(3)},
			NumParams: 3,
		},
		{
			Op: uml.OpCMP, Size: 4, FlagsMask: uml.FlagZ | uml.FlagC | uml.FlagV | uml.FlagS,
			Param:     [uml.MaxParams]uml.Parameter{uml.IReg(0), uml.Imm(42)},
			NumParams: 2,
		},
		{
			Op:        uml.OpJMP,
			Cond:      uml.CondZ,
			Param:     [uml.MaxParams]uml.Parameter{uml.LabelParam(doneLabel)},
			NumParams: 1,
		},
		setIRegInstr(uml.OpMOV, 4, uml.IReg(1), uml.Imm(1)),
		{Op: uml.OpEXIT, Size: 4, Param: [uml.MaxParams]uml.Parameter{uml.IReg(1)}, NumParams: 1},
		{
			Op:        uml.OpLABEL,
			Param:     [uml.MaxParams]uml.Parameter{uml.LabelParam(doneLabel)},
			NumParams: 1,
		},
		{Op: uml.OpEXIT, Size: 4, Param: [uml.MaxParams]uml.Parameter{uml.Imm(0)}, NumParams: 1},
	}
	if err := be.Generate(mode, pc, instrs); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !be.Execute(mode, pc) {
		t.Fatalf("Execute should find the generated block")
	}
}

func TestExecuteReportsMissForUngeneratedBlock(t *testing.T) {
	be := newRealBackend(t)
	if be.Execute(0, 0x9999) {
		t.Fatalf("Execute should report false for a (mode,pc) with no generated block")
	}
}

func TestGenerateRejectsUnknownOpcode(t *testing.T) {
	be := newRealBackend(t)
	err := be.Generate(0, 0x6000, []uml.Instruction{{Op: uml.Opcode(maxOpcode + 1)}})
	if err == nil {
		t.Fatalf("expected Generate to return an error for an unrecognized opcode")
	}
	ge, ok := err.(*GenError)
	if !ok || ge.Category != CategoryInternal {
		t.Fatalf("expected a CategoryInternal *GenError, got %#v", err)
	}
}

func TestGenerateLeavesNoPartialBlockOnError(t *testing.T) {
	be := newRealBackend(t)
	hashBefore := be.HashExists(0, 0x7000)

	err := be.Generate(0, 0x7000, []uml.Instruction{
		setIRegInstr(uml.OpMOV, 4, uml.IReg(0), uml.Imm(1)),
		{Op: uml.Opcode(maxOpcode + 1)},
	})
	if err == nil {
		t.Fatalf("expected an error from the bad second instruction")
	}
	if be.HashExists(0, 0x7000) != hashBefore {
		t.Errorf("a failed Generate must not register a partial block in the hash table")
	}
}

func TestResetClearsPreviouslyGeneratedBlocks(t *testing.T) {
	be := newRealBackend(t)
	if err := be.Generate(0, 0x8000, []uml.Instruction{
		{Op: uml.OpEXIT, Size: 4, Param: [uml.MaxParams]uml.Parameter{uml.Imm(0)}, NumParams: 1},
	}); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if err := be.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if be.HashExists(0, 0x8000) {
		t.Errorf("Reset should clear the hash table")
	}
}

func TestGetInfoReportsDirectRegisterCounts(t *testing.T) {
	be := newRealBackend(t)
	info := be.GetInfo()
	if info.DirectIntRegs != 8 || info.DirectFloatRegs != 8 {
		t.Errorf("GetInfo() = %+v, want 8/8", info)
	}
}

func TestHandleInternsByName(t *testing.T) {
	be := newRealBackend(t)
	h1 := be.Handle("nocode")
	h2 := be.Handle("nocode")
	if h1 != h2 {
		t.Errorf("Handle should return the same *uml.CodeHandle for the same name")
	}
	h3 := be.Handle("other")
	if h3 == h1 {
		t.Errorf("Handle should return distinct handles for distinct names")
	}
}
