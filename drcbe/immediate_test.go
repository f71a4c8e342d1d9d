package drcbe

import (
	"encoding/binary"
	"testing"

	"github.com/xyproto/drcarm64/asm"
)

func newTestBackend() *Backend {
	be := &Backend{as: asm.NewAssembler()}
	be.as.SetBase(0x10000)
	return be
}

func lastWord(t *testing.T, be *Backend) uint32 {
	t.Helper()
	code, err := be.as.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	if len(code) < 4 {
		t.Fatalf("expected at least one emitted instruction")
	}
	return binary.LittleEndian.Uint32(code[len(code)-4:])
}

func TestMovImmToRegUsesBitmaskWhenPossible(t *testing.T) {
	be := newTestBackend()
	be.movImmToReg(asm.W64, asm.X0, 0xFFFFFFFF00000000)
	code, err := be.as.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	// A bitmask-immediate MOV lowers to a single ORR (immediate)
	// instruction, not a movz/movk sequence.
	if len(code) != 4 {
		t.Errorf("expected a single instruction via the bitmask rung, got %d bytes", len(code))
	}
}

func TestMovImmToRegSingleLaneUsesMovz(t *testing.T) {
	be := newTestBackend()
	be.movImmToReg(asm.W64, asm.X0, 0x1234)
	code, err := be.as.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	if len(code) != 4 {
		t.Errorf("a value fitting a single 16-bit lane should need only one movz, got %d bytes", len(code))
	}
	instr := binary.LittleEndian.Uint32(code)
	// MOVZ 64-bit opc=10, bits[31:23] = 1101 0010 1
	if instr&0xff800000 != 0xd2800000 {
		t.Errorf("expected a MOVZ opcode, got %#08x", instr)
	}
}

func TestMovImmToRegZeroUsesSingleMovz(t *testing.T) {
	be := newTestBackend()
	be.movImmToReg(asm.W64, asm.X0, 0)
	code, err := be.as.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	if len(code) != 4 {
		t.Errorf("value 0 should still emit exactly one movz #0, got %d bytes", len(code))
	}
}

func TestMovImmToRegFourLaneFallback(t *testing.T) {
	be := newTestBackend()
	// No lane is zero and it is not a legal bitmask immediate: every rung
	// before movz/movk fails and it must fall through to the four-lane path.
	be.movImmToReg(asm.W64, asm.X0, 0x1111222233334445)
	code, err := be.as.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	if len(code) != 16 {
		t.Errorf("expected 4 instructions (1 movz + 3 movk) for a value needing every lane, got %d bytes", len(code))
	}
}

func TestMovImmToReg32BitMasksToLowWord(t *testing.T) {
	be := newTestBackend()
	be.movImmToReg(asm.W32, asm.X0, 0xFFFFFFFF00001234)
	code, err := be.as.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	if len(code) != 4 {
		t.Errorf("32-bit destination should only need to materialize the low word (0x1234), got %d bytes", len(code))
	}
}

func TestNonZeroLanes(t *testing.T) {
	if n := nonZeroLanes(0, asm.W64); n != 0 {
		t.Errorf("nonZeroLanes(0) = %d, want 0", n)
	}
	if n := nonZeroLanes(0x0001000000000001, asm.W64); n != 2 {
		t.Errorf("nonZeroLanes = %d, want 2", n)
	}
	if n := nonZeroLanes(0xFFFF0000, asm.W32); n != 1 {
		t.Errorf("nonZeroLanes(32-bit) = %d, want 1", n)
	}
}

func TestSingleNonZeroLane(t *testing.T) {
	idx, ok := singleNonZeroLane(0x00010000, asm.W64)
	if !ok || idx != 1 {
		t.Errorf("singleNonZeroLane(0x10000) = (%d, %v), want (1, true)", idx, ok)
	}
	if _, ok := singleNonZeroLane(0x00010001, asm.W64); ok {
		t.Errorf("two non-zero lanes should report ok=false")
	}
	if _, ok := singleNonZeroLane(0, asm.W64); ok {
		t.Errorf("an all-zero value has no non-zero lane")
	}
}

func TestFitsAddSubImmSmallDelta(t *testing.T) {
	delta, ok := fitsAddSubImm(0x10010, 0x10000)
	if !ok || delta != 0x10 {
		t.Errorf("fitsAddSubImm small positive delta = (%d, %v)", delta, ok)
	}
	delta, ok = fitsAddSubImm(0x0FFF0, 0x10000)
	if !ok || delta != -0x10 {
		t.Errorf("fitsAddSubImm small negative delta = (%d, %v)", delta, ok)
	}
}

func TestFitsAddSubImmShiftedDelta(t *testing.T) {
	base := uintptr(0x10000)
	value := uint64(base) + (0x123 << 12)
	delta, ok := fitsAddSubImm(value, base)
	if !ok || delta != 0x123<<12 {
		t.Errorf("fitsAddSubImm shifted delta = (%d, %v)", delta, ok)
	}
}

func TestFitsAddSubImmTooLarge(t *testing.T) {
	if _, ok := fitsAddSubImm(0x7fffffffffff, 0); ok {
		t.Errorf("a delta this large should not fit either add/sub-immediate rung")
	}
}

func TestMaterializeMemRefUsesBaseWhenClose(t *testing.T) {
	be := newTestBackend()
	be.near = 0x20000
	reg, off := be.materializeMemRef(Scratch0, be.near+0x40, 8)
	if reg != BaseReg {
		t.Errorf("a nearby address should materialize base-relative, got reg %v", reg)
	}
	if off != 0x40 {
		t.Errorf("offset = %d, want 0x40", off)
	}
}

func TestMaterializeMemRefFallsBackToScratch(t *testing.T) {
	be := newTestBackend()
	be.near = 0x20000
	reg, off := be.materializeMemRef(Scratch0, 0xdeadbeef0000, 8)
	if reg != Scratch0 {
		t.Errorf("a far address should materialize into the scratch register, got %v", reg)
	}
	if off != 0 {
		t.Errorf("scratch-materialized offset should be 0, got %d", off)
	}
}
