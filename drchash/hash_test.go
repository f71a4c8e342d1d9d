package drchash

import "testing"

func TestCodeTableSetLookupExists(t *testing.T) {
	tbl := NewCodeTable()
	if tbl.Exists(0, 0x1000) {
		t.Fatalf("empty table should not report an entry")
	}
	if _, ok := tbl.Lookup(0, 0x1000); ok {
		t.Fatalf("empty table lookup should miss")
	}

	tbl.SetCodePtr(0, 0x1000, 0xdead0000)
	if !tbl.Exists(0, 0x1000) {
		t.Fatalf("expected entry to exist after SetCodePtr")
	}
	ptr, ok := tbl.Lookup(0, 0x1000)
	if !ok || ptr != 0xdead0000 {
		t.Fatalf("Lookup = (%#x, %v), want (0xdead0000, true)", ptr, ok)
	}
}

func TestCodeTableDistinguishesModeFromPC(t *testing.T) {
	tbl := NewCodeTable()
	tbl.SetCodePtr(0, 0x1000, 0x1)
	tbl.SetCodePtr(1, 0x1000, 0x2)
	tbl.SetCodePtr(0, 0x2000, 0x3)

	if p, _ := tbl.Lookup(0, 0x1000); p != 0x1 {
		t.Errorf("mode 0 pc 0x1000: got %#x", p)
	}
	if p, _ := tbl.Lookup(1, 0x1000); p != 0x2 {
		t.Errorf("mode 1 pc 0x1000: got %#x", p)
	}
	if p, _ := tbl.Lookup(0, 0x2000); p != 0x3 {
		t.Errorf("mode 0 pc 0x2000: got %#x", p)
	}
}

func TestCodeTableClear(t *testing.T) {
	tbl := NewCodeTable()
	tbl.SetCodePtr(0, 0x1000, 0x1)
	tbl.Clear()
	if tbl.Exists(0, 0x1000) {
		t.Fatalf("Clear should drop every registered block")
	}
}

func TestCodeTableBlockBracketing(t *testing.T) {
	tbl := NewCodeTable()
	if tbl.blockGeneration {
		t.Fatalf("new table should not be mid-generation")
	}
	tbl.BlockBegin()
	if !tbl.blockGeneration {
		t.Fatalf("BlockBegin should set blockGeneration")
	}
	tbl.BlockEnd()
	if tbl.blockGeneration {
		t.Fatalf("BlockEnd should clear blockGeneration")
	}
}

func TestMapVarsSetGetValue(t *testing.T) {
	m := NewMapVars()
	m.SetValue(0x4000, MapVarID(1), 99)

	v, err := m.GetValue(0x4000, MapVarID(1))
	if err != nil {
		t.Fatalf("GetValue: %v", err)
	}
	if v != 99 {
		t.Errorf("GetValue = %d, want 99", v)
	}
}

func TestMapVarsGetValueUnrecordedIsError(t *testing.T) {
	m := NewMapVars()
	if _, err := m.GetValue(0x4000, MapVarID(1)); err == nil {
		t.Fatalf("expected an error for a return address never recorded")
	}
}

func TestMapVarsDistinguishesVarID(t *testing.T) {
	m := NewMapVars()
	m.SetValue(0x4000, MapVarID(1), 10)
	m.SetValue(0x4000, MapVarID(2), 20)

	v1, err := m.GetValue(0x4000, MapVarID(1))
	if err != nil || v1 != 10 {
		t.Errorf("var 1: got (%d, %v)", v1, err)
	}
	v2, err := m.GetValue(0x4000, MapVarID(2))
	if err != nil || v2 != 20 {
		t.Errorf("var 2: got (%d, %v)", v2, err)
	}
}

func TestMapVarsReplaceOrInsertOverwrites(t *testing.T) {
	m := NewMapVars()
	m.SetValue(0x4000, MapVarID(1), 10)
	m.SetValue(0x4000, MapVarID(1), 11)

	v, err := m.GetValue(0x4000, MapVarID(1))
	if err != nil {
		t.Fatalf("GetValue: %v", err)
	}
	if v != 11 {
		t.Errorf("GetValue = %d, want 11 (last write wins)", v)
	}
}

func TestLessRecoveryOrdering(t *testing.T) {
	a := Recovery{ReturnAddr: 0x1000, VarID: 5}
	b := Recovery{ReturnAddr: 0x2000, VarID: 1}
	if !lessRecovery(a, b) {
		t.Errorf("expected a < b by ReturnAddr first")
	}
	c := Recovery{ReturnAddr: 0x1000, VarID: 6}
	if !lessRecovery(a, c) {
		t.Errorf("expected a < c by VarID when ReturnAddr ties")
	}
	if lessRecovery(c, a) {
		t.Errorf("lessRecovery should not be symmetric here")
	}
}
