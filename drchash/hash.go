// Package drchash implements the two collaborators the back-end treats
// as external: the (mode,PC)->codeptr hash table HASH and HASHJMP
// consult, and the map-variable store MAPVAR writes and RECOVER reads
// through.
package drchash

import "fmt"

// key is the two-level lookup key: guest CPU mode and guest PC.
type key struct {
	mode uint32
	pc   uint32
}

// CodeTable is the hash table collaborator: HASH registers a generated
// block's entry point at (mode,pc); HASHJMP looks it up. The HASHJMP
// lowering (drcbe/controlflow.go) resolves a constant target against it
// at generation time and otherwise calls a trampoline wrapping Lookup;
// no table walk is emitted in native code. It is also what
// hash_exists() queries.
type CodeTable struct {
	blockGeneration bool
	entries         map[key]uintptr
}

// NewCodeTable returns an empty hash table.
func NewCodeTable() *CodeTable {
	return &CodeTable{entries: make(map[key]uintptr)}
}

// BlockBegin/BlockEnd bracket a generate() call; a HASH inside a block
// under generation must not be visible to a concurrent lookup until the
// block is committed to the cache, matching a block_begin/block_end
// contract even though this single-threaded back-end never actually
// races itself.
func (t *CodeTable) BlockBegin() { t.blockGeneration = true }
func (t *CodeTable) BlockEnd()   { t.blockGeneration = false }

// SetCodePtr registers ptr as the generated code for (mode,pc).
func (t *CodeTable) SetCodePtr(mode, pc uint32, ptr uintptr) {
	t.entries[key{mode, pc}] = ptr
}

// Lookup returns the code pointer for (mode,pc), or ok=false on a miss —
// the case HASHJMP's runtime fallback re-enters the dispatcher for.
func (t *CodeTable) Lookup(mode, pc uint32) (uintptr, bool) {
	p, ok := t.entries[key{mode, pc}]
	return p, ok
}

// Exists reports whether (mode,pc) has a registered block, backing the
// back-end's public hash_exists().
func (t *CodeTable) Exists(mode, pc uint32) bool {
	_, ok := t.entries[key{mode, pc}]
	return ok
}

// Clear drops every registered block, used by reset().
func (t *CodeTable) Clear() {
	t.entries = make(map[key]uintptr)
}

// MapVarID identifies one map variable, interned by the front-end.
type MapVarID int

// Recovery describes one RECOVER site: the return-address-minus-4 a
// stack walk lands on, mapped to the map-variable value that was live at
// that call site.
type Recovery struct {
	ReturnAddr uintptr
	VarID      MapVarID
	Value      uint64
}

func lessRecovery(a, b Recovery) bool {
	if a.ReturnAddr != b.ReturnAddr {
		return a.ReturnAddr < b.ReturnAddr
	}
	return a.VarID < b.VarID
}

// MapVars is the map-variable utility collaborator: an ordered store of
// (return address, var id) -> value, queried by GetValue during
// RECOVER's stack walk and populated by SetValue wherever the front-end
// (through MAPVAR) records a map-variable snapshot at a call site.
//
// Backed by github.com/google/btree, the ordered-map dependency
// launix-de-memcp's storage layer already carries for exactly this
// "ordered snapshot store keyed by a composite key" shape (see
// storage/index.go's deltaBtree over (itemid,data) pairs).
type MapVars struct {
	tree *btreeMapVars
}

func NewMapVars() *MapVars {
	return &MapVars{tree: newBtreeMapVars()}
}

// SetValue records the map-variable value live at a given return
// address.
func (m *MapVars) SetValue(returnAddr uintptr, id MapVarID, value uint64) {
	m.tree.ReplaceOrInsert(Recovery{ReturnAddr: returnAddr, VarID: id, Value: value})
}

// GetValue returns the value recorded for (returnAddr, id), or an error
// if RECOVER's stack walk landed somewhere that was never SetValue'd —
// a generator-internal invariant violation.
func (m *MapVars) GetValue(returnAddr uintptr, id MapVarID) (uint64, error) {
	r, ok := m.tree.Get(Recovery{ReturnAddr: returnAddr, VarID: id})
	if !ok {
		return 0, fmt.Errorf("drchash: no map-variable %d recorded at return address %#x", id, returnAddr)
	}
	return r.Value, nil
}
