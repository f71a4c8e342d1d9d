package drchash

import "github.com/google/btree"

// btreeMapVars wraps btree.BTreeG[Recovery] the way launix-de-memcp's
// StorageIndex wraps its deltaBtree: a small named type instead of the
// generic instantiation spelled out at every call site.
type btreeMapVars struct {
	t *btree.BTreeG[Recovery]
}

const mapVarsBtreeDegree = 8

func newBtreeMapVars() *btreeMapVars {
	return &btreeMapVars{t: btree.NewG[Recovery](mapVarsBtreeDegree, lessRecovery)}
}

func (b *btreeMapVars) ReplaceOrInsert(r Recovery) {
	b.t.ReplaceOrInsert(r)
}

func (b *btreeMapVars) Get(key Recovery) (Recovery, bool) {
	return b.t.Get(key)
}
