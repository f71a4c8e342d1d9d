package drcbe

import (
	"github.com/google/uuid"

	"github.com/xyproto/drcarm64/asm"
	"github.com/xyproto/drcarm64/drchash"
	"github.com/xyproto/drcarm64/uml"
)

// blockCapacity is the size, in bytes, reserved per Generate call before
// the assembled size is known. A fixed generous cap keeps this back-end's
// driver simple, at the cost of some cache fragmentation the bump
// allocator never reclaims mid-block anyway.
const blockCapacity = 64 * 1024

// Reset rebuilds the entry/exit trampolines, the hash table, and the
// near-region state, discarding every previously generated block.
func (be *Backend) Reset() error {
	be.cache.Reset()
	be.hash.Clear()
	be.mapvars = drchash.NewMapVars()
	be.labels = nil

	near, err := be.cache.AllocNear(nearStateSize)
	if err != nil {
		return err
	}
	be.near = near

	be.as.Reset()
	addr, ok := be.cache.BeginCodegen(blockCapacity)
	if !ok {
		return cacheFullError()
	}
	be.as.SetBase(addr)
	be.emitEntryTrampoline()
	code, err := be.as.Bytes()
	if err != nil {
		return assemblerError(err)
	}
	be.cache.Write(addr, code)
	be.cache.EndCodegen(len(code))
	be.entryAddr = addr

	be.as.Reset()
	addr, ok = be.cache.BeginCodegen(blockCapacity)
	if !ok {
		return cacheFullError()
	}
	be.as.SetBase(addr)
	be.emitExitTrampoline()
	code, err = be.as.Bytes()
	if err != nil {
		return assemblerError(err)
	}
	be.cache.Write(addr, code)
	be.cache.EndCodegen(len(code))
	be.exitAddr = addr

	be.as.Reset()
	addr, ok = be.cache.BeginCodegen(blockCapacity)
	if !ok {
		return cacheFullError()
	}
	be.as.SetBase(addr)
	be.emitNoCodeStub()
	code, err = be.as.Bytes()
	if err != nil {
		return assemblerError(err)
	}
	be.cache.Write(addr, code)
	be.cache.EndCodegen(len(code))
	be.nocodeAddr = addr

	if err := be.cache.CodegenComplete(); err != nil {
		return err
	}
	return nil
}

// nearStateSize is the footprint reserved for NearState in the near
// region.
const nearStateSize = 16

// emitNoCodeStub builds a landing pad that re-enters the front end's
// exception path through the reserved "nocode" handle rather than
// crashing, for any generated indirect branch that resolves to nothing.
// HASHJMP no longer falls back here on a dispatch miss — it carries its
// own bad_handle operand for that (see hashjmpOp) — but the stub stays
// available for other unresolved-target paths a front end may still want
// to route through it.
func (be *Backend) emitNoCodeStub() {
	h, ok := be.handles["nocode"]
	if !ok || h.Ptr == nil || *h.Ptr == 0 {
		be.as.Ret()
		return
	}
	be.movImmToReg(asm.W64, Scratch0, uint64(*h.Ptr))
	be.as.BrReg(Scratch0)
}

// Generate lowers one block's instruction list into native code and
// commits it into the cache. On cache exhaustion it returns a
// retryable *GenError and leaves the cache untouched; on any other
// error generation is aborted with no bytes committed.
func (be *Backend) Generate(mode, pc uint32, instrs []uml.Instruction) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if ge, ok := r.(*GenError); ok {
				err = ge
				return
			}
			panic(r)
		}
	}()

	be.as.Reset()
	be.flagState.poison()
	be.labels = make(map[uml.CodeLabel]asm.Label)

	addr, ok := be.cache.BeginCodegen(blockCapacity)
	if !ok {
		return cacheFullError()
	}
	be.as.SetBase(addr)

	for i := range instrs {
		be.dispatch(&instrs[i])
	}

	be.branchToExit()

	code, cerr := be.as.Bytes()
	if cerr != nil {
		return assemblerError(cerr)
	}
	be.cache.Write(addr, code)
	be.cache.EndCodegen(len(code))

	be.hash.SetCodePtr(mode, pc, addr)
	be.blocks = append(be.blocks, BlockInfo{
		ID:   newBlockID(),
		Mode: mode,
		PC:   pc,
		Addr: addr,
		Size: len(code),
	})
	return nil
}

// newBlockID mints a UUID for a freshly generated block's provenance
// record.
func newBlockID() uuid.UUID { return uuid.New() }

// Execute enters the generated code for (mode,pc) through the entry
// trampoline. Returns false if no block has been generated there yet.
func (be *Backend) Execute(mode, pc uint32) bool {
	addr, ok := be.hash.Lookup(mode, pc)
	if !ok {
		return false
	}
	be.callEntry(addr)
	return true
}
