// Package drcbe is the UML-to-AArch64 translator. It lowers a
// front-end-supplied instruction list to native
// code inside a drccache.Cache, using asm as its machine-code assembler,
// addrspace.AddressSpace as the guest memory model, and drchash for the
// hashed PC dispatch table and map-variable recovery.
package drcbe

import (
	"unsafe"

	"github.com/google/uuid"

	"github.com/xyproto/drcarm64/addrspace"
	"github.com/xyproto/drcarm64/asm"
	"github.com/xyproto/drcarm64/drcconfig"
	"github.com/xyproto/drcarm64/drchash"
	"github.com/xyproto/drcarm64/drccache"
	"github.com/xyproto/drcarm64/uml"
)

// MachineState is the externally defined, persisted machine-state
// structure: per-UML-register slots plus a handful of scalar fields
// SAVE/RESTORE and CALLC's exception path observe at fixed offsets. The
// front-end/emulator core owns the real allocation; drcbe is handed a
// pointer to one.
type MachineState struct {
	IReg  [8]uint64
	FReg  [8]uint64
	Fmod  uint8
	_     [3]byte // pad to keep Exp naturally aligned
	Exp   uint32
	Flags uint8
	_     [3]byte
}

// NearState is the single-instance, cache-resident block of state the
// base register keeps in reach: currently just the emulated-flags word;
// it holds no UML register spill slots.
type NearState struct {
	EmulatedFlags uint32
}

// Debugger is the host debugger hook collaborator: a
// virtual instruction_hook(pc) reachable through a resolved member-
// function descriptor, gated by a runtime bit so blocks compiled without
// debugging enabled pay nothing.
type Debugger interface {
	InstructionHook(pc uint64)
}

// noopDebugger is used when the caller supplies none; InstructionHook
// calls are gated out at codegen time (see drcconfig.Config.DebugHook)
// so this is never actually invoked from generated code, only from
// callers exercising the interpreter-level fallback in tests.
type noopDebugger struct{}

func (noopDebugger) InstructionHook(uint64) {}

// BlockInfo records provenance for one generated block: which mode/PC it
// covers and a stable identifier the debugger can correlate a faulting
// PC back to. Keyed by a UUID (github.com/google/uuid, a dependency
// carried over from launix-de-memcp's storage layer) rather than a
// pointer, so it stays meaningful after the cache has been reset and the
// underlying address reused.
type BlockInfo struct {
	ID   uuid.UUID
	Mode uint32
	PC   uint32
	Addr uintptr
	Size int
}

// Info is the get_info() output.
type Info struct {
	DirectIntRegs   int
	DirectFloatRegs int
}

// Backend is the UML→AArch64 translator. One Backend owns exactly one
// cache, hash table, and map-variable store, and is not safe for
// concurrent use.
type Backend struct {
	cfg     drcconfig.Config
	cache   *drccache.Cache
	hash    *drchash.CodeTable
	mapvars *drchash.MapVars
	spaces  map[int]*addrspace.AddressSpace
	state   *MachineState
	debug   Debugger

	near      uintptr // AllocNear'd NearState address
	entryAddr uintptr
	exitAddr  uintptr
	nocodeAddr uintptr
	eobAddr   uintptr

	// recoverTrampoline is the address of a small Go-side stub that
	// calls mapvars.GetValue with the (returnAddr, id) staged in X0/X1
	// by RECOVER's generated sequence (controlflow.go). Registered by
	// Reset via runtime.RegisterTrampoline-style pinning in a full
	// embedding; left zero in this library and populated by the
	// front end once one exists to pin against.
	recoverTrampoline uintptr

	// hashjmpTrampoline is the address of a small Go-side stub that calls
	// hash.Lookup(mode, pc) with mode/pc staged in W0/W1 by HASHJMP's
	// generated sequence (controlflow.go), returning the resolved code
	// pointer in X0 or 0 on a miss. Populated the same way as
	// recoverTrampoline.
	hashjmpTrampoline uintptr

	handles map[string]*uml.CodeHandle
	blocks  []BlockInfo

	// debugHookAddr is the address DEBUG calls when cfg.DebugHook is
	// set. New and Reset leave it zero; nothing in this package sets it.
	debugHookAddr uintptr

	// per-generate() scratch, reset at the top of every Generate call
	as        *asm.Assembler
	flagState flagTracker
	labels    map[uml.CodeLabel]asm.Label
}

// New constructs a Backend bound to the given machine-state pointer and
// configuration. Call Reset before the first Execute/Generate.
func New(state *MachineState, spaces []*addrspace.AddressSpace, debug Debugger, cfg drcconfig.Config) (*Backend, error) {
	cache, err := drccache.New(cfg.CacheBytes)
	if err != nil {
		return nil, err
	}
	if cfg.CacheLine > 0 {
		cache.SetCacheLineSize(cfg.CacheLine)
	}
	if debug == nil {
		debug = noopDebugger{}
	}
	spaceMap := make(map[int]*addrspace.AddressSpace, len(spaces))
	for _, s := range spaces {
		spaceMap[s.Index] = s
	}
	be := &Backend{
		cfg:     cfg,
		cache:   cache,
		hash:    drchash.NewCodeTable(),
		mapvars: drchash.NewMapVars(),
		spaces:  spaceMap,
		state:   state,
		debug:   debug,
		handles: make(map[string]*uml.CodeHandle),
		as:      asm.NewAssembler(),
	}
	return be, nil
}

// StatePtr exposes the bound machine-state pointer, used by opcode
// generators that need its address as a base-relative or absolute
// constant (SAVE/RESTORE/CALLC/EXH).
func (be *Backend) StatePtr() uintptr { return uintptr(unsafe.Pointer(be.state)) }

// GetInfo populates the count of directly-mapped integer and float
// registers.
func (be *Backend) GetInfo() Info {
	return Info{
		DirectIntRegs:   DirectIntCount(),
		DirectFloatRegs: DirectFloatCount(),
	}
}

// HashExists reports whether (mode,pc) has a generated block registered.
func (be *Backend) HashExists(mode, pc uint32) bool {
	return be.hash.Exists(mode, pc)
}

// Handle interns (or returns the existing) code handle for name. Real
// front ends intern handles themselves and hand drcbe a *uml.CodeHandle
// directly; this helper exists for the toy front end in cmd/drcrun and
// for tests that build UML programs by hand.
func (be *Backend) Handle(name string) *uml.CodeHandle {
	if h, ok := be.handles[name]; ok {
		return h
	}
	h := &uml.CodeHandle{Name: name}
	be.handles[name] = h
	return h
}
