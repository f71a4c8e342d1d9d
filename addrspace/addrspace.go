// Package addrspace models the guest address-space collaborator the
// back-end's memory-access lowering consumes: dispatch
// tables, address masks, and pre-resolved slow-path accessor function
// pointers. The front-end (or the emulator core it belongs to) owns the
// real dispatch table and its contents; this package only describes the
// shape drcbe reads.
package addrspace

// Endianness of the guest address space. It describes the space for the
// front end; drcbe does not read it.
type Endianness int

const (
	LittleEndian Endianness = iota
	BigEndian
)

// Accessors holds the pre-resolved slow-path byte/word/dword/qword
// read/write function pointers and their receiver, used whenever no
// specific fast-path dispatch entry covers the access.
type Accessors struct {
	Receiver uintptr

	ReadByte, ReadWord, ReadDword, ReadQword                     uintptr
	WriteByte, WriteWord, WriteDword, WriteQword                 uintptr
	ReadByteMasked, ReadWordMasked, ReadDwordMasked, ReadQwordMasked uintptr
	WriteByteMasked, WriteWordMasked, WriteDwordMasked, WriteQwordMasked uintptr
}

// FuncFor returns the pre-resolved accessor for a read or write of the
// given size, or ok=false if this address space doesn't support that
// size.
func (a *Accessors) FuncFor(size int, write, masked bool) (fn uintptr, ok bool) {
	switch {
	case !write && !masked:
		switch size {
		case 1:
			return a.ReadByte, a.ReadByte != 0
		case 2:
			return a.ReadWord, a.ReadWord != 0
		case 4:
			return a.ReadDword, a.ReadDword != 0
		case 8:
			return a.ReadQword, a.ReadQword != 0
		}
	case !write && masked:
		switch size {
		case 1:
			return a.ReadByteMasked, a.ReadByteMasked != 0
		case 2:
			return a.ReadWordMasked, a.ReadWordMasked != 0
		case 4:
			return a.ReadDwordMasked, a.ReadDwordMasked != 0
		case 8:
			return a.ReadQwordMasked, a.ReadQwordMasked != 0
		}
	case write && !masked:
		switch size {
		case 1:
			return a.WriteByte, a.WriteByte != 0
		case 2:
			return a.WriteWord, a.WriteWord != 0
		case 4:
			return a.WriteDword, a.WriteDword != 0
		case 8:
			return a.WriteQword, a.WriteQword != 0
		}
	case write && masked:
		switch size {
		case 1:
			return a.WriteByteMasked, a.WriteByteMasked != 0
		case 2:
			return a.WriteWordMasked, a.WriteWordMasked != 0
		case 4:
			return a.WriteDwordMasked, a.WriteDwordMasked != 0
		case 8:
			return a.WriteQwordMasked, a.WriteQwordMasked != 0
		}
	}
	return 0, false
}

// MaskShape classifies the address mask's structure so the generator can
// pick the cheapest way to apply it.
type MaskShape int

const (
	MaskNone   MaskShape = iota // address is used as-is, no masking needed
	MaskSimple                  // mask is a single AArch64 bitmask-immediate: one AND
	MaskHighBits                // mask affects the high bits the dispatch index reads
)

// Specific is the fast-path dispatch descriptor for one address space:
// a direct pointer into a dispatch table plus the geometry needed to
// index it and call through it, bypassing the generic accessor
// functions.
type Specific struct {
	DispatchBase   uintptr // base of the (mode,addr)->handler table
	NativeBytes    int     // lane width the fast path covers (1,2,4,8)
	LowBitCount    uint32  // number of low address bits the dispatch table ignores (== log2 of entry span)
	HighBitCount   uint32  // number of top bits (after masking) used to index the table
	ThisDisplacement uintptr // offset from a dispatch entry to its accessor object, added to the entry pointer
	IsVirtual      bool    // true: call through a vtable slot; false: call the resolved function pointer directly
	VtableOffset   uintptr // offset of the target member function within the vtable, valid when IsVirtual
	DirectFunc     uintptr // resolved function pointer, valid when !IsVirtual
}

// AddressSpace is everything drcbe needs to lower READ/WRITE against one
// guest address space: its width, endianness, address mask and shape,
// the specific fast-path descriptor (nil if none applies), and the
// generic slow-path accessors (always present as the fallback).
type AddressSpace struct {
	Index        int
	AddressWidth int // bits
	AddrShift    int // log2 of the guest bus granularity, per MAME's addr_shift convention
	Endian       Endianness
	AddrMask     uint64
	MaskShape    MaskShape
	Specific     *Specific // nil when this space has no fast dispatch
	Slow         Accessors
}

// SpecificFor returns the fast-path descriptor usable for an access of
// the given size, or ok=false when the slow path must be used — either
// because this space has no specific dispatch at all, or its native
// lane width doesn't match: the fast path only applies when (1<<size)
// equals native_bytes and a specific dispatch is available.
func (as *AddressSpace) SpecificFor(sizeBytes int) (*Specific, bool) {
	if as.Specific == nil {
		return nil, false
	}
	if as.Specific.NativeBytes != sizeBytes {
		return nil, false
	}
	return as.Specific, true
}
