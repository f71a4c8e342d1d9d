// Package drccache implements the DRC code cache: a bump allocator over
// mmap'd executable memory, with alignment support and a fixed "near"
// region reachable by base-relative addressing from anywhere in the
// cache.
//
// Grounded on launix-de-memcp's scm.allocExec/execBuf (mmap then
// mprotect to flip a region from writable to executable), reworked to
// use golang.org/x/sys/unix instead of raw syscall, a closer fit for a
// back-end that has no other reason to import the generic syscall
// package.
package drccache

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// defaultSize is used when the caller (via drcconfig) doesn't override
// it. MAME's real drcbearm64 sizes this in the tens of megabytes; a
// modest default keeps tests fast.
const defaultSize = 8 << 20

// NearSize is the size, in bytes, reserved at the front of the cache for
// base-relative state: the emulated-flags word and the UML register
// spill slots live here so every generated block can reach them with a
// single ADD/SUB-immediate relative to the base register.
const NearSize = 4096

// Cache is a single contiguous mmap'd region split into a fixed "near"
// region followed by a bump-allocated code area. It is not safe for
// concurrent use — the back-end is single-threaded by contract and owns
// exactly one Cache.
type Cache struct {
	mem      []byte
	base     uintptr
	top      int // bump pointer, byte offset from base
	nearUsed int // bytes carved out of the near region so far
	writable bool
	lineSize int
}

// New mmaps a fresh cache of the given size (rounded up to a page),
// defaulting to defaultSize when size <= 0.
func New(size int) (*Cache, error) {
	if size <= 0 {
		size = defaultSize
	}
	page := unix.Getpagesize()
	n := (size + page - 1) &^ (page - 1)
	mem, err := unix.Mmap(-1, 0, n, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("drccache: mmap %d bytes: %w", n, err)
	}
	c := &Cache{
		mem:      mem,
		base:     uintptr(unsafe.Pointer(&mem[0])),
		top:      NearSize,
		writable: true,
		lineSize: 64,
	}
	return c, nil
}

// Close unmaps the cache. Any generated code still reachable from
// callers becomes invalid; callers must ensure no generated block is
// executing or referenced before calling this.
func (c *Cache) Close() error {
	return unix.Munmap(c.mem)
}

// Base returns the host address of byte 0 of the mapping (the start of
// the near region).
func (c *Cache) Base() uintptr { return c.base }

// Near returns the host address of the near region, used for the
// emulated-flags slot and as the base-relative anchor.
func (c *Cache) Near() uintptr { return c.base }

// Top returns the current bump-allocation position as a host address —
// where the next block's code will begin once alignment is applied.
func (c *Cache) Top() uintptr { return c.base + uintptr(c.top) }

// SetCacheLineSize overrides the block alignment, a fixed 64 bytes unless
// set; n <= 0 selects 64. drcbe.New calls it with drcconfig's CacheLine
// (DRC_CACHE_LINE) before the first Begin.
func (c *Cache) SetCacheLineSize(n int) {
	if n <= 0 {
		n = 64
	}
	c.lineSize = n
}

// AlignToCacheLine advances the bump pointer to the next cache-line
// boundary, aligning the cache top to a host cache line before each
// block's codegen begins.
func (c *Cache) AlignToCacheLine() {
	mask := c.lineSize - 1
	c.top = (c.top + mask) &^ mask
}

// BeginCodegen reserves up to `size` bytes starting at the current
// (aligned) top and returns the host address code should be written to,
// or ok=false if the cache has no room — the caller must signal the
// block to abort and arrange a flush+retry, never treat this as fatal.
func (c *Cache) BeginCodegen(size int) (addr uintptr, ok bool) {
	if err := c.beginWrite(); err != nil {
		return 0, false
	}
	c.AlignToCacheLine()
	if c.top+size > len(c.mem) {
		return 0, false
	}
	return c.base + uintptr(c.top), true
}

// EndCodegen commits `used` bytes of the region BeginCodegen reserved,
// advancing the bump pointer. Call only after the assembler has
// successfully produced bytes; on any assembler error the caller must
// not call this, leaving the bump pointer where it was so the
// partially-emitted bytes are never reachable.
func (c *Cache) EndCodegen(used int) {
	c.top += used
}

// Write copies code into the region returned by a prior BeginCodegen at
// the given host address.
func (c *Cache) Write(addr uintptr, code []byte) {
	off := int(addr - c.base)
	copy(c.mem[off:off+len(code)], code)
}

// CodegenComplete flips the whole mapping from writable to executable.
// Mirrors execBuf.makeRX: the cache is either being written to (by the
// generator) or executed (by generated code, through the entry
// trampoline), never both at once, so one mapping with mprotect toggling
// between the two protections is sufficient and matches what the
// teacher's JIT does for the same reason.
func (c *Cache) CodegenComplete() error {
	if !c.writable {
		return nil
	}
	if err := unix.Mprotect(c.mem, unix.PROT_READ|unix.PROT_EXEC); err != nil {
		return fmt.Errorf("drccache: mprotect exec: %w", err)
	}
	c.writable = false
	return nil
}

// beginWrite flips the mapping back to writable for the next generate()
// call.
func (c *Cache) beginWrite() error {
	if c.writable {
		return nil
	}
	if err := unix.Mprotect(c.mem, unix.PROT_READ|unix.PROT_WRITE); err != nil {
		return fmt.Errorf("drccache: mprotect write: %w", err)
	}
	c.writable = true
	return nil
}

// AllocNear carves `size` bytes out of the near region, returning their
// host address. Used once at reset() time for the emulated-flags word
// and the machine-state spill slots that must stay base-relative
// reachable.
func (c *Cache) AllocNear(size int) (uintptr, error) {
	if c.nearUsed+size > NearSize {
		return 0, fmt.Errorf("drccache: near region exhausted (used %d, want %d, cap %d)", c.nearUsed, size, NearSize)
	}
	addr := c.base + uintptr(c.nearUsed)
	c.nearUsed += size
	return addr, nil
}

// Reset rewinds the bump pointer and the near-region allocator, used by
// reset() when the entry/exit trampolines and hash table
// are rebuilt from scratch.
func (c *Cache) Reset() {
	c.top = NearSize
	c.nearUsed = 0
}
