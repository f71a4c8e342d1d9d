package asm

import "math/bits"

// encodeBitmaskImmediate implements the AArch64 "logical immediate"
// encoding used by AND/ORR/EOR/ANDS/TST-immediate and MOVZ's sibling MOV
// of an immediate that isn't a single 16-bit lane. It finds the smallest
// rotated run of ones (element size 2..64, power of two) that reproduces
// value over the given register width, returning (n, immr, imms, ok).
//
// This is a direct, from-scratch implementation of the well known
// bitmask-immediate decode run in reverse (the encoder tries every legal
// element size, which is cheap: at most 6 candidates for a 64-bit value).
func encodeBitmaskImmediate(value uint64, width Width) (n, immr, imms uint32, ok bool) {
	size := 64
	if width == W32 {
		size = 32
		value &= 0xffffffff
	}
	if value == 0 || (width == W32 && value == 0xffffffff) || (width == W64 && value == ^uint64(0)) {
		return 0, 0, 0, false
	}

	for esize := 2; esize <= size; esize *= 2 {
		mask := uint64(1)<<esize - 1
		if esize == 64 {
			mask = ^uint64(0)
		}
		elem := value & mask
		// every esize-bit chunk of value must equal elem for this
		// element size to be a candidate
		uniform := true
		for shift := esize; shift < size; shift += esize {
			if (value>>shift)&mask != elem {
				uniform = false
				break
			}
		}
		if !uniform {
			continue
		}
		// elem must be a rotation of a contiguous run of ones within esize bits
		rot, onesLen, ok2 := rotatedOnesRun(elem, esize)
		if !ok2 {
			continue
		}
		nBit := uint32(0)
		if esize == 64 {
			nBit = 1
		}
		immrVal := uint32(rot)
		immsVal := uint32(onesLen-1) | (^uint32(esize-1) & 0x3f)
		// imms low bits encode (onesLen-1), the high bits encode which
		// element size was used, per the ARM ARM's packed encoding.
		immsVal = encodeImmsField(esize, onesLen)
		return nBit, immrVal, immsVal, true
	}
	return 0, 0, 0, false
}

// rotatedOnesRun checks whether elem (esize bits wide) is a contiguous
// run of 1s rotated right by some amount within the esize-bit field, and
// if so returns that right-rotation amount (the immr field) and the run
// length.
func rotatedOnesRun(elem uint64, esize int) (rot int, length int, ok bool) {
	if elem == 0 {
		return 0, 0, false
	}
	full := uint64(1)<<esize - 1
	if esize == 64 {
		full = ^uint64(0)
	}
	if elem == full {
		return 0, esize, true
	}
	// try every rotation amount; esize is at most 64 so this is cheap
	for r := 0; r < esize; r++ {
		rotated := ((elem >> r) | (elem << (esize - r))) & full
		// rotated should now be a low, contiguous run of ones: 0b0..01..1
		if rotated == 0 {
			continue
		}
		ones := bits.TrailingZeros64(^rotated & full)
		if ones == 0 || ones > esize {
			continue
		}
		candidate := uint64(1)<<ones - 1
		if rotated == candidate {
			return (esize - r) % esize, ones, true
		}
	}
	return 0, 0, false
}

// encodeImmsField packs the element-size selector and ones-run length
// into AArch64's single imms field: the position of the lowest zero bit
// (scanning from bit 6 down) selects esize, and the low bits below it
// hold length-1.
func encodeImmsField(esize, length int) uint32 {
	// esize is a power of two in [2,64]; find its bit position.
	p := bits.TrailingZeros(uint(esize))
	// The field is 6 bits: bits above p are all 1, bit p is 0, bits below
	// encode (length-1).
	top := uint32(0x3f) &^ ((uint32(1) << (p + 1)) - 1)
	return top | uint32(length-1)&(uint32(1)<<p-1)
}
