// Copyright © 2024 probe-rs contributors
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package dap

// DpVersion is the architecture version observed from DPIDR.
type DpVersion uint8

const (
	DpVersionUnsupported DpVersion = iota
	DpVersionDPv0
	DpVersionDPv1
	DpVersionDPv2
	DpVersionDPv3
)

// selectShape tags which of the two SELECT encodings a SelectCache holds.
type selectShape uint8

const (
	selectShapeV1 selectShape = iota
	selectShapeV3
)

// SelectCache is a typed shadow of the DP's SELECT/SELECT1 registers: the
// last value actually written to the probe. It never advances ahead of a
// committed write, and it starts DPv1-shaped, retagging to DPv3-shaped
// exactly once, the first time a DPv3 DPIDR is observed (see
// Interface.selectDp). There is no path back to DPv1 shape.
type SelectCache struct {
	shape selectShape

	// DPv1 fields (ADIv5): one 32-bit SELECT word.
	dpBankSel uint8 // 4 bits
	apSel     uint8 // 8 bits
	apBankSel uint8 // 4 bits

	// DPv3 fields (ADIv6): SELECT + SELECT1 encode a 48-bit AP address
	// and a 4-bit DP bank. selectAddr/select1Addr are the two address
	// sub-fields as written to SELECT.addr and SELECT1.addr respectively
	// (bits 4..36 and 36..48 of the combined AP address); DP bank is
	// tracked separately since it occupies SELECT's own low nibble, a
	// disjoint sub-field from the AP address.
	selectAddr  uint32 // SELECT.addr: addr bits [4:35]
	select1Addr uint32 // SELECT1.addr: addr bits [36:47] (and beyond, unmasked)
	v3DpBank    uint8  // 4 bits
}

// NewSelectCache returns a zeroed, DPv1-shaped cache: SELECT has never been
// written.
func NewSelectCache() SelectCache {
	return SelectCache{shape: selectShapeV1}
}

// IsDPv3 reports whether the cache has been retagged to the DPv3 shape.
func (s SelectCache) IsDPv3() bool { return s.shape == selectShapeV3 }

// RetagToDPv3 performs the one-way DPv1->DPv3 retag. It is a no-op if
// already DPv3-shaped. Per spec.md's design note, this must not be called
// on a debug_port_connect failure -- only on an observed DPv3 DPIDR.
func (s SelectCache) RetagToDPv3() SelectCache {
	if s.shape == selectShapeV3 {
		return s
	}
	return SelectCache{shape: selectShapeV3}
}

// DpBankSel returns the currently-shadowed DP register bank.
func (s SelectCache) DpBankSel() uint8 {
	if s.shape == selectShapeV3 {
		return s.v3DpBank
	}
	return s.dpBankSel
}

// ApSel returns the shadowed DPv1 AP-select field.
func (s SelectCache) ApSel() uint8 { return s.apSel }

// ApBankSel returns the shadowed DPv1 AP register-bank field.
func (s SelectCache) ApBankSel() uint8 { return s.apBankSel }

// V1SelectWord renders the DPv1 SELECT register word.
func (s SelectCache) V1SelectWord() uint32 {
	return uint32(s.dpBankSel)&0xF | uint32(s.apSel)<<8 | uint32(s.apBankSel)<<24
}

// V3SelectWords renders the DPv3 SELECT and SELECT1 register words, as the
// sub-fields named in spec.md's AP bank selection algorithm: SELECT.addr
// and SELECT1.addr. The DP bank nibble is a disjoint sub-field of the real
// SELECT register and is written independently by selectDpBank.
func (s SelectCache) V3SelectWords() (selectAddr, select1Addr uint32) {
	return s.selectAddr, s.select1Addr
}

// WithDpBank returns a copy of the cache with the DP bank updated. Used by
// selectDpBank; the caller is responsible for issuing the corresponding
// probe write before trusting the returned cache.
func (s SelectCache) WithDpBank(bank uint8) SelectCache {
	bank &= 0xF
	next := s
	if s.shape == selectShapeV3 {
		next.v3DpBank = bank
	} else {
		next.dpBankSel = bank
	}
	return next
}

// WithApV1 returns a copy of a DPv1-shaped cache with ap_sel/ap_bank_sel set.
func (s SelectCache) WithApV1(apSel, apBankSel uint8) SelectCache {
	next := s
	next.apSel = apSel
	next.apBankSel = apBankSel & 0xF
	return next
}

// WithApV3Addr returns a copy of a DPv3-shaped cache with the 48-bit AP
// address set, decomposed per spec.md's AP bank selection algorithm:
// SELECT.addr takes bits 4..36 of addr, SELECT1.addr takes bits 36..48.
// Both sub-fields are plain 32-bit truncations of the shifted address, so
// an address with bits set above the architectural 48-bit space still
// decomposes deterministically instead of silently wrapping to zero.
// It reports whether the change moved SELECT and/or SELECT1 relative to s.
func (s SelectCache) WithApV3Addr(addr uint64) (next SelectCache, selectChanged, select1Changed bool) {
	shifted := addr >> 4
	selectAddr := uint32(shifted)
	select1Addr := uint32(shifted >> 32)

	next = s
	next.selectAddr = selectAddr
	next.select1Addr = select1Addr

	selectChanged = selectAddr != s.selectAddr
	select1Changed = select1Addr != s.select1Addr
	return
}
