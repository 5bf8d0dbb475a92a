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

package dapcore

import "github.com/FanX-Tek/probe-rs/dap"

// Memory-AP register bank addresses (ARM IHI 0031, bank 0): CSW controls
// the auto-increment/size of TAR, TAR holds the next transfer address, DRW
// is the data window TAR currently points at.
const (
	memApRegCSW uint64 = 0x00
	memApRegTAR uint64 = 0x04
	memApRegDRW uint64 = 0x0C
)

// cswSize32 / cswIncrementSingle select 32-bit transfers with TAR
// auto-incrementing by 4 after each DRW access.
const (
	cswSize32           uint32 = 0x2
	cswIncrementSingle  uint32 = 0x1 << 4
)

// APMemory is the smallest legitimate implementation of romtable.MemoryAP:
// a single 32-bit word read via the Memory-AP TAR/DRW register pair, with
// no caching, pipelining, or auto-increment block transfer. A full
// ADIMemoryInterface-style module would replace this with batched reads
// over ReadRawApRegisterRepeated; this type exists so romtable can be
// built and tested without that module.
type APMemory struct {
	core *Interface
	ap   dap.FullyQualifiedApAddress
	base uint64
}

// MemoryInterface returns the memory-access view of ap anchored at base,
// the address romtable.Walk will pass back into ReadU32 as the window
// origin during a ROM-table walk.
func (c *Interface) MemoryInterface(ap dap.FullyQualifiedApAddress, base uint64) *APMemory {
	return &APMemory{core: c, ap: ap, base: base}
}

// Base returns the AP's configured ROM-table base address.
func (m *APMemory) Base() uint64 { return m.base }

// ReadU32 sets TAR to addr with a single-transfer, 32-bit CSW and reads
// back DRW. Two AP register writes plus a read, every call: no caching.
func (m *APMemory) ReadU32(addr uint32) (uint32, error) {
	if err := m.core.WriteRawApRegister(m.ap, memApRegCSW, cswSize32|cswIncrementSingle); err != nil {
		return 0, wrapf(err, "writing CSW for %s", m.ap)
	}
	if err := m.core.WriteRawApRegister(m.ap, memApRegTAR, addr); err != nil {
		return 0, wrapf(err, "writing TAR=%#08x for %s", addr, m.ap)
	}
	v, err := m.core.ReadRawApRegister(m.ap, memApRegDRW)
	if err != nil {
		return 0, wrapf(err, "reading DRW at %#08x for %s", addr, m.ap)
	}
	return v, nil
}
