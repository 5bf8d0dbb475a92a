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

import (
	"github.com/FanX-Tek/probe-rs/dap"
	"github.com/FanX-Tek/probe-rs/romtable"
)

// apRegBASE is the Memory-AP BASE register (ARM IHI 0031, bank 0xF): the
// component base address a classic ADIv5 port-addressed AP exposes.
const apRegBASE uint64 = 0xF8

// componentBaseMask clears the low 12 bits of a BASE register value, the
// same masking walkRootTable applies to ADIv6 root-table entries.
const componentBaseMask uint32 = ^uint32(0xFFF)

// componentBase resolves the base address ChipInfo hands to
// romtable.Identify for ap: an ADIv6 AP's own base is already carried on its
// address, an ADIv5 port needs its BASE register read.
func (c *Interface) componentBase(ap dap.FullyQualifiedApAddress) (uint64, error) {
	switch a := ap.AP.(type) {
	case dap.ApAddressV2:
		return a.BaseOrZero(), nil
	case dap.ApAddressV1:
		v, err := c.ReadRawApRegister(ap, apRegBASE)
		if err != nil {
			return 0, err
		}
		return uint64(v & componentBaseMask), nil
	default:
		return 0, nil
	}
}

// ChipInfo implements spec.md §4.5's top-level identification operation: it
// enumerates dp's access ports, obtains a memory interface anchored at each
// one's own component base, and delegates to romtable.Walk. A per-AP
// failure to resolve a base address is discovery silence (spec.md §7) and
// just drops that AP from the walk, matching Walk's own per-AP tolerance.
func (c *Interface) ChipInfo(dp dap.DpAddress) (romtable.ArmChipInfo, error) {
	aps, err := c.AccessPorts(dp)
	if err != nil {
		return romtable.ArmChipInfo{}, err
	}

	mems := make([]romtable.MemoryAP, 0, len(aps))
	for _, ap := range aps {
		base, err := c.componentBase(ap)
		if err != nil {
			continue
		}
		mems = append(mems, c.MemoryInterface(ap, base))
	}

	info, ok := romtable.Walk(mems)
	if !ok {
		return romtable.ArmChipInfo{}, romtable.ErrNoROMTable
	}
	return info, nil
}
