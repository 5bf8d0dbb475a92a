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
	"sort"

	"github.com/FanX-Tek/probe-rs/dap"
)

// idrRegister is the AP Identification Register, bank F of every AP type.
const idrRegister uint64 = 0xFC

// maxADIv5Ports bounds the ADIv5 AP-index sweep: the architecture allows up
// to 256 ports per DP.
const maxADIv5Ports = 256

// rootTableMaxEntries bounds the ADIv6 root-table scan, with the same value
// as romtable's romTableEntryCount: the table terminates with a zero entry
// long before this is reached in practice.
const rootTableMaxEntries = 512

// rootEntryPresent / rootEntryFormat32 are the low two bits of a Class-1
// ROM table entry: PRESENT and FORMAT (32-bit offset encoding).
const (
	rootEntryPresent  = 1 << 0
	rootEntryFormat32 = 1 << 1
)

// AccessPorts enumerates the fully qualified AP addresses reachable from dp,
// ordered by FullyQualifiedApAddress.Less. ADIv5 DPs (DPv0..DPv2) are swept
// by AP index, probing IDR at each; ADIv6 (DPv3) walks the root ROM table
// at AP-v2 base 0 to discover child component base addresses. In the ADIv5
// sweep a read failure at a given index is treated as "nothing there" and
// does not abort the sweep; in the ADIv6 walk a read failure ends the walk,
// keeping the entries found before it.
func (c *Interface) AccessPorts(dp dap.DpAddress) ([]dap.FullyQualifiedApAddress, error) {
	state, err := c.selectDp(dp)
	if err != nil {
		return nil, err
	}

	var found []dap.FullyQualifiedApAddress
	if state.Version == dap.DpVersionUnsupported {
		return nil, ErrUnsupportedDpVersion
	}

	if !state.Select.IsDPv3() {
		for port := 0; port < maxADIv5Ports; port++ {
			fqa := dap.FullyQualifiedApAddress{DP: dp, AP: dap.ApAddressV1{Port: uint8(port)}}
			idr, err := c.ReadRawApRegister(fqa, idrRegister)
			if err != nil || idr == 0 {
				continue
			}
			found = append(found, fqa)
		}
	} else {
		found = c.walkRootTable(dp)
	}

	sort.Slice(found, func(i, j int) bool { return found[i].Less(found[j]) })
	return found, nil
}

// walkRootTable scans the Class-1 ROM table rooted at AP-v2 base 0 on dp,
// returning one FullyQualifiedApAddress per present component. Entries are
// 32-bit offsets from the table base with PRESENT/FORMAT flags in the low
// two bits, per ARM IHI 0029; a zero entry terminates the table early.
func (c *Interface) walkRootTable(dp dap.DpAddress) []dap.FullyQualifiedApAddress {
	root := dap.FullyQualifiedApAddress{DP: dp, AP: dap.ApAddressV2{}}
	mem := c.MemoryInterface(root, 0)

	var found []dap.FullyQualifiedApAddress
	for i := 0; i < rootTableMaxEntries; i++ {
		entry, err := mem.ReadU32(uint32(i * 4))
		if err != nil {
			break
		}
		if entry == 0 {
			break
		}
		if entry&rootEntryPresent == 0 || entry&rootEntryFormat32 == 0 {
			continue
		}
		offset := uint64(entry &^ 0xFFF)
		found = append(found, dap.FullyQualifiedApAddress{DP: dp, AP: dap.ApAddressV2{Base: &offset}})
	}
	return found
}
