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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FanX-Tek/probe-rs/dap"
	"github.com/FanX-Tek/probe-rs/romtable"
)

// newChipInfoProbe builds a fakeProbe with a single populated ADIv5 AP at
// port 0 (IDR present, BASE pointing at componentBase) whose memory window
// holds a valid Class-1 ROM table identifying as (identity, part). DRW
// reads are resolved against the most recently written TAR, the one piece
// of address-aware behaviour fakeProbe itself doesn't model.
func newChipInfoProbe(t *testing.T, componentBase uint32, identity uint8, continuation uint8, part uint16) *fakeProbe {
	t.Helper()

	pid0 := uint32(part & 0xFF)
	pid1 := uint32((part>>8)&0xF) | uint32(identity&0xF)<<4
	pid2 := uint32(identity>>4)&0x7 | 0x8
	pid4 := uint32(continuation & 0xF)
	cidr1 := uint32(0x1) << 4 // class-1 ROM table

	mem := map[uint32]uint32{
		componentBase + 0xFE0: pid0,
		componentBase + 0xFE4: pid1,
		componentBase + 0xFE8: pid2,
		componentBase + 0xFD0: pid4,
		componentBase + 0xFF4: cidr1,
	}

	p := newFakeProbe()
	p.onRead = func(addr uint8, isAP bool) (uint32, bool) {
		selWord := p.regs[regKey{0x8, false}]
		apSel := uint8((selWord >> 8) & 0xFF)

		switch {
		case !isAP && addr == dap.DpRegAddr0:
			return dpidrFor(2), true // DPv2, single ADIv5 port
		case isAP && addr == 0xFC: // IDR
			if apSel == 0 {
				return 0xCAFE0001, true
			}
			return 0, true
		case isAP && addr == 0xF8: // BASE: present + legacy format, masked to componentBase
			if apSel == 0 {
				return componentBase | 0x3, true
			}
			return 0, true
		case isAP && addr == 0xC: // DRW
			if apSel != 0 {
				return 0, true
			}
			tar := p.regs[regKey{0x4, true}]
			return mem[tar], true
		}
		return 0, false
	}
	return p
}

func TestChipInfo_WalksSingleAccessPortToAValidRomTable(t *testing.T) {
	p := newChipInfoProbe(t, 0x1000_0000, 0x3B, 4, 0x4C3)
	seq := newFakeSequence()
	iface := NewInterface(p, seq, false)
	dp := dap.DefaultDpAddress()

	info, err := iface.ChipInfo(dp)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x4C3), info.Part)
	assert.Equal(t, romtable.JEP106{ContinuationCount: 4, Identity: 0x3B}, info.Manufacturer)
}

func TestChipInfo_NoRomTableReturnsErrNoROMTable(t *testing.T) {
	p := newFakeProbe()
	withDpidr(p, 2)
	seq := newFakeSequence()
	iface := NewInterface(p, seq, false)
	dp := dap.DefaultDpAddress()

	_, err := iface.ChipInfo(dp)
	assert.ErrorIs(t, err, romtable.ErrNoROMTable)
}
