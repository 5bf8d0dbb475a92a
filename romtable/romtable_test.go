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

package romtable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeMemoryAP is a small in-memory MemoryAP double: registers at fixed
// offsets from base, everything else reads as zero.
type fakeMemoryAP struct {
	base uint64
	regs map[uint32]uint32
}

func (f *fakeMemoryAP) Base() uint64 { return f.base }

func (f *fakeMemoryAP) ReadU32(addr uint32) (uint32, error) {
	return f.regs[addr], nil
}

func newValidClass1Table(base uint64, manufacturer JEP106, part uint16) *fakeMemoryAP {
	pid0 := uint32(part & 0xFF)
	pid1 := uint32((part>>8)&0xF) | uint32(manufacturer.Identity&0xF)<<4
	pid2 := uint32(manufacturer.Identity>>4)&0x7 | 0x8 // bit3: JEP106 used
	pid4 := uint32(manufacturer.ContinuationCount & 0xF)
	cidr1 := uint32(classROMTable) << componentClassShift

	return &fakeMemoryAP{
		base: base,
		regs: map[uint32]uint32{
			uint32(base) + offPeriphID0:    pid0,
			uint32(base) + offPeriphID1:    pid1,
			uint32(base) + offPeriphID2:    pid2,
			uint32(base) + offPeriphID4:    pid4,
			uint32(base) + offComponentID1: cidr1,
		},
	}
}

func TestIdentify_ValidClass1Table(t *testing.T) {
	want := JEP106{ContinuationCount: 4, Identity: 0x3B} // ARM's own JEP106 code
	mem := newValidClass1Table(0, want, 0x4C3)

	info, ok := Identify(mem, 0)
	require.True(t, ok)
	assert.Equal(t, want, info.Manufacturer)
	assert.Equal(t, uint16(0x4C3), info.Part)
}

func TestIdentify_NonClass1ComponentIsRejected(t *testing.T) {
	mem := &fakeMemoryAP{regs: map[uint32]uint32{
		offComponentID1: 0x90, // class 9, not a ROM table
	}}
	_, ok := Identify(mem, 0)
	assert.False(t, ok)
}

func TestIdentify_MissingJep106IsRejected(t *testing.T) {
	mem := &fakeMemoryAP{regs: map[uint32]uint32{
		offComponentID1: uint32(classROMTable) << componentClassShift,
		offPeriphID2:    0x0, // JEP106-used bit clear
	}}
	_, ok := Identify(mem, 0)
	assert.False(t, ok)
}

func TestIdentify_ReadErrorIsNotFatal(t *testing.T) {
	mem := &erroringMemoryAP{}
	_, ok := Identify(mem, 0)
	assert.False(t, ok)
}

func TestWalk_FindsFirstValidTableAndSkipsFailures(t *testing.T) {
	want := JEP106{ContinuationCount: 4, Identity: 0x3B}
	aps := []MemoryAP{
		&erroringMemoryAP{},
		&fakeMemoryAP{regs: map[uint32]uint32{offComponentID1: 0x9}}, // not a ROM table
		newValidClass1Table(0x1000, want, 0x101),
		newValidClass1Table(0x2000, JEP106{Identity: 0x99}, 0x999), // never reached
	}

	info, ok := Walk(aps)
	require.True(t, ok)
	assert.Equal(t, want, info.Manufacturer)
	assert.Equal(t, uint16(0x101), info.Part)
}

func TestWalk_NoneFound(t *testing.T) {
	aps := []MemoryAP{&erroringMemoryAP{}, &fakeMemoryAP{}}
	_, ok := Walk(aps)
	assert.False(t, ok)
}

type erroringMemoryAP struct{}

func (erroringMemoryAP) Base() uint64                  { return 0 }
func (erroringMemoryAP) ReadU32(uint32) (uint32, error) { return 0, assert.AnError }
