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

// Package romtable walks an AP's CoreSight ROM table to identify the chip
// manufacturer and part, per spec.md §4.5. It is a thin client of a memory
// interface, not a replacement for the ADIMemoryInterface module spec.md
// treats as an external collaborator: MemoryAP below is the minimal seam
// this package needs, small enough for a real memory-interface module to
// satisfy without depending on this one.
package romtable

import "github.com/pkg/errors"

// JEP106 is a JEDEC manufacturer ID: a continuation count and an identity
// code within the final bank.
type JEP106 struct {
	ContinuationCount uint8
	Identity          uint8
}

// ArmChipInfo is the result of a successful ROM-table walk.
type ArmChipInfo struct {
	Manufacturer JEP106
	Part         uint16
}

// MemoryAP is the minimal memory-mapped access a ROM-table walk needs: a
// single 32-bit register read at an address within the AP's memory space,
// plus the AP's own ROM-table base address.
type MemoryAP interface {
	ReadU32(addr uint32) (uint32, error)
	Base() uint64
}

// Component register offsets within a CoreSight component's 4KB window.
const (
	offPeriphID4 = 0xFD0
	offPeriphID0 = 0xFE0
	offPeriphID1 = 0xFE4
	offPeriphID2 = 0xFE8
	offPeriphID3 = 0xFEC
	offComponentID1 = 0xFF4
)

// componentClassMask/classROMTable identify a Class-1 ROM table via CIDR1[7:4].
const (
	componentClassMask  = 0xF0
	componentClassShift = 4
	classROMTable       = 0x1
)

// romTableEntryCount is a bound on how many 4-byte entries of a Class-1 ROM
// table a scan reads (the architecture caps a table at 960 entries; a real
// table terminates with a zero entry far earlier). Identify and Walk read
// only the identification registers and do not scan table entries.
const romTableEntryCount = 512

// Identify walks the ROM table at base within mem and returns the
// manufacturer/part it identifies, or ok=false if no Class-1 ROM table with
// a valid JEP106 code was found at that base. A malformed read does not
// panic; it returns ok=false so callers (Walk) can continue to the next AP.
func Identify(mem MemoryAP, base uint32) (ArmChipInfo, bool) {
	cidr1, err := mem.ReadU32(base + offComponentID1)
	if err != nil {
		return ArmChipInfo{}, false
	}
	class := (cidr1 & componentClassMask) >> componentClassShift
	if class != classROMTable {
		return ArmChipInfo{}, false
	}

	pid0, err := mem.ReadU32(base + offPeriphID0)
	if err != nil {
		return ArmChipInfo{}, false
	}
	pid1, err := mem.ReadU32(base + offPeriphID1)
	if err != nil {
		return ArmChipInfo{}, false
	}
	pid2, err := mem.ReadU32(base + offPeriphID2)
	if err != nil {
		return ArmChipInfo{}, false
	}
	pid4, err := mem.ReadU32(base + offPeriphID4)
	if err != nil {
		return ArmChipInfo{}, false
	}

	jepUsed := pid2&0x8 != 0
	if !jepUsed {
		return ArmChipInfo{}, false
	}

	part := uint16(pid0&0xFF) | uint16(pid1&0xF)<<8
	identity := uint8(pid1>>4)&0xF | uint8(pid2&0x7)<<4
	continuation := uint8(pid4 & 0xF)

	return ArmChipInfo{
		Manufacturer: JEP106{ContinuationCount: continuation, Identity: identity},
		Part:         part,
	}, true
}

// Walk iterates aps in order, identifying the first one whose own base
// address (MemoryAP.Base, truncated to the 32 bits a component window
// offset needs) hosts a Class-1 ROM table with a valid JEP106 code. Per-AP
// read failures are swallowed (discovery silence, spec.md §7); Walk only
// returns ok=false when nothing was found, never an error, since a failed
// probe of one AP is not a failure of the walk as a whole.
func Walk(aps []MemoryAP) (ArmChipInfo, bool) {
	for _, mem := range aps {
		info, ok := Identify(mem, uint32(mem.Base()))
		if ok {
			return info, true
		}
	}
	return ArmChipInfo{}, false
}

// ErrNoROMTable is a sentinel a caller may use when it wants Walk's result
// surfaced as an error instead of a boolean.
var ErrNoROMTable = errors.New("no class-1 ROM table found on any AP")
