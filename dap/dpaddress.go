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

import "fmt"

// dpKind tags the variant held by a DpAddress.
type dpKind uint8

const (
	dpKindDefault dpKind = iota
	dpKindMultidrop
	dpKindRescue
)

// DpAddress identifies a debug port. It is a closed value type: two
// addresses are equal only when their kind and payload match bit-for-bit,
// which is exactly the equality selectDp relies on to decide whether the
// probe is already addressing the requested DP.
type DpAddress struct {
	kind     dpKind
	targetID uint32
	instance uint8
	rescue   string
}

// DefaultDpAddress returns the address of the (only) DP on a single-drop wire.
func DefaultDpAddress() DpAddress {
	return DpAddress{kind: dpKindDefault}
}

// MultidropDpAddress returns the address of one DP on a multi-drop SWD bus,
// identified by its 32-bit target ID and 4-bit instance (ADIv5.2 §B4.3.2).
func MultidropDpAddress(targetID uint32, instance uint8) DpAddress {
	return DpAddress{kind: dpKindMultidrop, targetID: targetID, instance: instance & 0xF}
}

// RescueDpAddress returns an opaque address for an out-of-tree rescue DP,
// i.e. one reached by a chip-specific sequence that doesn't fit the
// standard default/multidrop shapes (e.g. a vendor debug-mailbox DP).
func RescueDpAddress(tag string) DpAddress {
	return DpAddress{kind: dpKindRescue, rescue: tag}
}

// IsMultidrop reports whether this address carries a target ID/instance.
func (a DpAddress) IsMultidrop() bool { return a.kind == dpKindMultidrop }

// TargetID returns the multidrop target ID and whether a is a multidrop address.
func (a DpAddress) TargetID() (uint32, bool) {
	return a.targetID, a.kind == dpKindMultidrop
}

func (a DpAddress) String() string {
	switch a.kind {
	case dpKindDefault:
		return "dp:default"
	case dpKindMultidrop:
		return fmt.Sprintf("dp:multidrop(target=%#08x,instance=%d)", a.targetID, a.instance)
	case dpKindRescue:
		return fmt.Sprintf("dp:rescue(%s)", a.rescue)
	default:
		return "dp:unknown"
	}
}
