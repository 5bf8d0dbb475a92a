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

// ApAddress identifies an access port. The two variants are deliberately
// not unified behind a richer interface: ADIv5 and ADIv6 AP addressing is
// bit-incompatible, and a type switch over the closed set below is how a
// mismatch against a DP's observed select-cache shape (see selectApBank)
// becomes a visible default-arm panic instead of a silently wrong register
// write.
type ApAddress interface {
	isApAddress()
	String() string
}

// ApAddressV1 is an ADIv5 8-bit AP port number.
type ApAddressV1 struct {
	Port uint8
}

func (ApAddressV1) isApAddress() {}

func (a ApAddressV1) String() string { return fmt.Sprintf("ap:v1(port=%d)", a.Port) }

// ApAddressV2 is an ADIv6 48-bit AP base address. A nil Base means "the AP
// at base 0", matching the spec's "absent means base 0" rule.
type ApAddressV2 struct {
	Base *uint64
}

func (ApAddressV2) isApAddress() {}

func (a ApAddressV2) String() string {
	if a.Base == nil {
		return "ap:v2(base=0)"
	}
	return fmt.Sprintf("ap:v2(base=%#012x)", *a.Base)
}

// BaseOrZero returns the effective 48-bit base address.
func (a ApAddressV2) BaseOrZero() uint64 {
	if a.Base == nil {
		return 0
	}
	return *a.Base
}

// FullyQualifiedApAddress pairs a DP address with an AP address reachable
// through it.
type FullyQualifiedApAddress struct {
	DP DpAddress
	AP ApAddress
}

func (f FullyQualifiedApAddress) String() string {
	return fmt.Sprintf("%s/%s", f.DP, f.AP)
}

// Less imposes the natural order used by AccessPorts. Only the AP part is
// compared; the DP addresses are not, since every entry of one AccessPorts
// result shares the same DP. V1 ports order by port number and V2 bases order
// by base address, with V1 sorting before V2 when mixed (which never
// happens in a single, correctly-versioned walk).
func (f FullyQualifiedApAddress) Less(other FullyQualifiedApAddress) bool {
	switch a := f.AP.(type) {
	case ApAddressV1:
		b, ok := other.AP.(ApAddressV1)
		if !ok {
			return true
		}
		return a.Port < b.Port
	case ApAddressV2:
		b, ok := other.AP.(ApAddressV2)
		if !ok {
			return false
		}
		return a.BaseOrZero() < b.BaseOrZero()
	default:
		return false
	}
}
