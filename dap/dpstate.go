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

// DpState is the cached, per-DP state: the observed architecture version
// and the shadow of the registers that the SELECT-write minimisation
// algorithm relies on. Version is DpVersionUnsupported until
// debug_port_start completes and DPIDR has been read.
type DpState struct {
	Version DpVersion
	Select  SelectCache
}

// NewDpState returns the freshly-inserted state for a DP that has just been
// touched for the first time (spec.md §4.1 step 4).
func NewDpState() *DpState {
	return &DpState{
		Version: DpVersionUnsupported,
		Select:  NewSelectCache(),
	}
}
