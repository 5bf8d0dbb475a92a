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

import "time"

// SwjSequence passes a raw SWJ bit sequence straight through to the probe.
// It performs no DP/AP bank bookkeeping: callers that need a debug port
// selected first (e.g. a vendor rescue sequence) must call SelectDebugPort
// themselves beforehand.
func (c *Interface) SwjSequence(bitLen int, bits uint64) error {
	if c.closed.Load() {
		return ErrClosed
	}
	return c.p.SwjSequence(bitLen, bits)
}

// SwjPins passes a raw SWJ pin drive/read straight through to the probe.
func (c *Interface) SwjPins(out, sel uint32, wait time.Duration) (uint32, error) {
	if c.closed.Load() {
		return 0, ErrClosed
	}
	return c.p.SwjPins(out, sel, wait)
}
