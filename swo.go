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

// EnableSWO starts Serial Wire Output trace capture at baudRate, if the
// underlying probe implements probe.SWOCapable. Probes that don't
// (the common case for a plain SWD-only transport) fail with
// ErrCapabilityRequired rather than a type-assertion panic.
func (c *Interface) EnableSWO(baudRate uint32) error {
	if c.closed.Load() {
		return ErrClosed
	}
	swo, ok := c.p.(swoCapable)
	if !ok {
		return ErrCapabilityRequired
	}
	return swo.EnableSWO(baudRate)
}

// DisableSWO stops trace capture started by EnableSWO.
func (c *Interface) DisableSWO() error {
	if c.closed.Load() {
		return ErrClosed
	}
	swo, ok := c.p.(swoCapable)
	if !ok {
		return ErrCapabilityRequired
	}
	return swo.DisableSWO()
}

// ReadSWOTimeout drains whatever trace bytes the probe has buffered,
// waiting up to timeout for at least one byte to arrive.
func (c *Interface) ReadSWOTimeout(timeout time.Duration) ([]byte, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}
	swo, ok := c.p.(swoCapable)
	if !ok {
		return nil, ErrCapabilityRequired
	}
	return swo.ReadSWOTimeout(timeout)
}

// swoCapable mirrors probe.SWOCapable locally so this file doesn't need to
// import the probe package just to name the optional capability interface
// in a type assertion.
type swoCapable interface {
	EnableSWO(baudRate uint32) error
	DisableSWO() error
	ReadSWOTimeout(timeout time.Duration) ([]byte, error)
}
