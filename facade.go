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

// Public façade over the interface core (spec.md §4.2): every raw DP/AP
// register operation a memory-interface or AP-enumeration module needs,
// each performing bank selection before issuing its transaction.
package dapcore

import "github.com/FanX-Tek/probe-rs/dap"

// ReadRawDpRegister performs DP bank selection and issues a DP register
// read. It satisfies sequence.Core so a DebugSequence's DebugPortStart hook
// can re-enter it.
func (c *Interface) ReadRawDpRegister(dp dap.DpAddress, reg dap.DpRegisterAddress) (uint32, error) {
	state, err := c.selectDp(dp)
	if err != nil {
		return 0, err
	}
	if err := c.selectDpBank(dp, state, reg); err != nil {
		return 0, err
	}
	return c.p.RawReadRegister(reg.Address, false)
}

// WriteRawDpRegister performs DP bank selection and issues a DP register
// write. It satisfies sequence.Core.
func (c *Interface) WriteRawDpRegister(dp dap.DpAddress, reg dap.DpRegisterAddress, value uint32) error {
	state, err := c.selectDp(dp)
	if err != nil {
		return err
	}
	if err := c.selectDpBank(dp, state, reg); err != nil {
		return err
	}
	return c.p.RawWriteRegister(reg.Address, false, value)
}

// ReadRawApRegister performs DP+AP bank selection and issues an AP register
// read. apRegisterAddress's high bits are consumed entirely by bank
// selection; only the low 8 bits travel on the wire.
func (c *Interface) ReadRawApRegister(fqa dap.FullyQualifiedApAddress, apRegisterAddress uint64) (uint32, error) {
	state, err := c.selectDp(fqa.DP)
	if err != nil {
		return 0, err
	}
	if err := c.selectApBank(fqa, state, apRegisterAddress); err != nil {
		return 0, err
	}
	return c.p.RawReadRegister(uint8(apRegisterAddress&0xFF), true)
}

// WriteRawApRegister performs DP+AP bank selection and issues an AP
// register write.
func (c *Interface) WriteRawApRegister(fqa dap.FullyQualifiedApAddress, apRegisterAddress uint64, value uint32) error {
	state, err := c.selectDp(fqa.DP)
	if err != nil {
		return err
	}
	if err := c.selectApBank(fqa, state, apRegisterAddress); err != nil {
		return err
	}
	return c.p.RawWriteRegister(uint8(apRegisterAddress&0xFF), true, value)
}

// ReadRawApRegisterRepeated performs bank selection once and then issues a
// block read of len(out) words from the same AP register.
func (c *Interface) ReadRawApRegisterRepeated(fqa dap.FullyQualifiedApAddress, apRegisterAddress uint64, out []uint32) error {
	state, err := c.selectDp(fqa.DP)
	if err != nil {
		return err
	}
	if err := c.selectApBank(fqa, state, apRegisterAddress); err != nil {
		return err
	}
	return c.p.RawReadBlock(uint8(apRegisterAddress&0xFF), true, out)
}

// WriteRawApRegisterRepeated performs bank selection once and then issues a
// block write of values to the same AP register.
func (c *Interface) WriteRawApRegisterRepeated(fqa dap.FullyQualifiedApAddress, apRegisterAddress uint64, values []uint32) error {
	state, err := c.selectDp(fqa.DP)
	if err != nil {
		return err
	}
	if err := c.selectApBank(fqa, state, apRegisterAddress); err != nil {
		return err
	}
	return c.p.RawWriteBlock(uint8(apRegisterAddress&0xFF), true, values)
}

// Flush drains any buffered probe writes. Callers must invoke it before
// assuming a prior write is visible to the target.
func (c *Interface) Flush() error {
	if c.closed.Load() {
		return ErrClosed
	}
	return c.p.RawFlush()
}
