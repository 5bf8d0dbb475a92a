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
	"time"

	"github.com/FanX-Tek/probe-rs/probe"
)

// regKey addresses a single DP/AP register slot in fakeProbe's backing map.
type regKey struct {
	addr uint8
	isAP bool
}

// fakeProbe is an in-memory probe.Probe double: register writes land in a
// map and reads return whatever was last written there (zero otherwise). It
// also records every call so tests can assert on transaction order, the
// same "fake collaborator + call trace" style the teacher uses for its bus
// and mapper doubles.
type fakeProbe struct {
	regs map[regKey]uint32
	Ops  []string

	flushErr       error
	swjSequenceErr error

	// onRead lets a test inject register-specific behaviour (e.g. DPIDR,
	// CTRL/STAT acknowledgement bits) without modelling a full target.
	onRead func(addr uint8, isAP bool) (uint32, bool)
}

func newFakeProbe() *fakeProbe {
	return &fakeProbe{regs: make(map[regKey]uint32)}
}

func (f *fakeProbe) RawReadRegister(addr uint8, isAP bool) (uint32, error) {
	f.Ops = append(f.Ops, opName("read", addr, isAP))
	if f.onRead != nil {
		if v, ok := f.onRead(addr, isAP); ok {
			return v, nil
		}
	}
	return f.regs[regKey{addr, isAP}], nil
}

func (f *fakeProbe) RawWriteRegister(addr uint8, isAP bool, value uint32) error {
	f.Ops = append(f.Ops, opName("write", addr, isAP))
	f.regs[regKey{addr, isAP}] = value
	return nil
}

func (f *fakeProbe) RawReadBlock(addr uint8, isAP bool, out []uint32) error {
	for i := range out {
		v, err := f.RawReadRegister(addr, isAP)
		if err != nil {
			return err
		}
		out[i] = v
	}
	return nil
}

func (f *fakeProbe) RawWriteBlock(addr uint8, isAP bool, values []uint32) error {
	for _, v := range values {
		if err := f.RawWriteRegister(addr, isAP, v); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeProbe) RawFlush() error {
	f.Ops = append(f.Ops, "flush")
	return f.flushErr
}

func (f *fakeProbe) SwjSequence(bitLen int, bits uint64) error {
	f.Ops = append(f.Ops, "swj_sequence")
	return f.swjSequenceErr
}

func (f *fakeProbe) SwjPins(out, sel uint32, wait time.Duration) (uint32, error) {
	f.Ops = append(f.Ops, "swj_pins")
	return out & sel, nil
}

func (f *fakeProbe) CoreStatusNotification(status probe.CoreStatus) error {
	f.Ops = append(f.Ops, "core_status")
	return nil
}

func opName(verb string, addr uint8, isAP bool) string {
	kind := "dp"
	if isAP {
		kind = "ap"
	}
	return verb + ":" + kind
}

var _ probe.Probe = (*fakeProbe)(nil)
