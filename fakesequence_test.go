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
	"github.com/FanX-Tek/probe-rs/dap"
	"github.com/FanX-Tek/probe-rs/probe"
	"github.com/FanX-Tek/probe-rs/sequence"
)

// fakeSequence is a sequence.DebugSequence double recording every hook
// invocation in order, with error injection for setup, connect and start.
// It supplies no DPIDR value; tests provide that through fakeProbe.onRead.
type fakeSequence struct {
	Calls []string

	setupErr   error
	connectErr error
	startErr   error
}

func newFakeSequence() *fakeSequence {
	return &fakeSequence{}
}

func (s *fakeSequence) DebugPortSetup(p probe.Probe, dp dap.DpAddress) error {
	s.Calls = append(s.Calls, "setup:"+dp.String())
	return s.setupErr
}

func (s *fakeSequence) DebugPortConnect(p probe.Probe, dp dap.DpAddress) error {
	s.Calls = append(s.Calls, "connect:"+dp.String())
	return s.connectErr
}

func (s *fakeSequence) DebugPortStart(core sequence.Core, dp dap.DpAddress) error {
	s.Calls = append(s.Calls, "start:"+dp.String())
	if s.startErr != nil {
		return s.startErr
	}
	// Pre-seed CTRL/STAT with both power-up ack bits set so the core's
	// reconciliation read sees an already-powered target. DPIDR itself is
	// supplied by the test's fakeProbe.onRead hook.
	return core.WriteRawDpRegister(dp, dap.BankedDpRegister(0, dap.DpRegAddr4), 0x3<<28)
}

func (s *fakeSequence) DebugPortStop(p probe.Probe, dp dap.DpAddress) error {
	s.Calls = append(s.Calls, "stop:"+dp.String())
	return nil
}

var _ sequence.DebugSequence = (*fakeSequence)(nil)
