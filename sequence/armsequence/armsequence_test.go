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

package armsequence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FanX-Tek/probe-rs/dap"
	"github.com/FanX-Tek/probe-rs/probe"
)

// swjOnlyProbe is a probe.Probe double recording the sequences and register
// writes DebugPortSetup/DebugPortConnect issue.
type swjOnlyProbe struct {
	calls  []string
	writes []uint32
}

func (p *swjOnlyProbe) RawReadRegister(addr uint8, isAP bool) (uint32, error) { return 0, nil }
func (p *swjOnlyProbe) RawWriteRegister(addr uint8, isAP bool, value uint32) error {
	p.writes = append(p.writes, value)
	return nil
}
func (p *swjOnlyProbe) RawReadBlock(addr uint8, isAP bool, out []uint32) error { return nil }
func (p *swjOnlyProbe) RawWriteBlock(addr uint8, isAP bool, v []uint32) error  { return nil }
func (p *swjOnlyProbe) RawFlush() error                                       { return nil }
func (p *swjOnlyProbe) SwjSequence(bitLen int, bits uint64) error {
	p.calls = append(p.calls, "swj")
	return nil
}
func (p *swjOnlyProbe) SwjPins(out, sel uint32, wait time.Duration) (uint32, error) {
	return 0, nil
}
func (p *swjOnlyProbe) CoreStatusNotification(status probe.CoreStatus) error { return nil }

var _ probe.Probe = (*swjOnlyProbe)(nil)

// fakeCore lets DebugPortStart's polling loop run against a scripted
// sequence of CTRL/STAT values without a real probe underneath.
type fakeCore struct {
	ctrlStatSequence []uint32
	i                int
	writes           []uint32
}

func (c *fakeCore) ReadRawDpRegister(dp dap.DpAddress, reg dap.DpRegisterAddress) (uint32, error) {
	v := c.ctrlStatSequence[c.i]
	if c.i < len(c.ctrlStatSequence)-1 {
		c.i++
	}
	return v, nil
}

func (c *fakeCore) WriteRawDpRegister(dp dap.DpAddress, reg dap.DpRegisterAddress, value uint32) error {
	c.writes = append(c.writes, value)
	return nil
}

func TestDebugPortSetup_IssuesLineResetAndSwitch(t *testing.T) {
	p := &swjOnlyProbe{}
	g := &Generic{}
	require.NoError(t, g.DebugPortSetup(p, dap.DefaultDpAddress()))
	assert.Equal(t, []string{"swj", "swj", "swj", "swj"}, p.calls)
}

func TestDebugPortSetup_MultidropWritesTargetSelect(t *testing.T) {
	p := &swjOnlyProbe{}
	g := &Generic{}
	dp := dap.MultidropDpAddress(0xABCD1234, 0)
	require.NoError(t, g.DebugPortSetup(p, dp))
	require.Len(t, p.writes, 1)
	assert.Equal(t, uint32(0xABCD1234), p.writes[0])
}

func TestDebugPortConnect_DefaultDpIsJustAnIdleSequence(t *testing.T) {
	p := &swjOnlyProbe{}
	g := &Generic{}
	require.NoError(t, g.DebugPortConnect(p, dap.DefaultDpAddress()))
	assert.Equal(t, []string{"swj"}, p.calls)
	assert.Empty(t, p.writes)
}

func TestDebugPortStart_SucceedsOncePowerUpAcksSeen(t *testing.T) {
	core := &fakeCore{ctrlStatSequence: []uint32{0, 0, ctrlStatCdbgPwrUpAck | ctrlStatCsysPwrUpAck}}
	g := &Generic{PowerUpTimeout: 50 * time.Millisecond}
	err := g.DebugPortStart(core, dap.DefaultDpAddress())
	require.NoError(t, err)
	require.Len(t, core.writes, 1)
	assert.Equal(t, ctrlStatCdbgPwrUpReq|ctrlStatCsysPwrUpReq, core.writes[0])
}

func TestDebugPortStart_TimesOutIfAckNeverArrives(t *testing.T) {
	core := &fakeCore{ctrlStatSequence: []uint32{0}}
	g := &Generic{PowerUpTimeout: 5 * time.Millisecond}
	err := g.DebugPortStart(core, dap.DefaultDpAddress())
	require.Error(t, err)
	assert.Equal(t, "timed out waiting for debug power-up acknowledgement", err.Error())
}

func TestDebugPortStop_ClearsCtrlStat(t *testing.T) {
	p := &swjOnlyProbe{}
	g := &Generic{}
	require.NoError(t, g.DebugPortStop(p, dap.DefaultDpAddress()))
	require.Len(t, p.writes, 1)
	assert.Equal(t, uint32(0), p.writes[0])
}
