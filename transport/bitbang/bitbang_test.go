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

package bitbang

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

// fakePin is a gpio.PinIO double that just remembers the last level driven
// and lets a test script what Read() returns next.
type fakePin struct {
	name    string
	level   gpio.Level
	writes  []gpio.Level
	scripts []gpio.Level
	i       int
}

func (p *fakePin) Name() string     { return p.name }
func (p *fakePin) Number() int      { return -1 }
func (p *fakePin) Function() string { return "" }
func (p *fakePin) String() string   { return p.name }
func (p *fakePin) Halt() error      { return nil }

func (p *fakePin) In(gpio.Pull, gpio.Edge) error { return nil }
func (p *fakePin) Read() gpio.Level {
	if len(p.scripts) == 0 {
		return p.level
	}
	v := p.scripts[p.i]
	if p.i < len(p.scripts)-1 {
		p.i++
	}
	return v
}
func (p *fakePin) WaitForEdge(time.Duration) bool { return false }
func (p *fakePin) Pull() gpio.Pull                { return gpio.PullNoChange }
func (p *fakePin) DefaultPull() gpio.Pull         { return gpio.PullNoChange }

func (p *fakePin) Out(l gpio.Level) error {
	p.level = l
	p.writes = append(p.writes, l)
	return nil
}
func (p *fakePin) PWM(gpio.Duty, physic.Frequency) error { return nil }

var _ gpio.PinIO = (*fakePin)(nil)

func newTestProbe(dio *fakePin) *Probe {
	return &Probe{clk: &fakePin{name: "CLK"}, dio: dio, halfPeriod: time.Microsecond}
}

func TestSwjSequence_ClocksBitsLsbFirst(t *testing.T) {
	dio := &fakePin{}
	p := newTestProbe(dio)
	require.NoError(t, p.SwjSequence(4, 0b1011))
	// 4 bits LSB-first: 1,1,0,1
	require.Len(t, dio.writes, 4)
	assert.Equal(t, []gpio.Level{true, true, false, true}, dio.writes)
}

func TestWriteRequest_ParityCoversApRnwA2A3(t *testing.T) {
	dio := &fakePin{}
	p := newTestProbe(dio)
	require.NoError(t, p.writeRequest(0x4, true, true)) // addr=0x4 -> A2=1,A3=0; AP=1; R=1
	require.Len(t, dio.writes, 8)
	assert.True(t, bool(dio.writes[0]))  // start
	assert.True(t, bool(dio.writes[1]))  // APnDP
	assert.True(t, bool(dio.writes[2]))  // RnW
	assert.True(t, bool(dio.writes[3]))  // A2
	assert.False(t, bool(dio.writes[4])) // A3
	// parity = AP^RnW^A2^A3 = 1^1^1^0 = 1
	assert.True(t, bool(dio.writes[5]))
	assert.False(t, bool(dio.writes[6])) // stop
	assert.True(t, bool(dio.writes[7]))  // park
}

func TestRawReadRegister_OkAckReturnsData(t *testing.T) {
	// After the 8-bit request and a turnaround, the target drives: ack=OK
	// (0b001, LSB first), then 32 data bits for 0xCAFEBABE, then even parity.
	dio := &fakePin{}
	p := newTestProbe(dio)

	want := uint32(0xCAFEBABE)
	parity := false
	for i := 0; i < 32; i++ {
		if want&(1<<uint(i)) != 0 {
			parity = !parity
		}
	}
	script := []gpio.Level{true, false, false} // ack = 0b001 = ackOK
	for i := 0; i < 32; i++ {
		script = append(script, want&(1<<uint(i)) != 0)
	}
	script = append(script, parity)
	dio.scripts = script

	got, err := p.RawReadRegister(0x4, false)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestRawReadRegister_FaultAckIsAnError(t *testing.T) {
	dio := &fakePin{scripts: []gpio.Level{false, false, true}} // ack = 0b100 = ackFault
	p := newTestProbe(dio)
	_, err := p.RawReadRegister(0x0, false)
	assert.Error(t, err)
}

func TestSwjPins_MasksByOwnedBitsOnly(t *testing.T) {
	dio := &fakePin{}
	p := newTestProbe(dio)
	// sel only covers SWDIO (bit 1); SWCLK must not be touched.
	_, err := p.SwjPins(0x2, 0x2, 0)
	require.NoError(t, err)
	require.Len(t, dio.writes, 1)
	assert.True(t, bool(dio.writes[0]))
	assert.Empty(t, p.clk.(*fakePin).writes)
}
