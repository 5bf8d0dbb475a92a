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

// Package bitbang implements probe.Probe directly on top of two host GPIO
// pins: SWCLK and SWDIO. It is the simplest possible transport — "the probe
// IS a few pins" — and exists so the driver core can be exercised against
// real hardware without any vendor probe firmware in the loop.
package bitbang

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/FanX-Tek/probe-rs/probe"
)

// Probe drives SWD bit-for-bit over two periph.io GPIO pins. It satisfies
// probe.Probe; SwjSequence and SwjPins are not a passthrough to anything
// lower-level here, they ARE the entire wire protocol.
type Probe struct {
	clk gpio.PinIO
	dio gpio.PinIO

	// halfPeriod is how long each clock phase is held low/high. Real SWD
	// probes run this in the megahertz range; a bit-banged host GPIO pair
	// is lucky to clear a few hundred kilohertz, so this defaults
	// conservatively slow and is meant to be tuned per-host.
	halfPeriod time.Duration
}

// DefaultHalfPeriod clocks SWCLK at roughly 100kHz, a speed safe enough to
// work over a plain host GPIO pair with no level-shifting concerns.
const DefaultHalfPeriod = 5 * time.Microsecond

// Open initializes the periph.io host drivers and claims the named SWCLK
// and SWDIO pins. clkName/dioName are periph pin names as accepted by
// gpioreg.ByName, e.g. "GPIO11"/"GPIO10" on a Raspberry Pi.
func Open(clkName, dioName string) (*Probe, error) {
	if _, err := host.Init(); err != nil {
		return nil, errors.Wrap(err, "bitbang: initializing host drivers")
	}

	clk := gpioreg.ByName(clkName)
	if clk == nil {
		return nil, fmt.Errorf("bitbang: no such pin %q", clkName)
	}
	dio := gpioreg.ByName(dioName)
	if dio == nil {
		return nil, fmt.Errorf("bitbang: no such pin %q", dioName)
	}

	if err := clk.Out(gpio.Low); err != nil {
		return nil, errors.Wrap(err, "bitbang: driving SWCLK low")
	}
	if err := dio.Out(gpio.High); err != nil {
		return nil, errors.Wrap(err, "bitbang: driving SWDIO high")
	}

	return &Probe{clk: clk, dio: dio, halfPeriod: DefaultHalfPeriod}, nil
}

// SetHalfPeriod overrides the clock phase duration picked by Open.
func (p *Probe) SetHalfPeriod(d time.Duration) { p.halfPeriod = d }

// clockPulse toggles SWCLK through one low/high cycle, holding each phase
// for halfPeriod. Every bit transferred, in either direction, rides on one
// of these pulses.
func (p *Probe) clockPulse() error {
	if err := p.clk.Out(gpio.Low); err != nil {
		return err
	}
	time.Sleep(p.halfPeriod)
	if err := p.clk.Out(gpio.High); err != nil {
		return err
	}
	time.Sleep(p.halfPeriod)
	return nil
}

// writeBit drives out onto SWDIO and clocks it in; SWDIO must already be
// host-driven (the default state, and the state turnaround leaves it in
// after a target-driven phase).
func (p *Probe) writeBit(out bool) error {
	if err := p.dio.Out(gpio.Level(out)); err != nil {
		return err
	}
	return p.clockPulse()
}

// readBit samples SWDIO and clocks past it; SWDIO must already be
// target-driven, which only turnaround arranges.
func (p *Probe) readBit() (bool, error) {
	v := p.dio.Read()
	return bool(v), p.clockPulse()
}

// turnaround spends one clock cycle switching SWDIO's direction. toInput
// selects which way: true puts SWDIO in host-read mode (after a request or
// after reading a reply), false returns it to host-drive mode.
func (p *Probe) turnaround(toInput bool) error {
	if toInput {
		if err := p.dio.In(gpio.PullNoChange, gpio.NoEdge); err != nil {
			return err
		}
		return p.clockPulse()
	}
	if err := p.clockPulse(); err != nil {
		return err
	}
	return p.dio.Out(gpio.High)
}

// SwjSequence clocks bitLen bits of bits out on SWDIO, LSB first, used for
// line-reset and JTAG-to-SWD switch sequences.
func (p *Probe) SwjSequence(bitLen int, bits uint64) error {
	for i := 0; i < bitLen; i++ {
		if err := p.writeBit(bits&(1<<uint(i)) != 0); err != nil {
			return errors.Wrap(err, "bitbang: SwjSequence")
		}
	}
	return nil
}

// SwjPins drives the SWCLK/SWDIO pins according to out/sel and returns the
// pin state read back after wait has elapsed. Only the two bits this
// transport owns (bit 0 SWCLK, bit 1 SWDIO) are meaningful; higher bits
// (nRESET, nTRST, ...) are silently ignored since this transport exposes
// no such pins.
func (p *Probe) SwjPins(out, sel uint32, wait time.Duration) (uint32, error) {
	if sel&0x1 != 0 {
		lvl := gpio.Low
		if out&0x1 != 0 {
			lvl = gpio.High
		}
		if err := p.clk.Out(lvl); err != nil {
			return 0, err
		}
	}
	if sel&0x2 != 0 {
		lvl := gpio.Low
		if out&0x2 != 0 {
			lvl = gpio.High
		}
		if err := p.dio.Out(lvl); err != nil {
			return 0, err
		}
	}
	if wait > 0 {
		time.Sleep(wait)
	}
	var result uint32
	if p.clk.Read() {
		result |= 0x1
	}
	if p.dio.Read() {
		result |= 0x2
	}
	return result, nil
}

// RawReadRegister issues an SWD read transaction: 8-bit request, turnaround,
// 3-bit ack, 32-bit data + parity, turnaround.
func (p *Probe) RawReadRegister(addr uint8, isAP bool) (uint32, error) {
	if err := p.writeRequest(addr, isAP, true); err != nil {
		return 0, err
	}
	if err := p.turnaround(true); err != nil {
		return 0, err
	}
	ack, err := p.readAck()
	if err != nil {
		return 0, err
	}
	if ack != ackOK {
		return 0, fmt.Errorf("bitbang: SWD ack %#x for read addr=%#x ap=%v", ack, addr, isAP)
	}
	var data uint32
	var parity bool
	for i := 0; i < 32; i++ {
		bit, err := p.readBit()
		if err != nil {
			return 0, err
		}
		if bit {
			data |= 1 << uint(i)
			parity = !parity
		}
	}
	parityBit, err := p.readBit()
	if err != nil {
		return 0, err
	}
	if parityBit != parity {
		return 0, errors.New("bitbang: SWD read parity error")
	}
	return data, p.turnaround(false)
}

// RawWriteRegister issues an SWD write transaction.
func (p *Probe) RawWriteRegister(addr uint8, isAP bool, value uint32) error {
	if err := p.writeRequest(addr, isAP, false); err != nil {
		return err
	}
	if err := p.turnaround(true); err != nil {
		return err
	}
	ack, err := p.readAck()
	if err != nil {
		return err
	}
	if err := p.turnaround(false); err != nil {
		return err
	}
	if ack != ackOK {
		return fmt.Errorf("bitbang: SWD ack %#x for write addr=%#x ap=%v", ack, addr, isAP)
	}
	var parity bool
	for i := 0; i < 32; i++ {
		bit := value&(1<<uint(i)) != 0
		if bit {
			parity = !parity
		}
		if err := p.writeBit(bit); err != nil {
			return err
		}
	}
	return p.writeBit(parity)
}

// RawReadBlock issues len(out) sequential single-word reads of the same
// register; the bit-banged transport has no block-transfer mode to exploit.
func (p *Probe) RawReadBlock(addr uint8, isAP bool, out []uint32) error {
	for i := range out {
		v, err := p.RawReadRegister(addr, isAP)
		if err != nil {
			return err
		}
		out[i] = v
	}
	return nil
}

// RawWriteBlock issues len(values) sequential single-word writes.
func (p *Probe) RawWriteBlock(addr uint8, isAP bool, values []uint32) error {
	for _, v := range values {
		if err := p.RawWriteRegister(addr, isAP, v); err != nil {
			return err
		}
	}
	return nil
}

// RawFlush is a no-op: every transaction above is already synchronous.
func (p *Probe) RawFlush() error { return nil }

// CoreStatusNotification has no LED or display to drive on a bare GPIO
// pair, so it is accepted and discarded.
func (p *Probe) CoreStatusNotification(status probe.CoreStatus) error { return nil }

var _ probe.Probe = (*Probe)(nil)

const (
	ackOK    = 0x1
	ackWait  = 0x2
	ackFault = 0x4
)

// writeRequest clocks the 8-bit SWD request packet: start, APnDP, RnW,
// A[2:3], parity, stop, park.
func (p *Probe) writeRequest(addr uint8, isAP, isRead bool) error {
	apBit := uint8(0)
	if isAP {
		apBit = 1
	}
	rnwBit := uint8(0)
	if isRead {
		rnwBit = 1
	}
	a2 := (addr >> 2) & 0x1
	a3 := (addr >> 3) & 0x1
	parity := apBit ^ rnwBit ^ a2 ^ a3

	bits := []bool{true, apBit != 0, rnwBit != 0, a2 != 0, a3 != 0, parity != 0, false, true}
	for _, b := range bits {
		if err := p.writeBit(b); err != nil {
			return err
		}
	}
	return nil
}

// readAck reads back the 3-bit ack phase the target drives.
func (p *Probe) readAck() (uint8, error) {
	var ack uint8
	for i := 0; i < 3; i++ {
		bit, err := p.readBit()
		if err != nil {
			return 0, err
		}
		if bit {
			ack |= 1 << uint(i)
		}
	}
	return ack, nil
}
