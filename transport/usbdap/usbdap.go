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

// Package usbdap implements probe.Probe over a USB bulk CMSIS-DAP-style
// endpoint pair using google/gousb. Every raw register operation is a
// small fixed-shape command packet written to the OUT endpoint, followed
// by a response read from the IN endpoint — the same "registers over a
// USB bulk pipe" shape real CMSIS-DAP and FTDI MPSSE probes use.
package usbdap

import (
	"encoding/binary"
	"io"
	"time"

	"github.com/google/gousb"
	"github.com/pkg/errors"

	"github.com/FanX-Tek/probe-rs/probe"
)

// Command bytes for the wire protocol this transport speaks to the device
// firmware. Only this package and the firmware on the other end need to
// agree on these; they are not a standard CMSIS-DAP command set.
const (
	cmdReadRegister  byte = 0x01
	cmdWriteRegister byte = 0x02
	cmdReadBlock     byte = 0x03
	cmdWriteBlock    byte = 0x04
	cmdSwjSequence   byte = 0x05
	cmdSwjPins       byte = 0x06
	cmdFlush         byte = 0x07
	cmdStatus        byte = 0x08
)

const (
	outEndpoint = 0x01
	inEndpoint  = 0x81
)

// Probe is a probe.Probe implementation over a USB bulk endpoint pair.
type Probe struct {
	ctx    *gousb.Context
	dev    *gousb.Device
	closer func()
	out    io.Writer
	in     io.Reader

	readTimeout time.Duration
}

// DefaultReadTimeout is the read timeout Open records on a Probe. transact
// does not apply it: a bulk transaction blocks until the endpoint's own
// Write/Read returns.
const DefaultReadTimeout = 2 * time.Second

// Open enumerates the USB bus for a device matching vid/pid, claims its
// default interface, and resolves the bulk endpoint pair this transport
// speaks. The returned Probe owns the USB device until Close is called.
func Open(vid, pid gousb.ID) (*Probe, error) {
	ctx := gousb.NewContext()

	dev, err := ctx.OpenDeviceWithVIDPID(vid, pid)
	if err != nil {
		ctx.Close()
		return nil, errors.Wrap(err, "usbdap: opening device")
	}
	if dev == nil {
		ctx.Close()
		return nil, errors.Errorf("usbdap: no device matching %s:%s", vid, pid)
	}

	if err := dev.SetAutoDetach(true); err != nil {
		dev.Close()
		ctx.Close()
		return nil, errors.Wrap(err, "usbdap: enabling kernel driver auto-detach")
	}

	intf, done, err := dev.DefaultInterface()
	if err != nil {
		dev.Close()
		ctx.Close()
		return nil, errors.Wrap(err, "usbdap: claiming default interface")
	}

	out, err := intf.OutEndpoint(outEndpoint)
	if err != nil {
		done()
		dev.Close()
		ctx.Close()
		return nil, errors.Wrap(err, "usbdap: resolving OUT endpoint")
	}
	in, err := intf.InEndpoint(inEndpoint)
	if err != nil {
		done()
		dev.Close()
		ctx.Close()
		return nil, errors.Wrap(err, "usbdap: resolving IN endpoint")
	}

	return &Probe{
		ctx:         ctx,
		dev:         dev,
		closer:      done,
		out:         out,
		in:          in,
		readTimeout: DefaultReadTimeout,
	}, nil
}

// Close releases the USB interface claim and the underlying device handle.
func (p *Probe) Close() error {
	p.closer()
	if err := p.dev.Close(); err != nil {
		p.ctx.Close()
		return errors.Wrap(err, "usbdap: closing device")
	}
	return p.ctx.Close()
}

func (p *Probe) transact(cmd []byte, respLen int) ([]byte, error) {
	if _, err := p.out.Write(cmd); err != nil {
		return nil, errors.Wrap(err, "usbdap: writing command")
	}
	if respLen == 0 {
		return nil, nil
	}
	resp := make([]byte, respLen)
	n, err := p.in.Read(resp)
	if err != nil {
		return nil, errors.Wrap(err, "usbdap: reading response")
	}
	if n != respLen {
		return nil, errors.Errorf("usbdap: short response: got %d bytes, want %d", n, respLen)
	}
	return resp, nil
}

func addrByte(addr uint8, isAP bool) byte {
	b := addr & 0x3F
	if isAP {
		b |= 0x40
	}
	return b
}

// RawReadRegister issues a single-word register read.
func (p *Probe) RawReadRegister(addr uint8, isAP bool) (uint32, error) {
	resp, err := p.transact([]byte{cmdReadRegister, addrByte(addr, isAP)}, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(resp), nil
}

// RawWriteRegister issues a single-word register write.
func (p *Probe) RawWriteRegister(addr uint8, isAP bool, value uint32) error {
	cmd := make([]byte, 6)
	cmd[0] = cmdWriteRegister
	cmd[1] = addrByte(addr, isAP)
	binary.LittleEndian.PutUint32(cmd[2:], value)
	_, err := p.transact(cmd, 1)
	return err
}

// RawReadBlock issues a single block-read command for len(out) words of the
// same register; with RawWriteBlock, one of the two operations this
// transport batches into a single packet.
func (p *Probe) RawReadBlock(addr uint8, isAP bool, out []uint32) error {
	cmd := []byte{cmdReadBlock, addrByte(addr, isAP), byte(len(out)), byte(len(out) >> 8)}
	resp, err := p.transact(cmd, len(out)*4)
	if err != nil {
		return err
	}
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(resp[i*4:])
	}
	return nil
}

// RawWriteBlock issues a single block-write command for values.
func (p *Probe) RawWriteBlock(addr uint8, isAP bool, values []uint32) error {
	cmd := make([]byte, 4+4*len(values))
	cmd[0] = cmdWriteBlock
	cmd[1] = addrByte(addr, isAP)
	cmd[2] = byte(len(values))
	cmd[3] = byte(len(values) >> 8)
	for i, v := range values {
		binary.LittleEndian.PutUint32(cmd[4+i*4:], v)
	}
	_, err := p.transact(cmd, 1)
	return err
}

// RawFlush asks the firmware to drain any buffered writes and blocks until
// it acknowledges.
func (p *Probe) RawFlush() error {
	_, err := p.transact([]byte{cmdFlush}, 1)
	return err
}

// SwjSequence clocks bitLen bits of bits out on the wire.
func (p *Probe) SwjSequence(bitLen int, bits uint64) error {
	cmd := make([]byte, 10)
	cmd[0] = cmdSwjSequence
	cmd[1] = byte(bitLen)
	binary.LittleEndian.PutUint64(cmd[2:], bits)
	_, err := p.transact(cmd, 1)
	return err
}

// SwjPins drives the SWJ pins directly and returns the state read back.
func (p *Probe) SwjPins(out, sel uint32, wait time.Duration) (uint32, error) {
	cmd := make([]byte, 13)
	cmd[0] = cmdSwjPins
	binary.LittleEndian.PutUint32(cmd[1:], out)
	binary.LittleEndian.PutUint32(cmd[5:], sel)
	binary.LittleEndian.PutUint32(cmd[9:], uint32(wait/time.Microsecond))
	resp, err := p.transact(cmd, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(resp), nil
}

// CoreStatusNotification forwards the run-state byte to the firmware
// (typically driven straight onto a status LED); a transport error here is
// never surfaced to the core per probe.Probe's contract.
func (p *Probe) CoreStatusNotification(status probe.CoreStatus) error {
	_, err := p.transact([]byte{cmdStatus, byte(status)}, 0)
	return err
}

var _ probe.Probe = (*Probe)(nil)
