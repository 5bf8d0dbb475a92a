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

// Package uartprobe implements probe.Probe over a line-oriented serial
// monitor protocol using github.com/tarm/serial. It targets firmware that
// exposes its debug-probe registers as a plain text command line over
// UART, the simplest possible transport for a hobbyist dev board with no
// spare USB controller to dedicate to CMSIS-DAP.
package uartprobe

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/tarm/serial"

	"github.com/FanX-Tek/probe-rs/probe"
)

// Probe speaks a line protocol: one command per line, "OK [fields...]" or
// "ERR <message>" back. It satisfies probe.Probe.
type Probe struct {
	port   io.ReadWriteCloser
	reader *bufio.Reader
}

// Open configures and opens the named serial port at baud. ReadTimeout
// bounds how long a single line read may block.
func Open(name string, baud int, readTimeout time.Duration) (*Probe, error) {
	port, err := serial.OpenPort(&serial.Config{
		Name:        name,
		Baud:        baud,
		ReadTimeout: readTimeout,
	})
	if err != nil {
		return nil, errors.Wrap(err, "uartprobe: opening port")
	}
	return newProbe(port), nil
}

func newProbe(rw io.ReadWriteCloser) *Probe {
	return &Probe{port: rw, reader: bufio.NewReader(rw)}
}

// Close releases the underlying serial port.
func (p *Probe) Close() error { return p.port.Close() }

func (p *Probe) command(line string) ([]string, error) {
	if _, err := io.WriteString(p.port, line+"\n"); err != nil {
		return nil, errors.Wrap(err, "uartprobe: writing command")
	}
	resp, err := p.reader.ReadString('\n')
	if err != nil {
		return nil, errors.Wrap(err, "uartprobe: reading response")
	}
	fields := strings.Fields(resp)
	if len(fields) == 0 {
		return nil, errors.New("uartprobe: empty response")
	}
	if fields[0] == "ERR" {
		return nil, errors.Errorf("uartprobe: device reported error: %s", strings.Join(fields[1:], " "))
	}
	if fields[0] != "OK" {
		return nil, errors.Errorf("uartprobe: unrecognised response %q", resp)
	}
	return fields[1:], nil
}

func apOrDp(isAP bool) string {
	if isAP {
		return "AP"
	}
	return "DP"
}

// RawReadRegister issues a single-word register read.
func (p *Probe) RawReadRegister(addr uint8, isAP bool) (uint32, error) {
	fields, err := p.command(fmt.Sprintf("R %s %#x", apOrDp(isAP), addr))
	if err != nil {
		return 0, err
	}
	if len(fields) != 1 {
		return 0, errors.Errorf("uartprobe: malformed read response, want 1 field got %d", len(fields))
	}
	v, err := strconv.ParseUint(fields[0], 0, 32)
	if err != nil {
		return 0, errors.Wrap(err, "uartprobe: parsing read value")
	}
	return uint32(v), nil
}

// RawWriteRegister issues a single-word register write.
func (p *Probe) RawWriteRegister(addr uint8, isAP bool, value uint32) error {
	_, err := p.command(fmt.Sprintf("W %s %#x %#x", apOrDp(isAP), addr, value))
	return err
}

// RawReadBlock issues len(out) sequential register reads; the line
// protocol has no block-read verb to exploit.
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

// RawWriteBlock issues len(values) sequential register writes.
func (p *Probe) RawWriteBlock(addr uint8, isAP bool, values []uint32) error {
	for _, v := range values {
		if err := p.RawWriteRegister(addr, isAP, v); err != nil {
			return err
		}
	}
	return nil
}

// RawFlush asks the firmware to acknowledge all buffered writes have
// landed before returning.
func (p *Probe) RawFlush() error {
	_, err := p.command("FLUSH")
	return err
}

// SwjSequence clocks bitLen bits of bits out on the wire.
func (p *Probe) SwjSequence(bitLen int, bits uint64) error {
	_, err := p.command(fmt.Sprintf("SEQ %d %#x", bitLen, bits))
	return err
}

// SwjPins drives the SWJ pins directly and returns the state read back.
func (p *Probe) SwjPins(out, sel uint32, wait time.Duration) (uint32, error) {
	fields, err := p.command(fmt.Sprintf("PINS %#x %#x %d", out, sel, wait/time.Microsecond))
	if err != nil {
		return 0, err
	}
	if len(fields) != 1 {
		return 0, errors.Errorf("uartprobe: malformed pins response, want 1 field got %d", len(fields))
	}
	v, err := strconv.ParseUint(fields[0], 0, 32)
	if err != nil {
		return 0, errors.Wrap(err, "uartprobe: parsing pins value")
	}
	return uint32(v), nil
}

// CoreStatusNotification forwards the run-state to the firmware for
// display; errors are discarded by the core per probe.Probe's contract.
func (p *Probe) CoreStatusNotification(status probe.CoreStatus) error {
	_, err := p.command(fmt.Sprintf("STATUS %d", int(status)))
	return err
}

var _ probe.Probe = (*Probe)(nil)
