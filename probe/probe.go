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

// Package probe defines the capability surface a physical debug-probe
// transport (CMSIS-DAP, J-Link, FTDI bit-banging, ...) must expose to the
// dapcore driver. It is the seam spec.md's §1 calls an "external
// collaborator whose contract is referenced but not designed here" — the
// concrete implementations live under transport/.
package probe

import "time"

// CoreStatus is an informational status forwarded to the probe for display
// purposes only; a probe error from this call is always discarded by the
// core.
type CoreStatus int

const (
	CoreStatusUnknown CoreStatus = iota
	CoreStatusRunning
	CoreStatusHalted
	CoreStatusSleeping
	CoreStatusLockedUp
)

// Probe is the raw DAP capability a physical transport exposes. Every
// method blocks until the transport returns; there is no pipelining and no
// cancellation beyond what the concrete transport's own deadlines provide.
type Probe interface {
	// RawReadRegister issues a single-word read of the DP or AP register
	// at the wire address addr (DP/AP distinguished by the caller having
	// already performed bank selection).
	RawReadRegister(addr uint8, isAP bool) (uint32, error)

	// RawWriteRegister issues a single-word write.
	RawWriteRegister(addr uint8, isAP bool, value uint32) error

	// RawReadBlock issues a repeated read of the same AP/DP register into
	// out, one word per transaction, in order.
	RawReadBlock(addr uint8, isAP bool, out []uint32) error

	// RawWriteBlock issues a repeated write of the same AP/DP register,
	// one word per transaction, in order.
	RawWriteBlock(addr uint8, isAP bool, values []uint32) error

	// RawFlush drains any buffered writes. Callers must not assume a
	// prior write is visible to the target until this returns nil.
	RawFlush() error

	// SwjSequence clocks bitLen bits (1..=64) of bits out on the wire, LSB
	// first, as used for line-reset and JTAG-to-SWD switching sequences.
	SwjSequence(bitLen int, bits uint64) error

	// SwjPins drives the SWJ pins directly: out is the value to drive,
	// sel is a mask of which pins out applies to, and wait bounds how
	// long to wait for the pins to settle. Returns the pin state read
	// back.
	SwjPins(out, sel uint32, wait time.Duration) (uint32, error)

	// CoreStatusNotification informs the probe (e.g. for an LED) of the
	// target's run state. Errors are discarded by the core.
	CoreStatusNotification(status CoreStatus) error
}

// SWOCapable is an optional capability a Probe may additionally implement
// for Serial Wire Output trace capture. A probe that doesn't implement it
// causes enable/disable/read to fail with an "architecture required" error
// (dapcore.ErrCapabilityRequired).
type SWOCapable interface {
	EnableSWO(baudRate uint32) error
	DisableSWO() error
	ReadSWOTimeout(timeout time.Duration) ([]byte, error)
}
