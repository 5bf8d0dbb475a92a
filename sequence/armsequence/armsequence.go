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

// Package armsequence implements the generic ARM debug-sequence strategy:
// the line-reset and JTAG-to-SWD switch sequence and the debug-power-up
// handshake, with no chip-specific knowledge. It issues no dormant-state
// wake sequence. Vendor packages that need more (custom
// power-domain sequencing, TAP routing) embed Generic and override
// individual hooks.
package armsequence

import (
	"time"

	"github.com/FanX-Tek/probe-rs/dap"
	"github.com/FanX-Tek/probe-rs/probe"
	"github.com/FanX-Tek/probe-rs/sequence"
)

// Bit patterns from ARM IHI 0031 (ADIv5.2) / IHI 0074 (ADIv6) §B5.2-B5.3.
const (
	jtagToSwdSequence   = 0xE79E
	jtagToSwdSequenceLen = 16

	swdToDormantSequence   = 0xE3BC
	swdToDormantSequenceLen = 16

	dormantToSwdSelectLow  = 0x19BC0EA2
	dormantToSwdSelectHigh = 0
	dormantToSwdSelectLen  = 32

	lineResetBits = 0xFFFFFFFFFFFFFF // 56 ones; >=50 required by spec
	lineResetLen  = 56
)

// dpRegCtrlStat is the banked CTRL/STAT register at DP address 0x4, bank 0.
var dpRegCtrlStat = dap.BankedDpRegister(0, dap.DpRegAddr4)

const (
	ctrlStatCdbgPwrUpReq uint32 = 1 << 28
	ctrlStatCdbgPwrUpAck uint32 = 1 << 29
	ctrlStatCsysPwrUpReq uint32 = 1 << 30
	ctrlStatCsysPwrUpAck uint32 = 1 << 31
)

// Generic is the default ARM debug sequence.
type Generic struct {
	// PowerUpTimeout bounds how long DebugPortStart waits for the
	// power-up acknowledgements; zero means use DefaultPowerUpTimeout.
	PowerUpTimeout time.Duration
}

var _ sequence.DebugSequence = (*Generic)(nil)

// DefaultPowerUpTimeout is used when Generic.PowerUpTimeout is unset.
const DefaultPowerUpTimeout = 500 * time.Millisecond

// DebugPortSetup performs a full line reset, the JTAG-to-SWD switch
// sequence, and a second line reset, tolerating a target that is already
// in SWD mode (the sequence is a no-op in that case). No dormant-state wake
// (selection alert and activation code) is sent, so a DP in the dormant
// state is not brought out of it.
func (g *Generic) DebugPortSetup(p probe.Probe, dp dap.DpAddress) error {
	if err := p.SwjSequence(lineResetLen, lineResetBits); err != nil {
		return err
	}
	if err := p.SwjSequence(jtagToSwdSequenceLen, jtagToSwdSequence); err != nil {
		return err
	}
	if err := p.SwjSequence(lineResetLen, lineResetBits); err != nil {
		return err
	}
	// Idle cycles to flush any partial transaction left on the wire.
	if err := p.SwjSequence(8, 0); err != nil {
		return err
	}
	if targetID, ok := dp.TargetID(); ok {
		return writeTargetSelect(p, targetID)
	}
	return nil
}

// DebugPortConnect is the lighter switch used once the wire is already in
// SWD mode: for a multidrop DP this is just the TARGETSEL write; for the
// default DP there is nothing more to do than confirm the line is live,
// which a single idle sequence is enough to attempt.
func (g *Generic) DebugPortConnect(p probe.Probe, dp dap.DpAddress) error {
	if targetID, ok := dp.TargetID(); ok {
		return writeTargetSelect(p, targetID)
	}
	return p.SwjSequence(8, 0)
}

// DebugPortStart requests debug and system power-up via CTRL/STAT and
// blocks until both acknowledgement bits are set or PowerUpTimeout elapses.
func (g *Generic) DebugPortStart(core sequence.Core, dp dap.DpAddress) error {
	timeout := g.PowerUpTimeout
	if timeout <= 0 {
		timeout = DefaultPowerUpTimeout
	}

	want := ctrlStatCdbgPwrUpReq | ctrlStatCsysPwrUpReq
	if err := core.WriteRawDpRegister(dp, dpRegCtrlStat, want); err != nil {
		return err
	}

	deadline := time.Now().Add(timeout)
	for {
		v, err := core.ReadRawDpRegister(dp, dpRegCtrlStat)
		if err != nil {
			return err
		}
		if v&(ctrlStatCdbgPwrUpAck|ctrlStatCsysPwrUpAck) == (ctrlStatCdbgPwrUpAck | ctrlStatCsysPwrUpAck) {
			return nil
		}
		if time.Now().After(deadline) {
			return errTimeout{}
		}
		time.Sleep(time.Millisecond)
	}
}

// DebugPortStop clears the power-up requests, letting the target's debug
// domain power down.
func (g *Generic) DebugPortStop(p probe.Probe, dp dap.DpAddress) error {
	return p.RawWriteRegister(dap.DpRegAddr4, false, 0)
}

func writeTargetSelect(p probe.Probe, targetID uint32) error {
	// TARGETSEL (DP register 0xC) selects one DP on a multidrop bus by
	// target ID; it is write-only and never acknowledged on the wire,
	// so failures here are the probe's own transport errors.
	return p.RawWriteRegister(0xC, false, targetID)
}

type errTimeout struct{}

func (errTimeout) Error() string { return "timed out waiting for debug power-up acknowledgement" }
