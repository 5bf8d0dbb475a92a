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

// Package dapcore is the stateful driver that multiplexes a single owned
// debug probe across one or more ARM Debug Ports and their Access Ports,
// following ADIv5/ADIv6. See SPEC_FULL.md for the full design.
package dapcore

import (
	"sync/atomic"

	"github.com/FanX-Tek/probe-rs/dap"
	"github.com/FanX-Tek/probe-rs/probe"
	"github.com/FanX-Tek/probe-rs/sequence"
)

const ctrlStatOrunDetect uint32 = 1 << 0

var ctrlStatRegister = dap.BankedDpRegister(0, dap.DpRegAddr4)

// select1DpBank is the DP bank SELECT1 is banked under. SELECT1 shares wire
// address 0x4 with CTRL/STAT (banked to 0), so reaching it requires SELECT's
// DP bank nibble to read 5 for the duration of the write.
const select1DpBank uint8 = 5

// Interface is the DP/AP multiplexing core. It owns a probe for its entire
// live lifetime, caches per-DP state, and minimises SELECT-register writes
// while preserving ADIv5/ADIv6 banking semantics. It is single-owner and
// not safe for concurrent use: every operation blocks on the probe and
// issues transactions in strict program order (spec.md §5).
type Interface struct {
	p   probe.Probe // nil once Close has run
	seq sequence.DebugSequence

	useOverrunDetect bool

	currentDp    dap.DpAddress
	hasCurrentDp bool

	dpStates map[dap.DpAddress]*dap.DpState

	closed atomic.Bool
}

var _ sequence.Core = (*Interface)(nil)

// NewInterface creates the core over probe p, using seq for chip-specific
// bring-up hooks. No I/O is performed by this call; the probe is untouched
// until the first DP/AP access. Ownership of p transfers to Interface: the
// caller must not use p directly again, and must eventually call Close.
// Go has no destructors, so there is no finalizer-based safety net here —
// the scoped-release idiom is the constructor-returned handle plus the
// closed flag guarding double-release, the same discipline *os.File's
// Close/already-closed-error pairing uses.
func NewInterface(p probe.Probe, seq sequence.DebugSequence, useOverrunDetect bool) *Interface {
	return &Interface{
		p:                p,
		seq:              seq,
		useOverrunDetect: useOverrunDetect,
		dpStates:         make(map[dap.DpAddress]*dap.DpState),
	}
}

// CurrentDebugPort returns the DP the probe is currently addressing, or
// ok=false if none has ever been selected or a full disconnect has run.
func (c *Interface) CurrentDebugPort() (dap.DpAddress, bool) {
	return c.currentDp, c.hasCurrentDp
}

// SelectDebugPort forces selection of dp, performing lazy per-DP
// initialisation if this is the first touch. No value is returned; callers
// that need the resulting state use the raw/facade operations.
func (c *Interface) SelectDebugPort(dp dap.DpAddress) error {
	_, err := c.selectDp(dp)
	return err
}

// Reinitialize runs a full disconnect and then reselects the DP that was
// current beforehand, if any. current_dp is absent between the two phases;
// a sequence hook invoked during reselection may re-enter debug_port_*
// operations and will observe that fresh state.
func (c *Interface) Reinitialize() error {
	if c.closed.Load() {
		return ErrClosed
	}
	prev, had := c.currentDp, c.hasCurrentDp
	c.disconnect()
	if !had {
		return nil
	}
	return c.SelectDebugPort(prev)
}

// Close runs the disconnect discipline and returns the raw probe, which
// must not be reused by this Interface afterward. Calling Close more than
// once returns ErrClosed on the second and subsequent calls.
func (c *Interface) Close() (probe.Probe, error) {
	if !c.closed.CompareAndSwap(false, true) {
		return nil, ErrClosed
	}
	c.disconnect()
	p := c.p
	c.p = nil
	return p, nil
}

// disconnect implements spec.md §4.1's disconnect discipline. It is called
// by Close and Reinitialize, and never aborts on a partial failure:
// draining is best-effort, and every step that can fail is logged and
// skipped rather than propagated.
func (c *Interface) disconnect() {
	if c.p == nil {
		return
	}

	prevDp, hadCurrent := c.currentDp, c.hasCurrentDp
	c.currentDp = dap.DpAddress{}
	c.hasCurrentDp = false

	if hadCurrent {
		if err := c.seq.DebugPortStop(c.p, prevDp); err != nil {
			logger.Warn("debug_port_stop failed for current DP", map[string]any{"dp": prevDp.String(), "error": err.Error()})
		}
	}

	for dp := range c.dpStates {
		if hadCurrent && dp == prevDp {
			continue
		}
		if err := c.seq.DebugPortConnect(c.p, dp); err != nil {
			logger.Warn("debug_port_connect failed while draining DP, skipping stop", map[string]any{"dp": dp.String(), "error": err.Error()})
			continue
		}
		if err := c.seq.DebugPortStop(c.p, dp); err != nil {
			logger.Warn("debug_port_stop failed while draining DP", map[string]any{"dp": dp.String(), "error": err.Error()})
		}
	}

	if err := c.p.RawFlush(); err != nil {
		logger.Warn("flush failed during disconnect", map[string]any{"error": err.Error()})
	}

	c.dpStates = make(map[dap.DpAddress]*dap.DpState)
}

// selectDp implements spec.md §4.1's DP selection algorithm and returns a
// handle to dp's cached state.
func (c *Interface) selectDp(dp dap.DpAddress) (*dap.DpState, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}

	switched := false

	if !(c.hasCurrentDp && c.currentDp == dp) {
		if err := c.p.RawFlush(); err != nil {
			return nil, wrapf(err, "flush before selecting %s", dp)
		}

		if !c.hasCurrentDp {
			if err := c.seq.DebugPortSetup(c.p, dp); err != nil {
				return nil, wrapf(err, "debug_port_setup(%s)", dp)
			}
		} else {
			if err := c.seq.DebugPortConnect(c.p, dp); err != nil {
				logger.Warn("debug_port_connect failed, falling back to debug_port_setup", map[string]any{"dp": dp.String(), "error": err.Error()})
				if err := c.seq.DebugPortSetup(c.p, dp); err != nil {
					return nil, wrapf(err, "debug_port_setup(%s) fallback after connect failure", dp)
				}
			}
		}

		c.currentDp = dp
		c.hasCurrentDp = true
		switched = true
	}

	state, firstTouch := c.dpStates[dp]
	if !firstTouch {
		state = dap.NewDpState()
		c.dpStates[dp] = state

		logger.Span("debug_port_start", map[string]any{"dp": dp.String()})
		// Per spec.md §9's Open Question: if DebugPortStart fails here,
		// current_dp (already set above) stays set and the error
		// propagates; state is not retroactively erased.
		if err := c.seq.DebugPortStart(c, dp); err != nil {
			return nil, wrapf(err, "debug_port_start(%s)", dp)
		}

		ctrl, err := c.ReadRawDpRegister(dp, ctrlStatRegister)
		if err != nil {
			return nil, wrapf(err, "reading CTRL/STAT during start of %s", dp)
		}
		wantOrun := c.useOverrunDetect
		haveOrun := ctrl&ctrlStatOrunDetect != 0
		if wantOrun != haveOrun {
			next := ctrl &^ ctrlStatOrunDetect
			if wantOrun {
				next |= ctrlStatOrunDetect
			}
			if err := c.WriteRawDpRegister(dp, ctrlStatRegister, next); err != nil {
				return nil, wrapf(err, "reconciling orun_detect on %s", dp)
			}
		}

		dpidr, err := c.ReadRawDpRegister(dp, dap.DpRegisterAddress{Address: dap.DpRegAddr0})
		if err != nil {
			return nil, wrapf(err, "reading DPIDR on %s", dp)
		}
		version := parseDpVersion(dpidr)
		if version == dap.DpVersionUnsupported {
			return nil, wrapf(ErrUnsupportedDpVersion, "DPIDR=%#08x on %s", dpidr, dp)
		}
		state.Version = version
		if version == dap.DpVersionDPv3 {
			state.Select = state.Select.RetagToDPv3()
		}
	} else if switched {
		logger.Span("debug_port_start", map[string]any{"dp": dp.String(), "resumed": true})
		if err := c.seq.DebugPortStart(c, dp); err != nil {
			return nil, wrapf(err, "debug_port_start(%s) after re-select", dp)
		}
	}

	return state, nil
}

// parseDpVersion maps DPIDR's VERSION field (bits [15:12]) to a DpVersion.
func parseDpVersion(dpidr uint32) dap.DpVersion {
	switch (dpidr >> 12) & 0xF {
	case 0:
		return dap.DpVersionDPv0
	case 1:
		return dap.DpVersionDPv1
	case 2:
		return dap.DpVersionDPv2
	case 3:
		return dap.DpVersionDPv3
	default:
		return dap.DpVersionUnsupported
	}
}

// selectDpBank implements spec.md §4.1's DP bank selection.
func (c *Interface) selectDpBank(dp dap.DpAddress, state *dap.DpState, reg dap.DpRegisterAddress) error {
	dpv3 := state.Version == dap.DpVersionDPv3
	if !reg.Banked(dpv3) {
		return nil
	}

	bank := reg.BankOrZero()
	if bank == state.Select.DpBankSel() {
		return nil
	}

	next := state.Select.WithDpBank(bank)

	var err error
	if next.IsDPv3() {
		selectAddr, _ := next.V3SelectWords()
		word := uint32(bank)&0xF | selectAddr<<4
		err = c.p.RawWriteRegister(0x8, false, word)
	} else {
		err = c.p.RawWriteRegister(0x8, false, next.V1SelectWord())
	}
	if err != nil {
		return err
	}
	state.Select = next
	return nil
}

// selectApBank implements spec.md §4.1's AP bank selection.
func (c *Interface) selectApBank(fqa dap.FullyQualifiedApAddress, state *dap.DpState, apRegisterAddress uint64) error {
	if _, err := c.selectDp(fqa.DP); err != nil {
		return err
	}

	switch ap := fqa.AP.(type) {
	case dap.ApAddressV1:
		if state.Select.IsDPv3() {
			panicOnVersionMismatch(fqa)
		}
		apSel := ap.Port
		apBankSel := uint8((apRegisterAddress >> 4) & 0xF)
		if apSel == state.Select.ApSel() && apBankSel == state.Select.ApBankSel() {
			return nil
		}
		next := state.Select.WithApV1(apSel, apBankSel)
		if err := c.p.RawWriteRegister(0x8, false, next.V1SelectWord()); err != nil {
			return err
		}
		state.Select = next
		return nil

	case dap.ApAddressV2:
		if !state.Select.IsDPv3() {
			panicOnVersionMismatch(fqa)
		}
		addr := ap.BaseOrZero() + apRegisterAddress
		next, selectChanged, select1Changed := state.Select.WithApV3Addr(addr)
		if !selectChanged && !select1Changed {
			return nil
		}
		selectAddr, select1Addr := next.V3SelectWords()
		if selectChanged {
			word := uint32(next.DpBankSel())&0xF | selectAddr<<4
			if err := c.p.RawWriteRegister(0x8, false, word); err != nil {
				return err
			}
		}
		if select1Changed {
			// SELECT1 is only reachable with SELECT's DP bank nibble set
			// to select1DpBank; temporarily force it there, write
			// SELECT1, then restore the bank the cache actually tracks
			// so the next DP-register access still lands on its bank.
			currentBank := next.DpBankSel()
			if currentBank != select1DpBank {
				bankWord := uint32(select1DpBank)&0xF | selectAddr<<4
				if err := c.p.RawWriteRegister(0x8, false, bankWord); err != nil {
					return err
				}
			}
			if err := c.p.RawWriteRegister(0x4, false, select1Addr); err != nil {
				return err
			}
			if currentBank != select1DpBank {
				restoreWord := uint32(currentBank)&0xF | selectAddr<<4
				if err := c.p.RawWriteRegister(0x8, false, restoreWord); err != nil {
					return err
				}
			}
		}
		state.Select = next
		return nil

	default:
		panicOnVersionMismatch(fqa)
		return nil // unreachable
	}
}

