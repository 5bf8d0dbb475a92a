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

// Package sequence defines the chip-specific debug-sequence strategy hooks
// invoked by the interface core at well-defined points in the DP selection
// algorithm (spec.md §4.1, §6). Implementations are pluggable per target
// family; armsequence provides the generic ARM bring-up sequence that works
// against any compliant DP.
package sequence

import (
	"github.com/FanX-Tek/probe-rs/dap"
	"github.com/FanX-Tek/probe-rs/probe"
)

// Core is the minimal slice of the interface core that DebugPortStart needs
// to re-enter in order to read CTRL/STAT and DPIDR during start-up. It is
// defined here, not in the core package, so that sequence has no import
// dependency back on the core: the core depends on sequence, never the
// other way around, which is what lets DebugPortStart take "a full handle
// to the core" (spec.md §9) without an import cycle.
type Core interface {
	ReadRawDpRegister(dp dap.DpAddress, reg dap.DpRegisterAddress) (uint32, error)
	WriteRawDpRegister(dp dap.DpAddress, reg dap.DpRegisterAddress, value uint32) error
}

// DebugSequence is the strategy object invoked at setup/connect/start/stop.
// All four hooks are synchronous; see spec.md §6.
type DebugSequence interface {
	// DebugPortSetup performs full bring-up: dormant-mode exit, line
	// reset, and JTAG-to-SWD switching if needed.
	DebugPortSetup(p probe.Probe, dp dap.DpAddress) error

	// DebugPortConnect performs a lighter switch appropriate when the
	// wire is already live (e.g. a multidrop target-ID write). On
	// failure the core falls back to DebugPortSetup exactly once.
	DebugPortConnect(p probe.Probe, dp dap.DpAddress) error

	// DebugPortStart runs post-selection initialisation and may call
	// back into Core to read/write DP registers.
	DebugPortStart(core Core, dp dap.DpAddress) error

	// DebugPortStop performs graceful teardown of dp.
	DebugPortStop(p probe.Probe, dp dap.DpAddress) error
}
