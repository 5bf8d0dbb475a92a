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
	"fmt"

	"github.com/pkg/errors"

	"github.com/FanX-Tek/probe-rs/dap"
)

// Sentinel errors for the taxonomy in spec.md §7. Transport and protocol
// errors are not modelled here: they are whatever the probe/sequence
// collaborator returns, surfaced verbatim or wrapped with context via
// wrapf below, never replaced.
var (
	// ErrCapabilityRequired is returned when an SWO call is made against a
	// probe that doesn't advertise the SWO capability.
	ErrCapabilityRequired = errors.New("architecture required: ARMv7-M or ARMv8-M SWO support")

	// ErrUnsupportedDpVersion is returned when DPIDR reports a version
	// byte outside DPv0..DPv3.
	ErrUnsupportedDpVersion = errors.New("unsupported DP version")

	// ErrClosed is returned by any operation attempted after Close has
	// extracted the probe.
	ErrClosed = errors.New("interface is closed")
)

// wrapf annotates err with a propagation-boundary message, per spec.md §7's
// policy that select_dp and bank selection surface their first error
// un-obscured. Returns nil if err is nil.
func wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(err, fmt.Sprintf(format, args...))
}

// apVersionMismatch is the programming-error panic raised when an AP
// address variant doesn't match the DP's observed select-cache shape
// (spec.md §4.1 AP bank selection: "any other pairing is a programming
// error"). It is a distinct type so tests can recover() and assert on it
// without matching on a string.
type apVersionMismatch struct {
	ap dap.FullyQualifiedApAddress
}

func (e apVersionMismatch) Error() string {
	return fmt.Sprintf("programming error: AP address variant does not match DP version for %s", e.ap)
}

func panicOnVersionMismatch(fqa dap.FullyQualifiedApAddress) {
	panic(apVersionMismatch{ap: fqa})
}
