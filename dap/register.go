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

package dap

// DpRegisterAddress addresses a DP register: a 4-bit address plus an
// optional 4-bit bank. Only address 0x0 (ADIv6 only) and 0x4 are banked;
// every other address ignores Bank entirely.
type DpRegisterAddress struct {
	Bank    *uint8
	Address uint8
}

// DpRegAddr0 is DPIDR on ADIv5/6, or the banked DP register on ADIv6 when Bank != nil.
const DpRegAddr0 uint8 = 0x0

// DpRegAddr4 is the banked CTRL/STAT-or-other DP register on both architectures.
const DpRegAddr4 uint8 = 0x4

// Banked reports whether a.Address participates in DP bank selection.
// Address 0x0 is only bank-selected on DPv3 (ADIv6); the caller supplies
// that context since this type doesn't know the DP version.
func (a DpRegisterAddress) Banked(dpv3 bool) bool {
	switch a.Address {
	case DpRegAddr4:
		return true
	case DpRegAddr0:
		return dpv3
	default:
		return false
	}
}

// BankOrZero returns the requested bank, defaulting to 0 when absent.
func (a DpRegisterAddress) BankOrZero() uint8 {
	if a.Bank == nil {
		return 0
	}
	return *a.Bank
}

// UnbankedDpRegister builds a non-banked DP register address (e.g. ABORT).
func UnbankedDpRegister(address uint8) DpRegisterAddress {
	return DpRegisterAddress{Address: address}
}

// BankedDpRegister builds a banked DP register address.
func BankedDpRegister(bank uint8, address uint8) DpRegisterAddress {
	b := bank & 0xF
	return DpRegisterAddress{Bank: &b, Address: address}
}
