// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package once

import (
	"errors"

	"code.hybscloud.com/iox"
)

// ErrWouldBlock indicates the value is not available yet.
//
// For Get: no value has been published (the cell is empty, or an
// initializer holds the claim and has not published yet).
//
// ErrWouldBlock is a control flow signal, not a failure. The caller should
// retry the operation later (with backoff or yield) rather than propagating
// the error.
//
// This is an alias for [iox.ErrWouldBlock] for ecosystem consistency.
//
// Example:
//
//	backoff := iox.Backoff{}
//	for {
//	    v, err := cell.Get()
//	    if err == nil {
//	        use(v)
//	        break
//	    }
//	    if !once.IsWouldBlock(err) {
//	        return err // Unexpected error
//	    }
//	    backoff.Wait()
//	}
var ErrWouldBlock = iox.ErrWouldBlock

// ErrAlreadySet indicates a Set lost the publication race: another caller
// already published a value (or holds the claim and went on to publish).
// The cell's value is unchanged.
var ErrAlreadySet = errors.New("once: value already set")

// ErrRange indicates a CellIndirect value does not fit in 63 bits.
// The high bit of the cell word is reserved for the set flag.
var ErrRange = errors.New("once: value exceeds 63 bits")

// IsWouldBlock reports whether err indicates the value is not available yet.
// Delegates to [iox.IsWouldBlock] for wrapped error support.
func IsWouldBlock(err error) bool {
	return iox.IsWouldBlock(err)
}

// IsSemantic reports whether err is a control flow signal (not a failure).
// Delegates to [iox.IsSemantic].
func IsSemantic(err error) bool {
	return iox.IsSemantic(err)
}

// IsNonFailure reports whether err represents a non-failure condition.
// Returns true for nil or ErrWouldBlock.
// Delegates to [iox.IsNonFailure].
func IsNonFailure(err error) bool {
	return iox.IsNonFailure(err)
}
