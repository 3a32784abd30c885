// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package mer

import "fmt"

// BasePolicy selects how symbols outside an alphabet are handled.
type BasePolicy int

const (
	// Skip treats an unknown symbol as matching no mer. Any mer overlapping the
	// symbol contributes nothing to a count.
	Skip BasePolicy = iota
	// Reject reports the first unknown symbol as an *InvalidBaseError.
	Reject
)

// String implements fmt.Stringer.
func (p BasePolicy) String() string {
	switch p {
	case Skip:
		return "skip"
	case Reject:
		return "reject"
	}
	return fmt.Sprintf("BasePolicy(%d)", int(p))
}

// ParseBasePolicy parses the output of BasePolicy.String.
func ParseBasePolicy(s string) (BasePolicy, bool) {
	switch s {
	case "skip":
		return Skip, true
	case "reject":
		return Reject, true
	}
	return Skip, false
}

// InvalidBaseError reports a symbol that is not part of an alphabet.
type InvalidBaseError struct {
	// Base is the offending symbol.
	Base byte
	// Pos is the 0-based offset of Base within the string being examined.
	Pos int
}

// Error implements error.
func (e *InvalidBaseError) Error() string {
	return fmt.Sprintf("invalid base %q at position %d", e.Base, e.Pos)
}
