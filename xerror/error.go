// Copyright (C) 2024 NoWDB Authors.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package xerror

import (
	"fmt"
	"strings"
)

// Error is a pooled error descriptor: a stable code, an optional OS
// errno, an object tag naming what failed, free-text detail, and an
// optional chained cause. Error implements the standard error interface
// and Unwrap, so errors.Is/errors.As work against Code-tagged sentinels
// created with New.
type Error struct {
	Code    Code
	OSErrno int
	Object  [32]byte
	Info    string
	Cause   error

	pooled bool
	block  *block
	slot   int
}

// New creates a Code sentinel usable with errors.Is, independent of the pool.
func New(code Code) *Error {
	return &Error{Code: code}
}

// Error renders a single line for this descriptor; use Render for the
// full newest-first cause chain.
func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s]", e.Code)
	if obj := e.object(); obj != "" {
		fmt.Fprintf(&b, " %s", obj)
	}
	if e.OSErrno != 0 {
		fmt.Fprintf(&b, " (errno %d)", e.OSErrno)
	}
	if e.Info != "" {
		fmt.Fprintf(&b, ": %s", e.Info)
	}
	return b.String()
}

// Unwrap exposes the cause chain to errors.Is/errors.As.
func (e *Error) Unwrap() error { return e.Cause }

// Is lets errors.Is(err, xerror.New(code)) match by code alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.OSErrno == 0 && t.Info == "" && t.Cause == nil && t.Code == e.Code
}

func (e *Error) object() string {
	n := 0
	for n < len(e.Object) && e.Object[n] != 0 {
		n++
	}
	return string(e.Object[:n])
}

// SetObject copies name (truncated to 32 bytes) into the object tag.
func (e *Error) SetObject(name string) {
	e.Object = [32]byte{}
	copy(e.Object[:], name)
}

// Cascade links cause beneath err, returning err for chaining.
func Cascade(err *Error, cause error) *Error {
	err.Cause = cause
	return err
}

// Contains walks err's cause chain looking for code.
func Contains(err error, code Code) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			if e.Code == code {
				return true
			}
			err = e.Cause
			continue
		}
		return false
	}
	return false
}

// Render renders the full cause chain, newest (outermost) first, one
// line per level, as required by spec §4.1/§7 for the user-visible wire
// response.
func Render(err error) string {
	var lines []string
	for err != nil {
		lines = append(lines, err.Error())
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return strings.Join(lines, "\n")
}
