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

package sql

import (
	"encoding/binary"
	"io"

	"github.com/nowdb/nowdb/xerror"
)

// maxFrameSize bounds a single statement's wire length; a length
// prefix above this is treated as a protocol error rather than an
// attempt to allocate an arbitrarily large buffer.
const maxFrameSize = 1 << 20

// ReadFrame reads one length-prefixed statement frame from r: a 4-byte
// little-endian length followed by that many UTF-8 bytes (spec §4.9,
// §6 "Network framing"). It returns xerror.EOF when r is closed before
// any bytes of a new frame arrive, and xerror.NotSupported when the
// declared length exceeds maxFrameSize (a malformed/hostile frame).
func ReadFrame(r io.Reader) ([]byte, *xerror.Error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		if err == io.EOF {
			return nil, xerror.New(xerror.EOF)
		}
		return nil, xerror.Get(xerror.Read, 0, "sql.frame", err.Error())
	}

	n := binary.LittleEndian.Uint32(lenBuf[:])
	if n > maxFrameSize {
		return nil, xerror.Get(xerror.NotSupported, 0, "sql.frame", "frame length exceeds limit")
	}

	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, xerror.Get(xerror.Read, 0, "sql.frame", err.Error())
	}
	return buf, nil
}

// WriteFrame writes stmt to w as one length-prefixed frame.
func WriteFrame(w io.Writer, stmt []byte) *xerror.Error {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(stmt)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return xerror.Get(xerror.Write, 0, "sql.frame", err.Error())
	}
	if _, err := w.Write(stmt); err != nil {
		return xerror.Get(xerror.Write, 0, "sql.frame", err.Error())
	}
	return nil
}
