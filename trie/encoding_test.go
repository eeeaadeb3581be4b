// Copyright 2014 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

package trie

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHexCompact(t *testing.T) {
	tests := []struct{ hex, compact []byte }{
		// empty keys, with and without terminator.
		{hex: []byte{}, compact: []byte{0x00}},
		{hex: []byte{16}, compact: []byte{0x20}},
		// odd length, no terminator
		{hex: []byte{1, 2, 3, 4, 5}, compact: []byte{0x11, 0x23, 0x45}},
		// even length, no terminator
		{hex: []byte{0, 1, 2, 3, 4, 5}, compact: []byte{0x00, 0x01, 0x23, 0x45}},
		// odd length, terminator
		{hex: []byte{15, 1, 12, 11, 8, 16}, compact: []byte{0x3f, 0x1c, 0xb8}},
		// even length, terminator
		{hex: []byte{0, 15, 1, 12, 11, 8, 16}, compact: []byte{0x20, 0x0f, 0x1c, 0xb8}},
	}
	for _, test := range tests {
		assert.Equal(t, test.compact, hexToCompact(test.hex), "hexToCompact(%x)", test.hex)
		assert.Equal(t, test.hex, compactToHex(test.compact), "compactToHex(%x)", test.compact)
	}
}

func TestHexKeybytes(t *testing.T) {
	tests := []struct{ key, hexIn, hexOut []byte }{
		{key: []byte{}, hexIn: []byte{16}, hexOut: []byte{16}},
		{key: []byte{}, hexIn: []byte{}, hexOut: []byte{16}},
		{key: []byte{0x12, 0x34, 0x56}, hexIn: []byte{1, 2, 3, 4, 5, 6, 16}, hexOut: []byte{1, 2, 3, 4, 5, 6, 16}},
		{key: []byte{0x12, 0x34, 0x5}, hexIn: []byte{1, 2, 3, 4, 0, 5, 16}, hexOut: []byte{1, 2, 3, 4, 0, 5, 16}},
	}
	for _, test := range tests {
		assert.Equal(t, test.hexOut, keybytesToHex(test.key), "keybytesToHex(%x)", test.key)
		assert.Equal(t, test.key, hexToKeybytes(test.hexIn), "hexToKeybytes(%x)", test.hexIn)
	}
	assert.Panics(t, func() { hexToKeybytes([]byte{1, 2, 3}) })
}

func TestPrefixLen(t *testing.T) {
	assert.Equal(t, 0, prefixLen(nil, []byte{1}))
	assert.Equal(t, 2, prefixLen([]byte{1, 2, 3}, []byte{1, 2, 4}))
	assert.Equal(t, 2, prefixLen([]byte{1, 2}, []byte{1, 2, 4}))
}
