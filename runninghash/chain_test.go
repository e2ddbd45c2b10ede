// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package runninghash_test

import (
	"bytes"
	"crypto/sha512"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bitmark-inc/recordstreamd/runninghash"
)

func items(n int) [][]byte {
	list := make([][]byte, n)
	for i := range list {
		list[i] = []byte(fmt.Sprintf("item-%03d", i))
	}
	return list
}

func TestFoldEmpty(t *testing.T) {
	start := runninghash.NewDigest([]byte("start"))
	assert.Equal(t, start, runninghash.Fold(start, nil), "empty fold changed the hash")
	assert.Equal(t, start, runninghash.Fold(start, [][]byte{}), "empty fold changed the hash")
}

// the two level construction computed by hand
func TestFoldSingle(t *testing.T) {
	item := []byte("a single item")
	itemHash := sha512.Sum384(item)

	buffer := &bytes.Buffer{}
	buffer.Write(runninghash.HashHeader[:])
	buffer.Write(runninghash.Zero[:])
	buffer.Write(runninghash.HashHeader[:])
	buffer.Write(itemHash[:])
	expected := runninghash.Digest(sha512.Sum384(buffer.Bytes()))

	actual := runninghash.Fold(runninghash.Zero, [][]byte{item})
	assert.Equal(t, expected, actual, "wrong running hash")
}

// folding as one batch equals folding one at a time
func TestFoldEquivalence(t *testing.T) {
	list := items(37)
	start := runninghash.NewDigest([]byte("genesis"))

	batch := runninghash.Fold(start, list)

	single := start
	for _, item := range list {
		single = runninghash.Fold(single, [][]byte{item})
	}
	assert.Equal(t, batch, single, "batch and single folds differ")

	// any split point gives the same result
	for split := 0; split <= len(list); split += 5 {
		h := runninghash.Fold(start, list[:split])
		h = runninghash.Fold(h, list[split:])
		assert.Equal(t, batch, h, "split at %d differs", split)
	}
}

func TestFoldOrderMatters(t *testing.T) {
	list := items(2)
	reversed := [][]byte{list[1], list[0]}
	assert.NotEqual(t, runninghash.Fold(runninghash.Zero, list), runninghash.Fold(runninghash.Zero, reversed), "order ignored")
}

func TestHashHeader(t *testing.T) {
	assert.Equal(t, 12, len(runninghash.HashHeader), "header length")
	assert.Equal(t, byte(0xf4), runninghash.HashHeader[0], "header start")
	assert.Equal(t, byte(0x01), runninghash.HashHeader[11], "header version")
}
