// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package runninghash

import (
	"crypto/sha512"
)

// HashHeader - class id and version that prefix every digest fed back
// into the chain; must stay byte identical for files already issued
var HashHeader = [12]byte{
	0xf4, 0x22, 0xda, 0x83, 0xa2, 0x51, 0x74, 0x1e, // class id
	0x00, 0x00, 0x00, 0x01, // version
}

// Fold - thread the running hash through each item in order
//
//	itemHash = SHA384(item)
//	running  = SHA384(header || running || header || itemHash)
//
// an empty list returns previous unchanged
func Fold(previous Digest, items [][]byte) Digest {
	running := previous
	for _, item := range items {
		running = Next(running, item)
	}
	return running
}

// Next - fold a single item
func Next(previous Digest, item []byte) Digest {
	itemHash := sha512.Sum384(item)

	h := sha512.New384()
	h.Write(HashHeader[:])
	h.Write(previous[:])
	h.Write(HashHeader[:])
	h.Write(itemHash[:])

	var running Digest
	h.Sum(running[:0])
	return running
}
