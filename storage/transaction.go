// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package storage

import (
	"encoding/binary"
)

// Transaction - a set of pool writes committed atomically
type Transaction interface {
	Begin() error
	Put(*PoolHandle, []byte, []byte)
	PutN(*PoolHandle, []byte, uint64)
	Delete(*PoolHandle, []byte)
	Get(*PoolHandle, []byte) ([]byte, error)
	Commit() error
	Abort()
}

// TransactionImpl - Transaction over a single Access
type TransactionImpl struct {
	access Access
}

func newTransaction(access Access) Transaction {
	return &TransactionImpl{
		access: access,
	}
}

// Begin - fails if another transaction is open
func (t *TransactionImpl) Begin() error {
	return t.access.Begin()
}

// Put - queue a key/value write
func (t *TransactionImpl) Put(handle *PoolHandle, key []byte, value []byte) {
	t.access.Put(handle.prefixKey(key), value)
}

// PutN - queue a big endian uint64 write
func (t *TransactionImpl) PutN(handle *PoolHandle, key []byte, value uint64) {
	buffer := make([]byte, 8)
	binary.BigEndian.PutUint64(buffer, value)
	t.access.Put(handle.prefixKey(key), buffer)
}

// Delete - queue a removal
func (t *TransactionImpl) Delete(handle *PoolHandle, key []byte) {
	t.access.Delete(handle.prefixKey(key))
}

// Get - read including queued writes
func (t *TransactionImpl) Get(handle *PoolHandle, key []byte) ([]byte, error) {
	return t.access.Get(handle.prefixKey(key))
}

// Commit - write everything queued
func (t *TransactionImpl) Commit() error {
	return t.access.Commit()
}

// Abort - drop everything queued
func (t *TransactionImpl) Abort() {
	t.access.Abort()
}
