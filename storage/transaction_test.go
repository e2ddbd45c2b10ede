// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package storage

import (
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"

	"github.com/bitmark-inc/recordstreamd/fault"
	"github.com/bitmark-inc/recordstreamd/storage/mocks"
)

func TestTransactionPrefixesKeys(t *testing.T) {
	ctl := gomock.NewController(t)
	defer ctl.Finish()

	access := mocks.NewMockAccess(ctl)
	pool := &PoolHandle{prefix: 'B', limit: []byte{'C'}, access: access}
	trx := newTransaction(access)

	gomock.InOrder(
		access.EXPECT().Begin().Return(nil).Times(1),
		access.EXPECT().Put([]byte("Bkey"), []byte("value")).Times(1),
		access.EXPECT().Put([]byte("Bcount"), []byte{0, 0, 0, 0, 0, 0, 1, 2}).Times(1),
		access.EXPECT().Delete([]byte("Bold")).Times(1),
		access.EXPECT().Get([]byte("Bkey")).Return([]byte("value"), nil).Times(1),
		access.EXPECT().Commit().Return(nil).Times(1),
	)

	assert.Nil(t, trx.Begin(), "begin")
	trx.Put(pool, []byte("key"), []byte("value"))
	trx.PutN(pool, []byte("count"), 0x102)
	trx.Delete(pool, []byte("old"))
	value, err := trx.Get(pool, []byte("key"))
	assert.Nil(t, err, "get")
	assert.Equal(t, []byte("value"), value, "get value")
	assert.Nil(t, trx.Commit(), "commit")
}

func TestTransactionBeginInUse(t *testing.T) {
	ctl := gomock.NewController(t)
	defer ctl.Finish()

	access := mocks.NewMockAccess(ctl)
	trx := newTransaction(access)

	access.EXPECT().Begin().Return(fault.ErrTransactionInUse).Times(1)
	access.EXPECT().Abort().Times(1)

	assert.Equal(t, fault.ErrTransactionInUse, trx.Begin(), "begin")
	trx.Abort()
}
