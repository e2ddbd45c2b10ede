// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package storage - index of the blocks written to the record stream
//
// maintain separate pools of a number of elements in key->value form
//
// This maintains a LevelDB database split into a series of tables.
// Each table is defined by a prefix byte that is obtained from the
// prefix tag in the struct defining the available tables.
//
// Notes:
// 1. each separate pool has a single byte prefix (to spread the keys in LevelDB)
// 2. ++           = concatenation of byte data
// 3. block number = big endian uint64 (8 bytes)
// 4. file name    = base name of a record file, e.g. 2022-10-19T21_35_38.000000000Z.rcd.gz
//
// Blocks:
//
//	B ++ block number          - closed block
//	                             data: JSON encoded BlockEntry
//	F ++ file name             - record file to block
//	                             data: block number
//
// Resume point:
//
//	S ++ "last"                - most recently closed block
//	                             data: block number ++ end running hash (48 bytes)
package storage
