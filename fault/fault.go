// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package fault

// GenericError - error base
type GenericError string

// to allow for different classes of errors
type ExistsError GenericError
type InvalidError GenericError
type LengthError GenericError
type NotFoundError GenericError
type ProcessError GenericError
type RecordError GenericError

// common errors - keep in alphabetic order
var (
	ErrAlreadyInitialised          = ExistsError("already initialised")
	ErrBlockNotOpen                = InvalidError("no block is open")
	ErrConsensusTimeMismatch       = InvalidError("first consensus time does not match the open block")
	ErrEmptyRecordBytes            = RecordError("record bytes are empty")
	ErrEmptyTransactionBytes       = RecordError("transaction bytes are empty")
	ErrFileHashMismatch            = RecordError("file hash mismatch")
	ErrFooterAlreadyWritten        = InvalidError("footer already written")
	ErrHeaderAlreadyWritten        = InvalidError("header already written")
	ErrHeaderNotWritten            = InvalidError("header not written")
	ErrInvalidBlockNumber          = InvalidError("invalid block number")
	ErrInvalidConfiguration        = InvalidError("invalid configuration")
	ErrInvalidCount                = InvalidError("invalid count")
	ErrInvalidCursor               = InvalidError("invalid cursor")
	ErrInvalidDigestLength         = LengthError("invalid digest length")
	ErrInvalidFileName             = InvalidError("invalid file name")
	ErrInvalidHashAlgorithm        = RecordError("invalid hash algorithm")
	ErrInvalidIPAddress            = InvalidError("invalid IP address")
	ErrInvalidKeyLength            = LengthError("invalid key length")
	ErrInvalidPortNumber           = InvalidError("invalid port number")
	ErrInvalidPrivateKeyFile       = InvalidError("invalid private key file")
	ErrInvalidProtocolVersion      = InvalidError("invalid protocol version")
	ErrInvalidPublicKeyFile        = InvalidError("invalid public key file")
	ErrInvalidSidecarKind          = RecordError("invalid sidecar kind")
	ErrInvalidSignature            = InvalidError("invalid signature")
	ErrKeyFileAlreadyExists        = ExistsError("key file already exists")
	ErrMetadataHashMismatch        = RecordError("metadata hash mismatch")
	ErrMissingField                = RecordError("missing field")
	ErrMissingRecord               = RecordError("missing record")
	ErrMissingSigner               = InvalidError("missing signer")
	ErrNotAvailableDuringHalt      = ProcessError("not available while halted")
	ErrNotInitialised              = NotFoundError("not initialised")
	ErrProducerClosed              = InvalidError("record stream producer is closed")
	ErrRateLimiting                = ProcessError("rate limiting")
	ErrRecordFileClosed            = InvalidError("record file is closed")
	ErrRunningHashAlreadySet       = ExistsError("running hash already set")
	ErrRunningHashMismatch         = RecordError("running hash mismatch")
	ErrRunningHashNotSet           = InvalidError("running hash not set")
	ErrSidecarFileClosed           = InvalidError("sidecar file is closed")
	ErrSidecarHashMismatch         = RecordError("sidecar hash mismatch")
	ErrSignatureFileVersion        = RecordError("unsupported signature file version")
	ErrStagePanic                  = ProcessError("pipeline stage panicked")
	ErrTransactionInUse            = ExistsError("transaction already in use")
	ErrTruncatedRecord             = LengthError("truncated record")
	ErrUnexpectedField             = RecordError("unexpected field")
	ErrUnsupportedRecordFileFormat = NotFoundError("unsupported record file format version")
	ErrWrongBlockNumber            = InvalidError("wrong block number")
)

// the error interface base method
func (e GenericError) Error() string { return string(e) }

// the error interface methods
func (e ExistsError) Error() string   { return string(e) }
func (e InvalidError) Error() string  { return string(e) }
func (e LengthError) Error() string   { return string(e) }
func (e NotFoundError) Error() string { return string(e) }
func (e ProcessError) Error() string  { return string(e) }
func (e RecordError) Error() string   { return string(e) }

// determine the class of an error
func IsErrExists(e error) bool   { _, ok := e.(ExistsError); return ok }
func IsErrInvalid(e error) bool  { _, ok := e.(InvalidError); return ok }
func IsErrLength(e error) bool   { _, ok := e.(LengthError); return ok }
func IsErrNotFound(e error) bool { _, ok := e.(NotFoundError); return ok }
func IsErrProcess(e error) bool  { _, ok := e.(ProcessError); return ok }
func IsErrRecord(e error) bool   { _, ok := e.(RecordError); return ok }
