// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package signature_test

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"

	"github.com/bitmark-inc/recordstreamd/fault"
	"github.com/bitmark-inc/recordstreamd/recordformat"
	"github.com/bitmark-inc/recordstreamd/runninghash"
	"github.com/bitmark-inc/recordstreamd/signature"
	"github.com/bitmark-inc/recordstreamd/signature/mocks"
)

const (
	testDirectory = "testing.signature"
)

var (
	fileHash     = runninghash.NewDigest([]byte("record file"))
	metadataHash = runninghash.NewDigest([]byte("metadata"))
)

func setup(t *testing.T) {
	removeFiles()
	if err := os.Mkdir(testDirectory, 0o700); nil != err {
		t.Fatalf("mkdir error: %s", err)
	}
}

func removeFiles() {
	os.RemoveAll(testDirectory)
}

func makeSigner(t *testing.T) *signature.Ed25519Signer {
	public := filepath.Join(testDirectory, "sign.public")
	private := filepath.Join(testDirectory, "sign.private")
	if err := signature.MakeKeyPair(public, private); nil != err {
		t.Fatalf("make key pair error: %s", err)
	}
	s, err := signature.ReadSignerFile(private)
	if nil != err {
		t.Fatalf("read signer error: %s", err)
	}
	return s
}

func TestKeyFiles(t *testing.T) {
	setup(t)
	defer removeFiles()

	public := filepath.Join(testDirectory, "sign.public")
	private := filepath.Join(testDirectory, "sign.private")
	assert.Nil(t, signature.MakeKeyPair(public, private), "make key pair")
	assert.Equal(t, fault.ErrKeyFileAlreadyExists, signature.MakeKeyPair(public, private), "overwrite")

	s, err := signature.ReadSignerFile(private)
	assert.Nil(t, err, "read signer")
	v, err := signature.ReadVerifierFile(public)
	assert.Nil(t, err, "read verifier")

	sig, err := s.Sign(fileHash[:])
	assert.Nil(t, err, "sign")
	assert.Nil(t, v.Verify(fileHash[:], sig), "verify")
	assert.Equal(t, fault.ErrInvalidSignature, v.Verify(metadataHash[:], sig), "wrong hash verified")

	_, err = signature.ReadSignerFile(public)
	assert.Equal(t, fault.ErrInvalidPrivateKeyFile, err, "public key as signer")
	_, err = signature.ReadVerifierFile(private)
	assert.Equal(t, fault.ErrInvalidPublicKeyFile, err, "private key as verifier")
}

func TestParseKey(t *testing.T) {
	_, _, err := signature.ParseKey("PUBLIC:0011")
	assert.Equal(t, fault.ErrInvalidPublicKeyFile, err, "short public key")
	_, _, err = signature.ParseKey("PRIVATE:0011")
	assert.Equal(t, fault.ErrInvalidPrivateKeyFile, err, "short private key")
	_, _, err = signature.ParseKey("SECRET:0011")
	assert.Equal(t, fault.ErrInvalidPublicKeyFile, err, "unknown tag")
}

func TestWriteReadVerify(t *testing.T) {
	setup(t)
	defer removeFiles()

	s := makeSigner(t)
	recordPath := filepath.Join(testDirectory, "2022-10-19T21_35_39.000000000Z.rcd.gz")

	path, err := signature.WriteFile(signature.CurrentVersion, recordPath, s, fileHash, metadataHash)
	assert.Nil(t, err, "write error")
	assert.Equal(t, filepath.Join(testDirectory, "2022-10-19T21_35_39.000000000Z.rcd_sig"), path, "path")

	buffer, err := ioutil.ReadFile(path)
	assert.Nil(t, err, "read raw")
	assert.Equal(t, byte(6), buffer[0], "version byte")

	sf, err := signature.ReadFile(path)
	assert.Nil(t, err, "read error")
	assert.Equal(t, fileHash, sf.File.Hash, "file hash")
	assert.Equal(t, metadataHash, sf.Metadata.Hash, "metadata hash")
	assert.Equal(t, recordformat.SignatureTypeEd25519, sf.File.Type, "type")

	assert.Nil(t, signature.Verify(sf, fileHash, metadataHash, s.Verifier()), "verify")
	assert.Equal(t, fault.ErrFileHashMismatch, signature.Verify(sf, metadataHash, metadataHash, s.Verifier()), "file hash")
	assert.Equal(t, fault.ErrMetadataHashMismatch, signature.Verify(sf, fileHash, fileHash, s.Verifier()), "metadata hash")

	sf.Metadata.Signature[0] ^= 0xff
	assert.Equal(t, fault.ErrInvalidSignature, signature.Verify(sf, fileHash, metadataHash, s.Verifier()), "tampered signature")

	// a signature left by a block that was never indexed is replaced
	other := runninghash.NewDigest([]byte("record file produced again"))
	_, err = signature.WriteFile(signature.CurrentVersion, recordPath, s, other, metadataHash)
	assert.Nil(t, err, "rewrite")
	sf, err = signature.ReadFile(path)
	assert.Nil(t, err, "read rewritten")
	assert.Equal(t, other, sf.File.Hash, "stale signature kept")
	assert.Nil(t, signature.Verify(sf, other, metadataHash, s.Verifier()), "verify rewritten")
}

func TestWriteFileSignerCalls(t *testing.T) {
	setup(t)
	defer removeFiles()

	ctl := gomock.NewController(t)
	defer ctl.Finish()

	m := mocks.NewMockSigner(ctl)
	gomock.InOrder(
		m.EXPECT().Sign(fileHash[:]).Return([]byte("one"), nil).Times(1),
		m.EXPECT().Sign(metadataHash[:]).Return([]byte("two"), nil).Times(1),
	)
	m.EXPECT().Type().Return(recordformat.SignatureTypeSHA384RSA).Times(2)

	path, err := signature.WriteFile(6, filepath.Join(testDirectory, "x.rcd"), m, fileHash, metadataHash)
	assert.Nil(t, err, "write error")

	sf, err := signature.ReadFile(path)
	assert.Nil(t, err, "read error")
	assert.Equal(t, []byte("one"), sf.File.Signature, "file signature")
	assert.Equal(t, []byte("two"), sf.Metadata.Signature, "metadata signature")

	v := mocks.NewMockVerifier(ctl)
	v.EXPECT().Type().Return(recordformat.SignatureTypeSHA384RSA).AnyTimes()
	v.EXPECT().Verify(gomock.Any(), gomock.Any()).Return(nil).Times(2)
	assert.Nil(t, signature.Verify(sf, fileHash, metadataHash, v), "verify")
}

func TestWriteFileErrors(t *testing.T) {
	setup(t)
	defer removeFiles()

	ctl := gomock.NewController(t)
	defer ctl.Finish()

	recordPath := filepath.Join(testDirectory, "y.rcd")

	_, err := signature.WriteFile(6, recordPath, nil, fileHash, metadataHash)
	assert.Equal(t, fault.ErrMissingSigner, err, "nil signer")

	m := mocks.NewMockSigner(ctl)
	_, err = signature.WriteFile(5, recordPath, m, fileHash, metadataHash)
	assert.Equal(t, fault.ErrSignatureFileVersion, err, "version 5")

	m.EXPECT().Sign(gomock.Any()).Return(nil, fault.ErrInvalidKeyLength).Times(1)
	_, err = signature.WriteFile(6, recordPath, m, fileHash, metadataHash)
	assert.Equal(t, fault.ErrInvalidKeyLength, err, "sign error")

	_, err = os.Stat(recordPath + "_sig")
	assert.True(t, os.IsNotExist(err), "file written after failure")
}
