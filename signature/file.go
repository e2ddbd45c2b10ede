// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package signature

import (
	"io/ioutil"
	"os"

	"github.com/pkg/errors"

	"github.com/bitmark-inc/recordstreamd/fault"
	"github.com/bitmark-inc/recordstreamd/recordfile"
	"github.com/bitmark-inc/recordstreamd/recordformat"
	"github.com/bitmark-inc/recordstreamd/runninghash"
)

// CurrentVersion - signature file version written by default
const CurrentVersion = 6

// encoding of a signature file body for one version
type fileFormat interface {
	pack(s *recordformat.SignatureFile) []byte
	unpack(buffer []byte) (*recordformat.SignatureFile, error)
}

type v6File struct{}

func (v6File) pack(s *recordformat.SignatureFile) []byte {
	return s.Pack()
}

func (v6File) unpack(buffer []byte) (*recordformat.SignatureFile, error) {
	return recordformat.UnpackSignatureFile(buffer)
}

var fileFormats = map[byte]fileFormat{
	6: v6File{},
}

// WriteFile - sign the file and metadata hashes of a closed record
// file, writing the result beside it
//
// returns the signature file path
func WriteFile(version byte, recordPath string, signer Signer, fileHash runninghash.Digest, metadataHash runninghash.Digest) (string, error) {
	if nil == signer {
		return "", fault.ErrMissingSigner
	}
	format, ok := fileFormats[version]
	if !ok {
		return "", fault.ErrSignatureFileVersion
	}

	fileSignature, err := sign(signer, fileHash)
	if nil != err {
		return "", err
	}
	metadataSignature, err := sign(signer, metadataHash)
	if nil != err {
		return "", err
	}

	s := &recordformat.SignatureFile{
		File:     fileSignature,
		Metadata: metadataSignature,
	}

	// one version byte, unlike the four in record files
	buffer := append([]byte{version}, format.pack(s)...)

	path := recordfile.SignaturePath(recordPath)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if nil != err {
		return "", errors.Wrapf(err, "create: %q", path)
	}
	_, err = f.Write(buffer)
	if nil == err {
		err = f.Sync()
	}
	if e := f.Close(); nil == err {
		err = e
	}
	if nil != err {
		return "", errors.Wrapf(err, "write: %q", path)
	}
	return path, nil
}

func sign(signer Signer, hash runninghash.Digest) (recordformat.SignatureObject, error) {
	signature, err := signer.Sign(hash[:])
	if nil != err {
		return recordformat.SignatureObject{}, err
	}
	return recordformat.SignatureObject{
		Type:      signer.Type(),
		Signature: signature,
		Hash:      hash,
	}, nil
}

// ReadFile - decode a signature file
func ReadFile(path string) (*recordformat.SignatureFile, error) {
	buffer, err := ioutil.ReadFile(path)
	if nil != err {
		return nil, errors.Wrapf(err, "read: %q", path)
	}
	if 0 == len(buffer) {
		return nil, fault.ErrTruncatedRecord
	}
	format, ok := fileFormats[buffer[0]]
	if !ok {
		return nil, fault.ErrSignatureFileVersion
	}
	return format.unpack(buffer[1:])
}

// Verify - check both signatures against independently computed hashes
func Verify(s *recordformat.SignatureFile, fileHash runninghash.Digest, metadataHash runninghash.Digest, verifier Verifier) error {
	if s.File.Hash != fileHash {
		return fault.ErrFileHashMismatch
	}
	if s.Metadata.Hash != metadataHash {
		return fault.ErrMetadataHashMismatch
	}
	for _, o := range []recordformat.SignatureObject{s.File, s.Metadata} {
		if verifier.Type() != o.Type {
			return fault.ErrInvalidSignature
		}
		if err := verifier.Verify(o.Hash[:], o.Signature); nil != err {
			return err
		}
	}
	return nil
}
