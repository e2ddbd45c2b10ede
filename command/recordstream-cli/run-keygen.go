// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"

	"github.com/urfave/cli"

	"github.com/bitmark-inc/recordstreamd/signature"
)

func runKeygen(c *cli.Context) error {

	m := c.App.Metadata["config"].(*metadata)

	publicKeyFile := c.String("public")
	privateKeyFile := c.String("private")

	if err := signature.MakeKeyPair(publicKeyFile, privateKeyFile); nil != err {
		return err
	}

	fmt.Fprintf(m.w, "generated private key: %q and public key: %q\n", privateKeyFile, publicKeyFile)
	return nil
}
