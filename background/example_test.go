// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package background_test

import (
	"fmt"

	"github.com/bitmark-inc/recordstreamd/background"
)

type closer struct {
	closed chan<- string
}

func (c *closer) Run(args interface{}, shutdown <-chan struct{}) {
	<-shutdown
	c.closed <- args.(string)
}

func Example() {
	closed := make(chan string, 1)

	p := background.Start(background.Processes{&closer{closed: closed}}, "record file")
	p.Stop()

	fmt.Printf("closed: %s\n", <-closed)
	// Output: closed: record file
}
