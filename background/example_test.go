// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package background_test

import (
	"fmt"
	"time"

	"github.com/epi-one/epiond/background"
)

func Example() {

	count := 10

	proc := func(argsIface interface{}, shutdown <-chan bool, done chan<- bool) {
		defer close(done)
		fmt.Printf("initialise\n")
	loop:
		for {
			select {
			case <-shutdown:
				break loop
			default:
			}
			count++
			time.Sleep(time.Millisecond)
		}
		fmt.Printf("finalise\n")
	}

	processes := background.Processes{
		{Name: "example", Process: proc},
	}

	p := background.Start(processes, nil)
	time.Sleep(time.Second)
	background.Stop(p)
}
