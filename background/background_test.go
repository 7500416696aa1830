// Copyright (c) 2014-2016 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package background_test

import (
	"testing"
	"time"

	"github.com/epi-one/epiond/background"
)

const (
	initialCount1 = 246
	finalCount1   = 987654321
	initialCount2 = 777
	finalCount2   = 897645312
)

func TestBackground(t *testing.T) {

	count1 := initialCount1
	count2 := initialCount2

	run := func(n int, count *int, finalValue int) background.Process {
		return func(argsIface interface{}, shutdown <-chan bool, done chan<- bool) {
			defer close(done)
			tt := argsIface.(*testing.T)
		loop:
			for {
				select {
				case <-shutdown:
					break loop
				default:
				}
				*count += 9
				tt.Logf("state[%d]: %d", n, *count)
				time.Sleep(time.Millisecond)
			}
			*count = finalValue
		}
	}

	processes := background.Processes{
		{Name: "proc1", Process: run(1, &count1, finalCount1)},
		{Name: "proc2", Process: run(2, &count2, finalCount2)},
	}

	p := background.Start(processes, t)
	time.Sleep(50 * time.Millisecond)
	background.Stop(p)

	if finalCount1 != count1 {
		t.Fatalf("stop failed: final value expected: %d  actual: %d", finalCount1, count1)
	}
	if finalCount2 != count2 {
		t.Fatalf("stop failed: final value expected: %d  actual: %d", finalCount2, count2)
	}
}
