// Copyright (c) 2014-2016 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package fault

import (
	"sync"
	"time"

	"github.com/bitmark-inc/logger"
)

var (
	logOnce sync.Once
	log     *logger.L
)

// Panic logs message to the PANIC channel, gives the logger a moment to
// flush, then panics. The channel is created lazily on first use since
// fault is imported by packages that run before logger.Initialise does.
func Panic(message string) {
	logOnce.Do(func() { log = logger.New("PANIC") })
	log.Criticalf("%s", message)
	log.Flush()
	time.Sleep(100 * time.Millisecond) // allow logging output to flush
	panic(message)
}
