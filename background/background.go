// Copyright (c) 2014-2016 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package background starts and stops the peer manager's four named
// threads (spec.md §4.4: HandleMessage, OpenConnection, ScheduleTask,
// InitialSync) as plain goroutines, logging each one's name as it exits
// so a stuck or panicking thread can be told apart from the others.
package background

import "github.com/bitmark-inc/logger"

// Process is a long-running thread body. It must return once shutdown is
// closed and signal done exactly once before returning.
type Process func(args interface{}, shutdown <-chan bool, done chan<- bool)

// Named pairs a Process with the name it runs under.
type Named struct {
	Name    string
	Process Process
}

// Processes is the roster of named threads passed to Start.
type Processes []Named

// handle tracks one running thread's shutdown/finished channels and name.
type handle struct {
	name     string
	shutdown chan bool
	finished chan bool
}

// T is the running-thread registry returned by Start.
type T struct {
	log *logger.L
	h   []handle
}

// Start launches every process in Processes as its own goroutine and
// returns a handle that Stop uses to shut them all down.
func Start(processes Processes, args interface{}) *T {
	t := &T{
		log: logger.New("background"),
		h:   make([]handle, len(processes)),
	}

	for i, n := range processes {
		shutdown := make(chan bool)
		finished := make(chan bool)
		t.h[i] = handle{name: n.Name, shutdown: shutdown, finished: finished}

		go func(n Named, shutdown chan bool, finished chan bool) {
			n.Process(args, shutdown, finished)
			t.log.Debugf("%s: stopped", n.Name)
		}(n, shutdown, finished)
	}
	return t
}

// Stop signals every thread to shut down and waits for each to finish,
// logging the name of each one as it confirms.
func Stop(t *T) {
	for _, h := range t.h {
		close(h.shutdown)
	}
	for _, h := range t.h {
		<-h.finished
		t.log.Debugf("%s: finished", h.name)
	}
}
