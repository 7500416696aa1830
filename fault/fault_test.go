// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package fault_test

import (
	"testing"

	"github.com/epi-one/epiond/fault"
)

var (
	ErrConfigOne    = fault.ConfigError("config one")
	ErrConfigTwo    = fault.ConfigError("config two")
	ErrTransportOne = fault.TransportError("transport one")
	ErrProtocolOne  = fault.ProtocolError("protocol one")
	ErrInvariantOne = fault.InvariantError("invariant one")
)

// test that the error classes can be distinguished without string matches
func TestClassification(t *testing.T) {
	errorList := []struct {
		err       error
		config    bool
		transport bool
		protocol  bool
		invariant bool
	}{
		{ErrConfigOne, true, false, false, false},
		{ErrConfigTwo, true, false, false, false},
		{ErrTransportOne, false, true, false, false},
		{ErrProtocolOne, false, false, true, false},
		{ErrInvariantOne, false, false, false, true},
	}

	for i, e := range errorList {
		err := e.err
		if fault.IsConfig(err) != e.config {
			t.Errorf("%d: expected config == %v for err = %v", i, e.config, err)
		}
		if fault.IsTransport(err) != e.transport {
			t.Errorf("%d: expected transport == %v for err = %v", i, e.transport, err)
		}
		if fault.IsProtocol(err) != e.protocol {
			t.Errorf("%d: expected protocol == %v for err = %v", i, e.protocol, err)
		}
		if fault.IsInvariant(err) != e.invariant {
			t.Errorf("%d: expected invariant == %v for err = %v", i, e.invariant, err)
		}
	}
}
