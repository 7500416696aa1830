// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package config loads the small, explicit settings struct the node
// needs at startup. Grounded on the teacher's own configuration-file
// idiom (command/bitmarkd/configuration.go reads one file into one
// struct before anything else initialises) but reads via
// github.com/spf13/viper instead of the teacher's libucl, following the
// viper usage pattern seen elsewhere in the retrieval pack.
package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/epi-one/epiond/fault"
)

// Configuration is the complete set of startup settings this core reads.
// CLI/RPC surfaces are a non-goal, so this stays deliberately small.
type Configuration struct {
	Chain   string   `mapstructure:"chain"`
	Listen  []string `mapstructure:"listen"`
	Connect []string `mapstructure:"connect"`
	Seeds   []string `mapstructure:"seeds"`
	DBPath  string   `mapstructure:"dbpath"`
}

// defaults applied when the configuration file omits a field.
var defaults = map[string]interface{}{
	"chain":   "unittest",
	"dbpath":  "epiond.leveldb",
	"listen":  []string{},
	"connect": []string{},
	"seeds":   []string{},
}

// Load reads and validates the configuration file at path.
func Load(path string) (*Configuration, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fault.ConfigError(fmt.Sprintf("read configuration %q: %s", path, err))
	}

	var c Configuration
	if err := v.Unmarshal(&c); err != nil {
		return nil, fault.ConfigError(fmt.Sprintf("parse configuration %q: %s", path, err))
	}

	if c.Chain == "" {
		return nil, fault.ConfigError("configuration: chain must not be blank")
	}
	if c.DBPath == "" {
		return nil, fault.ConfigError("configuration: dbpath must not be blank")
	}

	return &c, nil
}
