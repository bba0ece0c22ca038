// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package node

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bitmark-inc/logger"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"github.com/bitmark-inc/assetflow/configuration"
	"github.com/bitmark-inc/assetflow/fault"
	"github.com/bitmark-inc/assetflow/util"
)

// basic defaults (directories and files are relative to the "DataDirectory" from Configuration file)
const (
	defaultDataDirectory = "" // this will error; use "." for the same directory as the config file

	defaultDatabaseDirectory = "data"

	defaultLogDirectory = "log"
	defaultLogFile      = "assetflow.log"
	defaultLogCount     = 10          //  number of log files retained
	defaultLogSize      = 1024 * 1024 // rotate when <logfile> exceeds this size

	defaultSessionTimeout = 30 // seconds
	defaultInboxSize      = 100
	defaultProposalRate   = 10.0
	defaultProposalBurst  = 20
)

// to hold log levels
type LoglevelMap map[string]string

// path expanded or calculated defaults
var (
	defaultLogLevels = LoglevelMap{
		logger.DefaultTag: "critical",
	}
)

// PartyType - a named identity; the seed is 32 bytes in hex
type PartyType struct {
	Name string `gluamapper:"name" json:"name"`
	Seed string `gluamapper:"seed" json:"-"`
}

// DatabaseType - where each party keeps its leveldb
//
// memory databases are lost on exit
type DatabaseType struct {
	Directory string `gluamapper:"directory" json:"directory"`
	Memory    bool   `gluamapper:"memory" json:"memory"`
}

// ProtocolType - signing protocol limits
type ProtocolType struct {
	SessionTimeout int     `gluamapper:"session_timeout" json:"session_timeout"` // seconds
	InboxSize      int     `gluamapper:"inbox_size" json:"inbox_size"`
	ProposalRate   float64 `gluamapper:"proposal_rate" json:"proposal_rate"` // per second, 0 = unlimited
	ProposalBurst  int     `gluamapper:"proposal_burst" json:"proposal_burst"`
}

// Configuration - a set of parties sharing one notary
type Configuration struct {
	DataDirectory string               `gluamapper:"data_directory" json:"data_directory"`
	Database      DatabaseType         `gluamapper:"database" json:"database"`
	Protocol      ProtocolType         `gluamapper:"protocol" json:"protocol"`
	Notary        PartyType            `gluamapper:"notary" json:"notary"`
	Parties       []PartyType          `gluamapper:"parties" json:"parties"`
	Logging       logger.Configuration `gluamapper:"logging" json:"logging"`
}

// GetConfiguration - read decode and verify the configuration
func GetConfiguration(configurationFileName string) (*Configuration, error) {

	configurationFileName, err := filepath.Abs(filepath.Clean(configurationFileName))
	if nil != err {
		return nil, err
	}

	// absolute path to the main directory
	dataDirectory, _ := filepath.Split(configurationFileName)

	options := &Configuration{

		DataDirectory: defaultDataDirectory,

		Database: DatabaseType{
			Directory: defaultDatabaseDirectory,
		},

		Protocol: ProtocolType{
			SessionTimeout: defaultSessionTimeout,
			InboxSize:      defaultInboxSize,
			ProposalRate:   defaultProposalRate,
			ProposalBurst:  defaultProposalBurst,
		},

		Logging: logger.Configuration{
			Directory: defaultLogDirectory,
			File:      defaultLogFile,
			Size:      defaultLogSize,
			Count:     defaultLogCount,
			Levels:    defaultLogLevels,
		},
	}

	if err := configuration.ParseConfigurationFile(configurationFileName, options); err != nil {
		return nil, err
	}

	if err := options.check(); nil != err {
		return nil, err
	}

	// ensure absolute data directory
	if "" == options.DataDirectory || "~" == options.DataDirectory {
		return nil, fmt.Errorf("Path: %q is not a valid directory", options.DataDirectory)
	} else if "." == options.DataDirectory {
		options.DataDirectory = dataDirectory // same directory as the configuration file
	}
	options.DataDirectory = filepath.Clean(options.DataDirectory)

	// this directory must exist - i.e. must be created prior to running
	if fileInfo, err := os.Stat(options.DataDirectory); nil != err {
		return nil, err
	} else if !fileInfo.IsDir() {
		return nil, fmt.Errorf("Path: %q is not a directory", options.DataDirectory)
	}

	// fail if any of these are not simple file names i.e. must
	// not contain path seperator
	mustNotBePaths := []*string{
		&options.Logging.File,
	}
	for _, f := range mustNotBePaths {
		switch filepath.Dir(*f) {
		case "", ".":
		default:
			return nil, fmt.Errorf("Files: %q is not plain name", *f)
		}
	}

	// make absolute and create directories if they do not already exist
	directories := []*string{
		&options.Logging.Directory,
	}
	if !options.Database.Memory {
		directories = append(directories, &options.Database.Directory)
	}
	for _, d := range directories {
		*d = util.EnsureAbsolute(options.DataDirectory, *d)
		if err := os.MkdirAll(*d, 0700); nil != err {
			return nil, err
		}
	}

	// done
	return options, nil
}

// check - values that cannot be defaulted
func (c *Configuration) check() error {
	if "" == c.Notary.Seed {
		return errors.Wrap(fault.ErrConfigurationFailed, "notary seed is required")
	}
	if 0 == len(c.Parties) {
		return errors.Wrap(fault.ErrConfigurationFailed, "at least one party is required")
	}

	names := make(map[string]struct{})
	names[c.Notary.Name] = struct{}{}
	for _, p := range c.Parties {
		if "" == p.Name || "" == p.Seed {
			return errors.Wrapf(fault.ErrConfigurationFailed, "party: %q needs a name and a seed", p.Name)
		}
		if _, ok := names[p.Name]; ok {
			return errors.Wrapf(fault.ErrConfigurationFailed, "duplicate name: %q", p.Name)
		}
		names[p.Name] = struct{}{}
	}

	if c.Protocol.SessionTimeout <= 0 {
		c.Protocol.SessionTimeout = defaultSessionTimeout
	}
	if c.Protocol.InboxSize <= 0 {
		c.Protocol.InboxSize = defaultInboxSize
	}
	if c.Protocol.ProposalRate < 0 {
		c.Protocol.ProposalRate = 0
	}
	if c.Protocol.ProposalBurst <= 0 {
		c.Protocol.ProposalBurst = defaultProposalBurst
	}
	return nil
}

// Settings - protocol settings for each node
func (c *Configuration) Settings() Settings {
	limit := rate.Inf
	if c.Protocol.ProposalRate > 0 {
		limit = rate.Limit(c.Protocol.ProposalRate)
	}
	return Settings{
		SessionTimeout: time.Duration(c.Protocol.SessionTimeout) * time.Second,
		InboxSize:      c.Protocol.InboxSize,
		ProposalRate:   limit,
		ProposalBurst:  c.Protocol.ProposalBurst,
	}
}
