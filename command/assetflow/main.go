// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/bitmark-inc/exitwithstatus"
	"github.com/bitmark-inc/logger"
	"github.com/urfave/cli"

	"github.com/bitmark-inc/assetflow/node"
)

type metadata struct {
	file    string
	config  *node.Configuration
	sandbox *node.Sandbox
	verbose bool
	e       io.Writer
	w       io.Writer
}

// set by the linker: go build -ldflags "-X main.version=M.N" ./...
var version = "zero" // do not change this value

func main() {

	// ensure exit handler is first
	defer exitwithstatus.Handler()

	app := cli.NewApp()
	app.Name = "assetflow"
	app.Usage = "originate, transfer and retire assets between configured parties"
	app.Version = version
	app.HideVersion = true

	app.Writer = os.Stdout
	app.ErrWriter = os.Stderr

	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "verbose, v",
			Usage: " verbose result",
		},
		cli.StringFlag{
			Name:   "config-file, c",
			Value:  "assetflow.conf",
			Usage:  " configuration `FILE`",
			EnvVar: "ASSETFLOW_CONFIG",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:      "generate",
			Usage:     "generate a party seed, will not store in config file",
			ArgsUsage: "\n   (* = required)",
			Flags:     []cli.Flag{},
			Action:    runGenerate,
		},
		{
			Name:   "parties",
			Usage:  "list the configured parties and their accounts",
			Action: runParties,
		},
		{
			Name:      "originate",
			Usage:     "create a new asset held by a party",
			ArgsUsage: "\n   (* = required)",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "owner, o",
					Value: "",
					Usage: "*party `NAME` that will own the asset",
				},
				cli.StringFlag{
					Name:  "counterparty, p",
					Value: "",
					Usage: "*party `NAME` with an interest in the asset",
				},
				cli.StringFlag{
					Name:  "identifier, i",
					Value: "",
					Usage: "*asset identifier `STRING`",
				},
				cli.StringFlag{
					Name:  "location, l",
					Value: "",
					Usage: " asset location `STRING`",
				},
				cli.Int64Flag{
					Name:  "magnitude, m",
					Value: 1,
					Usage: " quantity of the asset `COUNT`",
				},
				cli.Int64Flag{
					Name:  "value, V",
					Value: 0,
					Usage: " price of the asset `NUMBER`",
				},
				cli.StringSliceFlag{
					Name:  "attribute, a",
					Usage: " extra attribute `KEY=VALUE` (repeatable)",
				},
			},
			Action: runOriginate,
		},
		{
			Name:      "transfer",
			Usage:     "transfer a live asset to another party",
			ArgsUsage: "\n   (* = required)",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "owner, o",
					Value: "",
					Usage: "*party `NAME` currently holding the asset",
				},
				cli.StringFlag{
					Name:  "ref, r",
					Value: "",
					Usage: "*state reference to transfer `TXID:INDEX`",
				},
				cli.StringFlag{
					Name:  "receiver, R",
					Value: "",
					Usage: "*party `NAME` to receive the asset",
				},
			},
			Action: runTransfer,
		},
		{
			Name:      "retire",
			Usage:     "retire a live asset",
			ArgsUsage: "\n   (* = required)",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "owner, o",
					Value: "",
					Usage: "*party `NAME` currently holding the asset",
				},
				cli.StringFlag{
					Name:  "ref, r",
					Value: "",
					Usage: "*state reference to retire `TXID:INDEX`",
				},
			},
			Action: runRetire,
		},
		{
			Name:      "states",
			Usage:     "list live states in a party's vault",
			ArgsUsage: "\n   (* = required)",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "party, p",
					Value: "",
					Usage: "*party `NAME`",
				},
			},
			Action: runStates,
		},
		{
			Name:      "transactions",
			Usage:     "list transactions recorded by a party",
			ArgsUsage: "\n   (* = required)",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "party, p",
					Value: "",
					Usage: "*party `NAME`",
				},
				cli.StringFlag{
					Name:  "txid, t",
					Value: "",
					Usage: " show one transaction in full `TXID`",
				},
			},
			Action: runTransactions,
		},
		{
			Name:  "version",
			Usage: "display assetflow version",
			Action: func(c *cli.Context) error {
				fmt.Fprintf(c.App.Writer, "%s\n", version)
				return nil
			},
		},
	}

	// read the configuration and open the parties
	app.Before = func(c *cli.Context) error {

		e := c.App.ErrWriter
		w := c.App.Writer
		verbose := c.GlobalBool("verbose")

		// to suppress reading config file if certain commands
		command := c.Args().Get(0)
		switch command {
		case "", "help", "h", "version", "generate":
			return nil
		}

		file := c.GlobalString("config-file")
		if verbose {
			fmt.Fprintf(e, "reading config file: %s\n", file)
		}

		configuration, err := node.GetConfiguration(file)
		if nil != err {
			return err
		}

		if err := logger.Initialise(configuration.Logging); nil != err {
			return err
		}

		sandbox, err := node.NewSandbox(configuration)
		if nil != err {
			logger.Finalise()
			return err
		}

		c.App.Metadata["config"] = &metadata{
			file:    file,
			config:  configuration,
			sandbox: sandbox,
			verbose: verbose,
			e:       e,
			w:       w,
		}

		return nil
	}

	// shut the parties down in order
	app.After = func(c *cli.Context) error {
		m, ok := c.App.Metadata["config"].(*metadata)
		if !ok {
			return nil
		}
		if m.verbose {
			fmt.Fprintf(m.e, "stopping parties\n")
		}
		m.sandbox.Stop()
		logger.Finalise()
		return nil
	}

	err := app.Run(os.Args)
	if nil != err {
		exitwithstatus.Message("terminated with error: %s\n", err)
	}
}
