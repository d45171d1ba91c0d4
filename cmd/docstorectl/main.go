/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Command docstorectl reads and writes raw documents of the configured store
// and publishes messages to the configured transport.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/tomoncle/docstore"
	"github.com/tomoncle/docstore/config"
	"github.com/tomoncle/docstore/utils"
)

type cli struct {
	configPath string
	vars       []string
	pretty     bool
	out        io.Writer
}

func main() {
	utils.ConfigureOutput(os.Stderr)
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	c := &cli{
		configPath: utils.EnvDefaultString("DOCSTORE_CONFIG", ""),
		out:        out,
	}
	root := &cobra.Command{
		Use:           "docstorectl",
		Short:         "Inspect and edit documents of a docstore",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(c.configPath)
			if err != nil {
				return err
			}
			return docstore.Init(cmd.Context(), cfg)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return docstore.Close()
		},
	}
	root.SetOut(out)
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", c.configPath, "YAML config file (env DOCSTORE_CONFIG)")
	root.PersistentFlags().StringArrayVar(&c.vars, "var", nil, "value for the next {} placeholder in the path, repeatable")
	root.PersistentFlags().BoolVar(&c.pretty, "pretty", false, "indent JSON output")

	root.AddCommand(
		c.putCmd(),
		c.getCmd(),
		c.listCmd(),
		c.deleteCmd(),
		c.publishCmd(),
	)
	return root
}
