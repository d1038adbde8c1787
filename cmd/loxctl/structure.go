// Copyright (C) 2025 loxone-go
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var structureCmd = &cobra.Command{
	Use:   "structure",
	Short: "Fetch the structure file timestamp, and optionally the file itself",
	RunE:  runStructure,
}

var (
	structureFlags     connectionFlags
	structureOutput    string
	structureFullFetch bool
)

func init() {
	rootCmd.AddCommand(structureCmd)
	structureFlags.register(structureCmd.Flags())
	structureCmd.Flags().StringVarP(&structureOutput, "output", "o", "", "with --fetch, write the structure file here instead of printing it")
	structureCmd.Flags().BoolVar(&structureFullFetch, "fetch", false, "fetch data/LoxAPP3.json instead of just its timestamp")
}

func runStructure(cmd *cobra.Command, args []string) error {
	if err := applyConfigDefaults(&structureFlags); err != nil {
		return err
	}
	c, err := dial(context.Background(), structureFlags)
	if err != nil {
		return fmt.Errorf("structure: %w", err)
	}
	defer c.Close()

	if !structureFullFetch {
		ts, err := c.GetLoxAPP3Timestamp()
		if err != nil {
			return fmt.Errorf("structure: timestamp: %w", err)
		}
		return printJSON(map[string]string{"last_modified": ts})
	}

	body, err := c.GetLoxAPP3()
	if err != nil {
		return fmt.Errorf("structure: fetch: %w", err)
	}
	if structureOutput == "" {
		fmt.Println(string(body))
		return nil
	}
	return os.WriteFile(structureOutput, body, 0o644)
}
