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

	"github.com/spf13/cobra"

	"github.com/loxone-go/miniserver/wire"
)

var ioCmd = &cobra.Command{
	Use:   "io <control-uuid> <command>",
	Short: "Send jdev/sps/io/<control>/<command> to drive a control",
	Args:  cobra.ExactArgs(2),
	RunE:  runIO,
}

var ioFlags connectionFlags

func init() {
	rootCmd.AddCommand(ioCmd)
	ioFlags.register(ioCmd.Flags())
}

func runIO(cmd *cobra.Command, args []string) error {
	control, ioCommand := args[0], args[1]

	if err := applyConfigDefaults(&ioFlags); err != nil {
		return err
	}
	c, err := dial(context.Background(), ioFlags)
	if err != nil {
		return fmt.Errorf("io: %w", err)
	}
	defer c.Close()

	if err := c.SendIOCmd(wire.UUID(control), ioCommand); err != nil {
		return fmt.Errorf("io: %w", err)
	}
	return printJSON(map[string]string{"control": control, "command": ioCommand, "status": "ok"})
}
