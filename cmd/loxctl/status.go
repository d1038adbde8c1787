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
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/loxone-go/miniserver/wire"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Subscribe to live state updates and stream them as JSON objects",
	Long: `status logs in, enables binary status updates, prints the initial
snapshot, and then streams every further state change as an indented JSON
object per record until interrupted (Ctrl-C) or the connection drops.`,
	RunE: runStatus,
}

var statusFlags connectionFlags

func init() {
	rootCmd.AddCommand(statusCmd)
	statusFlags.register(statusCmd.Flags())
}

func runStatus(cmd *cobra.Command, args []string) error {
	if err := applyConfigDefaults(&statusFlags); err != nil {
		return err
	}
	c, err := dial(context.Background(), statusFlags)
	if err != nil {
		return fmt.Errorf("status: %w", err)
	}
	defer c.Close()

	snapshot, err := c.EnableStatusUpdate()
	if err != nil {
		return fmt.Errorf("status: enable status update: %w", err)
	}
	for uuid, state := range snapshot {
		if err := printStateRecord(uuid, state); err != nil {
			return err
		}
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)

	for {
		select {
		case us, ok := <-c.Events():
			if !ok {
				return fmt.Errorf("status: connection closed")
			}
			if err := printStateRecord(us.UUID, us.State); err != nil {
				return err
			}
		case <-sigs:
			return nil
		}
	}
}

func printStateRecord(uuid wire.UUID, state wire.StateValue) error {
	record := map[string]any{"uuid": string(uuid)}
	if v, ok := state.AsValue(); ok {
		record["value"] = v
	} else if text, icon, ok := state.AsText(); ok {
		record["text"] = text
		record["icon_uuid"] = string(icon)
	} else if entries, def, ok := state.AsDaytimer(); ok {
		record["daytimer"] = entries
		record["default"] = def
	} else if entries, lastUpdate, ok := state.AsWeather(); ok {
		record["forecast"] = entries
		record["last_update"] = lastUpdate
	}
	return printJSON(record)
}
