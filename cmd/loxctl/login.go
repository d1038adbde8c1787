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
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Key-exchange and authenticate, printing the resulting connection state",
	Long: `login runs the full connection bootstrap: key exchange against --cert-file,
then either authwithtoken with --token, or a getjwt round trip using
--user/--password when --token is omitted.`,
	RunE: runLogin,
}

var loginFlags connectionFlags

func init() {
	rootCmd.AddCommand(loginCmd)
	loginFlags.register(loginCmd.Flags())
}

func runLogin(cmd *cobra.Command, args []string) error {
	if err := applyConfigDefaults(&loginFlags); err != nil {
		return err
	}
	c, err := dial(context.Background(), loginFlags)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	defer c.Close()

	return printJSON(map[string]string{"state": c.State().String()})
}
