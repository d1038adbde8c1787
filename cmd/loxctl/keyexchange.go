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
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/loxone-go/miniserver/client"
	"github.com/loxone-go/miniserver/internal/logger"
)

var keyExchangeCmd = &cobra.Command{
	Use:   "keyexchange",
	Short: "Perform jdev/sys/keyexchange and print the server's echoed key",
	RunE:  runKeyExchange,
}

var keyExchangeFlags connectionFlags

func init() {
	rootCmd.AddCommand(keyExchangeCmd)
	keyExchangeCmd.Flags().StringVar(&keyExchangeFlags.uri, "uri", "", "Miniserver WebSocket URI")
	keyExchangeCmd.Flags().StringVar(&keyExchangeFlags.certFile, "cert-file", "", "path to the Miniserver's PEM certificate")
}

func runKeyExchange(cmd *cobra.Command, args []string) error {
	if err := applyConfigDefaults(&keyExchangeFlags); err != nil {
		return err
	}
	if keyExchangeFlags.uri == "" || keyExchangeFlags.certFile == "" {
		return fmt.Errorf("keyexchange: --uri and --cert-file are required")
	}

	ctx := context.Background()
	log := newLogger()

	certPEM, err := os.ReadFile(keyExchangeFlags.certFile)
	if err != nil {
		return fmt.Errorf("read cert file: %w", err)
	}

	c, err := client.Connect(ctx, keyExchangeFlags.uri, client.DefaultDialOptions())
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer c.Close()

	remoteKey, err := c.KeyExchange(string(certPEM))
	if err != nil {
		return fmt.Errorf("key exchange: %w", err)
	}

	log.Info("key exchange complete", logger.String("state", c.State().String()))
	return printJSON(map[string]string{
		"state":      c.State().String(),
		"remote_key": hex.EncodeToString(remoteKey),
	})
}
