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
	"time"

	"github.com/spf13/cobra"

	"github.com/loxone-go/miniserver/client"
	"github.com/loxone-go/miniserver/health"
)

var healthzCmd = &cobra.Command{
	Use:   "healthz",
	Short: "Log in, subscribe, and report the connection's health as JSON",
	Long: `healthz dials, authenticates, and enables the binary status
subscription, then runs the transport/session/subscription health checks
against that live connection and prints the result. It exits non-zero if the
overall status isn't healthy.`,
	RunE: runHealthz,
}

var (
	healthzFlags       connectionFlags
	healthzMaxEventAge time.Duration
)

func init() {
	rootCmd.AddCommand(healthzCmd)
	healthzFlags.register(healthzCmd.Flags())
	healthzCmd.Flags().DurationVar(&healthzMaxEventAge, "max-event-age", 60*time.Second,
		"maximum age of the last received event table before the subscription check reports unhealthy")
}

func runHealthz(cmd *cobra.Command, args []string) error {
	if err := applyConfigDefaults(&healthzFlags); err != nil {
		return err
	}
	c, err := dial(context.Background(), healthzFlags)
	if err != nil {
		return fmt.Errorf("healthz: %w", err)
	}
	defer c.Close()

	if _, err := c.EnableStatusUpdate(); err != nil {
		return fmt.Errorf("healthz: enable status update: %w", err)
	}

	checker := health.NewHealthChecker(5 * time.Second)
	checker.RegisterCheck("transport", health.TransportHealthCheck(func() bool {
		return c.State() >= client.StateConnected
	}))
	checker.RegisterCheck("session", health.SessionHealthCheck(func() bool {
		return c.State() >= client.StateKeyExchanged
	}))
	checker.RegisterCheck("subscription", health.SubscriptionHealthCheck(c.LastEventAge, healthzMaxEventAge))

	result := checker.GetSystemHealth(context.Background())
	if err := printJSON(result); err != nil {
		return err
	}
	if result.Status != health.StatusHealthy {
		return fmt.Errorf("healthz: overall status %s", result.Status)
	}
	return nil
}
