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
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/pflag"

	"github.com/loxone-go/miniserver/client"
	"github.com/loxone-go/miniserver/config"
)

// connectionFlags are the flags every subcommand that talks to a Miniserver
// shares: where to dial, the certificate to key-exchange against, and the
// credentials to authenticate with.
type connectionFlags struct {
	uri      string
	certFile string
	user     string
	password string
	token    string
}

func (f *connectionFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.uri, "uri", "", "Miniserver WebSocket URI (ws://host/ws or wss://host/ws)")
	fs.StringVar(&f.certFile, "cert-file", "", "path to the Miniserver's PEM certificate")
	fs.StringVar(&f.user, "user", "", "username, used with --password to mint a token")
	fs.StringVar(&f.password, "password", "", "password, used with --user to mint a token")
	fs.StringVar(&f.token, "token", "", "pre-issued JWT, used instead of --user/--password")
}

// applyConfigDefaults fills any flag left at its zero value from --config,
// when one was given, so a config file can supply the URI, certificate path
// and credentials (user, password or token). Flags explicitly set on the
// command line always win.
func applyConfigDefaults(f *connectionFlags) error {
	if configPath == "" {
		return nil
	}
	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return fmt.Errorf("loxctl: load config: %w", err)
	}
	config.SubstituteEnvVarsInConfig(cfg)

	if cfg.Connection != nil {
		if f.uri == "" {
			f.uri = cfg.Connection.URI
		}
		if f.certFile == "" {
			f.certFile = cfg.Connection.CertPath
		}
	}
	if cfg.Credentials != nil {
		if f.user == "" {
			f.user = cfg.Credentials.User
		}
		if f.password == "" {
			f.password = cfg.Credentials.Password
		}
		if f.token == "" {
			f.token = cfg.Credentials.Token
		}
	}
	return nil
}

// dial connects, performs the key exchange, and authenticates, returning a
// Client in StateAuthenticated. If flags.token is empty it first mints one
// via GetJWT using flags.user/flags.password.
func dial(ctx context.Context, flags connectionFlags) (*client.Client, error) {
	if flags.uri == "" {
		return nil, fmt.Errorf("loxctl: --uri is required")
	}
	if flags.certFile == "" {
		return nil, fmt.Errorf("loxctl: --cert-file is required")
	}
	certPEM, err := os.ReadFile(flags.certFile)
	if err != nil {
		return nil, fmt.Errorf("loxctl: read cert file: %w", err)
	}

	c, err := client.Connect(ctx, flags.uri, client.DefaultDialOptions())
	if err != nil {
		return nil, fmt.Errorf("loxctl: connect: %w", err)
	}

	if _, err := c.KeyExchange(string(certPEM)); err != nil {
		c.Close()
		return nil, fmt.Errorf("loxctl: key exchange: %w", err)
	}

	token := flags.token
	if token == "" {
		if flags.user == "" || flags.password == "" {
			c.Close()
			return nil, fmt.Errorf("loxctl: one of --token or --user/--password is required")
		}
		jwtReply, err := c.GetJWT(flags.user, flags.password, 2, uuid.NewString(), "loxctl")
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("loxctl: get jwt: %w", err)
		}
		t, ok := jwtReply["token"].(string)
		if !ok {
			c.Close()
			return nil, fmt.Errorf("loxctl: getjwt reply missing token")
		}
		token = t
	}

	if _, err := c.Authenticate(token); err != nil {
		c.Close()
		return nil, fmt.Errorf("loxctl: authenticate: %w", err)
	}
	return c, nil
}

// printJSON writes v to stdout as indented JSON, the uniform output shape
// every subcommand uses so results can be piped into jq.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
