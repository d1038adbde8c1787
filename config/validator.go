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

package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
	Level   string // "error", "warning", "info"
}

// ValidateConfiguration validates the entire configuration.
func ValidateConfiguration(cfg *Config) []ValidationError {
	var errs []ValidationError

	if cfg.Connection != nil {
		errs = append(errs, validateConnectionConfig(cfg.Connection)...)
	}
	if cfg.Credentials != nil {
		errs = append(errs, validateCredentialsConfig(cfg.Credentials)...)
	}
	if cfg.Logging != nil {
		errs = append(errs, validateLoggingConfig(cfg.Logging)...)
	}
	errs = append(errs, validateEnvironment(cfg.Environment)...)

	return errs
}

func validateConnectionConfig(cfg *ConnectionConfig) []ValidationError {
	var errs []ValidationError

	if cfg.URI == "" {
		errs = append(errs, ValidationError{
			Field:   "Connection.URI",
			Message: "connection uri is required",
			Level:   "error",
		})
	} else if _, err := url.Parse(cfg.URI); err != nil {
		errs = append(errs, ValidationError{
			Field:   "Connection.URI",
			Message: fmt.Sprintf("invalid connection uri: %v", err),
			Level:   "error",
		})
	}

	if cfg.DialTimeout < 0 || cfg.ReadTimeout < 0 || cfg.WriteTimeout < 0 {
		errs = append(errs, ValidationError{
			Field:   "Connection.Timeouts",
			Message: "timeouts cannot be negative",
			Level:   "error",
		})
	}

	if cfg.CertPath != "" {
		if _, err := os.Stat(cfg.CertPath); err != nil {
			errs = append(errs, ValidationError{
				Field:   "Connection.CertPath",
				Message: fmt.Sprintf("cert file not readable: %v", err),
				Level:   "warning",
			})
		}
	}

	return errs
}

func validateCredentialsConfig(cfg *CredentialsConfig) []ValidationError {
	var errs []ValidationError

	hasUserPass := cfg.User != "" && cfg.Password != ""
	hasToken := cfg.Token != ""

	if !hasUserPass && !hasToken {
		errs = append(errs, ValidationError{
			Field:   "Credentials",
			Message: "either user/password or a pre-provisioned token is required",
			Level:   "error",
		})
	}

	return errs
}

func validateLoggingConfig(cfg *LoggingConfig) []ValidationError {
	var errs []ValidationError

	validLevels := []string{"debug", "info", "warn", "error"}
	level := strings.ToLower(cfg.Level)
	if level != "" && !contains(validLevels, level) {
		errs = append(errs, ValidationError{
			Field:   "Logging.Level",
			Message: fmt.Sprintf("invalid log level: %s (valid: %v)", cfg.Level, validLevels),
			Level:   "error",
		})
	}

	validFormats := []string{"json", "text"}
	format := strings.ToLower(cfg.Format)
	if format != "" && !contains(validFormats, format) {
		errs = append(errs, ValidationError{
			Field:   "Logging.Format",
			Message: fmt.Sprintf("invalid log format: %s (valid: %v)", cfg.Format, validFormats),
			Level:   "error",
		})
	}

	return errs
}

func validateEnvironment(env string) []ValidationError {
	var errs []ValidationError

	validEnvs := []string{"local", "development", "staging", "production"}
	env = strings.ToLower(env)

	if !contains(validEnvs, env) {
		errs = append(errs, ValidationError{
			Field:   "Environment",
			Message: fmt.Sprintf("invalid environment: %s (valid: %v)", env, validEnvs),
			Level:   "error",
		})
	}

	if env == "production" {
		errs = append(errs, ValidationError{
			Field:   "Environment",
			Message: "running in production mode - ensure credentials are sourced from the environment, not a committed file",
			Level:   "info",
		})
	}

	return errs
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// ValidateFile validates a configuration file.
func ValidateFile(path string) ([]ValidationError, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", path)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return ValidateConfiguration(cfg), nil
}

// PrintValidationErrors prints validation errors grouped by severity.
func PrintValidationErrors(errs []ValidationError) {
	if len(errs) == 0 {
		fmt.Println("configuration is valid")
		return
	}

	var errorCount, warningCount, infoCount int
	for _, e := range errs {
		switch e.Level {
		case "error":
			errorCount++
		case "warning":
			warningCount++
		case "info":
			infoCount++
		}
	}

	fmt.Printf("configuration validation found %d errors, %d warnings, %d info messages\n\n",
		errorCount, warningCount, infoCount)

	for _, e := range errs {
		if e.Level == "error" {
			fmt.Printf("ERROR: %s - %s\n", e.Field, e.Message)
		}
	}
	for _, e := range errs {
		if e.Level == "warning" {
			fmt.Printf("WARNING: %s - %s\n", e.Field, e.Message)
		}
	}
	for _, e := range errs {
		if e.Level == "info" {
			fmt.Printf("INFO: %s - %s\n", e.Field, e.Message)
		}
	}
}
