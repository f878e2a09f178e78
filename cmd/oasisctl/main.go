// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Command oasisctl is the operator tool for an Oasis of Knowledge database.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/olegiv/oasis/internal/cli"
	"github.com/olegiv/oasis/internal/config"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadCLI()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "oasisctl: %v\n", err)
		os.Exit(1)
	}
	if err := cli.Execute(cfg); err != nil {
		os.Exit(1)
	}
}
