// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config_cmd.go - Configuration commands for the querychat CLI.
//
// Command: config
// Short:   Show configuration, print file locations, write defaults
//
// Examples:
//   querychat config show
//   querychat config path
//   querychat config init
package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/jeranaias/querychat-tui/internal/config"
)

// HandleConfigCommand dispatches config subcommands.
func HandleConfigCommand(args Args) error {
	switch args.Subcommand {
	case "", "show":
		return configShow(args)
	case "path", "paths":
		return configPath()
	case "init":
		return configInit()
	default:
		return fmt.Errorf("unknown config subcommand: %s (try show, path, init)", args.Subcommand)
	}
}

// configShow prints the effective configuration after env overrides.
func configShow(args Args) error {
	cfg, err := LoadConfig(args)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	if args.JSON {
		fmt.Println(string(out))
		return nil
	}

	fmt.Println()
	fmt.Println(summaryHeaderStyle.Render("Effective Configuration"))
	fmt.Println(infoStyle.Render(strings.Repeat("─", 25)))
	fmt.Println()
	fmt.Println(string(out))
	fmt.Println()
	fmt.Println(infoStyle.Render("Env overrides: QUERYCHAT_API_URL, QUERYCHAT_DATA_DIR, QUERYCHAT_THEME, QUERYCHAT_COMPACT"))
	return nil
}

// configPath prints the config file locations and which ones exist.
func configPath() error {
	tomlPath, err := config.ConfigPathTOML()
	if err != nil {
		return err
	}
	jsonPath, err := config.ConfigPathJSON()
	if err != nil {
		return err
	}

	printPath := func(label, path string) {
		marker := infoStyle.Render("(missing)")
		if _, err := os.Stat(path); err == nil {
			marker = commandStyle.Render("(exists)")
		}
		fmt.Printf("  %s %s %s\n", infoStyle.Render(label), path, marker)
	}

	fmt.Println()
	printPath("TOML:", tomlPath)
	printPath("JSON:", jsonPath)
	fmt.Println()
	fmt.Println(infoStyle.Render("TOML is preferred when both exist."))
	return nil
}

// configInit writes a default TOML config, refusing to overwrite.
func configInit() error {
	path, err := config.ConfigPathTOML()
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config already exists at %s", path)
	}

	if err := config.SaveTOML(config.Default(), path); err != nil {
		return err
	}

	fmt.Printf("%s Wrote default config to %s\n",
		commandStyle.Render("[OK]"),
		path)
	return nil
}
