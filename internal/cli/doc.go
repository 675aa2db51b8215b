// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the studymate command line.
//
// Commands are declared as go-flags structs in options.go. Running the
// binary without a command starts the full-screen chat.
//
// # Commands
//
//	studymate                          full-screen chat (same as "tui")
//	studymate chat                     line-mode chat with history
//	studymate ask "question" [--pdf f] one question, answer on stdout
//	studymate resource info <id>       show an uploaded document
//	studymate resource delete <id>     remove an uploaded document
//	studymate config show|get|set|path inspect or change settings
//
// # Global Flags
//
//	-c, --config PATH    config file (TOML or YAML)
//	-m, --model NAME     Mistral model (overrides config)
//	    --api-url URL    document service URL (overrides config)
//	    --log-file PATH  log file (overrides config)
//	-d, --debug          debug logging
//	-v, --version        print version and exit
package cli
