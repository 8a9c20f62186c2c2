// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package command defines the holidayctl command set. It wires flags,
// validators, actions and shell completion for each subcommand.
package command
