// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/staranto/holidayctl/internal/attrs"
	"github.com/staranto/holidayctl/internal/meta"
	"github.com/staranto/holidayctl/internal/output"
)

// ShortCircuitTLDR checks the --tldr flag and, if present and available,
// runs `tldr holidayctl-<subcmd>` and returns true so the caller can exit
// early.
func ShortCircuitTLDR(ctx context.Context, cmd *cli.Command, subcmd string) bool {
	if !cmd.Bool("tldr") {
		return false
	}
	if _, err := exec.LookPath("tldr"); err == nil {
		c := exec.CommandContext(ctx, "tldr", "holidayctl-"+subcmd)
		c.Stdout = writer(cmd)
		c.Stderr = os.Stderr
		_ = c.Run()
	}
	return true
}

// BuildAttrs starts from defaults, layers --attrs on top and then applies
// the global transform spec.
func BuildAttrs(cmd *cli.Command, defaults ...string) (attrs.AttrList, error) {
	var al attrs.AttrList
	for _, d := range defaults {
		if err := al.Set(d); err != nil {
			return nil, err
		}
	}
	if extras := cmd.String("attrs"); extras != "" {
		if err := al.Set(extras); err != nil {
			return nil, fmt.Errorf("--attrs: %w", err)
		}
	}
	al.SetGlobalTransformSpec()
	return al, nil
}

// Emit renders rows per the output flags.
func Emit(rows any, al attrs.AttrList, cmd *cli.Command) error {
	raw, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	return output.SliceDiceSpit(raw, al, output.OptionsFromCommand(cmd), writer(cmd))
}

// GetMeta finds the Meta stored on cmd or any of its parents.
func GetMeta(cmd *cli.Command) *meta.Meta {
	if cmd == nil {
		return nil
	}
	for _, c := range cmd.Lineage() {
		if m, ok := c.Metadata["meta"].(*meta.Meta); ok {
			return m
		}
	}
	return nil
}

func writer(cmd *cli.Command) io.Writer {
	if root := cmd.Root(); root != nil && root.Writer != nil {
		return root.Writer
	}
	return os.Stdout
}

// ListCommandBuilder builds the listing subcommands (countries, holidays,
// cache ls) with the tldr and global output flags attached.
type ListCommandBuilder struct {
	Name      string
	// Namespace prefixes config keys for the output flags. Defaults to Name.
	Namespace string
	Usage     string
	UsageText string
	ArgsUsage string
	Flags     []cli.Flag
	Action    func(context.Context, *cli.Command) error
	Meta      *meta.Meta
}

// Build returns a configured cli.Command from the builder.
func (b *ListCommandBuilder) Build() *cli.Command {
	ns := b.Namespace
	if ns == "" {
		ns = b.Name
	}
	return &cli.Command{
		Name:      b.Name,
		Usage:     b.Usage,
		UsageText: b.UsageText,
		ArgsUsage: b.ArgsUsage,
		Metadata: map[string]any{
			"meta": b.Meta,
		},
		Flags:  append(b.Flags, append([]cli.Flag{tldrFlag}, NewGlobalFlags(ns)...)...),
		Action: b.Action,
	}
}

// ListActionRunner is the common shape of a listing action: tldr short
// circuit, attrs, fetch, emit.
type ListActionRunner[T any] struct {
	CommandName  string
	DefaultAttrs []string
	FetchFn      func(context.Context, *cli.Command, *meta.Meta) ([]T, error)
}

// Run executes the listing with the provided context and command.
func (r *ListActionRunner[T]) Run(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	if m == nil {
		return fmt.Errorf("%s: command is not wired to a session", r.CommandName)
	}
	log.Debugf("Executing action for %v", cmd.Args().Slice())

	if ShortCircuitTLDR(ctx, cmd, r.CommandName) {
		return nil
	}

	al, err := BuildAttrs(cmd, r.DefaultAttrs...)
	if err != nil {
		return err
	}
	log.Debugf("attrs: %v", al.String())

	rows, err := r.FetchFn(ctx, cmd, m)
	if err != nil {
		return err
	}

	return Emit(rows, al, cmd)
}
