// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// docgen turns docs/commands/<cmd>.md into a man page under
// docs/man/share/man1 and a tldr page under docs/tldr.
package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	md2man "github.com/cpuguy83/go-md2man/v2/md2man"
)

const (
	binary  = "holidayctl"
	homeURL = "https://github.com/staranto/holidayctl"
)

func main() {
	var (
		root          string
		onlyIfChanged bool
	)
	flag.StringVar(&root, "root", ".", "repo root")
	flag.BoolVar(&onlyIfChanged, "only-if-changed", true, "only write files if content changed")
	flag.Parse()

	if err := run(root, onlyIfChanged); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(root string, onlyIfChanged bool) error {
	commandsDir := filepath.Join(root, "docs", "commands")
	manDir := filepath.Join(root, "docs", "man", "share", "man1")
	tldrDir := filepath.Join(root, "docs", "tldr")

	for _, d := range []string{manDir, tldrDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", d, err)
		}
	}

	sources, err := filepath.Glob(filepath.Join(commandsDir, "*.md"))
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		return fmt.Errorf("no command markdown found under %s", commandsDir)
	}

	for _, src := range sources {
		raw, err := os.ReadFile(src)
		if err != nil {
			return fmt.Errorf("reading %s: %w", src, err)
		}
		doc := parseDoc(strings.TrimSuffix(filepath.Base(src), ".md"), string(raw))
		page := binary + "-" + doc.Command

		if err := writeFile(filepath.Join(manDir, page+".1"), md2man.Render(raw), onlyIfChanged); err != nil {
			return fmt.Errorf("writing man page for %s: %w", doc.Command, err)
		}
		if err := writeFile(filepath.Join(tldrDir, page+".md"), []byte(doc.TLDR()), onlyIfChanged); err != nil {
			return fmt.Errorf("writing tldr page for %s: %w", doc.Command, err)
		}
	}
	return nil
}

func writeFile(path string, data []byte, onlyIfChanged bool) error {
	if onlyIfChanged {
		old, err := os.ReadFile(path)
		switch {
		case err == nil && bytes.Equal(bytes.TrimSpace(old), bytes.TrimSpace(data)):
			return nil
		case err != nil && !errors.Is(err, fs.ErrNotExist):
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}

type example struct {
	Desc string
	Cmd  string
}

// commandDoc is what the tldr page needs from a command's markdown.
type commandDoc struct {
	Command  string
	Title    string
	Short    string
	Examples []example
}

var (
	h1Re      = regexp.MustCompile(`(?m)^#\s+(.+)$`)
	sectionRe = regexp.MustCompile(`(?mi)^##\s+(.+)$`)
	fenceRe   = regexp.MustCompile("(?s)```[a-z]*\n(.*?)```")
)

func parseDoc(cmd, md string) commandDoc {
	doc := commandDoc{Command: cmd}
	if m := h1Re.FindStringSubmatch(md); m != nil {
		doc.Title = strings.TrimSpace(m[1])
	}

	// The short description is the first paragraph of its section.
	for _, ln := range strings.Split(section(md, "short description"), "\n") {
		ln = strings.TrimSpace(ln)
		if ln == "" {
			if doc.Short != "" {
				break
			}
			continue
		}
		doc.Short = strings.TrimSpace(doc.Short + " " + ln)
	}
	if doc.Short == "" && doc.Title != "" {
		doc.Short = doc.Title + "."
	}

	// Quick examples are "# description" lines each followed by a command.
	if m := fenceRe.FindStringSubmatch(section(md, "quick examples")); m != nil {
		var desc string
		for _, ln := range strings.Split(m[1], "\n") {
			ln = strings.TrimSpace(ln)
			switch {
			case ln == "":
			case strings.HasPrefix(ln, "#"):
				desc = strings.TrimSpace(strings.TrimLeft(ln, "#"))
			default:
				if desc == "" {
					desc = "Example"
				}
				doc.Examples = append(doc.Examples, example{Desc: desc, Cmd: strings.Join(strings.Fields(ln), " ")})
				desc = ""
			}
		}
	}
	return doc
}

// section returns the body of the ## section named name, up to the next ##.
func section(md, name string) string {
	locs := sectionRe.FindAllStringSubmatchIndex(md, -1)
	for i, loc := range locs {
		if !strings.EqualFold(strings.TrimSpace(md[loc[2]:loc[3]]), name) {
			continue
		}
		end := len(md)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		return md[loc[1]:end]
	}
	return ""
}

// TLDR renders the page in tldr-pages format.
func (d commandDoc) TLDR() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s-%s\n\n", binary, d.Command)

	short := d.Short
	if short == "" {
		short = binary + " " + d.Command
	}
	fmt.Fprintf(&b, "> %s\n> More information: %s.\n\n", short, homeURL)

	exs := d.Examples
	if len(exs) == 0 {
		exs = []example{{Desc: "Show help for the command", Cmd: binary + " " + d.Command + " --help"}}
	}
	for i, ex := range exs {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "- %s:\n\n`%s`\n", ex.Desc, ex.Cmd)
	}
	return b.String()
}
