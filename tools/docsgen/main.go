// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// docsgen writes a markdown page and a tldr page for every opsctl subcommand.
// Flags and usage come from the command tree; descriptions, examples and notes
// come from <docs>/templates/opsctl.yaml, keyed by "<group>-<subcommand>".
//
//	go run ./tools/docsgen docs
package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"text/template"
	"time"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/tfctl/opsctl/internal/command"
)

type Extras struct {
	Subcommands map[string]Extra `yaml:"subcommands"`
}

type Extra struct {
	Description string    `yaml:"description"`
	Examples    []Example `yaml:"examples"`
	Notes       []string  `yaml:"notes,omitempty"`
}

type Flag struct {
	ID          string
	Syntax      string
	Description string
	Default     string
	Env         string
}

type Example struct {
	Command     string `yaml:"command"`
	Description string `yaml:"description"`
}

type TemplateData struct {
	Extra
	ID      string
	Short   string
	Usage   string
	Flags   []Flag
	Date    string
	Version string
}

type Outputs struct {
	Template string
	Folder   string
	Prefix   string
	Suffix   string
}

const markdown = `# opsctl {{ .ID }}

{{ .Short }}

` + "```" + `
{{ .Usage }}
` + "```" + `
{{ with .Description }}
{{ . }}
{{ end }}
## Flags
{{ range .Flags }}
- ` + "`{{ .Syntax }}`" + ` {{ .Description }}{{ with .Default }} (default {{ . }}){{ end }}{{ with .Env }} [env {{ . }}]{{ end }}
{{- end }}
{{ if .Examples }}
## Examples
{{ range .Examples }}
{{ .Description }}

` + "```" + `
{{ .Command }}
` + "```" + `
{{ end }}{{ end }}{{ if .Notes }}
## Notes
{{ range .Notes }}
- {{ . }}
{{- end }}
{{ end }}
_opsctl {{ .Version }}, {{ .Date }}_
`

const tldr = `# opsctl {{ .ID }}

> {{ .Short }}
{{ range .Examples }}
- {{ .Description }}:

` + "`{{ .Command }}`" + `
{{ end }}`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: docsgen <docs dir>")
		os.Exit(1)
	}
	docs := os.Args[1]

	var extras Extras
	if data, err := os.ReadFile(filepath.Join(docs, "templates", "opsctl.yaml")); err == nil {
		if err := yaml.Unmarshal(data, &extras); err != nil {
			panic(err)
		}
	}

	app, err := command.InitApp(context.Background(), []string{"opsctl"})
	if err != nil {
		panic(err)
	}

	types := []Outputs{
		{Template: markdown, Folder: filepath.Join(docs, "commands"), Suffix: ".md"},
		{Template: tldr, Folder: filepath.Join(docs, "tldr"), Prefix: "opsctl-", Suffix: ".md"},
	}

	version := getVersion()
	for _, group := range app.Commands {
		for _, sub := range group.Commands {
			id := group.Name + "-" + sub.Name
			metadata := TemplateData{
				Extra:   extras.Subcommands[id],
				ID:      group.Name + " " + sub.Name,
				Short:   sub.Usage,
				Usage:   sub.UsageText,
				Flags:   flagsOf(group.Flags, sub.Flags),
				Date:    time.Now().Format("January 2, 2006"),
				Version: version,
			}

			for _, t := range types {
				if err := os.MkdirAll(t.Folder, 0o755); err != nil {
					panic(err)
				}

				path := filepath.Join(t.Folder, t.Prefix+id+t.Suffix)
				fmt.Println("Generating", path)
				if err := render(path, t.Template, metadata); err != nil {
					panic(err)
				}
			}
		}
	}
}

func render(path, text string, data TemplateData) error {
	tmpl, err := template.New(filepath.Base(path)).Parse(text)
	if err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return tmpl.Execute(file, data)
}

// flagsOf merges the group's flags, which every subcommand inherits, with the
// subcommand's own, sorted by name.
func flagsOf(sets ...[]cli.Flag) []Flag {
	var flags []Flag
	for _, set := range sets {
		for _, f := range set {
			names := f.Names()
			flag := Flag{ID: names[0]}

			syntax := make([]string, 0, len(names))
			for _, n := range names {
				if len(n) == 1 {
					syntax = append(syntax, "-"+n)
				} else {
					syntax = append(syntax, "--"+n)
				}
			}
			flag.Syntax = strings.Join(syntax, ", ")

			if doc, ok := f.(cli.DocGenerationFlag); ok {
				flag.Description = doc.GetUsage()
				if doc.TakesValue() {
					flag.Syntax += " <" + doc.TypeName() + ">"
					flag.Default = doc.GetDefaultText()
				}
				flag.Env = strings.Join(doc.GetEnvVars(), ", ")
			}
			flags = append(flags, flag)
		}
	}

	sort.Slice(flags, func(i, j int) bool {
		return flags[i].ID < flags[j].ID
	})
	return flags
}

// getVersion returns the version string from git tags, stripping the leading
// "v" prefix. Falls back to "dev" if git describe fails.
func getVersion() string {
	out, err := exec.Command("git", "describe", "--tags", "--abbrev=0").Output()
	if err != nil {
		return "dev"
	}

	version := strings.TrimSpace(string(out))
	return strings.TrimPrefix(version, "v")
}
