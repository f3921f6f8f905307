// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss/v2"
	"golang.org/x/term"
)

// ErrAborted is returned when the user cancels a prompt.
var ErrAborted = errors.New("prompt aborted")

// Field is one value to ask for. Fields that already have a Value are not
// asked.
type Field struct {
	Label       string
	Placeholder string
	Value       string
}

// Ask fills in every empty field. When in is a terminal the fields are asked
// interactively; otherwise one line is read per field.
func Ask(ctx context.Context, in io.Reader, out io.Writer, fields []Field) ([]Field, error) {
	var pending []int
	for i, f := range fields {
		if strings.TrimSpace(f.Value) == "" {
			pending = append(pending, i)
		}
	}
	if len(pending) == 0 {
		return fields, nil
	}

	ask := make([]Field, len(pending))
	for i, idx := range pending {
		ask[i] = fields[idx]
	}

	var answers []string
	var err error
	if isTerminal(in) {
		answers, err = askInteractive(ctx, in, out, ask)
	} else {
		answers, err = askLines(in, out, ask)
	}
	if err != nil {
		return nil, err
	}

	result := append([]Field(nil), fields...)
	for i, idx := range pending {
		result[idx].Value = answers[i]
	}
	return result, nil
}

func isTerminal(in io.Reader) bool {
	f, ok := in.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// askLines reads one non-empty line per field.
func askLines(in io.Reader, out io.Writer, fields []Field) ([]string, error) {
	sc := bufio.NewScanner(in)
	answers := make([]string, 0, len(fields))
	for _, f := range fields {
		fmt.Fprintf(out, "%s: ", f.Label)
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return nil, fmt.Errorf("read %s: %w", f.Label, err)
			}
			return nil, fmt.Errorf("read %s: %w", f.Label, io.ErrUnexpectedEOF)
		}
		v := strings.TrimSpace(sc.Text())
		if v == "" {
			return nil, fmt.Errorf("%s is required", f.Label)
		}
		answers = append(answers, v)
	}
	return answers, nil
}

func askInteractive(ctx context.Context, in io.Reader, out io.Writer, fields []Field) ([]string, error) {
	p := tea.NewProgram(newModel(fields), tea.WithContext(ctx), tea.WithInput(in), tea.WithOutput(out))
	final, err := p.Run()
	if err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("prompt: %w", err)
	}
	m := final.(model)
	if m.aborted {
		return nil, ErrAborted
	}
	return m.answers, nil
}

var labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF9900"))

// model asks each field in turn on a single input line.
type model struct {
	fields  []Field
	input   textinput.Model
	answers []string
	errMsg  string
	aborted bool
}

func newModel(fields []Field) model {
	ti := textinput.New()
	ti.Focus()
	ti.CharLimit = 255
	ti.Prompt = "> "
	ti.Cursor.SetMode(cursor.CursorBlink)
	ti.Placeholder = fields[0].Placeholder
	return model{fields: fields, input: ti}
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) done() bool {
	return len(m.answers) == len(m.fields)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "enter":
			v := strings.TrimSpace(m.input.Value())
			if v == "" {
				m.errMsg = m.fields[len(m.answers)].Label + " is required"
				return m, nil
			}
			m.errMsg = ""
			m.answers = append(m.answers, v)
			if m.done() {
				return m, tea.Quit
			}
			m.input.SetValue("")
			m.input.Placeholder = m.fields[len(m.answers)].Placeholder
			return m, nil

		case "ctrl+c", "esc":
			m.aborted = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m model) View() string {
	if m.done() || m.aborted {
		return ""
	}
	var b strings.Builder
	for i, a := range m.answers {
		fmt.Fprintf(&b, "%s: %s\n", m.fields[i].Label, a)
	}
	b.WriteString(labelStyle.Render(m.fields[len(m.answers)].Label))
	b.WriteString("\n")
	b.WriteString(m.input.View())
	if m.errMsg != "" {
		b.WriteString("\n" + m.errMsg)
	}
	return b.String()
}
