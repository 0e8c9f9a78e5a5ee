package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	jsoniter "github.com/json-iterator/go"

	"github.com/wippyai/wavedash/config"
	"github.com/wippyai/wavedash/scheduler"
)

const logTail = 12

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#87CEEB"))

	keyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type inspectorModel struct {
	cfg     *config.Config
	host    *host
	report  *scheduler.Report
	failed  map[string]error
	logs    []string
	auto    bool
	editing bool
	input   textinput.Model
	status  string
}

type autoTickMsg struct{}

func newInspectorModel(cfg *config.Config) *inspectorModel {
	ti := textinput.New()
	ti.Placeholder = "Counter=100"
	ti.Prompt = "set "
	ti.Width = 40
	return &inspectorModel{cfg: cfg, input: ti, failed: make(map[string]error)}
}

func (m *inspectorModel) Init() tea.Cmd {
	return nil
}

func (m *inspectorModel) appendLog(module, text string) {
	m.logs = append(m.logs, module+": "+text)
	if len(m.logs) > logTail {
		m.logs = m.logs[len(m.logs)-logTail:]
	}
}

func (m *inspectorModel) tick() {
	r := m.host.scheduler.Tick(context.Background(), m.host.world)
	m.report = &r
	m.failed = make(map[string]error, len(r.Failures))
	for _, f := range r.Failures {
		m.failed[f.Unit] = f.Err
	}
}

func (m *inspectorModel) autoTick() tea.Cmd {
	return tea.Tick(m.cfg.TickInterval, func(time.Time) tea.Msg { return autoTickMsg{} })
}

func (m *inspectorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.editing {
			return m.updateEditing(msg)
		}
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case " ", "t":
			m.tick()
		case "a":
			m.auto = !m.auto
			if m.auto {
				return m, m.autoTick()
			}
		case "e":
			m.editing = true
			m.auto = false
			m.status = ""
			m.input.SetValue("")
			return m, m.input.Focus()
		}

	case autoTickMsg:
		if !m.auto {
			return m, nil
		}
		m.tick()
		if limit := m.cfg.MaxTicks; limit > 0 && m.host.scheduler.Ticks() >= limit {
			m.auto = false
			return m, nil
		}
		return m, m.autoTick()
	}
	return m, nil
}

func (m *inspectorModel) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.editing = false
		m.input.Blur()
		return m, nil
	case "enter":
		m.editing = false
		m.input.Blur()
		if err := m.apply(m.input.Value()); err != nil {
			m.status = errorStyle.Render(err.Error())
		} else {
			m.status = okStyle.Render("updated")
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// apply parses "Key=value" and stores it with the type the key already has.
func (m *inspectorModel) apply(line string) error {
	key, raw, ok := strings.Cut(line, "=")
	key, raw = strings.TrimSpace(key), strings.TrimSpace(raw)
	if !ok || key == "" {
		return fmt.Errorf("expected Key=value")
	}
	old, ok := m.host.world.Get(key)
	if !ok {
		return fmt.Errorf("no resource %q", key)
	}

	var v any
	var err error
	switch old.(type) {
	case int64:
		v, err = strconv.ParseInt(raw, 10, 64)
	case bool:
		v, err = strconv.ParseBool(raw)
	case string:
		v = raw
	default:
		var decoded any
		err = jsoniter.ConfigCompatibleWithStandardLibrary.UnmarshalFromString(raw, &decoded)
		v = decoded
	}
	if err != nil {
		return err
	}
	acc, _ := m.host.world.Accessor(key)
	return acc.Set(v)
}

func (m *inspectorModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("wavedash"))
	fmt.Fprintf(&b, " codec %s, tick %d", m.cfg.Codec, m.host.scheduler.Ticks())
	if m.auto {
		b.WriteString(okStyle.Render(" (running)"))
	}
	b.WriteString("\n\n")

	b.WriteString(sectionStyle.Render("Modules"))
	b.WriteString("\n")
	for _, name := range m.host.scheduler.Units() {
		if err, ok := m.failed[name]; ok {
			fmt.Fprintf(&b, "  %s %s\n", keyStyle.Render(name), errorStyle.Render(err.Error()))
		} else if m.report != nil {
			fmt.Fprintf(&b, "  %s %s\n", keyStyle.Render(name), okStyle.Render("ok"))
		} else {
			fmt.Fprintf(&b, "  %s\n", keyStyle.Render(name))
		}
	}
	if m.report != nil {
		fmt.Fprintf(&b, "  last tick took %s\n", m.report.Duration.Round(time.Microsecond))
	}

	b.WriteString("\n")
	b.WriteString(sectionStyle.Render("Resources"))
	b.WriteString("\n")
	snap := m.host.world.Snapshot()
	keys := make([]string, 0, len(snap))
	for k := range snap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "  %s = %v\n", keyStyle.Render(k), snap[k])
	}

	b.WriteString("\n")
	b.WriteString(sectionStyle.Render("Guest log"))
	b.WriteString("\n")
	for _, l := range m.logs {
		fmt.Fprintf(&b, "  %s\n", l)
	}

	b.WriteString("\n")
	if m.editing {
		b.WriteString(m.input.View())
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("enter apply • esc cancel"))
	} else {
		if m.status != "" {
			b.WriteString(m.status)
			b.WriteString("\n")
		}
		b.WriteString(helpStyle.Render("space tick • a auto • e edit resource • q quit"))
	}
	return b.String()
}

func runInteractive(cfg *config.Config) error {
	ctx := context.Background()
	m := newInspectorModel(cfg)

	h, err := newHost(ctx, cfg, hostOptions{
		console: io.Discard,
		logHook: m.appendLog,
	})
	if err != nil {
		return err
	}
	defer h.Close(ctx)
	m.host = h

	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err = p.Run()
	return err
}
