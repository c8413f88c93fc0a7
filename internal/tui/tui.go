// Package tui provides the interactive prompts and styled console
// output for warden.
package tui

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ErrAborted is returned when the operator cancels a prompt.
var ErrAborted = errors.New("aborted")

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86")).
			MarginBottom(1)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	cursorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")).
			Bold(true)
)

// Title prints a styled section title.
func Title(text string) {
	fmt.Println(titleStyle.Render(text))
}

// Success prints a styled success line.
func Success(format string, args ...any) {
	fmt.Println(successStyle.Render(fmt.Sprintf(format, args...)))
}

// Warn prints a styled warning line.
func Warn(format string, args ...any) {
	fmt.Println(warnStyle.Render(fmt.Sprintf("warning: "+format, args...)))
}

// Error prints a styled error line.
func Error(format string, args ...any) {
	fmt.Println(errorStyle.Render(fmt.Sprintf(format, args...)))
}

// Info prints a plain line.
func Info(format string, args ...any) {
	fmt.Printf(format+"\n", args...)
}

// selectModel is a minimal vertical choice list.
type selectModel struct {
	title   string
	options []string
	cursor  int
	choice  int
	aborted bool
}

func (m selectModel) Init() tea.Cmd { return nil }

func (m selectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.aborted = true
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.options)-1 {
				m.cursor++
			}
		case "enter":
			m.choice = m.cursor
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m selectModel) View() string {
	s := promptStyle.Render(m.title) + "\n\n"
	for i, opt := range m.options {
		if i == m.cursor {
			s += cursorStyle.Render("> "+opt) + "\n"
		} else {
			s += "  " + opt + "\n"
		}
	}
	s += "\n" + helpStyle.Render("up/down to move, enter to select, q to quit") + "\n"
	return s
}

// Select presents a vertical choice list and returns the chosen index.
func Select(title string, options []string) (int, error) {
	m := selectModel{title: title, options: options, choice: -1}
	final, err := tea.NewProgram(m).Run()
	if err != nil {
		return -1, err
	}
	result := final.(selectModel)
	if result.aborted || result.choice < 0 {
		return -1, ErrAborted
	}
	return result.choice, nil
}

// confirmModel is a y/N keypress prompt.
type confirmModel struct {
	prompt    string
	confirmed bool
	answered  bool
}

func (m confirmModel) Init() tea.Cmd { return nil }

func (m confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "y", "Y":
			m.confirmed = true
			m.answered = true
			return m, tea.Quit
		case "n", "N", "enter", "esc", "ctrl+c":
			m.answered = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m confirmModel) View() string {
	if m.answered {
		return ""
	}
	return promptStyle.Render(m.prompt) + helpStyle.Render(" [y/N] ")
}

// Confirm asks a yes/no question, defaulting to no.
func Confirm(prompt string) (bool, error) {
	m := confirmModel{prompt: prompt}
	final, err := tea.NewProgram(m).Run()
	if err != nil {
		return false, err
	}
	return final.(confirmModel).confirmed, nil
}

// stepModel shows a spinner while a blocking step runs.
type stepModel struct {
	spinner spinner.Model
	label   string
	done    bool
	err     error
}

type stepDoneMsg struct{ err error }

func (m stepModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m stepModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case stepDoneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m stepModel) View() string {
	if m.done {
		if m.err != nil {
			return errorStyle.Render("✗ "+m.label) + "\n"
		}
		return successStyle.Render("✓ "+m.label) + "\n"
	}
	return fmt.Sprintf("%s %s\n", m.spinner.View(), stageLabel(m.label))
}

func stageLabel(label string) string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Render(label)
}

// Step runs fn while displaying a spinner with the given label.
// The fn error is returned unchanged.
func Step(label string, fn func() error) error {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))

	m := stepModel{spinner: s, label: label}
	p := tea.NewProgram(m)

	go func() {
		p.Send(stepDoneMsg{err: fn()})
	}()

	final, err := p.Run()
	if err != nil {
		return err
	}
	return final.(stepModel).err
}
