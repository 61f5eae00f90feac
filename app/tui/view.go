package tui

import (
	"fmt"
	"strings"
)

// View renders the header, task board, event log, and status bar.
func (m Model) View() string {
	if !m.ready {
		return "starting monitor..."
	}
	var b strings.Builder

	title := m.monitor.Title
	if title == "" {
		title = "autoforge run"
	}
	b.WriteString(headerStyle.Render(title))
	b.WriteString("\n\n")

	for _, task := range m.tasks {
		b.WriteString(m.renderTask(task))
		b.WriteString("\n")
	}
	if len(m.tasks) > 0 {
		b.WriteString("\n")
	}

	b.WriteString(logBoxStyle.Render(m.log.View()))
	b.WriteString("\n")
	b.WriteString(m.renderStatusBar())
	return b.String()
}

func (m Model) renderTask(task taskLine) string {
	label := fmt.Sprintf("[%d] %s", task.id, task.title)
	switch task.status {
	case "done":
		return taskDoneStyle.Render("  ✓ " + label)
	case "failed":
		return taskFailedStyle.Render("  ✗ " + label)
	case "running", "retrying":
		return taskActiveStyle.Render("  " + m.spinner.View() + " " + label + " (" + task.status + ")")
	default:
		return dimStyle.Render("  · " + label)
	}
}

func (m Model) renderStatusBar() string {
	done := 0
	for _, task := range m.tasks {
		if task.status == "done" {
			done++
		}
	}
	left := fmt.Sprintf("state: %s  tasks: %d/%d", m.state, done, len(m.tasks))
	right := "q: interrupt/quit"
	pad := m.width - len(left) - len(right) - 4
	if pad < 1 {
		pad = 1
	}
	return statusBarStyle.Width(m.width).Render(left + strings.Repeat(" ", pad) + right)
}
