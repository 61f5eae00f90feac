// Package tui renders a live monitor for an engine run, fed by the
// engine's telemetry channel.
package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/lexcodex/autoforge/framework"
)

// Monitor couples the event source with the engine's interrupt hook.
type Monitor struct {
	Events    <-chan framework.Event
	Interrupt func()
	Title     string
}

// Run blocks rendering the monitor until the run finishes or the user
// quits. Quitting requests a cooperative interrupt first.
func Run(ctx context.Context, monitor Monitor) error {
	program := tea.NewProgram(
		newModel(monitor),
		tea.WithContext(ctx),
		tea.WithAltScreen(),
	)
	_, err := program.Run()
	return err
}

// taskLine is the monitor's view of one task.
type taskLine struct {
	id     int
	title  string
	status string
}

// Model implements the Bubble Tea model for the run monitor.
type Model struct {
	monitor Monitor

	spinner  spinner.Model
	log      viewport.Model
	logLines []string

	tasks     []taskLine
	taskIndex map[int]int

	state    string
	finished bool
	width    int
	height   int
	ready    bool
}

type eventMsg framework.Event

type eventsClosedMsg struct{}

func newModel(monitor Monitor) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return Model{
		monitor:   monitor,
		spinner:   sp,
		taskIndex: map[int]int{},
		state:     "starting",
	}
}

// Init starts the spinner and the event pump.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForEvent())
}

// waitForEvent blocks on the telemetry channel and converts the next event
// into a message.
func (m Model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		event, ok := <-m.monitor.Events
		if !ok {
			return eventsClosedMsg{}
		}
		return eventMsg(event)
	}
}

// Update handles key presses, window sizing, and telemetry events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if !m.finished && m.monitor.Interrupt != nil {
				m.monitor.Interrupt()
				m.appendLog("interrupt requested, waiting for task boundary")
				return m, nil
			}
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		logHeight := msg.Height - len(m.tasks) - 6
		if logHeight < 3 {
			logHeight = 3
		}
		if !m.ready {
			m.log = viewport.New(msg.Width-4, logHeight)
			m.ready = true
		} else {
			m.log.Width = msg.Width - 4
			m.log.Height = logHeight
		}
		m.refreshLog()
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case eventMsg:
		m.apply(framework.Event(msg))
		return m, m.waitForEvent()
	case eventsClosedMsg:
		m.finished = true
		m.appendLog("event stream closed, press q to exit")
		return m, nil
	}
	var cmd tea.Cmd
	m.log, cmd = m.log.Update(msg)
	return m, cmd
}

// apply folds one telemetry event into the view state.
func (m *Model) apply(event framework.Event) {
	switch event.Type {
	case framework.EventRunStart:
		m.state = "planning"
		m.appendLog("run started: " + event.Message)
	case framework.EventPlanReady:
		m.state = "executing"
		m.appendLog("plan ready: " + event.Message)
	case framework.EventTaskStart:
		m.state = "executing"
		m.upsertTask(event.TaskID, event.Message, "running")
		m.appendLog(fmt.Sprintf("task %d started: %s", event.TaskID, event.Message))
	case framework.EventTaskFinish:
		status := "done"
		if len(event.Message) >= 7 && event.Message[:7] == "failed:" {
			status = "failed"
		}
		m.upsertTask(event.TaskID, "", status)
		m.appendLog(fmt.Sprintf("task %d %s", event.TaskID, status))
	case framework.EventTaskRequeued:
		m.upsertTask(event.TaskID, "", "retrying")
		m.appendLog(fmt.Sprintf("task %d requeued (%s)", event.TaskID, event.Message))
	case framework.EventReactStep:
		if event.Message != "" {
			m.appendLog("  thought: " + event.Message)
		}
	case framework.EventToolCall:
		m.appendLog("  tool: " + event.Message)
	case framework.EventApprovalNeeded:
		m.appendLog("approval needed: " + event.Message)
	case framework.EventInterrupt:
		m.state = "interrupted"
		m.appendLog("run interrupted")
	case framework.EventRunFinish:
		m.state = event.Message
		m.finished = true
		m.appendLog("run finished: " + event.Message + " (press q to exit)")
	}
}

func (m *Model) upsertTask(id int, title, status string) {
	if idx, ok := m.taskIndex[id]; ok {
		if title != "" {
			m.tasks[idx].title = title
		}
		m.tasks[idx].status = status
		return
	}
	m.taskIndex[id] = len(m.tasks)
	m.tasks = append(m.tasks, taskLine{id: id, title: title, status: status})
}

func (m *Model) appendLog(line string) {
	m.logLines = append(m.logLines, line)
	if len(m.logLines) > 500 {
		m.logLines = m.logLines[len(m.logLines)-500:]
	}
	m.refreshLog()
}

func (m *Model) refreshLog() {
	if !m.ready {
		return
	}
	content := ""
	for _, line := range m.logLines {
		content += line + "\n"
	}
	m.log.SetContent(content)
	m.log.GotoBottom()
}
