package task

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/profsim/profsim/internal/countdown"
	"github.com/profsim/profsim/internal/session"
	"github.com/profsim/profsim/internal/ui/components"
	"github.com/profsim/profsim/internal/ui/layout"
	"github.com/profsim/profsim/internal/ui/theme"
)

func (s *TaskScreen) View(width, height int) string {
	switch s.phase {
	case phaseGenerating:
		return s.renderLoading(width, height, s.state.Task)
	case phaseAnswering:
		return s.renderTask(width, height)
	case phaseSubmitting:
		return s.renderSubmitting(width, height)
	case phaseRecorded:
		return s.renderNotice(width, s.message, "Press Enter to load the next task.")
	case phaseNoTask:
		return s.renderNotice(width, "There are no more tasks in this attempt.",
			"The report may still be on its way. Press R to check again.")
	case phaseCompleted:
		return s.renderReport(width, height)
	}
	return s.renderError(width)
}

func (s *TaskScreen) stageBar(width int) string {
	stage := s.state.Stage
	message := stage.Message()
	if !stage.Terminal() {
		message = s.spinner.View() + " " + message
	}
	bar := components.ProgressBar{
		Message: message,
		Caption: stage.Step(),
		Percent: stage.Progress(),
		Failed:  stage == session.StageFailed,
		Width:   min(width-8, 60),
	}
	return lipgloss.PlaceHorizontal(width, lipgloss.Center, bar.View())
}

func taskHeading(t *session.Task) string {
	if t == nil {
		return ""
	}
	heading := fmt.Sprintf("Task %d", t.Order)
	if t.Type != "" {
		heading += " · " + t.Type
	}
	return heading
}

// renderLoading shows the stage bar with the question as it streams in.
func (s *TaskScreen) renderLoading(width, height int, t *session.Task) string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(s.stageBar(width))
	b.WriteString("\n\n")

	if t != nil {
		b.WriteString(theme.Title.Render("  " + taskHeading(t)))
		b.WriteString("\n")
		if t.Question != "" {
			lines := wrap(t.Question, width-4)
			// Keep the newest text in view while it streams.
			b.WriteString(indent(tail(lines, height-8)))
		}
	}
	return b.String()
}

func (s *TaskScreen) renderTask(width, height int) string {
	var b strings.Builder

	heading := theme.Title.Render("  " + taskHeading(s.task))
	timer := lipgloss.NewStyle().
		Foreground(theme.TimerColor(s.remaining)).
		Bold(true).
		Render(countdown.Format(s.remaining))
	line := heading
	if pad := width - lipgloss.Width(heading) - lipgloss.Width(timer) - 2; pad > 0 {
		line += strings.Repeat(" ", pad) + timer
	}
	b.WriteString(line)
	b.WriteString("\n")
	b.WriteString("  " + layout.Rule(width-4))
	b.WriteString("\n")

	if s.message != "" {
		b.WriteString(lipgloss.NewStyle().Foreground(theme.Success).Render("  " + s.message))
		b.WriteString("\n")
	}

	// Leave room for the rule, the answer and the error line.
	reserved := 7
	if layout.IsCompactHeight(height) {
		reserved = 5
	}
	lines := wrap(s.task.Question, width-4)
	b.WriteString(indent(head(lines, height-reserved)))
	b.WriteString("\n\n")

	if s.err != nil {
		b.WriteString(theme.ErrorText.Render("  " + s.err.Error()))
		b.WriteString("\n")
	}
	b.WriteString("  Answer: " + s.input.View())
	return b.String()
}

func (s *TaskScreen) renderSubmitting(width, height int) string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(s.stageBar(width))
	b.WriteString("\n\n")

	switch {
	case s.state.GeneratingReport:
		b.WriteString(theme.Title.Render("  Final report"))
		b.WriteString("\n")
		b.WriteString(indent(tail(wrap(s.state.Report, width-4), height-8)))
	case s.state.Task != nil:
		b.WriteString(theme.Title.Render("  " + taskHeading(s.state.Task)))
		b.WriteString("\n")
		b.WriteString(indent(tail(wrap(s.state.Task.Question, width-4), height-8)))
	default:
		b.WriteString(lipgloss.NewStyle().Foreground(theme.TextDim).Render("  Your answer: " + s.input.Value()))
	}
	return b.String()
}

func (s *TaskScreen) renderReport(width, height int) string {
	var b strings.Builder
	b.WriteString(layout.Centered(width, theme.Success, "Simulation complete"))
	b.WriteString("\n")
	b.WriteString("  " + layout.Rule(width-4))
	b.WriteString("\n")

	lines := wrap(s.report, width-4)
	visible := height - 3
	if visible < 1 {
		visible = 1
	}
	maxScroll := len(lines) - visible
	if maxScroll < 0 {
		maxScroll = 0
	}
	if s.scroll > maxScroll {
		s.scroll = maxScroll
	}
	b.WriteString(indent(head(lines[s.scroll:], visible)))
	return b.String()
}

func (s *TaskScreen) renderNotice(width int, title, hint string) string {
	return "\n\n" +
		layout.Centered(width, theme.Text, title) + "\n\n" +
		layout.Centered(width, theme.TextDim, hint)
}

func (s *TaskScreen) renderError(width int) string {
	msg := "Something went wrong."
	if s.err != nil {
		msg = s.err.Error()
	}
	return "\n\n" +
		layout.Centered(width, theme.Error, session.StageFailed.Message()) + "\n\n" +
		layout.Centered(width, theme.TextDim, msg) + "\n\n" +
		layout.Centered(width, theme.TextDim, "Press R to try again.")
}

func wrap(text string, width int) []string {
	if text == "" {
		return nil
	}
	if width < 10 {
		width = 10
	}
	return strings.Split(lipgloss.NewStyle().Width(width).Render(text), "\n")
}

func head(lines []string, n int) []string {
	if n < 1 {
		n = 1
	}
	if len(lines) > n {
		return lines[:n]
	}
	return lines
}

func tail(lines []string, n int) []string {
	if n < 1 {
		n = 1
	}
	if len(lines) > n {
		return lines[len(lines)-n:]
	}
	return lines
}

func indent(lines []string) string {
	var b strings.Builder
	for i, l := range lines {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("  ")
		b.WriteString(l)
	}
	return b.String()
}
