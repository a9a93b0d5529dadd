package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Progress bar styles
var (
	barFilledStyle = lipgloss.NewStyle().Foreground(colorCyan)
	barEmptyStyle  = lipgloss.NewStyle().Foreground(colorDim)
)

// =============================================================================
// batchModel - Batch rendering progress
// =============================================================================

// tileDoneMsg reports one finished tile.
type tileDoneMsg batchResult

// batchDoneMsg reports that the result stream has ended.
type batchDoneMsg struct{}

// batchModel is the bubbletea model driving the batch progress display.
// It drains the result channel one message at a time; the channel closing
// ends the program.
type batchModel struct {
	total   int
	done    int
	failed  int
	current string // most recently finished tile
	lastErr string // most recent failure, sticky until the next one
	start   time.Time
	width   int

	results <-chan batchResult
	cancel  context.CancelFunc // stops the batch when the user quits
}

// newBatchModel creates a progress model over a result stream.
func newBatchModel(total int, results <-chan batchResult, cancel context.CancelFunc) batchModel {
	return batchModel{
		total:   total,
		start:   time.Now(),
		width:   60,
		results: results,
		cancel:  cancel,
	}
}

func (m batchModel) Init() tea.Cmd {
	return m.waitForResult()
}

// waitForResult blocks on the next batch result.
func (m batchModel) waitForResult() tea.Cmd {
	return func() tea.Msg {
		r, ok := <-m.results
		if !ok {
			return batchDoneMsg{}
		}
		return tileDoneMsg(r)
	}
}

func (m batchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			// Stop the producers; the drain continues until the channel
			// closes so in-flight results are still counted.
			m.cancel()
		}
	case tileDoneMsg:
		m.done++
		m.current = tileRef(msg.zoom, msg.x, msg.y)
		if msg.err != nil {
			m.failed++
			m.lastErr = fmt.Sprintf("%s: %v", m.current, msg.err)
		}
		return m, m.waitForResult()
	case batchDoneMsg:
		return m, tea.Quit
	case tea.WindowSizeMsg:
		m.width = msg.Width - 20
		if m.width < 10 {
			m.width = 10
		}
		if m.width > 60 {
			m.width = 60
		}
	}
	return m, nil
}

func (m batchModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Rendering tiles"))
	b.WriteString("\n")
	b.WriteString(StyleDim.Render("q cancel"))
	b.WriteString("\n\n")

	b.WriteString(renderBar(m.done, m.total, m.width))
	b.WriteString("\n\n")

	elapsed := time.Since(m.start)
	rate := 0.0
	if elapsed > 0 {
		rate = float64(m.done) / elapsed.Seconds()
	}
	stats := fmt.Sprintf("%d/%d tiles · %.1f tiles/s", m.done, m.total, rate)
	if m.failed > 0 {
		stats += " · " + styleFailed.Render(fmt.Sprintf("%d failed", m.failed))
	}
	b.WriteString("  " + StyleDim.Render(stats))
	b.WriteString("\n")

	if m.current != "" {
		b.WriteString("  " + StyleDim.Render("last: ") + StyleHighlight.Render(m.current))
		b.WriteString("\n")
	}
	if m.lastErr != "" {
		b.WriteString("  " + StyleWarning.Render(m.lastErr))
		b.WriteString("\n")
	}

	return b.String()
}

// renderBar draws a fixed-width progress bar with a percentage.
func renderBar(done, total, width int) string {
	if total <= 0 {
		total = 1
	}
	frac := float64(done) / float64(total)
	if frac > 1 {
		frac = 1
	}
	filled := int(frac * float64(width))

	bar := barFilledStyle.Render(strings.Repeat("█", filled)) +
		barEmptyStyle.Render(strings.Repeat("░", width-filled))
	return fmt.Sprintf("  %s %3.0f%%", bar, frac*100)
}
