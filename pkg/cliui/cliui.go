// Package cliui provides reusable terminal UI helpers for tabletalk CLI
// commands: step spinners, markdown answers and citation lists.
package cliui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/papercomputeco/tabletalk/pkg/conversation"
	"github.com/papercomputeco/tabletalk/pkg/utils"
)

var (
	SuccessMark  = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Render("✓")
	FailMark     = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render("✗")
	StepStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))

	rankStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)
	scoreStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	sourceStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	snippetStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	routeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("213")).Bold(true)
	DimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	KeyStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	ValueStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Bold(true)
)

// citationPreview is how many runes of a snippet a citation line shows.
const citationPreview = 120

var spinnerFrames = []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}

// Step prints an animated spinner while fn runs, then replaces it with
// a ✓ or ✗ checkmark and elapsed time.
func Step(w io.Writer, msg string, fn func() error) error {
	done := make(chan struct{})
	var mu sync.Mutex

	// Run spinner animation in background
	go func() {
		frame := 0
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		for {
			mu.Lock()
			fmt.Fprintf(w, "\r  %s %s",
				spinnerStyle.Render(spinnerFrames[frame%len(spinnerFrames)]),
				msg,
			)
			mu.Unlock()

			select {
			case <-done:
				return
			case <-ticker.C:
				frame++
			}
		}
	}()

	start := time.Now()
	err := fn()
	elapsed := time.Since(start)

	close(done)

	// Clear the spinner line and print final result
	mu.Lock()
	fmt.Fprintf(w, "\r  %s %s %s\n",
		Mark(err),
		msg,
		StepStyle.Render(fmt.Sprintf("(%s)", FormatDuration(elapsed))),
	)
	mu.Unlock()

	return err
}

// Mark returns a ✓ for nil errors or ✗ for non-nil errors.
func Mark(err error) string {
	if err != nil {
		return FailMark
	}
	return SuccessMark
}

// FormatDuration formats a duration for display (e.g. "12ms" or "3.2s").
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

// RenderMarkdown renders markdown content for terminal display using glamour.
// On failure the raw content is returned alongside the error.
func RenderMarkdown(content string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return content, err
	}

	rendered, err := r.Render(content)
	if err != nil {
		return content, err
	}

	return rendered, nil
}

// RouteBadge renders the route and subject that answered a turn.
func RouteBadge(route, subject string) string {
	if subject == "" {
		return routeStyle.Render("[" + route + "]")
	}
	return routeStyle.Render("["+route+"]") + " " + sourceStyle.Render(subject)
}

// WriteCitations prints one ranked line per citation. Lower scores are
// closer matches.
func WriteCitations(w io.Writer, citations []conversation.Citation) {
	for i, c := range citations {
		fmt.Fprintf(w, "  %s  %s  %s\n",
			rankStyle.Render(fmt.Sprintf("#%d", i+1)),
			sourceStyle.Render(c.ID),
			scoreStyle.Render(fmt.Sprintf("distance %.4f", c.Score)),
		)
		fmt.Fprintf(w, "      %s\n", snippetStyle.Render(utils.Truncate(c.Snippet, citationPreview)))
	}
}
