package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/sercha-docs/internal/core/domain"
)

// palette mirrors the colours used across sercha tools.
var palette = struct {
	primary, muted, success, warning, errorC lipgloss.Color
}{
	primary: lipgloss.Color("#7C3AED"),
	muted:   lipgloss.Color("#6C7086"),
	success: lipgloss.Color("#A6E3A1"),
	warning: lipgloss.Color("#F9E2AF"),
	errorC:  lipgloss.Color("#F38BA8"),
}

// styles holds the text styles for one output stream. Every style is a
// no-op when the stream is not a terminal.
type styles struct {
	Title   lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
}

func newStyles(w io.Writer) styles {
	plain := lipgloss.NewStyle()
	s := styles{Title: plain, Muted: plain, Success: plain, Warning: plain, Error: plain}
	if !isTerminal(w) {
		return s
	}
	s.Title = lipgloss.NewStyle().Bold(true).Foreground(palette.primary)
	s.Muted = lipgloss.NewStyle().Foreground(palette.muted)
	s.Success = lipgloss.NewStyle().Foreground(palette.success)
	s.Warning = lipgloss.NewStyle().Foreground(palette.warning)
	s.Error = lipgloss.NewStyle().Bold(true).Foreground(palette.errorC)
	return s
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// stylesFor returns the styles for cmd's output stream.
func stylesFor(cmd *cobra.Command) styles {
	return newStyles(cmd.OutOrStdout())
}

// status renders a document status with its colour.
func (s styles) status(st domain.DocumentStatus) string {
	switch st {
	case domain.StatusProcessed:
		return s.Success.Render(string(st))
	case domain.StatusError:
		return s.Error.Render(string(st))
	default:
		return s.Warning.Render(string(st))
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

// truncate shortens s to n runes on one line.
func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
