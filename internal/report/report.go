// Package report renders the outcomes of a run as a styled text table, JSON
// or YAML.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"gopkg.in/yaml.v3"

	"github.com/msto63/bankprobe/internal/sequencer"
	coreerrors "github.com/msto63/bankprobe/pkg/core/errors"
)

// Output formats
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Report is the serializable form of a run
type Report struct {
	Target    string    `json:"target" yaml:"target"`
	BankID    string    `json:"bankId" yaml:"bankId"`
	StartedAt time.Time `json:"startedAt" yaml:"startedAt"`
	Total     int       `json:"total" yaml:"total"`
	Succeeded int       `json:"succeeded" yaml:"succeeded"`
	Failed    int       `json:"failed" yaml:"failed"`
	Entries   []Entry   `json:"operations" yaml:"operations"`
}

// Entry is one operation of the run
type Entry struct {
	Index      int    `json:"index" yaml:"index"`
	Operation  string `json:"operation" yaml:"operation"`
	OK         bool   `json:"ok" yaml:"ok"`
	Code       string `json:"code" yaml:"code"`
	Kind       string `json:"kind,omitempty" yaml:"kind,omitempty"`
	Error      string `json:"error,omitempty" yaml:"error,omitempty"`
	DurationMs int64  `json:"durationMs" yaml:"durationMs"`
	Request    any    `json:"request,omitempty" yaml:"request,omitempty"`
	Response   any    `json:"response,omitempty" yaml:"response,omitempty"`
}

// New builds a report from outcomes
func New(target, bankID string, started time.Time, outcomes []sequencer.Outcome) Report {
	sum := sequencer.Summarize(outcomes)
	r := Report{
		Target:    target,
		BankID:    bankID,
		StartedAt: started,
		Total:     sum.Total,
		Succeeded: sum.Succeeded,
		Failed:    sum.Failed,
		Entries:   make([]Entry, len(outcomes)),
	}
	for i, o := range outcomes {
		e := Entry{
			Index:      o.Index,
			Operation:  o.Operation,
			OK:         o.OK(),
			Code:       o.Code.String(),
			Kind:       string(o.Kind),
			DurationMs: o.Duration.Milliseconds(),
			Request:    o.Request,
			Response:   o.Response,
		}
		if o.Err != nil {
			e.Error = errorDetail(o.Err)
		}
		r.Entries[i] = e
	}
	return r
}

// errorDetail prefers the remote status message over the full error chain
func errorDetail(err error) string {
	var re *coreerrors.RemoteError
	if errors.As(err, &re) && re.Message != "" {
		return re.Message
	}
	return err.Error()
}

// Write renders r to w in format
func Write(w io.Writer, format string, r Report) error {
	switch strings.ToLower(format) {
	case "", FormatText:
		return writeText(w, r)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
		return enc.Close()
	default:
		return coreerrors.NewConfigurationError("general.output", fmt.Sprintf("unknown output format %q", format), nil)
	}
}

func writeText(w io.Writer, r Report) error {
	s := newStyles(lipgloss.NewRenderer(w))

	rows := make([][]string, len(r.Entries))
	for i, e := range r.Entries {
		mark := "✓"
		if !e.OK {
			mark = "✗"
		}
		rows[i] = []string{
			fmt.Sprintf("%d", e.Index+1),
			mark + " " + e.Operation,
			e.Code,
			fmt.Sprintf("%dms", e.DurationMs),
			e.Error,
		}
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(s.border).
		Headers("#", "OPERATION", "CODE", "TIME", "DETAIL").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return s.header
			}
			if (col == 1 || col == 2) && row >= 0 && row < len(r.Entries) {
				if r.Entries[row].OK {
					return s.ok
				}
				return s.failed
			}
			return s.cell
		})

	summary := fmt.Sprintf("%d operations, %d succeeded, %d failed", r.Total, r.Succeeded, r.Failed)
	summaryStyle := s.ok
	if r.Failed > 0 {
		summaryStyle = s.failed
	}

	_, err := fmt.Fprintln(w, lipgloss.JoinVertical(lipgloss.Left,
		s.title.Render("bankprobe run"),
		s.subtitle.Render(fmt.Sprintf("target %s, bank %s, started %s", r.Target, r.BankID, r.StartedAt.Format(time.RFC3339))),
		t.String(),
		summaryStyle.Render(summary),
	))
	return err
}
