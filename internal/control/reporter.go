package control

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
)

// Reporter renders a report.
type Reporter interface {
	Write(w io.Writer, r *Report) error
}

// NewReporter returns the reporter registered under name ("cli" or "json").
func NewReporter(name string, colorize bool) (Reporter, error) {
	switch name {
	case "", "cli":
		return NewCLIReporter(colorize), nil
	case "json":
		return JSONReporter{}, nil
	default:
		return nil, fmt.Errorf("unknown reporter %q (must be cli or json)", name)
	}
}

// CLIReporter prints a tree of controls and examples with a summary line.
type CLIReporter struct {
	pass *color.Color
	fail *color.Color
	dim  *color.Color
}

// NewCLIReporter creates a CLIReporter; colorize=false emits plain text.
func NewCLIReporter(colorize bool) *CLIReporter {
	r := &CLIReporter{
		pass: color.New(color.FgGreen),
		fail: color.New(color.FgRed, color.Bold),
		dim:  color.New(color.Faint),
	}
	for _, c := range []*color.Color{r.pass, r.fail, r.dim} {
		if colorize {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return r
}

func (c *CLIReporter) mark(s Status) string {
	if s == StatusPassed {
		return c.pass.Sprint("✔")
	}
	return c.fail.Sprint("✖")
}

func (c *CLIReporter) Write(w io.Writer, r *Report) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Run: %s\n\n", c.dim.Sprint(r.ID))

	status := r.ControlStatus()
	seen := make(map[string]bool)
	for _, res := range r.Results {
		if !seen[res.Control] {
			seen[res.Control] = true
			fmt.Fprintf(&b, "  %s  %s: %s\n", c.mark(status[res.Control]), res.Control, res.Title)
		}
		fmt.Fprintf(&b, "     %s  %s\n", c.mark(res.Status), res.Name())
		if res.Error != "" {
			for _, line := range strings.Split(res.Error, "\n") {
				fmt.Fprintf(&b, "        %s\n", c.fail.Sprint(line))
			}
		}
	}

	ctrlPassed, ctrlFailed := 0, 0
	for _, s := range status {
		if s == StatusPassed {
			ctrlPassed++
		} else {
			ctrlFailed++
		}
	}
	failed := r.Failed()
	fmt.Fprintf(&b, "\nProfile Summary: %d successful %s, %d control %s\n",
		ctrlPassed, plural(ctrlPassed, "control", "controls"),
		ctrlFailed, plural(ctrlFailed, "failure", "failures"))
	fmt.Fprintf(&b, "Test Summary: %d successful, %d %s (%s)\n",
		len(r.Results)-failed, failed, plural(failed, "failure", "failures"),
		r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))

	_, err := io.WriteString(w, b.String())
	return err
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// JSONReporter writes the report as a single JSON document.
type JSONReporter struct{}

type jsonSummary struct {
	Total  int  `json:"total"`
	Failed int  `json:"failed"`
	Passed bool `json:"passed"`
}

func (JSONReporter) Write(w io.Writer, r *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		*Report
		Summary jsonSummary `json:"summary"`
	}{
		Report: r,
		Summary: jsonSummary{
			Total:  len(r.Results),
			Failed: r.Failed(),
			Passed: r.Passed(),
		},
	})
}
