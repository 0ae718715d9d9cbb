// Package report encodes self-test reports.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/runoshun/rtcheck/internal/domain"
	"gopkg.in/yaml.v3"
)

// Format is a report encoding.
type Format string

// Supported formats.
const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Formats returns all supported formats.
func Formats() []Format {
	return []Format{FormatText, FormatJSON, FormatYAML}
}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	for _, f := range Formats() {
		if string(f) == strings.ToLower(s) {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", domain.ErrUnknownFormat, s)
}

var (
	passStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	failStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	headStyle = lipgloss.NewStyle().Bold(true)
)

// Write encodes r to w in format f.
func Write(w io.Writer, r *domain.Report, f Format) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("encode yaml report: %w", err)
		}
		return enc.Close()
	case FormatText:
		return writeText(w, r)
	default:
		return fmt.Errorf("%w: %q", domain.ErrUnknownFormat, f)
	}
}

// Verdict returns the styled PASS or FAIL label.
func Verdict(r *domain.Report) string {
	if r.Passed() {
		return passStyle.Render("PASS")
	}
	return failStyle.Render("FAIL")
}

func writeText(w io.Writer, r *domain.Report) error {
	var b strings.Builder

	fmt.Fprintf(&b, "%s run %s\n", Verdict(r), r.RunID)
	fmt.Fprintf(&b, "duration %s, backend %s, preemptive %t\n", r.Duration.Round(time.Millisecond), r.Backend, r.Preemptive)
	if !r.Passed() {
		fmt.Fprintf(&b, "first failure: %s at %s\n", r.Health.FirstFailure, r.Health.FaultSince.Format(time.DateTime))
	}

	b.WriteString("\n" + headStyle.Render("Checks") + "\n")
	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "  %d cycles\tperiod %d ticks\tlatched %t\n", r.Health.Cycles, r.Health.Period, r.Health.Latched)
	for _, c := range r.Health.Results {
		state := passStyle.Render("ok")
		if !c.Healthy {
			state = failStyle.Render("failed")
		}
		fmt.Fprintf(tw, "  %s\t%s\t\n", c.Name, state)
	}
	_ = tw.Flush()

	b.WriteString("\n" + headStyle.Render("Counters") + "\n")
	tw = tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "  churn\tcohorts %d\tpopulation %d/%d\tspawned %d\n",
		r.Churn.Activity, r.Churn.Population, r.Churn.Bound, r.Churn.Spawned)
	fmt.Fprintf(tw, "  pollq\tconsumed %d\tmismatches %d\tproducer error %t\n",
		r.PollQ.Consumed, r.PollQ.Mismatches, r.PollQ.ProducerError)
	fmt.Fprintf(tw, "  comtest\tstrings %d\torder errors %d\ttx errors %d\n",
		r.ComTest.Strings, r.ComTest.OrderErrors, r.ComTest.TxErrors)
	if len(r.Math) > 0 {
		fmt.Fprintf(tw, "  math\t%s\t\t\n", joinCounts(r.Math))
	}
	fmt.Fprintf(tw, "  serial\trx %d tx %d\tdirect %d\tdropped %d\n",
		r.Serial.BytesRead, r.Serial.BytesWritten, r.Serial.DirectWrites, r.Serial.RxDropped)
	fmt.Fprintf(tw, "  kernel\tcreated %d deleted %d\theap %d/%d\tisr yields %d\n",
		r.Kernel.TasksCreated, r.Kernel.TasksDeleted, r.Kernel.HeapInUse, r.Kernel.HeapSize, r.Kernel.YieldsFromISR)
	_ = tw.Flush()

	b.WriteString("\n" + headStyle.Render("LEDs") + "\n")
	for _, led := range r.LEDs {
		mark := "o"
		if led.On {
			mark = "*"
		}
		fmt.Fprintf(&b, "  %s %s%d toggles=%d\n", mark, led.Bank, led.LED, led.Toggles)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func joinCounts(counts []uint64) string {
	parts := make([]string, len(counts))
	for i, c := range counts {
		parts[i] = fmt.Sprint(c)
	}
	return strings.Join(parts, " ")
}
