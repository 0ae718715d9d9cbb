package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/truncate"

	"github.com/runoshun/rtcheck/internal/domain"
)

const (
	nameColumn = 10
	maxTasks   = 12
	ledOn      = "●"
	ledOff     = "○"
)

// View implements tea.Model.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	r := m.current()
	var b strings.Builder
	b.WriteString(m.viewHeader(r))
	b.WriteString("\n")
	if r == nil {
		b.WriteString(m.styles.Muted.Render("starting..."))
		b.WriteString("\n")
		b.WriteString(m.styles.Footer.Render(m.help.View(m.keys)))
		return b.String()
	}

	b.WriteString(m.viewHealth(r))
	b.WriteString(m.viewLEDs(r))
	b.WriteString(m.viewCounters(r))
	if !m.hideTask {
		b.WriteString(m.viewTasks(r))
	}
	if m.showLogs {
		b.WriteString(m.viewEvents())
	}
	b.WriteString(m.styles.Footer.Render(m.help.View(m.keys)))
	return b.String()
}

func (m *Model) viewHeader(r *domain.Report) string {
	parts := []string{m.styles.Title.Render("rtcheck monitor")}
	switch {
	case m.err != nil:
		parts = append(parts, m.styles.Fail.Render("error: "+m.err.Error()))
	case m.final != nil:
		parts = append(parts, m.styles.Muted.Render("finished"))
	default:
		parts = append(parts, m.spinner.View()+" running")
	}
	if r != nil && r.RunID != "" {
		parts = append(parts,
			m.styles.Label.Render("run ")+m.styles.Value.Render(shortID(r.RunID)),
			m.styles.Value.Render(r.Duration.Round(100*time.Millisecond).String()),
			m.styles.Label.Render(r.Backend),
		)
		if r.Preemptive {
			parts = append(parts, m.styles.Label.Render("preemptive"))
		} else {
			parts = append(parts, m.styles.Label.Render("cooperative"))
		}
	}
	if m.ptyPath != "" {
		parts = append(parts, m.styles.Label.Render("line ")+m.styles.Value.Render(m.ptyPath))
	}
	return strings.Join(parts, "  ")
}

func (m *Model) viewHealth(r *domain.Report) string {
	var b strings.Builder
	h := r.Health
	b.WriteString(m.styles.Section.Render("Health"))
	b.WriteString("\n  ")
	if h.Latched {
		b.WriteString(m.styles.Fail.Render("LATCHED"))
		b.WriteString(m.styles.Muted.Render(fmt.Sprintf("  first failure: %s", h.FirstFailure)))
	} else {
		b.WriteString(m.styles.Pass.Render("OK"))
	}
	b.WriteString(m.styles.Muted.Render(fmt.Sprintf("  cycles %d  period %d ticks", h.Cycles, h.Period)))
	b.WriteString("\n")

	for _, res := range h.Results {
		status := m.styles.Pass.Render("ok")
		if !res.Healthy {
			status = m.styles.Fail.Render("FAIL")
		}
		b.WriteString("  " + m.styles.Label.Render(runewidth.FillRight(res.Name, nameColumn)) + status + "\n")
	}
	return b.String()
}

func (m *Model) viewLEDs(r *domain.Report) string {
	banks := map[string][]domain.LEDState{}
	var names []string
	for _, led := range r.LEDs {
		if _, ok := banks[led.Bank]; !ok {
			names = append(names, led.Bank)
		}
		banks[led.Bank] = append(banks[led.Bank], led)
	}

	var b strings.Builder
	b.WriteString(m.styles.Section.Render("LEDs"))
	b.WriteString("\n")
	for _, name := range names {
		b.WriteString("  " + m.styles.Label.Render(runewidth.FillRight(name, nameColumn)))
		for _, led := range banks[name] {
			if led.On {
				b.WriteString(m.styles.LEDOn.Render(ledOn))
			} else {
				b.WriteString(m.styles.LEDOff.Render(ledOff))
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m *Model) viewCounters(r *domain.Report) string {
	rows := [][2]string{
		{"churn", fmt.Sprintf("activity %d  population %d/%d  spawned %d  create failures %d",
			r.Churn.Activity, r.Churn.Population, r.Churn.Bound, r.Churn.Spawned, r.Churn.CreateFailures)},
		{"pollq", fmt.Sprintf("produced %d  consumed %d  dropped %d  mismatches %d  queued %d",
			r.PollQ.Produced, r.PollQ.Consumed, r.PollQ.Dropped, r.PollQ.Mismatches, r.PollQ.QueueLen)},
		{"comtest", fmt.Sprintf("strings %d  order errors %d  tx errors %d  timeouts %d",
			r.ComTest.Strings, r.ComTest.OrderErrors, r.ComTest.TxErrors, r.ComTest.Timeouts)},
		{"serial", fmt.Sprintf("read %d  written %d  rx dropped %d  baud %d",
			r.Serial.BytesRead, r.Serial.BytesWritten, r.Serial.RxDropped, r.Serial.BaudActual)},
		{"kernel", fmt.Sprintf("tasks %d  heap %d/%d  low %d  isr yields %d",
			r.Kernel.TaskCount, r.Kernel.HeapInUse, r.Kernel.HeapSize, r.Kernel.HeapLowWatermark, r.Kernel.YieldsFromISR)},
	}
	if len(r.Math) > 0 {
		counts := make([]string, len(r.Math))
		for i, c := range r.Math {
			counts[i] = fmt.Sprint(c)
		}
		rows = append(rows, [2]string{"math", strings.Join(counts, " ")})
	}

	var b strings.Builder
	b.WriteString(m.styles.Section.Render("Counters"))
	b.WriteString("\n")
	for _, row := range rows {
		line := runewidth.FillRight(row[0], nameColumn) + row[1]
		b.WriteString("  " + m.styles.Value.Render(m.clip(line, 2)) + "\n")
	}
	return b.String()
}

func (m *Model) viewTasks(r *domain.Report) string {
	tasks := append([]domain.TaskInfo(nil), r.Tasks...)
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })

	var b strings.Builder
	b.WriteString(m.styles.Section.Render(fmt.Sprintf("Tasks (%d)", len(tasks))))
	b.WriteString("\n")
	b.WriteString("  " + m.styles.Label.Render(taskRow("ID", "NAME", "PRIO", "STATE")) + "\n")
	for i, t := range tasks {
		if i == maxTasks {
			b.WriteString("  " + m.styles.Muted.Render(fmt.Sprintf("... %d more", len(tasks)-maxTasks)) + "\n")
			break
		}
		row := taskRow(fmt.Sprint(t.ID), t.Name, fmt.Sprint(t.Priority), t.State.Display())
		b.WriteString("  " + m.styles.Value.Render(row) + "\n")
	}
	return b.String()
}

func taskRow(id, name, prio, state string) string {
	return runewidth.FillRight(id, 6) +
		runewidth.FillRight(runewidth.Truncate(name, nameColumn-1, ""), nameColumn) +
		runewidth.FillRight(prio, 6) +
		state
}

func (m *Model) viewEvents() string {
	var b strings.Builder
	b.WriteString(m.styles.Section.Render("Events"))
	b.WriteString("\n")
	for _, line := range m.events.Recent(eventLines) {
		style := m.styles.Event
		if strings.Contains(line, "[ERROR]") || strings.Contains(line, "[WARN]") {
			style = m.styles.EventErr
		}
		b.WriteString("  " + style.Render(m.clip(line, 2)) + "\n")
	}
	return b.String()
}

// clip truncates s so that it fits the window after indent columns.
func (m *Model) clip(s string, indent int) string {
	if m.width <= indent {
		return s
	}
	return truncate.StringWithTail(s, uint(m.width-indent), "…")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
