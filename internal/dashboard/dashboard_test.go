package dashboard

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jperros/limitprobe/internal/config"
	"github.com/jperros/limitprobe/internal/metrics"
	"github.com/jperros/limitprobe/internal/probe"
)

func TestFormatErrorRows(t *testing.T) {
	rows := formatErrorRows(map[string]int{
		"*url.Error":    2,
		"*net.OpError":  5,
		"*net.DNSError": 1,
	})
	if len(rows) != 3 {
		t.Fatalf("got %d rows", len(rows))
	}
	// Most frequent first.
	if !strings.HasSuffix(rows[0], ": 5") {
		t.Errorf("rows[0] = %q, want highest count first", rows[0])
	}
	for _, row := range rows {
		if strings.Contains(row, "*") {
			t.Errorf("row %q leaks the raw Go type", row)
		}
	}
}

func TestFormatErrorRowsEmpty(t *testing.T) {
	rows := formatErrorRows(nil)
	if len(rows) != 1 || !strings.Contains(rows[0], "No errors") {
		t.Errorf("rows = %v", rows)
	}
}

// update is exercised without a live terminal: the widgets are plain
// structs until rendered.
func TestUpdatePopulatesWidgets(t *testing.T) {
	plan := config.Plan{Profile: "high_rate", Attempts: 10, Delay: 3 * time.Second, Workers: 1}
	aggregator := metrics.NewAggregator(plan)
	aggregator.Record(probe.Outcome{Index: 0, Class: probe.ClassSuccess, Latency: 20 * time.Millisecond})
	aggregator.Record(probe.Outcome{Index: 1, Class: probe.ClassRateLimited, StatusCode: 429, IssuedAt: 3 * time.Second, Latency: 10 * time.Millisecond})
	aggregator.Record(probe.Outcome{Index: 2, Class: probe.ClassError, Err: errors.New("boom"), Latency: 5 * time.Millisecond})

	d := &Dashboard{
		aggregator: aggregator,
		info:       SessionInfo{Target: "https://example.com/login", Plan: plan},
		startTime:  time.Now().Add(-2 * time.Second),
	}
	d.initWidgets()

	d.update()

	if !strings.Contains(d.summaryPara.Text, "https://example.com/login") {
		t.Errorf("summary = %q", d.summaryPara.Text)
	}
	if !strings.Contains(d.summaryPara.Text, "First failure: attempt #1") {
		t.Errorf("summary does not show first failure: %q", d.summaryPara.Text)
	}
	if d.progressGauge.Percent != 30 {
		t.Errorf("gauge percent = %d, want 30", d.progressGauge.Percent)
	}
	if d.progressGauge.Label != "3/10 attempts" {
		t.Errorf("gauge label = %q", d.progressGauge.Label)
	}
	if !strings.Contains(d.classPara.Text, "Rate Limited:   1") {
		t.Errorf("class pane = %q", d.classPara.Text)
	}
	if len(d.errorList.Rows) != 1 {
		t.Errorf("error rows = %v", d.errorList.Rows)
	}
	if len(d.latencyHistory) != 1 {
		t.Errorf("latency history = %v", d.latencyHistory)
	}
}

func TestUpdateCapsGaugeAtFull(t *testing.T) {
	plan := config.Plan{Attempts: 1}
	aggregator := metrics.NewAggregator(plan)
	aggregator.Record(probe.Outcome{Index: 0, Class: probe.ClassSuccess, Latency: time.Millisecond})
	aggregator.Record(probe.Outcome{Index: 1, Class: probe.ClassSuccess, Latency: time.Millisecond})

	d := &Dashboard{aggregator: aggregator, info: SessionInfo{Plan: plan}, startTime: time.Now()}
	d.initWidgets()
	d.update()

	if d.progressGauge.Percent != 100 {
		t.Errorf("gauge percent = %d, want capped at 100", d.progressGauge.Percent)
	}
}
