// Package dashboard renders a live terminal UI for a probing session.
package dashboard

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"

	"github.com/jperros/limitprobe/internal/config"
	"github.com/jperros/limitprobe/internal/metrics"
)

// SessionInfo holds the probe parameters shown in the header.
type SessionInfo struct {
	Target string
	Plan   config.Plan
}

// Dashboard draws live session metrics with termui. Pressing q or Ctrl-C
// invokes the shutdown function, which is expected to cancel the session.
type Dashboard struct {
	aggregator   *metrics.Aggregator
	info         SessionInfo
	ctx          context.Context
	cancel       context.CancelFunc
	shutdownFunc func()
	wg           sync.WaitGroup
	mu           sync.Mutex

	grid           *ui.Grid
	summaryPara    *widgets.Paragraph
	progressGauge  *widgets.Gauge
	classPara      *widgets.Paragraph
	latencySparkle *widgets.SparklineGroup
	latencyPara    *widgets.Paragraph
	errorList      *widgets.List
	latencyHistory []float64
	startTime      time.Time
}

// New initializes the terminal UI. The caller must Stop the dashboard to
// restore the terminal.
func New(aggregator *metrics.Aggregator, info SessionInfo, shutdownFunc func()) (*Dashboard, error) {
	if err := ui.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize termui: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	d := &Dashboard{
		aggregator:     aggregator,
		info:           info,
		ctx:            ctx,
		cancel:         cancel,
		shutdownFunc:   shutdownFunc,
		latencyHistory: make([]float64, 0, 100),
		startTime:      time.Now(),
	}

	d.initWidgets()
	d.setupGrid()

	return d, nil
}

func (d *Dashboard) initWidgets() {
	d.summaryPara = widgets.NewParagraph()
	d.summaryPara.Title = "Probe Session"
	d.summaryPara.Text = "Initializing..."
	d.summaryPara.BorderStyle.Fg = ui.ColorCyan

	d.progressGauge = widgets.NewGauge()
	d.progressGauge.Title = "Attempts"
	d.progressGauge.Percent = 0
	d.progressGauge.BarColor = ui.ColorBlue
	d.progressGauge.BorderStyle.Fg = ui.ColorCyan
	d.progressGauge.LabelStyle = ui.NewStyle(ui.ColorWhite)

	d.classPara = widgets.NewParagraph()
	d.classPara.Title = "Responses"
	d.classPara.Text = "Waiting for data..."
	d.classPara.BorderStyle.Fg = ui.ColorCyan

	sparkline := widgets.NewSparkline()
	sparkline.Title = "Latency (ms)"
	sparkline.LineColor = ui.ColorGreen
	sparkline.Data = []float64{0}

	d.latencySparkle = widgets.NewSparklineGroup(sparkline)
	d.latencySparkle.Title = "Real-time Latency"
	d.latencySparkle.BorderStyle.Fg = ui.ColorCyan

	d.latencyPara = widgets.NewParagraph()
	d.latencyPara.Title = "Latency Stats"
	d.latencyPara.Text = "Min: 0ms\nMean: 0ms\nP50: 0ms\nP90: 0ms\nP99: 0ms"
	d.latencyPara.BorderStyle.Fg = ui.ColorCyan

	d.errorList = widgets.NewList()
	d.errorList.Title = "Errors"
	d.errorList.Rows = []string{"No errors"}
	d.errorList.TextStyle = ui.NewStyle(ui.ColorYellow)
	d.errorList.BorderStyle.Fg = ui.ColorCyan
}

func (d *Dashboard) setupGrid() {
	termWidth, termHeight := ui.TerminalDimensions()

	d.grid = ui.NewGrid()
	d.grid.SetRect(0, 0, termWidth, termHeight)

	d.grid.Set(
		ui.NewRow(0.2,
			ui.NewCol(1.0, d.summaryPara),
		),
		ui.NewRow(0.2,
			ui.NewCol(0.5, d.progressGauge),
			ui.NewCol(0.5, d.classPara),
		),
		ui.NewRow(0.3,
			ui.NewCol(0.65, d.latencySparkle),
			ui.NewCol(0.35, d.latencyPara),
		),
		ui.NewRow(0.3,
			ui.NewCol(1.0, d.errorList),
		),
	)
}

// Start begins the update loop.
func (d *Dashboard) Start() {
	d.wg.Add(1)
	go d.run()
}

// Stop ends the update loop and restores the terminal.
func (d *Dashboard) Stop() {
	d.cancel()
	d.wg.Wait()
	ui.Close()
	// Give terminal time to restore
	time.Sleep(100 * time.Millisecond)
}

func (d *Dashboard) run() {
	defer d.wg.Done()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	uiEvents := ui.PollEvents()

	d.render()

	for {
		select {
		case <-d.ctx.Done():
			for len(uiEvents) > 0 {
				<-uiEvents
			}
			return
		case e := <-uiEvents:
			select {
			case <-d.ctx.Done():
				return
			default:
			}

			switch e.ID {
			case "q", "<C-c>":
				if d.shutdownFunc != nil {
					d.shutdownFunc()
				}
				// Wait for Stop() to cancel the context
			case "<Resize>":
				payload := e.Payload.(ui.Resize)
				d.grid.SetRect(0, 0, payload.Width, payload.Height)
				ui.Clear()
				d.render()
			}
		case <-ticker.C:
			d.update()
			d.render()
		}
	}
}

func (d *Dashboard) update() {
	d.mu.Lock()
	defer d.mu.Unlock()

	elapsed := time.Since(d.startTime)
	stats := d.aggregator.Stats(elapsed)

	if stats.MeanLatency > 0 {
		latencyMs := stats.MeanLatencyMs
		d.latencyHistory = append(d.latencyHistory, latencyMs)
		if len(d.latencyHistory) > 100 {
			d.latencyHistory = d.latencyHistory[1:]
		}
		d.latencySparkle.Sparklines[0].Data = d.latencyHistory
		d.latencySparkle.Title = fmt.Sprintf(
			"Real-time Latency | Current: %.2fms | Min: %.2fms | Max: %.2fms",
			latencyMs,
			stats.MinLatencyMs,
			stats.MaxLatencyMs,
		)
	}

	planned := d.info.Plan.Attempts
	percent := 0
	if planned > 0 {
		percent = int(float64(stats.Total) / float64(planned) * 100)
		if percent > 100 {
			percent = 100
		}
	}
	d.progressGauge.Percent = percent
	d.progressGauge.Label = fmt.Sprintf("%d/%d attempts", stats.Total, planned)

	limitLine := "Limit: not yet observed"
	if stats.FirstFailure != nil {
		limitLine = fmt.Sprintf("First failure: attempt #%d (%s) after %d successes",
			stats.FirstFailure.Index, stats.FirstFailure.Class, stats.RequestsBeforeFirstFailure)
	}

	d.summaryPara.Text = fmt.Sprintf(
		"Target: %s\nProfile: %s | Delay: %s | Workers: %d\nElapsed: %s | RPS: %.2f\n%s",
		d.info.Target,
		d.info.Plan.Profile,
		d.info.Plan.Delay,
		d.info.Plan.Workers,
		elapsed.Round(time.Second),
		stats.RequestsPerSec,
		limitLine,
	)

	d.classPara.Text = fmt.Sprintf(
		"Successful:     %d\nRate Limited:   %d\nErrors:         %d\nUnclassified:   %d\nSuccess Rate:   %.1f%%",
		stats.Successes,
		stats.RateLimited,
		stats.Errors,
		stats.Unknowns,
		stats.SuccessRate*100,
	)

	d.latencyPara.Text = fmt.Sprintf(
		"Min:  %.2fms\nMean: %.2fms\nP50:  %.2fms\nP90:  %.2fms\nP99:  %.2fms",
		stats.MinLatencyMs,
		stats.MeanLatencyMs,
		stats.P50LatencyMs,
		stats.P90LatencyMs,
		stats.P99LatencyMs,
	)

	d.errorList.Rows = formatErrorRows(stats.ErrorBreakdown)
}

func (d *Dashboard) render() {
	d.mu.Lock()
	defer d.mu.Unlock()

	ui.Render(d.grid)
}

func formatErrorRows(breakdown map[string]int) []string {
	if len(breakdown) == 0 {
		return []string{"[No errors](fg:green)"}
	}
	types := make([]string, 0, len(breakdown))
	for errorType := range breakdown {
		types = append(types, errorType)
	}
	sort.Slice(types, func(i, j int) bool {
		if breakdown[types[i]] != breakdown[types[j]] {
			return breakdown[types[i]] > breakdown[types[j]]
		}
		return types[i] < types[j]
	})
	rows := make([]string, 0, len(types))
	for _, errorType := range types {
		rows = append(rows, fmt.Sprintf("%s: %d", metrics.FriendlyErrorName(errorType), breakdown[errorType]))
	}
	return rows
}
