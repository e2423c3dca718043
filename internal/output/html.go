package output

import (
	"fmt"
	"html/template"
	"io"
	"time"
)

// htmlData is the flattened view the HTML template renders.
type htmlData struct {
	GeneratedAt string
	Report      Report
	Target      string
}

// GenerateHTMLReport writes a standalone HTML rendition of the report.
func GenerateHTMLReport(w io.Writer, report Report, target string) error {
	tmpl, err := template.New("report").Funcs(template.FuncMap{
		"duration": func(d time.Duration) string {
			return d.Round(time.Millisecond).String()
		},
		"float": func(f float64) string {
			return fmt.Sprintf("%.2f", f)
		},
		"percent": func(f float64) string {
			return fmt.Sprintf("%.1f", f*100)
		},
	}).Parse(htmlTemplate)
	if err != nil {
		return fmt.Errorf("parse report template: %w", err)
	}

	data := htmlData{
		GeneratedAt: time.Now().Format(time.RFC3339),
		Report:      report,
		Target:      target,
	}
	if err := tmpl.Execute(w, data); err != nil {
		return fmt.Errorf("render report template: %w", err)
	}
	return nil
}

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Rate Limit Probe Report</title>
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif;
            background: #f5f7fa;
            color: #2c3e50;
            line-height: 1.6;
            padding: 20px;
        }
        .container {
            max-width: 1100px;
            margin: 0 auto;
            background: white;
            border-radius: 8px;
            box-shadow: 0 2px 8px rgba(0,0,0,0.1);
            overflow: hidden;
        }
        header {
            background: linear-gradient(135deg, #667eea 0%, #764ba2 100%);
            color: white;
            padding: 30px 40px;
        }
        header h1 { font-size: 2rem; margin-bottom: 10px; }
        header .meta { opacity: 0.9; font-size: 0.9rem; }
        .content { padding: 40px; }
        .grid {
            display: grid;
            grid-template-columns: repeat(auto-fit, minmax(220px, 1fr));
            gap: 20px;
            margin-bottom: 40px;
        }
        .card {
            background: #f8f9fa;
            border-radius: 8px;
            padding: 20px;
            border-left: 4px solid #667eea;
        }
        .card h3 {
            font-size: 0.9rem;
            color: #6c757d;
            text-transform: uppercase;
            letter-spacing: 0.5px;
            margin-bottom: 10px;
        }
        .card .value { font-size: 2rem; font-weight: bold; color: #2c3e50; }
        .card .subvalue { font-size: 0.85rem; color: #6c757d; margin-top: 5px; }
        .card.success { border-left-color: #10b981; }
        .card.error { border-left-color: #ef4444; }
        .card.warning { border-left-color: #f59e0b; }
        .section { margin-bottom: 40px; }
        .section h2 {
            font-size: 1.5rem;
            margin-bottom: 20px;
            padding-bottom: 10px;
            border-bottom: 2px solid #e5e7eb;
        }
        table { width: 100%; border-collapse: collapse; background: white; }
        th, td { text-align: left; padding: 12px; border-bottom: 1px solid #e5e7eb; }
        th {
            background: #f8f9fa;
            font-weight: 600;
            color: #4b5563;
            font-size: 0.9rem;
            text-transform: uppercase;
            letter-spacing: 0.5px;
        }
        .badge {
            display: inline-block;
            padding: 4px 12px;
            border-radius: 12px;
            font-size: 0.85rem;
            font-weight: 600;
        }
        .badge-success { background: #d1fae5; color: #065f46; }
        .badge-error { background: #fee2e2; color: #991b1b; }
    </style>
</head>
<body>
    <div class="container">
        <header>
            <h1>Rate Limit Probe Report</h1>
            <div class="meta">
                Session {{.Report.Session.ID}} &middot; {{.Target}} &middot; generated {{.GeneratedAt}}
                {{if .Report.Session.Partial}} &middot; partial session{{end}}
            </div>
        </header>
        <div class="content">
            <div class="grid">
                <div class="card">
                    <h3>Attempts</h3>
                    <div class="value">{{.Report.Stats.Total}}</div>
                    <div class="subvalue">profile {{.Report.Session.Plan.Profile}}, {{.Report.Session.Plan.Workers}} worker(s)</div>
                </div>
                <div class="card success">
                    <h3>Success Rate</h3>
                    <div class="value">{{percent .Report.Stats.SuccessRate}}%</div>
                    <div class="subvalue">{{.Report.Stats.Successes}} successful</div>
                </div>
                <div class="card warning">
                    <h3>Rate Limited</h3>
                    <div class="value">{{.Report.Stats.RateLimited}}</div>
                </div>
                <div class="card error">
                    <h3>Errors</h3>
                    <div class="value">{{.Report.Stats.Errors}}</div>
                </div>
            </div>

            <div class="section">
                <h2>Limit Estimate</h2>
                {{if .Report.Inference.Determinate}}
                <table>
                    <tr><th>Threshold</th><td>~{{.Report.Inference.Threshold}} requests</td></tr>
                    <tr><th>Window</th><td>within {{duration .Report.Inference.Window}} of session start</td></tr>
                    <tr><th>Triggered at</th><td>attempt #{{.Report.Inference.TriggerIndex}}</td></tr>
                </table>
                {{else}}
                <p>Indeterminate: no rate-limited response was observed.</p>
                {{end}}
            </div>

            <div class="section">
                <h2>Latency</h2>
                <table>
                    <tr>
                        <th>Min</th><th>Mean</th><th>P50</th><th>P90</th><th>P99</th><th>Max</th>
                    </tr>
                    <tr>
                        <td>{{duration .Report.Stats.MinLatency}}</td>
                        <td>{{duration .Report.Stats.MeanLatency}}</td>
                        <td>{{duration .Report.Stats.P50Latency}}</td>
                        <td>{{duration .Report.Stats.P90Latency}}</td>
                        <td>{{duration .Report.Stats.P99Latency}}</td>
                        <td>{{duration .Report.Stats.MaxLatency}}</td>
                    </tr>
                </table>
            </div>

            {{if .Report.Assertions}}
            <div class="section">
                <h2>Assertions</h2>
                <table>
                    <tr><th>Expression</th><th>Actual</th><th>Result</th></tr>
                    {{range .Report.Assertions}}
                    <tr>
                        <td>{{.Expression}}</td>
                        <td>{{float .Actual}}</td>
                        <td>
                            {{if .Pass}}<span class="badge badge-success">pass</span>
                            {{else}}<span class="badge badge-error">fail</span>{{end}}
                        </td>
                    </tr>
                    {{end}}
                </table>
            </div>
            {{end}}
        </div>
    </div>
</body>
</html>
`
