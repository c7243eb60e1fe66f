package report

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/eslutsky/microshift-misc/pkg/api"
)

const matrixPage = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Title}}</title>
<style>
body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; max-width: 1200px; margin: 0 auto; padding: 20px; background-color: #f8f9fa; }
.header { background: linear-gradient(135deg, #667eea 0%, #764ba2 100%); color: white; padding: 20px; border-radius: 8px; margin-bottom: 20px; }
.count-table { width: 100%; border-collapse: collapse; background: white; box-shadow: 0 2px 4px rgba(0,0,0,0.1); border-radius: 8px; overflow: hidden; }
.count-table th, .count-table td { padding: 12px 15px; text-align: left; border-bottom: 1px solid #ddd; }
.count-table th { background: linear-gradient(135deg, #667eea 0%, #764ba2 100%); color: white; }
.count-table tr:nth-child(even) { background-color: #f8f9fa; }
.count { text-align: center; font-weight: bold; }
.count.zero { color: #28a745; }
.count.low { color: #0969da; }
.count.medium { color: #bf8700; }
.count.high { color: #d1242f; }
.count a { color: inherit; text-decoration: none; }
.job-name { font-weight: bold; }
.timestamp { text-align: right; color: #656d76; font-size: 14px; margin-top: 20px; }
</style>
</head>
<body>
<div class="header">
<h1>{{.Title}}</h1>
<small><p>Releases: {{range $i, $r := .Matrix.Releases}}{{if $i}}, {{end}}{{$r}}{{end}} | Time window: {{.HoursBack}}h</p></small>
</div>
<table class="count-table">
<thead>
<tr><th>Job Name</th>{{range .Matrix.Releases}}<th>v{{.}}</th>{{end}}</tr>
</thead>
<tbody>
{{range $job := .Matrix.JobNames}}<tr><td class="job-name">{{$job}}</td>{{range $release := $.Matrix.Releases}}{{with $cell := index $.Matrix.Matrix $release $job}}<td class="count {{severity $cell.TotalFailures}}">{{if $cell.LatestFailure}}{{if $cell.LatestFailure.DetailLink}}<a href="{{$cell.LatestFailure.DetailLink}}" target="_blank" rel="noopener noreferrer" title="Build {{$cell.LatestFailure.ID}} - {{$cell.LatestFailure.Started}}">{{$cell.TotalFailures}}</a>{{else}}{{$cell.TotalFailures}}{{end}}{{else}}{{$cell.TotalFailures}}{{end}}</td>{{end}}{{end}}</tr>
{{end}}</tbody>
</table>
<div class="timestamp">Generated {{.Timestamp}} | processed={{.Matrix.Stats.Processed}} succeeded={{.Matrix.Stats.Succeeded}} failed={{.Matrix.Stats.Failed}}</div>
</body>
</html>
`

var matrixTemplate = template.Must(template.New("matrix").Funcs(template.FuncMap{
	"severity": severityClass,
}).Parse(matrixPage))

// severityClass buckets a failure count into the CSS classes the table uses.
func severityClass(count int) string {
	switch {
	case count == 0:
		return "zero"
	case count <= 2:
		return "low"
	case count <= 5:
		return "medium"
	default:
		return "high"
	}
}

type matrixPageData struct {
	Title     string
	HoursBack int
	Matrix    api.ReleaseMatrix
	Timestamp string
}

// WriteMatrixHTML renders the release matrix as a standalone HTML page.
func WriteMatrixHTML(w io.Writer, matrix api.ReleaseMatrix, hoursBack int) error {
	data := matrixPageData{
		Title:     "MicroShift Multi-Release Failure Count",
		HoursBack: hoursBack,
		Matrix:    matrix,
		Timestamp: time.Now().Format("2006-01-02 15:04:05"),
	}
	if err := matrixTemplate.Execute(w, data); err != nil {
		return fmt.Errorf("could not render matrix page: %w", err)
	}
	return nil
}
