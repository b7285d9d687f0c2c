package harness

import (
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/klauspost/compress/gzip"
)

// WriteJSON writes the report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	data, err := sonic.ConfigStd.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// WriteHTML renders the report as a standalone HTML page.
func (r *Report) WriteHTML(w io.Writer) error {
	if err := reportTemplate.Execute(w, r); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}

// WriteSummary writes a short plain-text summary.
func (r *Report) WriteSummary(w io.Writer) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Security score: %.1f (%s)\n", r.Summary.SecurityScore, r.Summary.Assessment)
	fmt.Fprintf(&b, "Detection rate: %.1f%% (%d/%d malicious blocked)\n",
		r.Effectiveness.DetectionRate*100, r.Effectiveness.Blocked, r.Effectiveness.Total)
	fmt.Fprintf(&b, "False positive rate: %.1f%% (%d/%d benign blocked)\n",
		r.FalsePositive.FalsePositives*100, r.FalsePositive.Blocked, r.FalsePositive.Total)
	fmt.Fprintf(&b, "Passed: %d/%d, avg %.2fms\n", r.Summary.Passed, r.Summary.Total, r.Summary.AvgExecutionMS)

	for _, gap := range r.CriticalGaps {
		fmt.Fprintf(&b, "  GAP  %s [%s]\n", gap.Name, gap.Category)
	}
	for _, fp := range r.FalsePositives {
		fmt.Fprintf(&b, "  FP   %s [%s]\n", fp.Name, fp.Category)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// Save writes the report to path. The format follows the extension
// (.json or .html); a trailing .gz compresses the output.
func (r *Report) Save(path string) (err error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create report dir: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	var w io.Writer = f
	name := path
	if strings.HasSuffix(name, ".gz") {
		gz := gzip.NewWriter(f)
		defer func() {
			if cerr := gz.Close(); err == nil {
				err = cerr
			}
		}()
		w = gz
		name = strings.TrimSuffix(name, ".gz")
	}

	switch strings.ToLower(filepath.Ext(name)) {
	case ".html", ".htm":
		return r.WriteHTML(w)
	case ".json":
		return r.WriteJSON(w)
	default:
		return r.WriteSummary(w)
	}
}

var reportTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"pct": func(v float64) string { return fmt.Sprintf("%.1f%%", v*100) },
}).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Security conformance report</title>
<style>
body { font-family: sans-serif; margin: 2em; }
table { border-collapse: collapse; }
td, th { border: 1px solid #ccc; padding: 4px 8px; }
.pass { color: #2a7a2a; }
.fail { color: #b02020; }
pre { background: #f4f4f4; padding: 4px; }
</style>
</head>
<body>
<h1>Security conformance report</h1>
<p>Generated {{.GeneratedAt.Format "2006-01-02 15:04:05 UTC"}}</p>
<h2>Score: {{printf "%.1f" .Summary.SecurityScore}} ({{.Summary.Assessment}})</h2>
<ul>
<li>Detection rate: {{pct .Effectiveness.DetectionRate}} ({{.Effectiveness.Blocked}}/{{.Effectiveness.Total}})</li>
<li>False positive rate: {{pct .FalsePositive.FalsePositives}} ({{.FalsePositive.Blocked}}/{{.FalsePositive.Total}})</li>
<li>Passed: {{.Summary.Passed}}/{{.Summary.Total}}</li>
</ul>
<h2>Categories</h2>
<table>
<tr><th>Category</th><th>Total</th><th>Passed</th><th>Failed</th></tr>
{{range .Categories}}<tr><td>{{.Category}}</td><td>{{.Total}}</td><td class="pass">{{.Passed}}</td><td class="fail">{{.Failed}}</td></tr>
{{end}}</table>
{{if .CriticalGaps}}<h2>Critical gaps</h2>
{{range .CriticalGaps}}<h3>{{.Name}} [{{.Category}}]</h3>
<p>{{.Description}}</p>
<pre>{{.CodeSample}}</pre>
{{end}}{{end}}
{{if .FalsePositives}}<h2>False positives</h2>
{{range .FalsePositives}}<h3>{{.Name}} [{{.Category}}]</h3>
<pre>{{.CodeSample}}</pre>
{{range $cat, $vs := .Violations}}{{range $vs}}<p class="fail">{{$cat}}: line {{.Line}}: {{.Message}}</p>
{{end}}{{end}}{{end}}{{end}}
</body>
</html>
`))
