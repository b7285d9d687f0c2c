package logging

import (
	"fmt"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// consolePolicy admits only the markup the debug console emits.
var consolePolicy = func() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("div", "span", "time")
	p.AllowAttrs("class").Matching(bluemonday.SpaceSeparatedTokens).OnElements("div", "span")
	p.AllowAttrs("datetime").OnElements("time")
	return p
}()

// RenderHTML renders entries as the on-page debug console. Messages are
// escaped and the result is passed through a strict sanitizer, so sandbox
// output can never inject markup into the host page.
func RenderHTML(entries []Entry) string {
	var b strings.Builder
	b.WriteString(`<div class="debug-console">`)
	for _, e := range entries {
		fmt.Fprintf(&b, `<div class="debug-entry debug-%s"><time datetime="%s">%s</time> <span class="debug-message">%s</span></div>`,
			e.Level.String(),
			e.Time.UTC().Format("2006-01-02T15:04:05Z07:00"),
			e.Time.Format("15:04:05"),
			html.EscapeString(e.Message),
		)
	}
	b.WriteString(`</div>`)
	return consolePolicy.Sanitize(b.String())
}
