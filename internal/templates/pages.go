package templates

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/a-h/templ"
)

const pageStyle = `body{font-family:system-ui,sans-serif;background:#f5f6f8;color:#1f2933;margin:0}` +
	`main{max-width:32rem;margin:12vh auto;padding:2rem;background:#fff;border-radius:8px;` +
	`box-shadow:0 1px 3px rgba(0,0,0,.12)}h1{font-size:1.4rem;margin-top:0}` +
	`.status{color:#7b8794;font-size:.85rem}a{color:#2563eb}`

// ErrorPage renders a standalone error document. All text is escaped.
func ErrorPage(props ErrorPageProps) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		title := props.Title
		if title == "" {
			title = http.StatusText(props.Status)
		}

		parts := []string{
			`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`,
			`<meta name="viewport" content="width=device-width, initial-scale=1">`,
			`<title>`, templ.EscapeString(title), ` - ReturnGuard</title>`,
			`<style>`, pageStyle, `</style></head><body><main>`,
			`<h1>`, templ.EscapeString(title), `</h1>`,
		}
		if props.Message != "" {
			parts = append(parts, `<p>`, templ.EscapeString(props.Message), `</p>`)
		}
		if props.ReturnURL != "" {
			parts = append(parts,
				`<p><a href="`, templ.EscapeString(props.ReturnURL), `">Try again</a></p>`)
		}
		if props.Status != 0 {
			parts = append(parts,
				`<p class="status">HTTP `, strconv.Itoa(props.Status), `</p>`)
		}
		parts = append(parts, `</main></body></html>`)

		for _, p := range parts {
			if _, err := io.WriteString(w, p); err != nil {
				return err
			}
		}
		return nil
	})
}
