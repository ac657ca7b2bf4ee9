package templates

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/aibox/internal/core"
)

const styles = `body{font-family:system-ui,sans-serif;max-width:48rem;margin:2rem auto;padding:0 1rem;color:#1f2937}
nav form{display:inline}nav button{padding:.4rem 1rem;border:1px solid #d1d5db;background:#fff;cursor:pointer}
nav button[aria-current]{background:#1f2937;color:#fff}fieldset{border:1px solid #e5e7eb;margin:1rem 0}
.alert{border-left:4px solid #dc2626;background:#fef2f2;padding:.75rem;margin:1rem 0}.alert small{color:#6b7280}
.result a{display:inline-block;margin-right:1rem}pre{background:#f9fafb;padding:.75rem;overflow:auto}`

// Layout wraps body in the HTML document.
func Layout(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newHTML(ctx, w)
		h.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		h.raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		h.raw(`<title>`)
		h.text(title)
		h.raw(`</title><style>` + styles + `</style></head><body><h1>AI Box</h1>`)
		h.component(body)
		h.raw(`</body></html>`)
		return h.err
	})
}

// Page renders the full cleaning workflow page.
func Page(v core.View, notice *core.UserMessage) templ.Component {
	return Layout("AI Box - "+v.Mode.Label(), Workflow(v, notice))
}

// ErrorPage renders a full page holding only msg.
func ErrorPage(msg core.UserMessage) templ.Component {
	return Layout("AI Box - "+msg.Message, ErrorAlert(msg.Message, msg.Action, msg.Code))
}

// ErrorAlert renders a user-facing error with its support code.
func ErrorAlert(message, action, code string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newHTML(ctx, w)
		h.rawf(`<div class="alert" role="alert" data-code="%s"><strong>`, attr(code))
		h.text(message)
		h.raw(`</strong>`)
		if action != "" {
			h.raw(`<p>`)
			h.text(action)
			h.raw(`</p>`)
		}
		if code != "" {
			h.raw(`<small>Code: `)
			h.text(code)
			h.raw(`</small>`)
		}
		h.raw(`</div>`)
		return h.err
	})
}

// Workflow renders the swappable part of the page.
func Workflow(v core.View, notice *core.UserMessage) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newHTML(ctx, w)
		h.rawf(`<section id="workflow" data-phase="%s" data-mode="%s">`, attr(string(v.Phase)), attr(string(v.Mode)))

		modeTabs(h, v.Mode)

		if notice != nil {
			h.component(ErrorAlert(notice.Message, notice.Action, notice.Code))
		}
		if v.Error != nil {
			h.component(ErrorAlert(v.Error.Message, v.Error.Action, v.Error.Code))
		}

		optionsForm(h, v)
		fileForm(h, v)
		submitForm(h, v)
		result(h, v)

		if v.SampleURL != "" {
			h.rawf(`<p><a class="sample" href="%s">Download a sample %s file</a></p>`,
				href(v.SampleURL), attr(strings.ToLower(v.Mode.Label())))
		}

		h.raw(`</section>`)
		return h.err
	})
}

func modeTabs(h *html, active core.Mode) {
	h.raw(`<nav><form method="post" action="/mode">`)
	for _, m := range core.Modes {
		current := ""
		if m == active {
			current = ` aria-current="page"`
		}
		h.rawf(`<button type="submit" name="mode" value="%s"%s>%s</button>`,
			attr(string(m)), current, attr(m.Label()))
	}
	h.raw(`</form></nav>`)
}

func optionsForm(h *html, v core.View) {
	o := v.Options
	h.raw(`<form method="post" action="/options"><fieldset><legend>Options</legend>`)

	h.raw(`<label>Export format <select name="fmt">`)
	for _, f := range []core.ExportFormat{core.FormatCSV, core.FormatXLSX} {
		h.rawf(`<option value="%s"%s>%s</option>`, attr(string(f)), selected(o.ExportFormat == f), attr(strings.ToUpper(string(f))))
	}
	h.raw(`</select></label>`)

	var boxes []string
	switch v.Mode {
	case core.ModeStock:
		numberInput(h, "days_expiring", "Days until expiring", o.DaysExpiring, core.MinDaysExpiring, -1)
		checkbox(h, "drop_negative_qty", "Drop negative quantities", o.DropNegativeQuantity)
		boxes = []string{"drop_negative_qty"}
	default:
		numberInput(h, "fuzzy", "Fuzzy match threshold", o.FuzzyMatchThreshold, core.MinFuzzyThreshold, core.MaxFuzzyThreshold)
		checkbox(h, "drop_dupes", "Drop duplicates", o.DropDuplicates)
		checkbox(h, "drop_negative_qty", "Drop negative quantities", o.DropNegativeQuantity)
		checkbox(h, "flag_due_issue", "Flag due date before issue date", o.FlagDueBeforeIssue)
		boxes = []string{"drop_dupes", "drop_negative_qty", "flag_due_issue"}
	}

	h.rawf(`<input type="hidden" name="checkboxes" value="%s">`, attr(strings.Join(boxes, ",")))
	h.raw(`<button type="submit">Save options</button></fieldset></form>`)
}

func numberInput(h *html, name, label string, value, min, max int) {
	bounds := fmt.Sprintf(` min="%d"`, min)
	if max >= 0 {
		bounds += fmt.Sprintf(` max="%d"`, max)
	}
	h.rawf(`<label>%s <input type="number" name="%s" value="%s"%s></label>`,
		attr(label), attr(name), strconv.Itoa(value), bounds)
}

func checkbox(h *html, name, label string, on bool) {
	h.rawf(`<label><input type="checkbox" name="%s" value="true"%s> %s</label>`,
		attr(name), checked(on), attr(label))
}

func fileForm(h *html, v core.View) {
	h.raw(`<form method="post" action="/file" enctype="multipart/form-data"><fieldset><legend>File</legend>`)
	h.raw(`<input type="file" name="file" accept=".csv,.xlsx" required> <button type="submit">Choose</button>`)
	h.raw(`</fieldset></form>`)

	if v.File == nil {
		return
	}
	h.raw(`<div class="file"><strong>`)
	h.text(v.FileName)
	h.rawf(`</strong> %s, %d rows`, attr(strings.ToUpper(string(v.File.Kind))), v.File.Rows)
	if len(v.File.Sheets) > 0 {
		h.raw(`, sheet `)
		h.text(v.File.Sheets[0])
	}
	if len(v.File.Headers) > 0 {
		h.raw(`<br><small>Columns: `)
		h.text(strings.Join(v.File.Headers, ", "))
		h.raw(`</small>`)
	}
	h.rawf(`<form method="post" action="/file/clear"><button type="submit"%s>Remove</button></form></div>`, disabled(v.Busy))
}

func submitForm(h *html, v core.View) {
	label := "Clean"
	if v.Busy {
		label = "Cleaning..."
	}
	h.rawf(`<form method="post" action="/submit"><button type="submit" class="submit"%s>%s</button></form>`,
		disabled(!v.CanSubmit), label)
}

func result(h *html, v core.View) {
	if v.Phase != core.PhaseSucceeded {
		return
	}
	h.raw(`<div class="result"><h2>Result</h2>`)
	if v.DownloadURL != "" {
		h.rawf(`<a class="download" href="%s">Download cleaned file</a>`, href(v.DownloadURL))
	}
	if v.ShareURL != "" {
		h.rawf(`<a class="share" href="%s">Share link</a>`, href(v.ShareURL))
	}
	if v.SummaryText != "" {
		h.raw(`<pre class="summary">`)
		h.text(v.SummaryText)
		h.raw(`</pre>`)
	}
	h.raw(`</div>`)
}
