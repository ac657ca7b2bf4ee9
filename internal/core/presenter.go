package core

import (
	"bytes"
	"encoding/json"
	"net/url"
	"strings"
)

// View is what a frontend renders for a session. It is derived from a
// Snapshot and the service base location only.
type View struct {
	Mode      Mode
	Options   OptionSet
	FileName  string
	File      *FileInfo
	Phase     Phase
	Busy      bool
	CanSubmit bool
	Error     *UserMessage

	DownloadURL string
	ShareURL    string
	SampleURL   string

	// Summary is the service's summary verbatim. SummaryText is the same
	// value re-indented for display.
	Summary     json.RawMessage
	SummaryText string
}

// Present derives the view of a session. It has no side effects.
// An empty baseURL yields the misconfiguration error and no links.
func Present(snap Snapshot, baseURL string) View {
	v := View{
		Mode:     snap.Mode,
		Options:  snap.Options,
		FileName: snap.FileName,
		File:     snap.File,
		Phase:    snap.State.Phase,
		Busy:     snap.State.Busy(),
	}
	v.CanSubmit = snap.File != nil && !v.Busy

	if snap.State.Phase == PhaseFailed && snap.State.Err != nil {
		msg := MapError(snap.State.Err)
		v.Error = &msg
	}

	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		msg := misconfiguredMessage
		v.Error = &msg
		v.CanSubmit = false
		return v
	}

	v.SampleURL = SampleURL(base, snap.Mode)

	if snap.State.Phase != PhaseSucceeded || snap.State.Result == nil {
		return v
	}

	res := snap.State.Result
	if res.DownloadToken != "" {
		v.DownloadURL = DownloadURL(base, res.DownloadToken)
	}
	if res.ShareURL != "" {
		v.ShareURL = ShareURL(base, res.ShareURL)
	}
	if len(res.Summary) > 0 {
		v.Summary = res.Summary
		v.SummaryText = indentJSON(res.Summary)
	}
	return v
}

// DownloadURL builds the download reference for a token.
func DownloadURL(base, token string) string {
	return strings.TrimRight(base, "/") + "/api/download/" + url.PathEscape(token)
}

// ShareURL joins the base with the server-relative share path.
func ShareURL(base, sharePath string) string {
	if !strings.HasPrefix(sharePath, "/") {
		sharePath = "/" + sharePath
	}
	return strings.TrimRight(base, "/") + sharePath
}

// SampleURL builds the sample file reference for a mode.
func SampleURL(base string, m Mode) string {
	return strings.TrimRight(base, "/") + m.SamplePath()
}

func indentJSON(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}
