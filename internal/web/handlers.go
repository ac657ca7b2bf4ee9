package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/JonMunkholm/aibox/internal/core"
	"github.com/JonMunkholm/aibox/internal/logging"
	"github.com/JonMunkholm/aibox/internal/web/templates"
)

// multipartOverhead is allowed on top of the file size limit for the form
// envelope.
const multipartOverhead = 1 << 20

// stateResponse is the JSON form of a session and its presented view.
type stateResponse struct {
	SessionID   string            `json:"session_id"`
	Mode        core.Mode         `json:"mode"`
	Options     core.OptionSet    `json:"options"`
	File        *fileResponse     `json:"file,omitempty"`
	Phase       core.Phase        `json:"phase"`
	Busy        bool              `json:"busy"`
	CanSubmit   bool              `json:"can_submit"`
	Error       *core.UserMessage `json:"error,omitempty"`
	DownloadURL string            `json:"download_url,omitempty"`
	ShareURL    string            `json:"share_url,omitempty"`
	SampleURL   string            `json:"sample_url,omitempty"`
	Summary     json.RawMessage   `json:"summary,omitempty"`
}

type fileResponse struct {
	Name string `json:"name"`
	core.FileInfo
}

func newStateResponse(id string, v core.View) stateResponse {
	resp := stateResponse{
		SessionID:   id,
		Mode:        v.Mode,
		Options:     v.Options,
		Phase:       v.Phase,
		Busy:        v.Busy,
		CanSubmit:   v.CanSubmit,
		Error:       v.Error,
		DownloadURL: v.DownloadURL,
		ShareURL:    v.ShareURL,
		SampleURL:   v.SampleURL,
		Summary:     v.Summary,
	}
	if v.File != nil {
		resp.File = &fileResponse{Name: v.FileName, FileInfo: *v.File}
	}
	return resp
}

// view presents the request's session.
func (s *Server) view(r *http.Request) (*core.Session, core.View) {
	sess := sessionFrom(r.Context())
	return sess, core.Present(sess.Snapshot(), s.baseURL)
}

// handlePage renders the workflow page.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	_, v := s.view(r)
	if isHTMX(r) {
		render(w, r, http.StatusOK, templates.Workflow(v, nil))
		return
	}
	render(w, r, http.StatusOK, templates.Page(v, nil))
}

// handleState returns the session state as JSON.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	sess, v := s.view(r)
	writeJSON(w, http.StatusOK, newStateResponse(sess.ID(), v))
}

// handleHealth reports liveness and whether the service location is set.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":             "ok",
		"service_configured": s.baseURL != "",
		"sessions":           s.sessions.Count(),
	})
}

// handleSetMode switches the processing mode.
func (s *Server) handleSetMode(w http.ResponseWriter, r *http.Request) {
	mode, err := core.ParseMode(r.FormValue("mode"))
	if err != nil {
		s.respondMutation(w, r, err, http.StatusBadRequest)
		return
	}
	sessionFrom(r.Context()).SetMode(mode)
	s.respondMutation(w, r, nil, http.StatusOK)
}

// handleSetOptions applies option fields from the form. Fields that are
// absent keep their value; invalid values are ignored.
func (s *Server) handleSetOptions(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.respondError(w, r, fmt.Errorf("parse options form: %w", err), http.StatusBadRequest)
		return
	}
	sessionFrom(r.Context()).Update(func(o *core.OptionStore) {
		applyOptions(o, r.PostForm)
	})
	s.respondMutation(w, r, nil, http.StatusOK)
}

// handleSelectFile stores the uploaded file as the session's selection.
func (s *Server) handleSelectFile(w http.ResponseWriter, r *http.Request) {
	maxSize := s.cfg.Upload.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			err = fmt.Errorf("%w: request exceeds %d bytes", core.ErrFileTooLarge, mbe.Limit)
		} else {
			err = fmt.Errorf("%w: %v", core.ErrUnreadableFile, err)
		}
		s.respondMutation(w, r, err, http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondMutation(w, r, core.ErrNoFileSelected, http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxSize+1))
	if err != nil {
		s.respondMutation(w, r, fmt.Errorf("%w: %v", core.ErrUnreadableFile, err), http.StatusBadRequest)
		return
	}

	if _, err := sessionFrom(r.Context()).SelectFile(header.Filename, data); err != nil {
		s.respondMutation(w, r, err, http.StatusBadRequest)
		return
	}
	s.respondMutation(w, r, nil, http.StatusOK)
}

// handleClearFile drops the session's selection.
func (s *Server) handleClearFile(w http.ResponseWriter, r *http.Request) {
	sessionFrom(r.Context()).ClearFile()
	s.respondMutation(w, r, nil, http.StatusOK)
}

// handleSubmit sends the selected file and waits for the outcome. The
// outcome, success or failure, is recorded in the session state; only a
// submit that overlaps an outstanding one is reported as an error.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	logger := logging.WithFields(r.Context(), "mode", sess.Mode())

	err := sess.Submit(r.Context())
	switch {
	case errors.Is(err, core.ErrSubmitInFlight):
		logger.Info("submit ignored, already in flight")
		s.respondMutation(w, r, err, http.StatusConflict)
	case err != nil:
		logger.Info("submit finished with error", "code", core.MapError(err).Code)
		s.respondMutation(w, r, nil, http.StatusOK)
	default:
		s.respondMutation(w, r, nil, http.StatusOK)
	}
}

// respondMutation answers a state-changing request. JSON clients get the new
// state; htmx gets the workflow fragment; plain forms are redirected back to
// the page on success. A rejected mutation renders the page with a notice
// instead of redirecting so the message is not lost.
func (s *Server) respondMutation(w http.ResponseWriter, r *http.Request, err error, status int) {
	var notice *core.UserMessage
	if err != nil {
		msg := core.MapError(err)
		notice = &msg
		logging.FromContext(r.Context()).Info("request rejected",
			"path", r.URL.Path,
			"status", status,
			"error", err,
			"code", msg.Code,
		)
	}

	sess, v := s.view(r)
	switch {
	case wantsJSON(r):
		if notice != nil {
			respondErrorJSON(w, *notice, status)
			return
		}
		writeJSON(w, status, newStateResponse(sess.ID(), v))
	case isHTMX(r):
		render(w, r, status, templates.Workflow(v, notice))
	case notice == nil:
		http.Redirect(w, r, "/", http.StatusSeeOther)
	default:
		render(w, r, status, templates.Page(v, notice))
	}
}

// boolOption pairs a form field with its option setter.
type boolOption struct {
	field string
	set   func(*core.OptionStore, bool)
}

var boolOptions = []boolOption{
	{"drop_dupes", (*core.OptionStore).SetDropDuplicates},
	{"drop_negative_qty", (*core.OptionStore).SetDropNegativeQuantity},
	{"flag_due_issue", (*core.OptionStore).SetFlagDueBeforeIssue},
}

// applyOptions feeds raw form values through the option setters.
//
// An HTML checkbox is absent from the form when unchecked; the page lists its
// rendered checkboxes in "checkboxes" so an absent one reads as false.
func applyOptions(o *core.OptionStore, form url.Values) {
	if form.Has("fmt") {
		o.SetExportFormat(form.Get("fmt"))
	}
	if form.Has("fuzzy") {
		o.SetFuzzyMatchThreshold(form.Get("fuzzy"))
	}
	if form.Has("days_expiring") {
		o.SetDaysExpiring(form.Get("days_expiring"))
	}

	rendered := map[string]bool{}
	for _, name := range strings.Split(form.Get("checkboxes"), ",") {
		if name = strings.TrimSpace(name); name != "" {
			rendered[name] = true
		}
	}

	for _, opt := range boolOptions {
		values, ok := form[opt.field]
		switch {
		case ok && len(values) > 0:
			if b, valid := core.ParseFlag(values[len(values)-1]); valid {
				opt.set(o, b)
			}
		case rendered[opt.field]:
			opt.set(o, false)
		}
	}
}
