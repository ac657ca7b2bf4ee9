package core

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Mode selects the cleaning pipeline on the remote service.
type Mode string

const (
	ModeInvoices Mode = "invoices"
	ModeStock    Mode = "stock"
)

// Modes lists every supported mode in display order.
var Modes = []Mode{ModeInvoices, ModeStock}

// ParseMode converts user input into a Mode (case-insensitive).
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeInvoices:
		return ModeInvoices, nil
	case ModeStock:
		return ModeStock, nil
	default:
		return "", fmt.Errorf("%w %q", ErrUnknownMode, s)
	}
}

// CleanPath returns the service path that accepts uploads for the mode.
// When legacy is set, invoices go to the unified /api/clean endpoint.
func (m Mode) CleanPath(legacy bool) string {
	switch m {
	case ModeStock:
		return "/api/stock/clean"
	default:
		if legacy {
			return "/api/clean"
		}
		return "/api/invoices/clean"
	}
}

// SamplePath returns the service path of the sample file for the mode.
func (m Mode) SamplePath() string {
	if m == ModeStock {
		return "/api/sample/stock"
	}
	return "/api/sample/invoices"
}

// Label returns the display name of the mode.
func (m Mode) Label() string {
	if m == ModeStock {
		return "Stock"
	}
	return "Invoices"
}

// ExportFormat is the file format the service produces.
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatXLSX ExportFormat = "xlsx"
)

// Phase indicates where the session's request lifecycle currently is.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseInFlight  Phase = "in_flight"
	PhaseSucceeded Phase = "succeeded"
	PhaseFailed    Phase = "failed"
)

// Result is the success payload returned by the cleaning service.
type Result struct {
	DownloadToken string          `json:"download_token,omitempty"`
	ShareURL      string          `json:"share_url,omitempty"`
	Summary       json.RawMessage `json:"summary,omitempty"`
}

// RequestState is the outcome of the most recent accepted submission.
// Result is set only when Phase is PhaseSucceeded, Err only when PhaseFailed.
type RequestState struct {
	Phase      Phase
	Result     *Result
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

// Busy reports whether a submission is outstanding.
func (s RequestState) Busy() bool {
	return s.Phase == PhaseInFlight
}

// CleanRequest is everything the service needs for one cleaning run.
// Path and Query are fully determined by the mode and option set.
type CleanRequest struct {
	Mode  Mode
	Path  string
	Query Query
	File  *SelectedFile
}

// Cleaner sends a file to the remote cleaning service.
// Implementations return *TransportError or *MalformedResponseError on failure.
type Cleaner interface {
	Clean(ctx context.Context, req CleanRequest) (Result, error)
}

// CleanerFunc adapts a function to the Cleaner interface.
type CleanerFunc func(ctx context.Context, req CleanRequest) (Result, error)

// Clean calls f(ctx, req).
func (f CleanerFunc) Clean(ctx context.Context, req CleanRequest) (Result, error) {
	return f(ctx, req)
}
