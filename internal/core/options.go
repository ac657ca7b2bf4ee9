package core

import (
	"strconv"
	"strings"
)

// Option bounds.
const (
	MinFuzzyThreshold = 0
	MaxFuzzyThreshold = 100
	MinDaysExpiring   = 0
)

// OptionSet is the user-configurable parameters for a cleaning request.
// Fields not applicable to the active mode are kept but never sent.
type OptionSet struct {
	ExportFormat         ExportFormat `json:"export_format"`
	FuzzyMatchThreshold  int          `json:"fuzzy_match_threshold"`  // invoices
	DropDuplicates       bool         `json:"drop_duplicates"`        // invoices
	DropNegativeQuantity bool         `json:"drop_negative_quantity"` // both
	FlagDueBeforeIssue   bool         `json:"flag_due_before_issue"`  // invoices
	DaysExpiring         int          `json:"days_expiring"`          // stock
}

// DefaultOptions returns the option set a new session starts with.
func DefaultOptions() OptionSet {
	return OptionSet{
		ExportFormat:         FormatCSV,
		FuzzyMatchThreshold:  90,
		DropDuplicates:       true,
		DropNegativeQuantity: false,
		FlagDueBeforeIssue:   true,
		DaysExpiring:         30,
	}
}

// Query builds the ordered query parameters for mode.
func (o OptionSet) Query(mode Mode) Query {
	q := Query{}
	q.Add("fmt", string(o.ExportFormat))

	switch mode {
	case ModeStock:
		q.Add("days_expiring", strconv.Itoa(o.DaysExpiring))
		q.Add("drop_negative_qty", strconv.FormatBool(o.DropNegativeQuantity))
	default:
		q.Add("fuzzy", strconv.Itoa(o.FuzzyMatchThreshold))
		q.Add("drop_dupes", strconv.FormatBool(o.DropDuplicates))
		q.Add("drop_negative_qty", strconv.FormatBool(o.DropNegativeQuantity))
		q.Add("flag_due_issue", strconv.FormatBool(o.FlagDueBeforeIssue))
	}
	return q
}

// OptionStore holds the current option set and processing mode.
// Setters validate raw input and never touch anything outside the store.
// OptionStore is not safe for concurrent use; Session serializes access.
type OptionStore struct {
	mode Mode
	opts OptionSet
}

// NewOptionStore returns a store in invoices mode with default options.
func NewOptionStore() *OptionStore {
	return &OptionStore{mode: ModeInvoices, opts: DefaultOptions()}
}

// Mode returns the active processing mode.
func (s *OptionStore) Mode() Mode { return s.mode }

// Options returns a copy of the current option set.
func (s *OptionStore) Options() OptionSet { return s.opts }

// SetMode switches the processing mode. Fields of the inactive mode keep
// their values.
func (s *OptionStore) SetMode(m Mode) {
	s.mode = m
}

// SetExportFormat accepts "csv" or "xlsx". Other input keeps the prior value.
func (s *OptionStore) SetExportFormat(raw string) ExportFormat {
	switch f := ExportFormat(strings.ToLower(strings.TrimSpace(raw))); f {
	case FormatCSV, FormatXLSX:
		s.opts.ExportFormat = f
	}
	return s.opts.ExportFormat
}

// SetFuzzyMatchThreshold accepts an integer in [0, 100].
// Non-numeric or out-of-range input keeps the prior value.
func (s *OptionStore) SetFuzzyMatchThreshold(raw string) int {
	s.opts.FuzzyMatchThreshold = parseBounded(raw, s.opts.FuzzyMatchThreshold, MinFuzzyThreshold, MaxFuzzyThreshold)
	return s.opts.FuzzyMatchThreshold
}

// SetDaysExpiring accepts a non-negative integer.
// Non-numeric or negative input keeps the prior value.
func (s *OptionStore) SetDaysExpiring(raw string) int {
	s.opts.DaysExpiring = parseBounded(raw, s.opts.DaysExpiring, MinDaysExpiring, -1)
	return s.opts.DaysExpiring
}

// SetDropDuplicates sets whether duplicate invoice ids are dropped.
func (s *OptionStore) SetDropDuplicates(v bool) { s.opts.DropDuplicates = v }

// SetDropNegativeQuantity sets whether rows with negative quantity are dropped.
func (s *OptionStore) SetDropNegativeQuantity(v bool) { s.opts.DropNegativeQuantity = v }

// SetFlagDueBeforeIssue sets whether invoices due before issue are flagged.
func (s *OptionStore) SetFlagDueBeforeIssue(v bool) { s.opts.FlagDueBeforeIssue = v }

// parseBounded parses raw as an integer in [min, max] (max < 0 means no
// upper bound) and returns prior when raw is not acceptable.
func parseBounded(raw string, prior, min, max int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < min || (max >= 0 && n > max) {
		return prior
	}
	return n
}

// ParseFlag interprets checkbox and command-line style boolean input.
// ok is false when raw is not a recognized boolean.
func ParseFlag(raw string) (value, ok bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "on", "true", "1", "yes", "y":
		return true, true
	case "off", "false", "0", "no", "n", "":
		return false, true
	default:
		return false, false
	}
}
