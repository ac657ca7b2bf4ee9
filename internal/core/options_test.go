package core

import (
	"testing"
)

func TestDefaultOptions(t *testing.T) {
	s := NewOptionStore()
	opts := s.Options()

	if s.Mode() != ModeInvoices {
		t.Errorf("Mode = %q, want %q", s.Mode(), ModeInvoices)
	}
	if opts.ExportFormat != FormatCSV {
		t.Errorf("ExportFormat = %q, want %q", opts.ExportFormat, FormatCSV)
	}
	if opts.FuzzyMatchThreshold != 90 {
		t.Errorf("FuzzyMatchThreshold = %d, want 90", opts.FuzzyMatchThreshold)
	}
	if !opts.DropDuplicates {
		t.Error("DropDuplicates = false, want true")
	}
	if opts.DropNegativeQuantity {
		t.Error("DropNegativeQuantity = true, want false")
	}
	if !opts.FlagDueBeforeIssue {
		t.Error("FlagDueBeforeIssue = false, want true")
	}
	if opts.DaysExpiring != 30 {
		t.Errorf("DaysExpiring = %d, want 30", opts.DaysExpiring)
	}
}

func TestSetFuzzyMatchThreshold(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want int
	}{
		{"valid", "85", 85},
		{"zero", "0", 0},
		{"upper bound", "100", 100},
		{"surrounding spaces", " 70 ", 70},
		{"non-numeric keeps prior", "abc", 90},
		{"empty keeps prior", "", 90},
		{"decimal keeps prior", "85.5", 90},
		{"above range keeps prior", "101", 90},
		{"negative keeps prior", "-1", 90},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewOptionStore()
			got := s.SetFuzzyMatchThreshold(tt.raw)
			if got != tt.want {
				t.Errorf("SetFuzzyMatchThreshold(%q) = %d, want %d", tt.raw, got, tt.want)
			}
			if s.Options().FuzzyMatchThreshold != tt.want {
				t.Errorf("FuzzyMatchThreshold = %d, want %d", s.Options().FuzzyMatchThreshold, tt.want)
			}
		})
	}
}

func TestSetDaysExpiring(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want int
	}{
		{"valid", "14", 14},
		{"zero", "0", 0},
		{"large", "3650", 3650},
		{"non-numeric keeps prior", "soon", 30},
		{"negative keeps prior", "-5", 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewOptionStore()
			if got := s.SetDaysExpiring(tt.raw); got != tt.want {
				t.Errorf("SetDaysExpiring(%q) = %d, want %d", tt.raw, got, tt.want)
			}
		})
	}
}

func TestSetInteger_KeepsLastValidValue(t *testing.T) {
	s := NewOptionStore()
	s.SetFuzzyMatchThreshold("75")
	s.SetFuzzyMatchThreshold("seventy")

	if got := s.Options().FuzzyMatchThreshold; got != 75 {
		t.Errorf("FuzzyMatchThreshold = %d, want 75 (last valid value)", got)
	}
}

func TestSetExportFormat(t *testing.T) {
	s := NewOptionStore()

	if got := s.SetExportFormat("XLSX"); got != FormatXLSX {
		t.Errorf("SetExportFormat(XLSX) = %q, want %q", got, FormatXLSX)
	}
	if got := s.SetExportFormat("pdf"); got != FormatXLSX {
		t.Errorf("SetExportFormat(pdf) = %q, want prior %q", got, FormatXLSX)
	}
}

func TestSetMode_PreservesAllFields(t *testing.T) {
	s := NewOptionStore()
	s.SetExportFormat("xlsx")
	s.SetFuzzyMatchThreshold("42")
	s.SetDropDuplicates(false)
	s.SetDropNegativeQuantity(true)
	s.SetFlagDueBeforeIssue(false)
	s.SetDaysExpiring("7")
	before := s.Options()

	s.SetMode(ModeStock)
	if s.Options() != before {
		t.Errorf("after switching to stock, options = %+v, want %+v", s.Options(), before)
	}

	s.SetMode(ModeInvoices)
	if s.Options() != before {
		t.Errorf("after switching back, options = %+v, want %+v", s.Options(), before)
	}
}

func TestOptionSetQuery(t *testing.T) {
	opts := DefaultOptions()
	opts.FuzzyMatchThreshold = 85
	opts.DropDuplicates = false

	tests := []struct {
		mode Mode
		want string
	}{
		{ModeInvoices, "fmt=csv&fuzzy=85&drop_dupes=false&drop_negative_qty=false&flag_due_issue=true"},
		{ModeStock, "fmt=csv&days_expiring=30&drop_negative_qty=false"},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			if got := opts.Query(tt.mode).Encode(); got != tt.want {
				t.Errorf("Query(%s).Encode() = %q, want %q", tt.mode, got, tt.want)
			}
		})
	}
}

func TestOptionSetQuery_OmitsInactiveFields(t *testing.T) {
	q := DefaultOptions().Query(ModeStock)

	for _, key := range []string{"fuzzy", "drop_dupes", "flag_due_issue"} {
		if _, ok := q.Get(key); ok {
			t.Errorf("stock query contains invoices-only key %q", key)
		}
	}

	q = DefaultOptions().Query(ModeInvoices)
	if _, ok := q.Get("days_expiring"); ok {
		t.Error("invoices query contains stock-only key days_expiring")
	}
}

func TestParseFlag(t *testing.T) {
	tests := []struct {
		raw    string
		want   bool
		wantOK bool
	}{
		{"on", true, true},
		{"TRUE", true, true},
		{"1", true, true},
		{"yes", true, true},
		{"", false, true},
		{"off", false, true},
		{"false", false, true},
		{"maybe", false, false},
	}

	for _, tt := range tests {
		got, ok := ParseFlag(tt.raw)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParseFlag(%q) = (%v, %v), want (%v, %v)", tt.raw, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		raw     string
		want    Mode
		wantErr bool
	}{
		{"invoices", ModeInvoices, false},
		{" Stock ", ModeStock, false},
		{"payroll", "", true},
	}

	for _, tt := range tests {
		got, err := ParseMode(tt.raw)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseMode(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseMode(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestModePaths(t *testing.T) {
	tests := []struct {
		mode       Mode
		legacy     bool
		wantClean  string
		wantSample string
	}{
		{ModeInvoices, false, "/api/invoices/clean", "/api/sample/invoices"},
		{ModeInvoices, true, "/api/clean", "/api/sample/invoices"},
		{ModeStock, false, "/api/stock/clean", "/api/sample/stock"},
		{ModeStock, true, "/api/stock/clean", "/api/sample/stock"},
	}

	for _, tt := range tests {
		if got := tt.mode.CleanPath(tt.legacy); got != tt.wantClean {
			t.Errorf("%s.CleanPath(%v) = %q, want %q", tt.mode, tt.legacy, got, tt.wantClean)
		}
		if got := tt.mode.SamplePath(); got != tt.wantSample {
			t.Errorf("%s.SamplePath() = %q, want %q", tt.mode, got, tt.wantSample)
		}
	}
}
