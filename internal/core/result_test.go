package core

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestDecodeResult(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantToken   string
		wantShare   string
		wantSummary string
	}{
		{
			name:        "full result",
			body:        `{"download_token":"abc123","share_url":"/s/abc123","summary":{"rows_in":3}}`,
			wantToken:   "abc123",
			wantShare:   "/s/abc123",
			wantSummary: `{"rows_in":3}`,
		},
		{
			name: "empty object",
			body: `{}`,
		},
		{
			name:      "null fields",
			body:      `{"download_token":null,"share_url":null,"summary":null}`,
			wantToken: "",
		},
		{
			name:        "summary of any shape",
			body:        `{"download_token":"t","summary":[1,"two",null]}`,
			wantToken:   "t",
			wantSummary: `[1,"two",null]`,
		},
		{
			name:        "legacy top-level summary fields",
			body:        `{"rows_in":5,"message":"Cleaned successfully (demo).","download_token":"tok"}`,
			wantToken:   "tok",
			wantSummary: `{"message":"Cleaned successfully (demo).","rows_in":5}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeResult([]byte(tt.body))
			if err != nil {
				t.Fatalf("DecodeResult error = %v", err)
			}
			if got.DownloadToken != tt.wantToken {
				t.Errorf("DownloadToken = %q, want %q", got.DownloadToken, tt.wantToken)
			}
			if got.ShareURL != tt.wantShare {
				t.Errorf("ShareURL = %q, want %q", got.ShareURL, tt.wantShare)
			}
			if string(got.Summary) != tt.wantSummary {
				t.Errorf("Summary = %s, want %s", got.Summary, tt.wantSummary)
			}
		})
	}
}

func TestDecodeResult_Malformed(t *testing.T) {
	bodies := []string{
		``,
		`not json`,
		`null`,
		`[]`,
		`"abc"`,
		`{"download_token":42}`,
		`{"share_url":{"path":"/s/1"}}`,
		`{"download_token":"abc"`,
	}

	for _, body := range bodies {
		_, err := DecodeResult([]byte(body))
		var me *MalformedResponseError
		if !errors.As(err, &me) {
			t.Errorf("DecodeResult(%q) error = %v, want *MalformedResponseError", body, err)
			continue
		}
		if Kind(err) != KindMalformedResponse {
			t.Errorf("Kind(%q) = %q, want %q", body, Kind(err), KindMalformedResponse)
		}
	}
}

func TestDecodeResult_SummaryIsVerbatim(t *testing.T) {
	raw := `{"b": 1,   "a": {"nested": true}}`
	got, err := DecodeResult([]byte(`{"summary":` + raw + `}`))
	if err != nil {
		t.Fatalf("DecodeResult error = %v", err)
	}
	if string(got.Summary) != raw {
		t.Errorf("Summary = %s, want untouched %s", got.Summary, raw)
	}
	if !json.Valid(got.Summary) {
		t.Error("Summary is not valid JSON")
	}
}
