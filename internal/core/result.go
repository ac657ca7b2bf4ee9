package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// DecodeResult parses a success body from the cleaning service.
//
// The body must be a JSON object. download_token and share_url must be
// strings when present; summary is kept verbatim. Older deployments of the
// unified endpoint put their summary fields (rows_in, message, preview) at
// the top level, so when summary is absent the remaining fields become the
// summary.
func DecodeResult(body []byte) (Result, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return Result{}, &MalformedResponseError{Err: errors.New("empty body")}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil || fields == nil {
		if err == nil {
			err = errors.New("body is not a JSON object")
		}
		return Result{}, &MalformedResponseError{Err: err}
	}

	var r Result
	if err := stringField(fields, "download_token", &r.DownloadToken); err != nil {
		return Result{}, &MalformedResponseError{Err: err}
	}
	if err := stringField(fields, "share_url", &r.ShareURL); err != nil {
		return Result{}, &MalformedResponseError{Err: err}
	}

	if raw, ok := fields["summary"]; ok && !isNull(raw) {
		r.Summary = raw
		return r, nil
	}
	delete(fields, "summary")
	if len(fields) == 0 {
		return r, nil
	}

	summary, err := json.Marshal(fields)
	if err != nil {
		return Result{}, &MalformedResponseError{Err: err}
	}
	r.Summary = summary
	return r, nil
}

// stringField moves an optional string field out of fields into dst.
func stringField(fields map[string]json.RawMessage, key string, dst *string) error {
	raw, ok := fields[key]
	if !ok {
		return nil
	}
	delete(fields, key)
	if isNull(raw) {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%s: want string, got %s", key, raw)
	}
	return nil
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(bytes.TrimSpace(raw)) == "null"
}
