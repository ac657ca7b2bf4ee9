package web

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/aibox/internal/config"
	"github.com/JonMunkholm/aibox/internal/core"
)

const testBase = "https://clean.example.com"

var invoicesCSV = []byte("invoice_id,issue_date,due_date\nA1,2024-01-01,2024-02-01\nA2,2024-01-02,2023-12-01\n")

func testConfig(base string) *config.Config {
	return &config.Config{
		Service: config.ServiceConfig{BaseURL: base, Timeout: 5 * time.Second, MaxConcurrent: 2, MaxWait: time.Second},
		Server:  config.ServerConfig{Port: 8080, ShutdownTimeout: time.Second},
		Upload:  config.UploadConfig{MaxFileSize: 1 << 20},
		Session: config.SessionConfig{IdleTTL: time.Minute, CookieName: "aibox_session"},
		Logging: config.LoggingConfig{Level: "error", Format: "text"},
	}
}

// recordingCleaner answers every call with result or err and keeps the
// requests it saw.
type recordingCleaner struct {
	mu       sync.Mutex
	requests []core.CleanRequest
	result   core.Result
	err      error
	block    chan struct{}
	entered  chan struct{}
}

func (c *recordingCleaner) Clean(ctx context.Context, req core.CleanRequest) (core.Result, error) {
	c.mu.Lock()
	c.requests = append(c.requests, req)
	c.mu.Unlock()

	if c.entered != nil {
		c.entered <- struct{}{}
	}
	if c.block != nil {
		<-c.block
	}
	return c.result, c.err
}

func (c *recordingCleaner) calls() []core.CleanRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]core.CleanRequest(nil), c.requests...)
}

type testClient struct {
	t    *testing.T
	base string
	http *http.Client
}

func newTestServer(t *testing.T, cfg *config.Config, cleaner core.Cleaner) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(NewServer(cfg, cleaner).Router())
	t.Cleanup(ts.Close)
	return ts
}

func newTestClient(t *testing.T, ts *httptest.Server) *testClient {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &testClient{
		t:    t,
		base: ts.URL,
		http: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (c *testClient) do(req *http.Request) (*http.Response, []byte) {
	c.t.Helper()
	resp, err := c.http.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	return resp, body
}

func (c *testClient) get(path string, headers ...string) (*http.Response, []byte) {
	c.t.Helper()
	req, err := http.NewRequest(http.MethodGet, c.base+path, nil)
	require.NoError(c.t, err)
	setHeaders(req, headers)
	return c.do(req)
}

func (c *testClient) postForm(path string, form url.Values, headers ...string) (*http.Response, []byte) {
	c.t.Helper()
	req, err := http.NewRequest(http.MethodPost, c.base+path, strings.NewReader(form.Encode()))
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	setHeaders(req, headers)
	return c.do(req)
}

func (c *testClient) postFile(name string, data []byte, headers ...string) (*http.Response, []byte) {
	c.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", name)
	require.NoError(c.t, err)
	_, err = part.Write(data)
	require.NoError(c.t, err)
	require.NoError(c.t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, c.base+"/file", &buf)
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	setHeaders(req, headers)
	return c.do(req)
}

func (c *testClient) state() stateResponse {
	c.t.Helper()
	resp, body := c.get("/api/state")
	require.Equal(c.t, http.StatusOK, resp.StatusCode, string(body))
	var st stateResponse
	require.NoError(c.t, json.Unmarshal(body, &st))
	return st
}

func setHeaders(req *http.Request, kv []string) {
	for i := 0; i+1 < len(kv); i += 2 {
		req.Header.Set(kv[i], kv[i+1])
	}
}

var asJSON = []string{"Accept", "application/json"}

func TestPage_SetsSessionCookie(t *testing.T) {
	ts := newTestServer(t, testConfig(testBase), &recordingCleaner{})
	c := newTestClient(t, ts)

	resp, body := c.get("/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `action="/submit"`)
	assert.Contains(t, string(body), testBase+"/api/sample/invoices")
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))

	var cookie *http.Cookie
	for _, ck := range resp.Cookies() {
		if ck.Name == "aibox_session" {
			cookie = ck
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)

	first := c.state().SessionID
	assert.Equal(t, cookie.Value, first)
	assert.Equal(t, first, c.state().SessionID, "session should be reused")
}

func TestSubmit_FullFlow(t *testing.T) {
	cleaner := &recordingCleaner{result: core.Result{
		DownloadToken: "abc123",
		ShareURL:      "/s/abc123",
		Summary:       json.RawMessage(`{"rows_in":2,"rows_out":1}`),
	}}
	ts := newTestServer(t, testConfig(testBase), cleaner)
	c := newTestClient(t, ts)

	resp, body := c.postFile("invoices.csv", invoicesCSV, asJSON...)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	resp, body = c.postForm("/options", url.Values{
		"fuzzy":          {"85"},
		"checkboxes":     {"drop_dupes,drop_negative_qty,flag_due_issue"},
		"flag_due_issue": {"true"},
	}, asJSON...)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	resp, body = c.postForm("/submit", nil, asJSON...)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	calls := cleaner.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "/api/invoices/clean", calls[0].Path)
	assert.Equal(t, "fmt=csv&fuzzy=85&drop_dupes=false&drop_negative_qty=false&flag_due_issue=true", calls[0].Query.Encode())
	assert.Equal(t, invoicesCSV, calls[0].File.Data)

	var st stateResponse
	require.NoError(t, json.Unmarshal(body, &st))
	assert.Equal(t, core.PhaseSucceeded, st.Phase)
	assert.Equal(t, testBase+"/api/download/abc123", st.DownloadURL)
	assert.Equal(t, testBase+"/s/abc123", st.ShareURL)
	assert.JSONEq(t, `{"rows_in":2,"rows_out":1}`, string(st.Summary))
	require.NotNil(t, st.File)
	assert.Equal(t, "invoices.csv", st.File.Name)
	assert.Equal(t, 2, st.File.Rows)

	_, page := c.get("/")
	assert.Contains(t, string(page), `class="download" href="https://clean.example.com/api/download/abc123"`)
}

func TestSubmit_WithoutFile(t *testing.T) {
	cleaner := &recordingCleaner{}
	ts := newTestServer(t, testConfig(testBase), cleaner)
	c := newTestClient(t, ts)

	resp, _ := c.postForm("/submit", nil)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)

	st := c.state()
	assert.Equal(t, core.PhaseFailed, st.Phase)
	require.NotNil(t, st.Error)
	assert.Equal(t, "SEL001", st.Error.Code)
	assert.Empty(t, cleaner.calls())
}

func TestSubmit_FailureKeepsInputs(t *testing.T) {
	cleaner := &recordingCleaner{err: core.NewStatusError(http.StatusBadRequest, "bad file")}
	ts := newTestServer(t, testConfig(testBase), cleaner)
	c := newTestClient(t, ts)

	c.postFile("invoices.csv", invoicesCSV)
	c.postForm("/mode", url.Values{"mode": {"stock"}})
	c.postForm("/submit", nil)

	st := c.state()
	assert.Equal(t, core.PhaseFailed, st.Phase)
	require.NotNil(t, st.Error)
	assert.Equal(t, "bad file", st.Error.Message)
	assert.Equal(t, core.ModeStock, st.Mode)
	require.NotNil(t, st.File)
	assert.True(t, st.CanSubmit)
	assert.Empty(t, st.DownloadURL)

	_, page := c.get("/")
	assert.Contains(t, string(page), "bad file")
	assert.Equal(t, "/api/stock/clean", cleaner.calls()[0].Path)
}

func TestSubmit_InFlightIsRejected(t *testing.T) {
	cleaner := &recordingCleaner{
		block:   make(chan struct{}),
		entered: make(chan struct{}, 1),
	}
	ts := newTestServer(t, testConfig(testBase), cleaner)
	c := newTestClient(t, ts)
	c.postFile("invoices.csv", invoicesCSV)

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.postForm("/submit", nil, asJSON...)
	}()
	<-cleaner.entered

	st := c.state()
	assert.True(t, st.Busy)
	assert.False(t, st.CanSubmit)

	resp, body := c.postForm("/submit", nil, asJSON...)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Contains(t, string(body), "SEL003")

	close(cleaner.block)
	<-done

	assert.Len(t, cleaner.calls(), 1)
	assert.Equal(t, core.PhaseSucceeded, c.state().Phase)
}

func TestSetMode(t *testing.T) {
	ts := newTestServer(t, testConfig(testBase), &recordingCleaner{})
	c := newTestClient(t, ts)

	resp, body := c.postForm("/mode", url.Values{"mode": {"payroll"}}, asJSON...)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "SEL002")

	resp, _ = c.postForm("/mode", url.Values{"mode": {"stock"}})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))

	st := c.state()
	assert.Equal(t, core.ModeStock, st.Mode)
	assert.Equal(t, testBase+"/api/sample/stock", st.SampleURL)
}

func TestSelectFile_Rejections(t *testing.T) {
	cfg := testConfig(testBase)
	cfg.Upload.MaxFileSize = 64
	ts := newTestServer(t, cfg, &recordingCleaner{})
	c := newTestClient(t, ts)

	c.postFile("invoices.csv", invoicesCSV[:40])

	resp, body := c.postFile("report.pdf", []byte("%PDF-1.4"), asJSON...)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "FILE002")

	resp, body = c.postFile("big.csv", bytes.Repeat([]byte("a,b\n"), 64))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "FILE001")
	assert.Contains(t, string(body), "<!DOCTYPE html>")

	st := c.state()
	require.NotNil(t, st.File, "previous selection should be kept")
	assert.Equal(t, "invoices.csv", st.File.Name)
}

func TestClearFile(t *testing.T) {
	ts := newTestServer(t, testConfig(testBase), &recordingCleaner{})
	c := newTestClient(t, ts)

	c.postFile("invoices.csv", invoicesCSV)
	require.NotNil(t, c.state().File)

	resp, _ := c.postForm("/file/clear", nil)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Nil(t, c.state().File)
}

func TestSessionsAreIsolated(t *testing.T) {
	ts := newTestServer(t, testConfig(testBase), &recordingCleaner{})
	alice := newTestClient(t, ts)
	bob := newTestClient(t, ts)

	alice.postForm("/options", url.Values{"fuzzy": {"50"}})
	alice.postFile("invoices.csv", invoicesCSV)

	a, b := alice.state(), bob.state()
	assert.NotEqual(t, a.SessionID, b.SessionID)
	assert.Equal(t, 50, a.Options.FuzzyMatchThreshold)
	assert.Equal(t, 90, b.Options.FuzzyMatchThreshold)
	assert.Nil(t, b.File)
}

func TestHTMXGetsFragment(t *testing.T) {
	ts := newTestServer(t, testConfig(testBase), &recordingCleaner{})
	c := newTestClient(t, ts)

	resp, body := c.postForm("/mode", url.Values{"mode": {"stock"}}, "HX-Request", "true")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(string(body), `<section id="workflow"`))
	assert.Contains(t, string(body), `data-mode="stock"`)
}

func TestMisconfigured(t *testing.T) {
	ts := newTestServer(t, testConfig(""), nil)
	c := newTestClient(t, ts)

	resp, body := c.get("/")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, string(body), "CFG001")
	assert.NotContains(t, string(body), `action="/submit"`)

	resp, body = c.postForm("/submit", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, string(body), "CFG001")

	resp, body = c.get("/api/state")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	var er ErrorResponse
	require.NoError(t, json.Unmarshal(body, &er))
	assert.Equal(t, "CFG001", er.Code)

	resp, body = c.get("/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"service_configured":false`)
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig(testBase)
	cfg.Rate = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 1, Burst: 2}
	ts := newTestServer(t, cfg, &recordingCleaner{})
	c := newTestClient(t, ts)

	for i := 0; i < 2; i++ {
		resp, _ := c.get("/healthz")
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
	resp, _ := c.get("/healthz")
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
}

func TestApplyOptions(t *testing.T) {
	tests := []struct {
		name  string
		form  url.Values
		check func(t *testing.T, o core.OptionSet)
	}{
		{
			name: "absent fields keep values",
			form: url.Values{},
			check: func(t *testing.T, o core.OptionSet) {
				assert.Equal(t, core.DefaultOptions(), o)
			},
		},
		{
			name: "unchecked rendered checkbox is false",
			form: url.Values{"checkboxes": {"drop_dupes,flag_due_issue"}, "flag_due_issue": {"true"}},
			check: func(t *testing.T, o core.OptionSet) {
				assert.False(t, o.DropDuplicates)
				assert.True(t, o.FlagDueBeforeIssue)
			},
		},
		{
			name: "invalid values ignored",
			form: url.Values{"fuzzy": {"abc"}, "days_expiring": {"-3"}, "fmt": {"pdf"}, "drop_dupes": {"maybe"}},
			check: func(t *testing.T, o core.OptionSet) {
				assert.Equal(t, core.DefaultOptions(), o)
			},
		},
		{
			name: "explicit api values",
			form: url.Values{"fmt": {"xlsx"}, "days_expiring": {"7"}, "drop_negative_qty": {"true"}},
			check: func(t *testing.T, o core.OptionSet) {
				assert.Equal(t, core.FormatXLSX, o.ExportFormat)
				assert.Equal(t, 7, o.DaysExpiring)
				assert.True(t, o.DropNegativeQuantity)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := core.NewOptionStore()
			applyOptions(store, tt.form)
			tt.check(t, store.Options())
		})
	}
}

func TestSessionStore_Expiry(t *testing.T) {
	store := NewSessionStore(50*time.Millisecond, func(id string) *core.Session {
		return core.NewSession(id, nil)
	})

	sess := store.Create()
	got, ok := store.Get(sess.ID())
	require.True(t, ok)
	assert.Same(t, sess, got)

	_, ok = store.Get("")
	assert.False(t, ok)

	time.Sleep(120 * time.Millisecond)
	_, ok = store.Get(sess.ID())
	assert.False(t, ok, "idle session should expire")
}
