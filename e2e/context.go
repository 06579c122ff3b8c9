package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"os"
	"strconv"
	"strings"
	"time"
)

const defaultBaseURL = "http://localhost:8080"

// TestContext carries one scenario's browser: a cookie jar holding the client
// key and the last response.
type TestContext struct {
	BaseURL      string
	client       *http.Client
	lastStatus   int
	lastBody     []byte
	lastLocation string
}

// NewTestContext builds a fresh context. PORTAL_E2E_BASE_URL overrides the target.
func NewTestContext() *TestContext {
	base := os.Getenv("PORTAL_E2E_BASE_URL")
	if base == "" {
		base = defaultBaseURL
	}
	jar, _ := cookiejar.New(nil)
	return &TestContext{
		BaseURL: strings.TrimRight(base, "/"),
		client: &http.Client{
			Jar:     jar,
			Timeout: 10 * time.Second,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Reset starts a new browser with an empty cookie jar.
func (tc *TestContext) Reset() {
	jar, _ := cookiejar.New(nil)
	tc.client.Jar = jar
	tc.lastStatus, tc.lastBody, tc.lastLocation = 0, nil, ""
}

func (tc *TestContext) POST(path string, body any) error {
	var reader io.Reader = http.NoBody
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(http.MethodPost, tc.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return tc.do(req)
}

func (tc *TestContext) GET(path string, headers map[string]string) error {
	req, err := http.NewRequest(http.MethodGet, tc.BaseURL+path, nil)
	if err != nil {
		return err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return tc.do(req)
}

func (tc *TestContext) do(req *http.Request) error {
	resp, err := tc.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()
	tc.lastBody, err = io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	tc.lastStatus = resp.StatusCode
	tc.lastLocation = resp.Header.Get("Location")
	return nil
}

func (tc *TestContext) GetLastStatus() int { return tc.lastStatus }
func (tc *TestContext) GetLastLocation() string { return tc.lastLocation }
func (tc *TestContext) GetLastBody() []byte { return tc.lastBody }

// GetResponseField resolves a dotted path such as "session.state" or
// "notifications.0.kind" in the last JSON response.
func (tc *TestContext) GetResponseField(field string) (any, error) {
	var doc any
	if err := json.Unmarshal(tc.lastBody, &doc); err != nil {
		return nil, fmt.Errorf("response is not JSON: %w", err)
	}
	cur := doc
	for _, part := range strings.Split(field, ".") {
		switch node := cur.(type) {
		case map[string]any:
			next, ok := node[part]
			if !ok {
				return nil, fmt.Errorf("field %q not found in response", field)
			}
			cur = next
		case []any:
			i, err := strconv.Atoi(part)
			if err != nil || i < 0 || i >= len(node) {
				return nil, fmt.Errorf("field %q: no element %q", field, part)
			}
			cur = node[i]
		default:
			return nil, fmt.Errorf("field %q: cannot descend into %q", field, part)
		}
	}
	return cur, nil
}
