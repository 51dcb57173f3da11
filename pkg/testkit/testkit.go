// Package testkit holds shared helpers for HTTP-level tests.
package testkit

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// JSONRequest builds an *http.Request with a JSON body and matching header.
func JSONRequest(t *testing.T, method, target string, body interface{}) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// DecodeEnvelope unmarshals the standard {status, message, data, errors}
// response envelope from a recorder.
func DecodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out),
		"response is not valid JSON: %s", rec.Body.String())
	return out
}

// ─── MockTransport ────────────────────────────────────────────────────────────

// MockRoute pairs a URL prefix with the canned response it should produce.
type MockRoute struct {
	URLPrefix string
	Status    int
	Body      string

	calls int
}

// MockTransport implements http.RoundTripper, matching outgoing requests
// against registered routes instead of hitting the network.
//
//	mt := testkit.NewMockTransport(
//	    testkit.MockRoute{URLPrefix: "https://api.razorpay.com", Status: 200, Body: `{"id":"order_x"}`},
//	)
//	httpclient.DefaultClient.Transport = mt
//	defer httpclient.ResetTransport()
type MockTransport struct {
	mu     sync.Mutex
	routes []*MockRoute
}

// NewMockTransport builds a MockTransport from the given routes.
func NewMockTransport(routes ...MockRoute) *MockTransport {
	mt := &MockTransport{}
	for i := range routes {
		r := routes[i]
		mt.routes = append(mt.routes, &r)
	}
	return mt
}

// RoundTrip intercepts the outgoing request and returns a synthetic response.
func (mt *MockTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	for _, route := range mt.routes {
		if !strings.HasPrefix(req.URL.String(), route.URLPrefix) {
			continue
		}
		route.calls++

		status := route.Status
		if status == 0 {
			status = http.StatusOK
		}
		header := make(http.Header)
		header.Set("Content-Type", "application/json")
		return &http.Response{
			StatusCode: status,
			Header:     header,
			Body:       io.NopCloser(strings.NewReader(route.Body)),
			Request:    req,
		}, nil
	}

	return &http.Response{
		StatusCode: http.StatusNotFound,
		Header:     make(http.Header),
		Body:       io.NopCloser(strings.NewReader(`{"error":"no mock configured"}`)),
		Request:    req,
	}, nil
}

// AssertAllCalled fails the test if any registered route was never hit.
func (mt *MockTransport) AssertAllCalled(t *testing.T) {
	t.Helper()
	mt.mu.Lock()
	defer mt.mu.Unlock()

	for _, route := range mt.routes {
		require.NotZero(t, route.calls,
			"mock route %q was never called", route.URLPrefix)
	}
}
