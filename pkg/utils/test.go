package utils

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

// TestRequest serves the request through a mux registered with the method and path,
// so method mismatches answer 405 as they do in the server.
func TestRequest(t *testing.T, method string, target string, body io.Reader, handler func(http.ResponseWriter, *http.Request)) *httptest.ResponseRecorder {
	return TestRequestWithHeaders(t, method, target, nil, body, handler)
}

func TestRequestWithHeaders(t *testing.T, method string, target string, headers map[string][]string, body io.Reader, handler func(http.ResponseWriter, *http.Request)) *httptest.ResponseRecorder {
	req, err := http.NewRequest(method, target, body)
	if err != nil {
		t.Fatal(err)
	}

	for k, v := range headers {
		for _, h := range v {
			req.Header.Add(k, h)
		}
	}

	u, err := url.Parse(target)
	if err != nil {
		t.Fatal(err)
	}

	rr := httptest.NewRecorder()
	router := http.NewServeMux()
	router.HandleFunc(fmt.Sprintf("%s %s", method, u.Path), handler)
	router.ServeHTTP(rr, req)

	return rr
}

func TestExpectedStatus(t *testing.T, rr *httptest.ResponseRecorder, statusCode int) {
	t.Helper()
	if rr.Code != statusCode {
		t.Errorf("expected status code %d, got %d: %s", statusCode, rr.Code, rr.Body.String())
	}
}

func TestExpectedMessage(t *testing.T, rr *httptest.ResponseRecorder, m string) {
	t.Helper()
	if !strings.Contains(rr.Body.String(), m) {
		t.Errorf("received error message `%s`, expected message `%s`", rr.Body.String(), m)
	}
}

// TestDecodeJSON unmarshals the recorded body into v.
func TestDecodeJSON(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to decode response %q: %v", rr.Body.String(), err)
	}
}
