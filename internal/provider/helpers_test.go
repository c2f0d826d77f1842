package provider_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/petasbytes/botsh/internal/provider"
)

type capture struct {
	method string
	url    string
	header http.Header
	body   []byte
	calls  int
}

// fakeTransport answers every request with a canned response, or err.
type fakeTransport struct {
	respStatus  int
	respBody    []byte
	contentType string
	err         error
	captured    *capture
}

func (f *fakeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var b []byte
	if req.Body != nil {
		b, _ = io.ReadAll(req.Body)
		_ = req.Body.Close()
	}
	if f.captured != nil {
		f.captured.calls++
		f.captured.method = req.Method
		f.captured.url = req.URL.String()
		f.captured.header = req.Header.Clone()
		f.captured.body = b
	}
	if f.err != nil {
		return nil, f.err
	}
	resp := &http.Response{
		StatusCode: f.respStatus,
		Body:       io.NopCloser(bytes.NewReader(f.respBody)),
		Header:     make(http.Header),
		Request:    req,
	}
	resp.Header.Set("Content-Type", f.contentType)
	return resp, nil
}

func sseTransport(body string, c *capture) *fakeTransport {
	return &fakeTransport{respStatus: http.StatusOK, respBody: []byte(body), contentType: "text/event-stream", captured: c}
}

func drain(s provider.Stream) ([]string, error) {
	defer s.Close()
	var out []string
	for s.Next() {
		out = append(out, s.Fragment())
	}
	return out, s.Err()
}

func delta(content string) string {
	b, _ := json.Marshal(map[string]any{
		"choices": []any{map[string]any{"index": 0, "delta": map[string]any{"content": content}}},
	})
	return "data: " + string(b) + "\n\n"
}
