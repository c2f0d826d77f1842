package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chatBody struct {
	Model    string `json:"model"`
	Stream   bool   `json:"stream"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

// fakeService answers every chat completion with the given fragments.
type fakeService struct {
	mu     sync.Mutex
	bodies []chatBody
	frags  []string
	status int
}

func (s *fakeService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body chatBody
	_ = json.NewDecoder(r.Body).Decode(&body)
	s.mu.Lock()
	s.bodies = append(s.bodies, body)
	s.mu.Unlock()

	if s.status != 0 {
		http.Error(w, "boom", s.status)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	for _, f := range s.frags {
		b, _ := json.Marshal(map[string]any{
			"choices": []any{map[string]any{"delta": map[string]any{"content": f}}},
		})
		io.WriteString(w, "data: "+string(b)+"\n\n")
	}
	io.WriteString(w, "data: [DONE]\n\n")
}

func setupEnv(t *testing.T, url string) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("BOTSH_CONFIG", filepath.Join(dir, "missing.toml"))
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("BOTSH_PROVIDER", "")
	t.Setenv("BOTSH_API_KEY", "test-key")
	t.Setenv("BOTSH_BASE_URL", url)
	t.Setenv("BOTSH_MODEL", "test-model")
	t.Setenv("BOTSH_SYSTEM_PROMPT", "")
	t.Setenv("BOTSH_LOG_FILE", "")
	t.Setenv("BOTSH_OBSERVE_JSON", "0")

	prev := openTTY
	openTTY = func() (io.ReadCloser, error) { return nil, errors.New("no tty") }
	t.Cleanup(func() { openTTY = prev })
}

func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd(strings.NewReader(stdin), &out, &errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestRoot_OneShotFromArgs(t *testing.T) {
	svc := &fakeService{frags: []string{"4"}}
	srv := httptest.NewServer(svc)
	defer srv.Close()
	setupEnv(t, srv.URL)

	out, errOut, err := execute(t, "", "2+2=?")
	require.NoError(t, err)
	assert.Equal(t, "4\n", out)
	assert.Empty(t, errOut)

	require.Len(t, svc.bodies, 1)
	b := svc.bodies[0]
	assert.Equal(t, "test-model", b.Model)
	assert.True(t, b.Stream)
	require.Len(t, b.Messages, 2)
	assert.Equal(t, "system", b.Messages[0].Role)
	assert.Equal(t, "You are a capable assistant.", b.Messages[0].Content)
	assert.Equal(t, "2+2=?", b.Messages[1].Content)
}

func TestRoot_PipedTextAndFlags(t *testing.T) {
	svc := &fakeService{frags: []string{"ok"}}
	srv := httptest.NewServer(svc)
	defer srv.Close()
	setupEnv(t, srv.URL)

	out, _, err := execute(t, "log line\n", "-P", "-t", "-p", "be brief", "-m", "other", "explain")
	require.NoError(t, err)

	text := "log line\nexplain\nPlease translate the text above into Chinese.\n"
	assert.Equal(t, text+"\nok\n", out)
	require.Len(t, svc.bodies, 1)
	b := svc.bodies[0]
	assert.Equal(t, "other", b.Model)
	assert.Equal(t, "be brief", b.Messages[0].Content)
	assert.Equal(t, text, b.Messages[1].Content)
}

func TestRoot_OneShotFailureExitsOne(t *testing.T) {
	svc := &fakeService{status: http.StatusUnauthorized}
	srv := httptest.NewServer(svc)
	defer srv.Close()
	setupEnv(t, srv.URL)

	_, errOut, err := execute(t, "", "hi")
	var exit *exitError
	require.ErrorAs(t, err, &exit)
	assert.Equal(t, 1, exit.code)
	assert.Contains(t, errOut, "error: request failed: service returned status 401")
}

func TestRoot_EmptyReplyExitsOne(t *testing.T) {
	svc := &fakeService{}
	srv := httptest.NewServer(svc)
	defer srv.Close()
	setupEnv(t, srv.URL)

	_, errOut, err := execute(t, "", "hi")
	var exit *exitError
	require.ErrorAs(t, err, &exit)
	assert.Equal(t, 1, exit.code)
	assert.Contains(t, errOut, "no response received")
}

func TestRoot_ReplPrimesWithPipedText(t *testing.T) {
	svc := &fakeService{frags: []string{"4"}}
	srv := httptest.NewServer(svc)
	defer srv.Close()
	setupEnv(t, srv.URL)
	save := filepath.Join(t.TempDir(), "chat", "t.json")

	out, _, err := execute(t, "2+2=?\n", "-r", "--save", save)
	require.NoError(t, err)
	assert.Contains(t, out, "Q: 2+2=?\nA: 4\n")
	assert.Contains(t, out, "bye")
	assert.Len(t, svc.bodies, 1)

	b, err := os.ReadFile(save)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"content": "4"`)
}

func TestRoot_UnknownProvider(t *testing.T) {
	setupEnv(t, "http://127.0.0.1:1")
	t.Setenv("BOTSH_PROVIDER", "nope")

	_, _, err := execute(t, "", "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown provider "nope"`)
}

func TestRoot_ConfigFile(t *testing.T) {
	svc := &fakeService{frags: []string{"x"}}
	srv := httptest.NewServer(svc)
	defer srv.Close()
	setupEnv(t, srv.URL)

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("system_prompt = \"from file\"\n"), 0o644))

	_, _, err := execute(t, "", "--config", path, "hi")
	require.NoError(t, err)
	require.Len(t, svc.bodies, 1)
	assert.Equal(t, "from file", svc.bodies[0].Messages[0].Content)
}

func TestRoot_BlankPromptFlagKeepsConfiguredPrompt(t *testing.T) {
	svc := &fakeService{frags: []string{"x"}}
	srv := httptest.NewServer(svc)
	defer srv.Close()
	setupEnv(t, srv.URL)

	_, _, err := execute(t, "", "-p", "", "hi")
	require.NoError(t, err)
	require.Len(t, svc.bodies, 1)
	require.Len(t, svc.bodies[0].Messages, 2)
	assert.Equal(t, "system", svc.bodies[0].Messages[0].Role)
	assert.Equal(t, "You are a capable assistant.", svc.bodies[0].Messages[0].Content)
}
