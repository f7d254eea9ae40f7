package preview

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nstogner/diagrammer/pkg/domain"
)

func newTestServer(t *testing.T, submit SubmitFunc) (*Server, *httptest.Server) {
	t.Helper()
	s := New(Options{Submit: submit})
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func getJSON(t *testing.T, url string, v any) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s: status %d", url, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode %s: %v", url, err)
	}
}

func TestSessionAndArtifactEndpoints(t *testing.T) {
	s, ts := newTestServer(t, nil)

	var a domain.Artifact
	getJSON(t, ts.URL+"/api/artifact", &a)
	if a.Kind != domain.ArtifactEmpty {
		t.Errorf("initial artifact kind = %q, want empty", a.Kind)
	}

	s.SessionChanged(domain.Session{
		SchemaVersion: 1,
		Messages:      []domain.Message{{ID: "u1", Role: domain.RoleUser, Text: "draw a login flow"}},
		CurrentSource: "@startuml\n@enduml",
	})
	s.ArtifactReady(domain.Artifact{Kind: domain.ArtifactSVG, Engine: domain.EnginePlantUML, Content: "<svg>ok</svg>"})

	var sess domain.Session
	getJSON(t, ts.URL+"/api/session", &sess)
	if len(sess.Messages) != 1 || sess.Messages[0].Text != "draw a login flow" {
		t.Errorf("session = %+v", sess)
	}

	resp, err := http.Get(ts.URL + "/api/artifact?format=svg")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "image/svg+xml" {
		t.Errorf("Content-Type = %q", ct)
	}
	if string(body) != "<svg>ok</svg>" {
		t.Errorf("svg = %q", body)
	}
}

func TestStaticAndUnknownAPI(t *testing.T) {
	_, ts := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "mermaid") {
		t.Errorf("index: status %d", resp.StatusCode)
	}

	resp, err = http.Get(ts.URL + "/api/unknown")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown api status = %d, want 404", resp.StatusCode)
	}
}

func TestSubmitEndpoint(t *testing.T) {
	var got []string
	submit := func(ctx context.Context, text string) error {
		if strings.TrimSpace(text) == "" {
			return fmt.Errorf("%w: requirement is empty", domain.ErrInvalidInput)
		}
		got = append(got, text)
		return nil
	}
	_, ts := newTestServer(t, submit)

	post := func(body string) int {
		resp, err := http.Post(ts.URL+"/api/requirements", "application/json", strings.NewReader(body))
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		return resp.StatusCode
	}

	if code := post(`{"requirement":"draw a login flow"}`); code != http.StatusOK {
		t.Errorf("status = %d, want 200", code)
	}
	if code := post(`{"requirement":"  "}`); code != http.StatusBadRequest {
		t.Errorf("blank status = %d, want 400", code)
	}
	if code := post(`not json`); code != http.StatusBadRequest {
		t.Errorf("malformed status = %d, want 400", code)
	}
	if len(got) != 1 || got[0] != "draw a login flow" {
		t.Errorf("submitted = %v", got)
	}

	_, readOnly := newTestServer(t, nil)
	resp, err := http.Post(readOnly.URL+"/api/requirements", "application/json", strings.NewReader(`{"requirement":"x"}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("read-only status = %d, want 405", resp.StatusCode)
	}
}

func TestLiveWebSocket(t *testing.T) {
	submitted := make(chan string, 1)
	s, ts := newTestServer(t, func(ctx context.Context, text string) error {
		submitted <- text
		return nil
	})

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/live"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer ws.Close()
	ws.SetReadDeadline(time.Now().Add(5 * time.Second))

	var first Frame
	if err := ws.ReadJSON(&first); err != nil {
		t.Fatalf("read initial frame: %v", err)
	}
	if first.Session == nil || first.Artifact == nil || first.Artifact.Kind != domain.ArtifactEmpty {
		t.Fatalf("initial frame = %+v", first)
	}

	s.ArtifactReady(domain.Artifact{Kind: domain.ArtifactFallback, Engine: domain.EngineMermaid, Source: "flowchart TD\n A-->B"})
	var next Frame
	if err := ws.ReadJSON(&next); err != nil {
		t.Fatalf("read update: %v", err)
	}
	if next.Artifact == nil || next.Artifact.Engine != domain.EngineMermaid || next.Session != nil {
		t.Errorf("update frame = %+v", next)
	}

	s.Error("GenerationFailed", "boom")
	var errFrame Frame
	if err := ws.ReadJSON(&errFrame); err != nil {
		t.Fatalf("read error frame: %v", err)
	}
	if errFrame.Error == nil || errFrame.Error.Code != "GenerationFailed" {
		t.Errorf("error frame = %+v", errFrame)
	}

	if err := ws.WriteJSON(SubmitRequest{Requirement: "draw a login flow"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	select {
	case text := <-submitted:
		if text != "draw a login flow" {
			t.Errorf("submitted %q", text)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("requirement not submitted")
	}
}
