package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-json-experiment/json"
	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/bleusakura/borrowbot/message"
)

func serve(robo *Robot, method, target, body string) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	robo.routes(mux, prometheus.NewRegistry())
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(method, target, strings.NewReader(body)))
	return w
}

func TestAPICommands(t *testing.T) {
	robo := testRobot(t)
	w := serve(robo, "GET", "/api/commands", "")
	if w.Code != http.StatusOK {
		t.Fatalf("wrong status: want 200, got %d", w.Code)
	}
	var u struct {
		Data []apiCommand `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &u); err != nil {
		t.Fatal(err)
	}
	if len(u.Data) != len(robo.cmd.Registry.All()) {
		t.Errorf("wrong number of commands: %d", len(u.Data))
	}
	want := apiCommand{Name: "about", Description: "Tells you about me.", Level: "user", Cooldown: "10s"}
	if diff := cmp.Diff(want, u.Data[0]); diff != "" {
		t.Errorf("wrong first command (-want +got):\n%s", diff)
	}
}

func TestAPIChannels(t *testing.T) {
	robo := testRobot(t)
	w := serve(robo, "GET", "/api/channels", "")
	var u struct {
		Data []string `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &u); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"kessoku"}, u.Data); diff != "" {
		t.Errorf("wrong channels (-want +got):\n%s", diff)
	}
}

func TestAPIAnnounce(t *testing.T) {
	cases := []struct {
		name   string
		target string
		body   string
		status int
		want   []message.Sent
	}{
		{
			name:   "ok",
			target: "/api/announce/kessoku",
			body:   `"hello" "" "world"`,
			status: http.StatusNoContent,
			want:   []message.Sent{{To: "kessoku", Text: "hello"}, {To: "kessoku", Text: "world"}},
		},
		{
			name:   "not-joined",
			target: "/api/announce/starry",
			body:   `"hello"`,
			status: http.StatusNotFound,
		},
		{
			name:   "not-string",
			target: "/api/announce/kessoku",
			body:   `"hello" 1`,
			status: http.StatusBadRequest,
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			robo := testRobot(t)
			w := serve(robo, "POST", c.target, c.body)
			if w.Code != c.status {
				t.Errorf("wrong status: want %d, got %d", c.status, w.Code)
			}
			if diff := cmp.Diff(c.want, drain(&robo.queue)); diff != "" {
				t.Errorf("wrong queued messages (-want +got):\n%s", diff)
			}
		})
	}
}
