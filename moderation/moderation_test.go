package moderation_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/bleusakura/borrowbot/moderation"
)

type reqspy struct {
	got     *http.Request
	respond *http.Response
	err     error
}

func (r *reqspy) RoundTrip(req *http.Request) (*http.Response, error) {
	if r.got != nil {
		return nil, errors.New("already have a request")
	}
	r.got = req
	return r.respond, r.err
}

func respond(status int, body string) *reqspy {
	return &reqspy{
		respond: &http.Response{
			StatusCode: status,
			Status:     http.StatusText(status),
			Body:       io.NopCloser(strings.NewReader(body)),
		},
	}
}

const bannedResp = `{
	"banned": true,
	"input_message": "bad words",
	"banphrase_data": {
		"id": 7,
		"name": "bad",
		"phrase": "bad",
		"length": 600,
		"permanent": false,
		"operator": "contains",
		"case_sensitive": false
	}
}`

func TestTest(t *testing.T) {
	spy := respond(200, bannedResp)
	c := moderation.Client{HTTP: &http.Client{Transport: spy}, URL: moderation.DefaultURL}
	r, err := c.Test(context.Background(), "bad words")
	if err != nil {
		t.Fatal(err)
	}
	want := &moderation.Result{
		Banned: true,
		Input:  "bad words",
		Banphrase: &moderation.Banphrase{
			ID:       7,
			Name:     "bad",
			Phrase:   "bad",
			Length:   600,
			Operator: "contains",
		},
	}
	if diff := cmp.Diff(want, r); diff != "" {
		t.Errorf("wrong result (-want/+got):\n%s", diff)
	}
	if spy.got.Method != "POST" {
		t.Errorf("wrong method: want POST, got %s", spy.got.Method)
	}
	if got := spy.got.URL.Query().Get("message"); got != "bad words" {
		t.Errorf(`wrong message param: want "bad words", got %q`, got)
	}
	if got := spy.got.URL.Host; got != "forsen.tv" {
		t.Errorf(`wrong host: want "forsen.tv", got %q`, got)
	}
}

func TestDisallowed(t *testing.T) {
	cases := []struct {
		name   string
		spy    *reqspy
		banned bool
		err    bool
	}{
		{"banned", respond(200, bannedResp), true, false},
		{"clean", respond(200, `{"banned":false,"input_message":"hi","banphrase_data":null}`), false, false},
		{"server-error", respond(500, `oops`), false, true},
		{"bad-json", respond(200, `{"banned":`), false, true},
		{"transport", &reqspy{err: errors.New("no network")}, false, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cl := moderation.Client{HTTP: &http.Client{Transport: c.spy}, URL: "https://banphrase.example/test"}
			banned, err := cl.Disallowed(context.Background(), "hi")
			if (err != nil) != c.err {
				t.Errorf("wrong error: want error %t, got %v", c.err, err)
			}
			if banned != c.banned {
				t.Errorf("wrong verdict: want %t, got %t", c.banned, banned)
			}
		})
	}
}
