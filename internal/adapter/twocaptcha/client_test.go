package twocaptcha

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/user/mst-crawler/internal/repository"
)

// fakeService scripts res.php replies; each poll consumes the next entry.
type fakeService struct {
	submitType string
	submitBody string
	pollType   string
	polls      []string
	balance    string
	balType    string

	pollCount atomic.Int32
}

func (f *fakeService) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/in.php", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("in.php method = %s, expected POST", r.Method)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if r.PostForm.Get("method") != "userrecaptcha" || r.PostForm.Get("googlekey") != "site-key" {
			t.Errorf("unexpected submit form: %v", r.PostForm)
		}
		w.Header().Set("Content-Type", f.submitType)
		fmt.Fprint(w, f.submitBody)
	})
	mux.HandleFunc("/res.php", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("action") {
		case "getbalance":
			w.Header().Set("Content-Type", f.balType)
			fmt.Fprint(w, f.balance)
		case "get":
			if r.URL.Query().Get("id") != "4242" {
				t.Errorf("poll id = %q, expected 4242", r.URL.Query().Get("id"))
			}
			n := int(f.pollCount.Add(1)) - 1
			w.Header().Set("Content-Type", f.pollType)
			if n >= len(f.polls) {
				fmt.Fprint(w, f.polls[len(f.polls)-1])
				return
			}
			fmt.Fprint(w, f.polls[n])
		}
	})
	return mux
}

func newTestClient(t *testing.T, f *fakeService, maxPolls int) *Client {
	t.Helper()
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)
	return New("test-key", srv.URL, zap.NewNop(), WithPolling(time.Millisecond, maxPolls))
}

const jsonType = "application/json"

func TestSolveReturnsTokenAfterNotReady(t *testing.T) {
	tests := []struct {
		name string
		f    *fakeService
	}{
		{
			name: "json",
			f: &fakeService{
				submitType: jsonType, submitBody: `{"status":1,"request":"4242"}`,
				pollType: jsonType,
				polls: []string{
					`{"status":0,"request":"CAPCHA_NOT_READY"}`,
					`{"status":0,"request":"CAPCHA_NOT_READY","error_text":"CAPCHA_NOT_READY"}`,
					`{"status":1,"request":"token-abc"}`,
				},
			},
		},
		{
			name: "plain text",
			f: &fakeService{
				submitType: "text/plain", submitBody: "OK|4242",
				pollType: "text/plain",
				polls:    []string{"CAPCHA_NOT_READY", "CAPCHA_NOT_READY", "OK|token-abc"},
			},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			c := newTestClient(t, test.f, 30)
			token, err := c.Solve(context.Background(), "site-key", "https://portal.example/search")
			if err != nil {
				t.Fatalf("Solve: %v", err)
			}
			if token != "token-abc" {
				t.Errorf("token = %q, expected token-abc", token)
			}
			if got := test.f.pollCount.Load(); got != 3 {
				t.Errorf("polls = %d, expected 3", got)
			}
		})
	}
}

func TestSolveTimesOut(t *testing.T) {
	f := &fakeService{
		submitType: jsonType, submitBody: `{"status":1,"request":"4242"}`,
		pollType: jsonType, polls: []string{`{"status":0,"request":"CAPCHA_NOT_READY"}`},
	}
	c := newTestClient(t, f, 4)
	_, err := c.Solve(context.Background(), "site-key", "https://portal.example/search")
	if !errors.Is(err, repository.ErrCaptchaTimeout) {
		t.Fatalf("expected ErrCaptchaTimeout, got %v", err)
	}
	if got := f.pollCount.Load(); got != 4 {
		t.Errorf("polls = %d, expected the ceiling of 4", got)
	}
}

func TestSolveSubmissionFailure(t *testing.T) {
	for _, body := range []string{"ERROR_WRONG_USER_KEY", "OK|", ""} {
		f := &fakeService{submitType: "text/plain", submitBody: body, pollType: jsonType, polls: []string{"x"}}
		c := newTestClient(t, f, 3)
		_, err := c.Solve(context.Background(), "site-key", "https://portal.example/search")
		if !errors.Is(err, repository.ErrCaptchaSubmission) {
			t.Errorf("submit body %q: expected ErrCaptchaSubmission, got %v", body, err)
		}
		if f.pollCount.Load() != 0 {
			t.Errorf("submit body %q: polled after failed submission", body)
		}
	}
}

func TestSolveTerminalError(t *testing.T) {
	f := &fakeService{
		submitType: jsonType, submitBody: `{"status":1,"request":"4242"}`,
		pollType: jsonType,
		polls: []string{
			`{"status":0,"request":"CAPCHA_NOT_READY"}`,
			`{"status":0,"request":"ERROR_CAPTCHA_UNSOLVABLE"}`,
		},
	}
	c := newTestClient(t, f, 30)
	_, err := c.Solve(context.Background(), "site-key", "https://portal.example/search")
	if !errors.Is(err, repository.ErrCaptchaSolve) {
		t.Fatalf("expected ErrCaptchaSolve, got %v", err)
	}
	if got := f.pollCount.Load(); got != 2 {
		t.Errorf("polls = %d, expected to stop at the terminal reply", got)
	}
}

func TestSolveHonoursContext(t *testing.T) {
	f := &fakeService{
		submitType: jsonType, submitBody: `{"status":1,"request":"4242"}`,
		pollType: jsonType, polls: []string{`{"status":0,"request":"CAPCHA_NOT_READY"}`},
	}
	srv := httptest.NewServer(f.handler(t))
	defer srv.Close()
	c := New("test-key", srv.URL, zap.NewNop(), WithPolling(time.Hour, 30))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := c.Solve(ctx, "site-key", "https://portal.example/search"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context deadline, got %v", err)
	}
}

func TestBalance(t *testing.T) {
	tests := []struct {
		name     string
		ctype    string
		body     string
		expected float64
		wantErr  bool
	}{
		{name: "json string", ctype: jsonType, body: `{"status":1,"request":"3.1415"}`, expected: 3.1415},
		{name: "json number", ctype: jsonType, body: `{"status":1,"request":0.5}`, expected: 0.5},
		{name: "plain", ctype: "text/plain", body: "12.75\n", expected: 12.75},
		{name: "json error", ctype: jsonType, body: `{"status":0,"request":"ERROR_KEY_DOES_NOT_EXIST"}`, wantErr: true},
		{name: "plain error", ctype: "text/plain", body: "ERROR_WRONG_USER_KEY", wantErr: true},
		{name: "malformed json", ctype: jsonType, body: `{"status":`, wantErr: true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			f := &fakeService{balType: test.ctype, balance: test.body}
			c := newTestClient(t, f, 1)
			got, err := c.Balance(context.Background())
			if test.wantErr {
				if !errors.Is(err, repository.ErrBalance) {
					t.Fatalf("expected ErrBalance, got %v (balance %v)", err, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Balance: %v", err)
			}
			if got != test.expected {
				t.Errorf("balance = %v, expected %v", got, test.expected)
			}
		})
	}
}
