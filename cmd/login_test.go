package cmd

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/teemow/telegram-mcp/internal/telegram"
)

// setupLoginEnv points the Telegram config at a fake Bot API that accepts
// only the token "42:secret".
func setupLoginEnv(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if !strings.HasPrefix(r.URL.Path, "/bot42:secret/") {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"ok":false,"error_code":401,"description":"Unauthorized"}`))
			return
		}
		_, _ = w.Write([]byte(`{"ok":true,"result":{"id":42,"is_bot":true,"first_name":"Test","username":"test_bot"}}`))
	}))
	t.Cleanup(srv.Close)

	session := filepath.Join(t.TempDir(), "session.yaml")
	t.Setenv(telegram.EnvBotToken, "")
	t.Setenv(telegram.EnvAPIEndpoint, srv.URL+"/bot%s/%s")
	t.Setenv(telegram.EnvSessionPath, session)
	return session
}

func TestRunLogin(t *testing.T) {
	session := setupLoginEnv(t)

	var out bytes.Buffer
	if err := runLogin(context.Background(), strings.NewReader("42:secret\n"), &out); err != nil {
		t.Fatalf("runLogin: %v", err)
	}

	if !strings.Contains(out.String(), "Logged in as @test_bot (id 42)") {
		t.Errorf("unexpected output: %q", out.String())
	}
	s, err := telegram.LoadSession(session)
	if err != nil {
		t.Fatalf("LoadSession: %v", err)
	}
	if s.Token != "42:secret" {
		t.Errorf("stored token = %q", s.Token)
	}
}

func TestRunLogin_Rejected(t *testing.T) {
	session := setupLoginEnv(t)

	var out bytes.Buffer
	err := runLogin(context.Background(), strings.NewReader("1:wrong\n"), &out)
	if err == nil || !strings.Contains(err.Error(), "login failed") {
		t.Fatalf("runLogin error = %v, want login failed", err)
	}
	if strings.Contains(out.String(), "failed") {
		t.Errorf("failure should only be reported through the error, got output %q", out.String())
	}
	if _, err := os.Stat(session); !os.IsNotExist(err) {
		t.Errorf("session file should not exist, stat err = %v", err)
	}
}

func TestRunLogin_EmptyInput(t *testing.T) {
	setupLoginEnv(t)

	var out bytes.Buffer
	err := runLogin(context.Background(), strings.NewReader(""), &out)
	if err == nil || !strings.Contains(err.Error(), "no token provided") {
		t.Fatalf("runLogin error = %v, want no token provided", err)
	}
}

func TestRunLogin_TokenFromEnv(t *testing.T) {
	session := setupLoginEnv(t)
	t.Setenv(telegram.EnvBotToken, "42:secret")

	var out bytes.Buffer
	if err := runLogin(context.Background(), strings.NewReader(""), &out); err != nil {
		t.Fatalf("runLogin: %v", err)
	}
	if _, err := os.Stat(session); err != nil {
		t.Errorf("session file missing: %v", err)
	}
}

func TestRootCmd_LoginFlag(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "accepted token", input: "42:secret\n", wantErr: false},
		{name: "rejected token", input: "1:wrong\n", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupLoginEnv(t)

			root := newRootCmd()
			var stderr bytes.Buffer
			root.SetArgs([]string{"--login"})
			root.SetIn(strings.NewReader(tt.input))
			root.SetErr(&stderr)
			root.SetOut(&stderr)

			err := root.Execute()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Execute() error = %v, wantErr %v", err, tt.wantErr)
			}
			if n := strings.Count(stderr.String(), "login failed"); tt.wantErr && n != 1 {
				t.Errorf("failure reported %d times, want once:\n%s", n, stderr.String())
			}
		})
	}
}
