package commands_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"taskdeck/internal/commands"
	"taskdeck/internal/config"
	"taskdeck/internal/exitcode"
)

const testOAuthClient = `{"installed":{"client_id":"test","client_secret":"test","redirect_uris":["http://localhost"]}}`

// credentialsDir returns a config dir holding the given files.
func credentialsDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0600); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}
	return dir
}

func runAuthCommand(ctx context.Context, cmd commands.Command, dir string, quiet bool) (stdout, stderr string, code int) {
	var outBuf, errBuf bytes.Buffer
	cfg := &config.Config{Dir: dir, Quiet: quiet}
	code = cmd.Run(ctx, cfg, nil, nil, &outBuf, &errBuf)
	return outBuf.String(), errBuf.String(), code
}

func TestLoginCommand_NoOAuthClient(t *testing.T) {
	dir := t.TempDir()
	stdout, stderr, code := runAuthCommand(context.Background(), &commands.LoginCmd{}, dir, false)

	if code != exitcode.AuthError {
		t.Errorf("expected exit code %d, got %d", exitcode.AuthError, code)
	}
	if stdout != "" {
		t.Errorf("expected no stdout, got %q", stdout)
	}
	if !strings.Contains(stderr, filepath.Join(dir, config.OAuthClientFile)) {
		t.Errorf("expected setup instructions naming the client file, got %q", stderr)
	}
	if !strings.Contains(stderr, "taskdeck login") {
		t.Errorf("expected retry hint, got %q", stderr)
	}
}

func TestLoginCommand_MalformedOAuthClient(t *testing.T) {
	dir := credentialsDir(t, map[string]string{config.OAuthClientFile: "{not json"})

	_, stderr, code := runAuthCommand(context.Background(), &commands.LoginCmd{}, dir, false)

	if code != exitcode.AuthError {
		t.Errorf("expected exit code %d, got %d", exitcode.AuthError, code)
	}
	if !strings.HasPrefix(stderr, "error: ") {
		t.Errorf("expected error line, got %q", stderr)
	}
}

// Unusable tokens must not short-circuit as "already logged in". The
// cancelled context stops the flow before it waits for a browser callback.
func TestLoginCommand_UnusableTokenStartsFlow(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{"corrupt", `{"access_token":"expired","token_type":"Bearer"}`},
		{"no refresh token", `{"access_token":"test","token_type":"Bearer","expiry":"2020-01-01T00:00:00Z"}`},
		{"not json", `token`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := credentialsDir(t, map[string]string{
				config.OAuthClientFile: testOAuthClient,
				config.TokenFile:       tt.token,
			})
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			stdout, _, code := runAuthCommand(ctx, &commands.LoginCmd{}, dir, false)

			if stdout == "already logged in\n" {
				t.Error("should not say 'already logged in' with an unusable token")
			}
			if code != exitcode.AuthError {
				t.Errorf("expected exit code %d, got %d", exitcode.AuthError, code)
			}
		})
	}
}

func TestLogoutCommand_OnlyRemovesToken(t *testing.T) {
	dir := credentialsDir(t, map[string]string{
		config.OAuthClientFile: testOAuthClient,
		config.TokenFile:       `{"access_token":"test","refresh_token":"test"}`,
		config.SettingsFile:    "default_list: Work\n",
	})

	stdout, stderr, code := runAuthCommand(context.Background(), &commands.LogoutCmd{}, dir, false)

	expect(t, code, exitcode.Success, stdout, "ok\n")
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if _, err := os.Stat(filepath.Join(dir, config.TokenFile)); !os.IsNotExist(err) {
		t.Error("token.json should have been deleted")
	}
	for _, kept := range []string{config.OAuthClientFile, config.SettingsFile} {
		if _, err := os.Stat(filepath.Join(dir, kept)); err != nil {
			t.Errorf("%s should NOT have been deleted", kept)
		}
	}
}

func TestLogoutCommand_NotLoggedIn(t *testing.T) {
	tests := []struct {
		quiet bool
		want  string
	}{
		{false, "not logged in\n"},
		{true, ""},
	}

	for _, tt := range tests {
		stdout, stderr, code := runAuthCommand(context.Background(), &commands.LogoutCmd{}, t.TempDir(), tt.quiet)

		expect(t, code, exitcode.Success, stdout, tt.want)
		if stderr != "" {
			t.Errorf("expected no stderr, got %q", stderr)
		}
	}
}

func TestLogoutCommand_QuietSuccess(t *testing.T) {
	dir := credentialsDir(t, map[string]string{config.TokenFile: `{}`})

	stdout, _, code := runAuthCommand(context.Background(), &commands.LogoutCmd{}, dir, true)
	expect(t, code, exitcode.Success, stdout, "")
}
