package cli_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"taskdeck/internal/cli"
	"taskdeck/internal/commands"
	"taskdeck/internal/config"
	"taskdeck/internal/exitcode"
	"taskdeck/internal/service"
	"taskdeck/internal/testutil"
)

// testFactory creates a service factory that returns the given FakeService.
func testFactory(svc *testutil.FakeService) cli.ServiceFactory {
	return func(ctx context.Context, cfg *config.Config) (service.Service, error) {
		return svc, nil
	}
}

func run(t *testing.T, factory cli.ServiceFactory, args ...string) (stdout, stderr string, code int) {
	t.Helper()
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, factory)
	var out, errOut bytes.Buffer
	code = dispatcher.Run(context.Background(), args, &out, &errOut)
	return out.String(), errOut.String(), code
}

func TestDispatcher_UnknownCommand(t *testing.T) {
	_, stderr, code := run(t, testFactory(testutil.NewFakeService()), "unknowncmd")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: unknown command: unknowncmd\n"
	if stderr != expected {
		t.Errorf("expected %q, got %q", expected, stderr)
	}
}

func TestDispatcher_FlagBeforeCommand(t *testing.T) {
	_, stderr, code := run(t, testFactory(testutil.NewFakeService()), "--quiet")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: unknown command: --quiet\n"
	if stderr != expected {
		t.Errorf("expected %q, got %q", expected, stderr)
	}
}

func TestDispatcher_HelpCommand(t *testing.T) {
	stdout, stderr, code := run(t, testFactory(testutil.NewFakeService()), "help", "--config", t.TempDir())

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if !strings.Contains(stdout, "Usage:") {
		t.Error("expected help output to contain 'Usage:'")
	}
}

func TestDispatcher_VersionCommand(t *testing.T) {
	stdout, stderr, code := run(t, testFactory(testutil.NewFakeService()), "version", "--config", t.TempDir())

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if stdout != "taskdeck 0.1.0\n" {
		t.Errorf("expected 'taskdeck 0.1.0\\n', got %q", stdout)
	}
}

func TestDispatcher_UnknownFlag(t *testing.T) {
	_, stderr, code := run(t, testFactory(testutil.NewFakeService()), "help", "--unknown")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: unknown flag: -unknown\n"
	if stderr != expected {
		t.Errorf("expected %q, got %q", expected, stderr)
	}
}

func TestDispatcher_FlagNeedsArgument(t *testing.T) {
	_, stderr, code := run(t, testFactory(testutil.NewFakeService()), "list", "--config")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: flag needs an argument: -config\n"
	if stderr != expected {
		t.Errorf("expected %q, got %q", expected, stderr)
	}
}

func TestDispatcher_NoArgsListsDefault(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTask("@default", "t1", "Buy milk")
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	stdout, stderr, code := run(t, testFactory(svc))

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d (stderr %q)", exitcode.Success, code, stderr)
	}
	if stdout != "   1  [ ] Buy milk\n" {
		t.Errorf("unexpected output %q", stdout)
	}
}

func TestDispatcher_PinThroughSession(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTask("@default", "t1", "Buy milk")

	stdout, stderr, code := run(t, testFactory(svc), "pin", "--config", t.TempDir(), "1")

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d (stderr %q)", exitcode.Success, code, stderr)
	}
	if stdout != "pinned\n" {
		t.Errorf("expected %q, got %q", "pinned\n", stdout)
	}
	if got, _ := svc.Task("@default", "t1"); !got.Pinned {
		t.Error("expected task to be pinned in backend")
	}
}

func TestDispatcher_ConfiguredDefaultList(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, config.SettingsFile), []byte("default_list: Work\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	svc := testutil.NewFakeService()
	svc.AddList("work", "Work")
	svc.AddTask("work", "w1", "Report")

	stdout, _, code := run(t, testFactory(svc), "add", "--config", dir, "Slides")

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stdout != "ok\n" {
		t.Errorf("expected %q, got %q", "ok\n", stdout)
	}
	if _, ok := svc.Task("work", "w1"); !ok {
		t.Error("expected existing task to remain")
	}
	resp, err := svc.ListTasks(context.Background(), "work", service.TaskQuery{})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Tasks) != 2 {
		t.Errorf("expected new task in configured default list, got %d tasks", len(resp.Tasks))
	}
}

func TestDispatcher_InvalidSettings(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, config.SettingsFile), []byte("api_timeout: -1s\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	_, stderr, code := run(t, testFactory(testutil.NewFakeService()), "list", "--config", dir)

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if !strings.HasPrefix(stderr, "error: invalid ") {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

func TestDispatcher_AuthError(t *testing.T) {
	factory := func(ctx context.Context, cfg *config.Config) (service.Service, error) {
		return nil, fmt.Errorf("%w: not logged in (run: taskdeck login)", cli.ErrAuth)
	}

	_, stderr, code := run(t, factory, "list", "--config", t.TempDir())

	if code != exitcode.AuthError {
		t.Errorf("expected exit code %d, got %d", exitcode.AuthError, code)
	}
	expected := "error: auth error: not authenticated: not logged in (run: taskdeck login)\n"
	if stderr != expected {
		t.Errorf("expected %q, got %q", expected, stderr)
	}
}

func TestDispatcher_BackendErrorFromFactory(t *testing.T) {
	factory := func(ctx context.Context, cfg *config.Config) (service.Service, error) {
		return nil, errors.New("connection refused")
	}

	_, stderr, code := run(t, factory, "list", "--config", t.TempDir())

	if code != exitcode.BackendError {
		t.Errorf("expected exit code %d, got %d", exitcode.BackendError, code)
	}
	if stderr != "error: backend error: connection refused\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

func TestGoogleTasksFactory_RequiresCredentials(t *testing.T) {
	cfg := &config.Config{Dir: t.TempDir()}

	_, err := cli.GoogleTasksFactory(context.Background(), cfg)
	if !errors.Is(err, cli.ErrAuth) {
		t.Fatalf("expected ErrAuth, got %v", err)
	}

	if err := os.WriteFile(cfg.OAuthClientPath(), []byte("{}"), 0o600); err != nil {
		t.Fatal(err)
	}
	_, err = cli.GoogleTasksFactory(context.Background(), cfg)
	if !errors.Is(err, cli.ErrAuth) || !strings.Contains(err.Error(), "taskdeck login") {
		t.Errorf("expected login hint, got %v", err)
	}
}

func TestDispatcher_UnreachableRedisFallsBack(t *testing.T) {
	dir := t.TempDir()
	settings := "redis:\n  addr: 127.0.0.1:1\n"
	if err := os.WriteFile(filepath.Join(dir, config.SettingsFile), []byte(settings), 0o600); err != nil {
		t.Fatal(err)
	}
	svc := testutil.NewFakeService()
	svc.AddTask("@default", "t1", "Buy milk")

	stdout, stderr, code := run(t, testFactory(svc), "list", "--config", dir)

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stdout != "   1  [ ] Buy milk\n" {
		t.Errorf("unexpected output %q", stdout)
	}
	if !strings.Contains(stderr, "invalidation bus unavailable") {
		t.Errorf("expected warning on stderr, got %q", stderr)
	}
}
