package cmd

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Iron-Ham/gentle/internal/fakeapi"
	"github.com/Iron-Ham/gentle/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// executeCommand runs a cobra command with args and returns captured output
func executeCommand(root *cobra.Command, args ...string) (output string, err error) {
	return executeWithInput(root, "", args...)
}

func executeWithInput(root *cobra.Command, input string, args ...string) (string, error) {
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetIn(strings.NewReader(input))
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

// setupTestEnvironment points the CLI at a fresh in-memory backend and an
// empty config directory.
func setupTestEnvironment(t *testing.T) *fakeapi.Server {
	t.Helper()

	backend := fakeapi.New()
	srv := httptest.NewServer(backend.Handler())
	t.Cleanup(srv.Close)

	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	viper.Reset()
	t.Cleanup(viper.Reset)
	viper.Set("api.base_url", srv.URL)
	viper.Set("realtime.enabled", false)
	viper.Set("retry.delay_ms", 0)
	viper.Set("logging.enabled", false)

	deleteYes = false
	completeTaskID = ""
	loginCode = ""
	checkinEmotion = ""
	checkinEnergy = 2
	checkinNote = ""
	logsTail = 50
	logsLevel = ""
	logsSince = ""
	logsGrep = ""
	logsFollow = false

	return backend
}

// signIn signs the CLI in as me@example.com and returns the backend user id.
func signIn(t *testing.T, backend *fakeapi.Server) string {
	t.Helper()
	output, err := executeWithInput(rootCmd, fakeapi.DefaultOTPCode+"\n", "login", "me@example.com")
	if err != nil {
		t.Fatalf("login failed: %v\nOutput: %s", err, output)
	}
	_, userID := backend.SignIn("me@example.com")
	return userID
}

func TestRootCommand(t *testing.T) {
	if rootCmd.Use != "gentle" {
		t.Errorf("rootCmd.Use = %q, want %q", rootCmd.Use, "gentle")
	}

	expectedCmds := []string{
		"start", "login", "logout", "status", "tasks", "show", "delete",
		"complete", "too-big", "checkin", "config", "logs", "dev-server",
	}
	cmdMap := make(map[string]bool)
	for _, cmd := range rootCmd.Commands() {
		cmdMap[cmd.Name()] = true
	}
	for _, expected := range expectedCmds {
		if !cmdMap[expected] {
			t.Errorf("expected subcommand %q not found", expected)
		}
	}
}

func TestLoginAndStatus(t *testing.T) {
	backend := setupTestEnvironment(t)

	output, err := executeCommand(rootCmd, "status")
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if !strings.Contains(output, "Not signed in.") {
		t.Errorf("status output = %q, want it to say not signed in", output)
	}

	signIn(t, backend)

	output, err = executeCommand(rootCmd, "status")
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if !strings.Contains(output, "Signed in as me@example.com") {
		t.Errorf("status output = %q, want the signed-in email", output)
	}

	output, err = executeCommand(rootCmd, "logout")
	if err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	if !strings.Contains(output, "Signed out.") {
		t.Errorf("logout output = %q", output)
	}
	if _, err := os.Stat(filepath.Join(os.Getenv("XDG_CONFIG_HOME"), "gentle", "session.json")); !os.IsNotExist(err) {
		t.Error("session file should be removed after logout")
	}
}

func TestLogin_WrongCode(t *testing.T) {
	setupTestEnvironment(t)

	_, err := executeWithInput(rootCmd, "000000\n", "login", "me@example.com")
	if err == nil {
		t.Fatal("login with a wrong code should fail")
	}
	if !strings.Contains(err.Error(), "Token has expired or is invalid") {
		t.Errorf("error = %q, want the provider's message", err.Error())
	}
}

func TestTasks_RequireSignIn(t *testing.T) {
	setupTestEnvironment(t)

	for _, args := range [][]string{{"tasks"}, {"show", "x"}, {"delete", "x", "--yes"}, {"complete", "x"}, {"too-big", "x"}} {
		_, err := executeCommand(rootCmd, args...)
		if err == nil || !strings.Contains(err.Error(), "gentle login") {
			t.Errorf("%v: error = %v, want a hint to log in", args, err)
		}
	}
}

func TestTasksShowDelete(t *testing.T) {
	backend := setupTestEnvironment(t)
	userID := signIn(t, backend)

	output, err := executeCommand(rootCmd, "tasks")
	if err != nil {
		t.Fatalf("tasks failed: %v", err)
	}
	if !strings.Contains(output, "No tasks yet.") {
		t.Errorf("tasks output = %q, want the empty message", output)
	}

	older := backend.Store().CreateTask(userID, "Older task")
	newer := backend.Store().CreateTask(userID, "Newer task")
	backend.Store().AddSteps(userID, newer.ID, []string{"Open the drawer", "Sort the papers"})

	output, err = executeCommand(rootCmd, "tasks")
	if err != nil {
		t.Fatalf("tasks failed: %v", err)
	}
	if strings.Index(output, "Newer task") > strings.Index(output, "Older task") {
		t.Errorf("tasks output should list newest first:\n%s", output)
	}

	output, err = executeCommand(rootCmd, "show", newer.ID)
	if err != nil {
		t.Fatalf("show failed: %v", err)
	}
	for _, want := range []string{"Newer task", "0 of 2 steps done (0%)", "Next: Open the drawer", "○ 2. Sort the papers"} {
		if !strings.Contains(output, want) {
			t.Errorf("show output missing %q:\n%s", want, output)
		}
	}

	// Declined confirmation keeps the task.
	output, err = executeWithInput(rootCmd, "n\n", "delete", older.ID)
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if !strings.Contains(output, "Kept.") {
		t.Errorf("delete output = %q, want Kept.", output)
	}

	output, err = executeWithInput(rootCmd, "y\n", "delete", older.ID)
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if !strings.Contains(output, "Deleted.") {
		t.Errorf("delete output = %q, want Deleted.", output)
	}

	_, err = executeCommand(rootCmd, "show", older.ID)
	if err == nil || !strings.Contains(err.Error(), "Task not found") {
		t.Errorf("show deleted task: error = %v, want a not-found message", err)
	}
}

func TestCompleteAndTooBig(t *testing.T) {
	backend := setupTestEnvironment(t)
	userID := signIn(t, backend)

	created := backend.Store().CreateTask(userID, "Clean the kitchen")
	steps, _ := backend.Store().AddSteps(userID, created.ID, []string{"Clear the counter", "Wipe the table"})

	output, err := executeCommand(rootCmd, "complete", steps[0].ID, "--task", created.ID)
	if err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if !strings.Contains(output, "50% done") || !strings.Contains(output, "Next: Wipe the table") {
		t.Errorf("complete output = %q, want progress and next step", output)
	}

	output, err = executeCommand(rootCmd, "complete", steps[1].ID)
	if err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if !strings.Contains(output, "You finished the whole task.") {
		t.Errorf("complete output = %q, want the celebration", output)
	}

	// Splitting adds steps, so it runs after the task is finished.
	output, err = executeCommand(rootCmd, "too-big", steps[1].ID)
	if err != nil {
		t.Fatalf("too-big failed: %v", err)
	}
	for _, want := range []string{"1. Begin with the easiest part of", "Starting small makes it easier to begin", "3. Finish the remaining part"} {
		if !strings.Contains(output, want) {
			t.Errorf("too-big output missing %q:\n%s", want, output)
		}
	}
}

func TestCompleteAndTooBig_RetryOnce(t *testing.T) {
	backend := setupTestEnvironment(t)
	userID := signIn(t, backend)

	created := backend.Store().CreateTask(userID, "Water the plants")
	steps, _ := backend.Store().AddSteps(userID, created.ID, []string{"Fill the can", "Water the window sill"})

	busy := fakeapi.Fault{Status: http.StatusServiceUnavailable, Detail: "busy", Times: 1}

	backend.InjectFault(fakeapi.RouteComplete, busy)
	output, err := executeCommand(rootCmd, "complete", steps[0].ID)
	if err != nil {
		t.Fatalf("complete after one 503: error = %v, want a retry to succeed", err)
	}
	if !strings.Contains(output, "Step done.") {
		t.Errorf("complete output = %q, want the step marked done", output)
	}

	backend.InjectFault(fakeapi.RouteTooBig, busy)
	output, err = executeCommand(rootCmd, "too-big", steps[1].ID)
	if err != nil {
		t.Fatalf("too-big after one 503: error = %v, want a retry to succeed", err)
	}
	if !strings.Contains(output, "Smaller steps:") {
		t.Errorf("too-big output = %q, want the smaller steps", output)
	}
}

func TestComplete_NoRetriesConfigured(t *testing.T) {
	backend := setupTestEnvironment(t)
	userID := signIn(t, backend)
	viper.Set("retry.mutation_retries", 0)

	created := backend.Store().CreateTask(userID, "Water the plants")
	steps, _ := backend.Store().AddSteps(userID, created.ID, []string{"Fill the can"})

	backend.InjectFault(fakeapi.RouteComplete, fakeapi.Fault{Status: http.StatusServiceUnavailable, Detail: "busy", Times: 1})
	_, err := executeCommand(rootCmd, "complete", steps[0].ID)
	if err == nil || !strings.Contains(err.Error(), "busy") {
		t.Errorf("complete with retries off: error = %v, want the server message", err)
	}
}

func TestCheckin(t *testing.T) {
	backend := setupTestEnvironment(t)

	_, err := executeCommand(rootCmd, "checkin")
	if err == nil || !strings.Contains(err.Error(), "Please select how you're feeling") {
		t.Errorf("checkin without emotion: error = %v", err)
	}

	signIn(t, backend)
	output, err := executeCommand(rootCmd, "checkin", "--emotion", "tired", "--energy", "1")
	if err != nil {
		t.Fatalf("checkin failed: %v", err)
	}
	if !strings.Contains(output, "energy Low") || !strings.Contains(output, "One tiny step: Take three deep breaths") {
		t.Errorf("checkin output = %q", output)
	}
}

func TestConfigCommands(t *testing.T) {
	setupTestEnvironment(t)

	output, err := executeCommand(rootCmd, "config", "show")
	if err != nil {
		t.Fatalf("config show failed: %v", err)
	}
	for _, want := range []string{"timeout_seconds: 15", "default_energy: 2", "/auth/v1"} {
		if !strings.Contains(output, want) {
			t.Errorf("config show output missing %q:\n%s", want, output)
		}
	}

	if _, err := executeCommand(rootCmd, "config", "set", "retry.mutation_retries", "9"); err == nil {
		t.Error("config set should reject out-of-range retries")
	}
	if _, err := executeCommand(rootCmd, "config", "set", "no.such.key", "1"); err == nil {
		t.Error("config set should reject unknown keys")
	}

	output, err = executeCommand(rootCmd, "config", "set", "tui.reduced_motion", "true")
	if err != nil {
		t.Fatalf("config set failed: %v\nOutput: %s", err, output)
	}
	data, err := os.ReadFile(filepath.Join(os.Getenv("XDG_CONFIG_HOME"), "gentle", "config.yaml"))
	if err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	if !strings.Contains(string(data), "reduced_motion: true") {
		t.Errorf("config file = %q, want reduced_motion: true", data)
	}

	if _, err := executeCommand(rootCmd, "config", "init"); err == nil {
		t.Error("config init should refuse to overwrite an existing file")
	}
}

func TestDefaultConfigFile(t *testing.T) {
	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(strings.NewReader(defaultConfigFile())); err != nil {
		t.Fatalf("default config file is not valid YAML: %v", err)
	}
	if got := v.GetInt("api.timeout_seconds"); got != 15 {
		t.Errorf("api.timeout_seconds = %d, want 15", got)
	}
	if got := v.GetString("dev_server.addr"); got != ":8000" {
		t.Errorf("dev_server.addr = %q, want %q", got, ":8000")
	}
}

func TestFormatLine(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		filter logFilter
		want   string
		ok     bool
	}{
		{
			name:   "entry with view and task",
			line:   `{"time":"2026-01-02T10:11:12.000Z","level":"INFO","msg":"task deleted","view":"tasks","task_id":"t1"}`,
			filter: logFilter{minLevel: -1},
			want:   "task deleted",
			ok:     true,
		},
		{
			name:   "below minimum level",
			line:   `{"time":"2026-01-02T10:11:12.000Z","level":"DEBUG","msg":"noise"}`,
			filter: logFilter{minLevel: levelPriority(logging.LevelWarn)},
			ok:     false,
		},
		{
			name:   "plain text passes through",
			line:   "panic: something",
			filter: logFilter{minLevel: levelPriority(logging.LevelError)},
			want:   "panic: something",
			ok:     true,
		},
		{
			name:   "blank line",
			line:   "   ",
			filter: logFilter{minLevel: -1},
			ok:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := formatLine(tt.line, tt.filter)
			if ok != tt.ok {
				t.Fatalf("formatLine() ok = %v, want %v", ok, tt.ok)
			}
			if !strings.Contains(got, tt.want) {
				t.Errorf("formatLine() = %q, want it to contain %q", got, tt.want)
			}
		})
	}
}

func TestLogsCommand(t *testing.T) {
	setupTestEnvironment(t)

	output, err := executeCommand(rootCmd, "logs")
	if err != nil {
		t.Fatalf("logs failed: %v", err)
	}
	if !strings.Contains(output, "No logs yet.") {
		t.Errorf("logs output = %q, want the empty message", output)
	}

	dir := filepath.Join(os.Getenv("XDG_CONFIG_HOME"), "gentle")
	logger, err := logging.NewLogger(dir, "debug")
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	logger.WithView("tasks").Info("tasks loaded", "count", 3)
	logger.Warn("request retried")
	_ = logger.Close()

	output, err = executeCommand(rootCmd, "logs", "--level", "warn")
	if err != nil {
		t.Fatalf("logs failed: %v", err)
	}
	if strings.Contains(output, "tasks loaded") || !strings.Contains(output, "request retried") {
		t.Errorf("logs --level warn output = %q", output)
	}
}
