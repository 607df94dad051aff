package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/felixgeelhaar/pacewatch/internal/config"
	"github.com/felixgeelhaar/pacewatch/internal/monitor"
	"github.com/felixgeelhaar/pacewatch/internal/observe"
	"github.com/felixgeelhaar/pacewatch/internal/store"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func TestMain(m *testing.M) {
	// Keep a config file in the real home directory out of the tests.
	home, err := os.MkdirTemp("", "cli-home-*")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	os.Setenv("HOME", home)
	code := m.Run()
	os.RemoveAll(home)
	os.Exit(code)
}

func progressServer(percent string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<html><body><div class="bar"><span class="progress-text">%s</span></div></body></html>`, percent)
	}))
}

func tempDir(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "cli-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}

func seedStore(t *testing.T, path string, samples ...store.Sample) {
	t.Helper()
	s, err := store.NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	defer s.Close()
	for i := range samples {
		if err := s.Append(&samples[i]); err != nil {
			t.Fatalf("Failed to seed: %v", err)
		}
	}
}

// execute runs the root command with fresh flag state and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(RootCmd)

	var out bytes.Buffer
	RootCmd.SetOut(&out)
	RootCmd.SetErr(io.Discard)
	RootCmd.SetArgs(args)
	err := RootCmd.Execute()
	return out.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func TestCLI_Root(t *testing.T) {
	want := map[string]bool{"watch": false, "status": false, "history": false, "config": false}
	for _, cmd := range RootCmd.Commands() {
		if _, ok := want[cmd.Name()]; ok {
			want[cmd.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("Expected %s subcommand", name)
		}
	}
}

func TestRunner(t *testing.T) {
	t.Run("Completes", func(t *testing.T) {
		srv := progressServer("100%")
		defer srv.Close()

		dir := tempDir(t)
		s, _ := store.NewSQLiteStore(filepath.Join(dir, "progress.db"))
		defer s.Close()

		cfg := config.Default()
		cfg.URL = srv.URL
		cfg.Database = filepath.Join(dir, "progress.db")
		cfg.DelaySeconds = 1
		cfg.MetricsAddr = "127.0.0.1:0"

		r := NewRunner(observe.New(io.Discard, true), s, cfg, nil)
		outcome, err := r.Run(context.Background())
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		if outcome != monitor.OutcomeCompleted {
			t.Errorf("Expected completed outcome, got %s", outcome)
		}
		if n, _ := s.Count(); n != 1 {
			t.Errorf("Expected 1 sample, got %d", n)
		}
	})

	t.Run("Cancelled", func(t *testing.T) {
		srv := progressServer("42.5%")
		defer srv.Close()

		dir := tempDir(t)
		s, _ := store.NewSQLiteStore(filepath.Join(dir, "progress.db"))
		defer s.Close()

		cfg := config.Default()
		cfg.URL = srv.URL
		cfg.Database = filepath.Join(dir, "progress.db")
		cfg.DelaySeconds = 5

		ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
		defer cancel()

		r := NewRunner(observe.New(io.Discard, false), s, cfg, nil)
		outcome, err := r.Run(ctx)
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		if outcome != monitor.OutcomeCancelled {
			t.Errorf("Expected cancelled outcome, got %s", outcome)
		}
		latest, _ := s.Latest()
		if latest == nil || latest.Progress != 0.425 {
			t.Errorf("Expected 42.5%% recorded, got %+v", latest)
		}
	})

	t.Run("Invalid config", func(t *testing.T) {
		cfg := config.Default()
		cfg.URL = "not a url"
		r := NewRunner(observe.New(io.Discard, false), nil, cfg, nil)
		if _, err := r.Run(context.Background()); err == nil {
			t.Error("Expected error for invalid config")
		}
	})
}

func TestCLI_Watch(t *testing.T) {
	srv := progressServer("100 %")
	defer srv.Close()

	db := filepath.Join(tempDir(t), "progress.db")
	out, err := execute(t, "watch", "--url", srv.URL, "--db", db, "--delay", "1")
	if err != nil {
		t.Fatalf("watch failed: %v", err)
	}
	if !strings.Contains(out, "Migration completed") {
		t.Errorf("Expected completion summary, got:\n%s", out)
	}
}

func TestCLI_Status(t *testing.T) {
	db := filepath.Join(tempDir(t), "progress.db")

	out, err := execute(t, "status", "--db", db)
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if !strings.Contains(out, "No samples recorded yet.") {
		t.Errorf("Expected empty status, got:\n%s", out)
	}

	now := time.Now()
	seedStore(t, db,
		store.Sample{Timestamp: now.Add(-time.Hour), Progress: 0.1},
		store.Sample{Timestamp: now, Progress: 0.2},
	)

	out, err = execute(t, "status", "--db", db)
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if !strings.Contains(out, "Total progress: 20.00%") {
		t.Errorf("Expected progress line, got:\n%s", out)
	}

	seedStore(t, db, store.Sample{Timestamp: now.Add(time.Second), Progress: 1.0})
	out, err = execute(t, "status", "--db", db)
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if !strings.Contains(out, "Migration completed") {
		t.Errorf("Expected completion summary, got:\n%s", out)
	}
}

func TestCLI_History(t *testing.T) {
	db := filepath.Join(tempDir(t), "progress.db")
	now := time.Now()
	seedStore(t, db,
		store.Sample{Timestamp: now.Add(-2 * time.Hour), Progress: 0.1},
		store.Sample{Timestamp: now.Add(-time.Minute), Progress: 0.2},
	)

	out, err := execute(t, "history", "--db", db)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if !strings.Contains(out, "PROGRESS") || !strings.Contains(out, "10.00%") || !strings.Contains(out, "20.00%") {
		t.Errorf("Expected both samples, got:\n%s", out)
	}

	out, err = execute(t, "history", "--db", db, "--since", "1h")
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if strings.Contains(out, "10.00%") || !strings.Contains(out, "20.00%") {
		t.Errorf("Expected only the recent sample, got:\n%s", out)
	}
}

func TestCLI_Config(t *testing.T) {
	dir := tempDir(t)
	path := filepath.Join(dir, "pacewatch.yaml")

	t.Run("Init", func(t *testing.T) {
		out, err := execute(t, "config", "init", path)
		if err != nil {
			t.Fatalf("config init failed: %v", err)
		}
		if !strings.Contains(out, path) {
			t.Errorf("Expected saved path in output, got %q", out)
		}
		if _, err := config.Load(path); err != nil {
			t.Errorf("Expected loadable config: %v", err)
		}
	})

	t.Run("Init refuses overwrite", func(t *testing.T) {
		if _, err := execute(t, "config", "init", path); err == nil {
			t.Error("Expected error for existing file")
		}
		if _, err := execute(t, "config", "init", path, "--force"); err != nil {
			t.Errorf("Expected --force to overwrite: %v", err)
		}
	})

	t.Run("Show precedence", func(t *testing.T) {
		cfgPath := filepath.Join(dir, "custom.yaml")
		os.WriteFile(cfgPath, []byte("url: https://file.example.test/\ndelay_seconds: 20\n"), 0600)

		out, err := execute(t, "config", "show", "--config", cfgPath, "--db", "/tmp/flag.db")
		if err != nil {
			t.Fatalf("config show failed: %v", err)
		}
		for _, want := range []string{"url: https://file.example.test/", "delay_seconds: 20", "database: /tmp/flag.db"} {
			if !strings.Contains(out, want) {
				t.Errorf("Expected %q in:\n%s", want, out)
			}
		}
	})
}

func TestCLI_ConfigDefaultFile(t *testing.T) {
	home := tempDir(t)
	t.Setenv("HOME", home)
	path := filepath.Join(home, ".pacewatch", "config.yaml")

	if _, err := execute(t, "config", "init"); err != nil {
		t.Fatalf("config init failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Expected config at %s: %v", path, err)
	}
	if !strings.Contains(string(data), "delay_seconds: 10") {
		t.Fatalf("Expected default delay in:\n%s", data)
	}
	edited := strings.Replace(string(data), "delay_seconds: 10", "delay_seconds: 77", 1)
	if err := os.WriteFile(path, []byte(edited), 0600); err != nil {
		t.Fatalf("Failed to edit config: %v", err)
	}

	t.Run("Show reads the default file", func(t *testing.T) {
		out, err := execute(t, "config", "show")
		if err != nil {
			t.Fatalf("config show failed: %v", err)
		}
		if !strings.Contains(out, "delay_seconds: 77") {
			t.Errorf("Expected edited delay in:\n%s", out)
		}
	})

	t.Run("Explicit config wins", func(t *testing.T) {
		other := filepath.Join(home, "other.yaml")
		os.WriteFile(other, []byte("delay_seconds: 5\n"), 0600)
		out, err := execute(t, "config", "show", "--config", other)
		if err != nil {
			t.Fatalf("config show failed: %v", err)
		}
		if !strings.Contains(out, "delay_seconds: 5\n") {
			t.Errorf("Expected --config delay in:\n%s", out)
		}
	})

	t.Run("Watch uses the default file", func(t *testing.T) {
		resetFlags(RootCmd)
		cfg, err := loadConfig(watchCmd)
		if err != nil {
			t.Fatalf("loadConfig failed: %v", err)
		}
		if cfg.DelaySeconds != 77 {
			t.Errorf("Expected delay 77, got %d", cfg.DelaySeconds)
		}
		watchCmd.Flags().Set("delay", "3")
		cfg, _ = loadConfig(watchCmd)
		if cfg.DelaySeconds != 3 {
			t.Errorf("Expected --delay to override the file, got %d", cfg.DelaySeconds)
		}
	})

	t.Run("Malformed default file", func(t *testing.T) {
		os.WriteFile(path, []byte("delay_seconds: [\n"), 0600)
		if _, err := execute(t, "config", "show"); err == nil {
			t.Error("Expected error for a malformed default config")
		}
	})
}
