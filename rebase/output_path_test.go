package rebase

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"cssrebase/config"
	"cssrebase/state"
)

func setupTestEnvForOutputPath(t *testing.T, noDirs bool) *state.LocalEnv {
	t.Helper()
	logger := zaptest.NewLogger(t, zaptest.WrapOptions(zap.AddCaller(), zap.AddCallerSkip(1)))
	cfg, err := config.LoadConfiguration("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	return &state.LocalEnv{
		Log:      logger,
		Cfg:      cfg,
		Switches: state.Switches{NoDirs: noDirs},
	}
}

func TestBuildOutputPath(t *testing.T) {
	tests := []struct {
		name   string
		noDirs bool
		src    string
		want   string
	}{
		{"with dirs", false, "site/css/main.css", filepath.Join("/output", "site", "css", "main.css")},
		{"no dirs", true, "site/css/main.css", filepath.Join("/output", "main.css")},
		{"file only", false, "main.css", filepath.Join("/output", "main.css")},
		{"file only no dirs", true, "main.css", filepath.Join("/output", "main.css")},
		{"bad characters", false, "css/a:b.css", filepath.Join("/output", "css", config.CleanFileName("a:b.css"))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestEnvForOutputPath(t, tt.noDirs)
			if got := buildOutputPath(filepath.FromSlash(tt.src), "/output", env); got != tt.want {
				t.Errorf("buildOutputPath() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPrepareOutput(t *testing.T) {
	log := zaptest.NewLogger(t)
	dir := t.TempDir()

	t.Run("creates directories", func(t *testing.T) {
		name := filepath.Join(dir, "a", "b", "main.css")
		if err := prepareOutput(name, false, log); err != nil {
			t.Fatalf("prepareOutput() error = %v", err)
		}
		if fi, err := os.Stat(filepath.Dir(name)); err != nil || !fi.IsDir() {
			t.Errorf("output directory was not created: %v", err)
		}
	})

	name := filepath.Join(dir, "exists.css")
	if err := os.WriteFile(name, []byte("old"), 0644); err != nil {
		t.Fatal(err)
	}

	t.Run("exists", func(t *testing.T) {
		err := prepareOutput(name, false, log)
		if !errors.Is(err, ErrDestinationExists) {
			t.Errorf("expected ErrDestinationExists, got %v", err)
		}
		if _, err := os.Stat(name); err != nil {
			t.Error("existing file should be kept")
		}
	})

	t.Run("overwrite", func(t *testing.T) {
		if err := prepareOutput(name, true, log); err != nil {
			t.Fatalf("prepareOutput() error = %v", err)
		}
		if _, err := os.Stat(name); !os.IsNotExist(err) {
			t.Error("existing file should be removed")
		}
	})
}
