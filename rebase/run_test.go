package rebase

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"os"
	"path"
	"path/filepath"
	"strings"
	"testing"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"cssrebase/config"
	"cssrebase/state"
)

const mainCSS = "body { background: url(../img/bg.png) no-repeat; color: red }\n" +
	"@font-face { src: url('../fonts/a.woff2?v=3') format('woff2') }\n" +
	".x { background: url(data:image/png;base64,AAAA) }\n"

// setupTestEnv creates a test environment with proper context and logger
func setupTestEnv(t *testing.T) (context.Context, *state.LocalEnv) {
	t.Helper()
	cfg, err := config.LoadConfiguration("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	cfg.Rewrite.Concurrency = 2

	ctx := state.ContextWithEnv(context.Background())
	env := state.EnvFromContext(ctx)
	env.Log = zaptest.NewLogger(t, zaptest.WrapOptions(zap.AddCaller(), zap.AddCallerSkip(1)))
	env.Cfg = cfg
	return ctx, env
}

// setupTree creates source tree under temporary root and returns root
// together with source and destination directories.
func setupTree(t *testing.T) (root, src, dst string) {
	t.Helper()
	root = t.TempDir()
	src, dst = filepath.Join(root, "src"), filepath.Join(root, "out")
	writeFiles(t, src, map[string]string{
		"css/main.css":     mainCSS,
		"css/readme.txt":   "url(../img/bg.png)",
		"img/bg.png":       "png",
		"fonts/a.woff2":    "woff2",
		"css/sub/more.css": "a { cursor: url(../../img/bg.png), auto }",
	})
	return root, src, dst
}

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func makeArchive(t *testing.T, name string, files map[string]string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(name), 0755); err != nil {
		t.Fatal(err)
	}
	f, err := os.Create(name)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	w := zip.NewWriter(f)
	for entry, content := range files {
		fw, err := w.Create(entry)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
}

func readFile(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(name)
	if err != nil {
		t.Fatalf("read %s: %v", name, err)
	}
	return string(data)
}

func runCommand(ctx context.Context, action cli.ActionFunc, flags []cli.Flag, out *bytes.Buffer, args ...string) error {
	cmd := &cli.Command{
		Name:   "test",
		Flags:  flags,
		Action: action,
		Writer: out,
	}
	return cmd.Run(ctx, append([]string{"test"}, args...))
}

func rewrite(ctx context.Context, args ...string) error {
	return runCommand(ctx, Run, RewriteFlags(), &bytes.Buffer{}, args...)
}

func slash(p string) string { return filepath.ToSlash(p) }

func TestRun_Directory(t *testing.T) {
	ctx, _ := setupTestEnv(t)
	root, src, dst := setupTree(t)

	if err := rewrite(ctx, src, dst); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	got := readFile(t, filepath.Join(dst, "css", "main.css"))
	want := "body { background: url(../../src/img/bg.png) no-repeat; color: red }\n" +
		"@font-face { src: url('../../src/fonts/a.woff2') format('woff2') }\n" +
		".x { background: url(data:image/png;base64,AAAA) }\n"
	if got != want {
		t.Errorf("main.css:\n got %q\nwant %q", got, want)
	}

	got = readFile(t, filepath.Join(dst, "css", "sub", "more.css"))
	if got != "a { cursor: url(../../../src/img/bg.png), auto }" {
		t.Errorf("more.css = %q", got)
	}

	// rewritten reference points to the same file from the new location
	req := strings.TrimSuffix(strings.TrimPrefix(strings.Fields(got)[3], "url("), "),")
	if resolved := path.Join(slash(filepath.Join(dst, "css", "sub")), req); resolved != slash(filepath.Join(root, "src", "img", "bg.png")) {
		t.Errorf("reference resolves to %s", resolved)
	}

	if _, err := os.Stat(filepath.Join(dst, "css", "readme.txt")); !os.IsNotExist(err) {
		t.Error("only stylesheets should be processed")
	}
}

func TestRun_Absolute(t *testing.T) {
	ctx, _ := setupTestEnv(t)
	root, src, dst := setupTree(t)

	if err := rewrite(ctx, "--mode", "absolute", "--keep-query", src, dst); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	got := readFile(t, filepath.Join(dst, "css", "main.css"))
	for _, want := range []string{
		"url(" + slash(filepath.Join(root, "src", "img", "bg.png")) + ")",
		"url('" + slash(filepath.Join(root, "src", "fonts", "a.woff2")) + "?v=3')",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in\n%s", want, got)
		}
	}
}

func TestRun_NoDirs(t *testing.T) {
	ctx, _ := setupTestEnv(t)
	_, src, dst := setupTree(t)

	if err := rewrite(ctx, "--nodirs", src, dst); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	for _, name := range []string{"main.css", "more.css"} {
		if _, err := os.Stat(filepath.Join(dst, name)); err != nil {
			t.Errorf("expected %s in destination: %v", name, err)
		}
	}
	if got := readFile(t, filepath.Join(dst, "more.css")); got != "a { cursor: url(../src/img/bg.png), auto }" {
		t.Errorf("more.css = %q", got)
	}
}

func TestRun_SingleFile(t *testing.T) {
	ctx, _ := setupTestEnv(t)
	_, src, dst := setupTree(t)

	if err := rewrite(ctx, filepath.Join(src, "css", "sub", "more.css"), dst); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := readFile(t, filepath.Join(dst, "more.css")); got != "a { cursor: url(../src/img/bg.png), auto }" {
		t.Errorf("more.css = %q", got)
	}
}

func TestRun_ExistingOutput(t *testing.T) {
	ctx, _ := setupTestEnv(t)
	_, src, dst := setupTree(t)
	writeFiles(t, dst, map[string]string{"more.css": "keep me"})

	source := filepath.Join(src, "css", "sub", "more.css")

	// failure of a single stylesheet does not fail the run
	if err := rewrite(ctx, source, dst); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := readFile(t, filepath.Join(dst, "more.css")); got != "keep me" {
		t.Errorf("existing file was changed: %q", got)
	}

	if err := rewrite(ctx, "--overwrite", source, dst); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := readFile(t, filepath.Join(dst, "more.css")); got == "keep me" {
		t.Error("existing file was not overwritten")
	}
}

func TestRun_DryRun(t *testing.T) {
	ctx, env := setupTestEnv(t)
	_, src, dst := setupTree(t)

	if err := rewrite(ctx, "--dry-run", src, dst); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !env.DryRun {
		t.Error("DryRun should be set")
	}
	if _, err := os.Stat(dst); !os.IsNotExist(err) {
		t.Error("nothing should be written in dry run")
	}
}

func TestRun_Archive(t *testing.T) {
	ctx, _ := setupTestEnv(t)
	root, src, dst := setupTree(t)

	arc := filepath.Join(src, "site.zip")
	makeArchive(t, arc, map[string]string{
		"css/theme.css":   "h1 { background: url(../img/bg.png) }",
		"other/extra.css": "h2 { background: url(bg.png) }",
		"cssold/old.css":  "h3 { background: url(bg.png) }",
		"img/bg.png":      "png",
	})

	t.Run("whole archive", func(t *testing.T) {
		out := filepath.Join(dst, "whole")
		if err := rewrite(ctx, arc, out); err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		// archive content is resolved as if unpacked next to the archive
		if got := readFile(t, filepath.Join(out, "css", "theme.css")); got != "h1 { background: url(../../../src/img/bg.png) }" {
			t.Errorf("theme.css = %q", got)
		}
		if got := readFile(t, filepath.Join(out, "other", "extra.css")); got != "h2 { background: url(../../../src/other/bg.png) }" {
			t.Errorf("extra.css = %q", got)
		}
	})

	t.Run("path inside archive", func(t *testing.T) {
		out := filepath.Join(root, "part")
		if err := rewrite(ctx, filepath.Join(arc, "css"), out); err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if _, err := os.Stat(filepath.Join(out, "css", "theme.css")); err != nil {
			t.Errorf("theme.css expected: %v", err)
		}
		for _, dir := range []string{"other", "cssold"} {
			if _, err := os.Stat(filepath.Join(out, dir)); !os.IsNotExist(err) {
				t.Errorf("%s: only entries under requested path should be processed", dir)
			}
		}
	})

	t.Run("archive in directory", func(t *testing.T) {
		out := filepath.Join(root, "all")
		if err := rewrite(ctx, src, out); err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		for _, name := range []string{"css/main.css", "css/theme.css", "other/extra.css"} {
			if _, err := os.Stat(filepath.Join(out, filepath.FromSlash(name))); err != nil {
				t.Errorf("%s expected: %v", name, err)
			}
		}
	})
}

func TestRun_Errors(t *testing.T) {
	ctx, _ := setupTestEnv(t)
	_, src, dst := setupTree(t)

	t.Run("no source", func(t *testing.T) {
		if err := rewrite(ctx); !errors.Is(err, ErrNoSource) {
			t.Errorf("expected ErrNoSource, got %v", err)
		}
	})

	t.Run("not found", func(t *testing.T) {
		err := rewrite(ctx, filepath.Join(src, "missing", "a.css"), dst)
		if err == nil || !strings.Contains(err.Error(), "input source was not found") {
			t.Errorf("unexpected error %v", err)
		}
	})

	t.Run("not a stylesheet", func(t *testing.T) {
		err := rewrite(ctx, filepath.Join(src, "css", "readme.txt"), dst)
		if err == nil || !strings.Contains(err.Error(), "not recognized as stylesheet") {
			t.Errorf("unexpected error %v", err)
		}
	})

	t.Run("directory with tail", func(t *testing.T) {
		err := rewrite(ctx, filepath.Join(src, "css", "nothing", "here"), dst)
		if err == nil {
			t.Error("expected error")
		}
	})

	t.Run("bad mode", func(t *testing.T) {
		if err := rewrite(ctx, "--mode", "sideways", src, dst); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("cancelled", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		if err := rewrite(cctx, src, dst); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestRun_UnknownCodePage(t *testing.T) {
	ctx, env := setupTestEnv(t)
	_, src, dst := setupTree(t)

	if err := rewrite(ctx, "--force-zip-cp", "no-such-charset", src, dst); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if env.CodePage != nil {
		t.Error("unknown code page should be ignored")
	}

	if err := rewrite(ctx, "--overwrite", "--force-zip-cp", "IBM866", src, dst); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if env.CodePage == nil {
		t.Error("code page should be set")
	}
}

func TestValue(t *testing.T) {
	ctx, _ := setupTestEnv(t)
	root, _, _ := setupTree(t)

	var out bytes.Buffer
	err := runCommand(ctx, Value, ValueFlags(), &out,
		"--file", filepath.Join(root, "out", "main.css"),
		"--dir", filepath.Join(root, "src", "css"),
		"url(../img/bg.png) no-repeat", "red", "url(http://example.com/a.png)")
	if err != nil {
		t.Fatalf("Value() error = %v", err)
	}

	want := "url(../src/img/bg.png) no-repeat\nred\nurl(http://example.com/a.png)\n"
	if out.String() != want {
		t.Errorf("got %q, want %q", out.String(), want)
	}
}

func TestValue_Absolute(t *testing.T) {
	ctx, _ := setupTestEnv(t)
	root, _, _ := setupTree(t)

	var out bytes.Buffer
	err := runCommand(ctx, Value, ValueFlags(), &out,
		"--mode", "absolute", "--file", filepath.Join(root, "src", "css", "main.css"),
		"url(../img/bg.png)")
	if err != nil {
		t.Fatalf("Value() error = %v", err)
	}
	if want := "url(" + slash(filepath.Join(root, "src", "img", "bg.png")) + ")\n"; out.String() != want {
		t.Errorf("got %q, want %q", out.String(), want)
	}
}

func TestValue_NoValues(t *testing.T) {
	ctx, _ := setupTestEnv(t)
	err := runCommand(ctx, Value, ValueFlags(), &bytes.Buffer{}, "--file", "a.css")
	if err == nil {
		t.Error("expected error")
	}
}
