package config

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func readArchive(t *testing.T, name string) map[string]string {
	t.Helper()

	zr, err := zip.OpenReader(name)
	if err != nil {
		t.Fatalf("unable to open report: %v", err)
	}
	defer zr.Close()

	files := make(map[string]string)
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("unable to open %s: %v", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("unable to read %s: %v", f.Name, err)
		}
		files[f.Name] = string(data)
	}
	return files
}

func TestReport_Archive(t *testing.T) {
	tmp := t.TempDir()
	conf := ReporterConfig{Destination: filepath.Join(tmp, "report.zip")}

	r, err := conf.Prepare()
	if err != nil {
		t.Fatalf("Prepare() error: %v", err)
	}
	if r.Name() != conf.Destination {
		t.Errorf("Name() = %q, want %q", r.Name(), conf.Destination)
	}

	stored := filepath.Join(tmp, "a.css")
	if err := os.WriteFile(stored, []byte("a { b: c }"), 0644); err != nil {
		t.Fatal(err)
	}
	src := filepath.Join(tmp, "src")
	if err := os.MkdirAll(filepath.Join(src, "sub"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(src, "sub", "b.css"), []byte("b"), 0644); err != nil {
		t.Fatal(err)
	}

	r.Store("stylesheet", stored)
	r.StoreData("args", []byte("rewrite a.css"))
	if err := r.StoreCopy("sources", src); err != nil {
		t.Fatalf("StoreCopy() error: %v", err)
	}
	if err := r.StoreCopy("sources", src); err != nil {
		t.Fatalf("StoreCopy() repeated error: %v", err)
	}
	copies := append([]string(nil), r.copies...)

	if err := r.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	files := readArchive(t, conf.Destination)
	if _, ok := files["MANIFEST"]; !ok {
		t.Error("MANIFEST is missing")
	}
	if files["stylesheet"] != "a { b: c }" {
		t.Errorf("stylesheet = %q", files["stylesheet"])
	}
	if files["args"] != "rewrite a.css" {
		t.Errorf("args = %q", files["args"])
	}
	if files["sources/sub/b.css"] != "b" {
		t.Errorf("copied directory is missing, have %v", len(files))
	}
	if len(files) != 5 {
		t.Errorf("expected 5 archive entries, got %d", len(files))
	}

	// temporary copies are gone, stored originals are not
	if len(copies) != 2 {
		t.Fatalf("expected 2 copies, got %d", len(copies))
	}
	for _, dir := range copies {
		if _, err := os.Stat(dir); !os.IsNotExist(err) {
			t.Errorf("copy %s still exists", dir)
		}
	}
	if _, err := os.Stat(stored); err != nil {
		t.Errorf("stored file should stay: %v", err)
	}
}

func TestReport_Concurrent(t *testing.T) {
	tmp := t.TempDir()
	r, err := (&ReporterConfig{Destination: filepath.Join(tmp, "report.zip")}).Prepare()
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.StoreData("data-"+string(rune('a'+i)), []byte{byte(i + 1)})
		}()
	}
	wg.Wait()

	if err := r.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if files := readArchive(t, r.Name()); len(files) != 17 {
		t.Errorf("expected 17 archive entries, got %d", len(files))
	}
}

func TestReport_Nil(t *testing.T) {
	var r *Report
	r.Store("x", "y")
	r.StoreData("x", []byte("y"))
	if err := r.StoreCopy("x", "y"); err != nil {
		t.Errorf("StoreCopy on nil report should not error, got: %v", err)
	}
	if r.Name() != "" {
		t.Errorf("Name() on nil report = %q", r.Name())
	}
	if err := r.Close(); err != nil {
		t.Errorf("Close on nil report should not error, got: %v", err)
	}
}

func TestReport_NilFile(t *testing.T) {
	r := &Report{entries: make(map[string]entry)}
	if err := r.Close(); err != nil {
		t.Errorf("Close with nil file should not error, got: %v", err)
	}
}
