package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// writeFile creates path with content, making parent directories.
func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// refssa runs one command line against a private options file.
func refssa(t *testing.T, configYAML string, argv ...string) (code int, stdout, stderr string) {
	t.Helper()
	cfg := filepath.Join(t.TempDir(), "refssa.yaml")
	writeFile(t, cfg, configYAML)
	var out, errb bytes.Buffer
	code = run(append([]string{argv[0], "--config", cfg}, argv[1:]...), &out, &errb)
	return code, out.String(), errb.String()
}

const quiet = "log:\n  level: error\n"

func TestList(t *testing.T) {
	code, out, stderr := refssa(t, quiet, "list")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	for _, name := range []string{"higher_order_functions", "references", "slices"} {
		if !strings.Contains(out, name) {
			t.Errorf("list output misses %s:\n%s", name, out)
		}
	}
}

func TestRun(t *testing.T) {
	code, out, stderr := refssa(t, quiet, "run", "higher_order_functions")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	if out != "6\n" {
		t.Errorf("run printed %q, want %q", out, "6\n")
	}
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name string
		argv []string
		code int
		want string
	}{
		{"unknown program", []string{"run", "nope"}, 1, "unknown program"},
		{"wrong arity", []string{"run", "higher_order_functions", "1", "2"}, 1, "takes 1 arguments, got 2"},
		{"no program", []string{"run"}, 2, "run <program|dir>"},
		{"unknown command", []string{"frobnicate"}, 2, "unknown command"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out, errb bytes.Buffer
			argv := tt.argv
			if tt.argv[0] != "frobnicate" {
				cfg := filepath.Join(t.TempDir(), "refssa.yaml")
				writeFile(t, cfg, quiet)
				argv = append([]string{tt.argv[0], "--config", cfg}, tt.argv[1:]...)
			}
			code := run(argv, &out, &errb)
			if code != tt.code {
				t.Fatalf("exit %d, want %d (stderr: %s)", code, tt.code, errb.String())
			}
			if !strings.Contains(errb.String(), tt.want) {
				t.Errorf("stderr %q does not mention %q", errb.String(), tt.want)
			}
		})
	}
}

func TestLower_ArgumentOrder(t *testing.T) {
	code, out, stderr := refssa(t, quiet, "lower", "slices", "references")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	i, j := strings.Index(out, "// slices"), strings.Index(out, "// references")
	if i < 0 || j < 0 || i > j {
		t.Errorf("modules not printed in argument order:\n%s", out)
	}
	if strings.Contains(out, "\x1b[") {
		t.Error("colour escapes written to a non-terminal")
	}
}

func TestLower_ColorAlways(t *testing.T) {
	code, out, stderr := refssa(t, quiet, "lower", "--color", "always", "references")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	if !strings.Contains(out, "\x1b[") {
		t.Error("expected colour escapes")
	}
}

func TestBuild_Workspace(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Refssa.toml"), "[workspace]\nmembers = [\"app\", \"refs\"]\ndefault-member = \"app\"\n")
	writeFile(t, filepath.Join(root, "app", "Refssa.toml"), `
[package]
name = "app"
program = "higher_order_functions"

[dependencies]
shared = { path = "../shared" }
`)
	writeFile(t, filepath.Join(root, "refs", "Refssa.toml"), "[package]\nname = \"refs\"\nprogram = \"references\"\n")
	writeFile(t, filepath.Join(root, "shared", "Refssa.toml"), "[package]\nname = \"shared\"\ntype = \"lib\"\nprogram = \"slices\"\n")

	code, out, stderr := refssa(t, quiet, "build", root)
	if code != 0 {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	var built []string
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		built = append(built, strings.Fields(line)[1])
	}
	if diff := cmp.Diff([]string{"shared", "app", "refs"}, built); diff != "" {
		t.Errorf("build order (-want +got):\n%s", diff)
	}

	module := filepath.Join(root, "app", "target", "app.rssa")
	code, out, stderr = refssa(t, quiet, "dump", module)
	if code != 0 {
		t.Fatalf("dump exit %d: %s", code, stderr)
	}
	if !strings.HasPrefix(out, "// build ") || !strings.Contains(out, "main") {
		t.Errorf("unexpected dump:\n%s", out)
	}

	// The workspace runs its default member.
	code, out, stderr = refssa(t, quiet, "run", root)
	if code != 0 {
		t.Fatalf("run exit %d: %s", code, stderr)
	}
	if out != "6\n" {
		t.Errorf("run printed %q", out)
	}
}

func TestBuild_DependencyCycle(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a", "Refssa.toml"), "[package]\nname = \"a\"\nprogram = \"slices\"\n[dependencies]\nb = { path = \"../b\" }\n")
	writeFile(t, filepath.Join(root, "b", "Refssa.toml"), "[package]\nname = \"b\"\nprogram = \"slices\"\n[dependencies]\na = { path = \"../a\" }\n")

	code, _, stderr := refssa(t, quiet, "build", filepath.Join(root, "a"))
	if code != 1 || !strings.Contains(stderr, "dependency cycle") {
		t.Fatalf("exit %d, stderr %q", code, stderr)
	}
}

func TestCache(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "refssa.yaml")
	writeFile(t, cfg, quiet+"cache:\n  enabled: true\n  path: cache.db\n")

	var out, errb bytes.Buffer
	for _, argv := range [][]string{
		{"lower", "--config", cfg, "references"},
		{"lower", "--config", cfg, "references"},
	} {
		if code := run(argv, &out, &errb); code != 0 {
			t.Fatalf("%v: exit %d: %s", argv, code, errb.String())
		}
	}
	out.Reset()
	if code := run([]string{"cache", "--config", cfg}, &out, &errb); code != 0 {
		t.Fatalf("cache: exit %d: %s", code, errb.String())
	}
	if n := len(strings.Split(strings.TrimSpace(out.String()), "\n")); n != 1 {
		t.Errorf("expected one cached module, got %d:\n%s", n, out.String())
	}
	if _, err := os.Stat(filepath.Join(dir, "cache.db")); err != nil {
		t.Errorf("cache database not created next to the options file: %v", err)
	}
}

func TestUseColor(t *testing.T) {
	var buf bytes.Buffer
	tests := []struct {
		mode string
		want bool
	}{
		{"always", true},
		{"never", false},
		{"auto", false},
		{"", false},
	}
	for _, tt := range tests {
		got, err := useColor(tt.mode, &buf)
		if err != nil || got != tt.want {
			t.Errorf("useColor(%q) = %v, %v; want %v", tt.mode, got, err, tt.want)
		}
	}
	if _, err := useColor("sometimes", &buf); err == nil {
		t.Error("expected an error for an unknown mode")
	}
}
