package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Digital-Shane/batch-mover/internal/batch"
	"github.com/Digital-Shane/batch-mover/internal/picker"
	"github.com/google/go-cmp/cmp"
)

func setHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	return home
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeFiles(t *testing.T, dir string, names ...string) []string {
	t.Helper()
	var paths []string
	for _, name := range names {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(name), 0o644); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
		paths = append(paths, p)
	}
	return paths
}

func stubPicker(t *testing.T, svc picker.Service) {
	t.Helper()
	prev := interactivePicker
	interactivePicker = func(string) picker.Service { return svc }
	t.Cleanup(func() { interactivePicker = prev })
}

func TestConfigPath(t *testing.T) {
	home := setHome(t)
	out, err := execute(t, "config", "path")
	if err != nil {
		t.Fatalf("config path: %v", err)
	}
	want := filepath.Join(home, ".batch-mover", "config.toml") + "\n"
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("config path output mismatch (-want +got):\n%s", diff)
	}
}

func TestConfigInitAndShow(t *testing.T) {
	home := setHome(t)

	if _, err := execute(t, "config", "init"); err != nil {
		t.Fatalf("config init: %v", err)
	}
	if _, err := os.Stat(filepath.Join(home, ".batch-mover", "config.toml")); err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	if _, err := execute(t, "config", "init"); err == nil {
		t.Error("second config init succeeded, want an already-exists error")
	}
	if _, err := execute(t, "config", "init", "--force"); err != nil {
		t.Errorf("config init --force: %v", err)
	}

	out, err := execute(t, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	for _, want := range []string{`clear_policy = "clear-on-success"`, "workers = 1", "log_retention_days = 30"} {
		if !strings.Contains(out, want) {
			t.Errorf("config show missing %q in:\n%s", want, out)
		}
	}
}

func TestMoveAndUndoLatest(t *testing.T) {
	setHome(t)
	src := t.TempDir()
	dst := t.TempDir()
	files := writeFiles(t, src, "a.txt", "b.txt")

	out, err := execute(t, "move", files[0], files[1], "--dest", dst, "--subfolder", "sub", "--rename", "a.txt=alpha")
	if err != nil {
		t.Fatalf("move: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Done: moved 2 of 2 files") {
		t.Errorf("move output missing summary:\n%s", out)
	}
	for _, name := range []string{"alpha.txt", "b.txt"} {
		if _, err := os.Stat(filepath.Join(dst, "sub", name)); err != nil {
			t.Errorf("expected %s in destination: %v", name, err)
		}
	}

	out, err = execute(t, "undo", "--list")
	if err != nil {
		t.Fatalf("undo --list: %v", err)
	}
	if !strings.Contains(out, "move - just now") {
		t.Errorf("undo --list output missing the move session:\n%s", out)
	}

	out, err = execute(t, "undo", "--latest")
	if err != nil {
		t.Fatalf("undo --latest: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Reverted move") {
		t.Errorf("undo --latest output = %q", out)
	}
	for _, p := range files {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("expected %s restored: %v", p, err)
		}
	}
}

func TestMoveAsksPickerForMissingFiles(t *testing.T) {
	setHome(t)
	src := t.TempDir()
	dst := t.TempDir()
	files := writeFiles(t, src, "photo.png")
	stubPicker(t, picker.Static{Files: files})

	out, err := execute(t, "move", "--dest", dst)
	if err != nil {
		t.Fatalf("move: %v\n%s", err, out)
	}
	if _, err := os.Stat(filepath.Join(dst, "photo.png")); err != nil {
		t.Errorf("photo.png not moved: %v", err)
	}
}

func TestMovePickerDismissed(t *testing.T) {
	setHome(t)
	stubPicker(t, picker.Static{})

	out, err := execute(t, "move")
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if !strings.Contains(out, "Nothing selected") {
		t.Errorf("move output = %q, want the nothing-selected notice", out)
	}
}

func TestMoveRejectsBadFlags(t *testing.T) {
	setHome(t)
	dst := t.TempDir()
	files := writeFiles(t, t.TempDir(), "a.txt")

	tests := []struct {
		name string
		args []string
	}{
		{"rename without equals", []string{"--rename", "a.txt"}},
		{"rename unknown file", []string{"--rename", "zzz.txt=new"}},
		{"unknown policy", []string{"--policy", "sometimes"}},
		{"zero workers", []string{"--workers", "0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"move", files[0], "--dest", dst}, tt.args...)
			if _, err := execute(t, args...); err == nil {
				t.Errorf("move %v succeeded, want an error", tt.args)
			}
			if _, err := os.Stat(files[0]); err != nil {
				t.Errorf("source moved despite invalid flags: %v", err)
			}
		})
	}
}

func TestMoveReportsFailures(t *testing.T) {
	setHome(t)
	dst := t.TempDir()
	missing := filepath.Join(t.TempDir(), "gone.txt")

	out, err := execute(t, "move", missing, "--dest", dst)
	if err == nil {
		t.Fatal("move of a missing file succeeded")
	}
	if !strings.Contains(out, "failed "+missing) {
		t.Errorf("move output missing the failure line:\n%s", out)
	}
}

func TestUndoWithoutSessions(t *testing.T) {
	setHome(t)
	out, err := execute(t, "undo", "--list")
	if err != nil {
		t.Fatalf("undo --list: %v", err)
	}
	if diff := cmp.Diff("No runs found to undo.\n", out); diff != "" {
		t.Errorf("undo output mismatch (-want +got):\n%s", diff)
	}
	if _, err := execute(t, "undo", "--latest"); err == nil {
		t.Error("undo --latest without sessions succeeded")
	}
}

func TestApplyRenames(t *testing.T) {
	op := batch.NewOperation("op")
	op.AddFiles("/in/a.txt", "/in/b.JPG")

	if err := applyRenames(&op, []string{"a.txt=first", "/in/b.JPG=second.png"}); err != nil {
		t.Fatalf("applyRenames: %v", err)
	}
	want := map[string]string{"/in/a.txt": "first.txt", "/in/b.JPG": "second.jpg"}
	if diff := cmp.Diff(want, op.TargetNames); diff != "" {
		t.Errorf("target names mismatch (-want +got):\n%s", diff)
	}
}

func TestInvocation(t *testing.T) {
	cmd := newMoveCmd()
	if err := cmd.ParseFlags([]string{"--dest", "/out", "-r", "a=b", "-r", "c=d"}); err != nil {
		t.Fatalf("ParseFlags: %v", err)
	}
	got := invocation(cmd, []string{"x.png"})
	want := []string{"--dest=/out", "--rename=a=b", "--rename=c=d", "x.png"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("invocation mismatch (-want +got):\n%s", diff)
	}
}
