package batch

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestOperation_AddFilesIsIdempotent(t *testing.T) {
	op := NewOperation("op")

	if got := op.AddFiles("/a/x.png", "/a/y.png"); got != 2 {
		t.Fatalf("AddFiles() = %d, want 2", got)
	}
	if err := op.SetTargetName("/a/x.png", "renamed"); err != nil {
		t.Fatalf("SetTargetName() error = %v", err)
	}
	if got := op.AddFiles("/a/x.png", "/a/z.png", "/a/z.png"); got != 1 {
		t.Errorf("AddFiles(duplicates) = %d, want 1", got)
	}

	var paths []string
	for _, fd := range op.Files {
		paths = append(paths, fd.OriginalPath)
	}
	if diff := cmp.Diff([]string{"/a/x.png", "/a/y.png", "/a/z.png"}, paths); diff != "" {
		t.Errorf("Files mismatch (-want +got):\n%s", diff)
	}

	wantNames := map[string]string{
		"/a/x.png": "renamed.png",
		"/a/y.png": "y.png",
		"/a/z.png": "z.png",
	}
	if diff := cmp.Diff(wantNames, op.TargetNames); diff != "" {
		t.Errorf("TargetNames mismatch (-want +got):\n%s", diff)
	}
}

func TestOperation_SetTargetName(t *testing.T) {
	tests := []struct {
		name string
		path string
		raw  string
		want string
	}{
		{name: "typed extension replaced", path: "/in/photo.jpg", raw: "foo.png", want: "foo.jpg"},
		{name: "no extension typed", path: "/in/photo.jpg", raw: "holiday", want: "holiday.jpg"},
		{name: "only last extension stripped", path: "/in/photo.jpg", raw: "a.b.c", want: "a.b.jpg"},
		{name: "whitespace trimmed", path: "/in/photo.jpg", raw: "  spaced  ", want: "spaced.jpg"},
		{name: "blank falls back to stem", path: "/in/photo.jpg", raw: "   ", want: "photo.jpg"},
		{name: "trailing dot dropped", path: "/in/photo.jpg", raw: "x.", want: "x.jpg"},
		{name: "extensionless file", path: "/in/Makefile", raw: "GNUmakefile.txt", want: "GNUmakefile"},
		{name: "dotfile keeps its extension", path: "/home/.bashrc", raw: "profile", want: "profile.bashrc"},
		{name: "dotfile blank keeps name", path: "/home/.bashrc", raw: "", want: ".bashrc"},
		{name: "trailing dot kept", path: "/in/odd.", raw: "even", want: "even."},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			op := NewOperation("op")
			op.AddFiles(tc.path)
			if err := op.SetTargetName(tc.path, tc.raw); err != nil {
				t.Fatalf("SetTargetName() error = %v", err)
			}
			if got := op.TargetNames[tc.path]; got != tc.want {
				t.Errorf("SetTargetName(%q) stored %q, want %q", tc.raw, got, tc.want)
			}
		})
	}
}

func TestOperation_SetTargetNameUnknownPath(t *testing.T) {
	op := NewOperation("op")
	op.AddFiles("/a/x.png")
	before := op.Clone()

	err := op.SetTargetName("/a/missing.png", "foo")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("SetTargetName(unknown) error = %v, want ErrNotFound", err)
	}
	if diff := cmp.Diff(before, op); diff != "" {
		t.Errorf("SetTargetName(unknown) changed state (-want +got):\n%s", diff)
	}
}

func TestOperation_RemoveFilePrunesEntries(t *testing.T) {
	op := NewOperation("op")
	op.AddFiles("/a/x.png", "/a/y.png")
	if err := op.TogglePreview("/a/x.png", true); err != nil {
		t.Fatalf("TogglePreview() error = %v", err)
	}

	empty, err := op.RemoveFile("/a/x.png")
	if err != nil || empty {
		t.Fatalf("RemoveFile() = (%v, %v), want (false, <nil>)", empty, err)
	}
	if _, ok := op.TargetNames["/a/x.png"]; ok {
		t.Error("RemoveFile() left a target name behind")
	}
	if _, ok := op.PreviewVisible["/a/x.png"]; ok {
		t.Error("RemoveFile() left a preview flag behind")
	}

	empty, err = op.RemoveFile("/a/y.png")
	if err != nil || !empty {
		t.Errorf("RemoveFile(last) = (%v, %v), want (true, <nil>)", empty, err)
	}

	if _, err := op.RemoveFile("/a/y.png"); !errors.Is(err, ErrNotFound) {
		t.Errorf("RemoveFile(absent) error = %v, want ErrNotFound", err)
	}
}

func TestOperation_TogglePreviewAndExpanded(t *testing.T) {
	op := NewOperation("op")
	op.AddFiles("/a/x.png")

	if err := op.TogglePreview("/a/x.png", true); err != nil {
		t.Fatalf("TogglePreview(true) error = %v", err)
	}
	if !op.PreviewVisible["/a/x.png"] {
		t.Error("TogglePreview(true) did not set the flag")
	}
	if err := op.TogglePreview("/a/x.png", false); err != nil {
		t.Fatalf("TogglePreview(false) error = %v", err)
	}
	if op.PreviewVisible["/a/x.png"] {
		t.Error("TogglePreview(false) did not clear the flag")
	}
	if err := op.TogglePreview("/nope", true); !errors.Is(err, ErrNotFound) {
		t.Errorf("TogglePreview(unknown) error = %v, want ErrNotFound", err)
	}

	if !op.Expanded {
		t.Fatal("NewOperation() should start expanded")
	}
	op.ToggleExpanded()
	if op.Expanded {
		t.Error("ToggleExpanded() did not collapse")
	}
}

func TestOperation_TargetFolderAndResolvedName(t *testing.T) {
	op := NewOperation("op")
	op.AddFiles("/a/x.png")
	op.SetDestination("/out")

	if got := op.TargetFolder(); got != "/out" {
		t.Errorf("TargetFolder() = %q, want /out", got)
	}
	op.SetSubfolder("done")
	if got := op.TargetFolder(); got != "/out/done" {
		t.Errorf("TargetFolder() = %q, want /out/done", got)
	}
	op.SetSubfolder("   ")
	if got := op.TargetFolder(); got != "/out" {
		t.Errorf("TargetFolder(blank subfolder) = %q, want /out", got)
	}

	delete(op.TargetNames, "/a/x.png")
	if got := op.ResolvedName("/a/x.png"); got != "x.png" {
		t.Errorf("ResolvedName(no entry) = %q, want x.png", got)
	}
}

func TestOperation_Validate(t *testing.T) {
	op := NewOperation("op")
	if err := op.Validate(); !errors.Is(err, ErrNoFiles) {
		t.Errorf("Validate(empty) = %v, want ErrNoFiles", err)
	}
	op.AddFiles("/a/x.png")
	if err := op.Validate(); !errors.Is(err, ErrNoDestination) {
		t.Errorf("Validate(no destination) = %v, want ErrNoDestination", err)
	}
	op.SetDestination("/out")
	if err := op.Validate(); err != nil || !op.Ready() {
		t.Errorf("Validate(ready) = %v, Ready() = %v", err, op.Ready())
	}
}

func TestOperation_CloneIsDeep(t *testing.T) {
	op := NewOperation("op")
	op.AddFiles("/a/x.png")
	c := op.Clone()
	c.AddFiles("/a/y.png")
	c.TargetNames["/a/x.png"] = "changed.png"

	if len(op.Files) != 1 {
		t.Errorf("Clone() shares Files: original has %d files", len(op.Files))
	}
	if op.TargetNames["/a/x.png"] != "x.png" {
		t.Errorf("Clone() shares TargetNames: original = %q", op.TargetNames["/a/x.png"])
	}
}
