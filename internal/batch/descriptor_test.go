package batch

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDescribe(t *testing.T) {
	tests := []struct {
		path string
		want FileDescriptor
	}{
		{
			path: "/a/x.png",
			want: FileDescriptor{OriginalPath: "/a/x.png", OriginalName: "x.png", Extension: "png", Stem: "x"},
		},
		{
			path: "/photos/IMG_0001.JPG",
			want: FileDescriptor{OriginalPath: "/photos/IMG_0001.JPG", OriginalName: "IMG_0001.JPG", Extension: "jpg", Stem: "IMG_0001"},
		},
		{
			path: "/src/archive.tar.gz",
			want: FileDescriptor{OriginalPath: "/src/archive.tar.gz", OriginalName: "archive.tar.gz", Extension: "gz", Stem: "archive.tar"},
		},
		{
			path: "/bin/Makefile",
			want: FileDescriptor{OriginalPath: "/bin/Makefile", OriginalName: "Makefile", Extension: "", Stem: "Makefile"},
		},
		{
			path: "relative/notes.txt",
			want: FileDescriptor{OriginalPath: "relative/notes.txt", OriginalName: "notes.txt", Extension: "txt", Stem: "notes"},
		},
		{
			path: `C:\Users\me\model.STL`,
			want: FileDescriptor{OriginalPath: `C:\Users\me\model.STL`, OriginalName: "model.STL", Extension: "stl", Stem: "model"},
		},
		{
			path: "/home/me/.bashrc",
			want: FileDescriptor{OriginalPath: "/home/me/.bashrc", OriginalName: ".bashrc", Extension: "bashrc", Stem: ""},
		},
		{
			path: "/tmp/odd.",
			want: FileDescriptor{OriginalPath: "/tmp/odd.", OriginalName: "odd.", Extension: "", Stem: "odd"},
		},
		{
			path: "bare",
			want: FileDescriptor{OriginalPath: "bare", OriginalName: "bare", Extension: "", Stem: "bare"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			got := Describe(tc.path)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("Describe(%q) mismatch (-want +got):\n%s", tc.path, diff)
			}
		})
	}
}

func TestDescribe_StemAndExtensionRebuildName(t *testing.T) {
	paths := []string{
		"/a/b/c.d.e.png",
		"shot.final.v2.jpeg",
		"/deep/nested/dir/x.y",
		"noext",
		"/music/track",
		"/home/me/.bashrc",
		"/tmp/odd.",
		"trailing..",
	}
	for _, p := range paths {
		fd := Describe(p)
		if !strings.Contains(fd.OriginalName, ".") {
			if fd.Stem != fd.OriginalName {
				t.Errorf("Describe(%q) stem = %q, want %q for extensionless name", p, fd.Stem, fd.OriginalName)
			}
			continue
		}
		if got := fd.Stem + "." + fd.Extension; got != fd.OriginalName {
			t.Errorf("Describe(%q) stem+ext = %q, want %q", p, got, fd.OriginalName)
		}
	}
}

func TestFileDescriptor_DefaultName(t *testing.T) {
	if got := Describe("/a/photo.PNG").DefaultName(); got != "photo.png" {
		t.Errorf("DefaultName() = %q, want %q", got, "photo.png")
	}
	if got := Describe("/a/README").DefaultName(); got != "README" {
		t.Errorf("DefaultName() = %q, want %q", got, "README")
	}
	for _, p := range []string{"/home/me/.bashrc", "/tmp/odd.", "/x/a.b."} {
		fd := Describe(p)
		if got := fd.DefaultName(); got != fd.OriginalName {
			t.Errorf("Describe(%q).DefaultName() = %q, want %q", p, got, fd.OriginalName)
		}
	}
}
