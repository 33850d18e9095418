package journal

import (
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/spf13/afero"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestJournal_RecordAndEnd(t *testing.T) {
	mem := afero.NewMemMapFs()
	at := time.Date(2026, 3, 14, 15, 9, 26, 535_000_000, time.UTC)
	j := New("/logs", true, WithFs(mem), WithClock(fixedClock(at)))

	if err := j.Start("move", []string{"--dest", "/out"}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	j.RecordCreateDir("op-1", "/out/done", true, nil)
	j.RecordMove("op-1", "/a/x.png", "/out/done/x.png", nil)
	j.RecordMove("op-1", "/a/y.png", "/out/done/y.png", os.ErrPermission)

	path, err := j.End()
	if err != nil {
		t.Fatalf("End() error = %v", err)
	}
	if path != "/logs/2026-03-14_150926.535.json" {
		t.Errorf("End() path = %q", path)
	}

	got, err := j.Read(path)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	want := &Session{
		Metadata: SessionMetadata{
			CommandArgs:   []string{"move", "--dest", "/out"},
			Timestamp:     at,
			SessionID:     "20260314_150926_535",
			TotalOps:      3,
			SuccessfulOps: 2,
			FailedOps:     1,
		},
		Entries: []Entry{
			{ID: "20260314_150926_535_0", Timestamp: at, Type: EntryCreateDir, OperationID: "op-1", DestPath: "/out/done", Created: true, Success: true},
			{ID: "20260314_150926_535_1", Timestamp: at, Type: EntryMove, OperationID: "op-1", SourcePath: "/a/x.png", DestPath: "/out/done/x.png", Success: true},
			{ID: "20260314_150926_535_2", Timestamp: at, Type: EntryMove, OperationID: "op-1", SourcePath: "/a/y.png", DestPath: "/out/done/y.png", Error: os.ErrPermission.Error()},
		},
	}
	if diff := cmp.Diff(want, got, cmpopts.IgnoreFields(SessionMetadata{}, "WorkingDir")); diff != "" {
		t.Errorf("session mismatch (-want +got):\n%s", diff)
	}
}

func TestJournal_Disabled(t *testing.T) {
	mem := afero.NewMemMapFs()
	j := New("/logs", false, WithFs(mem))

	if err := j.Start("move", nil); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	j.RecordMove("op", "/a", "/b", nil)
	path, err := j.End()
	if err != nil || path != "" {
		t.Errorf("End() = (%q, %v), want (\"\", <nil>)", path, err)
	}
	if ok, _ := afero.DirExists(mem, "/logs"); ok {
		t.Error("disabled journal created its directory")
	}
}

func TestJournal_EmptySessionNotWritten(t *testing.T) {
	mem := afero.NewMemMapFs()
	j := New("/logs", true, WithFs(mem))
	_ = j.Start("tui", nil)
	if path, err := j.End(); err != nil || path != "" {
		t.Errorf("End(empty) = (%q, %v), want nothing written", path, err)
	}
}

func TestJournal_SessionsNewestFirst(t *testing.T) {
	mem := afero.NewMemMapFs()
	base := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		j := New("/logs", true, WithFs(mem), WithClock(fixedClock(base.Add(time.Duration(i)*time.Hour))))
		_ = j.Start("move", []string{string(rune('a' + i))})
		j.RecordMove("op", "/x", "/y", nil)
		if _, err := j.End(); err != nil {
			t.Fatalf("End() error = %v", err)
		}
	}
	_ = afero.WriteFile(mem, "/logs/9999-corrupt.json", []byte("{not json"), 0o644)

	j := New("/logs", true, WithFs(mem))
	sessions, err := j.Sessions(0)
	if err != nil {
		t.Fatalf("Sessions() error = %v", err)
	}
	var args []string
	for _, s := range sessions {
		args = append(args, s.Session.Metadata.CommandArgs[1])
	}
	if diff := cmp.Diff([]string{"c", "b", "a"}, args); diff != "" {
		t.Errorf("Sessions() order mismatch (-want +got):\n%s", diff)
	}

	latest, err := j.Latest()
	if err != nil || latest.Session.Metadata.CommandArgs[1] != "c" {
		t.Errorf("Latest() = (%+v, %v), want session c", latest, err)
	}
}

func TestJournal_LatestWithoutSessions(t *testing.T) {
	j := New("/nowhere", true, WithFs(afero.NewMemMapFs()))
	if _, err := j.Latest(); err == nil {
		t.Error("Latest() with no sessions should fail")
	}
}

func TestJournal_Cleanup(t *testing.T) {
	mem := afero.NewMemMapFs()
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	_ = afero.WriteFile(mem, "/logs/old.json", []byte("{}"), 0o644)
	_ = afero.WriteFile(mem, "/logs/new.json", []byte("{}"), 0o644)
	_ = mem.Chtimes("/logs/old.json", now.AddDate(0, 0, -40), now.AddDate(0, 0, -40))
	_ = mem.Chtimes("/logs/new.json", now.AddDate(0, 0, -1), now.AddDate(0, 0, -1))

	j := New("/logs", true, WithFs(mem), WithClock(fixedClock(now)))
	removed, failed, err := j.Cleanup(30)
	if err != nil || removed != 1 || failed != 0 {
		t.Fatalf("Cleanup() = (%d, %d, %v), want (1, 0, <nil>)", removed, failed, err)
	}
	if ok, _ := afero.Exists(mem, "/logs/old.json"); ok {
		t.Error("Cleanup() kept an expired session")
	}
	if ok, _ := afero.Exists(mem, "/logs/new.json"); !ok {
		t.Error("Cleanup() removed a recent session")
	}
}

func TestUndo_RevertsMovesAndCreatedFolders(t *testing.T) {
	mem := afero.NewMemMapFs()
	_ = mem.MkdirAll("/a", 0o755)
	_ = mem.MkdirAll("/out/done", 0o755)
	_ = afero.WriteFile(mem, "/out/done/x.png", []byte("x"), 0o644)
	_ = afero.WriteFile(mem, "/out/done/renamed.png", []byte("y"), 0o644)

	session := &Session{Entries: []Entry{
		{Type: EntryCreateDir, DestPath: "/out/done", Created: true, Success: true},
		{Type: EntryMove, SourcePath: "/a/x.png", DestPath: "/out/done/x.png", Success: true},
		{Type: EntryMove, SourcePath: "/a/y.png", DestPath: "/out/done/renamed.png", Success: true},
		{Type: EntryMove, SourcePath: "/a/z.png", DestPath: "/out/done/z.png", Success: false, Error: "denied"},
	}}

	j := New("/logs", true, WithFs(mem))
	results := j.Undo(session)
	ok, failed, errs := CountUndo(results)
	if ok != 3 || failed != 0 {
		t.Fatalf("CountUndo() = (%d, %d, %v), want (3, 0)", ok, failed, errs)
	}
	for _, p := range []string{"/a/x.png", "/a/y.png"} {
		if exists, _ := afero.Exists(mem, p); !exists {
			t.Errorf("Undo() did not restore %s", p)
		}
	}
	if exists, _ := afero.DirExists(mem, "/out/done"); exists {
		t.Error("Undo() left the created folder behind")
	}
}

func TestUndoEntry_Refusals(t *testing.T) {
	mem := afero.NewMemMapFs()
	_ = afero.WriteFile(mem, "/a/x.png", []byte("back"), 0o644)
	_ = afero.WriteFile(mem, "/out/x.png", []byte("moved"), 0o644)
	_ = afero.WriteFile(mem, "/full/keep.txt", []byte("k"), 0o644)
	_ = mem.MkdirAll("/existing", 0o755)

	tests := []struct {
		name        string
		entry       Entry
		wantErr     bool
		wantSkipped bool
	}{
		{name: "original taken", entry: Entry{Type: EntryMove, SourcePath: "/a/x.png", DestPath: "/out/x.png"}, wantErr: true},
		{name: "moved file gone", entry: Entry{Type: EntryMove, SourcePath: "/a/q.png", DestPath: "/out/q.png"}, wantErr: true},
		{name: "folder not empty", entry: Entry{Type: EntryCreateDir, DestPath: "/full", Created: true}, wantErr: true},
		{name: "folder pre-existed", entry: Entry{Type: EntryCreateDir, DestPath: "/existing"}, wantSkipped: true},
		{name: "unknown type", entry: Entry{Type: "delete", SourcePath: "/a"}, wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := UndoEntry(mem, tc.entry)
			if tc.wantErr && (r.Error == nil || r.Success) {
				t.Errorf("UndoEntry() = %+v, want error", r)
			}
			if tc.wantSkipped && !r.Skipped {
				t.Errorf("UndoEntry() = %+v, want skipped", r)
			}
		})
	}
	if ok, _ := afero.DirExists(mem, "/existing"); !ok {
		t.Error("UndoEntry() removed a folder it did not create")
	}
}

func TestFormatRelativeTime(t *testing.T) {
	now := time.Date(2026, 5, 20, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		ago  time.Duration
		want string
	}{
		{30 * time.Second, "just now"},
		{time.Minute, "1 minute ago"},
		{5 * time.Minute, "5 minutes ago"},
		{3 * time.Hour, "3 hours ago"},
		{2 * 24 * time.Hour, "2 days ago"},
		{30 * 24 * time.Hour, "Apr 20, 2026"},
	}
	for _, tc := range tests {
		if got := FormatRelativeTime(now.Add(-tc.ago), now); got != tc.want {
			t.Errorf("FormatRelativeTime(-%v) = %q, want %q", tc.ago, got, tc.want)
		}
	}
}
