package components

import (
	"strings"
	"testing"
	"time"

	"github.com/Digital-Shane/batch-mover/internal/journal"
	"github.com/Digital-Shane/batch-mover/internal/tui/theme"
	"github.com/Digital-Shane/treeview"
	"github.com/charmbracelet/bubbles/viewport"
)

func TestSessionLabel(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		meta journal.SessionMetadata
		want string
	}{
		{
			name: "command",
			meta: journal.SessionMetadata{CommandArgs: []string{"move", "--dest", "/out"}, Timestamp: now.Add(-2 * time.Hour), TotalOps: 3},
			want: "move - 2 hours ago (3 ops)",
		},
		{
			name: "no command",
			meta: journal.SessionMetadata{Timestamp: now, TotalOps: 1},
			want: "batch - just now (1 ops)",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := SessionLabel(&journal.Session{Metadata: tc.meta}, now); got != tc.want {
				t.Errorf("SessionLabel() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestSessionPredicates(t *testing.T) {
	node := func(ok, failed int) *treeview.Node[journal.SessionFile] {
		s := &journal.Session{Metadata: journal.SessionMetadata{SuccessfulOps: ok, FailedOps: failed}}
		return treeview.NewNode("id", "name", journal.SessionFile{Session: s})
	}

	tests := []struct {
		name        string
		node        *treeview.Node[journal.SessionFile]
		wantFailed  bool
		wantSuccess bool
	}{
		{"clean", node(2, 0), false, true},
		{"failures", node(1, 1), true, false},
		{"empty", node(0, 0), false, false},
		{"no session", treeview.NewNode("id", "name", journal.SessionFile{}), false, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := hasFailures()(tc.node); got != tc.wantFailed {
				t.Errorf("hasFailures() = %v, want %v", got, tc.wantFailed)
			}
			if got := allSucceeded()(tc.node); got != tc.wantSuccess {
				t.Errorf("allSucceeded() = %v, want %v", got, tc.wantSuccess)
			}
		})
	}
}

type fakeScroll struct{ up, down, halfUp, halfDown int }

func (f *fakeScroll) ScrollUp(n int) []string   { f.up += n; return nil }
func (f *fakeScroll) ScrollDown(n int) []string { f.down += n; return nil }
func (f *fakeScroll) HalfPageUp() []string      { f.halfUp++; return nil }
func (f *fakeScroll) HalfPageDown() []string    { f.halfDown++; return nil }

func TestScrollKeyDrivesViewport(t *testing.T) {
	var s Scrollable = NewViewport(20, 6, theme.Default())
	vp := s.(*viewport.Model)
	vp.SetContent(strings.Repeat("line\n", 12))
	if !ScrollKey(s, "down") {
		t.Fatal("ScrollKey(down) = false, want true")
	}
	if vp.YOffset != 1 {
		t.Errorf("YOffset after down = %d, want 1", vp.YOffset)
	}
	ScrollKey(s, "up")
	if vp.YOffset != 0 {
		t.Errorf("YOffset after up = %d, want 0", vp.YOffset)
	}
}

func TestScrollKey(t *testing.T) {
	var f fakeScroll
	for _, k := range []string{"up", "j", "pgup", "pgdown", "x"} {
		ScrollKey(&f, k)
	}
	if f.up != 1 || f.down != 1 || f.halfUp != 1 || f.halfDown != 1 {
		t.Errorf("ScrollKey() counts = %+v", f)
	}
	if ScrollKey(&f, "enter") {
		t.Error("ScrollKey(enter) = true, want false")
	}
}
