// Package journal records every folder creation and file move performed by
// an apply run so the run can be inspected or undone later. Each run is one
// session, written as a JSON file under the journal directory.
package journal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/spf13/afero"
)

type EntryType string

const (
	EntryMove      EntryType = "move"
	EntryCreateDir EntryType = "create_dir"
)

// Entry is a single journaled filesystem action.
type Entry struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	Type        EntryType `json:"type"`
	OperationID string    `json:"operation_id,omitempty"`
	SourcePath  string    `json:"source_path,omitempty"`
	DestPath    string    `json:"dest_path,omitempty"`
	// Created is set on create_dir entries when the folder did not exist
	// beforehand; only those folders are removed by undo.
	Created bool   `json:"created,omitempty"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type SessionMetadata struct {
	CommandArgs   []string  `json:"command_args"`
	WorkingDir    string    `json:"working_dir"`
	Timestamp     time.Time `json:"timestamp"`
	SessionID     string    `json:"session_id"`
	TotalOps      int       `json:"total_operations"`
	SuccessfulOps int       `json:"successful_operations"`
	FailedOps     int       `json:"failed_operations"`
}

type Session struct {
	Metadata SessionMetadata `json:"metadata"`
	Entries  []Entry         `json:"entries"`
}

// Journal owns the session currently being recorded. A disabled journal
// accepts every call and writes nothing.
type Journal struct {
	fs      afero.Fs
	dir     string
	enabled bool
	now     func() time.Time

	mu      sync.Mutex
	current *Session
}

// Option configures a Journal during construction.
type Option func(*Journal)

// WithFs overrides the filesystem sessions are written to.
func WithFs(fs afero.Fs) Option {
	return func(j *Journal) {
		j.fs = fs
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(j *Journal) {
		j.now = now
	}
}

// New returns a journal writing sessions into dir.
func New(dir string, enabled bool, opts ...Option) *Journal {
	j := &Journal{
		fs:      afero.NewOsFs(),
		dir:     dir,
		enabled: enabled,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// DefaultDir is ~/.batch-mover/logs.
func DefaultDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".batch-mover", "logs"), nil
}

// Dir returns the directory sessions are stored in.
func (j *Journal) Dir() string { return j.dir }

// Enabled reports whether sessions are recorded.
func (j *Journal) Enabled() bool { return j.enabled }

// Start opens a new session. A session already open is discarded.
func (j *Journal) Start(command string, args []string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !j.enabled {
		return nil
	}

	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}

	now := j.now()
	j.current = &Session{
		Metadata: SessionMetadata{
			CommandArgs: append([]string{command}, args...),
			WorkingDir:  wd,
			Timestamp:   now,
			SessionID:   fmt.Sprintf("%s_%03d", now.Format("20060102_150405"), now.Nanosecond()/int(time.Millisecond)),
		},
		Entries: []Entry{},
	}
	return nil
}

// RecordMove journals a file move attempt.
func (j *Journal) RecordMove(operationID, from, to string, err error) {
	j.record(Entry{Type: EntryMove, OperationID: operationID, SourcePath: from, DestPath: to}, err)
}

// RecordCreateDir journals an ensure-folder attempt. created tells undo
// whether the folder is ours to remove.
func (j *Journal) RecordCreateDir(operationID, path string, created bool, err error) {
	j.record(Entry{Type: EntryCreateDir, OperationID: operationID, DestPath: path, Created: created}, err)
}

func (j *Journal) record(e Entry, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !j.enabled || j.current == nil {
		return
	}

	e.ID = fmt.Sprintf("%s_%d", j.current.Metadata.SessionID, len(j.current.Entries))
	e.Timestamp = j.now()
	e.Success = err == nil
	if err != nil {
		e.Error = err.Error()
	}
	j.current.Entries = append(j.current.Entries, e)
}

// End writes the open session to disk and closes it. It returns the file
// written, or "" when nothing was recorded.
func (j *Journal) End() (string, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !j.enabled || j.current == nil {
		return "", nil
	}
	session := j.current
	j.current = nil
	if len(session.Entries) == 0 {
		return "", nil
	}

	session.updateStats()
	return j.write(session)
}

func (s *Session) updateStats() {
	successful := 0
	for _, e := range s.Entries {
		if e.Success {
			successful++
		}
	}
	s.Metadata.TotalOps = len(s.Entries)
	s.Metadata.SuccessfulOps = successful
	s.Metadata.FailedOps = len(s.Entries) - successful
}

func (j *Journal) write(session *Session) (string, error) {
	if err := j.fs.MkdirAll(j.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create log directory: %w", err)
	}

	ts := session.Metadata.Timestamp
	name := fmt.Sprintf("%s.%03d.json", ts.Format("2006-01-02_150405"), ts.Nanosecond()/int(time.Millisecond))
	path := filepath.Join(j.dir, name)

	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := afero.WriteFile(j.fs, path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write log file: %w", err)
	}
	return path, nil
}

// Read loads one session file.
func (j *Journal) Read(path string) (*Session, error) {
	data, err := afero.ReadFile(j.fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read log file: %w", err)
	}
	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &session, nil
}

// SessionFile pairs a session with the file it was read from.
type SessionFile struct {
	Path    string
	Session *Session
}

// Sessions returns up to limit sessions, newest first. Unreadable files are
// skipped. A limit of zero or less returns all of them.
func (j *Journal) Sessions(limit int) ([]SessionFile, error) {
	exists, err := afero.DirExists(j.fs, j.dir)
	if err != nil || !exists {
		return []SessionFile{}, nil
	}

	files, err := afero.Glob(j.fs, filepath.Join(j.dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to list log files: %w", err)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(files)))

	out := make([]SessionFile, 0, len(files))
	for _, file := range files {
		if limit > 0 && len(out) >= limit {
			break
		}
		session, err := j.Read(file)
		if err != nil {
			continue
		}
		out = append(out, SessionFile{Path: file, Session: session})
	}
	return out, nil
}

// Latest returns the most recent session.
func (j *Journal) Latest() (SessionFile, error) {
	sessions, err := j.Sessions(1)
	if err != nil {
		return SessionFile{}, err
	}
	if len(sessions) == 0 {
		return SessionFile{}, fmt.Errorf("no sessions found in %s", j.dir)
	}
	return sessions[0], nil
}

// Cleanup removes session files older than retentionDays. Files that cannot
// be inspected or removed are skipped and reported in the returned count of
// failures.
func (j *Journal) Cleanup(retentionDays int) (removed, failed int, err error) {
	if retentionDays <= 0 {
		return 0, 0, nil
	}
	exists, err := afero.DirExists(j.fs, j.dir)
	if err != nil || !exists {
		return 0, 0, nil
	}

	files, err := afero.Glob(j.fs, filepath.Join(j.dir, "*.json"))
	if err != nil {
		return 0, 0, fmt.Errorf("failed to list log files: %w", err)
	}

	cutoff := j.now().AddDate(0, 0, -retentionDays)
	for _, file := range files {
		info, err := j.fs.Stat(file)
		if err != nil {
			failed++
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := j.fs.Remove(file); err != nil {
				failed++
				continue
			}
			removed++
		}
	}
	return removed, failed, nil
}
