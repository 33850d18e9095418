// Package picker asks the user for the files to add to an operation and for
// its destination folder.
package picker

import (
	"context"
	"errors"

	"github.com/Digital-Shane/batch-mover/internal/batch"
	tea "github.com/charmbracelet/bubbletea"
)

// Service selects files and folders. A dismissed dialog returns
// batch.ErrSelectionCancelled, which callers treat as a no-op.
type Service interface {
	SelectFiles(ctx context.Context) ([]string, error)
	SelectFolder(ctx context.Context) (string, error)
}

// Static answers with preset values. An empty answer counts as a dismissal.
type Static struct {
	Files  []string
	Folder string
	// Err, when set, is returned by both methods.
	Err error
}

func (s Static) SelectFiles(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.Err != nil {
		return nil, s.Err
	}
	if len(s.Files) == 0 {
		return nil, batch.ErrSelectionCancelled
	}
	return append([]string(nil), s.Files...), nil
}

func (s Static) SelectFolder(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.Err != nil {
		return "", s.Err
	}
	if s.Folder == "" {
		return "", batch.ErrSelectionCancelled
	}
	return s.Folder, nil
}

// Interactive runs a full-screen picker program for each request.
type Interactive struct {
	StartDir string
	// ModelOptions configure each picker, e.g. WithAllowedTypes.
	ModelOptions []Option
	// ProgramOptions are appended after the defaults (context, alt screen).
	ProgramOptions []tea.ProgramOption
}

func (p Interactive) SelectFiles(ctx context.Context) ([]string, error) {
	return p.run(ctx, ModeFiles)
}

func (p Interactive) SelectFolder(ctx context.Context) (string, error) {
	paths, err := p.run(ctx, ModeFolder)
	if err != nil {
		return "", err
	}
	return paths[0], nil
}

func (p Interactive) run(ctx context.Context, mode Mode) ([]string, error) {
	opts := append([]Option{WithQuitOnDone()}, p.ModelOptions...)
	m := New(mode, p.StartDir, opts...)

	programOpts := append([]tea.ProgramOption{tea.WithContext(ctx), tea.WithAltScreen()}, p.ProgramOptions...)
	final, err := tea.NewProgram(m, programOpts...).Run()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, tea.ErrProgramKilled) {
			return nil, ctxErr
		}
		return nil, err
	}
	fm, ok := final.(*Model)
	if !ok || fm.Cancelled() || len(fm.Result()) == 0 {
		return nil, batch.ErrSelectionCancelled
	}
	return fm.Result(), nil
}
