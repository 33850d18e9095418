package batch

import (
	"fmt"
	"maps"
	"path/filepath"
	"slices"
	"strings"
)

// Operation is one batch job: a group of files, the name each should end up
// with, and the folder they move into.
//
// TargetNames and PreviewVisible are keyed by FileDescriptor.OriginalPath and
// never hold keys for files that are no longer in Files. The zero value is an
// empty operation; use NewOperation or Set.Add to get one with an id.
type Operation struct {
	ID             string            `json:"id"`
	Files          []FileDescriptor  `json:"files"`
	TargetNames    map[string]string `json:"target_names"`
	Destination    string            `json:"destination"`
	Subfolder      string            `json:"subfolder,omitempty"`
	PreviewVisible map[string]bool   `json:"preview_visible,omitempty"`
	Expanded       bool              `json:"expanded"`
}

// NewOperation returns an empty, expanded operation with the given id.
func NewOperation(id string) Operation {
	return Operation{
		ID:             id,
		TargetNames:    map[string]string{},
		PreviewVisible: map[string]bool{},
		Expanded:       true,
	}
}

// AddFiles appends descriptors for paths not already in the operation, in
// input order, and seeds their target names with the unchanged name. Entries
// for files already present are left alone. It returns the number added.
func (o *Operation) AddFiles(paths ...string) int {
	if o.TargetNames == nil {
		o.TargetNames = map[string]string{}
	}
	added := 0
	for _, path := range paths {
		if path == "" || o.HasFile(path) {
			continue
		}
		fd := Describe(path)
		o.Files = append(o.Files, fd)
		o.TargetNames[path] = fd.DefaultName()
		added++
	}
	return added
}

// HasFile reports whether path is one of the operation's files.
func (o Operation) HasFile(path string) bool {
	_, ok := o.File(path)
	return ok
}

// File returns the descriptor for path.
func (o Operation) File(path string) (FileDescriptor, bool) {
	for _, fd := range o.Files {
		if fd.OriginalPath == path {
			return fd, true
		}
	}
	return FileDescriptor{}, false
}

// SetTargetName stores the user's new name for path. Whatever extension the
// user typed is dropped and the file's original extension is put back, so a
// rename can only ever change the stem. A blank stem falls back to the
// original one.
func (o *Operation) SetTargetName(path, raw string) error {
	fd, ok := o.File(path)
	if !ok {
		return fmt.Errorf("set target name for %s: %w", path, ErrNotFound)
	}
	stem, _ := splitExtension(strings.TrimSpace(raw))
	if strings.TrimSpace(stem) == "" {
		stem = fd.Stem
	}
	if o.TargetNames == nil {
		o.TargetNames = map[string]string{}
	}
	o.TargetNames[path] = fd.withStem(stem)
	return nil
}

// RemoveFile drops path together with its target name and preview flag. The
// returned bool is true when the operation has no files left, which makes it
// eligible for pruning by the owning Set.
func (o *Operation) RemoveFile(path string) (bool, error) {
	idx := slices.IndexFunc(o.Files, func(fd FileDescriptor) bool {
		return fd.OriginalPath == path
	})
	if idx < 0 {
		return len(o.Files) == 0, fmt.Errorf("remove %s: %w", path, ErrNotFound)
	}
	o.Files = slices.Delete(o.Files, idx, idx+1)
	delete(o.TargetNames, path)
	delete(o.PreviewVisible, path)
	return len(o.Files) == 0, nil
}

// SetDestination replaces the destination folder. The folder is not checked;
// it is created at apply time if missing.
func (o *Operation) SetDestination(path string) {
	o.Destination = path
}

// SetSubfolder replaces the optional subfolder joined onto the destination.
func (o *Operation) SetSubfolder(text string) {
	o.Subfolder = text
}

// TogglePreview records whether the preview for path is shown.
func (o *Operation) TogglePreview(path string, visible bool) error {
	if !o.HasFile(path) {
		return fmt.Errorf("toggle preview for %s: %w", path, ErrNotFound)
	}
	if o.PreviewVisible == nil {
		o.PreviewVisible = map[string]bool{}
	}
	o.PreviewVisible[path] = visible
	return nil
}

// ToggleExpanded flips the collapsed/expanded flag.
func (o *Operation) ToggleExpanded() {
	o.Expanded = !o.Expanded
}

// ResolvedName is the name path will have after apply: the edited target
// name, or the original name when no entry exists.
func (o Operation) ResolvedName(path string) string {
	if name, ok := o.TargetNames[path]; ok && name != "" {
		return name
	}
	if fd, ok := o.File(path); ok {
		return fd.OriginalName
	}
	return ""
}

// TargetFolder is the destination with the subfolder appended when set.
func (o Operation) TargetFolder() string {
	sub := strings.TrimSpace(o.Subfolder)
	if sub == "" {
		return o.Destination
	}
	return filepath.Join(o.Destination, sub)
}

// Ready reports whether the operation has both files and a destination.
func (o Operation) Ready() bool {
	return len(o.Files) > 0 && o.Destination != ""
}

// Validate explains why an operation is not Ready.
func (o Operation) Validate() error {
	switch {
	case len(o.Files) == 0:
		return ErrNoFiles
	case o.Destination == "":
		return ErrNoDestination
	}
	return nil
}

// Clone returns a deep copy that shares no slices or maps with o.
func (o Operation) Clone() Operation {
	c := o
	c.Files = slices.Clone(o.Files)
	c.TargetNames = maps.Clone(o.TargetNames)
	c.PreviewVisible = maps.Clone(o.PreviewVisible)
	if c.TargetNames == nil {
		c.TargetNames = map[string]string{}
	}
	if c.PreviewVisible == nil {
		c.PreviewVisible = map[string]bool{}
	}
	return c
}
