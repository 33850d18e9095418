package batch

import "strings"

// FileDescriptor is the metadata derived from a selected file path. It is
// built once when the file joins an Operation and never changes afterwards.
type FileDescriptor struct {
	OriginalPath string `json:"original_path"`
	OriginalName string `json:"original_name"`
	Extension    string `json:"extension"` // lowercase, without the dot; may be empty
	Stem         string `json:"stem"`
}

// Describe builds a FileDescriptor for path. Both '/' and '\' are treated as
// separators so paths picked on another platform still split correctly. Only
// the segment after the final dot is the extension, so ".bashrc" has an empty
// stem and "name." an empty extension.
func Describe(path string) FileDescriptor {
	name := baseName(path)
	stem, ext := splitExtension(name)
	return FileDescriptor{
		OriginalPath: path,
		OriginalName: name,
		Extension:    strings.ToLower(ext),
		Stem:         stem,
	}
}

// DefaultName is the name a file keeps when the user never edits it.
func (d FileDescriptor) DefaultName() string {
	return d.withStem(d.Stem)
}

// withStem names the file stem plus the descriptor's extension. The dot is
// kept whenever the original name had one, so "name." stays "name.".
func (d FileDescriptor) withStem(stem string) string {
	if d.Extension == "" && !strings.Contains(d.OriginalName, ".") {
		return stem
	}
	return stem + "." + d.Extension
}

func baseName(path string) string {
	trimmed := strings.TrimRight(path, `/\`)
	if trimmed == "" {
		return path
	}
	if idx := strings.LastIndexAny(trimmed, `/\`); idx >= 0 {
		return trimmed[idx+1:]
	}
	return trimmed
}

func splitExtension(name string) (stem, ext string) {
	idx := strings.LastIndexByte(name, '.')
	if idx < 0 {
		return name, ""
	}
	return name[:idx], name[idx+1:]
}
