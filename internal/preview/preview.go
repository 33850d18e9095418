// Package preview renders terminal previews of the files in an operation:
// images as half-block thumbnails, videos and meshes as short summaries.
package preview

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/Digital-Shane/batch-mover/internal/logger"
	"github.com/h2non/filetype"
	csmap "github.com/mhmtszr/concurrent-swiss-map"
	"github.com/patrickmn/go-cache"
	"github.com/spf13/afero"
)

// Kind is the preview category of a file.
type Kind string

const (
	KindImage       Kind = "image"
	KindVideo       Kind = "video"
	KindMesh        Kind = "mesh"
	KindUnsupported Kind = "unsupported"
)

// Default extension lists, lowercase and without the dot.
var (
	DefaultImageExtensions = []string{"jpg", "jpeg", "png", "gif", "bmp", "webp"}
	DefaultMeshExtensions  = []string{"stl", "obj", "3mf", "ply"}
	DefaultVideoExtensions = []string{"mp4", "mov", "mkv", "avi", "webm", "m4v"}
)

// sniffSize is the number of header bytes filetype needs.
const sniffSize = 262

// Result is a rendered preview. Body is printable text; for images it holds
// ANSI-coloured half-block rows.
type Result struct {
	Kind  Kind
	Title string
	Body  string
	Err   error
}

// Renderer produces previews. Render never panics; failures come back as
// KindUnsupported with Err set.
type Renderer interface {
	Detect(path, extension string) Kind
	Render(ctx context.Context, path, extension string, width int) Result
}

type flight struct {
	done chan struct{}
	res  Result
}

// Previewer is the default Renderer.
type Previewer struct {
	fs       afero.Fs
	probe    ProbeFunc
	images   []string
	meshes   []string
	videos   []string
	maxRows  int
	cache    *cache.Cache
	mu       sync.Mutex
	inflight *csmap.CsMap[string, *flight]
}

// Option configures a Previewer.
type Option func(*Previewer)

// WithFs reads files from fs instead of the OS filesystem.
func WithFs(fs afero.Fs) Option {
	return func(p *Previewer) { p.fs = fs }
}

// WithProbe replaces the ffprobe call used for videos.
func WithProbe(fn ProbeFunc) Option {
	return func(p *Previewer) { p.probe = fn }
}

// WithImageExtensions replaces the image extension list.
func WithImageExtensions(exts ...string) Option {
	return func(p *Previewer) { p.images = normalizeExtensions(exts) }
}

// WithMeshExtensions replaces the mesh extension list.
func WithMeshExtensions(exts ...string) Option {
	return func(p *Previewer) { p.meshes = normalizeExtensions(exts) }
}

// WithVideoExtensions replaces the video extension list.
func WithVideoExtensions(exts ...string) Option {
	return func(p *Previewer) { p.videos = normalizeExtensions(exts) }
}

// WithMaxRows caps the height of image thumbnails in terminal rows.
func WithMaxRows(rows int) Option {
	return func(p *Previewer) {
		if rows > 0 {
			p.maxRows = rows
		}
	}
}

// WithCacheTTL sets how long rendered previews are kept.
func WithCacheTTL(ttl time.Duration) Option {
	return func(p *Previewer) { p.cache = cache.New(ttl, 2*ttl) }
}

// New returns a Previewer reading from the OS filesystem.
func New(opts ...Option) *Previewer {
	p := &Previewer{
		fs:       afero.NewOsFs(),
		probe:    defaultProbe,
		images:   DefaultImageExtensions,
		meshes:   DefaultMeshExtensions,
		videos:   DefaultVideoExtensions,
		maxRows:  16,
		cache:    cache.New(10*time.Minute, 20*time.Minute),
		inflight: csmap.Create[string, *flight](),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func normalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(e), "."))
		if e != "" && !slices.Contains(out, e) {
			out = append(out, e)
		}
	}
	return out
}

// Supported reports whether extension has a preview without reading the
// file. The editor uses it to decide whether to offer a preview toggle.
func (p *Previewer) Supported(extension string) bool {
	return p.kindForExtension(extension) != KindUnsupported
}

// KindFor classifies extension alone.
func (p *Previewer) KindFor(extension string) Kind {
	return p.kindForExtension(extension)
}

func (p *Previewer) kindForExtension(extension string) Kind {
	ext := strings.ToLower(strings.TrimPrefix(extension, "."))
	switch {
	case ext == "":
		return KindUnsupported
	case slices.Contains(p.images, ext):
		return KindImage
	case slices.Contains(p.meshes, ext):
		return KindMesh
	case slices.Contains(p.videos, ext):
		return KindVideo
	}
	return KindUnsupported
}

// Detect classifies a file by extension, falling back to sniffing its
// header for image and video signatures.
func (p *Previewer) Detect(path, extension string) Kind {
	if k := p.kindForExtension(extension); k != KindUnsupported {
		return k
	}
	f, err := p.fs.Open(path)
	if err != nil {
		return KindUnsupported
	}
	defer f.Close()

	head := make([]byte, sniffSize)
	n, err := io.ReadFull(f, head)
	if err != nil && n == 0 {
		return KindUnsupported
	}
	head = head[:n]
	switch {
	case filetype.IsImage(head):
		return KindImage
	case filetype.IsVideo(head):
		return KindVideo
	}
	return KindUnsupported
}

// Render builds the preview of path at the given width in cells. Results are
// cached by path, modification time and width, and concurrent requests for
// the same key share one render.
func (p *Previewer) Render(ctx context.Context, path, extension string, width int) (res Result) {
	log := logger.Get().With().Str("path", path).Logger()

	if width < 4 {
		width = 4
	}
	info, err := p.fs.Stat(path)
	if err != nil {
		log.Debug().Err(err).Msg("preview stat failed")
		return unsupported(err)
	}
	if info.IsDir() {
		return unsupported(fmt.Errorf("%s is a directory", path))
	}

	key := fmt.Sprintf("%s|%d|%d", path, info.ModTime().UnixNano(), width)
	if cached, ok := p.cache.Get(key); ok {
		return cached.(Result)
	}

	f, leader := p.join(key)
	if !leader {
		select {
		case <-f.done:
			return f.res
		case <-ctx.Done():
			return unsupported(ctx.Err())
		}
	}
	defer func() {
		f.res = res
		close(f.done)
		p.inflight.Delete(key)
	}()

	res = p.render(ctx, path, extension, width, info.Size())
	if res.Err != nil {
		log.Warn().Err(res.Err).Str("kind", string(res.Kind)).Msg("preview unavailable")
		return res
	}
	p.cache.Set(key, res, cache.DefaultExpiration)
	return res
}

// join returns the flight for key and whether the caller must run it.
func (p *Previewer) join(key string) (*flight, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if f, ok := p.inflight.Load(key); ok {
		return f, false
	}
	f := &flight{done: make(chan struct{})}
	p.inflight.Store(key, f)
	return f, true
}

// Pending returns the number of renders in progress.
func (p *Previewer) Pending() int {
	return p.inflight.Count()
}

func (p *Previewer) render(ctx context.Context, path, extension string, width int, size int64) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			logger.Get().Error().Str("path", path).Interface("panic", r).Msg("preview panicked")
			res = unsupported(fmt.Errorf("preview failed: %v", r))
		}
	}()
	if err := ctx.Err(); err != nil {
		return unsupported(err)
	}
	switch kind := p.Detect(path, extension); kind {
	case KindImage:
		return p.renderImage(path, width)
	case KindVideo:
		return p.renderVideo(ctx, path)
	case KindMesh:
		return p.renderMesh(ctx, path, extension, size)
	}
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		ext = "file"
	}
	return unsupported(fmt.Errorf("no preview for %s files", ext))
}

func unsupported(err error) Result {
	return Result{
		Kind: KindUnsupported,
		Body: "Preview unavailable: " + err.Error(),
		Err:  err,
	}
}

// humanSize formats n bytes with binary units.
func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
