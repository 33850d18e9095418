package preview

import (
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

func (p *Previewer) renderImage(path string, width int) Result {
	f, err := p.fs.Open(path)
	if err != nil {
		return unsupported(err)
	}
	src, format, err := image.Decode(f)
	f.Close()
	if err != nil {
		return unsupported(fmt.Errorf("decode %s: %w", path, err))
	}

	b := src.Bounds()
	body := halfBlocks(scale(src, width, p.maxRows))

	title := fmt.Sprintf("%dx%d %s", b.Dx(), b.Dy(), format)
	if lines := p.exifLines(path); len(lines) > 0 {
		body += "\n" + strings.Join(lines, "\n")
	}
	return Result{Kind: KindImage, Title: title, Body: body}
}

// scale fits src into width cells and maxRows half-block rows, keeping the
// aspect ratio. Each row covers two pixel rows.
func scale(src image.Image, width, maxRows int) *image.RGBA {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return image.NewRGBA(image.Rect(0, 0, 0, 0))
	}

	tw := min(width, w)
	th := max(1, h*tw/w)
	if limit := maxRows * 2; th > limit {
		th = limit
		tw = max(1, w*th/h)
	}
	if th%2 == 1 {
		th++
	}

	dst := image.NewRGBA(image.Rect(0, 0, tw, th))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}

// halfBlocks draws img with "▀" cells: the foreground is the upper pixel and
// the background the lower one.
func halfBlocks(img *image.RGBA) string {
	b := img.Bounds()
	rows := make([]string, 0, b.Dy()/2)
	for y := b.Min.Y; y < b.Max.Y; y += 2 {
		var row strings.Builder
		for x := b.Min.X; x < b.Max.X; x++ {
			top := hexColor(img.At(x, y))
			bottom := top
			if y+1 < b.Max.Y {
				bottom = hexColor(img.At(x, y+1))
			}
			row.WriteString(lipgloss.NewStyle().
				Foreground(lipgloss.Color(top)).
				Background(lipgloss.Color(bottom)).
				Render("▀"))
		}
		rows = append(rows, row.String())
	}
	return strings.Join(rows, "\n")
}

func hexColor(c color.Color) string {
	r, g, b, _ := c.RGBA()
	return fmt.Sprintf("#%02x%02x%02x", r>>8, g>>8, b>>8)
}

// exifLines returns the camera model and capture time when the file carries
// EXIF data. Most PNGs and GIFs do not, which is not an error.
func (p *Previewer) exifLines(path string) []string {
	f, err := p.fs.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		return nil
	}

	var lines []string
	if tag, err := x.Get(exif.Model); err == nil {
		if model, err := tag.StringVal(); err == nil && strings.TrimSpace(model) != "" {
			lines = append(lines, "Camera: "+strings.TrimSpace(model))
		}
	}
	if t, err := x.DateTime(); err == nil {
		lines = append(lines, "Taken: "+t.Format("2006-01-02 15:04"))
	}
	return lines
}
