package preview

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gopkg.in/vansante/go-ffprobe.v2"
)

// ProbeFunc matches ffprobe.ProbeURL.
type ProbeFunc func(ctx context.Context, path string, extraOpts ...string) (*ffprobe.ProbeData, error)

var defaultProbe ProbeFunc = ffprobe.ProbeURL

// probeTimeout bounds a single ffprobe run.
const probeTimeout = 5 * time.Second

func (p *Previewer) renderVideo(ctx context.Context, path string) Result {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	data, err := p.probe(ctx, path)
	if err != nil {
		return unsupported(fmt.Errorf("probe %s: %w", path, err))
	}
	if data == nil || data.Format == nil {
		return unsupported(fmt.Errorf("probe %s: no format information", path))
	}

	var lines []string
	d := time.Duration(data.Format.DurationSeconds * float64(time.Second)).Round(time.Second)
	lines = append(lines, "Duration: "+d.String())

	title := data.Format.FormatName
	if v := data.FirstVideoStream(); v != nil {
		lines = append(lines, fmt.Sprintf("Resolution: %dx%d", v.Width, v.Height))
		lines = append(lines, "Video: "+codecName(v))
		title = fmt.Sprintf("%dx%d %s", v.Width, v.Height, codecName(v))
	}
	if a := data.FirstAudioStream(); a != nil {
		lines = append(lines, "Audio: "+codecName(a))
	}
	return Result{Kind: KindVideo, Title: title, Body: strings.Join(lines, "\n")}
}

func codecName(s *ffprobe.Stream) string {
	if s.CodecName != "" {
		return s.CodecName
	}
	if s.CodecLongName != "" {
		return s.CodecLongName
	}
	return "unknown"
}
