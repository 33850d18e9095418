package preview

import (
	"archive/zip"
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// meshStats is what a mesh summary can report without rendering.
type meshStats struct {
	format   string
	vertices int
	faces    int
	known    bool
}

func (p *Previewer) renderMesh(ctx context.Context, path, extension string, size int64) Result {
	ext := strings.ToLower(strings.TrimPrefix(extension, "."))
	f, err := p.fs.Open(path)
	if err != nil {
		return unsupported(err)
	}
	defer f.Close()

	var st meshStats
	switch ext {
	case "stl":
		st, err = stlStats(f, size)
	case "obj":
		st, err = objStats(ctx, f)
	case "ply":
		st, err = plyStats(f)
	case "3mf":
		st, err = threeMFStats(f, size)
	default:
		st = meshStats{format: strings.ToUpper(ext)}
	}
	if err != nil {
		return unsupported(fmt.Errorf("read mesh %s: %w", path, err))
	}

	lines := []string{"Size: " + humanSize(size)}
	if st.known {
		lines = append(lines,
			"Vertices: "+strconv.Itoa(st.vertices),
			"Faces: "+strconv.Itoa(st.faces))
	}
	return Result{Kind: KindMesh, Title: st.format + " mesh", Body: strings.Join(lines, "\n")}
}

// stlStats distinguishes binary STL, whose size is fixed by the triangle
// count in its header, from ASCII STL, which is counted by facet.
func stlStats(r io.ReadSeeker, size int64) (meshStats, error) {
	header := make([]byte, 84)
	n, err := io.ReadFull(r, header)
	if err == nil {
		tris := int64(binary.LittleEndian.Uint32(header[80:84]))
		if 84+50*tris == size {
			return meshStats{format: "STL (binary)", faces: int(tris), vertices: int(tris) * 3, known: true}, nil
		}
	} else if err != io.ErrUnexpectedEOF && err != io.EOF {
		return meshStats{}, err
	}

	if !bytes.HasPrefix(bytes.TrimSpace(header[:n]), []byte("solid")) {
		return meshStats{format: "STL"}, nil
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return meshStats{}, err
	}
	counts, err := countTokens(r, []byte("facet normal"))
	if err != nil {
		return meshStats{}, err
	}
	return meshStats{format: "STL (ascii)", faces: counts[0], vertices: counts[0] * 3, known: true}, nil
}

func objStats(ctx context.Context, r io.Reader) (meshStats, error) {
	st := meshStats{format: "OBJ", known: true}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for line := 0; sc.Scan(); line++ {
		if line%65536 == 0 {
			if err := ctx.Err(); err != nil {
				return meshStats{}, err
			}
		}
		text := sc.Bytes()
		switch {
		case bytes.HasPrefix(text, []byte("v ")):
			st.vertices++
		case bytes.HasPrefix(text, []byte("f ")):
			st.faces++
		}
	}
	return st, sc.Err()
}

// plyStats reads the element counts from the PLY header.
func plyStats(r io.Reader) (meshStats, error) {
	st := meshStats{format: "PLY"}
	sc := bufio.NewScanner(r)
	if !sc.Scan() || strings.TrimSpace(sc.Text()) != "ply" {
		return st, nil
	}
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) == 1 && fields[0] == "end_header" {
			return st, nil
		}
		if len(fields) == 3 && fields[0] == "element" {
			n, err := strconv.Atoi(fields[2])
			if err != nil {
				continue
			}
			switch fields[1] {
			case "vertex":
				st.vertices, st.known = n, true
			case "face":
				st.faces, st.known = n, true
			}
		}
	}
	return st, sc.Err()
}

// threeMFStats counts vertices and triangles in the model parts of a 3MF
// package.
func threeMFStats(r io.ReaderAt, size int64) (meshStats, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return meshStats{}, err
	}
	st := meshStats{format: "3MF"}
	for _, zf := range zr.File {
		if !strings.HasSuffix(strings.ToLower(zf.Name), ".model") {
			continue
		}
		rc, err := zf.Open()
		if err != nil {
			return meshStats{}, err
		}
		counts, err := countTokens(rc, []byte("<vertex "), []byte("<triangle "))
		rc.Close()
		if err != nil {
			return meshStats{}, err
		}
		st.vertices += counts[0]
		st.faces += counts[1]
		st.known = true
	}
	return st, nil
}

// countTokens counts occurrences of each token in r, including matches that
// straddle read boundaries.
func countTokens(r io.Reader, tokens ...[]byte) ([]int, error) {
	longest := 0
	for _, t := range tokens {
		longest = max(longest, len(t))
	}
	counts := make([]int, len(tokens))
	buf := make([]byte, 32*1024)
	var carry []byte
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := append(carry, buf[:n]...)
			for i, t := range tokens {
				// Matches wholly inside the carried tail were counted
				// with the previous chunk.
				counts[i] += bytes.Count(chunk, t) - bytes.Count(carry, t)
			}
			keep := min(longest-1, len(chunk))
			carry = append(carry[:0:0], chunk[len(chunk)-keep:]...)
		}
		if err == io.EOF {
			return counts, nil
		}
		if err != nil {
			return nil, err
		}
	}
}
