package source

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/rs/zerolog/log"

	"webattack-detector/go-service/internal/preprocessing"
)

// DemoLines are the sample access-log lines collected when no log file is
// configured: one SQL-injection attempt and one ordinary page view.
var DemoLines = []string{
	`payment-service-1       | timestamp="2025-10-15T15:01:28.915Z" Method="POST" URL="/process?id=1&action=update' OR '1'='1" User-Agent="Mozilla/5.0" host="localhost"`,
	`payment-service-1       | timestamp="2025-10-15T15:01:29.129Z" Method="GET" URL="/history" User-Agent="Mozilla/5.0" host="localhost"`,
}

// Source yields the raw log lines for one pipeline run.
type Source interface {
	Collect(ctx context.Context) ([]string, error)
}

// Lines is an in-memory source.
type Lines []string

func (l Lines) Collect(context.Context) ([]string, error) {
	out := make([]string, len(l))
	copy(out, l)
	return out, nil
}

// File reads a log file line by line.
type File struct {
	Path string
}

// Collect returns every line of the file. Invalid UTF-8 is dropped and a
// missing file yields no lines rather than an error.
func (f File) Collect(ctx context.Context) ([]string, error) {
	fh, err := os.Open(f.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Warn().Str("path", f.Path).Msg("log file not found")
			return nil, nil
		}
		return nil, fmt.Errorf("open log file: %w", err)
	}
	defer fh.Close()

	lines, err := ReadLines(ctx, fh)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.Path, err)
	}
	log.Info().Str("path", f.Path).Int("count", len(lines)).Msg("collected log entries")
	return lines, nil
}

// ReadLines splits r into lines without a length limit per line.
func ReadLines(ctx context.Context, r io.Reader) ([]string, error) {
	br := bufio.NewReader(r)
	var lines []string
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		raw, err := br.ReadString('\n')
		if raw != "" {
			line := strings.ToValidUTF8(preprocessing.CleanLine(raw), "")
			lines = append(lines, line)
		}
		if err == io.EOF {
			return lines, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

// New returns a file source when path is set and the demo lines otherwise.
func New(path string) Source {
	if path == "" {
		return Lines(DemoLines)
	}
	return File{Path: path}
}
