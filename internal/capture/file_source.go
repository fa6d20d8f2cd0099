package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/disintegration/imaging"

	"github.com/cardlens/cardlens/internal/card"
)

// ErrNoImage is returned when the source has no further images queued.
var ErrNoImage = errors.New("no image available to capture")

// FileSource is the CLI stand-in for a device camera: it serves a queue of
// image files, one per Acquire call, normalized to JPEG.
type FileSource struct {
	paths []string
	pos   int
}

func NewFileSource(paths ...string) *FileSource {
	return &FileSource{paths: paths}
}

// Push appends more files to the capture queue.
func (s *FileSource) Push(paths ...string) {
	s.paths = append(s.paths, paths...)
}

// Remaining reports how many queued images are left.
func (s *FileSource) Remaining() int {
	return len(s.paths) - s.pos
}

func (s *FileSource) Acquire(ctx context.Context) (card.Image, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.pos >= len(s.paths) {
		return "", ErrNoImage
	}

	path := s.paths[s.pos]
	s.pos++

	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		if os.IsPermission(err) {
			return "", fmt.Errorf("opening %s: %w", path, ErrPermissionDenied)
		}
		return "", fmt.Errorf("opening %s: %w", path, err)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(90)); err != nil {
		return "", fmt.Errorf("encoding %s: %w", path, err)
	}

	return card.NewImage(buf.Bytes()), nil
}
