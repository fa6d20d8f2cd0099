package photoedit

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"github.com/cardlens/cardlens/internal/card"
)

// ErrEditInProgress is returned when a second edit session is requested
// while one is still open. Editing is modal: the owning workflow must
// confirm or cancel before any other capture proceeds.
var ErrEditInProgress = errors.New("another photo edit is already in progress")

// ErrSessionClosed is returned when a confirmed or cancelled session is
// used again.
var ErrSessionClosed = errors.New("photo edit session already closed")

// Adjustments is the user-chosen transform. Zero values leave the image
// untouched.
type Adjustments struct {
	RotateDegrees float64
	Crop          *image.Rectangle
	Brightness    float64 // -100..100
	Contrast      float64 // -100..100
}

// Stage gates edit sessions so that at most one is active at a time.
type Stage struct {
	active *Session
}

func NewStage() *Stage {
	return &Stage{}
}

// Begin opens a modal edit session for a just-captured image.
func (s *Stage) Begin(img card.Image, title string) (*Session, error) {
	if s.active != nil {
		return nil, ErrEditInProgress
	}

	session := &Session{stage: s, img: img, title: title}
	s.active = session
	return session, nil
}

// Active reports whether an edit session is currently open.
func (s *Stage) Active() bool {
	return s.active != nil
}

// Session is one in-flight edit of one captured image.
type Session struct {
	stage  *Stage
	img    card.Image
	title  string
	closed bool
}

func (sess *Session) Title() string {
	return sess.title
}

// Image returns the pending (unedited) capture.
func (sess *Session) Image() card.Image {
	return sess.img
}

// Confirm applies the adjustments and closes the session, producing the
// image the workflow will actually keep.
func (sess *Session) Confirm(adj Adjustments) (card.Image, error) {
	if sess.closed {
		return "", ErrSessionClosed
	}
	sess.close()

	return apply(sess.img, adj)
}

// Cancel closes the session producing nothing; the caller must discard the
// pending capture.
func (sess *Session) Cancel() {
	if sess.closed {
		return
	}
	sess.close()
}

func (sess *Session) close() {
	sess.closed = true
	sess.stage.active = nil
}

func apply(img card.Image, adj Adjustments) (card.Image, error) {
	data, err := img.Bytes()
	if err != nil {
		return "", fmt.Errorf("decoding captured image: %w", err)
	}

	decoded, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("decoding image data: %w", err)
	}

	if adj.RotateDegrees != 0 {
		decoded = imaging.Rotate(decoded, adj.RotateDegrees, image.Transparent)
	}
	if adj.Crop != nil {
		decoded = imaging.Crop(decoded, *adj.Crop)
	}
	if adj.Brightness != 0 {
		decoded = imaging.AdjustBrightness(decoded, adj.Brightness)
	}
	if adj.Contrast != 0 {
		decoded = imaging.AdjustContrast(decoded, adj.Contrast)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, decoded, imaging.JPEG, imaging.JPEGQuality(90)); err != nil {
		return "", fmt.Errorf("encoding edited image: %w", err)
	}

	return card.NewImage(buf.Bytes()), nil
}
