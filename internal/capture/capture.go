package capture

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/cardlens/cardlens/internal/card"
	"github.com/cardlens/cardlens/internal/grading"
)

// Mode selects what happens to an acquired image.
type Mode string

const (
	// ModeFront and ModeBack hand the raw image straight to the caller.
	ModeFront Mode = "front"
	ModeBack  Mode = "back"
	// ModeIdentify sends the image to the recognition endpoint instead.
	ModeIdentify Mode = "identify"
)

// ErrPermissionDenied is reported when the image source cannot be accessed.
// Recoverable: the user may retry the capture.
var ErrPermissionDenied = errors.New("camera access was denied, please allow camera access and try again")

// Source abstracts the device camera or gallery. Acquire blocks until one
// image is available or the attempt fails.
type Source interface {
	Acquire(ctx context.Context) (card.Image, error)
}

// Recognizer matches a captured image against the card catalog.
// *grading.Client satisfies it.
type Recognizer interface {
	RecognizeCard(ctx context.Context, img card.Image) (*card.Info, error)
}

// Callbacks receive the outcome of one capture. Exactly one callback fires
// per TriggerCapture call. Error always carries a short user-facing message,
// never transport internals.
type Callbacks struct {
	ImageCaptured  func(img card.Image)
	CardRecognized func(info *card.Info)
	Error          func(message string)
}

// Coordinator routes acquired images according to the requested mode. It is
// driven imperatively through TriggerCapture so parent workflows can start a
// capture without any visible control of their own.
type Coordinator struct {
	source     Source
	recognizer Recognizer
	callbacks  Callbacks
}

func NewCoordinator(source Source, recognizer Recognizer, callbacks Callbacks) *Coordinator {
	return &Coordinator{
		source:     source,
		recognizer: recognizer,
		callbacks:  callbacks,
	}
}

// TriggerCapture acquires one image and dispatches it per mode. Failures are
// delivered through the Error callback, never returned or thrown silently.
func (c *Coordinator) TriggerCapture(ctx context.Context, mode Mode) {
	img, err := c.source.Acquire(ctx)
	if err != nil {
		log.Printf("[CAPTURE] Acquire failed (mode=%s): %v", mode, err)
		c.fail(userMessage(err))
		return
	}

	switch mode {
	case ModeFront, ModeBack:
		if c.callbacks.ImageCaptured != nil {
			c.callbacks.ImageCaptured(img)
		}
	case ModeIdentify:
		c.identify(ctx, img)
	default:
		c.fail(fmt.Sprintf("unsupported capture mode %q", mode))
	}
}

func (c *Coordinator) identify(ctx context.Context, img card.Image) {
	info, err := c.recognizer.RecognizeCard(ctx, img)
	if err != nil {
		log.Printf("[CAPTURE] Recognition failed: %v", err)
		c.fail(userMessage(err))
		return
	}

	if c.callbacks.CardRecognized != nil {
		c.callbacks.CardRecognized(info)
	}
}

func (c *Coordinator) fail(message string) {
	if c.callbacks.Error != nil {
		c.callbacks.Error(message)
	}
}

// userMessage reduces any capture-path failure to a short plain-language
// string suitable for display.
func userMessage(err error) string {
	switch {
	case errors.Is(err, ErrPermissionDenied):
		return ErrPermissionDenied.Error()
	case errors.Is(err, grading.ErrNotRecognized):
		return grading.ErrNotRecognized.Error()
	}

	var apiErr *grading.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}

	return "Could not capture the image. Please try again."
}
