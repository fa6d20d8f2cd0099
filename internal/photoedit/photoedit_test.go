package photoedit

import (
	"bytes"
	"image"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"

	"github.com/cardlens/cardlens/internal/card"
)

func testImage(t *testing.T, w, h int) card.Image {
	t.Helper()

	img := imaging.New(w, h, color.NRGBA{R: 200, G: 50, B: 50, A: 255})
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG); err != nil {
		t.Fatalf("Failed to encode test image: %v", err)
	}
	return card.NewImage(buf.Bytes())
}

func decodeDims(t *testing.T, img card.Image) (int, int) {
	t.Helper()

	data, err := img.Bytes()
	if err != nil {
		t.Fatalf("Failed to decode image handle: %v", err)
	}
	decoded, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Failed to decode image data: %v", err)
	}
	bounds := decoded.Bounds()
	return bounds.Dx(), bounds.Dy()
}

func TestStage_IsModal(t *testing.T) {
	stage := NewStage()
	img := testImage(t, 40, 60)

	session, err := stage.Begin(img, "Front of card")
	if err != nil {
		t.Fatalf("Failed to begin session: %v", err)
	}

	if _, err := stage.Begin(img, "Back of card"); err != ErrEditInProgress {
		t.Errorf("Expected ErrEditInProgress for second session, got %v", err)
	}

	session.Cancel()
	if stage.Active() {
		t.Error("Expected stage inactive after cancel")
	}

	if _, err := stage.Begin(img, "Back of card"); err != nil {
		t.Errorf("Expected new session after cancel, got %v", err)
	}
}

func TestSession_ConfirmAppliesCrop(t *testing.T) {
	stage := NewStage()
	session, err := stage.Begin(testImage(t, 100, 80), "Front of card")
	if err != nil {
		t.Fatalf("Failed to begin session: %v", err)
	}

	crop := image.Rect(10, 10, 60, 50)
	edited, err := session.Confirm(Adjustments{Crop: &crop})
	if err != nil {
		t.Fatalf("Failed to confirm edit: %v", err)
	}

	w, h := decodeDims(t, edited)
	if w != 50 || h != 40 {
		t.Errorf("Expected 50x40 after crop, got %dx%d", w, h)
	}
	if stage.Active() {
		t.Error("Expected stage inactive after confirm")
	}
}

func TestSession_ConfirmWithoutAdjustmentsReencodes(t *testing.T) {
	stage := NewStage()
	original := testImage(t, 30, 30)
	session, err := stage.Begin(original, "Front of card")
	if err != nil {
		t.Fatalf("Failed to begin session: %v", err)
	}

	edited, err := session.Confirm(Adjustments{})
	if err != nil {
		t.Fatalf("Failed to confirm edit: %v", err)
	}
	if edited.IsZero() {
		t.Fatal("Expected an image from confirm")
	}

	w, h := decodeDims(t, edited)
	if w != 30 || h != 30 {
		t.Errorf("Expected unchanged dimensions, got %dx%d", w, h)
	}
}

func TestSession_ClosedSessionRejectsReuse(t *testing.T) {
	stage := NewStage()
	session, err := stage.Begin(testImage(t, 20, 20), "Front of card")
	if err != nil {
		t.Fatalf("Failed to begin session: %v", err)
	}

	if _, err := session.Confirm(Adjustments{}); err != nil {
		t.Fatalf("Failed to confirm edit: %v", err)
	}
	if _, err := session.Confirm(Adjustments{}); err != ErrSessionClosed {
		t.Errorf("Expected ErrSessionClosed on reuse, got %v", err)
	}
}
