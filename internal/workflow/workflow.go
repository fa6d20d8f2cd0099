package workflow

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/cardlens/cardlens/internal/card"
	"github.com/cardlens/cardlens/internal/grading"
)

// Step is where the single-card flow currently is. Exactly one step is
// active at a time; transitions happen only on explicit user actions or on
// the grading stream's terminal events.
type Step string

const (
	StepLimitReached Step = "limit-reached"
	StepFront        Step = "front"
	StepFlip         Step = "flip"
	StepBack         Step = "back"
	StepConfirm      Step = "confirm"
	StepGrading      Step = "grading"
	StepResult       Step = "result"
)

// ChecklistItem names one of the three quality self-certification flags.
type ChecklistItem string

const (
	ItemEdgesVisible ChecklistItem = "edges-visible"
	ItemNoGlare      ChecklistItem = "no-glare"
	ItemSharpDetails ChecklistItem = "sharp-details"
)

// Checklist is the user's quality self-certification. Submission requires
// all three flags.
type Checklist struct {
	EdgesVisible bool
	NoGlare      bool
	SharpDetails bool
}

func (c Checklist) Complete() bool {
	return c.EdgesVisible && c.NoGlare && c.SharpDetails
}

var (
	// ErrInvalidTransition is returned when an action does not apply to
	// the current step. The step is left unchanged.
	ErrInvalidTransition = errors.New("action not available in the current step")

	// ErrChecklistIncomplete makes submit a no-op until the user has
	// certified all three quality flags.
	ErrChecklistIncomplete = errors.New("please confirm all photo quality checks before submitting")

	// ErrQuotaExceeded replaces the whole flow with the limit-reached
	// screen; no capture step is reachable until the user re-enters.
	ErrQuotaExceeded = errors.New("monthly grading limit reached")
)

// Grader is the remote-side dependency of the flow. *grading.Client
// satisfies it.
type Grader interface {
	SubmitForGrading(ctx context.Context, front, back card.Image, h grading.StreamHandler) (*card.GradingResult, error)
	AutoSave(ctx context.Context, result *card.GradingResult) error
}

// Quota is the monthly usage guard, satisfied by *session.Context.
type Quota interface {
	CanGrade() bool
	RecordGrade() error
}

// Flow walks one card through front capture, back capture, quality-gated
// confirmation, streaming submission and the final result. All mutation
// happens from the owner's event handlers; the flow itself is not safe for
// concurrent use.
type Flow struct {
	grader Grader
	quota  Quota

	step      Step
	front     card.Image
	back      card.Image
	checklist Checklist

	statusLabel string
	progress    int
	gradingErr  string
	result      *card.GradingResult
	notify      func(status string, percent int)
}

// NewFlow consults the monthly limit before exposing any capture step; an
// exhausted limit pins the flow at StepLimitReached.
func NewFlow(grader Grader, quota Quota) *Flow {
	flow := &Flow{grader: grader, quota: quota, step: StepFront}
	if quota != nil && !quota.CanGrade() {
		flow.step = StepLimitReached
	}
	return flow
}

func (f *Flow) Step() Step                  { return f.step }
func (f *Flow) Checklist() Checklist        { return f.checklist }
func (f *Flow) Progress() int               { return f.progress }
func (f *Flow) StatusLabel() string         { return f.statusLabel }
func (f *Flow) Result() *card.GradingResult { return f.result }

// GradingError returns the terminal stream error message when the grading
// step is in its error sub-state, empty otherwise.
func (f *Flow) GradingError() string { return f.gradingErr }

// Notify registers a display callback fired on every status or progress
// update while grading is in flight.
func (f *Flow) Notify(fn func(status string, percent int)) { f.notify = fn }

func (f *Flow) notifyUpdate() {
	if f.notify != nil {
		f.notify(f.statusLabel, f.progress)
	}
}

// FrontCaptured accepts the edited front image and moves to the flip
// interstitial. Capturing a fresh side resets the quality checklist.
func (f *Flow) FrontCaptured(img card.Image) error {
	if f.step != StepFront {
		return fmt.Errorf("%w: capture front in %q", ErrInvalidTransition, f.step)
	}
	f.front = img
	f.checklist = Checklist{}
	f.step = StepFlip
	return nil
}

// ContinueToBack leaves the flip interstitial.
func (f *Flow) ContinueToBack() error {
	if f.step != StepFlip {
		return fmt.Errorf("%w: continue in %q", ErrInvalidTransition, f.step)
	}
	f.step = StepBack
	return nil
}

// BackCaptured accepts the edited back image and moves to confirmation.
func (f *Flow) BackCaptured(img card.Image) error {
	if f.step != StepBack {
		return fmt.Errorf("%w: capture back in %q", ErrInvalidTransition, f.step)
	}
	f.back = img
	f.checklist = Checklist{}
	f.step = StepConfirm
	return nil
}

// Certify toggles one quality flag. Only meaningful on the confirm screen.
func (f *Flow) Certify(item ChecklistItem, ok bool) error {
	if f.step != StepConfirm {
		return fmt.Errorf("%w: certify in %q", ErrInvalidTransition, f.step)
	}
	switch item {
	case ItemEdgesVisible:
		f.checklist.EdgesVisible = ok
	case ItemNoGlare:
		f.checklist.NoGlare = ok
	case ItemSharpDetails:
		f.checklist.SharpDetails = ok
	default:
		return fmt.Errorf("unknown checklist item %q", item)
	}
	return nil
}

// RetakeFront drops the front image and returns to front capture. The
// checklist resets: the user is re-certifying a changed pair.
func (f *Flow) RetakeFront() error {
	if f.step != StepConfirm {
		return fmt.Errorf("%w: retake front in %q", ErrInvalidTransition, f.step)
	}
	f.front = ""
	f.checklist = Checklist{}
	f.step = StepFront
	return nil
}

// RetakeBack drops the back image and returns to back capture.
func (f *Flow) RetakeBack() error {
	if f.step != StepConfirm {
		return fmt.Errorf("%w: retake back in %q", ErrInvalidTransition, f.step)
	}
	f.back = ""
	f.checklist = Checklist{}
	f.step = StepBack
	return nil
}

// Submit drives the streaming grading submission to its terminal event. It
// is only reachable from confirm, which is what prevents concurrent
// submissions. With an incomplete checklist it is a no-op: no transition,
// no network call.
func (f *Flow) Submit(ctx context.Context) error {
	if f.step != StepConfirm {
		return fmt.Errorf("%w: submit in %q", ErrInvalidTransition, f.step)
	}
	if !f.checklist.Complete() {
		return ErrChecklistIncomplete
	}

	f.step = StepGrading
	f.gradingErr = ""
	f.progress = 0
	f.statusLabel = "Submitting photos..."

	result, err := f.grader.SubmitForGrading(ctx, f.front, f.back, grading.StreamHandler{
		Status: func(s string) {
			f.statusLabel = s
			f.notifyUpdate()
		},
		Progress: func(p int) {
			f.progress = p
			f.notifyUpdate()
		},
	})
	if err != nil {
		log.Printf("[GRADE] Submission failed: %v", err)
		f.gradingErr = submissionMessage(err)
		return nil
	}

	f.result = result
	f.step = StepResult

	if f.quota != nil {
		if err := f.quota.RecordGrade(); err != nil {
			log.Printf("[GRADE] Failed to record usage: %v", err)
		}
	}

	// Auto-save is fire-and-forget: the result screen shows regardless.
	if err := f.grader.AutoSave(ctx, result); err != nil {
		log.Printf("[GRADE] Auto-save failed: %v", err)
	}

	return nil
}

// TryAgain leaves the grading error sub-state back to confirm, keeping both
// images for an identical resubmission.
func (f *Flow) TryAgain() error {
	if f.step != StepGrading || f.gradingErr == "" {
		return fmt.Errorf("%w: try again in %q", ErrInvalidTransition, f.step)
	}
	f.gradingErr = ""
	f.step = StepConfirm
	return nil
}

// StartOver discards both images after a grading failure and restarts at
// front capture.
func (f *Flow) StartOver() error {
	if f.step != StepGrading || f.gradingErr == "" {
		return fmt.Errorf("%w: start over in %q", ErrInvalidTransition, f.step)
	}
	f.reset()
	return nil
}

// GradeAnother restarts the flow from the result screen, honoring the quota
// guard again on re-entry.
func (f *Flow) GradeAnother() error {
	if f.step != StepResult {
		return fmt.Errorf("%w: grade another in %q", ErrInvalidTransition, f.step)
	}
	if f.quota != nil && !f.quota.CanGrade() {
		f.reset()
		f.step = StepLimitReached
		return ErrQuotaExceeded
	}
	f.reset()
	return nil
}

func (f *Flow) reset() {
	f.front = ""
	f.back = ""
	f.checklist = Checklist{}
	f.statusLabel = ""
	f.progress = 0
	f.gradingErr = ""
	f.result = nil
	f.step = StepFront
}

// submissionMessage reduces a terminal submission failure to the short
// string shown on the error screen.
func submissionMessage(err error) string {
	var apiErr *grading.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	var terminal *grading.TerminalError
	if errors.As(err, &terminal) {
		return terminal.Message
	}
	return "Something went wrong while grading your card. Please try again."
}
