package bulk

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/cardlens/cardlens/internal/card"
)

// Stage is where the bulk flow currently is.
type Stage string

const (
	// StageIntro shows any resumed draft and lets the user start capturing.
	StageIntro Stage = "bulk-intro"
	// StageCapture is the repeating front/back capture loop.
	StageCapture Stage = "bulk-capture"
	// StageReview lists accumulated entries with per-entry removal.
	StageReview Stage = "bulk-review"
	// StageDone is the post-submit confirmation.
	StageDone Stage = "bulk-done"
)

// Side is the capture loop's sub-step.
type Side string

const (
	SideFront Side = "front"
	SideBack  Side = "back"
)

// DisplaySlots is how many card slots the review layout renders. Purely a
// layout constant; the entry list itself is unbounded.
const DisplaySlots = 20

// ErrUnsavedEntries interposes a confirmation step before abandoning a
// non-empty bulk session.
var ErrUnsavedEntries = errors.New("you have unsaved cards, leaving keeps them as a draft")

// ErrWrongStage is returned for actions that do not apply to the current
// stage or capture side.
var ErrWrongStage = errors.New("action not available in the current bulk stage")

// Queuer performs the two-step server-side queue submission.
// *grading.Client satisfies it.
type Queuer interface {
	CreateQueue(ctx context.Context, entries []card.BulkEntry) (string, error)
	SubmitQueue(ctx context.Context, queueID string) error
}

// Drafts is the durable draft store. *draft.Store satisfies it.
type Drafts interface {
	Load() ([]card.BulkEntry, error)
	Save(entries []card.BulkEntry) error
	Clear() error
}

// Flow is the repeating bulk capture loop with crash-recovery drafts. All
// mutation happens from the owner's event handlers; the flow is not safe
// for concurrent use. The draft is read once at init and only written
// afterwards.
type Flow struct {
	queuer Queuer
	drafts Drafts

	stage        Stage
	side         Side
	pendingFront card.Image
	entries      []card.BulkEntry
	phase        string
}

// NewFlow initializes the flow, resuming any persisted draft. Draft
// problems never block startup; they degrade to an empty list.
func NewFlow(queuer Queuer, drafts Drafts) *Flow {
	flow := &Flow{queuer: queuer, drafts: drafts, stage: StageIntro, side: SideFront}

	entries, err := drafts.Load()
	if err != nil {
		log.Printf("[BULK] Failed to load draft, starting empty: %v", err)
		entries = nil
	}
	flow.entries = entries

	return flow
}

func (f *Flow) Stage() Stage { return f.stage }
func (f *Flow) Side() Side   { return f.side }

// Phase is the coarse two-phase submit indicator: "", "creating" or
// "submitting".
func (f *Flow) Phase() string { return f.phase }

// Entries returns the accumulated list in capture order. User-facing card
// numbers are positions in this list, not entry IDs.
func (f *Flow) Entries() []card.BulkEntry {
	out := make([]card.BulkEntry, len(f.entries))
	copy(out, f.entries)
	return out
}

// PendingFront reports whether a front image is waiting for its back.
func (f *Flow) PendingFront() bool {
	return !f.pendingFront.IsZero()
}

// StartCapture enters the capture loop at the front sub-step.
func (f *Flow) StartCapture() error {
	if f.stage != StageIntro && f.stage != StageReview {
		return fmt.Errorf("%w: start capture in %q", ErrWrongStage, f.stage)
	}
	f.stage = StageCapture
	f.side = SideFront
	return nil
}

// FrontCaptured holds the edited front image; no entry exists until the
// back arrives, so nothing is persisted yet.
func (f *Flow) FrontCaptured(img card.Image) error {
	if f.stage != StageCapture || f.side != SideFront {
		return fmt.Errorf("%w: front capture in %q/%q", ErrWrongStage, f.stage, f.side)
	}
	f.pendingFront = img
	f.side = SideBack
	return nil
}

// BackCaptured completes one card: a new entry is appended, the in-progress
// holder cleared, the loop returns to the front sub-step, and the draft is
// rewritten.
func (f *Flow) BackCaptured(img card.Image) error {
	if f.stage != StageCapture || f.side != SideBack {
		return fmt.Errorf("%w: back capture in %q/%q", ErrWrongStage, f.stage, f.side)
	}

	f.entries = append(f.entries, card.BulkEntry{
		ID:    uuid.New().String(),
		Front: f.pendingFront,
		Back:  img,
	})
	f.pendingFront = ""
	f.side = SideFront
	f.persistDraft()

	return nil
}

// Review moves to the accumulated-entry list.
func (f *Flow) Review() error {
	if f.stage != StageCapture && f.stage != StageIntro {
		return fmt.Errorf("%w: review in %q", ErrWrongStage, f.stage)
	}
	f.stage = StageReview
	return nil
}

// Remove deletes one entry by ID; remaining cards renumber by position.
func (f *Flow) Remove(id string) error {
	for i, entry := range f.entries {
		if entry.ID == id {
			f.entries = append(f.entries[:i], f.entries[i+1:]...)
			f.persistDraft()
			return nil
		}
	}
	return fmt.Errorf("no card with id %s", id)
}

// Abandon requests leaving the bulk flow. With unsaved entries it returns
// ErrUnsavedEntries so the caller can interpose a confirmation; the draft
// stays intact for later resumption either way.
func (f *Flow) Abandon() error {
	if len(f.entries) > 0 {
		return ErrUnsavedEntries
	}
	f.leave()
	return nil
}

// ConfirmAbandon proceeds after the unsaved-entries confirmation.
func (f *Flow) ConfirmAbandon() {
	f.leave()
}

func (f *Flow) leave() {
	f.pendingFront = ""
	f.side = SideFront
	f.stage = StageIntro
}

// Submit runs the two-step queue submission: create, then submit. The
// second call is only issued after the first succeeds. Failure of either
// step leaves both the in-memory list and the persisted draft intact for a
// retry; success clears both. Returns the server-issued queue handle. A
// half-captured card (front held, back missing) blocks submission.
func (f *Flow) Submit(ctx context.Context) (string, error) {
	if len(f.entries) == 0 {
		return "", fmt.Errorf("no cards to submit")
	}
	if !f.pendingFront.IsZero() {
		return "", fmt.Errorf("%w: capture the back of the current card before submitting", ErrWrongStage)
	}

	f.phase = "creating"
	queueID, err := f.queuer.CreateQueue(ctx, f.entries)
	if err != nil {
		f.phase = ""
		return "", fmt.Errorf("creating queue: %w", err)
	}

	f.phase = "submitting"
	if err := f.queuer.SubmitQueue(ctx, queueID); err != nil {
		f.phase = ""
		return "", fmt.Errorf("submitting queue: %w", err)
	}

	f.phase = ""
	f.entries = nil
	if err := f.drafts.Clear(); err != nil {
		log.Printf("[BULK] Failed to clear draft after submit: %v", err)
	}
	f.stage = StageDone
	log.Printf("[BULK] Queue %s submitted", queueID)

	return queueID, nil
}

// persistDraft is best-effort: failures are logged and swallowed so the
// capture loop is never blocked.
func (f *Flow) persistDraft() {
	if err := f.drafts.Save(f.entries); err != nil {
		log.Printf("[BULK] Draft persistence failed: %v", err)
	}
}
