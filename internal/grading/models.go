package grading

import (
	"github.com/cardlens/cardlens/internal/card"
)

// StreamEvent is one decoded record from the grading stream. Fields are
// optional; a single event may carry any combination, though in practice the
// server sends status/progress updates followed by exactly one terminal
// result or error.
type StreamEvent struct {
	Status   string              `json:"status,omitempty"`
	Progress *int                `json:"progress,omitempty"`
	Result   *card.GradingResult `json:"result,omitempty"`
	Error    string              `json:"error,omitempty"`
	Details  string              `json:"details,omitempty"`
}

// StreamHandler receives incremental signals while a grading submission is
// in flight. Nil funcs are skipped. The terminal result or error is returned
// by SubmitForGrading itself, not delivered through the handler.
type StreamHandler struct {
	Status   func(status string)
	Progress func(percent int)
}

func (h StreamHandler) status(s string) {
	if h.Status != nil {
		h.Status(s)
	}
}

func (h StreamHandler) progress(p int) {
	if h.Progress != nil {
		h.Progress(p)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

type createQueueRequest struct {
	Cards []card.BulkEntry `json:"cards"`
}

type createQueueResponse struct {
	QueueID string `json:"queueId"`
}

type submitQueueRequest struct {
	QueueID string `json:"queueId"`
}

type autoSaveRequest struct {
	GradingResult *card.GradingResult `json:"gradingResult"`
	FrontImageURL string              `json:"frontImageUrl"`
	BackImageURL  string              `json:"backImageUrl"`
}

type recognizeResponse struct {
	Card       *card.Info `json:"card"`
	Confidence float64    `json:"confidence"`
	Error      string     `json:"error,omitempty"`
}
