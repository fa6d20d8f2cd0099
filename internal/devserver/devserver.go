// Package devserver is a local stand-in for the hosted grading backend. It
// speaks the exact client protocol (streaming grade submission, recognition,
// bulk queues, result auto-save) against canned fixtures, for development
// and for the integration tests.
package devserver

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/cardlens/cardlens/internal/card"
	"github.com/cardlens/cardlens/internal/storage"
)

type queueJob struct {
	entries   []card.BulkEntry
	submitted bool
	createdAt time.Time
}

// App holds the devserver's fixtures and in-memory state.
type App struct {
	Storage storage.Storage

	// Catalog is what the recognition endpoint can match. Empty means
	// every identify attempt is a miss.
	Catalog []card.Info

	// Credits gates grading submissions: negative is unlimited, zero
	// rejects with 402.
	Credits int

	// StreamDelay paces the progress events; zero streams immediately.
	StreamDelay time.Duration

	mu      sync.Mutex
	queues  map[string]*queueJob
	saved   []card.GradingResult
}

func NewApp(store storage.Storage) *App {
	return &App{
		Storage: store,
		Credits: -1,
		queues:  make(map[string]*queueJob),
	}
}

// SavedResults returns the results received on the auto-save endpoint.
func (app *App) SavedResults() []card.GradingResult {
	app.mu.Lock()
	defer app.mu.Unlock()
	out := make([]card.GradingResult, len(app.saved))
	copy(out, app.saved)
	return out
}

// QueueSubmitted reports whether a created queue has been submitted.
func (app *App) QueueSubmitted(queueID string) bool {
	app.mu.Lock()
	defer app.mu.Unlock()
	job, ok := app.queues[queueID]
	return ok && job.submitted
}

func NewRouter(app *App) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	})

	r.Post("/api/v1/grade", app.GradeHandler)
	r.Post("/api/v1/cards/recognize", app.RecognizeHandler)
	r.Post("/api/v1/queues", app.CreateQueueHandler)
	r.Post("/api/v1/queues/{queueID}/submit", app.SubmitQueueHandler)
	r.Post("/api/v1/results", app.SaveResultHandler)
	r.Get("/images/{name}", app.ImageHandler)

	return r
}
