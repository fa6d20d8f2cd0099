package devserver

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/cardlens/cardlens/internal/card"
)

const maxUploadSize = 32 << 20

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// GradeHandler accepts the multipart front/back submission and streams
// progress events followed by a terminal result, mirroring the hosted
// backend's newline-delimited `data: <json>` format.
func (app *App) GradeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") == "" {
		writeError(w, http.StatusUnauthorized, "missing authorization header")
		return
	}

	app.mu.Lock()
	if app.Credits == 0 {
		app.mu.Unlock()
		writeError(w, http.StatusPaymentRequired, "Insufficient credits")
		return
	}
	if app.Credits > 0 {
		app.Credits--
	}
	app.mu.Unlock()

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, "request too large")
		return
	}

	images := make(map[string]string, 2)
	for _, field := range []string{"front", "back"} {
		file, _, err := r.FormFile(field)
		if err != nil {
			writeError(w, http.StatusBadRequest, "front and back images are required")
			return
		}
		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			writeError(w, http.StatusBadRequest, "failed to read image")
			return
		}

		name, err := app.Storage.SaveImage(data)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to store image")
			return
		}
		images[field] = "/images/" + name
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	emit := func(payload any) {
		data, err := json.Marshal(payload)
		if err != nil {
			log.Printf("[DEVSRV] Error marshaling stream event: %v", err)
			return
		}
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
		if app.StreamDelay > 0 {
			time.Sleep(app.StreamDelay)
		}
	}

	progress := func(p int) map[string]any { return map[string]any{"progress": p} }
	status := func(s string) map[string]any { return map[string]any{"status": s} }

	emit(status("Initializing"))
	emit(progress(10))
	emit(status("Analyzing front"))
	emit(progress(40))
	emit(status("Analyzing back"))
	emit(progress(70))
	emit(status("Computing final grade"))

	result := app.fixtureResult(images["front"], images["back"])
	emit(map[string]any{"result": result})
}

func (app *App) fixtureResult(frontURL, backURL string) card.GradingResult {
	info := card.Info{Name: "Unknown Card", Set: "Unknown Set"}
	if len(app.Catalog) > 0 {
		info = app.Catalog[0]
	}

	now := time.Now().UTC().Format(time.RFC3339)
	side := func(name string) card.SideAnalysis {
		return card.SideAnalysis{
			Side:     name,
			CardInfo: info,
			Grades: card.SideGrades{
				Overall:  card.Grade{Grade: 8.5, Description: "Light wear", Defects: []string{}},
				Corners:  card.Grade{Grade: 8, Description: "Minor whitening on one corner", Defects: []string{"corner whitening"}},
				Edges:    card.Grade{Grade: 9, Description: "Clean edges", Defects: []string{}},
				Surface:  card.Grade{Grade: 8.5, Description: "Few surface scratches", Defects: []string{"hairline scratch"}},
			},
			Timestamp: now,
		}
	}

	return card.GradingResult{
		TCGModel:  "cardlens-dev-1",
		CardInfo:  info,
		Front:     side("front"),
		Back:      side("back"),
		Combined:  card.CombinedGrade{Overall: 8.5, Summary: "Near mint with light corner wear"},
		Timestamp: now,
		Images:    card.ResultImages{FrontURL: frontURL, BackURL: backURL},
	}
}

// RecognizeHandler matches the uploaded image against the fixture catalog.
func (app *App) RecognizeHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, "request too large")
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "image is required")
		return
	}
	file.Close()

	if len(app.Catalog) == 0 {
		writeError(w, http.StatusNotFound, "no matching card found")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"card":       app.Catalog[0],
		"confidence": 0.95,
	})
}

// CreateQueueHandler turns a bulk entry list into a queue job.
func (app *App) CreateQueueHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Cards []card.BulkEntry `json:"cards"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Cards) == 0 {
		writeError(w, http.StatusBadRequest, "queue must contain at least one card")
		return
	}

	queueID := uuid.New().String()
	app.mu.Lock()
	app.queues[queueID] = &queueJob{entries: req.Cards, createdAt: time.Now()}
	app.mu.Unlock()

	log.Printf("[DEVSRV] Created queue %s with %d cards", queueID, len(req.Cards))

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"queueId": queueID})
}

// SubmitQueueHandler marks a created queue as submitted for processing.
func (app *App) SubmitQueueHandler(w http.ResponseWriter, r *http.Request) {
	queueID := chi.URLParam(r, "queueID")

	app.mu.Lock()
	job, ok := app.queues[queueID]
	if ok {
		job.submitted = true
	}
	app.mu.Unlock()

	if !ok {
		writeError(w, http.StatusNotFound, "queue not found")
		return
	}

	log.Printf("[DEVSRV] Queue %s submitted", queueID)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "accepted"})
}

// SaveResultHandler records an auto-saved grading result.
func (app *App) SaveResultHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		GradingResult *card.GradingResult `json:"gradingResult"`
		FrontImageURL string              `json:"frontImageUrl"`
		BackImageURL  string              `json:"backImageUrl"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.GradingResult == nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	app.mu.Lock()
	app.saved = append(app.saved, *req.GradingResult)
	app.mu.Unlock()

	w.WriteHeader(http.StatusNoContent)
}

// ImageHandler serves a stored submission image.
func (app *App) ImageHandler(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" {
		http.NotFound(w, r)
		return
	}

	file, err := app.Storage.OpenImage(name)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer file.Close()

	w.Header().Set("Content-Type", "image/jpeg")
	http.ServeContent(w, r, name, time.Time{}, file)
}
