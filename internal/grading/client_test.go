package grading

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cardlens/cardlens/internal/card"
)

var testFront = card.NewImage([]byte("front-jpeg-bytes"))
var testBack = card.NewImage([]byte("back-jpeg-bytes"))

func TestSubmitForGrading_StreamedSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != gradePath {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("expected bearer header, got %q", got)
		}

		if err := r.ParseMultipartForm(32 << 20); err != nil {
			t.Fatalf("parsing multipart: %v", err)
		}
		for _, field := range []string{"front", "back"} {
			if _, _, err := r.FormFile(field); err != nil {
				t.Errorf("missing multipart field %q: %v", field, err)
			}
		}

		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		fmt.Fprint(w, "data: {\"status\":\"Initializing\"}\n\n")
		flusher.Flush()
		fmt.Fprint(w, "data: {\"progress\":50}\n")
		flusher.Flush()
		fmt.Fprint(w, "data: {\"result\":{\"tcgmodel\":\"pkm-v2\",\"combined\":{\"overall\":9,\"summary\":\"Mint\"},\"images\":{\"frontUrl\":\"/f.jpg\",\"backUrl\":\"/b.jpg\"}}}\n")
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-token")

	var lastProgress int
	result, err := client.SubmitForGrading(context.Background(), testFront, testBack, StreamHandler{
		Progress: func(p int) { lastProgress = p },
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Combined.Summary != "Mint" {
		t.Errorf("expected summary Mint, got %q", result.Combined.Summary)
	}
	if lastProgress != 100 {
		t.Errorf("expected final progress 100, got %d", lastProgress)
	}
}

func TestSubmitForGrading_EmptyTokenStillSendsBearerHeader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The server trims optional whitespace on parse, so an empty
		// credential arrives as the bare scheme.
		if got := r.Header.Get("Authorization"); got != "Bearer" {
			t.Errorf("expected bearer header with empty credential, got %q", got)
		}
		fmt.Fprint(w, "data: {\"result\":{\"tcgmodel\":\"x\"}}\n")
	}))
	defer server.Close()

	client := NewClient(server.URL, "")
	if _, err := client.SubmitForGrading(context.Background(), testFront, testBack, StreamHandler{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSubmitForGrading_ErrorStatuses(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantMessage string
		wantPayment bool
	}{
		{
			name:        "402 with error body surfaces message verbatim",
			status:      http.StatusPaymentRequired,
			body:        `{"error":"Insufficient credits"}`,
			wantMessage: "Insufficient credits",
			wantPayment: true,
		},
		{
			name:        "402 with unparseable body falls back to credits message",
			status:      http.StatusPaymentRequired,
			body:        "<html>nope</html>",
			wantMessage: genericCreditsMessage,
			wantPayment: true,
		},
		{
			name:        "500 with error body",
			status:      http.StatusInternalServerError,
			body:        `{"error":"backend exploded"}`,
			wantMessage: "backend exploded",
		},
		{
			name:        "500 without body falls back to status message",
			status:      http.StatusInternalServerError,
			body:        "",
			wantMessage: "HTTP error! status: 500",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer server.Close()

			client := NewClient(server.URL, "tok")
			_, err := client.SubmitForGrading(context.Background(), testFront, testBack, StreamHandler{})

			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected APIError, got %T: %v", err, err)
			}
			if apiErr.Message != tt.wantMessage {
				t.Errorf("expected message %q, got %q", tt.wantMessage, apiErr.Message)
			}
			if apiErr.PaymentRequired() != tt.wantPayment {
				t.Errorf("PaymentRequired() = %v, want %v", apiErr.PaymentRequired(), tt.wantPayment)
			}
		})
	}
}

func TestSubmitForGrading_JSONResponseIsTerminalError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"error":"grading temporarily unavailable"}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, "tok")
	_, err := client.SubmitForGrading(context.Background(), testFront, testBack, StreamHandler{})

	var terminal *TerminalError
	if !errors.As(err, &terminal) {
		t.Fatalf("expected TerminalError, got %T: %v", err, err)
	}
	if terminal.Message != "grading temporarily unavailable" {
		t.Errorf("unexpected message %q", terminal.Message)
	}
}

func TestRecognizeCard(t *testing.T) {
	t.Run("match", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != recognizePath {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			json.NewEncoder(w).Encode(recognizeResponse{
				Card:       &card.Info{Name: "Charizard", Set: "Base Set", Number: "4/102"},
				Confidence: 0.97,
			})
		}))
		defer server.Close()

		client := NewClient(server.URL, "tok")
		info, err := client.RecognizeCard(context.Background(), testFront)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if info.Name != "Charizard" {
			t.Errorf("expected Charizard, got %q", info.Name)
		}
	})

	t.Run("no match is advisory", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		client := NewClient(server.URL, "tok")
		_, err := client.RecognizeCard(context.Background(), testFront)
		if !errors.Is(err, ErrNotRecognized) {
			t.Fatalf("expected ErrNotRecognized, got %v", err)
		}
	})

	t.Run("empty match is advisory", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(recognizeResponse{})
		}))
		defer server.Close()

		client := NewClient(server.URL, "tok")
		_, err := client.RecognizeCard(context.Background(), testFront)
		if !errors.Is(err, ErrNotRecognized) {
			t.Fatalf("expected ErrNotRecognized, got %v", err)
		}
	})
}

func TestQueueCalls(t *testing.T) {
	entries := []card.BulkEntry{
		{ID: "a", Front: testFront, Back: testBack},
		{ID: "b", Front: testFront, Back: testBack},
	}

	t.Run("create then submit", func(t *testing.T) {
		var submitPath string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case queuesPath:
				var req createQueueRequest
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
					t.Fatalf("decoding create request: %v", err)
				}
				if len(req.Cards) != 2 || req.Cards[0].ID != "a" {
					t.Errorf("unexpected create payload: %+v", req.Cards)
				}
				json.NewEncoder(w).Encode(createQueueResponse{QueueID: "q-123"})
			default:
				submitPath = r.URL.Path
				w.WriteHeader(http.StatusOK)
			}
		}))
		defer server.Close()

		client := NewClient(server.URL, "tok")
		queueID, err := client.CreateQueue(context.Background(), entries)
		if err != nil {
			t.Fatalf("CreateQueue: %v", err)
		}
		if queueID != "q-123" {
			t.Errorf("expected queue id q-123, got %q", queueID)
		}

		if err := client.SubmitQueue(context.Background(), queueID); err != nil {
			t.Fatalf("SubmitQueue: %v", err)
		}
		if submitPath != queuesPath+"/q-123/submit" {
			t.Errorf("unexpected submit path %q", submitPath)
		}
	})

	t.Run("create failure propagates", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		client := NewClient(server.URL, "tok")
		if _, err := client.CreateQueue(context.Background(), entries); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestAutoSave(t *testing.T) {
	result := &card.GradingResult{
		TCGModel: "pkm-v2",
		Images:   card.ResultImages{FrontURL: "/f.jpg", BackURL: "/b.jpg"},
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != resultsPath {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req autoSaveRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding auto-save request: %v", err)
		}
		if req.FrontImageURL != "/f.jpg" || req.BackImageURL != "/b.jpg" {
			t.Errorf("unexpected image urls: %+v", req)
		}
		if req.GradingResult == nil || req.GradingResult.TCGModel != "pkm-v2" {
			t.Errorf("unexpected result payload: %+v", req.GradingResult)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, "tok")
	if err := client.AutoSave(context.Background(), result); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
