package grading

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/cardlens/cardlens/internal/card"
)

const (
	gradePath     = "/api/v1/grade"
	recognizePath = "/api/v1/cards/recognize"
	queuesPath    = "/api/v1/queues"
	resultsPath   = "/api/v1/results"
)

// ErrNotRecognized is returned by RecognizeCard when the image does not match
// any known card. Callers should advise manual entry rather than treat this
// as a hard failure.
var ErrNotRecognized = errors.New("card not recognized, please enter details manually")

const genericCreditsMessage = "Insufficient credits. Please upgrade your plan or wait for your monthly reset."

// APIError is a non-success response from the grading service, carrying the
// user-facing message extracted from the body.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

// PaymentRequired reports whether the error is the distinguished 402
// credits/limit failure.
func (e *APIError) PaymentRequired() bool {
	return e.StatusCode == http.StatusPaymentRequired
}

// Client talks to the grading service. The zero timeout on the underlying
// http.Client is deliberate: the grading submission holds one long-lived
// streaming response open for the duration of the job.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{},
	}
}

// authorize sets the bearer header. The header is always present, with an
// empty credential if none is configured; the server decides what an
// unauthenticated submission is allowed to do.
func (c *Client) authorize(req *http.Request) {
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.token))
}

// apiErrorFromResponse maps a non-2xx response to an APIError, preferring the
// body's error field over generic fallback text.
func apiErrorFromResponse(resp *http.Response) *APIError {
	body, _ := io.ReadAll(resp.Body)

	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		return &APIError{StatusCode: resp.StatusCode, Message: errResp.Error}
	}

	if resp.StatusCode == http.StatusPaymentRequired {
		return &APIError{StatusCode: resp.StatusCode, Message: genericCreditsMessage}
	}
	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    fmt.Sprintf("HTTP error! status: %d", resp.StatusCode),
	}
}

func (c *Client) postJSON(ctx context.Context, path string, payload, out any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apiErrorFromResponse(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}

// RecognizeCard submits a captured image for identification. A no-match is
// reported as ErrNotRecognized, not as a transport failure.
func (c *Client) RecognizeCard(ctx context.Context, img card.Image) (*card.Info, error) {
	imgData, err := img.Bytes()
	if err != nil {
		return nil, fmt.Errorf("decoding captured image: %w", err)
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("image", "card.jpg")
	if err != nil {
		return nil, fmt.Errorf("creating multipart body: %w", err)
	}
	if _, err := part.Write(imgData); err != nil {
		return nil, fmt.Errorf("writing image part: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("finalizing multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+recognizePath, &buf)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotRecognized
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apiErrorFromResponse(resp)
	}

	var recResp recognizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&recResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if recResp.Card == nil {
		return nil, ErrNotRecognized
	}

	return recResp.Card, nil
}

// CreateQueue converts an ordered bulk entry list into a server-side queue
// job and returns its handle.
func (c *Client) CreateQueue(ctx context.Context, entries []card.BulkEntry) (string, error) {
	var resp createQueueResponse
	if err := c.postJSON(ctx, queuesPath, createQueueRequest{Cards: entries}, &resp); err != nil {
		return "", fmt.Errorf("creating queue: %w", err)
	}
	if resp.QueueID == "" {
		return "", fmt.Errorf("creating queue: server returned no queue id")
	}
	return resp.QueueID, nil
}

// SubmitQueue submits a previously created queue job for processing.
func (c *Client) SubmitQueue(ctx context.Context, queueID string) error {
	path := fmt.Sprintf("%s/%s/submit", queuesPath, queueID)
	if err := c.postJSON(ctx, path, submitQueueRequest{QueueID: queueID}, nil); err != nil {
		return fmt.Errorf("submitting queue: %w", err)
	}
	return nil
}

// AutoSave persists a finished grading result server-side. Fire-and-forget
// from the workflow's point of view: the caller logs failures and moves on.
func (c *Client) AutoSave(ctx context.Context, result *card.GradingResult) error {
	payload := autoSaveRequest{
		GradingResult: result,
		FrontImageURL: result.Images.FrontURL,
		BackImageURL:  result.Images.BackURL,
	}
	if err := c.postJSON(ctx, resultsPath, payload, nil); err != nil {
		return fmt.Errorf("saving result: %w", err)
	}
	return nil
}
