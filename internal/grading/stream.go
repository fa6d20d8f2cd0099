package grading

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/cardlens/cardlens/internal/card"
)

// TerminalError is a terminal failure reported inside an otherwise healthy
// grading stream. The message is already user-facing.
type TerminalError struct {
	Message string
}

func (e *TerminalError) Error() string {
	return e.Message
}

// SubmitForGrading posts both images as one multipart request and consumes
// the streaming response until a terminal event. Progress and status updates
// are delivered through h in strict arrival order; the terminal result or
// error is the return value. Exactly one submission may be driven per call;
// preventing concurrent submissions is the caller's job.
func (c *Client) SubmitForGrading(ctx context.Context, front, back card.Image, h StreamHandler) (*card.GradingResult, error) {
	frontData, err := front.Bytes()
	if err != nil {
		return nil, fmt.Errorf("decoding front image: %w", err)
	}
	backData, err := back.Bytes()
	if err != nil {
		return nil, fmt.Errorf("decoding back image: %w", err)
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for _, part := range []struct {
		field string
		data  []byte
	}{
		{"front", frontData},
		{"back", backData},
	} {
		fw, err := writer.CreateFormFile(part.field, part.field+".jpg")
		if err != nil {
			return nil, fmt.Errorf("creating %s part: %w", part.field, err)
		}
		if _, err := fw.Write(part.data); err != nil {
			return nil, fmt.Errorf("writing %s part: %w", part.field, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("finalizing multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+gradePath, &buf)
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

	// Non-success responses never carry a stream; the body is at most a
	// JSON error object.
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apiErrorFromResponse(resp)
	}

	// A successful JSON (non-stream) response is only ever an error wrapper.
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		var errResp errorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Error != "" {
			return nil, &TerminalError{Message: errResp.Error}
		}
		return nil, &TerminalError{Message: "unexpected response from grading service"}
	}

	return consumeStream(resp.Body, h)
}

// consumeStream incrementally decodes newline-delimited event records. A
// carry-over buffer holds any trailing partial line between chunks, so the
// parsed event sequence is independent of where chunk boundaries fall. After
// the first terminal event nothing further is read, even if the transport
// keeps delivering bytes.
func consumeStream(r io.Reader, h StreamHandler) (*card.GradingResult, error) {
	var carry []byte
	buf := make([]byte, 4096)

	for {
		n, readErr := r.Read(buf)
		if n > 0 {
			carry = append(carry, buf[:n]...)
			for {
				idx := bytes.IndexByte(carry, '\n')
				if idx < 0 {
					break
				}
				line := string(bytes.TrimRight(carry[:idx], "\r"))
				carry = carry[idx+1:]

				result, terminal, err := processRecord(line, h)
				if terminal {
					return result, err
				}
			}
		}

		if readErr == io.EOF {
			return nil, &TerminalError{Message: "grading stream ended before a result was received"}
		}
		if readErr != nil {
			return nil, fmt.Errorf("reading grading stream: %w", readErr)
		}
	}
}

// processRecord handles one complete line. Blank lines and individually
// malformed records are skipped without aborting the stream.
func processRecord(line string, h StreamHandler) (*card.GradingResult, bool, error) {
	if strings.TrimSpace(line) == "" {
		return nil, false, nil
	}

	payload := strings.TrimPrefix(line, "data: ")

	var event StreamEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		log.Printf("[GRADE] Skipping malformed stream record: %v", err)
		return nil, false, nil
	}

	if event.Error != "" {
		message := event.Error
		if event.Details != "" {
			message = event.Details
		}
		return nil, true, &TerminalError{Message: message}
	}

	if event.Status != "" {
		h.status(event.Status)
	}
	if event.Progress != nil {
		h.progress(*event.Progress)
	}
	if event.Result != nil {
		// A result always reads as fully done, whatever the last
		// explicit progress value said.
		h.progress(100)
		return event.Result, true, nil
	}

	return nil, false, nil
}
