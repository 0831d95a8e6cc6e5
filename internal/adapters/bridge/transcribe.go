package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"savedown/internal/core/domain"
)

// TranscribeVideo has the backend pull the audio track and run
// speech-to-text over it.
func (c *Client) TranscribeVideo(ctx context.Context, pageURL, format, language string) (string, error) {
	if format == "" {
		format = c.audioFormat
	}
	request := struct {
		URL      string `json:"url"`
		Format   string `json:"format"`
		Language string `json:"language,omitempty"`
	}{URL: pageURL, Format: format, Language: language}

	var response struct {
		Transcript string `json:"transcript"`
	}
	if err := c.postJSON(ctx, "/transcribe/video", request, domain.PlatformNone, &response); err != nil {
		return "", err
	}
	if response.Transcript == "" {
		return "", domain.NewError(domain.ErrMalformed, "transcription response missing transcript", nil)
	}
	return response.Transcript, nil
}

// TranscribeImage uploads an image and returns the text the backend reads
// out of it. An empty prompt lets the backend use its default instruction.
func (c *Client) TranscribeImage(ctx context.Context, filename string, file io.Reader, prompt string) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", domain.NewError(domain.ErrMalformed, "failed to build upload", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", domain.NewError(domain.ErrMalformed, "failed to read image", err)
	}
	if prompt != "" {
		if err := writer.WriteField("prompt", prompt); err != nil {
			return "", domain.NewError(domain.ErrMalformed, "failed to build upload", err)
		}
	}
	if err := writer.Close(); err != nil {
		return "", domain.NewError(domain.ErrMalformed, "failed to build upload", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/transcribe/image", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.api.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			return "", domain.NewError(domain.ErrCancelled, "request cancelled", err)
		}
		return "", domain.NewError(domain.ErrNetwork, "backend unreachable", err)
	}
	defer resp.Body.Close()

	if classifyResponse(resp) == respError {
		return "", readServerError(resp, domain.PlatformNone)
	}

	var response struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", domain.NewError(domain.ErrMalformed, "backend sent an unreadable response", err)
	}
	return response.Text, nil
}
