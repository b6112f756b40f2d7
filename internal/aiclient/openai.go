package aiclient

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/gridnote/studio/internal/ctxlog"
)

// OpenAIClient talks to an OpenAI-compatible API endpoint.
type OpenAIClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewOpenAIClient builds a client for the given endpoint. baseURL is the API
// root, e.g. "https://api.openai.com/v1".
func NewOpenAIClient(baseURL, apiKey string) *OpenAIClient {
	return &OpenAIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *apiError `json:"error"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// GenerateText implements Client via the chat completions endpoint.
func (c *OpenAIClient) GenerateText(ctx context.Context, req TextRequest) (TextResponse, error) {
	messages := make([]chatMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	var parsed chatResponse
	if err := c.postJSON(ctx, "/chat/completions", chatRequest{Model: req.ModelID, Messages: messages}, &parsed); err != nil {
		return TextResponse{}, err
	}
	if parsed.Error != nil {
		return TextResponse{}, fmt.Errorf("text generation failed: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return TextResponse{}, fmt.Errorf("text generation returned no choices")
	}
	return TextResponse{Text: parsed.Choices[0].Message.Content}, nil
}

type imageGenRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	Size           string `json:"size,omitempty"`
	ResponseFormat string `json:"response_format"`
}

type imageGenResponse struct {
	Data []struct {
		B64JSON string `json:"b64_json"`
	} `json:"data"`
	Error *apiError `json:"error"`
}

// GenerateImage implements Client via the image generations endpoint.
func (c *OpenAIClient) GenerateImage(ctx context.Context, req ImageRequest) (ImageResponse, error) {
	body := imageGenRequest{Model: req.ModelID, Prompt: req.Prompt, Size: req.Size, ResponseFormat: "b64_json"}

	var parsed imageGenResponse
	if err := c.postJSON(ctx, "/images/generations", body, &parsed); err != nil {
		return ImageResponse{}, err
	}
	if parsed.Error != nil {
		return ImageResponse{}, fmt.Errorf("image generation failed: %s", parsed.Error.Message)
	}
	if len(parsed.Data) == 0 {
		return ImageResponse{}, fmt.Errorf("image generation returned no data")
	}
	data, err := base64.StdEncoding.DecodeString(parsed.Data[0].B64JSON)
	if err != nil {
		return ImageResponse{}, fmt.Errorf("decode image payload: %w", err)
	}
	return ImageResponse{Data: data, MimeType: "image/png"}, nil
}

type transcriptionResponse struct {
	Text  string    `json:"text"`
	Error *apiError `json:"error"`
}

// TranscribeAudio implements Client via the audio transcriptions endpoint.
func (c *OpenAIClient) TranscribeAudio(ctx context.Context, req TranscribeRequest) (TranscribeResponse, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fileName := req.FileName
	if fileName == "" {
		fileName = "audio.wav"
	}
	part, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		return TranscribeResponse{}, fmt.Errorf("build transcription request: %w", err)
	}
	if _, err := part.Write(req.Audio); err != nil {
		return TranscribeResponse{}, fmt.Errorf("build transcription request: %w", err)
	}
	if err := mw.WriteField("model", req.ModelID); err != nil {
		return TranscribeResponse{}, fmt.Errorf("build transcription request: %w", err)
	}
	if req.Language != "" {
		if err := mw.WriteField("language", req.Language); err != nil {
			return TranscribeResponse{}, fmt.Errorf("build transcription request: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return TranscribeResponse{}, fmt.Errorf("build transcription request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/audio/transcriptions", &buf)
	if err != nil {
		return TranscribeResponse{}, err
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	var parsed transcriptionResponse
	if err := c.do(httpReq, &parsed); err != nil {
		return TranscribeResponse{}, err
	}
	if parsed.Error != nil {
		return TranscribeResponse{}, fmt.Errorf("transcription failed: %s", parsed.Error.Message)
	}
	return TranscribeResponse{Text: parsed.Text}, nil
}

func (c *OpenAIClient) postJSON(ctx context.Context, path string, body, out any) error {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(bodyBytes))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	return c.do(httpReq, out)
}

func (c *OpenAIClient) do(req *http.Request, out any) error {
	ctxlog.FromContext(req.Context()).Debug("Calling AI API.", "path", req.URL.Path)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ai api request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return fmt.Errorf("read ai api response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("ai api returned status %d: %s", resp.StatusCode, truncateBody(data))
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode ai api response: %w", err)
	}
	return nil
}

func truncateBody(data []byte) string {
	const max = 512
	s := strings.TrimSpace(string(data))
	if len(s) > max {
		return s[:max] + "…"
	}
	return s
}
