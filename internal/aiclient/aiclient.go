// Package aiclient is the narrow AI capability boundary nodes consume:
// text generation, image generation, and audio transcription. The concrete
// implementation speaks the OpenAI-compatible HTTP surface; retry and
// backoff policy is deliberately not implemented at this layer.
package aiclient

import "context"

// TextRequest asks for a single text completion.
type TextRequest struct {
	ModelID string
	System  string
	Prompt  string
}

// TextResponse carries the generated text.
type TextResponse struct {
	Text string
}

// ImageRequest asks for a single generated image.
type ImageRequest struct {
	ModelID string
	Prompt  string
	Size    string
}

// ImageResponse carries the generated image bytes.
type ImageResponse struct {
	Data     []byte
	MimeType string
}

// TranscribeRequest asks for a transcription of an audio payload.
type TranscribeRequest struct {
	ModelID  string
	Audio    []byte
	FileName string
	Language string
}

// TranscribeResponse carries the transcription.
type TranscribeResponse struct {
	Text string
}

// Client is the capability interface handed to nodes through the service
// boundary.
type Client interface {
	GenerateText(ctx context.Context, req TextRequest) (TextResponse, error)
	GenerateImage(ctx context.Context, req ImageRequest) (ImageResponse, error)
	TranscribeAudio(ctx context.Context, req TranscribeRequest) (TranscribeResponse, error)
}
