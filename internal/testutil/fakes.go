// Package testutil provides the shared fakes and builders the engine's
// tests compose: canned AI and CLI doubles, permissive policies, and
// shorthand constructors for project documents.
package testutil

import (
	"context"
	"sync"

	"github.com/gridnote/studio/internal/aiclient"
	"github.com/gridnote/studio/internal/cliexec"
)

// FakeAI is an aiclient.Client double with canned responses and recorded
// calls. Safe for concurrent use.
type FakeAI struct {
	mu sync.Mutex

	TextResponse       aiclient.TextResponse
	TextErr            error
	ImageResponse      aiclient.ImageResponse
	ImageErr           error
	TranscribeResponse aiclient.TranscribeResponse
	TranscribeErr      error

	TextCalls       []aiclient.TextRequest
	ImageCalls      []aiclient.ImageRequest
	TranscribeCalls []aiclient.TranscribeRequest
}

// GenerateText implements aiclient.Client.
func (f *FakeAI) GenerateText(ctx context.Context, req aiclient.TextRequest) (aiclient.TextResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.TextCalls = append(f.TextCalls, req)
	return f.TextResponse, f.TextErr
}

// GenerateImage implements aiclient.Client.
func (f *FakeAI) GenerateImage(ctx context.Context, req aiclient.ImageRequest) (aiclient.ImageResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ImageCalls = append(f.ImageCalls, req)
	return f.ImageResponse, f.ImageErr
}

// TranscribeAudio implements aiclient.Client.
func (f *FakeAI) TranscribeAudio(ctx context.Context, req aiclient.TranscribeRequest) (aiclient.TranscribeResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.TranscribeCalls = append(f.TranscribeCalls, req)
	return f.TranscribeResponse, f.TranscribeErr
}

// TextCallCount returns how many text generations were requested.
func (f *FakeAI) TextCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.TextCalls)
}

// FakeCLI is a cliexec.Runner double: it records every request and replies
// with the per-command response, falling back to Default.
type FakeCLI struct {
	mu sync.Mutex

	Responses map[string]cliexec.Response
	Default   cliexec.Response
	Err       error

	// Hook, when set, observes each request before the response is chosen.
	// Tests use it to create the side effects a real command would have.
	Hook func(req cliexec.Request)

	Calls []cliexec.Request
}

// Run implements cliexec.Runner.
func (f *FakeCLI) Run(ctx context.Context, req cliexec.Request) (cliexec.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, req)
	if f.Hook != nil {
		f.Hook(req)
	}
	if f.Err != nil {
		return cliexec.Response{}, f.Err
	}
	if resp, ok := f.Responses[req.Command]; ok {
		return resp, nil
	}
	return f.Default, nil
}

// CallCount returns how many commands were run.
func (f *FakeCLI) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Calls)
}

// FakeSecrets is a services.SecretStore backed by a plain map.
type FakeSecrets map[string]string

// Get implements services.SecretStore.
func (f FakeSecrets) Get(name string) (string, bool) {
	v, ok := f[name]
	return v, ok
}
