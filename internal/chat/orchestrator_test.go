package chat

import (
	"context"
	"encoding/base64"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"gemchat/internal/gemini"
	"gemchat/internal/memory"
)

type memFake struct{ items []memory.Item }

func (m *memFake) SaveMemories(items []memory.Item) error {
	m.items = append([]memory.Item(nil), items...)
	return nil
}
func (m *memFake) LoadMemories() ([]memory.Item, error) { return m.items, nil }
func (m *memFake) DeleteMemories() error                { m.items = nil; return nil }

// fakeGenerator replays a fixed chunk sequence, recording what it was asked
// for.
type fakeGenerator struct {
	chunks []gemini.Chunk
	err    error

	gotModel    string
	gotContents []gemini.Content
}

func (g *fakeGenerator) StreamGenerateContent(_ context.Context, model string, contents []gemini.Content) (<-chan gemini.Chunk, <-chan error) {
	g.gotModel = model
	g.gotContents = contents

	chunks := make(chan gemini.Chunk, len(g.chunks))
	errs := make(chan error, 1)
	for _, c := range g.chunks {
		chunks <- c
	}
	if g.err != nil {
		errs <- g.err
	}
	close(chunks)
	close(errs)
	return chunks, errs
}

type blockingGenerator struct{ release chan struct{} }

func (g *blockingGenerator) StreamGenerateContent(context.Context, string, []gemini.Content) (<-chan gemini.Chunk, <-chan error) {
	chunks := make(chan gemini.Chunk)
	errs := make(chan error)
	go func() {
		<-g.release
		close(chunks)
		close(errs)
	}()
	return chunks, errs
}

func newTestOrchestrator(t *testing.T, gen Generator) (*Orchestrator, *memory.Tracker) {
	t.Helper()
	memories := memory.NewTracker(&memFake{})
	images := NewImageRegistry(t.TempDir())
	return NewOrchestrator(NewSessionStore(&fakePersister{}), memories, images, gen, "gemini-2.0-flash"), memories
}

// drain collects updates until the final one and returns it.
func drain(t *testing.T, updates <-chan Update) Update {
	t.Helper()
	for {
		select {
		case u, ok := <-updates:
			if !ok {
				t.Fatal("updates closed without a final update")
			}
			if u.Done {
				return u
			}
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for updates")
		}
	}
}

func TestSendStreamsAndPersists(t *testing.T) {
	gen := &fakeGenerator{chunks: []gemini.Chunk{{Text: "Hi "}, {Text: "there"}}}
	o, _ := newTestOrchestrator(t, gen)

	updates, err := o.Send(context.Background(), "hello", nil)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	final := drain(t, updates)

	if final.Err != nil {
		t.Fatalf("unexpected error: %v", final.Err)
	}
	if len(final.Messages) != 2 {
		t.Fatalf("expected user+assistant, got %d messages", len(final.Messages))
	}
	if final.Messages[1].Content != "Hi there" {
		t.Fatalf("assistant content = %q", final.Messages[1].Content)
	}
	if final.Messages[1].IsStreaming {
		t.Fatal("final assistant message still flagged streaming")
	}

	sessions := o.Sessions()
	if len(sessions) != 1 {
		t.Fatalf("expected 1 session, got %d", len(sessions))
	}
	if sessions[0].Title != "hello" {
		t.Fatalf("session title = %q", sessions[0].Title)
	}
	if len(sessions[0].Messages) != 2 {
		t.Fatalf("session not reconciled, %d messages", len(sessions[0].Messages))
	}
}

func TestSendBuildsPreambleGreetingAndHistory(t *testing.T) {
	gen := &fakeGenerator{chunks: []gemini.Chunk{{Text: "ok"}}}
	o, _ := newTestOrchestrator(t, gen)

	updates, err := o.Send(context.Background(), "first", nil)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	drain(t, updates)

	updates, err = o.Send(context.Background(), "second", nil)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	drain(t, updates)

	contents := gen.gotContents
	// preamble, greeting, first user, first reply, new turn
	if len(contents) != 5 {
		t.Fatalf("expected 5 turns, got %d", len(contents))
	}
	if contents[0].Role != "user" || !strings.Contains(contents[0].Parts[0].Text, "You are Gemini") {
		t.Fatalf("unexpected preamble turn: %#v", contents[0])
	}
	if contents[1].Role != "model" || !strings.Contains(contents[1].Parts[0].Text, "Hello there!") {
		t.Fatalf("unexpected greeting turn: %#v", contents[1])
	}
	if contents[4].Parts[0].Text != "second" {
		t.Fatalf("unexpected final turn: %#v", contents[4])
	}
}

func TestSendEmptyCreatesSessionOnly(t *testing.T) {
	o, _ := newTestOrchestrator(t, &fakeGenerator{})

	updates, err := o.Send(context.Background(), "   ", nil)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if updates != nil {
		t.Fatal("expected no stream for an empty send")
	}
	if len(o.Sessions()) != 1 {
		t.Fatalf("expected session creation, got %d sessions", len(o.Sessions()))
	}
	if len(o.Messages()) != 0 {
		t.Fatalf("expected no messages, got %d", len(o.Messages()))
	}
}

func TestSendWhileStreamingRejected(t *testing.T) {
	gen := &blockingGenerator{release: make(chan struct{})}
	o, _ := newTestOrchestrator(t, gen)

	updates, err := o.Send(context.Background(), "one", nil)
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	if _, err := o.Send(context.Background(), "two", nil); !errors.Is(err, ErrSendInFlight) {
		t.Fatalf("expected ErrSendInFlight, got %v", err)
	}

	close(gen.release)
	drain(t, updates)

	// The queue is open again after the stream finishes.
	if o.Busy() {
		t.Fatal("orchestrator still busy after final update")
	}
}

func TestSendWithoutGenerator(t *testing.T) {
	o, _ := newTestOrchestrator(t, nil)
	if _, err := o.Send(context.Background(), "hello", nil); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestSendErrorDiscardsPlaceholderKeepsUserMessage(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("quota exceeded")}
	o, _ := newTestOrchestrator(t, gen)

	updates, err := o.Send(context.Background(), "hello", nil)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	final := drain(t, updates)

	if final.Err == nil || final.Err.Type != ErrorAPI {
		t.Fatalf("expected api error, got %#v", final.Err)
	}
	if len(final.Messages) != 1 || final.Messages[0].Role != RoleUser {
		t.Fatalf("expected only the user message kept, got %#v", final.Messages)
	}
	if o.LastError() == nil {
		t.Fatal("expected last error recorded")
	}
}

func TestSendImageIntentRoutesToImageModel(t *testing.T) {
	raw := []byte{0x89, 0x50, 0x4e, 0x47}
	gen := &fakeGenerator{chunks: []gemini.Chunk{{
		ImageMIME: "image/png",
		ImageData: base64.StdEncoding.EncodeToString(raw),
	}}}
	o, _ := newTestOrchestrator(t, gen)

	updates, err := o.Send(context.Background(), "generate image of a cat", nil)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	final := drain(t, updates)

	if gen.gotModel != gemini.ImageGenerationModel {
		t.Fatalf("model = %q, want %q", gen.gotModel, gemini.ImageGenerationModel)
	}
	assistant := final.Messages[1]
	if assistant.Content != "I generated an image for you!" {
		t.Fatalf("caption = %q", assistant.Content)
	}
	if assistant.ImagePath == "" {
		t.Fatal("expected an image path")
	}
	if _, err := os.Stat(assistant.ImagePath); err != nil {
		t.Fatalf("image not on disk: %v", err)
	}
}

func TestSendTextKeepsConfiguredModel(t *testing.T) {
	gen := &fakeGenerator{chunks: []gemini.Chunk{{Text: "hi"}}}
	o, _ := newTestOrchestrator(t, gen)
	o.SetModel("gemini-2.5-pro")

	updates, err := o.Send(context.Background(), "hello", nil)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	drain(t, updates)

	if gen.gotModel != "gemini-2.5-pro" {
		t.Fatalf("model = %q", gen.gotModel)
	}
}

func TestSendExtractsMemories(t *testing.T) {
	gen := &fakeGenerator{chunks: []gemini.Chunk{{Text: "Nice to meet you!"}}}
	o, memories := newTestOrchestrator(t, gen)

	updates, err := o.Send(context.Background(), "my name is Ada", nil)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	drain(t, updates)

	items := memories.Items()
	if len(items) != 1 {
		t.Fatalf("expected 1 memory, got %d", len(items))
	}
	if items[0].Content != "User mentioned: my name is Ada" {
		t.Fatalf("unexpected memory: %q", items[0].Content)
	}
}

func TestSendAttachmentsBecomeInlineParts(t *testing.T) {
	gen := &fakeGenerator{chunks: []gemini.Chunk{{Text: "got it"}}}
	o, _ := newTestOrchestrator(t, gen)

	file := ChatFile{
		ID:       "f1",
		Name:     "pic.png",
		MimeType: "image/png",
		Data:     "data:image/png;base64,QUJD",
	}
	updates, err := o.Send(context.Background(), "look at this", []ChatFile{file})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	drain(t, updates)

	last := gen.gotContents[len(gen.gotContents)-1]
	if len(last.Parts) != 2 {
		t.Fatalf("expected text+inline parts, got %d", len(last.Parts))
	}
	inline := last.Parts[1].InlineData
	if inline == nil || inline.MimeType != "image/png" || inline.Data != "QUJD" {
		t.Fatalf("data-uri prefix not stripped: %#v", inline)
	}
}

func TestDeleteActiveSessionReloadsWorking(t *testing.T) {
	gen := &fakeGenerator{chunks: []gemini.Chunk{{Text: "reply"}}}
	o, _ := newTestOrchestrator(t, gen)

	updates, _ := o.Send(context.Background(), "first chat", nil)
	drain(t, updates)

	if err := o.NewSession(); err != nil {
		t.Fatalf("new session: %v", err)
	}
	updates, _ = o.Send(context.Background(), "second chat", nil)
	drain(t, updates)

	if err := o.Delete(o.CurrentID()); err != nil {
		t.Fatalf("delete: %v", err)
	}
	msgs := o.Messages()
	if len(msgs) != 2 || msgs[0].Content != "first chat" {
		t.Fatalf("working copy not reloaded from promoted session: %#v", msgs)
	}
}
