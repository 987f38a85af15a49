package chat

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"gemchat/internal/gemini"
	"gemchat/internal/memory"
)

// ErrSendInFlight is returned while a previous send is still streaming.
// Sends are serialized structurally, not just by disabling the input.
var ErrSendInFlight = errors.New("a message is already streaming")

// ErrNotConfigured is returned when no generator has been injected yet,
// i.e. no credential has been submitted.
var ErrNotConfigured = errors.New("generation client is not configured")

const systemPreamble = "You are Gemini, a warm and helpful assistant. " +
	"Answer conversationally, keep responses focused on what the user asked, " +
	"and use Markdown formatting where it helps readability."

const assistantGreeting = "Hello there! I'm Gemini, and I'm so excited for you! What brings you to visit today?"

const imageCaption = "I generated an image for you!"

// Generator is the streamed-generation dependency of the orchestrator.
type Generator interface {
	StreamGenerateContent(ctx context.Context, model string, contents []gemini.Content) (<-chan gemini.Chunk, <-chan error)
}

// Update is one step of an in-flight send, carrying a snapshot of the
// working message list. The final update has Done set and, on failure, Err.
type Update struct {
	Messages []ChatMessage
	Done     bool
	Err      *ChatError
}

// Orchestrator drives the send-message flow: it owns the working copy of
// the active session's messages, talks to the generator, and reconciles
// finished turns back into the session store.
type Orchestrator struct {
	sessions *SessionStore
	memories *memory.Tracker
	images   *ImageRegistry

	// Pluggable heuristics; the defaults carry the fixed phrase lists.
	ClassifyImageIntent ImageIntentClassifier
	ExtractMemories     MemoryExtractor

	mu       sync.Mutex
	gen      Generator
	model    string
	working  []ChatMessage
	lastErr  *ChatError
	inFlight bool
}

func NewOrchestrator(sessions *SessionStore, memories *memory.Tracker, images *ImageRegistry, gen Generator, model string) *Orchestrator {
	return &Orchestrator{
		sessions:            sessions,
		memories:            memories,
		images:              images,
		gen:                 gen,
		model:               model,
		ClassifyImageIntent: DefaultImageIntent,
		ExtractMemories:     DefaultMemoryExtractor,
	}
}

// SetGenerator swaps the generation client, e.g. after a new credential is
// submitted.
func (o *Orchestrator) SetGenerator(gen Generator) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.gen = gen
}

func (o *Orchestrator) SetModel(model string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.model = model
}

func (o *Orchestrator) Model() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.model
}

// Messages returns a snapshot of the working message list.
func (o *Orchestrator) Messages() []ChatMessage {
	o.mu.Lock()
	defer o.mu.Unlock()
	return snapshotMessages(o.working)
}

// Sessions and CurrentID expose the session list for presentation.
func (o *Orchestrator) Sessions() []ChatSession {
	return o.sessions.Sessions()
}

func (o *Orchestrator) CurrentID() string {
	return o.sessions.CurrentID()
}

// ClearMemories wipes the memory tracker and its persisted entry.
func (o *Orchestrator) ClearMemories() error {
	return o.memories.Clear()
}

func (o *Orchestrator) LastError() *ChatError {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastErr
}

func (o *Orchestrator) Busy() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.inFlight
}

// Restore loads the persisted session list and brings the most recent
// session's messages into the working copy.
func (o *Orchestrator) Restore() error {
	if err := o.sessions.Load(); err != nil {
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if current, ok := o.sessions.Current(); ok {
		o.working = current.Messages
		for _, msg := range current.Messages {
			o.images.Track(msg.ID, msg.ImagePath)
		}
	} else {
		o.working = nil
	}
	return nil
}

// NewSession starts a fresh conversation: new active session, empty working
// list, error state cleared.
func (o *Orchestrator) NewSession() error {
	_, err := o.sessions.CreateSession()

	o.mu.Lock()
	o.working = nil
	o.lastErr = nil
	o.mu.Unlock()
	return err
}

// Switch makes the named session active and loads its messages. Unknown
// ids are a no-op.
func (o *Orchestrator) Switch(id string) bool {
	session, ok := o.sessions.SwitchSession(id)
	if !ok {
		return false
	}

	o.mu.Lock()
	o.working = session.Messages
	o.lastErr = nil
	o.mu.Unlock()
	return true
}

// Delete removes a session and releases any generated images it owned.
// Deleting the active session loads the promoted session's messages.
func (o *Orchestrator) Delete(id string) error {
	wasCurrent := o.sessions.CurrentID() == id
	removed, ok, err := o.sessions.DeleteSession(id)
	if !ok {
		return err
	}
	o.images.ReleaseSession(removed)

	if wasCurrent {
		o.mu.Lock()
		if current, hasCurrent := o.sessions.Current(); hasCurrent {
			o.working = current.Messages
		} else {
			o.working = nil
		}
		o.mu.Unlock()
	}
	return err
}

// ClearAll deletes every session, its images, and the persisted entry.
func (o *Orchestrator) ClearAll() error {
	o.images.ReleaseAll()
	err := o.sessions.ClearAll()

	o.mu.Lock()
	o.working = nil
	o.lastErr = nil
	o.mu.Unlock()
	return err
}

// Send runs one chat turn. The returned channel delivers one update per
// response chunk and a final update with Done set; it is nil when the call
// was a no-op (empty input, or only a session had to be created).
func (o *Orchestrator) Send(ctx context.Context, content string, files []ChatFile) (<-chan Update, error) {
	content = strings.TrimSpace(content)

	if o.sessions.CurrentID() == "" {
		if err := o.NewSession(); err != nil {
			return nil, err
		}
		if content == "" && len(files) == 0 {
			return nil, nil
		}
	} else if content == "" && len(files) == 0 {
		return nil, nil
	}

	o.mu.Lock()
	if o.inFlight {
		o.mu.Unlock()
		return nil, ErrSendInFlight
	}
	if o.gen == nil {
		o.mu.Unlock()
		return nil, ErrNotConfigured
	}
	gen := o.gen

	userMessage := ChatMessage{
		ID:        uuid.NewString(),
		Content:   content,
		Role:      RoleUser,
		Timestamp: time.Now(),
		Files:     files,
	}
	o.working = append(o.working, userMessage)
	o.lastErr = nil

	wantImage := o.ClassifyImageIntent(content)
	model := o.model
	if wantImage {
		model = gemini.ImageGenerationModel
	}

	contents := o.buildContentsLocked(content, files)

	placeholder := ChatMessage{
		ID:          uuid.NewString(),
		Content:     "",
		Role:        RoleAssistant,
		Timestamp:   time.Now(),
		IsStreaming: true,
	}
	o.working = append(o.working, placeholder)
	o.inFlight = true
	o.mu.Unlock()

	updates := make(chan Update, 16)
	chunks, errs := gen.StreamGenerateContent(ctx, model, contents)

	go o.consume(chunks, errs, updates, placeholder.ID, content, wantImage)
	return updates, nil
}

// buildContentsLocked assembles the outgoing turn list: system preamble
// with memory context, the fixed greeting turn, prior history, then the new
// turn's parts. Caller holds o.mu; the new user message is already the last
// element of the working list.
func (o *Orchestrator) buildContentsLocked(content string, files []ChatFile) []gemini.Content {
	contents := []gemini.Content{
		gemini.TextContent("user", systemPreamble+o.memories.Context()),
		gemini.TextContent("model", assistantGreeting),
	}
	for _, msg := range o.working[:len(o.working)-1] {
		role := "user"
		if msg.Role == RoleAssistant {
			role = "model"
		}
		contents = append(contents, gemini.TextContent(role, msg.Content))
	}

	parts := []gemini.Part{{Text: content}}
	for _, file := range files {
		parts = append(parts, gemini.Part{InlineData: &gemini.InlineData{
			MimeType: file.MimeType,
			Data:     stripDataURIPrefix(file.Data),
		}})
	}
	contents = append(contents, gemini.Content{Role: "user", Parts: parts})
	return contents
}

func (o *Orchestrator) consume(chunks <-chan gemini.Chunk, errs <-chan error, updates chan<- Update, placeholderID, userText string, wantImage bool) {
	defer close(updates)

	var fullResponse strings.Builder
	imagePath := ""

	for chunk := range chunks {
		o.mu.Lock()
		if chunk.HasImage() {
			raw, err := base64.StdEncoding.DecodeString(chunk.ImageData)
			if err == nil {
				if path, saveErr := o.images.Save(placeholderID, chunk.ImageMIME, raw); saveErr == nil {
					imagePath = path
				}
			}
			o.replaceLocked(placeholderID, func(msg *ChatMessage) {
				msg.Content = imageCaption
				msg.ImagePath = imagePath
			})
		} else if chunk.Text != "" {
			fullResponse.WriteString(chunk.Text)
			text := fullResponse.String()
			o.replaceLocked(placeholderID, func(msg *ChatMessage) {
				msg.Content = text
			})
		}
		snapshot := snapshotMessages(o.working)
		o.mu.Unlock()

		updates <- Update{Messages: snapshot}
	}

	if err := <-errs; err != nil {
		o.fail(updates, placeholderID, err)
		return
	}

	// Stream exhausted: finalize the assistant message and reconcile the
	// working list back into the session store.
	finalText := fullResponse.String()
	o.mu.Lock()
	o.replaceLocked(placeholderID, func(msg *ChatMessage) {
		msg.IsStreaming = false
		if wantImage && imagePath != "" {
			msg.Content = imageCaption
		} else {
			msg.Content = finalText
		}
	})
	snapshot := snapshotMessages(o.working)
	o.inFlight = false
	o.mu.Unlock()

	currentID := o.sessions.CurrentID()
	var persistErr error
	if currentID != "" {
		persistErr = o.sessions.UpdateSession(currentID, snapshot)
	}

	for _, cand := range o.ExtractMemories(userText, finalText) {
		_ = o.memories.Add(cand.Content, cand.Type, cand.Importance, cand.Tags)
	}

	final := Update{Messages: snapshot, Done: true}
	if persistErr != nil {
		final.Err = NewChatError(ErrorAPI, persistErr.Error())
	}
	updates <- final
}

// fail records the error, discards the streaming placeholder (keeping the
// user's message so the turn can be retried), and emits the final update.
func (o *Orchestrator) fail(updates chan<- Update, placeholderID string, err error) {
	chatErr := NewChatError(ErrorAPI, err.Error())

	o.images.Release(placeholderID)

	o.mu.Lock()
	for i := range o.working {
		if o.working[i].ID == placeholderID {
			o.working = append(o.working[:i], o.working[i+1:]...)
			break
		}
	}
	o.lastErr = chatErr
	o.inFlight = false
	snapshot := snapshotMessages(o.working)
	o.mu.Unlock()

	updates <- Update{Messages: snapshot, Done: true, Err: chatErr}
}

func (o *Orchestrator) replaceLocked(id string, mutate func(*ChatMessage)) {
	for i := range o.working {
		if o.working[i].ID == id {
			mutate(&o.working[i])
			return
		}
	}
}

func snapshotMessages(in []ChatMessage) []ChatMessage {
	out := make([]ChatMessage, len(in))
	copy(out, in)
	return out
}

func stripDataURIPrefix(data string) string {
	if idx := strings.Index(data, ";base64,"); idx >= 0 && strings.HasPrefix(data, "data:") {
		return data[idx+len(";base64,"):]
	}
	return data
}
