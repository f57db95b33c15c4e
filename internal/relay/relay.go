// Package relay drives one chat turn end to end: persist the user message,
// replay history to the completion provider, forward streamed fragments to
// the caller in provider order, and persist the final assistant message.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/oguzkara/chatforge/internal/ai"
	"github.com/oguzkara/chatforge/internal/models"
)

// ErrEmptyTurn is returned when a send carries neither text nor attachments.
var ErrEmptyTurn = errors.New("message text or at least one attachment is required")

// MessageStore is the persistence surface the relay needs. Owner isolation
// is enforced by the caller before Prepare; the relay does not re-check it.
type MessageStore interface {
	ListMessages(ctx context.Context, chatID uuid.UUID) ([]models.Message, error)
	InsertMessage(ctx context.Context, msg *models.Message) error
	ListAttachments(ctx context.Context, messageID uuid.UUID) ([]models.Attachment, error)
}

// FragmentStream is a pull stream of completion fragments; *ai.Stream
// satisfies it.
type FragmentStream interface {
	Recv() (ai.Fragment, error)
	Close() error
}

// Completer opens provider token streams.
type Completer interface {
	StreamComplete(ctx context.Context, turns []ai.Turn, model string, opts ai.Options) (FragmentStream, error)
}

type clientCompleter struct {
	client *ai.Client
}

func (w clientCompleter) StreamComplete(ctx context.Context, turns []ai.Turn, model string, opts ai.Options) (FragmentStream, error) {
	return w.client.StreamComplete(ctx, turns, model, opts)
}

// NewClientCompleter adapts an *ai.Client to the Completer interface.
func NewClientCompleter(client *ai.Client) Completer {
	return clientCompleter{client: client}
}

// ─── Events ─────────────────────────────────────────────────────────────────

const (
	EventChunk = "chunk"
	EventDone  = "done"
	EventError = "error"
)

// Event is one frame of the relay's output stream.
type Event struct {
	Type         string `json:"type"`
	Content      string `json:"content,omitempty"`
	TokensUsed   int    `json:"tokens_used,omitempty"`
	FinishReason string `json:"finish_reason,omitempty"`
	Message      string `json:"message,omitempty"`
}

// Sink receives relay events. A sink error aborts the stream.
type Sink func(Event) error

// ─── Relay ──────────────────────────────────────────────────────────────────

// SendRequest is one user turn. AttachmentURLs must already be persisted by
// the upload path; the relay never uploads.
type SendRequest struct {
	ChatID          uuid.UUID
	UserText        string
	AttachmentURLs  []string
	ModelHint       string
	SkipUserPersist bool
}

type Relay struct {
	store     MessageStore
	completer Completer
}

func New(store MessageStore, completer Completer) *Relay {
	return &Relay{store: store, completer: completer}
}

// Prepared holds the assembled provider request between Prepare and Stream.
type Prepared struct {
	chatID uuid.UUID
	turns  []ai.Turn
	model  string
}

func (p *Prepared) Model() string {
	return p.model
}

// Prepare runs the pre-stream steps: persist the user turn (unless skipped),
// load the ordered history, pick the model, inject extracted document text
// and build vision turns. Errors here surface as plain errors, before any
// event frame is written.
//
// Concurrent sends to the same chat are not serialized here; interleaving
// falls to store insert ordering.
func (r *Relay) Prepare(ctx context.Context, req SendRequest) (*Prepared, error) {
	if strings.TrimSpace(req.UserText) == "" && len(req.AttachmentURLs) == 0 {
		return nil, ErrEmptyTurn
	}

	model := SelectModel(req.ModelHint, req.AttachmentURLs)

	// Persist the user turn first so the history fetch below includes it.
	if !req.SkipUserPersist {
		userMsg := &models.Message{
			ChatID:  req.ChatID,
			Role:    models.RoleUser,
			Content: req.UserText,
			Model:   &model,
		}
		if err := r.store.InsertMessage(ctx, userMsg); err != nil {
			return nil, fmt.Errorf("failed to save user message: %w", err)
		}
	}

	history, err := r.store.ListMessages(ctx, req.ChatID)
	if err != nil {
		return nil, err
	}

	docTexts, err := r.loadDocumentTexts(ctx, history)
	if err != nil {
		return nil, err
	}

	imageURLs := filterByExt(req.AttachmentURLs, imageExts)

	var turns []ai.Turn
	if len(imageURLs) > 0 {
		turns = buildVisionTurns(history, docTexts, imageURLs)
	} else {
		turns = buildTextTurns(history, docTexts)
	}

	return &Prepared{chatID: req.ChatID, turns: turns, model: model}, nil
}

// loadDocumentTexts collects previously extracted text for the attachments
// of the most recent user message, delimited per file.
func (r *Relay) loadDocumentTexts(ctx context.Context, history []models.Message) ([]string, error) {
	if len(history) == 0 {
		return nil, nil
	}
	last := history[len(history)-1]
	if last.Role != models.RoleUser {
		return nil, nil
	}

	attachments, err := r.store.ListAttachments(ctx, last.ID)
	if err != nil {
		return nil, err
	}

	var texts []string
	for _, att := range attachments {
		if strings.HasPrefix(att.FileType, "image/") {
			continue
		}
		text := extractedText(att)
		if text == "" {
			continue
		}
		texts = append(texts, fmt.Sprintf("--- Content of %s ---\n%s\n--- End of %s ---",
			att.FileName, text, att.FileName))
	}
	return texts, nil
}

func extractedText(att models.Attachment) string {
	if len(att.Metadata) == 0 {
		return ""
	}
	var meta struct {
		ExtractedText string `json:"extracted_text"`
	}
	if err := json.Unmarshal(att.Metadata, &meta); err != nil {
		return ""
	}
	return meta.ExtractedText
}

// buildTextTurns maps history to provider turns, appending document text to
// the final user message.
func buildTextTurns(history []models.Message, docTexts []string) []ai.Turn {
	turns := make([]ai.Turn, 0, len(history))
	for i, msg := range history {
		content := msg.Content
		if i == len(history)-1 && msg.Role == models.RoleUser && len(docTexts) > 0 {
			content = content + "\n\n" + strings.Join(docTexts, "\n\n")
		}
		turns = append(turns, ai.TextTurn(msg.Role, content))
	}
	return turns
}

// buildVisionTurns sends all earlier turns as plain text and the final user
// turn as mixed content: text plus one image part per URL, in attachment
// order.
func buildVisionTurns(history []models.Message, docTexts []string, imageURLs []string) []ai.Turn {
	var turns []ai.Turn
	var lastText string

	if len(history) > 0 {
		for _, msg := range history[:len(history)-1] {
			turns = append(turns, ai.TextTurn(msg.Role, msg.Content))
		}
		lastText = history[len(history)-1].Content
	}
	if len(docTexts) > 0 {
		lastText = lastText + "\n\n" + strings.Join(docTexts, "\n\n")
	}

	parts := []ai.ContentPart{{Type: "text", Text: lastText}}
	for _, url := range imageURLs {
		parts = append(parts, ai.ContentPart{
			Type:     "image_url",
			ImageURL: &ai.ImageURL{URL: url},
		})
	}
	turns = append(turns, ai.Turn{Role: models.RoleUser, Parts: parts})
	return turns
}

// Stream opens the provider stream and forwards fragments to the sink in
// emission order, one chunk frame each, with no buffering or coalescing.
// On a clean finish it persists exactly one assistant message and emits a
// done frame; on any failure it emits a single error frame and persists
// nothing.
func (r *Relay) Stream(ctx context.Context, p *Prepared, sink Sink) error {
	stream, err := r.completer.StreamComplete(ctx, p.turns, p.model, ai.Options{})
	if err != nil {
		return r.fail(sink, err)
	}
	defer stream.Close()

	var full strings.Builder
	finishReason := ""

	for {
		frag, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			return r.fail(sink, err)
		}

		if frag.Content != "" {
			full.WriteString(frag.Content)
			if err := sink(Event{Type: EventChunk, Content: frag.Content}); err != nil {
				return err
			}
		}
		if frag.FinishReason != "" {
			finishReason = frag.FinishReason
			break
		}
	}

	if finishReason == "" {
		// Aborted or truncated stream: nothing is persisted.
		return r.fail(sink, errors.New("provider stream ended without a finish reason"))
	}

	content := full.String()
	tokens := ai.EstimateTokens(content)
	assistantMsg := &models.Message{
		ChatID:     p.chatID,
		Role:       models.RoleAssistant,
		Content:    content,
		TokensUsed: &tokens,
		Model:      &p.model,
	}
	if err := r.store.InsertMessage(ctx, assistantMsg); err != nil {
		return r.fail(sink, fmt.Errorf("failed to save assistant message: %w", err))
	}

	return sink(Event{
		Type:         EventDone,
		TokensUsed:   tokens,
		FinishReason: finishReason,
	})
}

func (r *Relay) fail(sink Sink, err error) error {
	slog.Error("relay stream failed", "error", err)
	if sinkErr := sink(Event{Type: EventError, Message: err.Error()}); sinkErr != nil {
		return sinkErr
	}
	return err
}
