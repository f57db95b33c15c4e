package relay

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/oguzkara/chatforge/internal/ai"
	"github.com/oguzkara/chatforge/internal/models"
)

// memStore keeps messages in insertion order, enough for driving the relay.
type memStore struct {
	messages    []models.Message
	attachments map[uuid.UUID][]models.Attachment
	insertErr   error
	inserted    []models.Message
}

func newMemStore() *memStore {
	return &memStore{attachments: map[uuid.UUID][]models.Attachment{}}
}

func (s *memStore) ListMessages(_ context.Context, chatID uuid.UUID) ([]models.Message, error) {
	var out []models.Message
	for _, m := range s.messages {
		if m.ChatID == chatID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *memStore) InsertMessage(_ context.Context, msg *models.Message) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	s.messages = append(s.messages, *msg)
	s.inserted = append(s.inserted, *msg)
	return nil
}

func (s *memStore) ListAttachments(_ context.Context, messageID uuid.UUID) ([]models.Attachment, error) {
	return s.attachments[messageID], nil
}

// scriptedStream replays fragments and then EOF, or fails mid-stream.
type scriptedStream struct {
	fragments []ai.Fragment
	err       error
	closed    bool
}

func (s *scriptedStream) Recv() (ai.Fragment, error) {
	if len(s.fragments) == 0 {
		if s.err != nil {
			return ai.Fragment{}, s.err
		}
		return ai.Fragment{}, io.EOF
	}
	frag := s.fragments[0]
	s.fragments = s.fragments[1:]
	return frag, nil
}

func (s *scriptedStream) Close() error {
	s.closed = true
	return nil
}

type scriptedCompleter struct {
	stream  *scriptedStream
	openErr error
	turns   []ai.Turn
	model   string
}

func (c *scriptedCompleter) StreamComplete(_ context.Context, turns []ai.Turn, model string, _ ai.Options) (FragmentStream, error) {
	c.turns = turns
	c.model = model
	if c.openErr != nil {
		return nil, c.openErr
	}
	return c.stream, nil
}

func collectSink(events *[]Event) Sink {
	return func(e Event) error {
		*events = append(*events, e)
		return nil
	}
}

func TestRelayStreamHappyPath(t *testing.T) {
	store := newMemStore()
	completer := &scriptedCompleter{stream: &scriptedStream{
		fragments: []ai.Fragment{
			{Content: "Hel"},
			{Content: "lo"},
			{FinishReason: "stop"},
		},
	}}
	r := New(store, completer)
	chatID := uuid.New()

	prepared, err := r.Prepare(context.Background(), SendRequest{
		ChatID:   chatID,
		UserText: "Say hello",
	})
	require.NoError(t, err)
	require.Equal(t, ai.ModelGPT4o, prepared.Model())

	var events []Event
	require.NoError(t, r.Stream(context.Background(), prepared, collectSink(&events)))

	require.Len(t, events, 3)
	require.Equal(t, Event{Type: EventChunk, Content: "Hel"}, events[0])
	require.Equal(t, Event{Type: EventChunk, Content: "lo"}, events[1])
	require.Equal(t, EventDone, events[2].Type)
	require.Equal(t, "stop", events[2].FinishReason)

	// One user message persisted by Prepare, one assistant by Stream.
	require.Len(t, store.inserted, 2)
	require.Equal(t, models.RoleUser, store.inserted[0].Role)
	require.Equal(t, "Say hello", store.inserted[0].Content)
	assistant := store.inserted[1]
	require.Equal(t, models.RoleAssistant, assistant.Role)
	require.Equal(t, "Hello", assistant.Content)
	require.NotNil(t, assistant.TokensUsed)
	require.Equal(t, ai.EstimateTokens("Hello"), *assistant.TokensUsed)
	require.True(t, completer.stream.closed)
}

func TestRelayPrepareRejectsEmptyTurn(t *testing.T) {
	r := New(newMemStore(), &scriptedCompleter{})

	_, err := r.Prepare(context.Background(), SendRequest{ChatID: uuid.New(), UserText: "   "})
	require.ErrorIs(t, err, ErrEmptyTurn)

	// Attachments alone are a valid turn.
	_, err = r.Prepare(context.Background(), SendRequest{
		ChatID:         uuid.New(),
		AttachmentURLs: []string{"http://localhost/uploads/a.pdf"},
	})
	require.NoError(t, err)
}

func TestRelayStreamErrorPersistsNothing(t *testing.T) {
	store := newMemStore()
	completer := &scriptedCompleter{stream: &scriptedStream{
		fragments: []ai.Fragment{{Content: "partial"}},
		err:       errors.New("connection reset"),
	}}
	r := New(store, completer)
	chatID := uuid.New()

	prepared, err := r.Prepare(context.Background(), SendRequest{ChatID: chatID, UserText: "hi"})
	require.NoError(t, err)

	var events []Event
	err = r.Stream(context.Background(), prepared, collectSink(&events))
	require.Error(t, err)

	last := events[len(events)-1]
	require.Equal(t, EventError, last.Type)
	require.Contains(t, last.Message, "connection reset")

	// Only the user message from Prepare; no assistant message on failure.
	require.Len(t, store.inserted, 1)
	require.Equal(t, models.RoleUser, store.inserted[0].Role)
}

func TestRelayStreamWithoutFinishReasonPersistsNothing(t *testing.T) {
	store := newMemStore()
	completer := &scriptedCompleter{stream: &scriptedStream{
		fragments: []ai.Fragment{{Content: "trunc"}},
	}}
	r := New(store, completer)

	prepared, err := r.Prepare(context.Background(), SendRequest{ChatID: uuid.New(), UserText: "hi"})
	require.NoError(t, err)

	var events []Event
	err = r.Stream(context.Background(), prepared, collectSink(&events))
	require.Error(t, err)
	require.Equal(t, EventError, events[len(events)-1].Type)
	require.Len(t, store.inserted, 1)
}

func TestRelayOpenFailureEmitsErrorFrame(t *testing.T) {
	store := newMemStore()
	completer := &scriptedCompleter{openErr: errors.New("dial tcp: refused")}
	r := New(store, completer)

	prepared, err := r.Prepare(context.Background(), SendRequest{ChatID: uuid.New(), UserText: "hi"})
	require.NoError(t, err)

	var events []Event
	err = r.Stream(context.Background(), prepared, collectSink(&events))
	require.Error(t, err)
	require.Len(t, events, 1)
	require.Equal(t, EventError, events[0].Type)
}

func TestRelaySkipUserPersist(t *testing.T) {
	store := newMemStore()
	chatID := uuid.New()
	store.messages = append(store.messages, models.Message{
		ID: uuid.New(), ChatID: chatID, Role: models.RoleUser, Content: "uploaded",
	})

	r := New(store, &scriptedCompleter{stream: &scriptedStream{
		fragments: []ai.Fragment{{Content: "ok"}, {FinishReason: "stop"}},
	}})

	prepared, err := r.Prepare(context.Background(), SendRequest{
		ChatID:          chatID,
		UserText:        "uploaded",
		SkipUserPersist: true,
	})
	require.NoError(t, err)

	var events []Event
	require.NoError(t, r.Stream(context.Background(), prepared, collectSink(&events)))

	// Only the assistant message was inserted.
	require.Len(t, store.inserted, 1)
	require.Equal(t, models.RoleAssistant, store.inserted[0].Role)
}

func TestRelayInjectsDocumentText(t *testing.T) {
	store := newMemStore()
	completer := &scriptedCompleter{stream: &scriptedStream{
		fragments: []ai.Fragment{{FinishReason: "stop"}},
	}}
	r := New(store, completer)
	chatID := uuid.New()

	prepared, err := r.Prepare(context.Background(), SendRequest{
		ChatID:         chatID,
		UserText:       "Summarize this",
		AttachmentURLs: []string{"http://localhost/uploads/report.pdf"},
	})
	require.NoError(t, err)

	// The user message was just inserted; attach extracted text to it and
	// prepare again to pick it up.
	userMsg := store.inserted[0]
	store.attachments[userMsg.ID] = []models.Attachment{{
		ID:        uuid.New(),
		MessageID: userMsg.ID,
		FileName:  "report.pdf",
		FileType:  "application/pdf",
		Metadata:  []byte(`{"extracted_text":"Q3 revenue grew 12%."}`),
	}}

	prepared, err = r.Prepare(context.Background(), SendRequest{
		ChatID:          chatID,
		UserText:        "Summarize this",
		AttachmentURLs:  []string{"http://localhost/uploads/report.pdf"},
		SkipUserPersist: true,
	})
	require.NoError(t, err)

	var events []Event
	require.NoError(t, r.Stream(context.Background(), prepared, collectSink(&events)))

	last := completer.turns[len(completer.turns)-1]
	require.Contains(t, last.Content, "Summarize this")
	require.Contains(t, last.Content, "--- Content of report.pdf ---")
	require.Contains(t, last.Content, "Q3 revenue grew 12%.")
}

func TestRelayBuildsVisionTurns(t *testing.T) {
	store := newMemStore()
	completer := &scriptedCompleter{stream: &scriptedStream{
		fragments: []ai.Fragment{{FinishReason: "stop"}},
	}}
	r := New(store, completer)

	prepared, err := r.Prepare(context.Background(), SendRequest{
		ChatID:         uuid.New(),
		UserText:       "What is in this picture?",
		AttachmentURLs: []string{"http://localhost/uploads/cat.png?v=2"},
	})
	require.NoError(t, err)
	require.Equal(t, ai.ModelGPT4o, prepared.Model())

	var events []Event
	require.NoError(t, r.Stream(context.Background(), prepared, collectSink(&events)))

	last := completer.turns[len(completer.turns)-1]
	require.Len(t, last.Parts, 2)
	require.Equal(t, "text", last.Parts[0].Type)
	require.Equal(t, "What is in this picture?", last.Parts[0].Text)
	require.Equal(t, "image_url", last.Parts[1].Type)
	require.Equal(t, "http://localhost/uploads/cat.png?v=2", last.Parts[1].ImageURL.URL)
}
