package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/docuchat/internal/domain"
)

var (
	anyContext = mock.MatchedBy(func(context.Context) bool { return true })
	anyMessage = mock.AnythingOfType("*domain.Message")
)

type mockMessageRepository struct {
	mock.Mock
}

func (m *mockMessageRepository) Create(ctx context.Context, message *domain.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func (m *mockMessageRepository) ListBySession(ctx context.Context, sessionID string) ([]*domain.Message, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Message), args.Error(1)
}

func (m *mockMessageRepository) ListAll(ctx context.Context) ([]*domain.Message, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Message), args.Error(1)
}

type mockSessionLister struct {
	mock.Mock
}

func (m *mockSessionLister) ListIDs(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func sampleTurn() domain.Turn {
	return domain.Turn{
		Question: "what is the total",
		Answer:   "Total: 5 units",
		Citations: []domain.Citation{
			{Source: "report.pdf", Page: 1, Preview: "Total: 5 units", FullText: "Total: 5 units"},
		},
		CreatedAt: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestHistoryAppend_PersistsQuestionThenAnswer(t *testing.T) {
	registry := NewSessionRegistry()
	messages := new(mockMessageRepository)

	var created []*domain.Message
	messages.On("Create", anyContext, anyMessage).Run(func(args mock.Arguments) {
		created = append(created, args.Get(1).(*domain.Message))
	}).Return(nil)

	history := NewHistoryService(registry, new(mockSessionLister), messages)
	require.NoError(t, history.Append(context.Background(), "s1", sampleTurn()))

	require.Len(t, created, 2)
	assert.Equal(t, domain.SenderUser, created[0].Sender)
	assert.Equal(t, "what is the total", created[0].Text)
	assert.Empty(t, created[0].Citations)
	assert.Equal(t, domain.SenderAI, created[1].Sender)
	assert.Equal(t, "Total: 5 units", created[1].Text)
	require.Len(t, created[1].Citations, 1)
	assert.Equal(t, 1, created[1].Citations[0].Page)

	turns, err := registry.Turns("s1")
	require.NoError(t, err)
	assert.Len(t, turns, 1)
}

func TestHistoryAppend_NeverFailsSilently(t *testing.T) {
	registry := NewSessionRegistry()
	messages := new(mockMessageRepository)
	messages.On("Create", anyContext, anyMessage).Return(errors.New("connection refused"))

	history := NewHistoryService(registry, new(mockSessionLister), messages)
	err := history.Append(context.Background(), "s1", sampleTurn())

	assert.ErrorContains(t, err, "connection refused")
	turns, turnsErr := registry.Turns("s1")
	require.NoError(t, turnsErr)
	assert.Empty(t, turns)
}

func TestHistoryLoadAll_RestoresTurnsPerSession(t *testing.T) {
	registry := NewSessionRegistry()
	messages := new(mockMessageRepository)

	log := []*domain.Message{
		{ID: "m1", SessionID: "s1", Sender: domain.SenderUser, Text: "q1"},
		{ID: "m2", SessionID: "s1", Sender: domain.SenderAI, Text: "a1"},
		{ID: "m3", SessionID: "s2", Sender: domain.SenderUser, Text: "q2"},
		{ID: "m4", SessionID: "s2", Sender: domain.SenderAI, Text: "a2", Citations: []domain.Citation{{Source: "x.pdf", Page: 3}}},
	}
	messages.On("ListAll", anyContext).Return(log, nil)
	lister := new(mockSessionLister)
	lister.On("ListIDs", anyContext).Return([]string{"s1", "s2"}, nil)

	history := NewHistoryService(registry, lister, messages)
	count, err := history.LoadAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	turns, err := registry.Turns("s2")
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "q2", turns[0].Question)
	assert.Equal(t, "a2", turns[0].Answer)
	require.Len(t, turns[0].Citations, 1)
	assert.Equal(t, 3, turns[0].Citations[0].Page)

	// Restored sessions have history but no live index.
	_, err = registry.Index("s1")
	assert.ErrorIs(t, err, domain.ErrUnknownSession)
}

func TestHistoryLoadAll_RestoresSessionsWithoutTurns(t *testing.T) {
	registry := NewSessionRegistry()
	messages := new(mockMessageRepository)

	// s2 was ingested but nothing was ever asked, so it has a session
	// row and no messages. It must still restore: browsable, exportable
	// as an empty list, but not queryable.
	messages.On("ListAll", anyContext).Return([]*domain.Message{
		{ID: "m1", SessionID: "s1", Sender: domain.SenderUser, Text: "q1"},
		{ID: "m2", SessionID: "s1", Sender: domain.SenderAI, Text: "a1"},
	}, nil)
	lister := new(mockSessionLister)
	lister.On("ListIDs", anyContext).Return([]string{"s1", "s2"}, nil)

	history := NewHistoryService(registry, lister, messages)
	count, err := history.LoadAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	turns, err := registry.Turns("s2")
	require.NoError(t, err)
	assert.Empty(t, turns)

	data, err := history.Export(context.Background(), "s2", ExportFormatJSON)
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(data))

	_, err = registry.Index("s2")
	assert.ErrorIs(t, err, domain.ErrUnknownSession)
}

func TestHistoryLoadAll_SessionListError(t *testing.T) {
	registry := NewSessionRegistry()
	lister := new(mockSessionLister)
	lister.On("ListIDs", anyContext).Return(nil, errors.New("db down"))

	history := NewHistoryService(registry, lister, new(mockMessageRepository))
	_, err := history.LoadAll(context.Background())
	assert.ErrorContains(t, err, "failed to load sessions")
}

func TestHistoryLoadAll_RepositoryError(t *testing.T) {
	registry := NewSessionRegistry()
	messages := new(mockMessageRepository)
	messages.On("ListAll", anyContext).Return(nil, errors.New("db down"))
	lister := new(mockSessionLister)
	lister.On("ListIDs", anyContext).Return([]string{}, nil)

	history := NewHistoryService(registry, lister, messages)
	_, err := history.LoadAll(context.Background())
	assert.ErrorContains(t, err, "failed to load message history")
}

func TestHistoryExport_JSONRoundTrip(t *testing.T) {
	registry := NewSessionRegistry()
	history := NewHistoryService(registry, new(mockSessionLister), new(mockMessageRepository))

	turn := sampleTurn()
	registry.Restore("s1", []domain.Turn{turn})

	data, err := history.Export(context.Background(), "s1", ExportFormatJSON)
	require.NoError(t, err)

	var decoded []domain.Turn
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, turn.Question, decoded[0].Question)
	assert.Equal(t, turn.Answer, decoded[0].Answer)
	assert.Equal(t, turn.Citations, decoded[0].Citations)
}

func TestHistoryExport_TextTranscript(t *testing.T) {
	registry := NewSessionRegistry()
	history := NewHistoryService(registry, new(mockSessionLister), new(mockMessageRepository))
	registry.Restore("s1", []domain.Turn{sampleTurn()})

	data, err := history.Export(context.Background(), "s1", ExportFormatText)
	require.NoError(t, err)

	transcript := string(data)
	assert.Contains(t, transcript, "Chat Export\n===========")
	assert.Contains(t, transcript, "Q1: what is the total")
	assert.Contains(t, transcript, "A1: Total: 5 units")
	assert.Contains(t, transcript, "  - report.pdf (p.1): Total: 5 units")
}

func TestHistoryExport_UnknownSession(t *testing.T) {
	history := NewHistoryService(NewSessionRegistry(), new(mockSessionLister), new(mockMessageRepository))

	_, err := history.Export(context.Background(), "missing", ExportFormatJSON)
	assert.ErrorIs(t, err, domain.ErrUnknownSession)
}

func TestHistoryExport_UnsupportedFormat(t *testing.T) {
	registry := NewSessionRegistry()
	history := NewHistoryService(registry, new(mockSessionLister), new(mockMessageRepository))
	registry.Restore("s1", []domain.Turn{sampleTurn()})

	_, err := history.Export(context.Background(), "s1", "pdf")
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
}
