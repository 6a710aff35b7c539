package store_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shuaib-ai/shuaib/internal/kv"
	"github.com/shuaib-ai/shuaib/internal/models"
	"github.com/shuaib-ai/shuaib/internal/store"
)

type memSlot struct {
	data map[string][]byte
}

func newMemSlot() *memSlot {
	return &memSlot{data: make(map[string][]byte)}
}

func (m *memSlot) Put(key string, value []byte) error {
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *memSlot) Get(key string) ([]byte, error) {
	value, ok := m.data[key]
	if !ok {
		return nil, kv.ErrNotFound
	}
	return value, nil
}

func (m *memSlot) Delete(key string) error {
	delete(m.data, key)
	return nil
}

func userMessage(content string) models.Message {
	return models.Message{
		ID:        models.NewMessageID(),
		Role:      models.RoleUser,
		Content:   content,
		Timestamp: time.Now(),
	}
}

func TestCreateSessionFrontInsertAndCurrent(t *testing.T) {
	st := store.New(newMemSlot(), zap.NewNop())

	first := st.CreateSession(userMessage("first question"))
	second := st.CreateSession(userMessage("second question"))

	sessions := st.Sessions()
	require.Len(t, sessions, 2)
	assert.Equal(t, second, sessions[0].ID)
	assert.Equal(t, first, sessions[1].ID)
	assert.Equal(t, second, st.CurrentID())
	assert.Equal(t, models.SubjectGeneral, sessions[0].Subject)
}

func TestCreateSessionTitle(t *testing.T) {
	st := store.New(newMemSlot(), zap.NewNop())

	long := strings.Repeat("ক", 50)
	id := st.CreateSession(userMessage(long))
	session, err := st.Get(id)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("ক", 35), session.Title)

	id = st.CreateSession(userMessage(""))
	session, err = st.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "নতুন চ্যাট", session.Title)
}

func TestAppendMessage(t *testing.T) {
	st := store.New(newMemSlot(), zap.NewNop())
	id := st.CreateSession(userMessage("hello"))

	before, err := st.Get(id)
	require.NoError(t, err)

	require.NoError(t, st.AppendMessage(id, models.Message{
		ID:        models.NewMessageID(),
		Role:      models.RoleModel,
		Timestamp: time.Now(),
	}))

	after, err := st.Get(id)
	require.NoError(t, err)
	assert.Len(t, after.Messages, 2)
	assert.False(t, after.LastModified.Before(before.LastModified))

	assert.ErrorIs(t, st.AppendMessage("missing", userMessage("x")), store.ErrSessionNotFound)
}

func TestUpdateMessageContentRepeatedly(t *testing.T) {
	st := store.New(newMemSlot(), zap.NewNop())
	id := st.CreateSession(userMessage("hello"))

	placeholder := models.Message{ID: models.NewMessageID(), Role: models.RoleModel}
	require.NoError(t, st.AppendMessage(id, placeholder))

	acc := ""
	for _, fragment := range []string{"H", "i", " ", "t", "h", "e", "r", "e"} {
		acc += fragment
		require.NoError(t, st.UpdateMessageContent(id, placeholder.ID, acc))
	}

	session, err := st.Get(id)
	require.NoError(t, err)
	require.Len(t, session.Messages, 2)
	assert.Equal(t, models.RoleUser, session.Messages[0].Role)
	assert.Equal(t, "Hi there", session.Messages[1].Content)

	assert.ErrorIs(t, st.UpdateMessageContent(id, "missing", "x"), store.ErrMessageNotFound)
	assert.ErrorIs(t, st.UpdateMessageContent("missing", placeholder.ID, "x"), store.ErrSessionNotFound)
}

func TestDeleteSession(t *testing.T) {
	st := store.New(newMemSlot(), zap.NewNop())
	a := st.CreateSession(userMessage("a"))
	b := st.CreateSession(userMessage("b"))

	// b is current; deleting a must not change current.
	require.NoError(t, st.DeleteSession(a))
	assert.Equal(t, b, st.CurrentID())
	assert.Len(t, st.Sessions(), 1)

	// Deleting the current session clears the pointer.
	require.NoError(t, st.DeleteSession(b))
	assert.Equal(t, "", st.CurrentID())
	assert.Empty(t, st.Sessions())

	assert.ErrorIs(t, st.DeleteSession(b), store.ErrSessionNotFound)
}

func TestSelectAndClearCurrent(t *testing.T) {
	st := store.New(newMemSlot(), zap.NewNop())
	a := st.CreateSession(userMessage("a"))
	st.CreateSession(userMessage("b"))

	session, err := st.Select(a)
	require.NoError(t, err)
	assert.Equal(t, a, session.ID)
	assert.Equal(t, a, st.CurrentID())

	_, err = st.Select("missing")
	assert.ErrorIs(t, err, store.ErrSessionNotFound)
	assert.Equal(t, a, st.CurrentID())

	st.ClearCurrent()
	assert.Equal(t, "", st.CurrentID())
}

func TestPersistenceRoundTrip(t *testing.T) {
	slot := newMemSlot()
	st := store.New(slot, zap.NewNop())

	msg := userMessage("প্রশ্ন")
	msg.Attachment = &models.Attachment{
		Kind:       models.KindImage,
		Data:       "aGVsbG8=",
		MimeType:   "image/jpeg",
		DisplayRef: "data:image/jpeg;base64,aGVsbG8=",
	}
	id := st.CreateSession(msg)
	require.NoError(t, st.AppendMessage(id, models.Message{
		ID:        models.NewMessageID(),
		Role:      models.RoleModel,
		Content:   "উত্তর",
		Timestamp: time.Now(),
	}))

	reloaded := store.New(slot, zap.NewNop())
	reloaded.Load()

	want := st.Sessions()
	got := reloaded.Sessions()
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].ID, got[i].ID)
		assert.Equal(t, want[i].Title, got[i].Title)
		assert.True(t, want[i].LastModified.Equal(got[i].LastModified))
		require.Len(t, got[i].Messages, len(want[i].Messages))
		for j := range want[i].Messages {
			assert.Equal(t, want[i].Messages[j].Role, got[i].Messages[j].Role)
			assert.Equal(t, want[i].Messages[j].Content, got[i].Messages[j].Content)
			assert.Equal(t, want[i].Messages[j].Attachment, got[i].Messages[j].Attachment)
			assert.True(t, want[i].Messages[j].Timestamp.Equal(got[i].Messages[j].Timestamp))
		}
	}

	// The current pointer is process state, not persisted.
	assert.Equal(t, "", reloaded.CurrentID())
}

func TestEmptyCollectionRemovesSlot(t *testing.T) {
	slot := newMemSlot()
	st := store.New(slot, zap.NewNop())

	id := st.CreateSession(userMessage("hello"))
	require.NotEmpty(t, slot.data)

	require.NoError(t, st.DeleteSession(id))
	assert.Empty(t, slot.data)
}

func TestMalformedStoredDataDiscarded(t *testing.T) {
	slot := newMemSlot()
	require.NoError(t, slot.Put("shuaib_v2_sessions", []byte("{not json")))

	st := store.New(slot, zap.NewNop())
	st.Load()
	assert.Empty(t, st.Sessions())
}
