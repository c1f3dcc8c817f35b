package pagination

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursor_Roundtrip(t *testing.T) {
	ts := time.Date(2026, 4, 2, 9, 30, 0, 123456000, time.UTC)

	token := EncodeCursor("session-42", ts)
	require.NotEmpty(t, token)

	decoded, err := DecodeCursor(token)
	require.NoError(t, err)
	assert.Equal(t, "session-42", decoded.LastID)
	assert.True(t, decoded.Timestamp.Equal(ts))
}

func TestDecodeCursor_EmptyMeansFirstPage(t *testing.T) {
	decoded, err := DecodeCursor("")
	require.NoError(t, err)
	assert.Nil(t, decoded)
}

func TestDecodeCursor_Invalid(t *testing.T) {
	for _, token := range []string{"not base64 ???", "bm9zZXBhcmF0b3I", EncodeCursor("id", time.Now())[:4]} {
		_, err := DecodeCursor(token)
		assert.ErrorIs(t, err, ErrInvalidCursor, "token %q", token)
	}
}

func TestCreateNextCursor_ShortPageEndsListing(t *testing.T) {
	type row struct {
		id string
		at time.Time
	}
	rows := []row{{"a", time.Now()}, {"b", time.Now()}}

	getID := func(r row) string { return r.id }
	getAt := func(r row) time.Time { return r.at }

	assert.Empty(t, CreateNextCursor(rows, 3, getID, getAt))
	assert.NotEmpty(t, CreateNextCursor(rows, 2, getID, getAt))
	assert.Empty(t, CreateNextCursor([]row{}, 2, getID, getAt))
}
