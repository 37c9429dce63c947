package pagination

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	ts := time.Date(2026, 2, 15, 10, 30, 0, 123, time.UTC)
	id := "0b5f1f0e-8b7c-4d7e-9a55-0f4f5f9d2c11"

	encoded := Encode(ts, id)
	assert.NotEmpty(t, encoded)
	assert.NotContains(t, encoded, "=")

	cursor, err := Decode(encoded)
	require.NoError(t, err)
	require.NotNil(t, cursor)
	assert.Equal(t, ts, cursor.CreatedAt)
	assert.Equal(t, id, cursor.ID)
}

func TestDecode_Empty(t *testing.T) {
	cursor, err := Decode("")
	assert.NoError(t, err)
	assert.Nil(t, cursor)
}

func TestDecode_Invalid(t *testing.T) {
	for _, s := range []string{
		"not-base64!!!",
		"bm9waXBl",   // "nopipe"
		"YWJjfHh5eg", // "abc|xyz"
		"MTIzfA",     // "123|"
	} {
		_, err := Decode(s)
		assert.ErrorIs(t, err, ErrInvalidCursor, s)
	}
}

func TestCursor_Admits(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c := &Cursor{CreatedAt: base, ID: "m"}

	assert.True(t, c.Admits(base.Add(-time.Second), "z"))
	assert.False(t, c.Admits(base.Add(time.Second), "a"))
	assert.True(t, c.Admits(base, "a"))
	assert.False(t, c.Admits(base, "m"))
	assert.False(t, c.Admits(base, "z"))

	var none *Cursor
	assert.True(t, none.Admits(base, "anything"))
}

func TestNewer(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	assert.True(t, Newer(base.Add(time.Second), "a", base, "z"))
	assert.True(t, Newer(base, "b", base, "a"))
	assert.False(t, Newer(base, "a", base, "b"))
}

func TestParseLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, ParseLimit(""))
	assert.Equal(t, DefaultLimit, ParseLimit("-3"))
	assert.Equal(t, DefaultLimit, ParseLimit("ten"))
	assert.Equal(t, 7, ParseLimit("7"))
	assert.Equal(t, MaxLimit, ParseLimit("5000"))
}

func TestComputePage(t *testing.T) {
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	type item struct {
		at time.Time
		id string
	}
	items := []item{{base.Add(3), "c"}, {base.Add(2), "b"}, {base.Add(1), "a"}}
	key := func(i item) (time.Time, string) { return i.at, i.id }

	page, next, more := ComputePage(items, 2, key)
	assert.Len(t, page, 2)
	assert.True(t, more)
	cur, err := Decode(next)
	require.NoError(t, err)
	assert.Equal(t, "b", cur.ID)

	page, next, more = ComputePage(items, 5, key)
	assert.Len(t, page, 3)
	assert.Empty(t, next)
	assert.False(t, more)
}
