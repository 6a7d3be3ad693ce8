package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonical_SortsKeys(t *testing.T) {
	got, err := MarshalCanonical(map[string]any{
		"b": int64(2),
		"a": "x",
		"c": []any{true, "y"},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"a":"x","b":2,"c":[true,"y"]}`, string(got))
}

func TestMarshalCanonical_UTF16KeyOrder(t *testing.T) {
	// U+E000 sorts before U+1F600 in UTF-16 (surrogate pair 0xD83D)
	// but after it in UTF-8 byte order.
	emoji := string(rune(0x1F600))
	private := string(rune(0xE000))

	got, err := MarshalCanonical(map[string]any{emoji: int64(1), private: int64(2)})
	require.NoError(t, err)
	assert.Equal(t, `{"`+emoji+`":1,"`+private+`":2}`, string(got))
}

func TestMarshalCanonical_NoHTMLEscaping(t *testing.T) {
	got, err := MarshalCanonical("<a & b>")
	require.NoError(t, err)
	assert.Equal(t, `"<a & b>"`, string(got))
}

func TestMarshalCanonical_LineSeparatorsUnescaped(t *testing.T) {
	ls := string(rune(0x2028))
	got, err := MarshalCanonical("a" + ls + "b")
	require.NoError(t, err)
	assert.Equal(t, `"a`+ls+`b"`, string(got))

	// A literal backslash followed by "u2028" must stay escaped.
	got, err = MarshalCanonical(`a\u2028b`)
	require.NoError(t, err)
	assert.Equal(t, `"a\\u2028b"`, string(got))
}

func TestMarshalCanonical_NFC(t *testing.T) {
	decomposed := "e" + string(rune(0x0301))
	composed := string(rune(0x00E9))

	got, err := MarshalCanonical(decomposed)
	require.NoError(t, err)
	assert.Equal(t, `"`+composed+`"`, string(got))
}

func TestMarshalCanonical_RejectsFloatsAndNull(t *testing.T) {
	_, err := MarshalCanonical(1.5)
	assert.ErrorContains(t, err, "floats are forbidden")

	_, err = MarshalCanonical(map[string]any{"x": nil})
	assert.ErrorContains(t, err, "null is forbidden")

	_, err = MarshalCanonical(struct{}{})
	assert.ErrorContains(t, err, "unsupported type")
}

func TestToArgs(t *testing.T) {
	title := "new"
	args, err := ToArgs(PostPatch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"title": "new"}, args)

	args, err = ToArgs(ProfileInput{Birthday: 42, UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, int64(42), args["birthday"])

	_, err = ToArgs([]string{"x"})
	assert.ErrorContains(t, err, "expected object")
}

func TestJournalEntryID_Deterministic(t *testing.T) {
	args := map[string]any{"id": "account-1"}

	id1, err := JournalEntryID("req-1", "account.delete", args, 7)
	require.NoError(t, err)
	id2, err := JournalEntryID("req-1", "account.delete", args, 7)
	require.NoError(t, err)
	assert.Equal(t, id1, id2)
	assert.Len(t, id1, 64)

	id3, err := JournalEntryID("req-1", "account.delete", args, 8)
	require.NoError(t, err)
	assert.NotEqual(t, id1, id3, "seq is part of the identity")

	_, err = JournalEntryID("req-1", "x", nil, 1)
	assert.NoError(t, err)
}
