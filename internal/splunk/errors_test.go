package splunk

import (
	"bytes"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestPreview(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "(empty)", Preview(nil))
	assert.Equal(t, "(empty)", Preview([]byte{}))
	assert.Equal(t, "short body", Preview([]byte("short body")))

	exact := bytes.Repeat([]byte("x"), previewLimit)
	assert.Equal(t, string(exact), Preview(exact))

	long := bytes.Repeat([]byte("x"), previewLimit+50)
	assert.Equal(t, strings.Repeat("x", previewLimit)+"...", Preview(long))
}

func TestPreviewNeverSplitsRunes(t *testing.T) {
	t.Parallel()

	// "é" is two bytes; placing it across the cut point must drop the whole
	// rune, not emit its first byte.
	body := append(bytes.Repeat([]byte("a"), previewLimit-1), []byte("é…")...)
	got := Preview(body)

	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("a", previewLimit-1)+"...", got)
}
