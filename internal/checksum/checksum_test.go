package checksum

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSum(t *testing.T) {
	// sha256("")
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", Sum(nil))
	assert.NotEqual(t, Sum([]byte("a")), Sum([]byte("b")))
}

func TestETag(t *testing.T) {
	tag := ETag([]byte("{}"))
	assert.Equal(t, `"`+Sum([]byte("{}"))+`"`, tag)
}

func TestMatchETag(t *testing.T) {
	tag := ETag([]byte("chart"))
	other := ETag([]byte("other"))

	assert.True(t, MatchETag(tag, tag))
	assert.True(t, MatchETag("W/"+tag, tag))
	assert.True(t, MatchETag(other+", "+tag, tag))
	assert.True(t, MatchETag("*", tag))
	assert.False(t, MatchETag(other, tag))
	assert.False(t, MatchETag("", tag))
}
