package idgen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	a, b := New(), New()
	assert.NotEqual(t, a, b)
	assert.True(t, Valid(a))
	assert.Len(t, a, 36)
}

func TestWithPrefix(t *testing.T) {
	id := WithPrefix("imp_")
	assert.True(t, strings.HasPrefix(id, "imp_"))
	assert.Len(t, id, 4+32)
	assert.NotContains(t, id, "-")
}

func TestValid(t *testing.T) {
	assert.False(t, Valid(""))
	assert.False(t, Valid("not-a-uuid"))
	assert.False(t, Valid("{"+New()+"}"))
	assert.True(t, Valid("123e4567-e89b-12d3-a456-426614174000"))
}
