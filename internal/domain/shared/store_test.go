package shared

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJoinKey_ComponentsDoNotCollide(t *testing.T) {
	assert.Equal(t, "u1:first_course", JoinKey("u1", "first_course"))
	assert.NotEqual(t, JoinKey("a", "x:y"), JoinKey("a:x", "y"))
	assert.NotEqual(t, JoinKey("a%3Ax", "y"), JoinKey("a:x", "y"))
	assert.Equal(t, "a%253A:b", JoinKey("a%3A", "b"))
}

func TestKeyPrefix_MatchesOnlyOwner(t *testing.T) {
	prefix := KeyPrefix("a")

	assert.True(t, strings.HasPrefix(JoinKey("a", "x:y"), prefix))
	assert.False(t, strings.HasPrefix(JoinKey("a:b", "z"), prefix))
	assert.False(t, strings.HasPrefix(JoinKey("a:", ""), prefix))
	assert.True(t, strings.HasPrefix(JoinKey("a:b", "z"), KeyPrefix("a:b")))
}
