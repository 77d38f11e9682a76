package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	hash, err := h.Hash("citizen123")
	require.NoError(t, err)
	assert.NotEqual(t, "citizen123", hash)
	assert.True(t, h.Compare(hash, "citizen123"))
	assert.False(t, h.Compare(hash, "citizen124"))
	assert.False(t, h.Compare("not-a-hash", "citizen123"))
}

func TestBcryptHasherDefaultCost(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, NewBcryptHasher(0).cost)
}
