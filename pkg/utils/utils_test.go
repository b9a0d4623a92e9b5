package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSHA256Hash(t *testing.T) {
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", SHA256Hash(""))
	assert.Len(t, SHA256Hash("PUT|36|40"), 64)
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, 20, ClampLimit(0, 20, 100))
	assert.Equal(t, 100, ClampLimit(500, 20, 100))
	assert.Equal(t, 7, ClampLimit(7, 20, 100))
}
