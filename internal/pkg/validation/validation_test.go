package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidAddress(t *testing.T) {
	assert.True(t, IsValidAddress("acme-corp"))
	assert.True(t, IsValidAddress("verifier.eu_01"))
	assert.False(t, IsValidAddress("ab"))
	assert.False(t, IsValidAddress("-leading-dash"))
	assert.False(t, IsValidAddress("has space"))
	assert.False(t, IsValidAddress(""))
}

func TestIsValidProofKey(t *testing.T) {
	assert.True(t, IsValidProofKey("s3cret-key!"))
	assert.False(t, IsValidProofKey("short1!"))
	assert.False(t, IsValidProofKey("nodigits!"))
	assert.False(t, IsValidProofKey("nospecial1"))
	assert.False(t, IsValidProofKey("12345678!"))
}
