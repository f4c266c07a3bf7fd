package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "acme corp", Normalize("Acme Corp"))
	assert.Equal(t, "acme corp", Normalize("  acme corp "))
	assert.Equal(t, "acme corp", Normalize("ACME   CORP"))
	assert.Equal(t, "machine learning", Normalize("Machine\tLearning"))
	assert.Equal(t, "", Normalize("   "))
}
