package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLabel(t *testing.T) {
	chromeMac := "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	assert.Contains(t, Label(chromeMac), "Chrome on ")
	assert.Equal(t, "Unknown device", Label(""))
	assert.False(t, Mobile(chromeMac))
}
