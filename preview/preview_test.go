package preview

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateURLLength(t *testing.T) {
	base := "https://example.com/"
	longest := base + strings.Repeat("a", MaxURLLength-len(base))

	u, err := ValidateURL(longest)
	require.NoError(t, err)
	assert.Equal(t, "example.com", u.Host)

	_, err = ValidateURL(longest + "a")
	assert.ErrorIs(t, err, ErrInvalidURL)
}
