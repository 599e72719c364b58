package provider

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/matchaops/cafeleads/internal/leads"
)

func TestValidateQuery(t *testing.T) {
	t.Parallel()

	require.NoError(t, ValidateQuery("matcha café Tokyo", 255))
	require.NoError(t, ValidateQuery("ok", 0)) // zero max length means unbounded

	err := ValidateQuery("", 255)
	require.True(t, errors.Is(err, leads.ErrInvalidQuery))

	err = ValidateQuery("   ", 255)
	require.True(t, errors.Is(err, leads.ErrInvalidQuery))

	err = ValidateQuery(strings.Repeat("a", 256), 255)
	require.True(t, errors.Is(err, leads.ErrInvalidQuery))
}
