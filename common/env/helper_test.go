package env

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHelpersFallBackToDefaults(t *testing.T) {
	t.Setenv("ENV_TEST_INT", "not-a-number")
	t.Setenv("ENV_TEST_FLOAT", "")

	require.Equal(t, 42, Int("ENV_TEST_INT", 42))
	require.Equal(t, 0.7, Float64("ENV_TEST_FLOAT", 0.7))
	require.Equal(t, "fallback", String("ENV_TEST_MISSING", "fallback"))
	require.True(t, Bool("ENV_TEST_MISSING", true))
}

func TestHelpersReadValues(t *testing.T) {
	t.Setenv("ENV_TEST_INT", " 8 ")
	t.Setenv("ENV_TEST_FLOAT", "0.25")
	t.Setenv("ENV_TEST_BOOL", "TRUE")
	t.Setenv("ENV_TEST_STRING", "us-west-2")

	require.Equal(t, 8, Int("ENV_TEST_INT", 1))
	require.Equal(t, 0.25, Float64("ENV_TEST_FLOAT", 1))
	require.True(t, Bool("ENV_TEST_BOOL", false))
	require.Equal(t, "us-west-2", String("ENV_TEST_STRING", ""))
}
