package hashutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestToolSetHash_OrderInsensitive(t *testing.T) {
	a := ToolSetHash(nil, []string{"b", "a", "a"})
	b := ToolSetHash(nil, []string{"a", "b"})
	require.NotEmpty(t, a)
	require.Equal(t, a, b)
	require.NotEqual(t, a, ToolSetHash(nil, []string{"a"}))
}

func TestPlanKey(t *testing.T) {
	require.Equal(t, "req|abc|7", PlanKey("req", "abc", 7))
}
