package settings

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestKey_Identifiers pins the schema identifiers and kinds of every key.
func TestKey_Identifiers(t *testing.T) {
	t.Parallel()

	cases := []struct {
		key  Key
		name string
		kind Kind
	}{
		{Delay, "delay", KindInt},
		{ElapsedTime, "elapsed-time", KindInt},
		{Forced, "forced", KindBool},
		{Action, "action", KindInt},
	}

	for _, tc := range cases {
		require.Equal(t, tc.name, tc.key.String())
		require.Equal(t, tc.kind, tc.key.Kind())
		require.True(t, tc.key.Valid())

		parsed, err := ParseKey(tc.name)
		require.NoError(t, err)
		require.Equal(t, tc.key, parsed)
	}

	require.Len(t, Keys(), len(cases))
}

// TestParseKey_Unknown verifies unknown identifiers are rejected as invalid arguments.
func TestParseKey_Unknown(t *testing.T) {
	t.Parallel()

	_, err := ParseKey("volume")
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, err = ParseKey("")
	require.ErrorIs(t, err, ErrInvalidArgument)

	require.False(t, Key(0).Valid())
	require.Equal(t, "Key(9)", Key(9).String())
}
