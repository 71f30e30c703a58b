package schema

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const testID = "io.github.oshokin.shutdown-timer"

// TestLookup_ShippedSchema loads the schema shipped in the repository.
func TestLookup_ShippedSchema(t *testing.T) {
	t.Parallel()

	sch, err := NewSource(filepath.Join("..", "..", "schemas")).Lookup(testID)
	require.NoError(t, err)
	require.Equal(t, testID, sch.ID)

	delay, ok := sch.Key("delay")
	require.True(t, ok)
	require.Equal(t, TypeInt, delay.Type)
	require.InDelta(t, 60, delay.DefaultValue().GetNumberValue(), 0)

	forced, ok := sch.Key("forced")
	require.True(t, ok)
	require.Equal(t, TypeBool, forced.Type)
	require.False(t, forced.DefaultValue().GetBoolValue())

	_, ok = sch.Key("volume")
	require.False(t, ok)
}

// TestLookup_NotFound verifies a missing schema file maps to ErrNotFound.
func TestLookup_NotFound(t *testing.T) {
	t.Parallel()

	_, err := NewSource(t.TempDir()).Lookup(testID)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = NewSource(t.TempDir()).Lookup("../etc/passwd")
	require.ErrorIs(t, err, ErrInvalid)
}

// TestParse_Invalid covers malformed schema documents.
func TestParse_Invalid(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"wrong id":     "id: other\nkeys:\n  - {name: delay, type: int}\n",
		"no keys":      "id: " + testID + "\n",
		"duplicate":    "id: " + testID + "\nkeys:\n  - {name: a, type: int}\n  - {name: a, type: int}\n",
		"bad type":     "id: " + testID + "\nkeys:\n  - {name: a, type: string}\n",
		"int default":  "id: " + testID + "\nkeys:\n  - {name: a, type: int, default: yes}\n",
		"bool default": "id: " + testID + "\nkeys:\n  - {name: a, type: bool, default: 3}\n",
		"unnamed key":  "id: " + testID + "\nkeys:\n  - {type: int}\n",
		"not yaml":     "id: [",
	}

	for name, contents := range cases {
		_, err := Parse(testID, []byte(contents))
		require.ErrorIs(t, err, ErrInvalid, name)
	}
}

// TestLookup_CustomDirectory reads a schema written into a temporary directory.
func TestLookup_CustomDirectory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	contents := "id: " + testID + "\nkeys:\n  - {name: delay, type: int, default: 5, locked: true}\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, testID+FileSuffix), []byte(contents), 0o600))

	sch, err := NewSource(dir).Lookup(testID)
	require.NoError(t, err)

	delay, ok := sch.Key("delay")
	require.True(t, ok)
	require.True(t, delay.Locked)
	require.InDelta(t, 5, delay.DefaultValue().GetNumberValue(), 0)
}
