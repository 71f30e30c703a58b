package settings

import (
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"

	domain "github.com/oshokin/shutdown-timer/internal/domain/settings"
)

// TestSnapshotFromProto_Missing rejects structs lacking a key.
func TestSnapshotFromProto_Missing(t *testing.T) {
	t.Parallel()

	msg := SnapshotToProto(domain.Snapshot{Delay: 5})
	delete(msg.Fields, "forced")

	_, err := SnapshotFromProto(msg)
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
}

// TestChangeFromProto_Null marks null values as resets.
func TestChangeFromProto_Null(t *testing.T) {
	t.Parallel()

	_, err := ChangeFromProto(ResetToProto(domain.Action))
	require.ErrorIs(t, err, errNullValue)
	require.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = ChangeFromProto(&structpb.Struct{Fields: map[string]*structpb.Value{
		KeyField:   structpb.NewStringValue("delay"),
		ValueField: structpb.NewNumberValue(1 << 40),
	}})
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
	require.NotErrorIs(t, err, errNullValue)
}
