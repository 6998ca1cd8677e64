package vectorindex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/biorag/internal/domain"
)

func TestSnapshotCodec_RoundTrip(t *testing.T) {
	snap := &domain.IndexSnapshot{
		Scope:     domain.GlobalScope,
		Dimension: 3,
		Entries: []domain.IndexEntry{
			{Vector: []float32{0.1, -2.5, 3}, Payload: domain.Payload{DocumentID: "7", Title: "Bone loss", ChunkSeq: 1, Year: "2019", Type: domain.ChunkTypePublication, Text: "Mice über alles"}},
			{Vector: []float32{0, 0, 1}, Payload: domain.Payload{DocumentID: "8", ChunkSeq: 2, Text: ""}},
		},
	}

	data, err := EncodeSnapshot(snap)
	require.NoError(t, err)

	got, err := DecodeSnapshot(data)
	require.NoError(t, err)
	assert.Equal(t, snap, got)
}

func TestEncodeSnapshot_RejectsMixedDimensions(t *testing.T) {
	_, err := EncodeSnapshot(&domain.IndexSnapshot{
		Scope:     "p1",
		Dimension: 2,
		Entries:   []domain.IndexEntry{{Vector: []float32{1, 2, 3}}},
	})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestDecodeSnapshot_Corrupt(t *testing.T) {
	data, err := EncodeSnapshot(&domain.IndexSnapshot{
		Scope:     "p1",
		Dimension: 2,
		Entries:   []domain.IndexEntry{{Vector: []float32{1, 2}, Payload: domain.Payload{DocumentID: "p1"}}},
	})
	require.NoError(t, err)

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"bad magic", append([]byte("XXXX"), data[4:]...)},
		{"truncated", data[:len(data)-3]},
		{"trailing bytes", append(append([]byte{}, data...), 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeSnapshot(tt.data)
			assert.ErrorIs(t, err, ErrCorruptSnapshot)
		})
	}
}
