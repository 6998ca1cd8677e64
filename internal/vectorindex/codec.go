package vectorindex

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/cloo-solutions/biorag/internal/domain"
)

// Snapshot layout, all integers little-endian:
//
//	magic "BRVX" | version u16 | scope len u16 | scope | dimension u32 | count u32
//	count × ( dimension × f32 | payload len u32 | payload JSON )
const (
	codecMagic   = "BRVX"
	codecVersion = uint16(1)

	maxPayloadBytes = 16 << 20
)

var ErrCorruptSnapshot = errors.New("corrupt index snapshot")

// EncodeSnapshot serializes a snapshot. It validates dimensions first so an
// inconsistent index is never written.
func EncodeSnapshot(snap *domain.IndexSnapshot) ([]byte, error) {
	if err := snap.Validate(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString(codecMagic)
	le := binary.LittleEndian
	buf.Write(le.AppendUint16(nil, codecVersion))
	buf.Write(le.AppendUint16(nil, uint16(len(snap.Scope))))
	buf.WriteString(string(snap.Scope))
	buf.Write(le.AppendUint32(nil, uint32(snap.Dimension)))
	buf.Write(le.AppendUint32(nil, uint32(len(snap.Entries))))

	vec := make([]byte, 4*snap.Dimension)
	for i, e := range snap.Entries {
		for j, f := range e.Vector {
			le.PutUint32(vec[j*4:], math.Float32bits(f))
		}
		buf.Write(vec)

		payload, err := json.Marshal(e.Payload)
		if err != nil {
			return nil, fmt.Errorf("encode payload %d: %w", i, err)
		}
		buf.Write(le.AppendUint32(nil, uint32(len(payload))))
		buf.Write(payload)
	}
	return buf.Bytes(), nil
}

// DecodeSnapshot parses bytes written by EncodeSnapshot.
func DecodeSnapshot(data []byte) (*domain.IndexSnapshot, error) {
	r := bytes.NewReader(data)
	le := binary.LittleEndian

	magic := make([]byte, len(codecMagic))
	if _, err := io.ReadFull(r, magic); err != nil || string(magic) != codecMagic {
		return nil, fmt.Errorf("%w: bad magic", ErrCorruptSnapshot)
	}

	var version, scopeLen uint16
	if err := binary.Read(r, le, &version); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	if version != codecVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorruptSnapshot, version)
	}
	if err := binary.Read(r, le, &scopeLen); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	scope := make([]byte, scopeLen)
	if _, err := io.ReadFull(r, scope); err != nil {
		return nil, fmt.Errorf("%w: scope: %v", ErrCorruptSnapshot, err)
	}

	var dimension, count uint32
	if err := binary.Read(r, le, &dimension); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	if err := binary.Read(r, le, &count); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	// each entry needs at least its vector and a payload length
	if uint64(count)*(uint64(dimension)*4+4) > uint64(r.Len()) {
		return nil, fmt.Errorf("%w: %d entries do not fit in %d bytes", ErrCorruptSnapshot, count, r.Len())
	}

	snap := &domain.IndexSnapshot{
		Scope:     domain.Scope(scope),
		Dimension: int(dimension),
		Entries:   make([]domain.IndexEntry, 0, count),
	}
	raw := make([]byte, 4*dimension)
	for i := uint32(0); i < count; i++ {
		if _, err := io.ReadFull(r, raw); err != nil {
			return nil, fmt.Errorf("%w: entry %d vector: %v", ErrCorruptSnapshot, i, err)
		}
		vec := make([]float32, dimension)
		for j := range vec {
			vec[j] = math.Float32frombits(le.Uint32(raw[j*4:]))
		}

		var n uint32
		if err := binary.Read(r, le, &n); err != nil {
			return nil, fmt.Errorf("%w: entry %d: %v", ErrCorruptSnapshot, i, err)
		}
		if n > maxPayloadBytes || int(n) > r.Len() {
			return nil, fmt.Errorf("%w: entry %d payload length %d", ErrCorruptSnapshot, i, n)
		}
		payload := make([]byte, n)
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, fmt.Errorf("%w: entry %d payload: %v", ErrCorruptSnapshot, i, err)
		}

		entry := domain.IndexEntry{Vector: vec}
		if err := json.Unmarshal(payload, &entry.Payload); err != nil {
			return nil, fmt.Errorf("%w: entry %d payload: %v", ErrCorruptSnapshot, i, err)
		}
		snap.Entries = append(snap.Entries, entry)
	}
	if r.Len() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrCorruptSnapshot, r.Len())
	}
	return snap, nil
}
