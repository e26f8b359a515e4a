package dataset

import (
	"fmt"
	"io"

	"github.com/sunpath-tracker/backend/internal/models"
	"github.com/vmihailenco/msgpack/v5"
)

// SnapshotPayload is the wire form of a series snapshot.
type SnapshotPayload struct {
	Name    string             `json:"name" msgpack:"name"`
	Version uint64             `json:"version" msgpack:"version"`
	Points  []models.DataPoint `json:"points" msgpack:"points"`
}

// Payload captures the series for transport.
func (s *Series) Payload() SnapshotPayload {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return SnapshotPayload{
		Name:    s.name,
		Version: s.version,
		Points:  s.view(),
	}
}

// Since returns the captured points with index >= n.
func (p SnapshotPayload) Since(n int) []models.DataPoint {
	if n < 0 {
		n = 0
	}
	if n >= len(p.Points) {
		return []models.DataPoint{}
	}
	return p.Points[n:]
}

// Bounds returns the extents of every captured point.
func (p SnapshotPayload) Bounds() Bounds {
	return BoundsOf(p.Points)
}

// EncodeMsgpack writes the current snapshot as MessagePack.
func (s *Series) EncodeMsgpack(w io.Writer) error {
	if err := msgpack.NewEncoder(w).Encode(s.Payload()); err != nil {
		return fmt.Errorf("encoding series %q: %w", s.name, err)
	}
	return nil
}

// DecodeMsgpack reads a snapshot written by EncodeMsgpack.
func DecodeMsgpack(r io.Reader) (*SnapshotPayload, error) {
	var payload SnapshotPayload
	if err := msgpack.NewDecoder(r).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding series snapshot: %w", err)
	}
	return &payload, nil
}
