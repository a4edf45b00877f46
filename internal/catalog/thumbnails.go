package catalog

import (
	"encoding/json"
	"os"
)

// ThumbnailIndex is the set of camera ids with a pre-rendered still image.
type ThumbnailIndex struct {
	ids   map[CameraID]struct{}
	order []CameraID
}

// NewThumbnailIndex builds an index from ids, keeping their order.
func NewThumbnailIndex(ids []CameraID) *ThumbnailIndex {
	idx := &ThumbnailIndex{ids: make(map[CameraID]struct{}, len(ids))}
	for _, id := range ids {
		if _, ok := idx.ids[id]; ok || id == "" {
			continue
		}
		idx.ids[id] = struct{}{}
		idx.order = append(idx.order, id)
	}
	return idx
}

// LoadThumbnailIndex reads list.json (a JSON array of ids). A missing or
// malformed file yields an empty index: thumbnails are an optimisation.
func LoadThumbnailIndex(path string) *ThumbnailIndex {
	b, err := os.ReadFile(path)
	if err != nil {
		return NewThumbnailIndex(nil)
	}
	var ids []CameraID
	if err := json.Unmarshal(b, &ids); err != nil {
		return NewThumbnailIndex(nil)
	}
	return NewThumbnailIndex(ids)
}

// Has reports whether a thumbnail is known for id.
func (t *ThumbnailIndex) Has(id CameraID) bool {
	if t == nil {
		return false
	}
	_, ok := t.ids[id]
	return ok
}

// IDs returns the indexed ids in file order.
func (t *ThumbnailIndex) IDs() []CameraID {
	if t == nil {
		return []CameraID{}
	}
	out := make([]CameraID, len(t.order))
	copy(out, t.order)
	return out
}
