package participant

import "recplan/internal/layout"

// Record is the per-participant state carried through a timeline.
type Record struct {
	ID            string             `json:"id"`
	AspectRatio   layout.AspectRatio `json:"aspect_ratio"`
	JoinedAt      int64              `json:"joined_at_ms"`
	LastActiveAt  int64              `json:"last_active_at_ms"`
	Speaking      bool               `json:"speaking"`
	DisplayName   string             `json:"display_name,omitempty"`
	Description   string             `json:"description,omitempty"`
	ExclusiveView bool               `json:"exclusive_view,omitempty"`
	Media         any                `json:"media,omitempty"`
}

// Clone returns an independent copy of the record. Media is an opaque
// reference and is shared.
func (r Record) Clone() Record {
	return r
}

// Tile returns the layout view of the record.
func (r Record) Tile() layout.Tile {
	return layout.Tile{AspectRatio: r.AspectRatio, Speaking: r.Speaking}
}

// Tiles converts an ordered record list into layout tiles.
func Tiles(records []Record) []layout.Tile {
	tiles := make([]layout.Tile, len(records))
	for i, rec := range records {
		tiles[i] = rec.Tile()
	}
	return tiles
}
