package layout

// Tile is the layout view of one visible entry: its shape and whether it is
// rendered as the large speaker tile.
type Tile struct {
	AspectRatio AspectRatio
	Speaking    bool
}

// Dimension is a tile size in canvas pixels.
type Dimension struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// IsZero reports whether the dimension has no area.
func (d Dimension) IsZero() bool {
	return d.Width == 0 && d.Height == 0
}

// Point is the top-left corner of a tile on the canvas.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Shape is the computed geometry for a section. Small and Positions are
// parallel slices in the order of the non-speaking input tiles.
type Shape struct {
	Large     Dimension
	Small     []Dimension
	Positions []Point
}

// Strategy turns an ordered tile list into geometry.
type Strategy interface {
	Compute(tiles []Tile) Shape
}

// SpeakerStrip places the speaker in one large tile and every other tile in a
// bottom-aligned, horizontally centred row whose height is capped by
// MaxSmallHeight.
type SpeakerStrip struct {
	Width          int
	Height         int
	MaxSmallHeight int
}

// NewSpeakerStrip builds a strip strategy for a canvas.
func NewSpeakerStrip(width, height, maxSmallHeight int) SpeakerStrip {
	return SpeakerStrip{Width: width, Height: height, MaxSmallHeight: maxSmallHeight}
}

// Compute implements Strategy.
func (s SpeakerStrip) Compute(tiles []Tile) Shape {
	smallHeight := s.smallHeight(tiles)
	largeHeight := s.Height - smallHeight

	shape := Shape{
		Small:     make([]Dimension, 0, len(tiles)),
		Positions: make([]Point, 0, len(tiles)),
	}
	rowWidth := 0
	for _, tile := range tiles {
		if tile.Speaking {
			shape.Large = Dimension{
				Width:  int(float64(largeHeight) * tile.AspectRatio.ScaleFactor()),
				Height: largeHeight,
			}
			continue
		}
		dim := Dimension{
			Width:  int(float64(smallHeight) * tile.AspectRatio.ScaleFactor()),
			Height: smallHeight,
		}
		shape.Small = append(shape.Small, dim)
		rowWidth += dim.Width
	}

	x := float64(s.Width)/2.0 - float64(rowWidth)/2.0
	for _, dim := range shape.Small {
		shape.Positions = append(shape.Positions, Point{X: x, Y: float64(s.Height - dim.Height)})
		x += float64(dim.Width)
	}
	return shape
}

func (s SpeakerStrip) smallHeight(tiles []Tile) int {
	sumRatio := 0.0
	for _, tile := range tiles {
		if !tile.Speaking {
			sumRatio += tile.AspectRatio.ScaleFactor()
		}
	}
	if sumRatio == 0 {
		return 0
	}
	fit := float64(s.Width) / sumRatio
	if fit < float64(s.MaxSmallHeight) {
		return int(fit)
	}
	return s.MaxSmallHeight
}
