package layout

import (
	"fmt"
	"strings"
)

// AspectRatio identifies the shape class of a participant's video stream.
type AspectRatio int

const (
	AspectRatio16x9 AspectRatio = iota
	AspectRatio4x3
)

// DefaultAspectRatio is used whenever a stream reports no usable ratio.
const DefaultAspectRatio = AspectRatio4x3

var scaleFactors = map[AspectRatio]float64{
	AspectRatio16x9: 16.0 / 9.0,
	AspectRatio4x3:  4.0 / 3.0,
}

// ScaleFactor returns width divided by height for the ratio class. Unknown
// classes scale like the default ratio.
func (a AspectRatio) ScaleFactor() float64 {
	if factor, ok := scaleFactors[a]; ok {
		return factor
	}
	return scaleFactors[DefaultAspectRatio]
}

func (a AspectRatio) String() string {
	switch a {
	case AspectRatio16x9:
		return "16:9"
	case AspectRatio4x3:
		return "4:3"
	default:
		return "unknown"
	}
}

// ParseAspectRatio maps recorder spellings to a ratio class. Unrecognized
// values return DefaultAspectRatio and false so the caller can report them.
func ParseAspectRatio(value string) (AspectRatio, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "16:9", "16x9", "16_9", "aspect_ratio_16_9":
		return AspectRatio16x9, true
	case "4:3", "4x3", "4_3", "aspect_ratio_4_3":
		return AspectRatio4x3, true
	default:
		return DefaultAspectRatio, false
	}
}

// MarshalText renders the ratio in its "W:H" form.
func (a AspectRatio) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText parses any spelling accepted by ParseAspectRatio.
func (a *AspectRatio) UnmarshalText(text []byte) error {
	parsed, ok := ParseAspectRatio(string(text))
	if !ok {
		return fmt.Errorf("unknown aspect ratio %q", text)
	}
	*a = parsed
	return nil
}
