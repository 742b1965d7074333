package pdf

import "fmt"

// PageGeometry is the size of a page in points as the viewer shows it.
type PageGeometry struct {
	Width    float64
	Height   float64
	Rotation int
}

// NormalizeRotation folds any multiple of 90 into {0, 90, 180, 270}.
// Values that are not a multiple of 90 are invalid per the PDF reference
// and are treated as 0.
func NormalizeRotation(rotation int) int {
	r := rotation % 360
	if r < 0 {
		r += 360
	}
	if r%90 != 0 {
		return 0
	}
	return r
}

// Upright converts a raw crop box to the visually upright frame. Width and
// height are swapped for quarter turns.
func Upright(box Box) PageGeometry {
	rotation := NormalizeRotation(box.Rotation)
	g := PageGeometry{Width: box.Width, Height: box.Height, Rotation: rotation}
	if rotation == 90 || rotation == 270 {
		g.Width, g.Height = g.Height, g.Width
	}
	return g
}

// ResolveGeometry returns the upright geometry of the 1-based page.
func ResolveGeometry(doc Document, page int) (PageGeometry, error) {
	count, err := doc.PageCount()
	if err != nil {
		return PageGeometry{}, err
	}
	if page < 1 || page > count {
		return PageGeometry{}, fmt.Errorf("%w: %d of %d", ErrPageNotFound, page, count)
	}

	box, err := doc.PageBox(page)
	if err != nil {
		return PageGeometry{}, err
	}
	return Upright(box), nil
}
