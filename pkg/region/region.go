// Package region converts between UI regions, expressed as fractions of the
// visible page, and absolute areas in PDF points.
package region

import (
	"cmp"
	"slices"

	"github.com/OFFIS-RIT/tabula-web/backend/pkg/pdf"
)

// Region is a rectangle relative to the upright page, origin top-left.
// Ordering of the edges is not enforced.
type Region struct {
	Page   int     `json:"page"`
	Top    float64 `json:"top"`
	Left   float64 `json:"left"`
	Bottom float64 `json:"bottom"`
	Right  float64 `json:"right"`
}

// Area is [top, left, bottom, right] in points.
type Area [4]float64

func (a Area) Top() float64    { return a[0] }
func (a Area) Left() float64   { return a[1] }
func (a Area) Bottom() float64 { return a[2] }
func (a Area) Right() float64  { return a[3] }

// PageRegions holds the regions of one page in caller order.
type PageRegions struct {
	Page    int
	Regions []Region
}

// Group buckets regions by page. Buckets are sorted by ascending page
// number; regions inside a bucket keep their input order.
func Group(regions []Region) []PageRegions {
	index := make(map[int]int)
	var groups []PageRegions
	for _, r := range regions {
		i, ok := index[r.Page]
		if !ok {
			i = len(groups)
			index[r.Page] = i
			groups = append(groups, PageRegions{Page: r.Page})
		}
		groups[i].Regions = append(groups[i].Regions, r)
	}

	slices.SortStableFunc(groups, func(a, b PageRegions) int {
		return cmp.Compare(a.Page, b.Page)
	})
	return groups
}

// ToArea scales r onto g. Out of range and inverted values are kept as is.
func ToArea(r Region, g pdf.PageGeometry) Area {
	return Area{
		r.Top * g.Height,
		r.Left * g.Width,
		r.Bottom * g.Height,
		r.Right * g.Width,
	}
}

// Normalize maps every region onto g, preserving order.
func Normalize(regions []Region, g pdf.PageGeometry) []Area {
	areas := make([]Area, 0, len(regions))
	for _, r := range regions {
		areas = append(areas, ToArea(r, g))
	}
	return areas
}

// Detected is a table box reported by the engine, in points.
type Detected struct {
	Top    float64
	Left   float64
	Width  float64
	Height float64
}

// FromDetection converts an engine box back into a region. Unlike ToArea
// the result is clamped to the page since it becomes editable UI state.
func FromDetection(page int, d Detected, g pdf.PageGeometry) Region {
	return Region{
		Page:   page,
		Top:    clamp01(ratio(d.Top, g.Height)),
		Left:   clamp01(ratio(d.Left, g.Width)),
		Bottom: clamp01(ratio(d.Top+d.Height, g.Height)),
		Right:  clamp01(ratio(d.Left+d.Width, g.Width)),
	}
}

func ratio(v, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return v / total
}

func clamp01(v float64) float64 {
	return min(max(v, 0), 1)
}
