// Package engine drives the external table extraction engine.
package engine

import (
	"context"
	"fmt"
	"strconv"

	"github.com/OFFIS-RIT/tabula-web/backend/pkg/region"
	"github.com/OFFIS-RIT/tabula-web/backend/pkg/table"
)

// Mode selects the detection strategy. The two modes are exclusive.
type Mode string

const (
	// ModeLattice relies on ruling lines drawn around cells.
	ModeLattice Mode = "lattice"
	// ModeStream relies on whitespace and text alignment.
	ModeStream Mode = "stream"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeLattice, ModeStream:
		return Mode(s), nil
	case "":
		return ModeLattice, nil
	default:
		return "", fmt.Errorf("unknown extraction mode %q", s)
	}
}

// PageSelector is either a single page or a page spec such as "all" or
// "1,3-5".
type PageSelector struct {
	page int
	spec string
}

func Page(n int) PageSelector {
	return PageSelector{page: n}
}

func PageSpec(spec string) PageSelector {
	if spec == "" {
		spec = "all"
	}
	return PageSelector{spec: spec}
}

// Single returns the page number when the selector names exactly one page.
func (p PageSelector) Single() (int, bool) {
	return p.page, p.page > 0
}

func (p PageSelector) String() string {
	if p.page > 0 {
		return strconv.Itoa(p.page)
	}
	if p.spec == "" {
		return "all"
	}
	return p.spec
}

// Request is the complete parameter set of one engine invocation.
type Request struct {
	Path  string
	Mode  Mode
	Pages PageSelector
	// Areas are absolute points unless Relative is set, in which case they
	// are percentages of the page.
	Areas    []region.Area
	Relative bool
}

// Engine extracts tables from a PDF on disk.
type Engine interface {
	// Extract runs one invocation and returns the grids in engine order.
	Extract(ctx context.Context, req Request) ([]table.Raw, error)
	// Detect returns the bounding boxes of tables found on page, in points.
	Detect(ctx context.Context, path string, page int) ([]region.Detected, error)
}
