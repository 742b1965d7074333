// Package extraction turns an uploaded PDF and a set of user selections into
// filtered, indexed tables.
package extraction

import (
	"context"
	"errors"
	"maps"
	"slices"

	"github.com/OFFIS-RIT/tabula-web/backend/internal/apperr"
	"github.com/OFFIS-RIT/tabula-web/backend/pkg/engine"
	"github.com/OFFIS-RIT/tabula-web/backend/pkg/logger"
	"github.com/OFFIS-RIT/tabula-web/backend/pkg/pdf"
	"github.com/OFFIS-RIT/tabula-web/backend/pkg/region"
	"github.com/OFFIS-RIT/tabula-web/backend/pkg/render"
	"github.com/OFFIS-RIT/tabula-web/backend/pkg/table"
)

// Params selects what to extract. Regions take precedence over Area; with
// neither the engine searches the whole page selection.
type Params struct {
	Mode engine.Mode
	// Pages is the page spec used by the legacy and auto modes.
	Pages string
	// Area is a single area in percent of the page.
	Area    *region.Area
	Regions []region.Region
}

type Service struct {
	engine engine.Engine
	raster render.Rasterizer
	open   pdf.Opener
}

type NewServiceParams struct {
	Engine     engine.Engine
	Rasterizer render.Rasterizer
	// Opener defaults to pdf.Open.
	Opener pdf.Opener
}

func NewService(params NewServiceParams) *Service {
	if params.Opener == nil {
		params.Opener = pdf.Open
	}
	return &Service{
		engine: params.Engine,
		raster: params.Rasterizer,
		open:   params.Opener,
	}
}

// Extract runs the engine and returns the surviving tables numbered from 0.
// Preview and download both go through here so their indices agree.
func (s *Service) Extract(ctx context.Context, path string, p Params) ([]table.Table, error) {
	if p.Mode == "" {
		p.Mode = engine.ModeLattice
	}

	var (
		raws []table.Raw
		err  error
	)
	switch {
	case len(p.Regions) > 0:
		raws, err = s.extractRegions(ctx, path, p)
	case p.Area != nil:
		raws, err = s.invoke(ctx, engine.Request{
			Path:     path,
			Mode:     p.Mode,
			Pages:    engine.PageSpec(p.Pages),
			Areas:    []region.Area{*p.Area},
			Relative: true,
		})
	default:
		raws, err = s.invoke(ctx, engine.Request{
			Path:  path,
			Mode:  p.Mode,
			Pages: engine.PageSpec(p.Pages),
		})
	}
	if err != nil {
		return nil, err
	}

	kept := table.Filter(raws)
	logger.Debug("Extraction finished", "mode", p.Mode, "found", len(raws), "kept", len(kept))
	return table.Assemble(kept), nil
}

// extractRegions invokes the engine once per page that has regions and
// concatenates the results in ascending page order.
func (s *Service) extractRegions(ctx context.Context, path string, p Params) ([]table.Raw, error) {
	doc, err := s.openDocument(path)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	byPage := make(map[int][]table.Raw)
	for _, group := range region.Group(p.Regions) {
		g, err := pdf.ResolveGeometry(doc, group.Page)
		if errors.Is(err, pdf.ErrPageNotFound) {
			logger.Debug("Skipping regions outside the document", "page", group.Page, "regions", len(group.Regions))
			continue
		}
		if err != nil {
			return nil, apperr.Wrap(apperr.KindExtraction, "Failed to read page geometry", err)
		}

		raws, err := s.invoke(ctx, engine.Request{
			Path:  path,
			Mode:  p.Mode,
			Pages: engine.Page(group.Page),
			Areas: region.Normalize(group.Regions, g),
		})
		if err != nil {
			return nil, err
		}
		byPage[group.Page] = append(byPage[group.Page], raws...)
	}

	var out []table.Raw
	for _, page := range slices.Sorted(maps.Keys(byPage)) {
		out = append(out, byPage[page]...)
	}
	return out, nil
}

func (s *Service) invoke(ctx context.Context, req engine.Request) ([]table.Raw, error) {
	raws, err := s.engine.Extract(ctx, req)
	if err != nil {
		logger.Warn("Engine invocation failed", "pages", req.Pages.String(), "mode", req.Mode, "err", err)
		return nil, apperr.Wrap(apperr.KindExtraction, "Extraction failed", err)
	}
	return raws, nil
}

// Detect asks the engine for table boxes on page and returns them as
// regions clamped to the page.
func (s *Service) Detect(ctx context.Context, path string, page int) ([]region.Region, error) {
	doc, err := s.openDocument(path)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	g, err := s.geometry(doc, page)
	if err != nil {
		return nil, err
	}

	boxes, err := s.engine.Detect(ctx, path, page)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindExtraction, "Table detection failed", err)
	}

	regions := make([]region.Region, 0, len(boxes))
	for _, box := range boxes {
		regions = append(regions, region.FromDetection(page, box, g))
	}
	return regions, nil
}

func (s *Service) PageCount(path string) (int, error) {
	doc, err := s.openDocument(path)
	if err != nil {
		return 0, err
	}
	defer doc.Close()

	n, err := doc.PageCount()
	if err != nil {
		return 0, apperr.Wrap(apperr.KindExtraction, "Failed to read PDF", err)
	}
	return n, nil
}

// RenderPage rasterises page after checking that it exists.
func (s *Service) RenderPage(ctx context.Context, path string, page int, dpi int) ([]byte, error) {
	doc, err := s.openDocument(path)
	if err != nil {
		return nil, err
	}
	_, err = s.geometry(doc, page)
	doc.Close()
	if err != nil {
		return nil, err
	}

	img, err := s.raster.RenderPage(ctx, path, page, dpi)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindRender, "Failed to render page", err)
	}
	return img, nil
}

func (s *Service) openDocument(path string) (pdf.Document, error) {
	doc, err := s.open(path)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindExtraction, "Failed to read PDF", err)
	}
	return doc, nil
}

func (s *Service) geometry(doc pdf.Document, page int) (pdf.PageGeometry, error) {
	g, err := pdf.ResolveGeometry(doc, page)
	if errors.Is(err, pdf.ErrPageNotFound) {
		return pdf.PageGeometry{}, apperr.Newf(apperr.KindPageNotFound, "Page %d not found", page)
	}
	if err != nil {
		return pdf.PageGeometry{}, apperr.Wrap(apperr.KindExtraction, "Failed to read page geometry", err)
	}
	return g, nil
}
