// Package render rasterises single PDF pages for the region picker.
package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/OFFIS-RIT/tabula-web/backend/pkg/logger"
)

const DefaultDPI = 150

// Rasterizer turns one page of a PDF into PNG bytes. Pages are 1-based.
type Rasterizer interface {
	RenderPage(ctx context.Context, path string, page int, dpi int) ([]byte, error)
}

// Pdftoppm renders pages with poppler's pdftoppm.
type Pdftoppm struct {
	bin     string
	timeout time.Duration
}

type NewPdftoppmParams struct {
	Bin     string
	Timeout time.Duration
}

func NewPdftoppm(params NewPdftoppmParams) *Pdftoppm {
	if params.Bin == "" {
		params.Bin = "pdftoppm"
	}
	return &Pdftoppm{bin: params.Bin, timeout: params.Timeout}
}

// RenderPage writes the image next to the input file and removes it after
// reading.
func (p *Pdftoppm) RenderPage(ctx context.Context, path string, page int, dpi int) ([]byte, error) {
	if page < 1 {
		return nil, fmt.Errorf("invalid page %d", page)
	}
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	if _, err := exec.LookPath(p.bin); err != nil {
		return nil, fmt.Errorf("%s not found in PATH: %w", p.bin, err)
	}

	id, err := gonanoid.New()
	if err != nil {
		return nil, fmt.Errorf("nanoid: %w", err)
	}
	prefix := filepath.Join(filepath.Dir(path), "page-"+id)
	imagePath := prefix + ".png"
	defer os.Remove(imagePath)

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	args := []string{
		"-png",
		"-r", strconv.Itoa(dpi),
		"-q",
		"-singlefile",
		"-f", strconv.Itoa(page),
		"-l", strconv.Itoa(page),
		path, prefix,
	}

	cmd := exec.CommandContext(ctx, p.bin, args...)
	cmd.Env = append(os.Environ(), "LANG=C.UTF-8", "LC_ALL=C.UTF-8")
	cmd.WaitDelay = 5 * time.Second
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	start := time.Now()
	err = cmd.Run()
	logger.Debug("pdftoppm finished", "page", page, "dpi", dpi, "duration", time.Since(start), "err", err)
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("pdftoppm timed out on page %d", page)
	}
	if err != nil {
		return nil, fmt.Errorf("pdftoppm failed on page %d: %w: %s", page, err, strings.TrimSpace(out.String()))
	}

	b, err := os.ReadFile(imagePath)
	if err != nil {
		return nil, fmt.Errorf("read image %s: %w", imagePath, err)
	}
	return b, nil
}
