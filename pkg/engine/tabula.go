package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/sync/semaphore"

	"github.com/OFFIS-RIT/tabula-web/backend/pkg/logger"
	"github.com/OFFIS-RIT/tabula-web/backend/pkg/region"
	"github.com/OFFIS-RIT/tabula-web/backend/pkg/table"
)

// Tabula runs the tabula-java command line tool.
type Tabula struct {
	java    string
	jar     string
	timeout time.Duration
	sem     *semaphore.Weighted
}

type NewTabulaParams struct {
	JavaBin string
	JarPath string
	// Timeout bounds a single invocation. Zero disables it.
	Timeout time.Duration
	// MaxParallel bounds concurrent engine processes across all requests.
	MaxParallel int64
}

func NewTabula(params NewTabulaParams) *Tabula {
	if params.JavaBin == "" {
		params.JavaBin = "java"
	}
	if params.MaxParallel <= 0 {
		params.MaxParallel = 1
	}
	return &Tabula{
		java:    params.JavaBin,
		jar:     params.JarPath,
		timeout: params.Timeout,
		sem:     semaphore.NewWeighted(params.MaxParallel),
	}
}

func (t *Tabula) Extract(ctx context.Context, req Request) ([]table.Raw, error) {
	out, err := t.run(ctx, buildExtractArgs(req))
	if err != nil {
		return nil, err
	}
	fallbackPage, _ := req.Pages.Single()
	return parseTables(out, fallbackPage)
}

func (t *Tabula) Detect(ctx context.Context, path string, page int) ([]region.Detected, error) {
	out, err := t.run(ctx, buildDetectArgs(path, page))
	if err != nil {
		return nil, err
	}
	tables, err := parseTables(out, page)
	if err != nil {
		return nil, err
	}
	boxes := make([]region.Detected, 0, len(tables))
	for _, tbl := range tables {
		boxes = append(boxes, region.Detected{
			Top:    tbl.Top,
			Left:   tbl.Left,
			Width:  tbl.Width,
			Height: tbl.Height,
		})
	}
	return boxes, nil
}

func (t *Tabula) run(ctx context.Context, args []string) ([]byte, error) {
	if t.jar == "" {
		return nil, errors.New("tabula jar path is not configured")
	}
	if _, err := exec.LookPath(t.java); err != nil {
		return nil, fmt.Errorf("%s not found in PATH: %w", t.java, err)
	}

	if err := t.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer t.sem.Release(1)

	// A started invocation runs to completion even if the client goes away.
	runCtx := context.WithoutCancel(ctx)
	if t.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(runCtx, t.timeout)
		defer cancel()
	}

	full := append([]string{
		"-Dfile.encoding=UTF8",
		"-Djava.awt.headless=true",
		"-jar", t.jar,
	}, args...)

	cmd := exec.CommandContext(runCtx, t.java, full...)
	cmd.Env = append(os.Environ(), "LANG=C.UTF-8", "LC_ALL=C.UTF-8")
	cmd.WaitDelay = 5 * time.Second
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	logger.Debug("Tabula invocation finished", "args", strings.Join(args, " "), "duration", time.Since(start), "err", err)
	if runCtx.Err() == context.DeadlineExceeded {
		return nil, fmt.Errorf("tabula timed out after %s", t.timeout)
	}
	if err != nil {
		return nil, fmt.Errorf("tabula failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	return stdout.Bytes(), nil
}

func buildExtractArgs(req Request) []string {
	args := []string{
		"--format", "JSON",
		"--pages", req.Pages.String(),
	}
	args = append(args, modeFlag(req.Mode))
	// Guessing is only meaningful for a single search area.
	if len(req.Areas) <= 1 {
		args = append(args, "--guess")
	}
	for _, area := range req.Areas {
		args = append(args, "--area", formatArea(area, req.Relative))
	}
	args = append(args, req.Path)
	return args
}

func buildDetectArgs(path string, page int) []string {
	return []string{
		"--format", "JSON",
		"--pages", strconv.Itoa(page),
		"--guess",
		"--lattice",
		path,
	}
}

func modeFlag(mode Mode) string {
	if mode == ModeStream {
		return "--stream"
	}
	return "--lattice"
}

func formatArea(area region.Area, relative bool) string {
	parts := make([]string, len(area))
	for i, v := range area {
		parts[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	s := strings.Join(parts, ",")
	if relative {
		return "%" + s
	}
	return s
}

// parseTables reads tabula's JSON output: an array of tables, each with
// top/left/width/height and a data matrix of {text} cells. Cell text is
// kept verbatim.
func parseTables(out []byte, fallbackPage int) ([]table.Raw, error) {
	out = bytes.TrimSpace(out)
	if len(out) == 0 {
		return nil, nil
	}
	if !gjson.ValidBytes(out) {
		return nil, fmt.Errorf("tabula returned invalid JSON: %.200s", out)
	}
	root := gjson.ParseBytes(out)
	if !root.IsArray() {
		return nil, errors.New("tabula returned a non array document")
	}

	var tables []table.Raw
	root.ForEach(func(_, tbl gjson.Result) bool {
		var rows [][]string
		tbl.Get("data").ForEach(func(_, row gjson.Result) bool {
			var cells []string
			row.ForEach(func(_, cell gjson.Result) bool {
				cells = append(cells, cell.Get("text").String())
				return true
			})
			rows = append(rows, cells)
			return true
		})

		page := fallbackPage
		if p := tbl.Get("page_number"); p.Exists() {
			page = int(p.Int())
		}
		raw := table.NewRaw(page, rows)
		raw.Top = tbl.Get("top").Float()
		raw.Left = tbl.Get("left").Float()
		raw.Width = tbl.Get("width").Float()
		raw.Height = tbl.Get("height").Float()
		tables = append(tables, raw)
		return true
	})

	return tables, nil
}
