package region

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	ErrInvalidArea    = errors.New("area must be formatted as 'top,left,bottom,right' (e.g. 10,5,60,95)")
	ErrInvalidRegions = errors.New("regions must be a JSON array string")
	ErrInvalidPages   = errors.New("pages must be 'all' or a list of page numbers and ranges (e.g. 1,3-5)")
)

var rePages = regexp.MustCompile(`^\d+(-\d+)?(,\d+(-\d+)?)*$`)

// ParseArea parses "top,left,bottom,right". An empty string yields nil.
func ParseArea(raw string) (*Area, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	parts := strings.Split(raw, ",")
	if len(parts) != 4 {
		return nil, ErrInvalidArea
	}
	var area Area
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, ErrInvalidArea
		}
		area[i] = v
	}
	return &area, nil
}

// number is a JSON number or a string holding one. Edges are accepted
// either way, like the browser client sends them.
type number struct {
	raw    string
	set    bool
	quoted bool
}

func (n *number) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	raw := string(b)
	quoted := len(b) > 0 && b[0] == '"'
	if quoted {
		if err := json.Unmarshal(b, &raw); err != nil {
			return err
		}
		raw = strings.TrimSpace(raw)
	}
	n.raw, n.set, n.quoted = raw, true, quoted
	return nil
}

func (n number) float(def float64) (float64, error) {
	if !n.set {
		return def, nil
	}
	v, err := strconv.ParseFloat(n.raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%q is not a number", n.raw)
	}
	return v, nil
}

// int truncates JSON numbers; strings must hold an integer.
func (n number) int(def int) (int, error) {
	if !n.set {
		return def, nil
	}
	if n.quoted {
		v, err := strconv.Atoi(n.raw)
		if err != nil {
			return 0, fmt.Errorf("%q is not a page number", n.raw)
		}
		return v, nil
	}
	v, err := n.float(0)
	if err != nil {
		return 0, err
	}
	return int(v), nil
}

type wireRegion struct {
	Page   number `json:"page"`
	Top    number `json:"top"`
	Left   number `json:"left"`
	Bottom number `json:"bottom"`
	Right  number `json:"right"`
}

// ParseRegions decodes a JSON array of region objects. Blank input yields
// nil. A missing page defaults to 1 and missing edges to 0. Numbers may be
// sent as strings.
func ParseRegions(raw string) ([]Region, error) {
	trimmed := bytes.TrimSpace([]byte(raw))
	if len(trimmed) == 0 {
		return nil, nil
	}
	if trimmed[0] != '[' {
		return nil, ErrInvalidRegions
	}

	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, ErrInvalidRegions
	}

	regions := make([]Region, 0, len(items))
	for i, item := range items {
		item = bytes.TrimSpace(item)
		if len(item) == 0 || item[0] != '{' {
			return nil, fmt.Errorf("%w: element %d is not an object", ErrInvalidRegions, i)
		}
		var w wireRegion
		if err := json.Unmarshal(item, &w); err != nil {
			return nil, fmt.Errorf("%w: element %d: %v", ErrInvalidRegions, i, err)
		}
		r, err := w.region()
		if err != nil {
			return nil, fmt.Errorf("%w: element %d: %v", ErrInvalidRegions, i, err)
		}
		regions = append(regions, r)
	}
	return regions, nil
}

func (w wireRegion) region() (Region, error) {
	var (
		r   Region
		err error
	)
	if r.Page, err = w.Page.int(1); err != nil {
		return Region{}, err
	}
	for _, f := range []struct {
		dst *float64
		src number
	}{
		{&r.Top, w.Top},
		{&r.Left, w.Left},
		{&r.Bottom, w.Bottom},
		{&r.Right, w.Right},
	} {
		if *f.dst, err = f.src.float(0); err != nil {
			return Region{}, err
		}
	}
	return r, nil
}

// ParsePages validates a page selector. Empty input means "all".
func ParsePages(raw string) (string, error) {
	s := strings.ReplaceAll(strings.TrimSpace(raw), " ", "")
	if s == "" || strings.EqualFold(s, "all") {
		return "all", nil
	}
	if !rePages.MatchString(s) {
		return "", ErrInvalidPages
	}
	for part := range strings.SplitSeq(s, ",") {
		for num := range strings.SplitSeq(part, "-") {
			if n, _ := strconv.Atoi(num); n < 1 {
				return "", ErrInvalidPages
			}
		}
	}
	return s, nil
}
