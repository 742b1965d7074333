// Package testpdf builds small, structurally valid PDF files for tests.
// The pages carry no content streams; only the page tree and boxes matter.
package testpdf

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

type Page struct {
	MediaBox [4]float64
	// CropBox is omitted from the page dictionary when nil.
	CropBox *[4]float64
	Rotate  int
}

// Build returns the bytes of a PDF containing the given pages.
func Build(pages ...Page) []byte {
	var buf bytes.Buffer
	offsets := []int{}

	buf.WriteString("%PDF-1.4\n")
	writeObj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", i+3)
	}

	writeObj("<< /Type /Catalog /Pages 2 0 R >>")
	writeObj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)))
	for _, p := range pages {
		dict := fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox %s", box(p.MediaBox))
		if p.CropBox != nil {
			dict += " /CropBox " + box(*p.CropBox)
		}
		if p.Rotate != 0 {
			dict += " /Rotate " + strconv.Itoa(p.Rotate)
		}
		dict += " >>"
		writeObj(dict)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f\n", len(offsets)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n\n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF", len(offsets)+1, xref)

	return buf.Bytes()
}

// Letter is a portrait US letter page.
func Letter() Page {
	return Page{MediaBox: [4]float64{0, 0, 612, 792}}
}

func box(b [4]float64) string {
	parts := make([]string, 4)
	for i, v := range b {
		parts[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return "[" + strings.Join(parts, " ") + "]"
}
