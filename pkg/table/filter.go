package table

// IsDegenerate reports whether raw looks like a detection artefact rather
// than a table: no rows, a 1x1, 1x2 or 2x1 shape, or no non-blank data cell.
// Header cells are not considered content.
func IsDegenerate(raw Raw) bool {
	rows, cols := raw.Shape()
	if rows == 0 {
		return true
	}

	switch [2]int{rows, cols} {
	case [2]int{1, 1}, [2]int{1, 2}, [2]int{2, 1}:
		return true
	}

	for _, row := range raw.Rows {
		for _, cell := range row {
			if !isBlank(cell) {
				return false
			}
		}
	}
	return true
}

// Filter returns the non degenerate tables in their original order.
func Filter(raws []Raw) []Raw {
	kept := make([]Raw, 0, len(raws))
	for _, raw := range raws {
		if IsDegenerate(raw) {
			continue
		}
		kept = append(kept, raw)
	}
	return kept
}
