package export

import (
	"bytes"
	"encoding/json"
	"strconv"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/OFFIS-RIT/tabula-web/backend/pkg/table"
)

// EncodeJSON renders a single table as an array of row objects keyed by
// header, and several tables as an array of table objects.
func EncodeJSON(tables []table.Table, multi bool) ([]byte, error) {
	var payload any
	if multi {
		out := make([]table.Table, len(tables))
		for i, t := range tables {
			t.Index = i
			out[i] = t
		}
		payload = out
	} else {
		var t table.Table
		if len(tables) > 0 {
			t = tables[0]
		}
		payload = records(t)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func records(t table.Table) []*orderedmap.OrderedMap[string, string] {
	keys := uniqueKeys(t.Headers)
	rows := make([]*orderedmap.OrderedMap[string, string], 0, len(t.Data))
	for _, row := range t.Data {
		m := orderedmap.New[string, string](len(keys))
		for i, key := range keys {
			value := ""
			if i < len(row) {
				value = row[i]
			}
			m.Set(key, value)
		}
		rows = append(rows, m)
	}
	return rows
}

// uniqueKeys suffixes repeated headers with .1, .2, ... so no column is lost
// when rows become objects.
func uniqueKeys(headers []string) []string {
	seen := make(map[string]int, len(headers))
	taken := make(map[string]bool, len(headers))
	for _, h := range headers {
		taken[h] = true
	}

	keys := make([]string, len(headers))
	for i, h := range headers {
		n, dup := seen[h]
		seen[h] = n + 1
		if !dup {
			keys[i] = h
			continue
		}
		key := h + "." + strconv.Itoa(n)
		for taken[key] {
			n++
			key = h + "." + strconv.Itoa(n)
		}
		seen[h] = n + 1
		taken[key] = true
		keys[i] = key
	}
	return keys
}
