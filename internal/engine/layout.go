package engine

import "unicode"

// LayoutType names a physical keyboard layout used for neighbor-key lookups.
type LayoutType string

const (
	LayoutUSQwerty LayoutType = "us_qwerty"
	LayoutUKQwerty LayoutType = "uk_qwerty"
	LayoutQwertz   LayoutType = "de_qwertz"
	LayoutAzerty   LayoutType = "fr_azerty"
)

// Layout is a 3-row letter table. Characters absent from the table have no
// neighbors and pass through lookups unchanged.
type Layout struct {
	rows [3]string
}

var layouts = map[LayoutType]*Layout{
	LayoutUSQwerty: {rows: [3]string{"qwertyuiop", "asdfghjkl", "zxcvbnm"}},
	// The UK layout only moves symbols around; the letter rows match US.
	LayoutUKQwerty: {rows: [3]string{"qwertyuiop", "asdfghjkl", "zxcvbnm"}},
	LayoutQwertz:   {rows: [3]string{"qwertzuiop", "asdfghjkl", "yxcvbnm"}},
	LayoutAzerty:   {rows: [3]string{"azertyuiop", "qsdfghjklm", "wxcvbn"}},
}

// LayoutFor resolves a layout type, falling back to US QWERTY for unknown
// names so a misconfigured session still types.
func LayoutFor(t LayoutType) *Layout {
	if l, ok := layouts[t]; ok {
		return l
	}
	return layouts[LayoutUSQwerty]
}

// NeighborKey returns a uniformly chosen physically adjacent key for c,
// preserving case. Non-letters and letters absent from the table are returned
// unchanged, never an error.
func (l *Layout) NeighborKey(rng *Rand, c rune) rune {
	upper := unicode.IsUpper(c)
	lower := unicode.ToLower(c)

	rowIndex, colIndex := -1, -1
	for r, row := range l.rows {
		for col, ch := range row {
			if ch == lower {
				rowIndex, colIndex = r, col
				break
			}
		}
		if rowIndex != -1 {
			break
		}
	}
	if rowIndex == -1 {
		return c
	}

	var candidates []rune
	add := func(r, col int) {
		if r < 0 || r >= len(l.rows) {
			return
		}
		row := []rune(l.rows[r])
		if col < 0 || col >= len(row) {
			return
		}
		ch := row[col]
		for _, existing := range candidates {
			if existing == ch {
				return
			}
		}
		candidates = append(candidates, ch)
	}

	add(rowIndex, colIndex-1)
	add(rowIndex, colIndex+1)
	add(rowIndex-1, colIndex)
	add(rowIndex+1, colIndex)
	add(rowIndex-1, colIndex-1)
	add(rowIndex-1, colIndex+1)
	add(rowIndex+1, colIndex-1)
	add(rowIndex+1, colIndex+1)

	if len(candidates) == 0 {
		return c
	}

	out := candidates[rng.Range(0, len(candidates)-1)]
	if upper {
		return unicode.ToUpper(out)
	}
	return out
}
