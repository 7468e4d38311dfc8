package parser

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Area represents cell coordinate bounds.
type Area struct {
	// R1 is the start row (1-based).
	R1 int
	// C1 is the start column (1-based).
	C1 int
	// R2 is the end row (1-based, inclusive).
	R2 int
	// C2 is the end column (1-based, inclusive).
	C2 int
}

// Width returns the number of columns covered.
func (a Area) Width() int {
	return a.C2 - a.C1 + 1
}

// ParseReference parses a reference such as 'Stock'!$A$5:$AB$4847 or A5:AB4847.
// The sheet part is optional and returned unquoted.
func ParseReference(ref string) (string, Area, error) {
	ref = strings.TrimSpace(ref)
	var sheet string
	rangeStr := ref
	if idx := strings.LastIndex(ref, "!"); idx >= 0 {
		sheet = strings.Trim(ref[:idx], "'")
		rangeStr = ref[idx+1:]
	}
	area, err := ParseRange(rangeStr)
	if err != nil {
		return "", Area{}, err
	}
	return sheet, area, nil
}

// ParseRange parses a range string like $A$5:$AB$4847.
func ParseRange(rangeStr string) (Area, error) {
	rangeStr = strings.ReplaceAll(strings.TrimSpace(rangeStr), "$", "")

	parts := strings.Split(rangeStr, ":")
	if len(parts) != 2 {
		return Area{}, fmt.Errorf("invalid range %q: expected <start>:<end>", rangeStr)
	}

	startCol, startRow, err := excelize.CellNameToCoordinates(parts[0])
	if err != nil {
		return Area{}, fmt.Errorf("invalid range %q: %w", rangeStr, err)
	}
	endCol, endRow, err := excelize.CellNameToCoordinates(parts[1])
	if err != nil {
		return Area{}, fmt.Errorf("invalid range %q: %w", rangeStr, err)
	}
	if endCol < startCol || endRow < startRow {
		return Area{}, fmt.Errorf("invalid range %q: end precedes start", rangeStr)
	}

	return Area{R1: startRow, C1: startCol, R2: endRow, C2: endCol}, nil
}
