package parser

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/ukaji3/sheetquery-go/pkg/sheetquery/models"
	"github.com/xuri/excelize/v2"
)

var (
	// quoted literals, escaped characters, padding and fill directives
	numFmtLiteralRe = regexp.MustCompile(`"[^"]*"|\\.|_.|\*.`)
	numFmtBracketRe = regexp.MustCompile(`\[[^\]]*\]`)
	numFmtElapsedRe = regexp.MustCompile(`(?i)\[(h+|m+|s+)\]`)
	numFmtDateRe    = regexp.MustCompile(`[dmhysDMHYS]`)
)

// dateStyles resolves whether a cell's number format shows a date or time.
// Results are cached per style index for one extraction.
type dateStyles struct {
	file     *excelize.File
	date1904 bool
	known    map[int]bool
}

func newDateStyles(f *excelize.File) (*dateStyles, error) {
	props, err := f.GetWorkbookProps()
	if err != nil {
		return nil, fmt.Errorf("workbook properties: %w", err)
	}
	return &dateStyles{
		file:     f,
		date1904: props.Date1904 != nil && *props.Date1904,
		known:    make(map[int]bool),
	}, nil
}

// convert returns v as date text when the cell is formatted as a date or time.
// Other values, and serials that are not valid dates, are returned unchanged.
func (d *dateStyles) convert(sheet, cell string, v models.Value) (models.Value, error) {
	idx, err := d.file.GetCellStyle(sheet, cell)
	if err != nil {
		return v, fmt.Errorf("style of %s!%s: %w", sheet, cell, err)
	}
	isDate, ok := d.known[idx]
	if !ok {
		style, err := d.file.GetStyle(idx)
		if err != nil {
			return v, fmt.Errorf("style %d: %w", idx, err)
		}
		isDate = isDateNumFmt(style.NumFmt, style.CustomNumFmt)
		d.known[idx] = isDate
	}
	if !isDate {
		return v, nil
	}
	if text, ok := serialToText(v.Num, d.date1904); ok {
		return models.Text(text), nil
	}
	return v, nil
}

// isDateNumFmt reports whether a number format displays a date or a clock time.
// Elapsed-time formats such as [h]:mm are durations and stay numeric.
func isDateNumFmt(id int, custom *string) bool {
	if custom != nil && *custom != "" {
		return isDateFormatCode(*custom)
	}
	switch {
	case id >= 14 && id <= 22, id >= 45 && id <= 47:
		return true
	case id >= 27 && id <= 36, id >= 50 && id <= 58:
		// East Asian locale date formats
		return true
	}
	return false
}

func isDateFormatCode(code string) bool {
	section := strings.SplitN(code, ";", 2)[0]
	if numFmtElapsedRe.MatchString(section) {
		return false
	}
	section = numFmtLiteralRe.ReplaceAllString(section, "")
	section = numFmtBracketRe.ReplaceAllString(section, "")
	if strings.EqualFold(strings.TrimSpace(section), "general") {
		return false
	}
	return numFmtDateRe.MatchString(section)
}

// serialToText converts a spreadsheet serial to "2006-01-02 15:04:05" text, or
// to "15:04:05" when the serial is a time of day without a date part.
// Times of day keep milliseconds; date-times resolve to whole seconds.
func serialToText(serial float64, date1904 bool) (string, bool) {
	if serial < 0 || math.IsNaN(serial) || math.IsInf(serial, 0) {
		return "", false
	}
	if serial < 1 {
		d := time.Duration(math.Round(serial*86400*1000)) * time.Millisecond
		if d < 24*time.Hour {
			return clockText(time.Time{}.Add(d), "15:04:05"), true
		}
	}
	t, err := excelize.ExcelDateToTime(serial, date1904)
	if err != nil {
		return "", false
	}
	return clockText(t, "2006-01-02 15:04:05"), true
}

func clockText(t time.Time, layout string) string {
	if t.Nanosecond() != 0 {
		layout += ".000000"
	}
	return t.Format(layout)
}
