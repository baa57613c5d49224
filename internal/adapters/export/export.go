// Package export renders user records as an XLSX workbook.
package export

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/okian/routinerec/internal/domain/model"
)

// ErrNoData is returned when there is neither a submission skill nor a
// routine skill to write.
var ErrNoData = errors.New("export: no data")

// Sheet names.
const (
	SubmissionsSheet = "Submissions"
	RoutinesSheet    = "Routines"
)

// DateLayout formats submission timestamps.
const DateLayout = "2006-01-02 15:04:05"

// ContentType is the MIME type of the rendered workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var (
	submissionHeader = []any{"User Name", "Event", "Date", "Skill", "Value", "Deduction", "Is Dismount", "Dismount Stuck", "Routine Complete"}
	routineHeader    = []any{"User Name", "Event", "Skill", "Value"}
)

// Workbook builds the workbook for entries. A sheet is only present when it
// has at least one row.
func Workbook(entries []model.UserEntry) ([]byte, error) {
	subRows := submissionRows(entries)
	routineRows := routineRows(entries)
	if len(subRows) == 0 && len(routineRows) == 0 {
		return nil, ErrNoData
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	first := f.GetSheetName(0)
	renamed := false
	for _, sh := range []struct {
		name   string
		header []any
		rows   [][]any
	}{
		{SubmissionsSheet, submissionHeader, subRows},
		{RoutinesSheet, routineHeader, routineRows},
	} {
		if len(sh.rows) == 0 {
			continue
		}
		if !renamed {
			if err := f.SetSheetName(first, sh.name); err != nil {
				return nil, fmt.Errorf("name sheet %s: %w", sh.name, err)
			}
			renamed = true
		} else if _, err := f.NewSheet(sh.name); err != nil {
			return nil, fmt.Errorf("add sheet %s: %w", sh.name, err)
		}
		if err := writeRows(f, sh.name, sh.header, sh.rows); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRows(f *excelize.File, sheet string, header []any, rows [][]any) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write %s header: %w", sheet, err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("cell name: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+2, err)
		}
	}
	return nil
}

func submissionRows(entries []model.UserEntry) [][]any {
	var rows [][]any
	for _, e := range entries {
		for _, sub := range e.Data.Submissions {
			date := sub.Timestamp.UTC().Format(DateLayout)
			for _, sk := range sub.Skills {
				rows = append(rows, []any{
					e.Data.DisplayName,
					sub.Event.String(),
					date,
					sk.Name,
					valueCell(sk.Value),
					deductionCell(sk.Deduction),
					yesNo(sk.IsDismount),
					yesNo(sub.Stuck()),
					yesNo(sub.IsComplete),
				})
			}
		}
	}
	return rows
}

func routineRows(entries []model.UserEntry) [][]any {
	var rows [][]any
	for _, e := range entries {
		for _, ev := range model.Events() {
			for _, sk := range e.Data.Routines[ev] {
				rows = append(rows, []any{e.Data.DisplayName, ev.String(), sk.Name, valueCell(sk.Value)})
			}
		}
	}
	return rows
}

func valueCell(v model.Value) any {
	if f, ok := v.Float(); ok {
		return f
	}
	return nil
}

func deductionCell(d model.Deduction) any {
	switch d.Kind() {
	case model.DeductionValue:
		f, _ := d.Float()
		return f
	case model.DeductionNotApplicable:
		return model.NotApplicableText
	default:
		return nil
	}
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
