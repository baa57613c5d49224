package export_test

import (
	"bytes"
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/xuri/excelize/v2"

	"github.com/okian/routinerec/internal/adapters/export"
	"github.com/okian/routinerec/internal/domain/model"
)

func entry(name string) model.UserEntry {
	return model.UserEntry{User: model.User{ID: "u-" + name, DisplayName: name}, Data: model.NewUserData(name)}
}

func open(t *testing.T, b []byte) *excelize.File {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestWorkbook(t *testing.T) {
	Convey("Given users without routines or submissions", t, func() {
		_, err := export.Workbook([]model.UserEntry{entry("A"), entry("B")})

		Convey("Then there is nothing to export", func() {
			So(errors.Is(err, export.ErrNoData), ShouldBeTrue)
		})
	})

	Convey("Given a user with a routine and a submission", t, func() {
		e := entry("Ana")
		e.Data.ReplaceRoutine(model.VT, model.Routine{{Name: "Yurchenko", Value: model.ValueOf(4.6)}, {Name: "Handspring"}})
		stuck := true
		ts := time.Date(2025, 3, 9, 7, 5, 1, 0, time.UTC)
		e.Data.Prepend(model.Submission{
			ID:         e.Data.NextID(ts),
			Event:      model.PB,
			Timestamp:  ts,
			IsComplete: false,
			Skills: []model.SubmissionSkill{
				{Name: "Healy", Value: model.ValueOf(0.4), Deduction: model.DeductionOf(0.3)},
				{Name: "Double Pike", Value: model.ValueOf(0.5), Deduction: model.NotApplicable(), IsDismount: true},
			},
			StuckDismount: &stuck,
		})

		b, err := export.Workbook([]model.UserEntry{e})
		So(err, ShouldBeNil)
		f := open(t, b)

		Convey("Then both sheets exist", func() {
			So(f.GetSheetList(), ShouldResemble, []string{export.SubmissionsSheet, export.RoutinesSheet})
		})

		Convey("Then the submissions sheet has one row per skill", func() {
			rows, err := f.GetRows(export.SubmissionsSheet)
			So(err, ShouldBeNil)
			So(rows, ShouldHaveLength, 3)
			So(rows[0], ShouldResemble, []string{"User Name", "Event", "Date", "Skill", "Value", "Deduction", "Is Dismount", "Dismount Stuck", "Routine Complete"})
			So(rows[1], ShouldResemble, []string{"Ana", "PB", "2025-03-09 07:05:01", "Healy", "0.4", "0.3", "No", "Yes", "No"})
			So(rows[2][5], ShouldEqual, "N/A")
			So(rows[2][6], ShouldEqual, "Yes")
		})

		Convey("Then the routines sheet lists every routine skill", func() {
			rows, err := f.GetRows(export.RoutinesSheet)
			So(err, ShouldBeNil)
			So(rows, ShouldHaveLength, 3)
			So(rows[1], ShouldResemble, []string{"Ana", "VT", "Yurchenko", "4.6"})
			So(rows[2][:3], ShouldResemble, []string{"Ana", "VT", "Handspring"})
		})
	})

	Convey("Given only routines", t, func() {
		e := entry("Bo")
		e.Data.ReplaceRoutine(model.FX, model.Routine{{Name: "Layout", Value: model.ValueOf(0.2)}})
		b, err := export.Workbook([]model.UserEntry{e})
		So(err, ShouldBeNil)

		Convey("Then the submissions sheet is left out", func() {
			So(open(t, b).GetSheetList(), ShouldResemble, []string{export.RoutinesSheet})
		})
	})
}
