package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/xuri/excelize/v2"
	"golang.org/x/crypto/bcrypt"

	"github.com/okian/routinerec/internal/adapters/export"
	"github.com/okian/routinerec/internal/adapters/repository"
	"github.com/okian/routinerec/internal/domain/model"
)

func execute(stdin string, args ...string) (string, error) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestHashPassword(t *testing.T) {
	Convey("Given the hash-password command", t, func() {
		Convey("An argument is hashed", func() {
			out, err := execute("", "hash-password", "--cost", "4", "vault")
			So(err, ShouldBeNil)
			So(bcrypt.CompareHashAndPassword([]byte(strings.TrimSpace(out)), []byte("vault")), ShouldBeNil)
		})

		Convey("Stdin is read when no argument is given", func() {
			out, err := execute("beam\n", "hash-password", "--cost", "4")
			So(err, ShouldBeNil)
			So(bcrypt.CompareHashAndPassword([]byte(strings.TrimSpace(out)), []byte("beam")), ShouldBeNil)
		})

		Convey("An empty password is refused", func() {
			_, err := execute("", "hash-password")
			So(err, ShouldNotBeNil)
		})
	})
}

func TestUsers(t *testing.T) {
	Convey("Given the default roster", t, func() {
		t.Setenv("ROUTINE_STORE__DRIVER", "memory")

		out, err := execute("", "users")
		So(err, ShouldBeNil)
		So(out, ShouldStartWith, "user1\tGymnast 1\n")
		So(strings.Count(out, "\n"), ShouldEqual, 18)
	})
}

func TestUsersStored(t *testing.T) {
	Convey("Given a bolt store with one roster record and one stray record", t, func() {
		dbPath := filepath.Join(t.TempDir(), "routines.db")
		t.Setenv("ROUTINE_STORE__DRIVER", "bolt")
		t.Setenv("ROUTINE_STORE__PATH", dbPath)

		store, err := repository.OpenBolt(dbPath)
		So(err, ShouldBeNil)
		So(store.Save(context.Background(), "user2", model.NewUserData("Gymnast 2")), ShouldBeNil)
		So(store.Save(context.Background(), "retired", model.NewUserData("Old Timer")), ShouldBeNil)
		So(store.Close(), ShouldBeNil)

		out, err := execute("", "users", "--stored")
		So(err, ShouldBeNil)

		Convey("Then each roster user is marked and the stray id trails the roster", func() {
			lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
			So(lines, ShouldHaveLength, 19)
			So(lines[0], ShouldEqual, "user1\tGymnast 1\tno")
			So(lines[1], ShouldEqual, "user2\tGymnast 2\tyes")
			So(lines[18], ShouldEqual, "retired\t\tyes")
		})
	})
}

func TestExport(t *testing.T) {
	Convey("Given a bolt store holding one routine", t, func() {
		dir := t.TempDir()
		dbPath := filepath.Join(dir, "routines.db")
		t.Setenv("ROUTINE_STORE__DRIVER", "bolt")
		t.Setenv("ROUTINE_STORE__PATH", dbPath)

		store, err := repository.OpenBolt(dbPath)
		So(err, ShouldBeNil)
		data := model.NewUserData("Gymnast 1")
		data.ReplaceRoutine(model.HB, model.Routine{{Name: "Kovacs", Value: model.ValueOf(0.5)}})
		So(store.Save(context.Background(), "user1", data), ShouldBeNil)
		So(store.Close(), ShouldBeNil)

		Convey("When exported", func() {
			out := filepath.Join(dir, "out.xlsx")
			_, err := execute("", "export", "--out", out)
			So(err, ShouldBeNil)

			Convey("Then the workbook holds the routine", func() {
				f, err := excelize.OpenFile(out)
				So(err, ShouldBeNil)
				defer f.Close()
				So(f.GetSheetList(), ShouldResemble, []string{export.RoutinesSheet})
				v, err := f.GetCellValue(export.RoutinesSheet, "C2")
				So(err, ShouldBeNil)
				So(v, ShouldEqual, "Kovacs")
			})
		})
	})

	Convey("Given an empty memory store", t, func() {
		t.Setenv("ROUTINE_STORE__DRIVER", "memory")

		_, err := execute("", "export", "--out", filepath.Join(t.TempDir(), "out.xlsx"))
		So(err, ShouldNotBeNil)
	})
}
