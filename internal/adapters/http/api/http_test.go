package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"golang.org/x/crypto/bcrypt"

	"github.com/okian/routinerec/internal/adapters/http/api"
	"github.com/okian/routinerec/internal/adapters/repository"
	service "github.com/okian/routinerec/internal/app"
	"github.com/okian/routinerec/internal/domain/model"
	"github.com/okian/routinerec/pkg/logger"
)

var roster = []model.User{{ID: "user1", DisplayName: "Gymnast 1"}, {ID: "user2", DisplayName: "Gymnast 2"}}

type downStore struct{}

func (downStore) Load(context.Context, string) (model.UserData, error) {
	return model.UserData{}, repository.ErrUnavailable
}

func (downStore) Save(context.Context, string, model.UserData) error {
	return repository.ErrUnavailable
}

func newHandler(t *testing.T, store repository.Store, opts ...api.Option) http.Handler {
	t.Helper()
	svc, err := service.New(store, roster, service.WithLogger(logger.Nop()))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	opts = append([]api.Option{api.WithLogger(logger.Nop())}, opts...)
	srv := api.NewServer(svc, opts...)
	mux := http.NewServeMux()
	srv.Register(context.Background(), mux)
	return srv.Handler(mux)
}

func do(h http.Handler, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, http.NoBody)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

const pbRoutine = `{"skills":[
 {"name":"Kip","value":0.1},{"name":"Cast","value":0.1},{"name":"Giant","value":0.2},{"name":"Healy","value":0.4},
 {"name":"Stalder","value":0.3},{"name":"Tkatchev","value":0.5},{"name":"Diamidov","value":0.4},{"name":"Double Pike","value":0.5},
 {"name":"Pak Salto","value":0.5},{"name":"","value":0.1}]}`

func TestRoutineFlow(t *testing.T) {
	Convey("Given the API over an empty store", t, func() {
		h := newHandler(t, repository.NewMemoryStore())

		Convey("The roster is listed", func() {
			w := do(h, http.MethodGet, "/users", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"name":"Gymnast 2"`)
			So(w.Header().Get("X-Request-ID"), ShouldNotBeEmpty)
		})

		Convey("A user record is created on first read", func() {
			w := do(h, http.MethodGet, "/users/user1", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"userName":"Gymnast 1"`)
		})

		Convey("An unknown user is not found", func() {
			So(do(h, http.MethodGet, "/users/ghost", "").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("An empty event reads back as the blank template", func() {
			w := do(h, http.MethodGet, "/users/user1/routines/VT", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"template":true`)
			So(w.Body.String(), ShouldContainSubstring, `"name":"Skill 2"`)
			So(strings.Count(w.Body.String(), `"name"`), ShouldEqual, 2)
		})

		Convey("When a routine is stored", func() {
			w := do(h, http.MethodPut, "/users/user1/routines/pb", pbRoutine)
			So(w.Code, ShouldEqual, http.StatusOK)

			Convey("Then the nameless skill is dropped and the lineup splits", func() {
				So(strings.Count(w.Body.String(), `"name"`), ShouldEqual, 9)
				lw := do(h, http.MethodGet, "/users/user1/routines/PB/lineup", "")
				So(lw.Code, ShouldEqual, http.StatusOK)
				var l struct {
					Primary    []json.RawMessage `json:"primary"`
					Alternates []json.RawMessage `json:"alternates"`
				}
				So(json.Unmarshal(lw.Body.Bytes(), &l), ShouldBeNil)
				So(l.Primary, ShouldHaveLength, 8)
				So(l.Alternates, ShouldHaveLength, 1)
			})

			Convey("Then it reads back as stored", func() {
				rw := do(h, http.MethodGet, "/users/user1/routines/PB", "")
				So(rw.Code, ShouldEqual, http.StatusOK)
				So(rw.Body.String(), ShouldContainSubstring, `"template":false`)
				So(rw.Body.String(), ShouldContainSubstring, `"name":"Pak Salto"`)
			})

			Convey("Then a submission is recorded once per idempotency key", func() {
				body := `{"event":"PB","swaps":[{"slot":0,"alternate":0}],"deductions":[0.1,0.3,0.1,0.1,0.1,0.1,"N/A",0.5]}`
				w := do(h, http.MethodPost, "/users/user1/submissions", body, "Idempotency-Key", "abc")
				So(w.Code, ShouldEqual, http.StatusCreated)
				var sub model.Submission
				So(json.Unmarshal(w.Body.Bytes(), &sub), ShouldBeNil)
				So(sub.IsComplete, ShouldBeFalse)
				So(sub.Skills, ShouldHaveLength, 7)
				So(sub.Skills[0].Name, ShouldEqual, "Pak Salto")

				again := do(h, http.MethodPost, "/users/user1/submissions", body, "Idempotency-Key", "abc")
				So(again.Code, ShouldEqual, http.StatusConflict)

				list := do(h, http.MethodGet, "/users/user1/submissions?event=PB&days=30", "")
				So(list.Code, ShouldEqual, http.StatusOK)
				So(strings.Count(list.Body.String(), `"id"`), ShouldEqual, 1)

				bd := do(h, http.MethodGet, "/stats/breakdown?event=PB", "")
				So(bd.Code, ShouldEqual, http.StatusOK)
				So(bd.Body.String(), ShouldContainSubstring, `"name":"Cast","avg":0.3`)

				cmp := do(h, http.MethodGet, "/stats/comparison?event=PB&dismounts=true", "")
				So(cmp.Code, ShouldEqual, http.StatusOK)
				So(cmp.Body.String(), ShouldContainSubstring, "Gymnast 1 (Double Pike)")

				del := do(h, http.MethodDelete, "/users/user1/submissions/"+sub.ID.String(), "")
				So(del.Code, ShouldEqual, http.StatusNoContent)
				So(do(h, http.MethodDelete, "/users/user1/submissions/"+sub.ID.String(), "").Code, ShouldEqual, http.StatusNotFound)
			})

			Convey("Then the workbook downloads", func() {
				w := do(h, http.MethodGet, "/export.xlsx", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldStartWith, "application/vnd.openxmlformats")
			})
		})

		Convey("Bad input is rejected", func() {
			So(do(h, http.MethodPut, "/users/user1/routines/XX", pbRoutine).Code, ShouldEqual, http.StatusBadRequest)
			So(do(h, http.MethodGet, "/stats/breakdown?days=365", "").Code, ShouldEqual, http.StatusBadRequest)
			So(do(h, http.MethodGet, "/stats/comparison?dismounts=maybe", "").Code, ShouldEqual, http.StatusBadRequest)
			So(do(h, http.MethodPost, "/users/user1/submissions", `{"event":"PB","deductions":[-1]}`).Code, ShouldEqual, http.StatusBadRequest)
			So(do(h, http.MethodDelete, "/users/user1/submissions/nope", "").Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("Non-finite numbers are bad input, not a storage failure", func() {
			So(do(h, http.MethodPut, "/users/user1/routines/VT", `{"skills":[{"name":"Yurchenko","value":"+Inf"}]}`).Code, ShouldEqual, http.StatusBadRequest)
			So(do(h, http.MethodPut, "/users/user1/routines/VT", `{"skills":[{"name":"Yurchenko","value":4.2},{"name":"Tsuk","value":4.0}]}`).Code, ShouldEqual, http.StatusOK)
			for _, d := range []string{`"NaN"`, `"Inf"`} {
				w := do(h, http.MethodPost, "/users/user1/submissions", `{"event":"VT","deductions":[`+d+`,0.3]}`)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			}
			So(do(h, http.MethodPost, "/suggestions", `{"event":"VT","skills":[{"name":"Tsuk","value":4.0,"deduction":"NaN"}]}`).Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("An event without a routine cannot be submitted", func() {
			So(do(h, http.MethodPost, "/users/user1/submissions", `{"event":"FX"}`).Code, ShouldEqual, http.StatusUnprocessableEntity)
		})

		Convey("Export with no data is not found", func() {
			So(do(h, http.MethodGet, "/export.xlsx", "").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("Suggestions for unscored skills come back empty", func() {
			w := do(h, http.MethodPost, "/suggestions", `{"event":"HB","skills":[{"name":"Kovacs","value":0.5,"deduction":"N/A","isDismount":false}]}`)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"suggestions":[]`)
		})

		Convey("Metrics are served", func() {
			So(do(h, http.MethodGet, "/healthz", "").Code, ShouldEqual, http.StatusOK)
		})
	})
}

func TestStorageDown(t *testing.T) {
	Convey("Given the API over a failing store", t, func() {
		h := newHandler(t, downStore{})

		Convey("Then reads answer 503 with a fixed message", func() {
			w := do(h, http.MethodGet, "/users/user1", "")
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
			So(w.Body.String(), ShouldContainSubstring, "storage is unavailable")
		})

		Convey("Then a refresh answers 503", func() {
			So(do(h, http.MethodPost, "/stats/refresh", "").Code, ShouldEqual, http.StatusServiceUnavailable)
		})
	})
}

func TestPasswordGate(t *testing.T) {
	Convey("Given a server with a password", t, func() {
		hash, err := bcrypt.GenerateFromPassword([]byte("vault"), bcrypt.MinCost)
		So(err, ShouldBeNil)
		h := newHandler(t, repository.NewMemoryStore(), api.WithPasswordHash(string(hash)))

		Convey("Requests without it are refused", func() {
			So(do(h, http.MethodGet, "/users", "").Code, ShouldEqual, http.StatusUnauthorized)
			So(do(h, http.MethodGet, "/users", "", "X-Password", "wrong").Code, ShouldEqual, http.StatusUnauthorized)
		})

		Convey("The header or basic auth admit the request", func() {
			So(do(h, http.MethodGet, "/users", "", "X-Password", "vault").Code, ShouldEqual, http.StatusOK)

			req := httptest.NewRequest(http.MethodGet, "/users", http.NoBody)
			req.SetBasicAuth("coach", "vault")
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("Operational endpoints stay open", func() {
			So(do(h, http.MethodGet, "/status", "").Code, ShouldEqual, http.StatusOK)
		})
	})
}

func TestErrors(t *testing.T) {
	Convey("Given a wrapped kind", t, func() {
		cause := model.ErrNegativeNumber
		err := api.WrapKind("api.op", api.ErrBadRequest, cause)

		So(err.Error(), ShouldStartWith, "api.op: ")
		So(errors.Is(err, api.ErrBadRequest), ShouldBeTrue)
		So(errors.Is(err, model.ErrNegativeNumber), ShouldBeTrue)
		So(api.Wrap("op", nil), ShouldBeNil)
		So(api.NewKind("op", api.ErrNotFound).Error(), ShouldEqual, "op: not found")
	})
}
