package seeder

import (
	"math/rand/v2"

	"github.com/google/uuid"

	"github.com/okian/routinerec/internal/domain/model"
	"github.com/okian/routinerec/internal/domain/types"
)

// Extra alternates stored beyond the primary lineup.
const alternatesPerRoutine = 3

// Session shape probabilities, in percent.
const (
	swapPercent          = 30
	notApplicablePercent = 10
	unsetPercent         = 10
	stuckPercent         = 50
)

// Deductions and values are drawn in tenths up to these bounds.
const (
	maxDeductionTenths = 5
	maxValueTenths     = 6
)

var catalog = map[model.Event][]string{
	model.FX: {"Round-off", "Back Handspring", "Double Back", "Full Twist", "Double Twist", "Front Layout", "Arabian", "Thomas Flair", "Press Handstand", "Split Leap", "Triple Twist", "Rudi", "Double Arabian", "Wolf Turn"},
	model.PH: {"Circle", "Flair", "Scissor", "Russian", "Magyar", "Sivado", "Loop", "Kehre", "Wende", "Busnari", "Stockli", "Handstand Dismount", "Roth"},
	model.SR: {"Kip", "Back Uprise", "Iron Cross", "Maltese", "Planche", "Azarian", "Yamawaki", "Guczoghy", "Jonasson", "Honma", "Double Layout", "Full-in Dismount", "Nakayama"},
	model.VT: {"Yurchenko", "Tsukahara", "Handspring Front", "Kasamatsu", "Dragulescu"},
	model.PB: {"Kip", "Cast", "Giant", "Healy", "Stalder", "Tkatchev", "Diamidov", "Double Pike", "Pak Salto", "Belle", "Morisue", "Peach Basket", "Moy"},
	model.HB: {"Kip", "Giant", "Kovacs", "Tkatchev", "Endo", "Stalder", "Adler", "Yamawaki", "Cassina", "Kolman", "Pirouette", "Double Double", "Release"},
}

// Session is one generated submission.
type Session struct {
	UserID         string
	IdempotencyKey string
	Request        types.SubmissionRequest
}

// Plan is everything one run records.
type Plan struct {
	Routines map[string]map[model.Event]model.Routine
	Sessions []Session
	// Replays resend earlier sessions under the same idempotency key.
	Replays []Session
}

// Generate builds a plan for users. Equal configs and users give equal plans,
// except for idempotency keys.
func Generate(cfg Config, users []string) Plan {
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	p := Plan{Routines: make(map[string]map[model.Event]model.Routine, len(users))}

	for _, id := range users {
		routines := make(map[model.Event]model.Routine, len(cfg.Events))
		for _, e := range cfg.Events {
			routines[e] = generateRoutine(rng, e)
		}
		p.Routines[id] = routines

		for range cfg.Sessions {
			e := cfg.Events[rng.IntN(len(cfg.Events))]
			p.Sessions = append(p.Sessions, Session{
				UserID:         id,
				IdempotencyKey: uuid.NewString(),
				Request:        generateRequest(rng, e, routines[e]),
			})
		}
	}

	for i := 0; i < cfg.Replays && len(p.Sessions) > 0; i++ {
		p.Replays = append(p.Replays, p.Sessions[rng.IntN(len(p.Sessions))])
	}
	return p
}

func generateRoutine(rng *rand.Rand, e model.Event) model.Routine {
	names := catalog[e]
	n := min(e.RequiredCount()+alternatesPerRoutine, len(names))
	out := make(model.Routine, 0, n)
	for _, i := range rng.Perm(len(names))[:n] {
		out = append(out, model.Skill{
			Name:  names[i],
			Value: model.ValueOf(float64(rng.IntN(maxValueTenths)+1) / 10),
		})
	}
	return out
}

func generateRequest(rng *rand.Rand, e model.Event, r model.Routine) types.SubmissionRequest {
	required := e.RequiredCount()
	req := types.SubmissionRequest{Event: e}

	if alternates := len(r) - required; alternates > 0 && rng.IntN(100) < swapPercent {
		req.Swaps = []types.Swap{{Slot: rng.IntN(required), Alternate: rng.IntN(alternates)}}
	}

	req.Deductions = make([]model.Deduction, required)
	for i := range req.Deductions {
		switch roll := rng.IntN(100); {
		case roll < notApplicablePercent:
			req.Deductions[i] = model.NotApplicable()
		case roll < notApplicablePercent+unsetPercent:
			req.Deductions[i] = model.Unset()
		default:
			req.Deductions[i] = model.DeductionOf(float64(rng.IntN(maxDeductionTenths+1)) / 10)
		}
	}

	if !e.IsVault() {
		stuck := rng.IntN(100) < stuckPercent
		req.StuckDismount = &stuck
	}
	return req
}
