package seeder

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/okian/routinerec/internal/domain/model"
	"github.com/okian/routinerec/internal/domain/stats"
)

// ErrMismatch reports a breakdown that disagrees with the stored record.
var ErrMismatch = errors.New("breakdown mismatch")

// verify loads the user's record, checks that every recorded id is present
// and compares the served breakdown against one computed from the record.
func (r *Runner) verify(ctx context.Context, userID string, recorded []model.SubmissionID) error {
	data, err := r.client.User(ctx, userID)
	if err != nil {
		return fmt.Errorf("load %s: %w", userID, err)
	}
	for _, id := range recorded {
		if _, ok := data.FindSubmission(id); !ok {
			return fmt.Errorf("%w: %s: submission %s missing", ErrMismatch, userID, id)
		}
	}

	served, err := r.client.Breakdown(ctx, userID)
	if err != nil {
		return fmt.Errorf("breakdown %s: %w", userID, err)
	}
	if served.Incomplete {
		return fmt.Errorf("%w: %s: snapshot incomplete, missing %v", ErrMismatch, userID, served.Missing)
	}

	entries := []model.UserEntry{{User: model.User{ID: userID}, Data: data}}
	want := stats.Breakdown(entries, stats.Filter{UserID: userID})
	if diff := cmp.Diff(want, served.Rows, cmpopts.EquateEmpty()); diff != "" {
		return fmt.Errorf("%w: %s (-want +got):\n%s", ErrMismatch, userID, diff)
	}
	return nil
}
