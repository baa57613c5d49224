package api

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/okian/routinerec/internal/domain/model"
)

// queryEvent reads an optional event filter.
func queryEvent(q url.Values) (model.Event, error) {
	raw := q.Get("event")
	if raw == "" || strings.EqualFold(raw, "all") {
		return "", nil
	}
	return model.ParseEvent(raw)
}

// queryDays reads the recency window. Empty or "all" means no window.
func queryDays(q url.Values, maxDays int) (int, error) {
	raw := q.Get("days")
	if raw == "" || strings.EqualFold(raw, "all") {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: days must be a non-negative integer or \"all\"", ErrBadRequest)
	}
	if n > maxDays {
		return 0, fmt.Errorf("%w: days must be at most %d", ErrBadRequest, maxDays)
	}
	return n, nil
}

func queryBool(q url.Values, key string) (bool, error) {
	raw := q.Get(key)
	if raw == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%w: %s must be a boolean", ErrBadRequest, key)
	}
	return b, nil
}
