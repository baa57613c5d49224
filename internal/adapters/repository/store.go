// Package repository persists one JSON user record per user id.
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/okian/routinerec/internal/domain/model"
)

// Store loads and saves whole user records. Saves replace the stored record;
// concurrent writers race and the last write wins.
type Store interface {
	// Load returns ErrNotFound when no record exists for id.
	Load(ctx context.Context, id string) (model.UserData, error)
	Save(ctx context.Context, id string, data model.UserData) error
}

// Backend is a Store owning an underlying handle.
type Backend interface {
	Store
	Close() error
}

func checkID(id string) error {
	if strings.TrimSpace(id) == "" {
		return ErrInvalidID
	}
	return nil
}

func encode(data model.UserData) ([]byte, error) {
	data.Normalize()
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal user data: %w", err)
	}
	return payload, nil
}

func decode(payload []byte) (model.UserData, error) {
	var data model.UserData
	if err := json.Unmarshal(payload, &data); err != nil {
		return model.UserData{}, fmt.Errorf("unmarshal user data: %w", err)
	}
	data.Normalize()
	return data, nil
}

// Lister enumerates stored user ids.
type Lister interface {
	IDs(ctx context.Context) ([]string, error)
}
