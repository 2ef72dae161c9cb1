package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

type credentialRepo struct {
	db *sql.DB
}

func (r *credentialRepo) Save(ctx context.Context, slot string, cred Credential) error {
	savedAt := cred.SavedAt
	if savedAt.IsZero() {
		savedAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO credentials (slot, token, saved_at) VALUES (?, ?, ?)
		ON CONFLICT(slot) DO UPDATE SET token = excluded.token, saved_at = excluded.saved_at`,
		slot, cred.Token, savedAt.UTC().UnixNano())
	if err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	return nil
}

func (r *credentialRepo) Load(ctx context.Context, slot string) (*Credential, error) {
	var cred Credential
	var savedAt int64
	err := r.db.QueryRowContext(ctx,
		`SELECT token, saved_at FROM credentials WHERE slot = ?`, slot,
	).Scan(&cred.Token, &savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load credential: %w", err)
	}
	cred.SavedAt = time.Unix(0, savedAt).UTC()
	return &cred, nil
}

func (r *credentialRepo) Delete(ctx context.Context, slot string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM credentials WHERE slot = ?`, slot); err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	return nil
}
