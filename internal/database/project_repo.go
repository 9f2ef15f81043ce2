package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/plorberg/Choreo/internal/export"
	"github.com/plorberg/Choreo/internal/models"
)

// Persisted state is two key-value rows holding the same JSON shapes as the
// export envelope: one for the sequence list plus active selection, one for
// the version history. Loads run through the export normalizer so legacy
// payloads written by older schema generations come back in the current
// shape.
const (
	keySequences = "sequences"
	keyVersions  = "versions"
)

type ProjectRepository struct {
	db *DB
}

func NewProjectRepository(db *DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

type sequencesPayload struct {
	Sequences        json.RawMessage `json:"sequences"`
	ActiveSequenceID string          `json:"activeSequenceId"`
}

func (r *ProjectRepository) SaveProject(ctx context.Context, sequences []models.Sequence, activeID string) error {
	seqJSON, err := json.Marshal(sequences)
	if err != nil {
		return fmt.Errorf("failed to marshal sequences: %w", err)
	}
	payload, err := json.Marshal(sequencesPayload{
		Sequences:        seqJSON,
		ActiveSequenceID: activeID,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal project payload: %w", err)
	}
	return r.upsert(ctx, keySequences, payload)
}

func (r *ProjectRepository) LoadProject(ctx context.Context) ([]models.Sequence, string, error) {
	raw, err := r.load(ctx, keySequences)
	if err != nil {
		return nil, "", err
	}
	if raw == nil {
		return nil, "", nil
	}

	var payload sequencesPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, "", fmt.Errorf("failed to unmarshal project payload: %w", err)
	}
	if len(payload.Sequences) == 0 {
		return nil, "", nil
	}
	sequences, err := export.ParseSequences(payload.Sequences)
	if err != nil {
		return nil, "", fmt.Errorf("failed to parse stored sequences: %w", err)
	}
	return sequences, payload.ActiveSequenceID, nil
}

func (r *ProjectRepository) SaveVersions(ctx context.Context, versions []models.Version) error {
	payload, err := json.Marshal(versions)
	if err != nil {
		return fmt.Errorf("failed to marshal versions: %w", err)
	}
	return r.upsert(ctx, keyVersions, payload)
}

func (r *ProjectRepository) LoadVersions(ctx context.Context) ([]models.Version, error) {
	raw, err := r.load(ctx, keyVersions)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	versions, err := export.ParseVersions(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse stored versions: %w", err)
	}
	return versions, nil
}

func (r *ProjectRepository) upsert(ctx context.Context, key string, payload []byte) error {
	query := `
		INSERT INTO project_state (key, payload, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			payload = excluded.payload,
			updated_at = excluded.updated_at`

	_, err := r.db.conn.ExecContext(ctx, query, key, string(payload), time.Now())
	if err != nil {
		return fmt.Errorf("failed to store %s: %w", key, err)
	}
	return nil
}

func (r *ProjectRepository) load(ctx context.Context, key string) ([]byte, error) {
	var payload string
	err := r.db.conn.QueryRowContext(ctx,
		"SELECT payload FROM project_state WHERE key = ?", key).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", key, err)
	}
	return []byte(payload), nil
}
