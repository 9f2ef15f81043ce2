// Package export implements the project file format: a versioned JSON
// envelope carrying sequences, the active selection, and optionally the
// version history. Two schema tags are accepted on import; normalization
// chains v1 through v2 into the current in-memory shape.
package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/plorberg/Choreo/internal/models"
)

const (
	SchemaV1 = "choreo-export-v1"
	SchemaV2 = "choreo-export-v2"
)

// ErrInvalidFormat marks a payload whose schema tag or top-level shape is not
// recognized. Nothing else is rejected: field-level gaps are default-filled.
var ErrInvalidFormat = errors.New("invalid export format")

type Envelope struct {
	Schema           string            `json:"schema"`
	ExportedAt       int64             `json:"exportedAt"`
	Sequences        []models.Sequence `json:"sequences"`
	ActiveSequenceID string            `json:"activeSequenceId"`
	Versions         []models.Version  `json:"versions,omitempty"`
}

// Build produces a v2 envelope with a fresh timestamp. The caller passes
// already-cloned data; Build itself does not copy.
func Build(sequences []models.Sequence, activeID string, versions []models.Version, includeVersions bool) Envelope {
	env := Envelope{
		Schema:           SchemaV2,
		ExportedAt:       time.Now().UnixMilli(),
		Sequences:        sequences,
		ActiveSequenceID: activeID,
	}
	if includeVersions {
		env.Versions = versions
	}
	return env
}

// Raw shapes accept every field name any schema generation ever used, so a
// single decode pass can normalize v1, v2, and legacy persisted data.

type rawPicture struct {
	ID        string                 `json:"id"`
	Name      string                 `json:"name"`
	Kind      string                 `json:"kind"`
	Positions map[string]models.Vec2 `json:"positions"`
	HoldSec   *float64               `json:"holdSec"`
	MoveSec   *float64               `json:"moveSec"`
	ToNextSec *float64               `json:"toNextSec"`
}

type rawSequence struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	CreatedAt     int64        `json:"createdAt"`
	Pictures      []rawPicture `json:"pictures"`
	MusicStartSec *float64     `json:"musicStartSec"`
	MusicEndSec   *float64     `json:"musicEndSec"`
}

type rawSnapshot struct {
	Sequences        []rawSequence `json:"sequences"`
	ActiveSequenceID string        `json:"activeSequenceId"`
}

type rawVersion struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	CreatedAt int64       `json:"createdAt"`
	Snapshot  rawSnapshot `json:"snapshot"`
}

type rawEnvelope struct {
	Schema           string          `json:"schema"`
	ExportedAt       int64           `json:"exportedAt"`
	Sequences        json.RawMessage `json:"sequences"`
	ActiveSequenceID string          `json:"activeSequenceId"`
	Versions         []rawVersion    `json:"versions"`
}

// Parse validates and normalizes an exported payload. Only two things are
// fatal: an unknown schema tag and a sequences field that is not an array.
// Everything else is recovered by default-filling.
func Parse(data []byte) (*Envelope, error) {
	var raw rawEnvelope
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	if raw.Schema != SchemaV1 && raw.Schema != SchemaV2 {
		return nil, fmt.Errorf("%w: unknown schema %q", ErrInvalidFormat, raw.Schema)
	}

	var rawSeqs []rawSequence
	if len(raw.Sequences) == 0 {
		return nil, fmt.Errorf("%w: missing sequences array", ErrInvalidFormat)
	}
	if err := json.Unmarshal(raw.Sequences, &rawSeqs); err != nil {
		return nil, fmt.Errorf("%w: sequences is not an array", ErrInvalidFormat)
	}

	env := &Envelope{
		Schema:           raw.Schema,
		ExportedAt:       raw.ExportedAt,
		Sequences:        normalizeSequences(rawSeqs),
		ActiveSequenceID: raw.ActiveSequenceID,
	}
	for _, rv := range raw.Versions {
		env.Versions = append(env.Versions, normalizeVersion(rv))
	}
	return env, nil
}

// ParseSequences normalizes a bare sequence-list payload, the shape the
// persistence layer stores.
func ParseSequences(data []byte) ([]models.Sequence, error) {
	var rawSeqs []rawSequence
	if err := json.Unmarshal(data, &rawSeqs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	return normalizeSequences(rawSeqs), nil
}

// ParseVersions normalizes a bare version-list payload.
func ParseVersions(data []byte) ([]models.Version, error) {
	var rawVs []rawVersion
	if err := json.Unmarshal(data, &rawVs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	out := make([]models.Version, 0, len(rawVs))
	for _, rv := range rawVs {
		out = append(out, normalizeVersion(rv))
	}
	return out, nil
}

func normalizeSequences(raw []rawSequence) []models.Sequence {
	out := make([]models.Sequence, 0, len(raw))
	for _, rs := range raw {
		out = append(out, normalizeSequence(rs))
	}
	return out
}

func normalizeSequence(rs rawSequence) models.Sequence {
	seq := models.Sequence{
		ID:            rs.ID,
		Name:          rs.Name,
		CreatedAt:     rs.CreatedAt,
		Pictures:      make([]models.Picture, 0, len(rs.Pictures)),
		MusicStartSec: rs.MusicStartSec,
		MusicEndSec:   rs.MusicEndSec,
	}
	for _, rp := range rs.Pictures {
		seq.Pictures = append(seq.Pictures, normalizePicture(rp))
	}
	models.NormalizeSequence(&seq)
	return seq
}

// normalizePicture backfills the kind-aware duration model from whichever
// generation of fields the payload carries. Move duration prefers moveSec,
// then the legacy toNextSec, then the default. Hold defaults by kind.
func normalizePicture(rp rawPicture) models.Picture {
	kind := models.KindMain
	if rp.Kind == string(models.KindMove) {
		kind = models.KindMove
	}

	move := models.DefaultMoveSec
	switch {
	case rp.MoveSec != nil:
		move = *rp.MoveSec
	case rp.ToNextSec != nil:
		move = *rp.ToNextSec
	}

	var hold float64
	switch {
	case rp.HoldSec != nil:
		hold = *rp.HoldSec
	case kind == models.KindMain:
		hold = models.DefaultHoldMainSec
	default:
		hold = 0
	}

	id := rp.ID
	if id == "" {
		id = uuid.New().String()
	}
	positions := rp.Positions
	if positions == nil {
		positions = map[string]models.Vec2{}
	}

	return models.Picture{
		ID:        id,
		Name:      rp.Name,
		Kind:      kind,
		Positions: positions,
		HoldSec:   hold,
		MoveSec:   move,
	}
}

func normalizeVersion(rv rawVersion) models.Version {
	id := rv.ID
	if id == "" {
		id = uuid.New().String()
	}
	return models.Version{
		ID:        id,
		Name:      rv.Name,
		CreatedAt: rv.CreatedAt,
		Snapshot: models.Snapshot{
			Sequences:        normalizeSequences(rv.Snapshot.Sequences),
			ActiveSequenceID: rv.Snapshot.ActiveSequenceID,
		},
	}
}
