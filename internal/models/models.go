package models

import (
	"time"

	"github.com/google/uuid"
)

type PictureKind string

const (
	KindMain PictureKind = "main"
	KindMove PictureKind = "move"
)

// Duration limits and defaults shared by the store and the normalizers.
const (
	DefaultMoveSec     = 2.0
	DefaultHoldMainSec = 1.0
	MinHoldSec         = 0.0
	MaxHoldSec         = 60.0
	MinMoveSec         = 0.1
	MaxMoveSec         = 60.0

	// EpsilonMoveSec is the minimum transition length used during pose
	// interpolation so a zero-length move never divides by zero.
	EpsilonMoveSec = 0.001

	// InsertMoveFloorSec is the smallest move duration AddPictureAtTime may
	// shrink a preceding picture to when splitting a segment.
	InsertMoveFloorSec = 0.2

	MaxVersions = 50
)

type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Picture is a named formation. Positions may be partial: dancers absent from
// the map inherit their position from the nearest earlier picture that defines
// one.
type Picture struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Kind      PictureKind     `json:"kind"`
	Positions map[string]Vec2 `json:"positions"`
	HoldSec   float64         `json:"holdSec"`
	MoveSec   float64         `json:"moveSec"`
}

// Sequence is one choreography unit: an ordered picture list, optionally bound
// to a region of the loaded audio. The music fields are pointers so that an
// unbound sequence round-trips as "absent", never as zero seconds.
type Sequence struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	CreatedAt     int64     `json:"createdAt"`
	Pictures      []Picture `json:"pictures"`
	MusicStartSec *float64  `json:"musicStartSec,omitempty"`
	MusicEndSec   *float64  `json:"musicEndSec,omitempty"`
}

// Snapshot is the versionable project state.
type Snapshot struct {
	Sequences        []Sequence `json:"sequences"`
	ActiveSequenceID string     `json:"activeSequenceId"`
}

// Version is an immutable deep snapshot of the project.
type Version struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	CreatedAt int64    `json:"createdAt"`
	Snapshot  Snapshot `json:"snapshot"`
}

func NewSequence(name string) *Sequence {
	return &Sequence{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedAt: time.Now().UnixMilli(),
		Pictures:  []Picture{},
	}
}

// NewPicture applies the kind-aware duration defaults: Main pictures hold for
// one second on arrival, Move pictures do not hold at all.
func NewPicture(name string, kind PictureKind, positions map[string]Vec2) *Picture {
	if kind != KindMove {
		kind = KindMain
	}
	hold := DefaultHoldMainSec
	if kind == KindMove {
		hold = 0
	}
	if positions == nil {
		positions = map[string]Vec2{}
	}
	return &Picture{
		ID:        uuid.New().String(),
		Name:      name,
		Kind:      kind,
		Positions: positions,
		HoldSec:   hold,
		MoveSec:   DefaultMoveSec,
	}
}

func NewVersion(name string, snapshot Snapshot) *Version {
	return &Version{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedAt: time.Now().UnixMilli(),
		Snapshot:  snapshot,
	}
}

// Clone returns a deep copy. Stored versions must never alias live state.
func (p Picture) Clone() Picture {
	out := p
	out.Positions = make(map[string]Vec2, len(p.Positions))
	for id, pos := range p.Positions {
		out.Positions[id] = pos
	}
	return out
}

func (s Sequence) Clone() Sequence {
	out := s
	out.Pictures = make([]Picture, len(s.Pictures))
	for i, p := range s.Pictures {
		out.Pictures[i] = p.Clone()
	}
	if s.MusicStartSec != nil {
		v := *s.MusicStartSec
		out.MusicStartSec = &v
	}
	if s.MusicEndSec != nil {
		v := *s.MusicEndSec
		out.MusicEndSec = &v
	}
	return out
}

func CloneSequences(seqs []Sequence) []Sequence {
	out := make([]Sequence, len(seqs))
	for i, s := range seqs {
		out[i] = s.Clone()
	}
	return out
}

func (s Snapshot) Clone() Snapshot {
	return Snapshot{
		Sequences:        CloneSequences(s.Sequences),
		ActiveSequenceID: s.ActiveSequenceID,
	}
}

func (v Version) Clone() Version {
	out := v
	out.Snapshot = v.Snapshot.Clone()
	return out
}

func CloneVersions(vs []Version) []Version {
	out := make([]Version, len(vs))
	for i, v := range vs {
		out[i] = v.Clone()
	}
	return out
}

// HasMusicClip reports whether the sequence is bound to a valid audio region.
func (s *Sequence) HasMusicClip() bool {
	return s.MusicStartSec != nil && s.MusicEndSec != nil && *s.MusicEndSec > *s.MusicStartSec
}

// NormalizePicture backfills fields that older snapshots may lack: an empty
// kind becomes Main, a non-positive move duration falls back to the default,
// and a nil position map becomes empty.
func NormalizePicture(p *Picture) {
	if p.Kind != KindMove {
		p.Kind = KindMain
	}
	if p.MoveSec <= 0 {
		p.MoveSec = DefaultMoveSec
	}
	if p.HoldSec < 0 {
		p.HoldSec = 0
	}
	if p.Positions == nil {
		p.Positions = map[string]Vec2{}
	}
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
}

// NormalizeSequence applies NormalizePicture to every picture and clears an
// inverted music region (end <= start is never valid).
func NormalizeSequence(s *Sequence) {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.Pictures == nil {
		s.Pictures = []Picture{}
	}
	for i := range s.Pictures {
		NormalizePicture(&s.Pictures[i])
	}
	if s.MusicStartSec != nil && s.MusicEndSec != nil && *s.MusicEndSec <= *s.MusicStartSec {
		s.MusicStartSec = nil
		s.MusicEndSec = nil
	}
}
