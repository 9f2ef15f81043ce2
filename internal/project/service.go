// Package project owns the live editing state: the sequence list, the active
// selection, and the version history. It is the single writer; playback and
// rendering paths only ever read through cloned accessors. Discontinuous
// state changes (restore, import) are announced to subscribers instead of
// being inferred from field diffs.
package project

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/plorberg/Choreo/internal/export"
	"github.com/plorberg/Choreo/internal/models"
	"github.com/plorberg/Choreo/internal/timeline"
)

var (
	ErrNoActiveSequence = errors.New("no active sequence")
	ErrSequenceNotFound = errors.New("sequence not found")
	ErrPictureNotFound  = errors.New("picture not found")
	ErrVersionNotFound  = errors.New("version not found")
	ErrInvalidClipRange = errors.New("clip end must be after clip start")
)

// Event describes a discontinuous state change subscribers may care about.
type Event string

const (
	// EventProjectReplaced fires after restore or import: the whole project
	// was swapped out and playback/selection state is stale.
	EventProjectReplaced Event = "project-replaced"
	// EventActiveSequenceChanged fires when the active selection moves to a
	// different sequence (or to none).
	EventActiveSequenceChanged Event = "active-sequence-changed"
)

// Store persists the project between runs. The persisted shapes are the same
// JSON as the export envelope's sequence and version lists.
type Store interface {
	SaveProject(ctx context.Context, sequences []models.Sequence, activeID string) error
	LoadProject(ctx context.Context) ([]models.Sequence, string, error)
	SaveVersions(ctx context.Context, versions []models.Version) error
	LoadVersions(ctx context.Context) ([]models.Version, error)
}

// Service is the timeline service of the project: one instance per document.
type Service struct {
	mu        sync.Mutex
	sequences []models.Sequence
	activeID  string
	versions  []models.Version

	// loadToken increments on every wholesale replacement so views can tell
	// a discontinuity from an incremental edit.
	loadToken int

	subscribers []func(Event)

	store  Store
	logger *slog.Logger
}

func NewService(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger}
}

// Subscribe registers an event handler. Handlers run synchronously on the
// mutating goroutine, after the mutation completed and the lock is released.
func (s *Service) Subscribe(fn func(Event)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

func (s *Service) emit(ev Event) {
	s.mu.Lock()
	subs := make([]func(Event), len(s.subscribers))
	copy(subs, s.subscribers)
	s.mu.Unlock()
	for _, fn := range subs {
		fn(ev)
	}
}

// Load pulls persisted state in. Missing state is not an error: the service
// simply starts empty.
func (s *Service) Load(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	seqs, activeID, err := s.store.LoadProject(ctx)
	if err != nil {
		return fmt.Errorf("load project: %w", err)
	}
	versions, err := s.store.LoadVersions(ctx)
	if err != nil {
		return fmt.Errorf("load versions: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sequences = seqs
	s.versions = versions
	s.activeID = ""
	if activeID != "" && s.findSequenceLocked(activeID) != nil {
		s.activeID = activeID
	} else if len(seqs) > 0 {
		s.activeID = seqs[0].ID
	}
	return nil
}

// persistLocked rewrites the stored project. Persistence failures are logged,
// never propagated: losing autosave must not fail the edit.
func (s *Service) persistLocked(ctx context.Context) {
	if s.store == nil {
		return
	}
	if err := s.store.SaveProject(ctx, models.CloneSequences(s.sequences), s.activeID); err != nil {
		s.logger.Error("persist project failed", "error", err)
	}
}

func (s *Service) persistVersionsLocked(ctx context.Context) {
	if s.store == nil {
		return
	}
	if err := s.store.SaveVersions(ctx, models.CloneVersions(s.versions)); err != nil {
		s.logger.Error("persist versions failed", "error", err)
	}
}

// Persist rewrites all stored state, for periodic autosave and shutdown.
func (s *Service) Persist(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persistLocked(ctx)
	s.persistVersionsLocked(ctx)
}

func (s *Service) findSequenceLocked(id string) *models.Sequence {
	for i := range s.sequences {
		if s.sequences[i].ID == id {
			return &s.sequences[i]
		}
	}
	return nil
}

func (s *Service) activeLocked() *models.Sequence {
	if s.activeID == "" {
		return nil
	}
	return s.findSequenceLocked(s.activeID)
}

// Sequences returns a deep copy of the sequence list.
func (s *Service) Sequences() []models.Sequence {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.CloneSequences(s.sequences)
}

// ActiveSequence returns a deep copy of the active sequence, or nil.
func (s *Service) ActiveSequence() *models.Sequence {
	s.mu.Lock()
	defer s.mu.Unlock()
	seq := s.activeLocked()
	if seq == nil {
		return nil
	}
	c := seq.Clone()
	return &c
}

func (s *Service) ActiveSequenceID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeID
}

func (s *Service) LoadToken() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadToken
}

// CreateSequence appends a new empty sequence and makes it active.
func (s *Service) CreateSequence(ctx context.Context, name string) models.Sequence {
	s.mu.Lock()
	if name == "" {
		name = fmt.Sprintf("Sequence %d", len(s.sequences)+1)
	}
	seq := models.NewSequence(name)
	s.sequences = append(s.sequences, *seq)
	s.activeID = seq.ID
	s.persistLocked(ctx)
	out := seq.Clone()
	s.mu.Unlock()

	s.emit(EventActiveSequenceChanged)
	return out
}

func (s *Service) RenameSequence(ctx context.Context, id, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	seq := s.findSequenceLocked(id)
	if seq == nil {
		return ErrSequenceNotFound
	}
	seq.Name = name
	s.persistLocked(ctx)
	return nil
}

// DeleteSequence removes a sequence. Deleting the active one promotes the
// first remaining sequence, or clears the selection entirely.
func (s *Service) DeleteSequence(ctx context.Context, id string) error {
	s.mu.Lock()
	idx := -1
	for i := range s.sequences {
		if s.sequences[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return ErrSequenceNotFound
	}
	wasActive := s.activeID == id
	s.sequences = append(s.sequences[:idx], s.sequences[idx+1:]...)
	if wasActive {
		s.activeID = ""
		if len(s.sequences) > 0 {
			s.activeID = s.sequences[0].ID
		}
	}
	s.persistLocked(ctx)
	s.mu.Unlock()

	if wasActive {
		s.emit(EventActiveSequenceChanged)
	}
	return nil
}

func (s *Service) SetActiveSequence(ctx context.Context, id string) error {
	s.mu.Lock()
	if s.findSequenceLocked(id) == nil {
		s.mu.Unlock()
		return ErrSequenceNotFound
	}
	changed := s.activeID != id
	s.activeID = id
	s.persistLocked(ctx)
	s.mu.Unlock()

	if changed {
		s.emit(EventActiveSequenceChanged)
	}
	return nil
}

// AddPicture appends a picture to the active sequence, creating a sequence
// first if the project is still empty.
func (s *Service) AddPicture(ctx context.Context, positions map[string]models.Vec2, name string, kind models.PictureKind) (models.Picture, error) {
	s.mu.Lock()
	seq := s.activeLocked()
	if seq == nil {
		if len(s.sequences) > 0 {
			s.mu.Unlock()
			return models.Picture{}, ErrNoActiveSequence
		}
		created := models.NewSequence("Sequence 1")
		s.sequences = append(s.sequences, *created)
		s.activeID = created.ID
		seq = s.activeLocked()
	}
	if name == "" {
		name = fmt.Sprintf("Picture %d", len(seq.Pictures)+1)
	}
	pic := models.NewPicture(name, kind, clonePositions(positions))
	seq.Pictures = append(seq.Pictures, *pic)
	s.persistLocked(ctx)
	out := pic.Clone()
	s.mu.Unlock()
	return out, nil
}

// AddPictureAtTime inserts a picture so that it arrives at atSec along the
// active sequence's own timeline. The containing segment is split by
// shrinking the preceding picture's hold first, down to zero, then its move,
// down to the floor. Best effort: when the segment is too short the insert
// still happens, as close to atSec as the floor allows. Downstream durations
// are not rebalanced.
func (s *Service) AddPictureAtTime(ctx context.Context, positions map[string]models.Vec2, atSec float64, name string, kind models.PictureKind) (models.Picture, error) {
	s.mu.Lock()
	seq := s.activeLocked()
	if seq == nil {
		s.mu.Unlock()
		return models.Picture{}, ErrNoActiveSequence
	}
	if name == "" {
		name = fmt.Sprintf("Picture %d", len(seq.Pictures)+1)
	}
	pic := models.NewPicture(name, kind, clonePositions(positions))

	idx, segStart := timeline.SegmentAt(seq.Pictures, atSec)
	if idx < 0 || atSec < 0 {
		seq.Pictures = append(seq.Pictures, *pic)
	} else {
		prev := &seq.Pictures[idx]
		offset := atSec - segStart
		reduce := (prev.HoldSec + prev.MoveSec) - offset
		if reduce > 0 {
			fromHold := prev.HoldSec
			if fromHold > reduce {
				fromHold = reduce
			}
			prev.HoldSec -= fromHold
			reduce -= fromHold
			if reduce > 0 {
				prev.MoveSec -= reduce
				if prev.MoveSec < models.InsertMoveFloorSec {
					prev.MoveSec = models.InsertMoveFloorSec
				}
			}
		}
		seq.Pictures = append(seq.Pictures, models.Picture{})
		copy(seq.Pictures[idx+2:], seq.Pictures[idx+1:])
		seq.Pictures[idx+1] = *pic
	}
	s.persistLocked(ctx)
	out := pic.Clone()
	s.mu.Unlock()
	return out, nil
}

// findPictureLocked searches every sequence; picture edits are
// sequence-agnostic.
func (s *Service) findPictureLocked(id string) *models.Picture {
	for i := range s.sequences {
		for j := range s.sequences[i].Pictures {
			if s.sequences[i].Pictures[j].ID == id {
				return &s.sequences[i].Pictures[j]
			}
		}
	}
	return nil
}

func (s *Service) RenamePicture(ctx context.Context, id, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	pic := s.findPictureLocked(id)
	if pic == nil {
		return ErrPictureNotFound
	}
	pic.Name = name
	s.persistLocked(ctx)
	return nil
}

func (s *Service) SetHoldDuration(ctx context.Context, id string, sec float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	pic := s.findPictureLocked(id)
	if pic == nil {
		return ErrPictureNotFound
	}
	pic.HoldSec = clampF(sec, models.MinHoldSec, models.MaxHoldSec)
	s.persistLocked(ctx)
	return nil
}

func (s *Service) SetMoveDuration(ctx context.Context, id string, sec float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	pic := s.findPictureLocked(id)
	if pic == nil {
		return ErrPictureNotFound
	}
	pic.MoveSec = clampF(sec, models.MinMoveSec, models.MaxMoveSec)
	s.persistLocked(ctx)
	return nil
}

func (s *Service) SetPictureKind(ctx context.Context, id string, kind models.PictureKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	pic := s.findPictureLocked(id)
	if pic == nil {
		return ErrPictureNotFound
	}
	if kind != models.KindMove {
		kind = models.KindMain
	}
	pic.Kind = kind
	s.persistLocked(ctx)
	return nil
}

func (s *Service) DeletePicture(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.sequences {
		pics := s.sequences[i].Pictures
		for j := range pics {
			if pics[j].ID == id {
				s.sequences[i].Pictures = append(pics[:j], pics[j+1:]...)
				s.persistLocked(ctx)
				return nil
			}
		}
	}
	return ErrPictureNotFound
}

// SetMusicClip binds a sequence to an audio region. An inverted or empty
// region is rejected and leaves the sequence unchanged.
func (s *Service) SetMusicClip(ctx context.Context, seqID string, startSec, endSec float64) error {
	if endSec <= startSec {
		return ErrInvalidClipRange
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	seq := s.findSequenceLocked(seqID)
	if seq == nil {
		return ErrSequenceNotFound
	}
	seq.MusicStartSec = &startSec
	seq.MusicEndSec = &endSec
	s.persistLocked(ctx)
	return nil
}

func (s *Service) ClearMusicClip(ctx context.Context, seqID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	seq := s.findSequenceLocked(seqID)
	if seq == nil {
		return ErrSequenceNotFound
	}
	seq.MusicStartSec = nil
	seq.MusicEndSec = nil
	s.persistLocked(ctx)
	return nil
}

// Versions returns a deep copy of the version history, newest first.
func (s *Service) Versions() []models.Version {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.CloneVersions(s.versions)
}

// SaveVersion snapshots the current project. History is newest-first and
// pruned to the retention cap.
func (s *Service) SaveVersion(ctx context.Context, name string) models.Version {
	s.mu.Lock()
	defer s.mu.Unlock()
	if name == "" {
		name = fmt.Sprintf("Version %d", len(s.versions)+1)
	}
	snapshot := models.Snapshot{
		Sequences:        models.CloneSequences(s.sequences),
		ActiveSequenceID: s.activeID,
	}
	v := models.NewVersion(name, snapshot)
	s.versions = append([]models.Version{*v}, s.versions...)
	if len(s.versions) > models.MaxVersions {
		s.versions = s.versions[:models.MaxVersions]
	}
	s.persistVersionsLocked(ctx)
	return v.Clone()
}

// RestoreVersion copies a snapshot back into live state, re-normalizing
// pictures on the way in, and announces the replacement.
func (s *Service) RestoreVersion(ctx context.Context, id string) error {
	s.mu.Lock()
	var found *models.Version
	for i := range s.versions {
		if s.versions[i].ID == id {
			found = &s.versions[i]
			break
		}
	}
	if found == nil {
		s.mu.Unlock()
		return ErrVersionNotFound
	}
	snap := found.Snapshot.Clone()
	for i := range snap.Sequences {
		models.NormalizeSequence(&snap.Sequences[i])
	}
	s.sequences = snap.Sequences
	s.activeID = ""
	if snap.ActiveSequenceID != "" && s.findSequenceLocked(snap.ActiveSequenceID) != nil {
		s.activeID = snap.ActiveSequenceID
	} else if len(s.sequences) > 0 {
		s.activeID = s.sequences[0].ID
	}
	s.loadToken++
	s.persistLocked(ctx)
	s.mu.Unlock()

	s.emit(EventProjectReplaced)
	return nil
}

func (s *Service) DeleteVersion(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.versions {
		if s.versions[i].ID == id {
			s.versions = append(s.versions[:i], s.versions[i+1:]...)
			s.persistVersionsLocked(ctx)
			return nil
		}
	}
	return ErrVersionNotFound
}

func (s *Service) ClearVersions(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.versions = nil
	s.persistVersionsLocked(ctx)
}

// BuildExport produces the export envelope from cloned state.
func (s *Service) BuildExport(includeVersions bool) export.Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	return export.Build(
		models.CloneSequences(s.sequences),
		s.activeID,
		models.CloneVersions(s.versions),
		includeVersions,
	)
}

// Import replaces live state with an already-parsed envelope. The active
// sequence becomes the payload's declared one when it exists, else the first.
// Version history is only replaced when the payload carries one.
func (s *Service) Import(ctx context.Context, env *export.Envelope) error {
	if env == nil {
		return export.ErrInvalidFormat
	}
	s.mu.Lock()
	s.sequences = models.CloneSequences(env.Sequences)
	s.activeID = ""
	if env.ActiveSequenceID != "" && s.findSequenceLocked(env.ActiveSequenceID) != nil {
		s.activeID = env.ActiveSequenceID
	} else if len(s.sequences) > 0 {
		s.activeID = s.sequences[0].ID
	}
	if env.Versions != nil {
		s.versions = models.CloneVersions(env.Versions)
		if len(s.versions) > models.MaxVersions {
			s.versions = s.versions[:models.MaxVersions]
		}
		s.persistVersionsLocked(ctx)
	}
	s.loadToken++
	s.persistLocked(ctx)
	s.mu.Unlock()

	s.emit(EventProjectReplaced)
	return nil
}

func clonePositions(in map[string]models.Vec2) map[string]models.Vec2 {
	out := make(map[string]models.Vec2, len(in))
	for id, pos := range in {
		out[id] = pos
	}
	return out
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
