package export

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/plorberg/Choreo/internal/models"
)

func sampleSequences() []models.Sequence {
	seq := models.NewSequence("Waltz intro")
	p1 := models.NewPicture("Opening", models.KindMain, map[string]models.Vec2{
		"d1": {X: 1, Y: 2},
		"d2": {X: 3, Y: 4},
	})
	p2 := models.NewPicture("Cross", models.KindMove, map[string]models.Vec2{
		"d1": {X: 5, Y: 6},
	})
	seq.Pictures = append(seq.Pictures, *p1, *p2)
	start, end := 10.0, 25.0
	seq.MusicStartSec = &start
	seq.MusicEndSec = &end
	return []models.Sequence{*seq}
}

func TestBuild(t *testing.T) {
	seqs := sampleSequences()
	env := Build(seqs, seqs[0].ID, nil, false)

	if env.Schema != SchemaV2 {
		t.Errorf("Expected schema %s, got %s", SchemaV2, env.Schema)
	}
	if env.ExportedAt == 0 {
		t.Error("Expected fresh timestamp")
	}
	if env.Versions != nil {
		t.Error("Expected no versions when not included")
	}
}

func TestRoundTrip(t *testing.T) {
	seqs := sampleSequences()
	versions := []models.Version{
		*models.NewVersion("before rework", models.Snapshot{
			Sequences:        models.CloneSequences(seqs),
			ActiveSequenceID: seqs[0].ID,
		}),
	}

	env := Build(seqs, seqs[0].ID, versions, true)
	data, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("Failed to marshal envelope: %v", err)
	}

	parsed, err := Parse(data)
	if err != nil {
		t.Fatalf("Failed to parse own export: %v", err)
	}

	if parsed.ActiveSequenceID != seqs[0].ID {
		t.Errorf("Active id changed: %s != %s", parsed.ActiveSequenceID, seqs[0].ID)
	}
	if len(parsed.Sequences) != 1 {
		t.Fatalf("Expected 1 sequence, got %d", len(parsed.Sequences))
	}

	got := parsed.Sequences[0]
	want := seqs[0]
	if got.ID != want.ID || got.Name != want.Name {
		t.Errorf("Sequence identity changed: %+v", got)
	}
	if got.MusicStartSec == nil || *got.MusicStartSec != 10 {
		t.Errorf("Music start lost: %v", got.MusicStartSec)
	}
	if len(got.Pictures) != 2 {
		t.Fatalf("Expected 2 pictures, got %d", len(got.Pictures))
	}
	for i := range got.Pictures {
		gp, wp := got.Pictures[i], want.Pictures[i]
		if gp.ID != wp.ID || gp.Name != wp.Name || gp.Kind != wp.Kind {
			t.Errorf("Picture %d identity changed: %+v", i, gp)
		}
		if gp.HoldSec != wp.HoldSec || gp.MoveSec != wp.MoveSec {
			t.Errorf("Picture %d durations changed: %+v", i, gp)
		}
		if gp.Positions["d1"] != wp.Positions["d1"] {
			t.Errorf("Picture %d positions changed: %+v", i, gp.Positions)
		}
	}

	if len(parsed.Versions) != 1 {
		t.Fatalf("Expected 1 version, got %d", len(parsed.Versions))
	}
	if parsed.Versions[0].ID != versions[0].ID {
		t.Errorf("Version id changed")
	}
	if len(parsed.Versions[0].Snapshot.Sequences) != 1 {
		t.Errorf("Version snapshot lost sequences")
	}
}

func TestParse_V1LeavesMusicUnset(t *testing.T) {
	payload := `{
		"schema": "choreo-export-v1",
		"exportedAt": 1700000000000,
		"sequences": [{
			"id": "s1",
			"name": "Old project",
			"createdAt": 1690000000000,
			"pictures": [
				{"id": "p1", "name": "A", "positions": {"d1": {"x": 1, "y": 2}}, "toNextSec": 3.5}
			]
		}],
		"activeSequenceId": "s1"
	}`

	env, err := Parse([]byte(payload))
	if err != nil {
		t.Fatalf("Failed to parse v1 payload: %v", err)
	}

	seq := env.Sequences[0]
	if seq.MusicStartSec != nil || seq.MusicEndSec != nil {
		t.Errorf("v1 import must leave music fields unset, got start=%v end=%v",
			seq.MusicStartSec, seq.MusicEndSec)
	}
	if seq.HasMusicClip() {
		t.Error("v1 sequence must not report a music clip")
	}

	pic := seq.Pictures[0]
	if pic.Kind != models.KindMain {
		t.Errorf("Missing kind should default to main, got %s", pic.Kind)
	}
	if pic.MoveSec != 3.5 {
		t.Errorf("Legacy toNextSec should back the move duration, got %f", pic.MoveSec)
	}
	if pic.HoldSec != models.DefaultHoldMainSec {
		t.Errorf("Missing hold should default for main kind, got %f", pic.HoldSec)
	}
}

func TestParse_NormalizationDefaults(t *testing.T) {
	payload := `{
		"schema": "choreo-export-v2",
		"sequences": [{
			"id": "s1",
			"name": "Mixed",
			"pictures": [
				{"id": "p1", "name": "A", "kind": "move", "positions": {}},
				{"id": "p2", "name": "B", "positions": {}},
				{"name": "C", "positions": {}, "holdSec": 4}
			]
		}]
	}`

	env, err := Parse([]byte(payload))
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}
	pics := env.Sequences[0].Pictures

	if pics[0].Kind != models.KindMove {
		t.Errorf("Explicit move kind lost: %s", pics[0].Kind)
	}
	if pics[0].HoldSec != 0 {
		t.Errorf("Move kind should default to zero hold, got %f", pics[0].HoldSec)
	}
	if pics[0].MoveSec != models.DefaultMoveSec {
		t.Errorf("Missing move should default, got %f", pics[0].MoveSec)
	}
	if pics[1].Kind != models.KindMain {
		t.Errorf("Missing kind should default to main, got %s", pics[1].Kind)
	}
	if pics[2].ID == "" {
		t.Error("Missing picture id should be assigned")
	}
	if pics[2].HoldSec != 4 {
		t.Errorf("Explicit hold should survive, got %f", pics[2].HoldSec)
	}
}

func TestParse_InvertedClipCleared(t *testing.T) {
	payload := `{
		"schema": "choreo-export-v2",
		"sequences": [{
			"id": "s1", "name": "Bad clip", "pictures": [],
			"musicStartSec": 30, "musicEndSec": 10
		}]
	}`

	env, err := Parse([]byte(payload))
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}
	seq := env.Sequences[0]
	if seq.MusicStartSec != nil || seq.MusicEndSec != nil {
		t.Error("Inverted music region must be cleared on import")
	}
}

func TestParse_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"unknown schema", `{"schema": "something-else", "sequences": []}`},
		{"missing schema", `{"sequences": []}`},
		{"missing sequences", `{"schema": "choreo-export-v2"}`},
		{"sequences not array", `{"schema": "choreo-export-v2", "sequences": {"a": 1}}`},
		{"not json", `this is not json`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.payload))
			if !errors.Is(err, ErrInvalidFormat) {
				t.Errorf("Expected ErrInvalidFormat, got %v", err)
			}
		})
	}
}

func TestParseSequences_LegacyShapes(t *testing.T) {
	payload := `[
		{"id": "s1", "name": "Legacy", "pictures": [
			{"id": "p1", "name": "A", "positions": {"d1": {"x": 0, "y": 0}}, "toNextSec": 1.5}
		]}
	]`

	seqs, err := ParseSequences([]byte(payload))
	if err != nil {
		t.Fatalf("Failed to parse stored sequences: %v", err)
	}
	if seqs[0].Pictures[0].MoveSec != 1.5 {
		t.Errorf("Legacy toNextSec lost: %f", seqs[0].Pictures[0].MoveSec)
	}
}
