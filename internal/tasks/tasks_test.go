package tasks

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/desertthunder/moodmap/internal/models"
	"github.com/desertthunder/moodmap/internal/services"
	"github.com/desertthunder/moodmap/internal/shared"
	tu "github.com/desertthunder/moodmap/internal/testing"
)

// featuresFor returns a feature map covering ids, except those in missing.
func featuresFor(ids []string, missing ...string) map[string]*models.AudioFeatures {
	skip := map[string]bool{}
	for _, id := range missing {
		skip[id] = true
	}
	out := map[string]*models.AudioFeatures{}
	for i, id := range ids {
		if skip[id] {
			continue
		}
		out[id] = &models.AudioFeatures{ID: id, Energy: float64(i%10) / 10, Valence: 0.5}
	}
	return out
}

func numberedIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("id%d", i+1)
	}
	return ids
}

func TestPaginate(t *testing.T) {
	tests := []struct {
		name  string
		pages [][]services.SpotifySimplePlaylist
		want  []string
	}{
		{
			name:  "single page",
			pages: [][]services.SpotifySimplePlaylist{{tu.SimplePlaylist("a", "A", 1)}},
			want:  []string{"a"},
		},
		{
			name: "three pages concatenated in order",
			pages: [][]services.SpotifySimplePlaylist{
				{tu.SimplePlaylist("a", "A", 1), tu.SimplePlaylist("b", "B", 2)},
				{tu.SimplePlaylist("c", "C", 3)},
				{tu.SimplePlaylist("d", "D", 4), tu.SimplePlaylist("e", "E", 5)},
			},
			want: []string{"a", "b", "c", "d", "e"},
		},
		{
			name:  "empty first page",
			pages: [][]services.SpotifySimplePlaylist{{}},
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lib := &tu.MockLibrary{PlaylistPages: tt.pages}
			items, err := Paginate(context.Background(), lib.PlaylistsPage)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(items) != len(tt.want) {
				t.Fatalf("expected %d items, got %d", len(tt.want), len(items))
			}
			for i, id := range tt.want {
				if items[i].ID != id {
					t.Errorf("item %d: expected %s, got %s", i, id, items[i].ID)
				}
			}
			if lib.PlaylistCalls != len(tt.pages) {
				t.Errorf("expected %d page requests, got %d", len(tt.pages), lib.PlaylistCalls)
			}
		})
	}

	t.Run("stops at the first page with an empty cursor", func(t *testing.T) {
		calls := 0
		empty := ""
		fetch := func(ctx context.Context, cursor string) (*services.Page[int], error) {
			calls++
			return &services.Page[int]{Items: []int{calls}, Next: &empty}, nil
		}
		items, err := Paginate(context.Background(), fetch)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if calls != 1 || len(items) != 1 {
			t.Errorf("expected a single request, got %d calls and %d items", calls, len(items))
		}
	})

	t.Run("error is returned unmodified", func(t *testing.T) {
		boom := errors.New("connection reset")
		calls := 0
		fetch := func(ctx context.Context, cursor string) (*services.Page[int], error) {
			calls++
			if calls == 2 {
				return nil, boom
			}
			next := "more"
			return &services.Page[int]{Items: []int{1}, Next: &next}, nil
		}

		items, err := Paginate(context.Background(), fetch)
		if err != boom {
			t.Errorf("expected the original error, got %v", err)
		}
		if items != nil {
			t.Errorf("expected no partial result, got %v", items)
		}
	})
}

func TestFlattenTracks(t *testing.T) {
	items := []services.SpotifyPlaylistItem{
		tu.Item("t1", "One", "First Album", "Alice", "Bob"),
		{Track: nil},
		tu.Item("", "Local File", "", "Someone"),
		tu.Item("t2", "Two", "Second Album"),
	}

	tracks := FlattenTracks(items)
	if len(tracks) != 3 {
		t.Fatalf("expected 3 tracks (null track skipped), got %d", len(tracks))
	}

	want := []models.Track{
		{TrackID: "t1", TrackName: "One", Artist: "Alice, Bob", Album: "First Album"},
		{TrackID: "", TrackName: "Local File", Artist: "Someone", Album: ""},
		{TrackID: "t2", TrackName: "Two", Artist: "", Album: "Second Album"},
	}
	for i := range want {
		if tracks[i] != want[i] {
			t.Errorf("track %d: expected %+v, got %+v", i, want[i], tracks[i])
		}
	}

	if ids := TrackIDs(tracks); len(ids) != 2 || ids[0] != "t1" || ids[1] != "t2" {
		t.Errorf("expected ids [t1 t2], got %v", ids)
	}
}

func TestFlattenPlaylists(t *testing.T) {
	playlists := FlattenPlaylists([]services.SpotifySimplePlaylist{
		tu.SimplePlaylist("p1", "Morning", 12),
		tu.SimplePlaylist("p2", "Evening", 0),
	})
	if len(playlists) != 2 {
		t.Fatalf("expected 2 playlists, got %d", len(playlists))
	}
	if playlists[0] != (models.Playlist{ID: "p1", Name: "Morning", TrackCount: 12}) {
		t.Errorf("unexpected playlist %+v", playlists[0])
	}
	if playlists[1].TrackCount != 0 {
		t.Errorf("expected 0 tracks, got %d", playlists[1].TrackCount)
	}
}

func TestFetchFeatures(t *testing.T) {
	tests := []struct {
		name        string
		ids         []string
		missing     []string
		wantBatches []int
		wantCount   int
	}{
		{name: "no ids", ids: nil, wantBatches: nil, wantCount: 0},
		{name: "one short batch", ids: numberedIDs(3), wantBatches: []int{3}, wantCount: 3},
		{name: "exact batch", ids: numberedIDs(50), wantBatches: []int{50}, wantCount: 50},
		{name: "one over", ids: numberedIDs(51), wantBatches: []int{50, 1}, wantCount: 51},
		{
			name:        "120 ids with two missing",
			ids:         numberedIDs(120),
			missing:     []string{"id10", "id75"},
			wantBatches: []int{50, 50, 20},
			wantCount:   118,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &tu.MockFeatureSource{Features: featuresFor(tt.ids, tt.missing...)}
			features, err := FetchFeatures(context.Background(), src, tt.ids)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if len(src.Calls) != len(tt.wantBatches) {
				t.Fatalf("expected %d calls, got %d", len(tt.wantBatches), len(src.Calls))
			}
			for i, size := range tt.wantBatches {
				if len(src.Calls[i]) != size {
					t.Errorf("batch %d: expected %d ids, got %d", i, size, len(src.Calls[i]))
				}
			}
			if len(features) != tt.wantCount {
				t.Errorf("expected %d features, got %d", tt.wantCount, len(features))
			}
		})
	}

	t.Run("order preserved and nulls removed", func(t *testing.T) {
		ids := []string{"c", "missing", "a", "b"}
		src := &tu.MockFeatureSource{Features: featuresFor(ids, "missing")}
		features, err := FetchFeatures(context.Background(), src, ids)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got := []string{}
		for _, f := range features {
			got = append(got, f.ID)
		}
		if fmt.Sprint(got) != "[c a b]" {
			t.Errorf("expected [c a b], got %v", got)
		}
	})

	t.Run("duplicates are looked up each time", func(t *testing.T) {
		ids := []string{"a", "a", "b"}
		src := &tu.MockFeatureSource{Features: featuresFor(ids)}
		features, err := FetchFeatures(context.Background(), src, ids)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(src.Calls[0]) != 3 || len(features) != 3 {
			t.Errorf("expected duplicates to be kept, got batch %v and %d features", src.Calls[0], len(features))
		}
	})

	t.Run("error is returned unmodified", func(t *testing.T) {
		apiErr := &services.APIError{StatusCode: 403}
		src := &tu.MockFeatureSource{Err: apiErr}
		_, err := FetchFeatures(context.Background(), src, numberedIDs(60))
		if err != apiErr {
			t.Errorf("expected the original error, got %v", err)
		}
		if len(src.Calls) != 1 {
			t.Errorf("expected to stop after the failing batch, got %d calls", len(src.Calls))
		}
	})
}

func TestJoin(t *testing.T) {
	tracks := []models.Track{
		{TrackID: "a", TrackName: "A"},
		{TrackID: "", TrackName: "Local"},
		{TrackID: "b", TrackName: "B"},
		{TrackID: "a", TrackName: "A again"},
		{TrackID: "c", TrackName: "C"},
	}
	features := []models.AudioFeatures{
		{ID: "b", Energy: 0.2},
		{ID: "a", Energy: 0.9},
		{ID: "a", Energy: 0.1},
	}

	rows := Join(tracks, features)
	if len(rows) != len(tracks) {
		t.Fatalf("expected %d rows, got %d", len(tracks), len(rows))
	}

	for i, row := range rows {
		if row.TrackName != tracks[i].TrackName {
			t.Errorf("row %d: expected %s, got %s", i, tracks[i].TrackName, row.TrackName)
		}
	}

	if !rows[0].HasFeatures() || rows[0].Features.Energy != 0.9 {
		t.Errorf("expected first feature record for a, got %+v", rows[0].Features)
	}
	if rows[1].HasFeatures() {
		t.Error("track without id must not match")
	}
	if !rows[2].HasFeatures() || rows[2].Features.ID != "b" {
		t.Errorf("expected features for b, got %+v", rows[2].Features)
	}
	if !rows[3].HasFeatures() || rows[3].Features.Energy != 0.9 {
		t.Errorf("expected duplicate track to get the same record, got %+v", rows[3].Features)
	}
	if rows[4].HasFeatures() {
		t.Error("expected c to have no features")
	}

	t.Run("no tracks", func(t *testing.T) {
		if rows := Join(nil, features); len(rows) != 0 {
			t.Errorf("expected no rows, got %d", len(rows))
		}
	})
}

func TestPipeline(t *testing.T) {
	ids := numberedIDs(120)
	items := make([]services.SpotifyPlaylistItem, len(ids))
	for i, id := range ids {
		items[i] = tu.Item(id, "Song "+id, "Album", "Artist")
	}

	newLibrary := func() *tu.MockLibrary {
		return &tu.MockLibrary{
			PlaylistPages: [][]services.SpotifySimplePlaylist{
				{tu.SimplePlaylist("big", "Big", 120)},
				{tu.SimplePlaylist("empty", "Empty", 0)},
			},
			ItemPages: map[string][][]services.SpotifyPlaylistItem{
				"big":   {items[:100], items[100:]},
				"empty": {{}},
			},
		}
	}

	t.Run("Playlists", func(t *testing.T) {
		p := NewPipeline(newLibrary(), &tu.MockFeatureSource{})
		playlists, err := p.Playlists(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(playlists) != 2 || playlists[0].TrackCount != 120 {
			t.Errorf("unexpected playlists %+v", playlists)
		}
	})

	t.Run("Analyze joins 120 tracks with two missing features", func(t *testing.T) {
		src := &tu.MockFeatureSource{Features: featuresFor(ids, "id10", "id75")}
		p := NewPipeline(newLibrary(), src)

		progress := make(chan ProgressUpdate, 16)
		analysis, err := p.Analyze(context.Background(), "big", progress)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		close(progress)

		if len(analysis.Rows) != 120 {
			t.Fatalf("expected 120 rows, got %d", len(analysis.Rows))
		}
		if analysis.Matched() != 118 {
			t.Errorf("expected 118 matched rows, got %d", analysis.Matched())
		}
		if analysis.Rows[9].HasFeatures() || analysis.Rows[74].HasFeatures() {
			t.Error("expected rows for id10 and id75 to have no features")
		}
		if len(src.Calls) != 3 {
			t.Errorf("expected 3 feature calls, got %d", len(src.Calls))
		}

		var phases []Phase
		for u := range progress {
			phases = append(phases, u.Phase)
		}
		if len(phases) == 0 || phases[len(phases)-1] != JoinRows {
			t.Errorf("expected progress to end with join, got %v", phases)
		}
	})

	t.Run("Analyze empty playlist skips feature lookup", func(t *testing.T) {
		src := &tu.MockFeatureSource{}
		p := NewPipeline(newLibrary(), src)

		analysis, err := p.Analyze(context.Background(), "empty", nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !analysis.Empty() {
			t.Errorf("expected empty analysis, got %d rows", len(analysis.Rows))
		}
		if analysis.Rows == nil {
			t.Error("expected an empty, non-nil row slice")
		}
		if len(src.Calls) != 0 {
			t.Errorf("expected no feature calls, got %d", len(src.Calls))
		}
	})

	t.Run("Analyze playlist of local files only", func(t *testing.T) {
		lib := &tu.MockLibrary{ItemPages: map[string][][]services.SpotifyPlaylistItem{
			"local": {{tu.Item("", "Demo", "", "Me")}},
		}}
		src := &tu.MockFeatureSource{}
		analysis, err := NewPipeline(lib, src).Analyze(context.Background(), "local", nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(analysis.Rows) != 1 || analysis.Matched() != 0 {
			t.Errorf("expected one unmatched row, got %+v", analysis.Rows)
		}
		if len(src.Calls) != 0 {
			t.Errorf("expected no feature calls, got %d", len(src.Calls))
		}
	})

	t.Run("Analyze is repeatable", func(t *testing.T) {
		lib := newLibrary()
		src := &tu.MockFeatureSource{Features: featuresFor(ids)}
		p := NewPipeline(lib, src)

		for range 2 {
			if _, err := p.Analyze(context.Background(), "big", nil); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}
		if lib.ItemCalls != 4 || len(src.Calls) != 6 {
			t.Errorf("expected every call to hit the sources, got %d item and %d feature calls", lib.ItemCalls, len(src.Calls))
		}
	})

	t.Run("errors propagate", func(t *testing.T) {
		expired := &services.APIError{StatusCode: 401, Message: "The access token expired"}
		lib := newLibrary()
		lib.ItemsErr = expired

		_, err := NewPipeline(lib, &tu.MockFeatureSource{}).Analyze(context.Background(), "big", nil)
		if !errors.Is(err, shared.ErrTokenExpired) {
			t.Errorf("expected ErrTokenExpired, got %v", err)
		}

		src := &tu.MockFeatureSource{Err: errors.New("feature lookup failed")}
		_, err = NewPipeline(newLibrary(), src).Analyze(context.Background(), "big", nil)
		if err == nil || err.Error() != "feature lookup failed" {
			t.Errorf("expected feature error, got %v", err)
		}
	})

	t.Run("missing playlist id", func(t *testing.T) {
		_, err := NewPipeline(newLibrary(), &tu.MockFeatureSource{}).Analyze(context.Background(), "", nil)
		if !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("uninitialized sources", func(t *testing.T) {
		_, err := NewPipeline(nil, nil).Playlists(context.Background())
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})
}

func TestSendProgress(t *testing.T) {
	t.Run("nil channel", func(t *testing.T) {
		sendProgress(nil, ProgressUpdate{})
	})

	t.Run("full channel does not block", func(t *testing.T) {
		ch := make(chan ProgressUpdate, 1)
		sendProgress(ch, ProgressUpdate{Step: 1})
		sendProgress(ch, ProgressUpdate{Step: 2})
		if u := <-ch; u.Step != 1 {
			t.Errorf("expected first update to be kept, got %d", u.Step)
		}
	})
}

func TestPhaseString(t *testing.T) {
	tests := map[Phase]string{
		FetchPlaylists:     "fetch_playlists",
		FetchTracks:        "fetch_tracks",
		FetchAudioFeatures: "fetch_features",
		JoinRows:           "join",
		ExportPlaylist:     "export_playlist",
		Phase(99):          "",
	}
	for phase, want := range tests {
		if got := phase.String(); got != want {
			t.Errorf("Phase(%d).String() = %q, want %q", phase, got, want)
		}
	}
}
