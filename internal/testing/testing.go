// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"testing"

	"github.com/desertthunder/moodmap/internal/models"
	"github.com/desertthunder/moodmap/internal/services"
)

// MockLibrary is a test double for [services.Library] serving canned pages.
//
// Cursors are "page-N"; the last page of each listing has a nil Next.
type MockLibrary struct {
	PlaylistPages [][]services.SpotifySimplePlaylist
	ItemPages     map[string][][]services.SpotifyPlaylistItem
	PlaylistsErr  error
	ItemsErr      error

	PlaylistCalls int
	ItemCalls     int
}

func (m *MockLibrary) PlaylistsPage(ctx context.Context, cursor string) (*services.Page[services.SpotifySimplePlaylist], error) {
	m.PlaylistCalls++
	if m.PlaylistsErr != nil {
		return nil, m.PlaylistsErr
	}
	return pageAt(m.PlaylistPages, cursor)
}

func (m *MockLibrary) PlaylistItemsPage(ctx context.Context, playlistID, cursor string) (*services.Page[services.SpotifyPlaylistItem], error) {
	m.ItemCalls++
	if m.ItemsErr != nil {
		return nil, m.ItemsErr
	}
	pages, ok := m.ItemPages[playlistID]
	if !ok {
		return nil, &services.APIError{StatusCode: 404, Message: "Not found."}
	}
	return pageAt(pages, cursor)
}

func pageAt[T any](pages [][]T, cursor string) (*services.Page[T], error) {
	idx := 0
	if cursor != "" {
		if _, err := fmt.Sscanf(cursor, "page-%d", &idx); err != nil {
			return nil, fmt.Errorf("bad cursor %q: %w", cursor, err)
		}
	}

	page := &services.Page[T]{}
	for _, p := range pages {
		page.Total += len(p)
	}
	if idx < len(pages) {
		page.Items = pages[idx]
	}
	if idx+1 < len(pages) {
		next := "page-" + strconv.Itoa(idx+1)
		page.Next = &next
	}
	return page, nil
}

// MockFeatureSource is a test double for [services.FeatureSource].
//
// Ids missing from Features come back as nil entries. Every batch is recorded in Calls.
type MockFeatureSource struct {
	Features map[string]*models.AudioFeatures
	Err      error
	Calls    [][]string
}

func (m *MockFeatureSource) AudioFeatures(ctx context.Context, ids []string) ([]*models.AudioFeatures, error) {
	m.Calls = append(m.Calls, append([]string(nil), ids...))
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]*models.AudioFeatures, len(ids))
	for i, id := range ids {
		out[i] = m.Features[id]
	}
	return out, nil
}

// Item builds a playlist item with a non-null track.
func Item(id, name, album string, artists ...string) services.SpotifyPlaylistItem {
	track := &services.SpotifyTrack{Name: name, Album: services.SpotifyAlbum{Name: album}}
	if id != "" {
		track.ID = &id
	}
	for _, a := range artists {
		track.Artists = append(track.Artists, services.SpotifyArtist{Name: a})
	}
	return services.SpotifyPlaylistItem{Track: track}
}

// SimplePlaylist builds a simplified playlist object.
func SimplePlaylist(id, name string, total int) services.SpotifySimplePlaylist {
	p := services.SpotifySimplePlaylist{ID: id, Name: name}
	p.Tracks.Total = total
	return p
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
