// Package songlist loads song metadata from the community BGM CSV
// (xiv_bgm.csv layout: id, name, locations...).
package songlist

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

var (
	ErrSongNotFound = errors.New("song not found")
	ErrNoSongList   = errors.New("no song list configured")
)

// Song is one row of the song list.
type Song struct {
	ID        int
	Name      string
	Locations string
}

// List holds songs by id.
type List struct {
	songs map[int]Song
	ids   []int // sorted
}

// Load reads a song list from a CSV file.
func Load(path string) (*List, error) {
	if path == "" {
		return nil, ErrNoSongList
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads a song list. Rows without a numeric id, with id 0, or with an
// empty or "N/A" name are skipped, which also drops the header row.
func Parse(r io.Reader) (*List, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	l := &List{songs: make(map[int]Song)}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse song list: %w", err)
		}
		for i := range record {
			record[i] = strings.ReplaceAll(record[i], `"`, "")
		}
		if len(record) < 2 {
			continue
		}

		id, err := strconv.Atoi(strings.TrimSpace(record[0]))
		if err != nil || id <= 0 {
			continue
		}
		name := strings.TrimSpace(record[1])
		if name == "" || name == "N/A" {
			continue
		}

		locations := lo.Filter(record[2:], func(s string, _ int) bool {
			return strings.TrimSpace(s) != ""
		})

		if _, dup := l.songs[id]; !dup {
			l.ids = append(l.ids, id)
		}
		l.songs[id] = Song{
			ID:        id,
			Name:      name,
			Locations: strings.TrimSpace(strings.Join(locations, ", ")),
		}
	}
	sort.Ints(l.ids)
	return l, nil
}

// Len returns the number of songs.
func (l *List) Len() int {
	if l == nil {
		return 0
	}
	return len(l.ids)
}

// Get returns a song by id.
func (l *List) Get(id int) (Song, error) {
	if l == nil {
		return Song{}, ErrSongNotFound
	}
	s, ok := l.songs[id]
	if !ok {
		return Song{}, fmt.Errorf("%w: %d", ErrSongNotFound, id)
	}
	return s, nil
}

// Title returns the display title for a song id, or "" when unknown.
// A nil List knows no titles.
func (l *List) Title(id uint16) string {
	if l == nil {
		return ""
	}
	return l.songs[int(id)].Name
}

// IDs returns all song ids in ascending order.
func (l *List) IDs() []int {
	if l == nil {
		return nil
	}
	return append([]int(nil), l.ids...)
}

// Songs returns all songs ordered by id.
func (l *List) Songs() []Song {
	return lo.Map(l.IDs(), func(id int, _ int) Song {
		return l.songs[id]
	})
}

// Search returns songs whose name or locations contain query
// (case-insensitive) or whose id contains it as a substring.
func (l *List) Search(query string) []Song {
	songs := l.Songs()
	if query == "" {
		return songs
	}
	q := strings.ToLower(query)
	return lo.Filter(songs, func(s Song, _ int) bool {
		return strings.Contains(strings.ToLower(s.Name), q) ||
			strings.Contains(strings.ToLower(s.Locations), q) ||
			strings.Contains(strconv.Itoa(s.ID), query)
	})
}
