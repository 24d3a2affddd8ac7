package tmdb

import (
	"errors"
	"testing"

	"github.com/krushna-ai/gdvg-ingest/internal/domain"
	"github.com/krushna-ai/gdvg-ingest/internal/source"
)

func TestDiscoverPageDropsEntriesWithoutID(t *testing.T) {
	resp := &discoverResponse{
		Page:         1,
		TotalPages:   3,
		TotalResults: 42,
		Results: []discoverResult{
			{ID: 603, Title: "The Matrix", Popularity: 80},
			{ID: 0, Title: "ghost entry"},
			{ID: 550, Title: "Fight Club", Popularity: 60},
		},
	}

	page := resp.toPage(domain.ContentTypeMovie)
	if len(page.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(page.Results))
	}
	if page.Results[0].SourceID != 603 || page.Results[1].SourceID != 550 {
		t.Errorf("unexpected ids: %d, %d", page.Results[0].SourceID, page.Results[1].SourceID)
	}
	if page.TotalPages != 3 || page.TotalResults != 42 {
		t.Errorf("pagination not carried over: pages=%d results=%d", page.TotalPages, page.TotalResults)
	}
}

func TestDiscoverPageTVFieldMapping(t *testing.T) {
	resp := &discoverResponse{
		Page: 1,
		Results: []discoverResult{
			{
				ID:            1396,
				Name:          "Breaking Bad",
				OriginalName:  "Breaking Bad",
				FirstAirDate:  "2008-01-20",
				Title:         "should be ignored",
				ReleaseDate:   "should be ignored",
				OriginCountry: []string{"US"},
			},
		},
	}

	page := resp.toPage(domain.ContentTypeTV)
	if len(page.Results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(page.Results))
	}
	rec := page.Results[0]
	if rec.Title != "Breaking Bad" {
		t.Errorf("tv title = %q, want name field", rec.Title)
	}
	if rec.ReleaseDate != "2008-01-20" {
		t.Errorf("tv release date = %q, want first_air_date", rec.ReleaseDate)
	}
	if rec.ContentType != domain.ContentTypeTV {
		t.Errorf("content type = %s, want tv", rec.ContentType)
	}
}

func TestMovieDetailToRecord(t *testing.T) {
	m := &movieDetail{
		ID:            603,
		Title:         "The Matrix",
		OriginalTitle: "The Matrix",
		ReleaseDate:   "1999-03-30",
		Runtime:       136,
		Genres:        []genre{{ID: 28, Name: "Action"}, {ID: 878, Name: "Science Fiction"}},
		OriginCountry: []string{"US"},
	}

	rec, err := m.toRecord()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.SourceID != 603 || rec.ContentType != domain.ContentTypeMovie {
		t.Errorf("identity fields wrong: id=%d type=%s", rec.SourceID, rec.ContentType)
	}
	if rec.Runtime != 136 {
		t.Errorf("runtime = %d, want 136", rec.Runtime)
	}
	if len(rec.Genres) != 2 || rec.Genres[0] != "Action" {
		t.Errorf("genres = %v", rec.Genres)
	}
}

func TestMovieDetailMalformed(t *testing.T) {
	testCases := []struct {
		name   string
		detail movieDetail
	}{
		{name: "missing id", detail: movieDetail{Title: "Nameless"}},
		{name: "missing title", detail: movieDetail{ID: 42}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.detail.toRecord()
			if !errors.Is(err, source.ErrMalformed) {
				t.Fatalf("expected ErrMalformed, got %v", err)
			}
		})
	}
}

func TestTVDetailToRecord(t *testing.T) {
	tv := &tvDetail{
		ID:               1396,
		Name:             "Breaking Bad",
		FirstAirDate:     "2008-01-20",
		NumberOfSeasons:  5,
		NumberOfEpisodes: 62,
		Status:           "Ended",
	}

	rec, err := tv.toRecord()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Title != "Breaking Bad" || rec.ReleaseDate != "2008-01-20" {
		t.Errorf("field mapping wrong: title=%q date=%q", rec.Title, rec.ReleaseDate)
	}
	if rec.SeasonCount != 5 || rec.EpisodeCount != 62 {
		t.Errorf("season/episode counts wrong: %d/%d", rec.SeasonCount, rec.EpisodeCount)
	}

	_, err = (&tvDetail{ID: 1}).toRecord()
	if !errors.Is(err, source.ErrMalformed) {
		t.Fatalf("nameless tv detail should be malformed, got %v", err)
	}
}

func TestGenreNames(t *testing.T) {
	got := genreNames([]genre{{Name: "Drama"}, {Name: ""}, {Name: "Crime"}})
	if len(got) != 2 || got[0] != "Drama" || got[1] != "Crime" {
		t.Errorf("genreNames = %v", got)
	}
	if genreNames(nil) != nil {
		t.Error("genreNames(nil) should be nil")
	}
}
