package tmdb

import (
	"fmt"

	"github.com/krushna-ai/gdvg-ingest/internal/domain"
	"github.com/krushna-ai/gdvg-ingest/internal/source"
)

// Raw TMDB payload shapes. Only the fields mapped to the destination
// schema are declared; everything else is ignored on decode.

type genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type discoverResult struct {
	ID            int64    `json:"id"`
	Title         string   `json:"title"`          // movies
	Name          string   `json:"name"`           // tv
	OriginalTitle string   `json:"original_title"` // movies
	OriginalName  string   `json:"original_name"`  // tv
	Overview      string   `json:"overview"`
	ReleaseDate   string   `json:"release_date"`   // movies
	FirstAirDate  string   `json:"first_air_date"` // tv
	Popularity    float64  `json:"popularity"`
	VoteAverage   float64  `json:"vote_average"`
	VoteCount     int64    `json:"vote_count"`
	PosterPath    string   `json:"poster_path"`
	BackdropPath  string   `json:"backdrop_path"`
	OriginCountry []string `json:"origin_country"`
	Adult         bool     `json:"adult"`
}

type discoverResponse struct {
	Page         int              `json:"page"`
	TotalPages   int              `json:"total_pages"`
	TotalResults int              `json:"total_results"`
	Results      []discoverResult `json:"results"`
}

func (r *discoverResponse) toPage(contentType domain.ContentType) *source.Page {
	page := &source.Page{
		Page:         r.Page,
		TotalPages:   r.TotalPages,
		TotalResults: r.TotalResults,
	}
	for _, res := range r.Results {
		// Entries without an id cannot be fetched or upserted; drop them
		// here rather than failing the whole page.
		if res.ID <= 0 {
			continue
		}
		rec := source.Record{
			SourceID:        res.ID,
			ContentType:     contentType,
			Title:           res.Title,
			OriginalTitle:   res.OriginalTitle,
			Overview:        res.Overview,
			ReleaseDate:     res.ReleaseDate,
			Popularity:      res.Popularity,
			VoteAverage:     res.VoteAverage,
			VoteCount:       res.VoteCount,
			PosterPath:      res.PosterPath,
			BackdropPath:    res.BackdropPath,
			OriginCountries: res.OriginCountry,
			Adult:           res.Adult,
		}
		if contentType == domain.ContentTypeTV {
			rec.Title = res.Name
			rec.OriginalTitle = res.OriginalName
			rec.ReleaseDate = res.FirstAirDate
		}
		page.Results = append(page.Results, rec)
	}
	return page
}

type movieDetail struct {
	ID            int64    `json:"id"`
	Title         string   `json:"title"`
	OriginalTitle string   `json:"original_title"`
	Overview      string   `json:"overview"`
	ReleaseDate   string   `json:"release_date"`
	Popularity    float64  `json:"popularity"`
	VoteAverage   float64  `json:"vote_average"`
	VoteCount     int64    `json:"vote_count"`
	PosterPath    string   `json:"poster_path"`
	BackdropPath  string   `json:"backdrop_path"`
	Genres        []genre  `json:"genres"`
	OriginCountry []string `json:"origin_country"`
	Runtime       int      `json:"runtime"`
	Status        string   `json:"status"`
	Adult         bool     `json:"adult"`
}

func (m *movieDetail) toRecord() (*source.Record, error) {
	if m.ID <= 0 || m.Title == "" {
		return nil, fmt.Errorf("%w: movie id=%d title=%q", source.ErrMalformed, m.ID, m.Title)
	}
	return &source.Record{
		SourceID:        m.ID,
		ContentType:     domain.ContentTypeMovie,
		Title:           m.Title,
		OriginalTitle:   m.OriginalTitle,
		Overview:        m.Overview,
		ReleaseDate:     m.ReleaseDate,
		Popularity:      m.Popularity,
		VoteAverage:     m.VoteAverage,
		VoteCount:       m.VoteCount,
		PosterPath:      m.PosterPath,
		BackdropPath:    m.BackdropPath,
		Genres:          genreNames(m.Genres),
		OriginCountries: m.OriginCountry,
		Runtime:         m.Runtime,
		Status:          m.Status,
		Adult:           m.Adult,
	}, nil
}

type tvDetail struct {
	ID               int64    `json:"id"`
	Name             string   `json:"name"`
	OriginalName     string   `json:"original_name"`
	Overview         string   `json:"overview"`
	FirstAirDate     string   `json:"first_air_date"`
	Popularity       float64  `json:"popularity"`
	VoteAverage      float64  `json:"vote_average"`
	VoteCount        int64    `json:"vote_count"`
	PosterPath       string   `json:"poster_path"`
	BackdropPath     string   `json:"backdrop_path"`
	Genres           []genre  `json:"genres"`
	OriginCountry    []string `json:"origin_country"`
	NumberOfSeasons  int      `json:"number_of_seasons"`
	NumberOfEpisodes int      `json:"number_of_episodes"`
	Status           string   `json:"status"`
	Adult            bool     `json:"adult"`
}

func (t *tvDetail) toRecord() (*source.Record, error) {
	if t.ID <= 0 || t.Name == "" {
		return nil, fmt.Errorf("%w: tv id=%d name=%q", source.ErrMalformed, t.ID, t.Name)
	}
	return &source.Record{
		SourceID:        t.ID,
		ContentType:     domain.ContentTypeTV,
		Title:           t.Name,
		OriginalTitle:   t.OriginalName,
		Overview:        t.Overview,
		ReleaseDate:     t.FirstAirDate,
		Popularity:      t.Popularity,
		VoteAverage:     t.VoteAverage,
		VoteCount:       t.VoteCount,
		PosterPath:      t.PosterPath,
		BackdropPath:    t.BackdropPath,
		Genres:          genreNames(t.Genres),
		OriginCountries: t.OriginCountry,
		SeasonCount:     t.NumberOfSeasons,
		EpisodeCount:    t.NumberOfEpisodes,
		Status:          t.Status,
		Adult:           t.Adult,
	}, nil
}

type changesResponse struct {
	Page       int `json:"page"`
	TotalPages int `json:"total_pages"`
	Results    []struct {
		ID int64 `json:"id"`
	} `json:"results"`
}

func genreNames(genres []genre) []string {
	if len(genres) == 0 {
		return nil
	}
	names := make([]string, 0, len(genres))
	for _, g := range genres {
		if g.Name != "" {
			names = append(names, g.Name)
		}
	}
	return names
}
