package source

import (
	"context"

	"github.com/krushna-ai/gdvg-ingest/internal/domain"
)

// Record is a normalized catalog record from the external provider.
// Discover pages carry partial records; Detail returns complete ones.
type Record struct {
	SourceID        int64
	ContentType     domain.ContentType
	Title           string
	OriginalTitle   string
	Overview        string
	ReleaseDate     string // YYYY-MM-DD
	Popularity      float64
	VoteAverage     float64
	VoteCount       int64
	PosterPath      string
	BackdropPath    string
	Genres          []string
	OriginCountries []string
	Runtime         int // movies only
	SeasonCount     int // tv only
	EpisodeCount    int // tv only
	Status          string
	Adult           bool
}

// DiscoverFilter narrows a discover sweep. Zero values mean "no filter".
type DiscoverFilter struct {
	OriginCountry  string
	SortBy         string // provider sort key, e.g. popularity.desc
	ReleasedAfter  string // YYYY-MM-DD
	ReleasedBefore string // YYYY-MM-DD
	Genres         []int
}

// Page is one page of discover results. TotalResults is the provider's
// best-effort estimate, not a contract.
type Page struct {
	Results      []Record
	Page         int
	TotalPages   int
	TotalResults int
}

// IDPage is one page of bare record ids from the changes feed.
type IDPage struct {
	IDs        []int64
	Page       int
	TotalPages int
}

// Client is the read-only contract against the external metadata provider.
// Implementations enforce the provider's minimum inter-call delay and
// return the typed failures in errors.go; they never write to any store.
type Client interface {
	// DiscoverPage fetches one page of filtered discover results.
	DiscoverPage(ctx context.Context, contentType domain.ContentType, filter DiscoverFilter, page int) (*Page, error)

	// Detail fetches the complete record for one external id.
	Detail(ctx context.Context, contentType domain.ContentType, sourceID int64) (*Record, error)

	// Changes fetches ids changed within the date range (YYYY-MM-DD).
	Changes(ctx context.Context, contentType domain.ContentType, startDate, endDate string, page int) (*IDPage, error)

	// LatestID returns the highest id currently known to the provider.
	LatestID(ctx context.Context, contentType domain.ContentType) (int64, error)
}
