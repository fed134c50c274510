package domain

import "time"

// Candidate is a raw feed entry flowing through the curation pipeline.
// It lives for one run; only the articles synthesized from selected
// candidates are persisted.
type Candidate struct {
	Title       string
	Description string
	URL         string
	SourceName  string
	Language    string
	PublishedAt time.Time

	// Attached by the scorer.
	PreScore    float64
	Score       float64
	ScoreReason string
	Keywords    []string
	Category    string
}

// Evaluation is one judgment-oracle verdict for a candidate.
type Evaluation struct {
	Score    float64
	Reason   string
	Keywords []string
	Category string
}

// Draft is the generation-oracle output for one selected candidate.
type Draft struct {
	Headline   string
	Content    string
	ImageQuery string
}

// Image describes the illustration attached to a published article.
type Image struct {
	URL             string
	Alt             string
	Photographer    string
	PhotographerURL string
}

// Status enumerates the article lifecycle.
type Status string

const (
	StatusHot         Status = "hot"
	StatusCategorized Status = "categorized"
	StatusArchived    Status = "archived"
)

// Article is a finished, persisted piece of editorial content.
type Article struct {
	ID          int64
	Title       string
	Content     string
	OriginalURL string
	SourceName  string
	PublishedAt time.Time
	CreatedAt   time.Time
	Score       float64
	Image       Image
	Published   bool // set on the most recent batch only
	Language    string
	Category    string
	Status      Status
}

// KeywordType tags a ledger entry's polarity.
type KeywordType string

const (
	KeywordPositive KeywordType = "positive"
	KeywordNegative KeywordType = "negative"
)

// Keyword is one entry of the lexical pre-scoring ledger.
type Keyword struct {
	ID     int64
	Word   string
	Weight float64
	Type   KeywordType
}

// Source describes one external feed endpoint.
type Source struct {
	ID       int64
	Name     string
	URL      string
	Language string
	Enabled  bool
}

// CategoryOther is the default bucket for anything the oracle cannot
// place in the closed set.
const CategoryOther = "other"

// Categories is the closed category set the judgment oracle may use.
var Categories = []string{
	"economy",
	"domestic",
	"world",
	"sport",
	"animals",
	"science",
	CategoryOther,
}

// ValidCategory reports whether a category belongs to the closed set.
func ValidCategory(category string) bool {
	for _, c := range Categories {
		if c == category {
			return true
		}
	}
	return false
}
