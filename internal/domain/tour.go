package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Tour difficulties
const (
	DifficultyEasy      = "easy"
	DifficultyMedium    = "medium"
	DifficultyDifficult = "difficult"
)

var validDifficulties = map[string]bool{
	DifficultyEasy:      true,
	DifficultyMedium:    true,
	DifficultyDifficult: true,
}

type Tour struct {
	ID              int64       `json:"id"`
	Name            string      `json:"name"`
	Slug            string      `json:"slug"`
	DurationDays    int         `json:"duration"`
	MaxGroupSize    int         `json:"maxGroupSize"`
	Difficulty      string      `json:"difficulty"`
	RatingsAverage  float64     `json:"ratingsAverage"`
	RatingsQuantity int         `json:"ratingsQuantity"`
	Price           float64     `json:"price"`
	PriceDiscount   float64     `json:"priceDiscount,omitempty"`
	Summary         string      `json:"summary"`
	Description     string      `json:"description"`
	ImageCover      string      `json:"imageCover"`
	Images          []string    `json:"images"`
	StartDates      []time.Time `json:"startDates"`
	StartLat        float64     `json:"startLat"`
	StartLng        float64     `json:"startLng"`
	StartAddress    string      `json:"startAddress"`
	Secret          bool        `json:"-"`
	Guides          []User      `json:"guides,omitempty"`
	GuideIDs        []int64     `json:"guideIds,omitempty"`
	CreatedAt       time.Time   `json:"createdAt"`
}

var slugStripRe = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify turns a tour name into its URL slug ("The Forest Hiker" ->
// "the-forest-hiker"). Applied explicitly on create/update, not via hooks.
func Slugify(name string) string {
	s := slugStripRe.ReplaceAllString(strings.ToLower(name), "-")
	return strings.Trim(s, "-")
}

func (t *Tour) Normalize() {
	t.Name = strings.TrimSpace(t.Name)
	t.Summary = strings.TrimSpace(t.Summary)
	t.Description = strings.TrimSpace(t.Description)
	t.Slug = Slugify(t.Name)
	if t.RatingsAverage == 0 {
		t.RatingsAverage = 4.5
	}
}

func (t *Tour) Validate() error {
	var problems []string
	if n := len(t.Name); n < 10 || n > 40 {
		problems = append(problems, "a tour name must have between 10 and 40 characters")
	}
	if t.DurationDays <= 0 {
		problems = append(problems, "a tour must have a duration")
	}
	if t.MaxGroupSize <= 0 {
		problems = append(problems, "a tour must have a group size")
	}
	if !validDifficulties[t.Difficulty] {
		problems = append(problems, "difficulty is either: easy, medium or difficult")
	}
	problems = requireRange(problems, "rating", t.RatingsAverage, 1, 5)
	if t.Price <= 0 {
		problems = append(problems, "a tour must have a price")
	}
	if t.PriceDiscount != 0 && t.PriceDiscount >= t.Price {
		problems = append(problems, fmt.Sprintf("discount price (%g) should be below the regular price", t.PriceDiscount))
	}
	if t.Summary == "" {
		problems = append(problems, "a tour must have a summary")
	}
	return newValidationError(problems...)
}

// ValidateTourPatch checks merge updates field by field; unknown keys are left
// for the store's allow-list to drop.
func ValidateTourPatch(patch map[string]any) error {
	var problems []string
	for key, v := range patch {
		switch key {
		case "name":
			s, ok := v.(string)
			if !ok || len(strings.TrimSpace(s)) < 10 || len(strings.TrimSpace(s)) > 40 {
				problems = append(problems, "a tour name must have between 10 and 40 characters")
			}
		case "difficulty":
			if s, ok := v.(string); !ok || !validDifficulties[s] {
				problems = append(problems, "difficulty is either: easy, medium or difficult")
			}
		case "price":
			if f, ok := v.(float64); !ok || f <= 0 {
				problems = append(problems, "a tour must have a positive price")
			}
		case "ratingsAverage":
			f, ok := v.(float64)
			if !ok {
				problems = append(problems, "rating must be a number")
			} else {
				problems = requireRange(problems, "rating", f, 1, 5)
			}
		case "duration", "maxGroupSize":
			if f, ok := v.(float64); !ok || f <= 0 {
				problems = append(problems, key+" must be a positive number")
			}
		}
	}
	return newValidationError(problems...)
}

// TourStats is the aggregation row for /tours/stats.
type TourStats struct {
	Difficulty string  `json:"difficulty"`
	NumTours   int     `json:"numTours"`
	NumRatings int     `json:"numRatings"`
	AvgRating  float64 `json:"avgRating"`
	AvgPrice   float64 `json:"avgPrice"`
	MinPrice   float64 `json:"minPrice"`
	MaxPrice   float64 `json:"maxPrice"`
}

// MonthlyPlanEntry is the aggregation row for /tours/monthly-plan/{year}.
type MonthlyPlanEntry struct {
	Month         int      `json:"month"`
	NumTourStarts int      `json:"numTourStarts"`
	Tours         []string `json:"tours"`
}

// TourDistance pairs a tour with its distance from a query point.
type TourDistance struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Distance float64 `json:"distance"`
}
