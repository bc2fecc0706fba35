package domain

import (
	"strings"
	"time"
)

type Review struct {
	ID        int64     `json:"id"`
	Review    string    `json:"review"`
	Rating    int       `json:"rating"`
	TourID    int64     `json:"tourId"`
	UserID    int64     `json:"userId"`
	UserName  string    `json:"userName,omitempty"`
	UserPhoto string    `json:"userPhoto,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func (r *Review) Normalize() {
	r.Review = strings.TrimSpace(r.Review)
}

func (r *Review) Validate() error {
	var problems []string
	if r.Review == "" {
		problems = append(problems, "review cannot be empty")
	}
	problems = requireRange(problems, "rating", float64(r.Rating), 1, 5)
	if r.TourID == 0 {
		problems = append(problems, "review must belong to a tour")
	}
	if r.UserID == 0 {
		problems = append(problems, "review must be written by a user")
	}
	return newValidationError(problems...)
}

func ValidateReviewPatch(patch map[string]any) error {
	var problems []string
	for key, v := range patch {
		switch key {
		case "review":
			if s, ok := v.(string); !ok || strings.TrimSpace(s) == "" {
				problems = append(problems, "review cannot be empty")
			}
		case "rating":
			f, ok := v.(float64)
			if !ok {
				problems = append(problems, "rating must be a number")
			} else {
				problems = requireRange(problems, "rating", f, 1, 5)
			}
		}
	}
	return newValidationError(problems...)
}
