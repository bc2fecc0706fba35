package domain

import "time"

type Booking struct {
	ID        int64     `json:"id"`
	TourID    int64     `json:"tourId"`
	UserID    int64     `json:"userId"`
	TourName  string    `json:"tourName,omitempty"`
	Price     float64   `json:"price"`
	Paid      bool      `json:"paid"`
	CreatedAt time.Time `json:"createdAt"`
}

func (b *Booking) Validate() error {
	var problems []string
	if b.TourID == 0 {
		problems = append(problems, "booking must belong to a tour")
	}
	if b.UserID == 0 {
		problems = append(problems, "booking must belong to a user")
	}
	if b.Price <= 0 {
		problems = append(problems, "booking must have a price")
	}
	return newValidationError(problems...)
}

func ValidateBookingPatch(patch map[string]any) error {
	var problems []string
	for key, v := range patch {
		switch key {
		case "price":
			if f, ok := v.(float64); !ok || f <= 0 {
				problems = append(problems, "booking must have a positive price")
			}
		case "paid":
			if _, ok := v.(bool); !ok {
				problems = append(problems, "paid must be a boolean")
			}
		}
	}
	return newValidationError(problems...)
}
