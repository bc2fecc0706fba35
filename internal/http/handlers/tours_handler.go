package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wildtrek/tours/internal/api/apierror"
	"github.com/wildtrek/tours/internal/domain"
	"github.com/wildtrek/tours/internal/http/response"
	"github.com/wildtrek/tours/internal/platform/images"
	"github.com/wildtrek/tours/internal/repo/postgres"
)

const milesPerKm = 0.621371

// ToursHandler is the tour CRUD plus the aggregation and geo endpoints.
type ToursHandler struct {
	Resource[domain.Tour]
	tours   postgres.ToursRepo
	resizer *images.Resizer
}

func NewToursHandler(tours postgres.ToursRepo, resizer *images.Resizer) *ToursHandler {
	return &ToursHandler{
		Resource: Resource[domain.Tour]{
			Store:         tours,
			ListFields:    postgres.TourListFields(),
			ValidatePatch: domain.ValidateTourPatch,
		},
		tours:   tours,
		resizer: resizer,
	}
}

// TopCheap presets the query for the five best cheap tours, then runs the
// normal list pipeline.
func (h *ToursHandler) TopCheap(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	q.Set("limit", "5")
	q.Set("sort", "-ratingsAverage,price")
	if q.Get("fields") == "" {
		q.Set("fields", "name,price,ratingsAverage,summary,difficulty")
	}
	r.URL.RawQuery = q.Encode()
	h.List(w, r)
}

func (h *ToursHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.tours.Stats(r.Context())
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.Success(w, http.StatusOK, map[string]any{"stats": stats})
}

func (h *ToursHandler) MonthlyPlan(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		response.Error(w, r, apierror.BadRequest(apierror.CodeInvalidIdentifier, "invalid year in URL"))
		return
	}

	plan, err := h.tours.MonthlyPlan(r.Context(), year)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.Success(w, http.StatusOK, map[string]any{"plan": plan})
}

// Within handles /tours-within/{distance}/center/{latlng}/unit/{unit}.
func (h *ToursHandler) Within(w http.ResponseWriter, r *http.Request) {
	distance, err := strconv.ParseFloat(chi.URLParam(r, "distance"), 64)
	if err != nil || distance <= 0 {
		response.Error(w, r, apierror.BadRequest(apierror.CodeInvalidIdentifier, "invalid distance in URL"))
		return
	}
	lat, lng, err := parseLatLng(chi.URLParam(r, "latlng"))
	if err != nil {
		response.Error(w, r, err)
		return
	}

	radiusKm := distance
	if chi.URLParam(r, "unit") == "mi" {
		radiusKm = distance / milesPerKm
	}

	tours, err := h.tours.Within(r.Context(), lat, lng, radiusKm)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.SuccessList(w, len(tours), tours)
}

// Distances handles /distances/{latlng}/unit/{unit}.
func (h *ToursHandler) Distances(w http.ResponseWriter, r *http.Request) {
	lat, lng, err := parseLatLng(chi.URLParam(r, "latlng"))
	if err != nil {
		response.Error(w, r, err)
		return
	}

	multiplier := 1.0
	if chi.URLParam(r, "unit") == "mi" {
		multiplier = milesPerKm
	}

	distances, err := h.tours.Distances(r.Context(), lat, lng, multiplier)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.SuccessList(w, len(distances), distances)
}

// UploadImages accepts a cover image and up to three gallery images for a
// tour, resizing each to the site's dimensions.
func (h *ToursHandler) UploadImages(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	if err := r.ParseMultipartForm(30 << 20); err != nil {
		response.Error(w, r, apierror.BadRequest(apierror.CodeValidationFailed, "invalid multipart body"))
		return
	}

	patch := map[string]any{}
	stamp := time.Now().Unix()

	// Files already written are removed again when a later step fails, so the
	// tour row and the disk never disagree.
	var written []string
	cleanup := func() {
		for _, name := range written {
			_ = h.resizer.Remove(name)
		}
	}

	if file, _, err := r.FormFile("imageCover"); err == nil {
		name := fmt.Sprintf("tour-%d-%d-cover.jpeg", id, stamp)
		stored, err := h.resizer.Resize(file, 2000, 1333, name)
		file.Close()
		if err != nil {
			response.Error(w, r, apierror.Wrap(err, http.StatusBadRequest,
				apierror.CodeValidationFailed, "not an image; please upload only images"))
			return
		}
		written = append(written, stored)
		patch["imageCover"] = stored
	}

	if r.MultipartForm != nil {
		var gallery []string
		for i, header := range r.MultipartForm.File["images"] {
			if i >= 3 {
				break
			}
			file, err := header.Open()
			if err != nil {
				continue
			}
			name := fmt.Sprintf("tour-%d-%d-%d.jpeg", id, stamp, i+1)
			stored, err := h.resizer.Resize(file, 2000, 1333, name)
			file.Close()
			if err != nil {
				cleanup()
				response.Error(w, r, apierror.Wrap(err, http.StatusBadRequest,
					apierror.CodeValidationFailed, "not an image; please upload only images"))
				return
			}
			written = append(written, stored)
			gallery = append(gallery, stored)
		}
		if gallery != nil {
			patch["images"] = gallery
		}
	}

	if len(patch) == 0 {
		response.Error(w, r, apierror.BadRequest(apierror.CodeValidationFailed, "no images uploaded"))
		return
	}

	updated, err := h.tours.Update(r.Context(), id, patch)
	if err != nil {
		cleanup()
		response.Error(w, r, err)
		return
	}
	response.Success(w, http.StatusOK, updated)
}

func parseLatLng(raw string) (float64, float64, error) {
	parts := strings.SplitN(raw, ",", 2)
	if len(parts) != 2 {
		return 0, 0, apierror.BadRequest(apierror.CodeInvalidIdentifier,
			"please provide latitude and longitude in the format lat,lng")
	}
	lat, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lng, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err1 != nil || err2 != nil || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return 0, 0, apierror.BadRequest(apierror.CodeInvalidIdentifier,
			"please provide latitude and longitude in the format lat,lng")
	}
	return lat, lng, nil
}
