package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/wildtrek/tours/internal/api/apierror"
	"github.com/wildtrek/tours/internal/domain"
	"github.com/wildtrek/tours/internal/http/middleware"
	"github.com/wildtrek/tours/internal/http/response"
	"github.com/wildtrek/tours/internal/platform/images"
	"github.com/wildtrek/tours/internal/repo/postgres"
)

// profileFields is what PATCH /me may touch. Role changes stay admin-only.
var profileFields = map[string]bool{"name": true, "email": true, "photo": true}

// UsersHandler serves the /me routes plus the admin CRUD via its embedded
// Resource.
type UsersHandler struct {
	Resource[domain.User]
	users   postgres.UsersRepo
	resizer *images.Resizer
}

func NewUsersHandler(users postgres.UsersRepo, resizer *images.Resizer) *UsersHandler {
	return &UsersHandler{
		Resource: Resource[domain.User]{
			Store:         users,
			ListFields:    postgres.UserListFields(),
			ValidatePatch: domain.ValidateUserPatch,
		},
		users:   users,
		resizer: resizer,
	}
}

func (h *UsersHandler) Me(w http.ResponseWriter, r *http.Request) {
	response.Success(w, http.StatusOK, middleware.CurrentUser(r.Context()))
}

// UpdateMe accepts multipart (profile fields plus a photo) or plain JSON.
// Password keys are rejected outright; the dedicated route owns those.
func (h *UsersHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	user := middleware.CurrentUser(r.Context())

	patch := map[string]any{}
	var storedPhoto string
	if isMultipart(r) {
		stored, err := h.multipartPatch(r, user, patch)
		if err != nil {
			response.Error(w, r, err)
			return
		}
		storedPhoto = stored
	} else {
		if err := decodeBody(r, &patch); err != nil {
			response.Error(w, r, err)
			return
		}
	}

	for key := range patch {
		if key == "password" || key == "passwordConfirm" {
			response.Error(w, r, apierror.BadRequest(apierror.CodeValidationFailed,
				"this route is not for password updates; please use /updateMyPassword"))
			return
		}
		if !profileFields[key] {
			delete(patch, key)
		}
	}
	if err := domain.ValidateUserPatch(patch); err != nil {
		response.Error(w, r, err)
		return
	}

	updated, err := h.users.UpdateProfile(r.Context(), user.ID, patch)
	if err != nil {
		// A photo nobody references must not stay on disk.
		_ = h.resizer.Remove(storedPhoto)
		response.Error(w, r, err)
		return
	}
	response.Success(w, http.StatusOK, map[string]any{"user": updated})
}

// multipartPatch fills patch from the form fields and returns the filename of
// the stored photo, if any, so the caller can clean up on a failed persist.
func (h *UsersHandler) multipartPatch(r *http.Request, user *domain.User, patch map[string]any) (string, error) {
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		return "", apierror.BadRequest(apierror.CodeValidationFailed, "invalid multipart body")
	}
	for key := range profileFields {
		if v := r.FormValue(key); v != "" {
			patch[key] = v
		}
	}

	file, _, err := r.FormFile("photo")
	if err != nil {
		if err == http.ErrMissingFile {
			return "", nil
		}
		return "", apierror.BadRequest(apierror.CodeValidationFailed, "invalid photo upload")
	}
	defer file.Close()

	filename := fmt.Sprintf("user-%d-%d.jpeg", user.ID, time.Now().Unix())
	stored, err := h.resizer.Resize(file, 500, 500, filename)
	if err != nil {
		return "", apierror.Wrap(err, http.StatusBadRequest, apierror.CodeValidationFailed,
			"not an image; please upload only images")
	}
	patch["photo"] = stored
	return stored, nil
}

// DeleteMe deactivates the account; the row stays for history.
func (h *UsersHandler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	user := middleware.CurrentUser(r.Context())
	if err := h.users.Deactivate(r.Context(), user.ID); err != nil {
		response.Error(w, r, err)
		return
	}
	response.NoContent(w)
}

func isMultipart(r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	return len(ct) >= 19 && ct[:19] == "multipart/form-data"
}
