package handlers

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/jpeg"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/wildtrek/tours/internal/api/query"
	"github.com/wildtrek/tours/internal/domain"
	"github.com/wildtrek/tours/internal/http/middleware"
	"github.com/wildtrek/tours/internal/platform/images"
)

type mockUsersRepo struct {
	updateProfileCalls int
	updateProfileErr   error
}

func (m *mockUsersRepo) Create(_ context.Context, name, email, _ string) (*domain.User, error) {
	return &domain.User{ID: 1, Name: name, Email: email}, nil
}
func (m *mockUsersRepo) FindByEmail(_ context.Context, _ string) (*domain.User, error) {
	return nil, errors.New("not implemented")
}
func (m *mockUsersRepo) FindActiveByID(_ context.Context, _ int64) (*domain.User, error) {
	return nil, errors.New("not implemented")
}
func (m *mockUsersRepo) FindByResetHash(_ context.Context, _ string) (*domain.User, error) {
	return nil, errors.New("not implemented")
}
func (m *mockUsersRepo) SetResetToken(_ context.Context, _ int64, _ string, _ time.Time) error {
	return nil
}
func (m *mockUsersRepo) ClearResetToken(_ context.Context, _ int64) error { return nil }
func (m *mockUsersRepo) SetPassword(_ context.Context, _ int64, _ string) error {
	return nil
}
func (m *mockUsersRepo) UpdateProfile(_ context.Context, id int64, patch map[string]any) (*domain.User, error) {
	m.updateProfileCalls++
	if m.updateProfileErr != nil {
		return nil, m.updateProfileErr
	}
	u := &domain.User{ID: id, Name: "Leo", Email: "leo@example.com"}
	if photo, ok := patch["photo"].(string); ok {
		u.Photo = photo
	}
	return u, nil
}
func (m *mockUsersRepo) Deactivate(_ context.Context, _ int64) error { return nil }
func (m *mockUsersRepo) List(_ context.Context, _ query.ListOptions) ([]domain.User, error) {
	return nil, nil
}
func (m *mockUsersRepo) Find(_ context.Context, _ int64) (*domain.User, error) {
	return nil, errors.New("not implemented")
}
func (m *mockUsersRepo) Insert(_ context.Context, _ *domain.User) (*domain.User, error) {
	return nil, errors.New("not implemented")
}
func (m *mockUsersRepo) Update(_ context.Context, _ int64, _ map[string]any) (*domain.User, error) {
	return nil, errors.New("not implemented")
}
func (m *mockUsersRepo) Delete(_ context.Context, _ int64) error { return nil }

// photoRequest builds a multipart PATCH /me carrying the given bytes as the
// photo field, with user 7 already resolved in the context.
func photoRequest(t *testing.T, photo []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("photo", "avatar.jpg")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(photo); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/users/me", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req.WithContext(middleware.WithUser(req.Context(), &domain.User{ID: 7, Role: domain.RoleUser}))
}

func validPhoto(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 20, 10)), nil); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	return buf.Bytes()
}

func uploadDirEntries(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	return len(entries)
}

func TestUpdateMeRejectsNonImagePhoto(t *testing.T) {
	dir := t.TempDir()
	repo := &mockUsersRepo{}
	h := NewUsersHandler(repo, images.NewResizer(dir))

	rec := httptest.NewRecorder()
	h.UpdateMe(rec, photoRequest(t, []byte("definitely not pixels")))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400\nbody: %s", rec.Code, rec.Body.String())
	}
	if repo.updateProfileCalls != 0 {
		t.Errorf("profile updated %d time(s) despite failed resize", repo.updateProfileCalls)
	}
	if n := uploadDirEntries(t, dir); n != 0 {
		t.Errorf("failed upload left %d file(s) on disk", n)
	}
}

func TestUpdateMeRemovesPhotoWhenPersistFails(t *testing.T) {
	dir := t.TempDir()
	repo := &mockUsersRepo{updateProfileErr: errors.New("connection reset")}
	h := NewUsersHandler(repo, images.NewResizer(dir))

	rec := httptest.NewRecorder()
	h.UpdateMe(rec, photoRequest(t, validPhoto(t)))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if repo.updateProfileCalls != 1 {
		t.Fatalf("profile update called %d time(s), want 1", repo.updateProfileCalls)
	}
	if n := uploadDirEntries(t, dir); n != 0 {
		t.Errorf("orphaned photo left on disk after failed update (%d file(s))", n)
	}
}

func TestUpdateMeStoresResizedPhoto(t *testing.T) {
	dir := t.TempDir()
	repo := &mockUsersRepo{}
	h := NewUsersHandler(repo, images.NewResizer(dir))

	rec := httptest.NewRecorder()
	h.UpdateMe(rec, photoRequest(t, validPhoto(t)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d\nbody: %s", rec.Code, rec.Body.String())
	}
	if n := uploadDirEntries(t, dir); n != 1 {
		t.Errorf("got %d stored file(s), want 1", n)
	}
}
