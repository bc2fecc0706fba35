// Package handlers wires HTTP routes to stores and services.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/wildtrek/tours/internal/api/apierror"
	"github.com/wildtrek/tours/internal/api/query"
	"github.com/wildtrek/tours/internal/http/response"
)

// Store is the persistence surface a Resource needs. All four repos satisfy
// it for their own row type.
type Store[T any] interface {
	List(ctx context.Context, opts query.ListOptions) ([]T, error)
	Find(ctx context.Context, id int64) (*T, error)
	Insert(ctx context.Context, v *T) (*T, error)
	Update(ctx context.Context, id int64, patch map[string]any) (*T, error)
	Delete(ctx context.Context, id int64) error
}

// normalizable and validatable let create bodies fix themselves up and check
// themselves before they reach the store. They are separate so a type that
// only validates is still validated.
type normalizable interface {
	Normalize()
}

type validatable interface {
	Validate() error
}

// ScopeFunc injects route context into a request, e.g. forcing a tourId
// filter on nested review listings or stamping the author on create bodies.
type ScopeFunc[T any] func(r *http.Request, opts *query.ListOptions, body *T)

// Resource serves the uniform CRUD surface over a Store. Per-resource
// behavior hangs off the optional fields.
type Resource[T any] struct {
	Store         Store[T]
	ListFields    map[string]bool
	ValidatePatch func(patch map[string]any) error
	Scope         ScopeFunc[T]

	// AfterCreate runs after a successful create; AfterChange after any
	// successful mutation, create included unless AfterCreate is set.
	// Both exist for aggregate maintenance.
	AfterCreate func(ctx context.Context, v *T)
	AfterChange func(ctx context.Context, v *T)
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, apierror.BadRequest(apierror.CodeInvalidIdentifier, "invalid id in URL")
	}
	return id, nil
}

func decodeBody(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apierror.BadRequest(apierror.CodeValidationFailed, "invalid request body")
	}
	return nil
}

func (res *Resource[T]) List(w http.ResponseWriter, r *http.Request) {
	opts := query.ParseListOptions(r.URL.Query(), res.ListFields)
	if res.Scope != nil {
		res.Scope(r, &opts, nil)
	}

	items, err := res.Store.List(r.Context(), opts)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.SuccessList(w, len(items), query.Project(items, opts.Fields))
}

func (res *Resource[T]) GetOne(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		response.Error(w, r, err)
		return
	}

	item, err := res.Store.Find(r.Context(), id)
	if err != nil {
		response.Error(w, r, err)
		return
	}

	fields := query.ParseFields(r.URL.Query())
	response.Success(w, http.StatusOK, query.Project(item, fields))
}

func (res *Resource[T]) Create(w http.ResponseWriter, r *http.Request) {
	var body T
	if err := decodeBody(r, &body); err != nil {
		response.Error(w, r, err)
		return
	}
	if res.Scope != nil {
		res.Scope(r, nil, &body)
	}
	if n, ok := any(&body).(normalizable); ok {
		n.Normalize()
	}
	if v, ok := any(&body).(validatable); ok {
		if err := v.Validate(); err != nil {
			response.Error(w, r, err)
			return
		}
	}

	created, err := res.Store.Insert(r.Context(), &body)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	switch {
	case res.AfterCreate != nil:
		res.AfterCreate(r.Context(), created)
	case res.AfterChange != nil:
		res.AfterChange(r.Context(), created)
	}
	response.Success(w, http.StatusCreated, created)
}

func (res *Resource[T]) UpdateOne(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		response.Error(w, r, err)
		return
	}

	patch := map[string]any{}
	if err := decodeBody(r, &patch); err != nil {
		response.Error(w, r, err)
		return
	}
	if res.ValidatePatch != nil {
		if err := res.ValidatePatch(patch); err != nil {
			response.Error(w, r, err)
			return
		}
	}

	updated, err := res.Store.Update(r.Context(), id, patch)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	if res.AfterChange != nil {
		res.AfterChange(r.Context(), updated)
	}
	response.Success(w, http.StatusOK, updated)
}

func (res *Resource[T]) DeleteOne(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		response.Error(w, r, err)
		return
	}

	// Fetch first so AfterChange still sees the row that went away.
	var deleted *T
	if res.AfterChange != nil {
		deleted, err = res.Store.Find(r.Context(), id)
		if err != nil {
			response.Error(w, r, err)
			return
		}
	}

	if err := res.Store.Delete(r.Context(), id); err != nil {
		response.Error(w, r, err)
		return
	}
	if res.AfterChange != nil {
		res.AfterChange(r.Context(), deleted)
	}
	response.NoContent(w)
}

// Mount registers the five CRUD routes on a chi router.
func (res *Resource[T]) Mount(r chi.Router) {
	r.Get("/", res.List)
	r.Post("/", res.Create)
	r.Get("/{id}", res.GetOne)
	r.Patch("/{id}", res.UpdateOne)
	r.Delete("/{id}", res.DeleteOne)
}
