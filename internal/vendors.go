package internal

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"vendorbook-api/internal/models"
	"vendorbook-api/internal/store"
)

const maxBodyBytes = 1 << 20

// VendorStore is the storage the vendor handlers depend on.
type VendorStore interface {
	Insert(ctx context.Context, in models.VendorInput) (models.Vendor, error)
	List(ctx context.Context) ([]models.Vendor, error)
	Get(ctx context.Context, id int64) (models.Vendor, error)
	Update(ctx context.Context, id int64, in models.VendorInput) (int64, error)
	Delete(ctx context.Context, id int64) (int64, error)
	Ping(ctx context.Context) error
}

var (
	errNameRequired   = &ValidationError{Reason: "Vendor name is required"}
	errInvalidJSON    = &ValidationError{Reason: "invalid JSON"}
	errVendorNotFound = &NotFoundError{Reason: "Vendor not found"}
)

type messageResponse struct {
	Message string `json:"message"`
}

func (s *Server) createVendor(w http.ResponseWriter, r *http.Request) {
	in, err := s.decodeVendor(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	v, err := s.Store.Insert(r.Context(), in)
	if err != nil {
		s.respondError(w, r, &StorageError{Op: "insert", Reason: "Failed to create vendor", Err: err})
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func (s *Server) listVendors(w http.ResponseWriter, r *http.Request) {
	vendors, err := s.Store.List(r.Context())
	if err != nil {
		s.respondError(w, r, &StorageError{Op: "list", Reason: "Failed to fetch vendors", Err: err})
		return
	}
	if vendors == nil {
		vendors = []models.Vendor{}
	}
	writeJSON(w, http.StatusOK, vendors)
}

func (s *Server) getVendor(w http.ResponseWriter, r *http.Request) {
	id, ok := vendorID(r)
	if !ok {
		s.respondError(w, r, errVendorNotFound)
		return
	}

	v, err := s.Store.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		s.respondError(w, r, errVendorNotFound)
		return
	}
	if err != nil {
		s.respondError(w, r, &StorageError{Op: "get", Reason: "Failed to fetch vendor", Err: err})
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// updateVendor overwrites all editable fields and echoes the submitted
// values back without re-reading the row.
func (s *Server) updateVendor(w http.ResponseWriter, r *http.Request) {
	id, idOK := vendorID(r)

	in, err := s.decodeVendor(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if !idOK {
		s.respondError(w, r, errVendorNotFound)
		return
	}

	n, err := s.Store.Update(r.Context(), id, in)
	if err != nil {
		s.respondError(w, r, &StorageError{Op: "update", Reason: "Failed to update vendor", Err: err})
		return
	}
	if n == 0 {
		s.respondError(w, r, errVendorNotFound)
		return
	}
	writeJSON(w, http.StatusOK, in.ToVendor(id))
}

func (s *Server) deleteVendor(w http.ResponseWriter, r *http.Request) {
	id, ok := vendorID(r)
	if !ok {
		s.respondError(w, r, errVendorNotFound)
		return
	}

	n, err := s.Store.Delete(r.Context(), id)
	if err != nil {
		s.respondError(w, r, &StorageError{Op: "delete", Reason: "Failed to delete vendor", Err: err})
		return
	}
	if n == 0 {
		s.respondError(w, r, errVendorNotFound)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Vendor deleted successfully"})
}

// decodeVendor reads the request body and checks the required name.
func (s *Server) decodeVendor(w http.ResponseWriter, r *http.Request) (models.VendorInput, error) {
	var in models.VendorInput
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil && !errors.Is(err, io.EOF) {
		return in, errInvalidJSON
	}
	if err := s.validate.Struct(in); err != nil {
		return in, errNameRequired
	}
	return in, nil
}

// vendorID parses the {id} URL parameter. Ids that are not positive
// integers cannot exist.
func vendorID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
