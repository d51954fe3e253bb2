package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/vendor-desk-assistant/agent/contract"
)

/* ------------------------------ Vendors ------------------------------ */

func (s *Server) listVendors(w http.ResponseWriter, r *http.Request) {
	vendors, err := s.store.ListVendors(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if vendors == nil {
		vendors = []contractx.Vendor{}
	}
	writeJSON(w, http.StatusOK, vendors)
}

func (s *Server) createVendor(w http.ResponseWriter, r *http.Request) {
	var in contractx.VendorFields
	if !decodeBody(w, r, &in) {
		return
	}
	v, err := s.store.CreateVendor(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func (s *Server) updateVendor(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "invalid vendor id")
	if !ok {
		return
	}
	var in contractx.VendorFields
	if !decodeBody(w, r, &in) {
		return
	}
	v, err := s.store.UpdateVendor(r.Context(), id, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) deleteVendor(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "invalid vendor id")
	if !ok {
		return
	}
	if err := s.store.DeleteVendor(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

/* --------------------------- Purchase orders --------------------------- */

func (s *Server) listOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := s.store.ListOrders(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if orders == nil {
		orders = []contractx.PurchaseOrder{}
	}
	writeJSON(w, http.StatusOK, orders)
}

func (s *Server) createOrder(w http.ResponseWriter, r *http.Request) {
	var in contractx.OrderFields
	if !decodeBody(w, r, &in) {
		return
	}
	o, err := s.store.CreateOrder(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

func (s *Server) reviseOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "invalid po id")
	if !ok {
		return
	}
	var in contractx.OrderFields
	if !decodeBody(w, r, &in) {
		return
	}
	o, err := s.store.ReviseOrder(r.Context(), id, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (s *Server) archiveOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "invalid po id")
	if !ok {
		return
	}
	if err := s.store.ArchiveOrder(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) deleteOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "invalid po id")
	if !ok {
		return
	}
	if err := s.store.DeleteOrder(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

/* ------------------------------- Helpers ------------------------------- */

func pathID(w http.ResponseWriter, r *http.Request, msg string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, msg, http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("encode response failed")
	}
}

// writeError writes err as a plain-text body; clients show it verbatim.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, contractx.ErrValidation), errors.Is(err, contractx.ErrInvalidStatus):
		status = http.StatusBadRequest
	case errors.Is(err, contractx.ErrNotFound):
		status = http.StatusNotFound
	default:
		log.Error().Err(err).Msg("store operation failed")
	}
	http.Error(w, err.Error(), status)
}
