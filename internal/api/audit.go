package api

import (
	"net/http"
	"strconv"

	"github.com/nerrad567/smarthome-hub/internal/audit"
)

// handleListAudit pages through the audit trail, newest first.
//
// Query parameters (all optional):
//   - action: create, delete or command
//   - entity_type: home, room, thermometer or socket
//   - entity_id: entity path, e.g. "Home/Kitchen/Kettle"
//   - limit: page size, default 50, at most 200
//   - offset: entries to skip
func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	store := s.recorder.Store()
	if store == nil {
		fail(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "audit trail is disabled")
		return
	}

	params := r.URL.Query()
	q := audit.Query{
		Action:     params.Get("action"),
		EntityType: params.Get("entity_type"),
		EntityID:   params.Get("entity_id"),
	}
	for name, dst := range map[string]*int{"limit": &q.Limit, "offset": &q.Offset} {
		raw := params.Get(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			badRequest(w, name+" must be an integer")
			return
		}
		*dst = n
	}

	page, err := store.List(r.Context(), q)
	if err != nil {
		s.logger.Error("listing audit trail failed", "error", err, "request_id", requestID(r.Context()))
		fail(w, http.StatusInternalServerError, ErrCodeInternal, "audit trail unavailable")
		return
	}
	respond(w, http.StatusOK, page)
}
