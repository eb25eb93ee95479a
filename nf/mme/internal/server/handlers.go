package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode JSON response", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string, err error) {
	s.logger.Error(message, zap.Error(err))
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)

	response := map[string]interface{}{"status": status, "title": message}
	if err != nil {
		response["detail"] = err.Error()
	}
	json.NewEncoder(w).Encode(response)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleGetStats reports the number of UE contexts per EMM state,
// generalizing the donor AMF's GetRegistrationStats.
func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"service": "MME",
		"plmn": map[string]string{
			"mcc": s.cfg.PLMN.MCC,
			"mnc": s.cfg.PLMN.MNC,
		},
		"gummei": map[string]interface{}{
			"mme_group_id": s.cfg.GUMMEI.MMEGroupID,
			"mme_code":     s.cfg.GUMMEI.MMECode,
		},
		"states": s.store.Stats(),
	})
}

// handleListUEs lists every identified UE context with its current EMM
// state, for operational inspection.
func (s *Server) handleListUEs(w http.ResponseWriter, r *http.Request) {
	ues := s.store.All()

	list := make([]map[string]interface{}, 0, len(ues))
	for _, ue := range ues {
		ue.RLock()
		list = append(list, map[string]interface{}{
			"imsi":             ue.IMSI,
			"guti":             ue.GUTI,
			"state":            ue.State.String(),
			"pending":          ue.Pending.Kind.String(),
			"created_at":       ue.CreatedAt,
			"last_activity_at": ue.LastActivityAt,
		})
		ue.RUnlock()
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"total": len(list),
		"ues":   list,
	})
}

// handleGetUE returns one UE's detail by IMSI.
func (s *Server) handleGetUE(w http.ResponseWriter, r *http.Request) {
	imsi := chi.URLParam(r, "imsi")

	ue, ok := s.store.LookupByIMSI(imsi)
	if !ok {
		s.respondError(w, http.StatusNotFound, "UE context not found", nil)
		return
	}

	ue.RLock()
	defer ue.RUnlock()
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"imsi":                      ue.IMSI,
		"guti":                      ue.GUTI,
		"ptmsi":                     ue.PTMSI,
		"state":                     ue.State.String(),
		"pending":                   ue.Pending.Kind.String(),
		"security_context_valid":    ue.Security.Valid(),
		"session_context_available": ue.SessionContextAvailable,
		"sgs_connected":             ue.SGs.Connected,
		"created_at":                ue.CreatedAt,
		"last_activity_at":          ue.LastActivityAt,
	})
}
