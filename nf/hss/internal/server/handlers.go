package server

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/openepc/mme/nf/hss/internal/service"
)

// authenticationInformationRequest is the S6a AIR body: the IMSI being
// authenticated and, on a resynchronization retry, the UE's AUTS token.
type authenticationInformationRequest struct {
	IMSI string `json:"imsi"`
	AUTS string `json:"auts,omitempty"` // base64
}

// authenticationInformationAnswer is the S6a AIA body: one EPS-AKA
// vector, everything the MME needs to run Authentication and derive
// NAS/AS keys without a further round trip.
type authenticationInformationAnswer struct {
	RAND  string `json:"rand"`
	AUTN  string `json:"autn"`
	XRES  string `json:"xres"`
	KASME string `json:"kasme"`
}

// handleAuthenticationInformationRequest serves the S6a
// Authentication-Information-Request/Answer exchange.
func (s *Server) handleAuthenticationInformationRequest(w http.ResponseWriter, r *http.Request) {
	var req authenticationInformationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	var auts []byte
	if req.AUTS != "" {
		decoded, err := base64.StdEncoding.DecodeString(req.AUTS)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid AUTS encoding", err)
			return
		}
		auts = decoded
	}

	s.logger.Info("received authentication-information-request", zap.String("imsi", req.IMSI))

	vector, err := s.authService.AuthenticationInformationRequest(req.IMSI, auts)
	if err != nil {
		if _, ok := err.(service.ErrUnknownSubscriber); ok {
			s.respondError(w, http.StatusNotFound, "unknown subscriber", err)
			return
		}
		s.respondError(w, http.StatusInternalServerError, "failed to generate authentication vector", err)
		return
	}

	s.respondJSON(w, http.StatusOK, authenticationInformationAnswer{
		RAND:  base64.StdEncoding.EncodeToString(vector.RAND),
		AUTN:  base64.StdEncoding.EncodeToString(vector.AUTN),
		XRES:  base64.StdEncoding.EncodeToString(vector.XRES),
		KASME: base64.StdEncoding.EncodeToString(vector.KASME[:]),
	})
}

// updateLocationRequest is the S6a ULR body.
type updateLocationRequest struct {
	IMSI string `json:"imsi"`
}

// handleUpdateLocationRequest serves the S6a
// Update-Location-Request/Answer exchange.
func (s *Server) handleUpdateLocationRequest(w http.ResponseWriter, r *http.Request) {
	var req updateLocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	if err := s.authService.UpdateLocation(req.IMSI); err != nil {
		if _, ok := err.(service.ErrUnknownSubscriber); ok {
			s.respondError(w, http.StatusNotFound, "unknown subscriber", err)
			return
		}
		s.respondError(w, http.StatusInternalServerError, "failed to update location", err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]string{"imsi": req.IMSI, "result": "DIAMETER_SUCCESS"})
}

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

	response := map[string]interface{}{
		"status": status,
		"title":  message,
	}
	if err != nil {
		response["detail"] = err.Error()
	}
	json.NewEncoder(w).Encode(response)
}
