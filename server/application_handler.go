package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/credlink/openbank-credit/assessment"
)

// applicationRequest accepts the submitted application form as JSON.
type applicationRequest struct {
	FullName      string  `json:"fullName"`
	NationalID    string  `json:"nationalId"`
	Email         string  `json:"email"`
	Phone         string  `json:"phone"`
	MonthlyIncome float64 `json:"monthlyIncome"`
}

// SubmitApplicationHandler stores the application profile on the session.
// The profile survives the OAuth round-trip to the bank, so a submission
// made before connecting is still there when the user returns.
func (s *Server) SubmitApplicationHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := parseApplicationRequest(r)
		if err != nil {
			writeJSONError(w, "invalid_request", err.Error(), http.StatusBadRequest)
			return
		}

		session, err := s.loadOrCreateSession(w, r)
		if err != nil {
			writeJSONError(w, "server_error", "Failed to establish session", http.StatusInternalServerError)
			return
		}

		session.Profile = &assessment.Profile{
			FullName:      strings.TrimSpace(req.FullName),
			NationalID:    strings.TrimSpace(req.NationalID),
			Email:         strings.TrimSpace(req.Email),
			Phone:         strings.TrimSpace(req.Phone),
			MonthlyIncome: req.MonthlyIncome,
			SubmittedAt:   s.nowTime(),
		}
		if err := s.sessions.Upsert(session); err != nil {
			writeJSONError(w, "server_error", "Failed to persist application", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_ = json.NewEncoder(w).Encode(map[string]bool{"success": true})
	}
}

// GetApplicationHandler returns the stored application profile.
func (s *Server) GetApplicationHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := s.loadSession(r)
		if err != nil || session.Profile == nil {
			writeJSONError(w, "not_found", "No application submitted", http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_ = json.NewEncoder(w).Encode(session.Profile)
	}
}

func parseApplicationRequest(r *http.Request) (*applicationRequest, error) {
	var req applicationRequest

	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return nil, errInvalidApplication("malformed JSON body")
		}
	} else {
		if err := r.ParseForm(); err != nil {
			return nil, errInvalidApplication("malformed form data")
		}
		req.FullName = r.FormValue("fullName")
		req.NationalID = r.FormValue("nationalId")
		req.Email = r.FormValue("email")
		req.Phone = r.FormValue("phone")
		if v := r.FormValue("monthlyIncome"); v != "" {
			income, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, errInvalidApplication("monthlyIncome must be a number")
			}
			req.MonthlyIncome = income
		}
	}

	if strings.TrimSpace(req.FullName) == "" {
		return nil, errInvalidApplication("fullName is required")
	}
	if strings.TrimSpace(req.NationalID) == "" {
		return nil, errInvalidApplication("nationalId is required")
	}
	if strings.TrimSpace(req.Email) == "" || !strings.Contains(req.Email, "@") {
		return nil, errInvalidApplication("a valid email is required")
	}
	if req.MonthlyIncome < 0 {
		return nil, errInvalidApplication("monthlyIncome must not be negative")
	}
	return &req, nil
}

type errInvalidApplication string

func (e errInvalidApplication) Error() string { return string(e) }

// writeJSONError writes a JSON error response
func writeJSONError(w http.ResponseWriter, errorCode, description string, statusCode int) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":             errorCode,
		"error_description": description,
	})
}
