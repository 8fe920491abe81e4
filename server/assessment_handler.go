package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/credlink/openbank-credit/assessment"
	"github.com/credlink/openbank-credit/internal/utils"
	"github.com/rs/zerolog/log"
)

// assessmentResponse is the wire shape consumed by the application pages.
// The numeric and boolean fields are always present: a declined result
// reports approved=false and its zero offer terms explicitly.
type assessmentResponse struct {
	Success     bool                       `json:"success"`
	Score       float64                    `json:"score"`
	Approved    bool                       `json:"approved"`
	CreditLimit float64                    `json:"creditLimit"`
	APR         float64                    `json:"apr"`
	SetupFee    float64                    `json:"setupFee"`
	Details     assessment.ComponentScores `json:"details,omitzero"`
	Reason      string                     `json:"reason,omitempty"`
	Timestamp   *time.Time                 `json:"timestamp,omitempty"`
}

// AssessmentHandler returns the session's credit assessment, recomputing
// through the cache when stale. Failures are absorbed: the caller gets
// either a (possibly stale) result or an explicit pending signal, never an
// error page.
func (s *Server) AssessmentHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := s.loadSession(r)
		if err != nil {
			writeAssessmentPending(w, "No application session yet.")
			return
		}

		result, err := s.cache.GetOrRecompute(r.Context(), session.ID)
		if err != nil {
			log.Debug().Err(err).Msg("assessment unavailable")
			writeAssessmentPending(w, "Assessment not yet available.")
			return
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		_ = json.NewEncoder(w).Encode(assessmentResponse{
			Success:     true,
			Score:       result.Score,
			Approved:    result.Approved,
			CreditLimit: result.CreditLimit,
			APR:         result.APR,
			SetupFee:    result.SetupFee,
			Details:     result.Components,
			Reason:      result.Reason,
			Timestamp:   utils.Ptr(result.ComputedAt),
		})
	}
}

func writeAssessmentPending(w http.ResponseWriter, reason string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(assessmentResponse{
		Success: false,
		Reason:  reason,
	})
}
