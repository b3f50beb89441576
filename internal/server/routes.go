package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/moltworks/rapport/internal/store"
	"github.com/moltworks/rapport/internal/tier"
)

// writeError sends a JSON error body. Error text routinely contains
// quotes (%q in validation messages), so it must go through the encoder.
func writeError(w http.ResponseWriter, code int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

func (s *Server) handleRecordInteraction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		From       string `json:"from"`
		To         string `json:"to"`
		Kind       string `json:"kind"`
		Content    string `json:"content"`
		PostRef    string `json:"post_ref"`
		ObservedAt int64  `json:"observed_at"` // unix millis, optional
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid json"))
		return
	}

	in := &store.Interaction{
		FromAccount: req.From,
		ToAccount:   req.To,
		Kind:        req.Kind,
		Content:     req.Content,
		PostRef:     req.PostRef,
		ObservedAt:  req.ObservedAt,
	}
	res, err := s.engine.RecordInteraction(r.Context(), in)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if res.Inserted {
		w.WriteHeader(http.StatusCreated)
	}
	json.NewEncoder(w).Encode(map[string]any{
		"inserted":    res.Inserted,
		"account":     res.Account,
		"reconnected": res.Reconnected,
		"tier":        int(res.NewTier),
	})
}

func (s *Server) handleGetContext(w http.ResponseWriter, r *http.Request) {
	account := chi.URLParam(r, "account")

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"account": account,
		"context": s.engine.Context(account),
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	export, err := s.engine.Export()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(export)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	events, err := s.db.RecentEvents(50)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"events": events})
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	account := chi.URLParam(r, "account")

	prof, err := s.db.GetProfile(account)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if prof == nil {
		writeError(w, http.StatusNotFound, errors.New("profile not found"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(profileView(prof))
}

func (s *Server) handleSetClassification(w http.ResponseWriter, r *http.Request) {
	account := chi.URLParam(r, "account")

	var req struct {
		Classification string `json:"classification"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid json"))
		return
	}

	class, err := tier.ParseClassification(req.Classification)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := s.engine.SetClassification(account, class); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	prof, err := s.db.GetProfile(account)
	if err != nil || prof == nil {
		writeError(w, http.StatusInternalServerError, errors.New("profile not found after relabel"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"account":        account,
		"classification": prof.Classification,
		"tier":           prof.Tier,
	})
}

func (s *Server) handlePin(w http.ResponseWriter, r *http.Request) {
	account := chi.URLParam(r, "account")

	if err := s.engine.Pin(account); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"account": account, "tier": int(tier.InnerCircle)})
}

func (s *Server) handleSweep(w http.ResponseWriter, r *http.Request) {
	res, err := s.engine.DecaySweep()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"flagged": res.Flagged,
		"demoted": res.Demoted,
	})
}

// profileView shapes a profile for JSON output.
func profileView(p *store.Profile) map[string]any {
	return map[string]any{
		"account_id":           p.AccountID,
		"classification":       p.Classification,
		"tier":                 p.Tier,
		"tier_name":            tier.Tier(p.Tier).String(),
		"first_interaction_at": p.FirstInteractionAt,
		"last_interaction_at":  p.LastInteractionAt,
		"total_interactions":   p.TotalInteractions,
		"avg_depth_score":      p.AvgDepthScore,
		"mutual_ratio":         p.MutualRatio,
		"topics":               p.Topics,
		"tone":                 p.Tone,
		"backstory":            p.Backstory,
		"memorable_moments":    p.MemorableMoments,
		"relationship_arc":     p.RelationshipArc,
		"cooling":              p.Cooling,
		"last_analyzed_at":     p.LastAnalyzedAt,
	}
}
