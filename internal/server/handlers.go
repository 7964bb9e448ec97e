package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/sells-group/icp-research/internal/model"
)

// ResearchRequest is the POST /research body.
type ResearchRequest struct {
	BusinessContext string `json:"business_context"`
	ResearchType    string `json:"research_type"`
	OutputFormat    string `json:"output_format"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

var endpoints = []string{"/", "/health", "/research", "/memory/stats"}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service":   serviceName,
		"status":    "ready",
		"endpoints": endpoints,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleResearchUsage(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Research agent ready",
		"endpoints": map[string]string{
			"POST /research":    "Run research with a JSON payload",
			"GET /memory/stats": "Learning memory statistics",
			"GET /health":       "Health check",
		},
		"test_payload": ResearchRequest{
			BusinessContext: "Your business context here",
			ResearchType:    model.DefaultResearchType,
			OutputFormat:    model.OutputPsychologyReport,
		},
		"output_formats": []string{model.OutputFullJSON, model.OutputPsychologyReport, model.OutputCampaignReady},
	})
}

func (s *Server) handleResearch(w http.ResponseWriter, r *http.Request) {
	var req ResearchRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "invalid request body"})
		return
	}
	if strings.TrimSpace(req.BusinessContext) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "business_context is required"})
		return
	}
	ctx := r.Context()
	if secs := s.cfg.RequestTimeoutSecs; secs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(secs)*time.Second)
		defer cancel()
	}

	state := model.NewResearchState(req.BusinessContext, req.ResearchType, req.OutputFormat)
	result, err := s.researcher.Run(ctx, state)
	if err != nil {
		zap.L().Error("server: research failed",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("session_id", state.SessionID),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Detail: detail(err)})
		return
	}

	// Formats other than the two text ones get the full state.
	switch result.OutputFormat {
	case model.OutputPsychologyReport:
		writeJSON(w, http.StatusOK, map[string]string{"report": result.PsychologyReport})
	case model.OutputCampaignReady:
		writeJSON(w, http.StatusOK, map[string]string{"insights": result.CampaignInsights})
	default:
		writeJSON(w, http.StatusOK, result)
	}
}

func (s *Server) handleMemoryStats(w http.ResponseWriter, _ *http.Request) {
	if s.stats == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Detail: "memory store not available"})
		return
	}
	writeJSON(w, http.StatusOK, s.stats.Stats())
}

// detail renders err for clients without the stack traces eris attaches
// under %+v.
func detail(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "research timed out: " + err.Error()
	}
	return err.Error()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("server: encode response", zap.Error(err))
	}
}
