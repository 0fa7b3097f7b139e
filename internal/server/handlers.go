package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/claude/healthbridge/internal/bridge"
	"github.com/claude/healthbridge/internal/healthstore"
	"github.com/claude/healthbridge/internal/ingest"
)

func (s *Server) handleAvailability(w http.ResponseWriter, r *http.Request) {
	available, err := s.bridge.IsAvailable(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"available": available})
}

type permissionsRequest struct {
	Permissions []bridge.Permission `json:"permissions"`
}

func (s *Server) handleCheckPermissions(w http.ResponseWriter, r *http.Request) {
	var req permissionsRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	states, err := s.bridge.CheckPermissions(r.Context(), req.Permissions)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"permissions": states})
}

func (s *Server) handleRequestPermissions(w http.ResponseWriter, r *http.Request) {
	var req permissionsRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	granted, err := s.bridge.RequestPermissions(r.Context(), req.Permissions)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"permissions": granted})
}

func (s *Server) handleOpenSettings(w http.ResponseWriter, r *http.Request) {
	if err := s.bridge.OpenSettings(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleLatestSample(w http.ResponseWriter, r *http.Request) {
	dataType := r.URL.Query().Get("dataType")
	if dataType == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "dataType parameter required"})
		return
	}

	sample, err := s.bridge.LatestSample(r.Context(), bridge.DataType(dataType))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sample)
}

type aggregatedRequest struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	DataType  string `json:"dataType"`
	Bucket    string `json:"bucket"`
}

func (s *Server) handleAggregated(w http.ResponseWriter, r *http.Request) {
	var req aggregatedRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	start, end, err := parseRange(req.StartDate, req.EndDate)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	samples, err := s.bridge.QueryAggregated(r.Context(), start, end,
		bridge.DataType(req.DataType), bridge.Bucket(req.Bucket))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"aggregatedData": samples})
}

type workoutsQueryRequest struct {
	StartDate        string `json:"startDate"`
	EndDate          string `json:"endDate"`
	IncludeHeartRate bool   `json:"includeHeartRate"`
	IncludeRoute     bool   `json:"includeRoute"`
	IncludeSteps     bool   `json:"includeSteps"`
}

func (s *Server) handleQueryWorkouts(w http.ResponseWriter, r *http.Request) {
	var req workoutsQueryRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	start, end, err := parseRange(req.StartDate, req.EndDate)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	result, err := s.bridge.QueryWorkouts(r.Context(), bridge.WorkoutsRequest{
		Start:            start,
		End:              end,
		IncludeHeartRate: req.IncludeHeartRate,
		IncludeRoute:     req.IncludeRoute,
		IncludeSteps:     req.IncludeSteps,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type saveWorkoutRequest struct {
	ActivityType     string                   `json:"activityType"`
	StartDate        string                   `json:"startDate"`
	EndDate          string                   `json:"endDate"`
	Calories         *float64                 `json:"calories,omitempty"`
	Distance         *float64                 `json:"distance,omitempty"`
	Metadata         map[string]any           `json:"metadata,omitempty"`
	Route            []bridge.RouteSample     `json:"route,omitempty"`
	HeartRateSamples []bridge.HeartRateSample `json:"heartRateSamples,omitempty"`
}

func (s *Server) handleSaveWorkout(w http.ResponseWriter, r *http.Request) {
	var req saveWorkoutRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	start, end, err := parseRange(req.StartDate, req.EndDate)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	id, err := s.bridge.SaveWorkout(r.Context(), bridge.SaveWorkoutRequest{
		ActivityType:     req.ActivityType,
		Start:            start,
		End:              end,
		Calories:         req.Calories,
		Distance:         req.Distance,
		Metadata:         req.Metadata,
		Route:            req.Route,
		HeartRateSamples: req.HeartRateSamples,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "id": id.String()})
}

type saveMetricsRequest struct {
	WeightKg         *float64 `json:"weightKg,omitempty"`
	HeightCm         *float64 `json:"heightCm,omitempty"`
	BodyFatPercent   *float64 `json:"bodyFatPercent,omitempty"`
	RestingHeartRate *float64 `json:"restingHeartRate,omitempty"`
}

func (s *Server) handleSaveMetrics(w http.ResponseWriter, r *http.Request) {
	var req saveMetricsRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	inserted, err := s.bridge.SaveMetrics(r.Context(), bridge.SaveMetricsRequest{
		WeightKg:         req.WeightKg,
		HeightCm:         req.HeightCm,
		BodyFatPercent:   req.BodyFatPercent,
		RestingHeartRate: req.RestingHeartRate,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "inserted": inserted})
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var payload ingest.Payload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	result, err := s.ingest.Ingest(r.Context(), &payload)
	if err != nil {
		s.log.Error("ingest error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps bridge errors onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, bridge.ErrUnsupportedDataType),
		errors.Is(err, bridge.ErrInvalidBucket),
		errors.Is(err, bridge.ErrInvalidParameters):
		status = http.StatusBadRequest
	case errors.Is(err, bridge.ErrNoSampleFound):
		status = http.StatusNotFound
	case errors.Is(err, bridge.ErrSettingsUnavailable),
		errors.Is(err, healthstore.ErrSettingsUnavailable):
		status = http.StatusConflict
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

// parseRange parses the ISO-8601 start/end dates of a query body. Fractional
// seconds are accepted; both bounds are required.
func parseRange(startStr, endStr string) (start, end time.Time, err error) {
	if startStr == "" || endStr == "" {
		return time.Time{}, time.Time{}, fmt.Errorf("startDate and endDate are required")
	}
	start, err = time.Parse(time.RFC3339, startStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parsing startDate: %w", err)
	}
	end, err = time.Parse(time.RFC3339, endStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parsing endDate: %w", err)
	}
	return start, end, nil
}
