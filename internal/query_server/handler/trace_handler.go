package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/amadev/osprofiler/internal/metrics"
	"github.com/amadev/osprofiler/pkg/driver"
	"github.com/amadev/osprofiler/pkg/trace/service"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const ExcludedTraceIdsHeader = "X-Excluded-Trace-Ids"

// ReportHandler creates a handler returning the assembled report of one trace.
// Spans left out of a malformed trace are named in the X-Excluded-Trace-Ids header.
// @Summary Get the report of a trace.
// @Tags traces
// @Produce json
// @Param base_id path string true "The base id of the trace"
// @Success 200 {object} model.Node "Report rooted at the total node"
// @Failure 404 {object} ErrorMessage "Nothing was stored for the trace"
// @Failure 501 {object} ErrorMessage "Backend cannot read traces"
// @Router /traces/{base_id} [get]
func ReportHandler(
	d driver.Driver,
	m *metrics.Metrics,
	logger *zap.Logger,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		baseID := mux.Vars(r)["base_id"]
		if baseID == "" {
			HttpError(w, ErrNoBaseId.Error(), http.StatusBadRequest, logger)
			return
		}

		start := time.Now()
		report, err := d.GetReport(r.Context(), baseID)
		var malformed *service.MalformedTraceError
		excluded := 0
		if errors.As(err, &malformed) && report != nil {
			excluded = len(malformed.TraceIDs)
			logger.Warn(
				"Report excludes malformed entries",
				zap.String("base_id", baseID),
				zap.Strings("excluded", malformed.TraceIDs),
			)
			w.Header().Set(ExcludedTraceIdsHeader, strings.Join(malformed.TraceIDs, ","))
			err = nil
		}
		m.RecordReport(start, excluded, err)
		if err != nil {
			logger.Error("Error encountered when getting report", zap.String("base_id", baseID), zap.Error(err))
			writeError(w, err, logger)
			return
		}
		if len(report.Children) == 0 && excluded == 0 {
			writeError(w, ErrTraceNotFound, logger)
			return
		}
		writeJSON(w, http.StatusOK, report, logger)
	}
}

// EvictHandler creates a handler dropping a stored trace.
// @Summary Delete a trace.
// @Tags traces
// @Param base_id path string true "The base id of the trace"
// @Success 204 "Trace deleted"
// @Failure 501 {object} ErrorMessage "Backend cannot delete traces"
// @Router /traces/{base_id} [delete]
func EvictHandler(
	d driver.Driver,
	logger *zap.Logger,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		baseID := mux.Vars(r)["base_id"]
		evicter, ok := d.(driver.Evicter)
		if !ok {
			writeError(w, &driver.NotSupportedError{Driver: d.Name(), Method: "Evict"}, logger)
			return
		}
		if err := evicter.Evict(r.Context(), baseID); err != nil {
			logger.Error("Error encountered when evicting trace", zap.String("base_id", baseID), zap.Error(err))
			writeError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// SearchHandler creates a handler listing traces matching equality filters.
// @Summary List traces.
// @Tags traces
// @Accept json
// @Produce json
// @Param search body SearchRequestDTO true "Field filters and the fields to return"
// @Success 200 {object} SearchResponseDTO "One record per trace"
// @Failure 400 {object} ErrorMessage "Unknown filter field"
// @Failure 501 {object} ErrorMessage "Backend cannot list traces"
// @Router /traces/search [post]
func SearchHandler(
	d driver.Driver,
	logger *zap.Logger,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func(Body io.ReadCloser) {
			err := Body.Close()
			if err != nil {
				logger.Error("Error encountered when closing request body", zap.Error(err))
			}
		}(r.Body)

		var req SearchRequestDTO
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			logger.Error("Error encountered when decoding request body", zap.Error(err))
			HttpError(w, "Invalid request payload", http.StatusBadRequest, logger)
			return
		}

		traces, err := d.ListTraces(r.Context(), req.Query, req.Fields)
		if err != nil {
			logger.Error("Error encountered when listing traces", zap.Error(err))
			writeError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, SearchResponseDTO{Traces: traces}, logger)
	}
}
