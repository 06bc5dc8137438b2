package router

import (
	"net/http"
	"strconv"

	"github.com/amadev/osprofiler/internal/metrics"
	"github.com/amadev/osprofiler/internal/query_server/handler"
	"github.com/amadev/osprofiler/pkg/driver"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const RequestIdHeader = "X-Request-Id"

// CreateRouter serves notifications through writer and traces from reader. Both are the
// same driver unless notifications travel through a collector.
func CreateRouter(
	writer driver.Driver,
	reader driver.Driver,
	m *metrics.Metrics,
	logger *zap.Logger,
) http.Handler {
	r := mux.NewRouter()
	r.Use(requestMiddleware(m, logger))

	r.Handle(
		"/notifications", handler.NotifyHandler(
			writer,
			m,
			logger,
		),
	).Methods("POST")

	r.Handle(
		"/traces/search", handler.SearchHandler(
			reader,
			logger,
		),
	).Methods("POST")

	r.Handle(
		"/traces/{base_id}", handler.ReportHandler(
			reader,
			m,
			logger,
		),
	).Methods("GET")

	r.Handle(
		"/traces/{base_id}", handler.EvictHandler(
			reader,
			logger,
		),
	).Methods("DELETE")

	r.Handle("/metrics", m.Handler()).Methods("GET")

	return r
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

// requestMiddleware tags every request with an id and counts it by route and status.
func requestMiddleware(m *metrics.Metrics, logger *zap.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestId := r.Header.Get(RequestIdHeader)
			if requestId == "" {
				requestId = uuid.NewString()
			}
			w.Header().Set(RequestIdHeader, requestId)

			route := r.URL.Path
			if current := mux.CurrentRoute(r); current != nil {
				if template, err := current.GetPathTemplate(); err == nil {
					route = template
				}
			}
			logger.Info(
				"Received request",
				zap.String("request_id", requestId),
				zap.String("URL Path", r.URL.Path),
				zap.String("Method", r.Method),
			)

			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(recorder, r)
			m.RequestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		})
	}
}
