package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/amadev/osprofiler/internal/metrics"
	"github.com/amadev/osprofiler/pkg/driver"
	"github.com/amadev/osprofiler/pkg/trace/model"
	"go.uber.org/zap"
)

// NotifyHandler creates a handler storing one notification, or a JSON array of them.
// Notifications are stored in order; the first failure stops the request.
// @Summary Store profiler notifications.
// @Tags notifications
// @Accept json
// @Produce json
// @Success 202 {object} NotifyResponseDTO "Number of notifications stored"
// @Failure 400 {object} ErrorMessage "Malformed notification"
// @Failure 501 {object} ErrorMessage "Backend cannot store notifications"
// @Router /notifications [post]
func NotifyHandler(
	d driver.Driver,
	m *metrics.Metrics,
	logger *zap.Logger,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func(Body io.ReadCloser) {
			err := Body.Close()
			if err != nil {
				logger.Error("Error encountered when closing request body", zap.Error(err))
			}
		}(r.Body)

		notifications, err := decodeNotifications(r.Body)
		if err != nil {
			logger.Error("Error encountered when decoding request body", zap.Error(err))
			HttpError(w, "Invalid request payload", http.StatusBadRequest, logger)
			return
		}
		if len(notifications) == 0 {
			writeError(w, ErrEmptyBody, logger)
			return
		}

		for i, notification := range notifications {
			err := d.Notify(r.Context(), notification)
			m.RecordNotification(metrics.SourceHTTP, err)
			if err != nil {
				logger.Error(
					"Error encountered when storing notification",
					zap.Int("index", i),
					zap.String("trace_id", notification.TraceID),
					zap.Error(err),
				)
				writeError(w, fmt.Errorf("notification %d: %w", i, err), logger)
				return
			}
		}
		writeJSON(w, http.StatusAccepted, NotifyResponseDTO{Accepted: len(notifications)}, logger)
	}
}

func decodeNotifications(body io.Reader) ([]model.Notification, error) {
	var raw json.RawMessage
	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		return nil, err
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var notifications []model.Notification
		if err := json.Unmarshal(trimmed, &notifications); err != nil {
			return nil, err
		}
		return notifications, nil
	}
	var notification model.Notification
	if err := json.Unmarshal(trimmed, &notification); err != nil {
		return nil, err
	}
	return []model.Notification{notification}, nil
}
