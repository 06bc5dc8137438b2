package driver

import (
	"strconv"
	"strings"

	"github.com/amadev/osprofiler/pkg/trace/model"
	"github.com/cespare/xxhash/v2"
)

// NotificationID is stable for a given event, so storage keyed by it overwrites a re-sent
// notification instead of storing it twice.
func NotificationID(n model.Notification) string {
	key := strings.Join([]string{n.BaseID, n.TraceID, n.EventName(), n.Timestamp}, "\x00")
	return strconv.FormatUint(xxhash.Sum64String(key), 16)
}
