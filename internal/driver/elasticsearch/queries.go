package elasticsearch

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// maxResultWindow is the default index.max_result_window of Elasticsearch.
const maxResultWindow = 10000

func termFilter(field string, value string) map[string]interface{} {
	return map[string]interface{}{
		"term": map[string]interface{}{
			field: value,
		},
	}
}

func baseIDQuery(baseID string) map[string]interface{} {
	return map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": []map[string]interface{}{termFilter("base_id", baseID)},
			},
		},
		"sort": timestampOrder(),
	}
}

func timestampOrder() []map[string]interface{} {
	return []map[string]interface{}{
		{"timestamp": map[string]interface{}{"order": "asc"}},
	}
}

func listQuery(query map[string]string) map[string]interface{} {
	fields := make([]string, 0, len(query))
	for field := range query {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	filters := make([]map[string]interface{}, 0, len(fields))
	for _, field := range fields {
		filters = append(filters, termFilter(field, query[field]))
	}
	return map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": filters,
			},
		},
		"sort": timestampOrder(),
	}
}

func olderThanQuery(cutoff time.Time) map[string]interface{} {
	return map[string]interface{}{
		"query": map[string]interface{}{
			"range": map[string]interface{}{
				"recorded_at": map[string]interface{}{
					"lt": cutoff.UnixMilli(),
				},
			},
		},
	}
}

func marshalQuery(query map[string]interface{}) (string, error) {
	queryJSON, err := json.Marshal(query)
	if err != nil {
		return "", fmt.Errorf("failed to marshal query: %w", err)
	}
	return string(queryJSON), nil
}
