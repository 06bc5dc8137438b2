package bootstrapper

const DefaultNotificationIndexName = "osprofiler-notifications"

var notificationIndex = map[string]interface{}{
	"settings": map[string]interface{}{
		"number_of_shards":   1,
		"number_of_replicas": 1,
	},
	"mappings": map[string]interface{}{
		"properties": map[string]interface{}{
			"base_id": map[string]interface{}{
				"type": "keyword",
			},
			"trace_id": map[string]interface{}{
				"type": "keyword",
			},
			"parent_id": map[string]interface{}{
				"type": "keyword",
			},
			"name": map[string]interface{}{
				"type": "keyword",
			},
			"phase": map[string]interface{}{
				"type": "keyword",
			},
			"event": map[string]interface{}{
				"type": "keyword",
			},
			"project": map[string]interface{}{
				"type": "keyword",
			},
			"service": map[string]interface{}{
				"type": "keyword",
			},
			"host": map[string]interface{}{
				"type": "keyword",
			},
			// fixed-width microsecond strings, so keyword order is time order
			"timestamp": map[string]interface{}{
				"type": "keyword",
			},
			"recorded_at": map[string]interface{}{
				"type":   "date",
				"format": "epoch_millis",
			},
			"raw_payload": map[string]interface{}{
				"type":    "object",
				"enabled": false,
			},
		},
	},
}
