package model

import "fmt"

// Structs for parsing the Elasticsearch response
type EsResponse struct {
	Took     int       `json:"took"`
	TimedOut bool      `json:"timed_out"`
	Shards   ShardInfo `json:"_shards"`
	Hits     Hits      `json:"hits"`
}

type ShardInfo struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`
}

type Hits struct {
	Total    Total       `json:"total"`
	MaxScore float64     `json:"max_score"`
	HitArray []HitSource `json:"hits"`
}

type Total struct {
	Value    int    `json:"value"`
	Relation string `json:"relation"`
}

type HitSource struct {
	Index  string                 `json:"_index"`
	ID     string                 `json:"_id"`
	Score  float64                `json:"_score"`
	Source map[string]interface{} `json:"_source"`
}

type DeleteByQueryResponse struct {
	Took     int       `json:"took"`
	TimedOut bool      `json:"timed_out"`
	Total    int64     `json:"total"`
	Deleted  int64     `json:"deleted"`
	Failures []Failure `json:"failures"`
}

type Failure struct {
	ID     string `json:"id"`
	Index  string `json:"index"`
	Reason string `json:"reason"`
	Type   string `json:"type"`
	Status int    `json:"status"`
}

// FirstFailure describes the first document the deletion could not remove.
func (d *DeleteByQueryResponse) FirstFailure() string {
	if len(d.Failures) == 0 {
		return "unknown failure"
	}
	failure := d.Failures[0]
	return fmt.Sprintf(
		"delete of document %s in %s failed with status %d: %s: %s",
		failure.ID, failure.Index, failure.Status, failure.Type, failure.Reason,
	)
}
