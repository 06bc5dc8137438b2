package model

import "fmt"

type BulkResponse struct {
	Took   int                   `json:"took"`
	Errors bool                  `json:"errors"`
	Items  []map[string]BulkItem `json:"items"`
}

type BulkItem struct {
	Index  string     `json:"_index"`
	ID     string     `json:"_id"`
	Status int        `json:"status"`
	Error  *BulkError `json:"error,omitempty"`
}

type BulkError struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

// FirstFailure describes the first failed item of the bulk request.
func (b *BulkResponse) FirstFailure() string {
	for _, item := range b.Items {
		for action, result := range item {
			if result.Error != nil {
				return fmt.Sprintf(
					"%s of document %s failed with status %d: %s: %s",
					action, result.ID, result.Status, result.Error.Type, result.Error.Reason,
				)
			}
		}
	}
	return "unknown failure"
}
