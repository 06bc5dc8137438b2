package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/amadev/osprofiler/pkg/elasticsearch/model"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

func (a *ProfilerClientImpl) BulkIndex(
	ctx context.Context,
	metaInfo []MetaMap,
	documentInfo []DocumentMap,
	index string,
) error {
	var buf bytes.Buffer
	for i, d := range documentInfo {
		var meta MetaMap
		if metaInfo != nil && i < len(metaInfo) {
			meta = metaInfo[i]
		} else {
			// empty meta for bulk index
			meta = MetaMap{"index": map[string]interface{}{}}
		}
		metaJSON, err := json.Marshal(meta)
		if err != nil {
			return fmt.Errorf("error marshaling meta to bulk index: %w", err)
		}
		buf.Write(metaJSON)
		buf.WriteByte('\n')

		dataJSON, err := json.Marshal(d)
		if err != nil {
			return fmt.Errorf("error marshaling data to bulk index: %w", err)
		}
		buf.Write(dataJSON)
		buf.WriteByte('\n')
	}
	var res *esapi.Response
	var err error
	if len(index) > 0 {
		res, err = a.es.Bulk(
			bytes.NewReader(buf.Bytes()),
			a.es.Bulk.WithIndex(index),
			a.es.Bulk.WithContext(ctx),
			a.es.Bulk.WithRefresh(a.refreshRate),
		)
	} else {
		res, err = a.es.Bulk(
			bytes.NewReader(buf.Bytes()),
			a.es.Bulk.WithContext(ctx),
			a.es.Bulk.WithRefresh(a.refreshRate),
		)
	}
	if err != nil {
		return fmt.Errorf("error bulk indexing: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("bulk index error: %s", res.String())
	}

	var bulkResponse model.BulkResponse
	if err := json.NewDecoder(res.Body).Decode(&bulkResponse); err != nil {
		return fmt.Errorf("failed to decode bulk response body: %w", err)
	}
	if bulkResponse.Errors {
		return fmt.Errorf("bulk index error: %s", bulkResponse.FirstFailure())
	}
	return nil
}

func (a *ProfilerClientImpl) DeleteByQuery(
	ctx context.Context,
	query string,
	indices []string,
) (int64, error) {
	res, err := a.es.DeleteByQuery(
		indices,
		strings.NewReader(query),
		a.es.DeleteByQuery.WithContext(ctx),
		a.es.DeleteByQuery.WithRefresh(a.refreshRate != string(Async)),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete by query in Elasticsearch: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, fmt.Errorf("delete by query error: %s", res.String())
	}

	var deleteResponse model.DeleteByQueryResponse
	if err := json.NewDecoder(res.Body).Decode(&deleteResponse); err != nil {
		return 0, fmt.Errorf("failed to decode delete by query response body: %w", err)
	}
	if len(deleteResponse.Failures) > 0 {
		return deleteResponse.Deleted, fmt.Errorf("delete by query error: %s", deleteResponse.FirstFailure())
	}
	return deleteResponse.Deleted, nil
}
