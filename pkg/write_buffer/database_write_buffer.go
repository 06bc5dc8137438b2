package write_buffer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/amadev/osprofiler/pkg/elasticsearch/client"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

const WriteQueueSize = 30
const flushTimeOut = 10 * time.Second

type DatabaseWriteBuffer[ValueType any] interface {
	WriteToBuffer(value []ValueType)
	// Flush writes whatever is queued and waits for the write to finish. A flush the buffer
	// started by itself finishes first, so every value queued before the call is written when
	// Flush returns.
	Flush(ctx context.Context) error
	Written() int64
	Failed() int64
}

type DatabaseWriteBufferImpl[ValueType any] struct {
	writeQueue  []ValueType
	pc          client.ProfilerClient
	esIndexName string
	logger      *zap.Logger
	queueSize   int
	mu          sync.Mutex
	// flushMu serializes flushes; a flush holds it from taking the queue until the write is done.
	flushMu     sync.Mutex
	written     *atomic.Int64
	failed      *atomic.Int64
}

func NewDatabaseWriteBufferImpl[ValueType any](
	pc client.ProfilerClient,
	esIndexName string,
	queueSize int,
	logger *zap.Logger,
) *DatabaseWriteBufferImpl[ValueType] {
	if queueSize <= 0 {
		queueSize = WriteQueueSize
	}
	return &DatabaseWriteBufferImpl[ValueType]{
		writeQueue:  []ValueType{},
		pc:          pc,
		esIndexName: esIndexName,
		logger:      logger,
		queueSize:   queueSize,
		written:     atomic.NewInt64(0),
		failed:      atomic.NewInt64(0),
	}
}

func (wbc *DatabaseWriteBufferImpl[ValueType]) WriteToBuffer(
	value []ValueType,
) {
	wbc.mu.Lock()
	wbc.writeQueue = append(wbc.writeQueue, value...)
	full := len(wbc.writeQueue) >= wbc.queueSize
	wbc.mu.Unlock()
	if full {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), flushTimeOut)
			defer cancel()
			err := wbc.flushToElasticsearch(ctx)
			if err != nil {
				wbc.logger.Error("Failed to flush to Elasticsearch", zap.Error(err))
			}
		}()
	}
}

func (wbc *DatabaseWriteBufferImpl[ValueType]) Flush(ctx context.Context) error {
	return wbc.flushToElasticsearch(ctx)
}

func (wbc *DatabaseWriteBufferImpl[ValueType]) Written() int64 {
	return wbc.written.Load()
}

func (wbc *DatabaseWriteBufferImpl[ValueType]) Failed() int64 {
	return wbc.failed.Load()
}

func (wbc *DatabaseWriteBufferImpl[ValueType]) flushToElasticsearch(ctx context.Context) error {
	wbc.flushMu.Lock()
	defer wbc.flushMu.Unlock()

	wbc.mu.Lock()
	queue := wbc.writeQueue
	wbc.writeQueue = []ValueType{}
	wbc.mu.Unlock()
	if len(queue) == 0 {
		return nil
	}

	metaMap, dataMap, err := client.ToMetaAndDataMap(queue)
	if err != nil {
		wbc.failed.Add(int64(len(queue)))
		return fmt.Errorf("error converting write queue to meta and data map: %w", err)
	}
	bulkCtx, cancel := context.WithTimeout(ctx, flushTimeOut)
	defer cancel()
	err = wbc.pc.BulkIndex(
		bulkCtx,
		metaMap,
		dataMap,
		wbc.esIndexName,
	)
	if err != nil {
		wbc.failed.Add(int64(len(queue)))
		return fmt.Errorf("error bulk indexing to Elasticsearch: %w", err)
	}
	wbc.written.Add(int64(len(queue)))
	return nil
}
