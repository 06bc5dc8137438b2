package service

import (
	"time"

	"github.com/amadev/osprofiler/pkg/trace/model"
	"go.uber.org/zap"
)

type ReportNormalizer struct {
	treeConstructor *TreeConstructorService
	logger          *zap.Logger
}

func NewReportNormalizer(treeConstructor *TreeConstructorService, logger *zap.Logger) *ReportNormalizer {
	return &ReportNormalizer{
		treeConstructor: treeConstructor,
		logger:          logger,
	}
}

// Finalize turns accumulated entries into a report rooted at a synthetic "total" node.
// Timestamps become millisecond offsets from the window start. A span missing one bound
// gets a zero duration. Entries with no bound at all, or with cyclic parentage, are left
// out: the returned root is still complete for everything else and the error is a
// *MalformedTraceError naming the excluded ids.
func (rn *ReportNormalizer) Finalize(entries []*model.Entry, window model.Window) (*model.Node, error) {
	nodes := make([]*model.Node, 0, len(entries))
	var excluded []string
	for _, entry := range entries {
		started, finished, ok := repairBounds(entry.Info)
		if !ok {
			excluded = append(excluded, entry.TraceID)
			continue
		}
		finishedOffset := offsetMillis(finished, window.StartedAt)
		nodes = append(nodes, &model.Node{
			TraceID:  entry.TraceID,
			ParentID: entry.ParentID,
			Info: model.NodeInfo{
				Name:        entry.Info.Name,
				Project:     entry.Info.Project,
				Service:     entry.Info.Service,
				Host:        entry.Info.Host,
				Started:     offsetMillis(started, window.StartedAt),
				Finished:    &finishedOffset,
				RawPayloads: entry.Info.RawPayloads,
			},
		})
	}

	forest, cyclic := rn.treeConstructor.BuildForest(nodes)
	excluded = append(excluded, cyclic...)

	root := &model.Node{
		Info: model.NodeInfo{
			Name:    model.TotalNodeName,
			Started: 0,
		},
		Children: forest,
	}
	if window.IsSet() {
		total := window.Duration().Milliseconds()
		root.Info.Finished = &total
	}

	if len(excluded) > 0 {
		rn.logger.Warn("Excluded malformed entries from report", zap.Strings("trace_ids", excluded))
		return root, &MalformedTraceError{TraceIDs: excluded}
	}
	return root, nil
}

// BuildReport finalizes a consistent snapshot of the assembler.
func (rn *ReportNormalizer) BuildReport(assembler Assembler) (*model.Node, error) {
	entries, window := assembler.Snapshot()
	return rn.Finalize(entries, window)
}

// repairBounds copies the known bound into the missing one. The stop bound never
// precedes the start bound.
func repairBounds(info model.Info) (time.Time, time.Time, bool) {
	switch {
	case info.Started == nil && info.Finished == nil:
		return time.Time{}, time.Time{}, false
	case info.Started == nil:
		return *info.Finished, *info.Finished, true
	case info.Finished == nil:
		return *info.Started, *info.Started, true
	case info.Finished.Before(*info.Started):
		return *info.Started, *info.Started, true
	default:
		return *info.Started, *info.Finished, true
	}
}

func offsetMillis(t time.Time, origin time.Time) int64 {
	offset := t.Sub(origin).Milliseconds()
	if offset < 0 {
		return 0
	}
	return offset
}
