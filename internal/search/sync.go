package search

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"instauto_backend/internal/profile"

	"github.com/elastic/go-elasticsearch/v8/esapi"
	"go.uber.org/zap"
)

// OficinaSource pages through every stored oficina.
type OficinaSource interface {
	ListOficinas(ctx context.Context, city string, page, pageSize int) ([]profile.Profile, int64, error)
}

// SyncResult counts the documents a Sync wrote or failed to write.
type SyncResult struct {
	Synced int
	Failed int
}

type bulkResponse struct {
	Errors bool `json:"errors"`
	Items  []map[string]struct {
		ID     string                 `json:"_id"`
		Status int                    `json:"status"`
		Error  map[string]interface{} `json:"error,omitempty"`
	} `json:"items"`
}

// Sync rebuilds the directory from source in batches. refresh is passed to
// the bulk API ("true", "false" or "wait_for"). A failed batch does not stop
// the run; the returned error reports how many documents failed.
func (ix *Index) Sync(ctx context.Context, source OficinaSource, batchSize int, refresh string) (SyncResult, error) {
	if batchSize <= 0 {
		batchSize = 100
	}
	if err := ix.EnsureIndex(ctx); err != nil {
		return SyncResult{}, err
	}

	var result SyncResult
	now := ix.now()
	for page := 1; ; page++ {
		oficinas, _, err := source.ListOficinas(ctx, "", page, batchSize)
		if err != nil {
			return result, fmt.Errorf("fetching batch %d: %w", page, err)
		}
		if len(oficinas) == 0 {
			break
		}

		var body strings.Builder
		for i := range oficinas {
			doc, err := json.Marshal(ToDocument(&oficinas[i], now))
			if err != nil {
				ix.logger.Error("Failed to encode oficina document", zap.String("uid", oficinas[i].ID), zap.Error(err))
				result.Failed++
				continue
			}
			fmt.Fprintf(&body, `{"index":{"_index":%q,"_id":%q}}`+"\n", OficinasIndexName, oficinas[i].ID)
			body.Write(doc)
			body.WriteString("\n")
		}

		synced, failed := ix.sendBulk(ctx, body.String(), refresh, len(oficinas))
		result.Synced += synced
		result.Failed += failed
		ix.logger.Info("Batch processed",
			zap.Int("batchNumber", page),
			zap.Int("syncedInBatch", synced),
			zap.Int("failedInBatch", failed),
		)

		if len(oficinas) < batchSize {
			break
		}
	}

	ix.logger.Info("Oficina synchronization finished", zap.Int("synced", result.Synced), zap.Int("failed", result.Failed))
	if result.Failed > 0 {
		return result, fmt.Errorf("%d oficinas failed to sync", result.Failed)
	}
	return result, nil
}

func (ix *Index) sendBulk(ctx context.Context, body, refresh string, count int) (synced, failed int) {
	if body == "" {
		return 0, 0
	}
	res, err := esapi.BulkRequest{Body: strings.NewReader(body), Refresh: refresh}.Do(ctx, ix.client)
	if err != nil {
		ix.logger.Error("Failed to send bulk request", zap.Error(err))
		return 0, count
	}
	defer res.Body.Close()
	if res.IsError() {
		ix.logger.Error("Bulk request rejected", zap.String("reason", errorReason(res)))
		return 0, count
	}

	var parsed bulkResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		ix.logger.Error("Failed to parse bulk response", zap.Error(err))
		return 0, count
	}
	for _, item := range parsed.Items {
		for _, op := range item {
			if op.Error != nil {
				ix.logger.Error("Failed to index oficina in bulk batch",
					zap.String("uid", op.ID),
					zap.Int("status", op.Status),
					zap.Any("error", op.Error),
				)
				failed++
			} else {
				synced++
			}
		}
	}
	return synced, failed
}
