// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/MKhiriev/go-offline-sync/internal/logger"
	"github.com/MKhiriev/go-offline-sync/models"
)

const (
	watermarksKey = "watermarks"

	// DefaultHistoryLimit is how many sync history records are retained.
	DefaultHistoryLimit = 200
)

// LocalStorageService implements [LocalStorage] on a [KeyValueStore].
//
// History keys are the zero-padded record timestamp followed by the record
// id, so a bucket scan yields records oldest first.
type LocalStorageService struct {
	kv           KeyValueStore
	historyLimit int
	logger       *logger.Logger
}

// NewLocalStorageService returns a [LocalStorageService] keeping at most
// historyLimit records. A non-positive limit means [DefaultHistoryLimit].
func NewLocalStorageService(kv KeyValueStore, historyLimit int, log *logger.Logger) *LocalStorageService {
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	return &LocalStorageService{kv: kv, historyLimit: historyLimit, logger: log}
}

func (s *LocalStorageService) Watermarks(ctx context.Context) (models.Watermarks, error) {
	var w models.Watermarks

	raw, err := s.kv.Get(ctx, BucketSyncState, watermarksKey)
	if errors.Is(err, ErrKeyNotFound) {
		return w, nil
	}
	if err != nil {
		return w, fmt.Errorf("load watermarks: %w", err)
	}

	if err = json.Unmarshal(raw, &w); err != nil {
		s.logger.Err(err).Str("func", "LocalStorageService.Watermarks").Msg("stored watermarks are corrupted, starting over")
		return models.Watermarks{}, nil
	}
	return w, nil
}

func (s *LocalStorageService) SaveWatermarks(ctx context.Context, w models.Watermarks) error {
	raw, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrEncodingRecord, err)
	}
	if err = s.kv.Set(ctx, BucketSyncState, watermarksKey, raw); err != nil {
		return fmt.Errorf("save watermarks: %w", err)
	}
	return nil
}

func (s *LocalStorageService) AppendHistory(ctx context.Context, record models.SyncHistoryRecord) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrEncodingRecord, err)
	}

	key := fmt.Sprintf("%020d-%s", record.Timestamp.UnixNano(), record.ID)
	if err = s.kv.Set(ctx, BucketSyncHistory, key, raw); err != nil {
		return fmt.Errorf("append sync history: %w", err)
	}

	return s.trimHistory(ctx)
}

func (s *LocalStorageService) trimHistory(ctx context.Context) error {
	records, err := s.kv.Scan(ctx, BucketSyncHistory)
	if err != nil {
		return fmt.Errorf("scan sync history: %w", err)
	}

	for i := 0; i < len(records)-s.historyLimit; i++ {
		if err = s.kv.Delete(ctx, BucketSyncHistory, records[i].Key); err != nil {
			return fmt.Errorf("trim sync history: %w", err)
		}
	}
	return nil
}

func (s *LocalStorageService) History(ctx context.Context, limit int) ([]models.SyncHistoryRecord, error) {
	records, err := s.kv.Scan(ctx, BucketSyncHistory)
	if err != nil {
		return nil, fmt.Errorf("scan sync history: %w", err)
	}

	result := make([]models.SyncHistoryRecord, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		if limit > 0 && len(result) == limit {
			break
		}

		var rec models.SyncHistoryRecord
		if err = json.Unmarshal(records[i].Value, &rec); err != nil {
			s.logger.Err(err).
				Str("func", "LocalStorageService.History").
				Str("key", records[i].Key).
				Msg("skipping corrupted history record")
			continue
		}
		result = append(result, rec)
	}

	return result, nil
}
