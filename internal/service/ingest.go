package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"auctionhouse/internal/client/hypixel"
	"auctionhouse/internal/decode"
	"auctionhouse/internal/models"
	"auctionhouse/internal/normalize"
	"auctionhouse/internal/paas"
	"auctionhouse/internal/repository"
)

const (
	ScopeFull   = "full"
	ScopeRecent = "recent"
)

// PageSource is the part of the feed client the ingester needs.
type PageSource interface {
	Walk(ctx context.Context, maxPages int, fn func(*hypixel.Page) error) error
}

type IngestService struct {
	Store  repository.AuctionRepository
	Feed   PageSource
	Logger *zap.Logger

	// Seen skips listing versions already written by this process during
	// recent syncs. Full syncs bypass it so a false positive is repaired
	// on the next full pass. Nil disables it.
	Seen *SeenFilter

	RecentPages      int
	ChunkSize        int
	Workers          int
	PersistAnomalies bool

	// one sync per scope at a time
	mu      sync.Mutex
	running map[string]bool
}

type SyncOptions struct {
	Scope     string
	Pages     int
	ChunkSize int
	Workers   int
	Force     bool
}

type SyncResult struct {
	Scope           string     `json:"scope"`
	RunID           string     `json:"run_id"`
	Pages           int        `json:"pages"`
	Listings        int        `json:"listings"`
	Rows            int        `json:"rows"`
	Skipped         int        `json:"skipped"`
	Anomalies       int        `json:"anomalies"`
	ItemErrors      int        `json:"item_errors"`
	FeedLastUpdated *time.Time `json:"feed_last_updated,omitempty"`
	Unchanged       bool       `json:"unchanged"`
	Done            bool       `json:"done"`
}

var (
	ErrSyncRunning  = errors.New("sync already running for scope")
	ErrUnknownScope = errors.New("unsupported scope")
	errUnchanged    = errors.New("feed unchanged since last sync")
)

func (s *IngestService) Sync(ctx context.Context, opts SyncOptions) (SyncResult, error) {
	if s.Store == nil || s.Feed == nil {
		return SyncResult{}, fmt.Errorf("ingest service is not configured")
	}
	scope := strings.ToLower(strings.TrimSpace(opts.Scope))
	if scope == "" {
		scope = ScopeRecent
	}
	switch scope {
	case ScopeFull, ScopeRecent:
	default:
		return SyncResult{}, fmt.Errorf("%w: %s", ErrUnknownScope, scope)
	}
	if !s.acquire(scope) {
		return SyncResult{Scope: scope}, ErrSyncRunning
	}
	defer s.release(scope)

	res, err := s.run(ctx, scope, opts)
	if err != nil {
		s.writeSyncError(ctx, scope, res.RunID, err)
		paas.LogBestEffortCtx(ctx, "auction_sync_failed", "error", map[string]any{
			"scope":  scope,
			"run_id": res.RunID,
			"error":  err.Error(),
		})
		return res, err
	}
	if !res.Unchanged {
		paas.LogBestEffortCtx(ctx, "auction_sync", "info", map[string]any{
			"scope":     scope,
			"run_id":    res.RunID,
			"pages":     res.Pages,
			"listings":  res.Listings,
			"rows":      res.Rows,
			"anomalies": res.Anomalies,
		})
	}
	return res, nil
}

func (s *IngestService) run(ctx context.Context, scope string, opts SyncOptions) (SyncResult, error) {
	result := SyncResult{Scope: scope, RunID: uuid.New().String()}

	maxPages := opts.Pages
	if maxPages <= 0 && scope == ScopeRecent {
		maxPages = s.RecentPages
		if maxPages <= 0 {
			maxPages = 10
		}
	}
	chunkSize := firstPositive(opts.ChunkSize, s.ChunkSize, 100)
	workers := firstPositive(opts.Workers, s.Workers, 8)

	var cursor *string
	if !opts.Force && scope == ScopeRecent {
		state, err := s.Store.GetSyncState(ctx, scope)
		if err != nil {
			return result, err
		}
		if state != nil {
			cursor = state.Cursor
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	var (
		mu       sync.Mutex
		feedLast int64
	)
	walkErr := s.Feed.Walk(gctx, maxPages, func(p *hypixel.Page) error {
		if p.Page == 0 {
			feedLast = p.LastUpdated
			if cursor != nil && *cursor == strconv.FormatInt(p.LastUpdated, 10) {
				return errUnchanged
			}
		}
		result.Pages++
		result.Listings += len(p.Auctions)
		for _, chunk := range chunkAuctions(p.Auctions, chunkSize) {
			chunk := chunk
			g.Go(func() error {
				stats, err := s.writeChunk(gctx, result.RunID, chunk, scope != ScopeFull)
				mu.Lock()
				result.Rows += stats.rows
				result.Skipped += stats.skipped
				result.Anomalies += stats.anomalies
				result.ItemErrors += stats.itemErrors
				mu.Unlock()
				return err
			})
		}
		return nil
	})
	waitErr := g.Wait()

	if feedLast > 0 {
		ts := time.UnixMilli(feedLast).UTC()
		result.FeedLastUpdated = &ts
	}
	if errors.Is(walkErr, errUnchanged) {
		result.Unchanged = true
		result.Done = true
		if s.Logger != nil {
			s.Logger.Debug("auction feed unchanged", zap.String("scope", scope), zap.Int64("last_updated", feedLast))
		}
		return result, waitErr
	}
	if walkErr != nil {
		if waitErr != nil && !errors.Is(walkErr, context.Canceled) {
			return result, errors.Join(walkErr, waitErr)
		}
		if waitErr != nil {
			return result, waitErr
		}
		return result, walkErr
	}
	if waitErr != nil {
		return result, waitErr
	}
	result.Done = true

	now := time.Now().UTC()
	err := s.Store.InTx(ctx, func(tx *gorm.DB) error {
		state := &models.SyncState{
			Scope:         scope,
			Cursor:        strPtr(strconv.FormatInt(feedLast, 10)),
			WatermarkTS:   result.FeedLastUpdated,
			LastAttemptAt: &now,
			LastSuccessAt: &now,
			LastError:     nil,
			LastRunID:     strPtr(result.RunID),
			StatsJSON: statsJSON(map[string]int{
				"pages":       result.Pages,
				"listings":    result.Listings,
				"rows":        result.Rows,
				"skipped":     result.Skipped,
				"anomalies":   result.Anomalies,
				"item_errors": result.ItemErrors,
			}),
		}
		return s.Store.SaveSyncStateTx(ctx, tx, state)
	})
	if err != nil {
		return result, err
	}
	if s.Logger != nil {
		s.Logger.Info("auction sync done",
			zap.String("scope", scope),
			zap.String("run_id", result.RunID),
			zap.Int("pages", result.Pages),
			zap.Int("listings", result.Listings),
			zap.Int("rows", result.Rows),
			zap.Int("skipped", result.Skipped),
			zap.Int("anomalies", result.Anomalies),
		)
	}
	return result, nil
}

type chunkStats struct {
	rows       int
	skipped    int
	anomalies  int
	itemErrors int
}

// writeChunk normalizes one chunk and writes its rows and anomalies in a
// single transaction. Anomalies never abort the chunk.
func (s *IngestService) writeChunk(ctx context.Context, runID string, listings []hypixel.Auction, useSeen bool) (chunkStats, error) {
	var stats chunkStats
	rows := make([]models.Auction, 0, len(listings))
	index := make(map[string]int, len(listings))
	var anomalies []decode.Anomaly

	for _, l := range listings {
		if strings.TrimSpace(l.UUID) == "" {
			stats.skipped++
			continue
		}
		if useSeen && s.Seen != nil && s.Seen.Contains(l.UUID, l.LastUpdated) {
			stats.skipped++
			continue
		}
		row, found := normalize.Listing(l)
		anomalies = append(anomalies, found...)
		if l.ItemBytes.Present() && row.ItemTypeID == nil {
			stats.itemErrors++
		}
		// the same uuid may appear twice while the feed is being rebuilt
		if i, ok := index[row.UUID]; ok {
			stats.skipped++
			if row.LastUpdated.After(rows[i].LastUpdated) {
				rows[i] = row
			}
			continue
		}
		index[row.UUID] = len(rows)
		rows = append(rows, row)
	}
	stats.anomalies = len(anomalies)
	s.logAnomalies(ctx, runID, anomalies)

	if len(rows) == 0 && (len(anomalies) == 0 || !s.PersistAnomalies) {
		return stats, nil
	}
	err := s.Store.InTx(ctx, func(tx *gorm.DB) error {
		if err := s.Store.UpsertAuctionsTx(ctx, tx, rows); err != nil {
			return err
		}
		if !s.PersistAnomalies {
			return nil
		}
		return s.Store.InsertAnomaliesTx(ctx, tx, anomalyRows(runID, anomalies))
	})
	if err != nil {
		return stats, fmt.Errorf("write chunk: %w", err)
	}
	stats.rows = len(rows)
	if s.Seen != nil {
		for _, r := range rows {
			s.Seen.Add(r.UUID, r.LastUpdated.UnixMilli())
		}
	}
	return stats, nil
}

func (s *IngestService) logAnomalies(ctx context.Context, runID string, anomalies []decode.Anomaly) {
	if len(anomalies) == 0 {
		return
	}
	for _, a := range anomalies {
		if s.Logger != nil {
			s.Logger.Warn("listing anomaly",
				zap.String("run_id", runID),
				zap.String("listing_id", a.ListingID),
				zap.String("kind", string(a.Kind)),
				zap.String("field", a.Field),
				zap.String("message", a.Message),
			)
		}
	}
	paas.LogBestEffortCtx(ctx, "listing_anomalies", "warn", map[string]any{
		"run_id":    runID,
		"count":     len(anomalies),
		"anomalies": anomalies,
	})
}

func (s *IngestService) writeSyncError(ctx context.Context, scope, runID string, err error) {
	if s.Logger != nil {
		s.Logger.Warn("auction sync failed", zap.String("scope", scope), zap.String("run_id", runID), zap.Error(err))
	}
	now := time.Now().UTC()
	// the caller's context may already be cancelled
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	state := &models.SyncState{
		Scope:         scope,
		LastAttemptAt: &now,
		LastError:     strPtr(err.Error()),
		LastRunID:     strPtr(runID),
	}
	// keep the last successful watermark
	if prev, perr := s.Store.GetSyncState(wctx, scope); perr == nil && prev != nil {
		state.Cursor = prev.Cursor
		state.WatermarkTS = prev.WatermarkTS
		state.LastSuccessAt = prev.LastSuccessAt
		state.StatsJSON = prev.StatsJSON
	}
	_ = s.Store.InTx(wctx, func(tx *gorm.DB) error {
		return s.Store.SaveSyncStateTx(wctx, tx, state)
	})
}

// PurgeEnded removes listings whose end time is older than retention.
func (s *IngestService) PurgeEnded(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		return 0, nil
	}
	before := time.Now().UTC().Add(-retention)
	n, err := s.Store.DeleteEndedBefore(ctx, before)
	if err != nil {
		return 0, err
	}
	if s.Logger != nil && n > 0 {
		s.Logger.Info("purged ended auctions", zap.Int64("rows", n), zap.Time("before", before))
	}
	return n, nil
}

func (s *IngestService) acquire(scope string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running == nil {
		s.running = map[string]bool{}
	}
	if s.running[scope] {
		return false
	}
	s.running[scope] = true
	return true
}

func (s *IngestService) release(scope string) {
	s.mu.Lock()
	delete(s.running, scope)
	s.mu.Unlock()
}

func anomalyRows(runID string, in []decode.Anomaly) []models.ListingAnomaly {
	if len(in) == 0 {
		return nil
	}
	out := make([]models.ListingAnomaly, 0, len(in))
	for _, a := range in {
		out = append(out, models.ListingAnomaly{
			RunID:     runID,
			ListingID: a.ListingID,
			Kind:      string(a.Kind),
			Field:     strPtr(a.Field),
			Message:   a.Message,
		})
	}
	return out
}

func chunkAuctions(items []hypixel.Auction, size int) [][]hypixel.Auction {
	if len(items) == 0 {
		return nil
	}
	if size <= 0 {
		size = 100
	}
	out := make([][]hypixel.Auction, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		out = append(out, items[start:end])
	}
	return out
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}

func statsJSON(stats map[string]int) datatypes.JSON {
	if len(stats) == 0 {
		return datatypes.JSON([]byte("null"))
	}
	payload, err := json.Marshal(stats)
	if err != nil {
		return datatypes.JSON([]byte("null"))
	}
	return datatypes.JSON(payload)
}

func strPtr(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}
