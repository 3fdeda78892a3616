package gormrepository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"auctionhouse/internal/models"
	"auctionhouse/internal/repository"
)

type Store struct {
	db *gorm.DB
}

var _ repository.AuctionRepository = (*Store)(nil)

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(fn)
}

// UpsertAuctionsTx inserts new listings and, for listings already stored,
// rewrites only models.AuctionMutableColumns.
func (s *Store) UpsertAuctionsTx(ctx context.Context, tx *gorm.DB, items []models.Auction) error {
	if len(items) == 0 {
		return nil
	}
	return createInBatches(tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "uuid"}},
		DoUpdates: clause.AssignmentColumns(models.AuctionMutableColumns),
	}), items, 200)
}

func (s *Store) InsertAnomaliesTx(ctx context.Context, tx *gorm.DB, items []models.ListingAnomaly) error {
	if len(items) == 0 {
		return nil
	}
	return createInBatches(tx.WithContext(ctx), items, 500)
}

func (s *Store) GetAuction(ctx context.Context, uuid string) (*models.Auction, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Auction
	err := s.db.WithContext(ctx).First(&item, "uuid = ?", strings.TrimSpace(uuid)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

var auctionOrderColumns = map[string]string{
	"price":        "price",
	"end_time":     "end_time",
	"start_time":   "start_time",
	"last_updated": "last_updated",
	"unit_price":   "unit_price",
	"highest_bid":  "highest_bid",
}

func auctionFilters(query *gorm.DB, params repository.ListAuctionsParams) *gorm.DB {
	if params.ItemID != nil && *params.ItemID != "" {
		query = query.Where("item_id = ?", *params.ItemID)
	}
	if params.Auctioneer != nil && *params.Auctioneer != "" {
		query = query.Where("auctioneer = ?", *params.Auctioneer)
	}
	if params.Tier != nil && *params.Tier != "" {
		query = query.Where("tier = ?", strings.ToUpper(*params.Tier))
	}
	if params.Category != nil && *params.Category != "" {
		query = query.Where("category = ?", strings.ToLower(*params.Category))
	}
	if params.Reforge != nil && *params.Reforge != "" {
		query = query.Where("reforge = ?", *params.Reforge)
	}
	if params.PetType != nil && *params.PetType != "" {
		query = query.Where("pet_type = ?", *params.PetType)
	}
	if params.Bin != nil {
		query = query.Where("bin = ?", *params.Bin)
	}
	if params.Claimed != nil {
		query = query.Where("claimed = ?", *params.Claimed)
	}
	if params.Active != nil {
		now := time.Now().UTC()
		if *params.Active {
			query = query.Where("end_time > ? AND claimed = ?", now, false)
		} else {
			query = query.Where("(end_time <= ? OR claimed = ?)", now, true)
		}
	}
	if params.MinPrice != nil {
		query = query.Where("price >= ?", params.MinPrice.IntPart())
	}
	if params.MaxPrice != nil {
		query = query.Where("price <= ?", params.MaxPrice.IntPart())
	}
	return query
}

func (s *Store) ListAuctions(ctx context.Context, params repository.ListAuctionsParams) ([]models.Auction, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := auctionFilters(s.db.WithContext(ctx).Model(&models.Auction{}), params)
	query = applyOrder(query, auctionOrderColumns[params.OrderBy], params.Asc, "last_updated")
	limit := normalizeLimit(params.Limit, 100)
	offset := normalizeOffset(params.Offset)
	var items []models.Auction
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountAuctions(ctx context.Context, params repository.ListAuctionsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	query := auctionFilters(s.db.WithContext(ctx).Model(&models.Auction{}), params)
	if err := query.Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func anomalyFilters(query *gorm.DB, params repository.ListAnomaliesParams) *gorm.DB {
	if params.ListingID != nil && *params.ListingID != "" {
		query = query.Where("listing_id = ?", *params.ListingID)
	}
	if params.RunID != nil && *params.RunID != "" {
		query = query.Where("run_id = ?", *params.RunID)
	}
	if params.Kind != nil && *params.Kind != "" {
		query = query.Where("kind = ?", *params.Kind)
	}
	if params.Since != nil && !params.Since.IsZero() {
		query = query.Where("created_at >= ?", *params.Since)
	}
	return query
}

func (s *Store) ListAnomalies(ctx context.Context, params repository.ListAnomaliesParams) ([]models.ListingAnomaly, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := anomalyFilters(s.db.WithContext(ctx).Model(&models.ListingAnomaly{}), params)
	query = applyOrder(query, "id", nil, "id")
	var items []models.ListingAnomaly
	if err := query.Limit(normalizeLimit(params.Limit, 100)).Offset(normalizeOffset(params.Offset)).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountAnomalies(ctx context.Context, params repository.ListAnomaliesParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	if err := anomalyFilters(s.db.WithContext(ctx).Model(&models.ListingAnomaly{}), params).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// DeleteEndedBefore removes listings that ended before the cutoff.
func (s *Store) DeleteEndedBefore(ctx context.Context, before time.Time) (int64, error) {
	if s == nil || s.db == nil || before.IsZero() {
		return 0, nil
	}
	res := s.db.WithContext(ctx).
		Where("end_time < ?", before.UTC()).
		Delete(&models.Auction{})
	return res.RowsAffected, res.Error
}

func (s *Store) GetSyncState(ctx context.Context, scope string) (*models.SyncState, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var state models.SyncState
	err := s.db.WithContext(ctx).First(&state, "scope = ?", scope).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &state, nil
}

func (s *Store) SaveSyncStateTx(ctx context.Context, tx *gorm.DB, state *models.SyncState) error {
	if state == nil {
		return nil
	}
	return tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "scope"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"cursor",
			"watermark_ts",
			"last_success_at",
			"last_attempt_at",
			"last_error",
			"last_run_id",
			"stats_json",
		}),
	}).Create(state).Error
}

func (s *Store) ListSyncStates(ctx context.Context) ([]models.SyncState, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var states []models.SyncState
	if err := s.db.WithContext(ctx).Order("scope asc").Find(&states).Error; err != nil {
		return nil, err
	}
	return states, nil
}

func applyOrder(query *gorm.DB, orderBy string, asc *bool, fallback string) *gorm.DB {
	column := strings.TrimSpace(orderBy)
	if column == "" {
		column = fallback
	}
	direction := "desc"
	if asc != nil && *asc {
		direction = "asc"
	}
	return query.Order(column + " " + direction)
}

func createInBatches[T any](db *gorm.DB, items []T, batchSize int) error {
	if len(items) == 0 {
		return nil
	}
	if batchSize <= 0 {
		batchSize = 200
	}
	for i := 0; i < len(items); i += batchSize {
		end := i + batchSize
		if end > len(items) {
			end = len(items)
		}
		if err := db.CreateInBatches(items[i:end], batchSize).Error; err != nil {
			return err
		}
	}
	return nil
}

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > 500 {
		return 500
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
