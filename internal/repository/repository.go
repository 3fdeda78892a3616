package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"auctionhouse/internal/models"
)

type AuctionRepository interface {
	InTx(ctx context.Context, fn func(tx *gorm.DB) error) error
	UpsertAuctionsTx(ctx context.Context, tx *gorm.DB, items []models.Auction) error
	InsertAnomaliesTx(ctx context.Context, tx *gorm.DB, items []models.ListingAnomaly) error
	GetAuction(ctx context.Context, uuid string) (*models.Auction, error)
	ListAuctions(ctx context.Context, params ListAuctionsParams) ([]models.Auction, error)
	CountAuctions(ctx context.Context, params ListAuctionsParams) (int64, error)
	ListAnomalies(ctx context.Context, params ListAnomaliesParams) ([]models.ListingAnomaly, error)
	CountAnomalies(ctx context.Context, params ListAnomaliesParams) (int64, error)
	DeleteEndedBefore(ctx context.Context, before time.Time) (int64, error)
	GetSyncState(ctx context.Context, scope string) (*models.SyncState, error)
	SaveSyncStateTx(ctx context.Context, tx *gorm.DB, state *models.SyncState) error
	ListSyncStates(ctx context.Context) ([]models.SyncState, error)
}

type ListAuctionsParams struct {
	Limit      int
	Offset     int
	ItemID     *string
	Auctioneer *string
	Tier       *string
	Category   *string
	Reforge    *string
	PetType    *string
	Bin        *bool
	Claimed    *bool
	Active     *bool
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	OrderBy    string
	Asc        *bool
}

type ListAnomaliesParams struct {
	Limit     int
	Offset    int
	ListingID *string
	RunID     *string
	Kind      *string
	Since     *time.Time
}
