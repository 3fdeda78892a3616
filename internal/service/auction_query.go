package service

import (
	"context"

	"auctionhouse/internal/models"
	"auctionhouse/internal/repository"
)

type AuctionQueryService struct {
	Repo repository.AuctionRepository
}

type AuctionsResult struct {
	Items []models.Auction
	Total int64
}

type AnomaliesResult struct {
	Items []models.ListingAnomaly
	Total int64
}

func (s *AuctionQueryService) ListAuctions(ctx context.Context, params repository.ListAuctionsParams) (AuctionsResult, error) {
	total, err := s.Repo.CountAuctions(ctx, params)
	if err != nil {
		return AuctionsResult{}, err
	}
	items, err := s.Repo.ListAuctions(ctx, params)
	if err != nil {
		return AuctionsResult{}, err
	}
	return AuctionsResult{Items: items, Total: total}, nil
}

func (s *AuctionQueryService) GetAuction(ctx context.Context, uuid string) (*models.Auction, error) {
	return s.Repo.GetAuction(ctx, uuid)
}

func (s *AuctionQueryService) ListAnomalies(ctx context.Context, params repository.ListAnomaliesParams) (AnomaliesResult, error) {
	total, err := s.Repo.CountAnomalies(ctx, params)
	if err != nil {
		return AnomaliesResult{}, err
	}
	items, err := s.Repo.ListAnomalies(ctx, params)
	if err != nil {
		return AnomaliesResult{}, err
	}
	return AnomaliesResult{Items: items, Total: total}, nil
}

func (s *AuctionQueryService) SyncStates(ctx context.Context) ([]models.SyncState, error) {
	return s.Repo.ListSyncStates(ctx)
}
