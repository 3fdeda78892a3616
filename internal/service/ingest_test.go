package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"auctionhouse/internal/client/hypixel"
	"auctionhouse/internal/item"
	"auctionhouse/internal/models"
	"auctionhouse/internal/repository"
)

type stubRepo struct {
	repository.AuctionRepository

	mu        sync.Mutex
	upserts   int
	auctions  map[string]models.Auction
	anomalies []models.ListingAnomaly
	states    map[string]models.SyncState
	upsertErr error
}

func newStubRepo() *stubRepo {
	return &stubRepo{auctions: map[string]models.Auction{}, states: map[string]models.SyncState{}}
}

func (r *stubRepo) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func (r *stubRepo) UpsertAuctionsTx(ctx context.Context, tx *gorm.DB, items []models.Auction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.upsertErr != nil {
		return r.upsertErr
	}
	seen := map[string]bool{}
	for _, it := range items {
		if seen[it.UUID] {
			return errors.New("ON CONFLICT DO UPDATE command cannot affect row a second time")
		}
		seen[it.UUID] = true
		r.auctions[it.UUID] = it
	}
	r.upserts += len(items)
	return nil
}

func (r *stubRepo) InsertAnomaliesTx(ctx context.Context, tx *gorm.DB, items []models.ListingAnomaly) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.anomalies = append(r.anomalies, items...)
	return nil
}

func (r *stubRepo) GetSyncState(ctx context.Context, scope string) (*models.SyncState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.states[scope]
	if !ok {
		return nil, nil
	}
	return &st, nil
}

func (r *stubRepo) SaveSyncStateTx(ctx context.Context, tx *gorm.DB, state *models.SyncState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.states[state.Scope]
	if state.Cursor == nil {
		state.Cursor = prev.Cursor
	}
	r.states[state.Scope] = *state
	return nil
}

func (r *stubRepo) DeleteEndedBefore(ctx context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, a := range r.auctions {
		if a.EndTime.Before(before) {
			delete(r.auctions, id)
			n++
		}
	}
	return n, nil
}

type stubFeed struct {
	pages []hypixel.Page
	err   error
	calls int
}

func (f *stubFeed) Walk(ctx context.Context, maxPages int, fn func(*hypixel.Page) error) error {
	f.calls++
	total := len(f.pages)
	if maxPages > 0 && maxPages < total {
		total = maxPages
	}
	for i := 0; i < total; i++ {
		if err := fn(&f.pages[i]); err != nil {
			return err
		}
	}
	return f.err
}

func ptr[T any](v T) *T { return &v }

func blob(t *testing.T, id string) hypixel.ItemBytes {
	t.Helper()
	s, err := item.Encode(&item.Record{
		ID:    267,
		Count: 1,
		Attributes: item.Attributes{
			ID:       id,
			Modifier: ptr("heroic"),
			Color:    ptr("1:2"),
		},
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return hypixel.NewItemBytes(s)
}

func auction(uuid string, lastUpdated int64) hypixel.Auction {
	return hypixel.Auction{
		UUID:        uuid,
		Auctioneer:  "seller",
		ProfileID:   "profile",
		Start:       1700000000000,
		End:         1700003600000,
		ItemName:    "Hyperion",
		Category:    "weapon",
		Tier:        "MYTHIC",
		StartingBid: 100,
		LastUpdated: lastUpdated,
		Bin:         true,
	}
}

func feedPages(t *testing.T) []hypixel.Page {
	good := auction("a1", 1000)
	good.ItemBytes = blob(t, "HYPERION")
	bad := auction("a2", 1000)
	bad.ItemBytes = hypixel.NewItemBytes("not base64!")
	return []hypixel.Page{
		{Success: true, Page: 0, TotalPages: 2, LastUpdated: 5000, Auctions: []hypixel.Auction{good, bad, auction("a3", 1000)}},
		{Success: true, Page: 1, TotalPages: 2, LastUpdated: 5000, Auctions: []hypixel.Auction{auction("a4", 1000)}},
	}
}

func TestSyncWritesRowsAnomaliesAndState(t *testing.T) {
	repo := newStubRepo()
	svc := &IngestService{Store: repo, Feed: &stubFeed{pages: feedPages(t)}, ChunkSize: 2, Workers: 2, PersistAnomalies: true}

	res, err := svc.Sync(context.Background(), SyncOptions{Scope: "full"})
	if err != nil {
		t.Fatalf("Sync err=%v", err)
	}
	if res.Pages != 2 || res.Listings != 4 || res.Rows != 4 || !res.Done {
		t.Fatalf("result=%+v", res)
	}
	if res.ItemErrors != 1 {
		t.Fatalf("item_errors=%d want 1", res.ItemErrors)
	}
	// one undecodable payload and one bad color
	if res.Anomalies != 2 || len(repo.anomalies) != 2 {
		t.Fatalf("anomalies=%d stored=%d want 2", res.Anomalies, len(repo.anomalies))
	}
	for _, a := range repo.anomalies {
		if a.RunID != res.RunID || a.ListingID == "" {
			t.Fatalf("anomaly=%+v run=%s", a, res.RunID)
		}
	}
	if got := repo.auctions["a1"].ItemID; got == nil || *got != "HYPERION" {
		t.Fatalf("a1 item_id=%v", got)
	}
	if repo.auctions["a2"].ItemID != nil {
		t.Fatalf("a2 should have no item columns")
	}
	st := repo.states["full"]
	if st.Cursor == nil || *st.Cursor != "5000" || st.LastSuccessAt == nil || st.LastError != nil {
		t.Fatalf("state=%+v", st)
	}
	if res.FeedLastUpdated == nil || res.FeedLastUpdated.UnixMilli() != 5000 {
		t.Fatalf("feed_last_updated=%v", res.FeedLastUpdated)
	}
}

func TestSyncRecentSkipsUnchangedFeed(t *testing.T) {
	repo := newStubRepo()
	feed := &stubFeed{pages: feedPages(t)}
	svc := &IngestService{Store: repo, Feed: feed, RecentPages: 1}
	ctx := context.Background()

	first, err := svc.Sync(ctx, SyncOptions{Scope: "recent"})
	if err != nil {
		t.Fatalf("first sync err=%v", err)
	}
	if first.Pages != 1 || first.Rows != 3 {
		t.Fatalf("first=%+v", first)
	}

	second, err := svc.Sync(ctx, SyncOptions{Scope: "recent"})
	if err != nil {
		t.Fatalf("second sync err=%v", err)
	}
	if !second.Unchanged || second.Rows != 0 || repo.upserts != 3 {
		t.Fatalf("second=%+v upserts=%d", second, repo.upserts)
	}

	forced, err := svc.Sync(ctx, SyncOptions{Scope: "recent", Force: true})
	if err != nil {
		t.Fatalf("forced sync err=%v", err)
	}
	if forced.Unchanged || forced.Rows != 3 {
		t.Fatalf("forced=%+v", forced)
	}
}

func TestSyncSeenFilterSkipsWrittenVersions(t *testing.T) {
	repo := newStubRepo()
	pages := feedPages(t)
	svc := &IngestService{Store: repo, Feed: &stubFeed{pages: pages}, Seen: NewSeenFilter(100, 0.001)}
	ctx := context.Background()

	if _, err := svc.Sync(ctx, SyncOptions{Scope: "full"}); err != nil {
		t.Fatalf("first sync err=%v", err)
	}
	res, err := svc.Sync(ctx, SyncOptions{Scope: "recent", Force: true})
	if err != nil {
		t.Fatalf("recent sync err=%v", err)
	}
	if res.Rows != 0 || res.Skipped != 4 {
		t.Fatalf("recent=%+v", res)
	}

	pages[0].Auctions[2].LastUpdated = 2000
	pages[0].Auctions[2].Claimed = true
	res, err = svc.Sync(ctx, SyncOptions{Scope: "recent", Force: true})
	if err != nil {
		t.Fatalf("changed sync err=%v", err)
	}
	if res.Rows != 1 || !repo.auctions["a3"].Claimed {
		t.Fatalf("changed=%+v claimed=%v", res, repo.auctions["a3"].Claimed)
	}
}

func TestSyncFullBypassesSeenFilter(t *testing.T) {
	repo := newStubRepo()
	pages := feedPages(t)
	seen := NewSeenFilter(100, 0.001)
	svc := &IngestService{Store: repo, Feed: &stubFeed{pages: pages}, Seen: seen}
	ctx := context.Background()

	if _, err := svc.Sync(ctx, SyncOptions{Scope: "full"}); err != nil {
		t.Fatalf("first sync err=%v", err)
	}

	// a version the filter reports as written although it never was
	pages[0].Auctions[2].LastUpdated = 2000
	pages[0].Auctions[2].Claimed = true
	seen.Add("a3", 2000)

	res, err := svc.Sync(ctx, SyncOptions{Scope: "recent", Force: true})
	if err != nil {
		t.Fatalf("recent sync err=%v", err)
	}
	if res.Rows != 0 || repo.auctions["a3"].Claimed {
		t.Fatalf("recent=%+v claimed=%v", res, repo.auctions["a3"].Claimed)
	}

	res, err = svc.Sync(ctx, SyncOptions{Scope: "full"})
	if err != nil {
		t.Fatalf("full sync err=%v", err)
	}
	if res.Rows != 4 || res.Skipped != 0 || !repo.auctions["a3"].Claimed {
		t.Fatalf("full=%+v claimed=%v", res, repo.auctions["a3"].Claimed)
	}
}

func TestSyncKeepsLatestDuplicateInChunk(t *testing.T) {
	repo := newStubRepo()
	older := auction("dup", 1000)
	newer := auction("dup", 2000)
	newer.Claimed = true
	feed := &stubFeed{pages: []hypixel.Page{
		{Success: true, TotalPages: 1, LastUpdated: 1, Auctions: []hypixel.Auction{newer, older}},
	}}
	svc := &IngestService{Store: repo, Feed: feed}

	res, err := svc.Sync(context.Background(), SyncOptions{Scope: "full"})
	if err != nil {
		t.Fatalf("Sync err=%v", err)
	}
	if res.Rows != 1 || res.Skipped != 1 {
		t.Fatalf("result=%+v", res)
	}
	if got := repo.auctions["dup"]; !got.Claimed || got.LastUpdated.UnixMilli() != 2000 {
		t.Fatalf("row=%+v", got)
	}
}

func TestSyncRecordsFailure(t *testing.T) {
	repo := newStubRepo()
	repo.upsertErr = errors.New("db down")
	svc := &IngestService{Store: repo, Feed: &stubFeed{pages: feedPages(t)}}

	_, err := svc.Sync(context.Background(), SyncOptions{Scope: "full"})
	if err == nil || !errors.Is(err, repo.upsertErr) {
		t.Fatalf("err=%v want db down", err)
	}
	st := repo.states["full"]
	if st.LastError == nil || st.LastSuccessAt != nil || st.LastRunID == nil {
		t.Fatalf("state=%+v", st)
	}
}

func TestSyncFeedError(t *testing.T) {
	repo := newStubRepo()
	feedErr := &hypixel.APIError{Status: 503, Body: "busy"}
	svc := &IngestService{Store: repo, Feed: &stubFeed{pages: feedPages(t)[:1], err: feedErr}}

	res, err := svc.Sync(context.Background(), SyncOptions{Scope: "full"})
	var apiErr *hypixel.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != 503 {
		t.Fatalf("err=%v", err)
	}
	if res.Done {
		t.Fatalf("result should not be done: %+v", res)
	}
	if st := repo.states["full"]; st.LastError == nil || st.Cursor != nil {
		t.Fatalf("state=%+v", st)
	}
}

func TestSyncRejectsUnknownScope(t *testing.T) {
	svc := &IngestService{Store: newStubRepo(), Feed: &stubFeed{}}
	if _, err := svc.Sync(context.Background(), SyncOptions{Scope: "events"}); !errors.Is(err, ErrUnknownScope) {
		t.Fatalf("err=%v want ErrUnknownScope", err)
	}
}

func TestSyncRejectsConcurrentRunOfSameScope(t *testing.T) {
	svc := &IngestService{Store: newStubRepo(), Feed: &stubFeed{}}
	if !svc.acquire(ScopeFull) {
		t.Fatalf("acquire failed")
	}
	if _, err := svc.Sync(context.Background(), SyncOptions{Scope: "full"}); !errors.Is(err, ErrSyncRunning) {
		t.Fatalf("err=%v want ErrSyncRunning", err)
	}
	svc.release(ScopeFull)
	if _, err := svc.Sync(context.Background(), SyncOptions{Scope: "full"}); err != nil {
		t.Fatalf("err=%v", err)
	}
}

func TestPurgeEnded(t *testing.T) {
	repo := newStubRepo()
	now := time.Now().UTC()
	repo.auctions["old"] = models.Auction{UUID: "old", EndTime: now.Add(-48 * time.Hour)}
	repo.auctions["live"] = models.Auction{UUID: "live", EndTime: now.Add(time.Hour)}
	svc := &IngestService{Store: repo}

	n, err := svc.PurgeEnded(context.Background(), 24*time.Hour)
	if err != nil || n != 1 {
		t.Fatalf("n=%d err=%v", n, err)
	}
	if _, ok := repo.auctions["live"]; !ok {
		t.Fatalf("live auction removed")
	}
	if n, _ := svc.PurgeEnded(context.Background(), 0); n != 0 {
		t.Fatalf("zero retention purged %d", n)
	}
}

func TestChunkAuctions(t *testing.T) {
	items := make([]hypixel.Auction, 250)
	chunks := chunkAuctions(items, 100)
	if len(chunks) != 3 || len(chunks[2]) != 50 {
		t.Fatalf("chunks=%d last=%d", len(chunks), len(chunks[len(chunks)-1]))
	}
	if chunkAuctions(nil, 100) != nil {
		t.Fatalf("expected nil for empty input")
	}
}

func TestSeenFilterResetsAtCapacity(t *testing.T) {
	f := NewSeenFilter(2, 0.001)
	f.Add("a", 1)
	f.Add("b", 1)
	if !f.Contains("a", 1) || f.Contains("a", 2) {
		t.Fatalf("unexpected membership")
	}
	f.Add("c", 1)
	if f.Len() != 1 || f.Contains("a", 1) {
		t.Fatalf("filter not reset: len=%d", f.Len())
	}
}
