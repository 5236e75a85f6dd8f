package badger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/origin-steward/steward/core"
	"github.com/origin-steward/steward/storage"
)

func testDrop(payload string, receivedAt time.Time) *core.Drop {
	return &core.Drop{
		Id:         core.IDFromContent("url\n" + payload),
		Kind:       core.KindURL,
		WireType:   "url",
		Payload:    payload,
		ReceivedAt: receivedAt,
		Status:     core.StatusPending,
	}
}

func TestDropBasics(t *testing.T) {
	drops, _, _, backend, err := NewMemoryStores()
	if err != nil {
		t.Fatalf("Failed to create stores: %v", err)
	}
	defer backend.Close()

	ctx := context.Background()
	now := time.Now().UTC()

	drop := testDrop("https://example.com/a", now)
	stored, inserted, err := drops.AddDrop(ctx, drop)
	if err != nil {
		t.Fatalf("Failed to add drop: %v", err)
	}
	if !inserted {
		t.Fatal("Expected drop to be inserted")
	}
	if stored.Status != core.StatusPending {
		t.Fatalf("Expected pending status, got %v", stored.Status)
	}

	retrieved, err := drops.GetDrop(ctx, drop.Id)
	if err != nil {
		t.Fatalf("Failed to get drop: %v", err)
	}
	if retrieved.Payload != "https://example.com/a" {
		t.Fatalf("Unexpected payload: %s", retrieved.Payload)
	}

	// Same content must map to the same record
	dup := testDrop("https://example.com/a", now.Add(time.Hour))
	existing, inserted, err := drops.AddDrop(ctx, dup)
	if err != nil {
		t.Fatalf("Failed to re-add drop: %v", err)
	}
	if inserted {
		t.Fatal("Expected duplicate to be rejected")
	}
	if existing.Id != drop.Id {
		t.Fatalf("Expected existing drop %v, got %v", drop.Id, existing.Id)
	}
}

func TestDropLifecycle(t *testing.T) {
	drops, _, _, backend, err := NewMemoryStores()
	if err != nil {
		t.Fatalf("Failed to create stores: %v", err)
	}
	defer backend.Close()

	ctx := context.Background()
	drop := testDrop("https://example.com/b", time.Now().UTC())
	if _, _, err := drops.AddDrop(ctx, drop); err != nil {
		t.Fatalf("Failed to add drop: %v", err)
	}

	claimed, err := drops.ClaimDrop(ctx, drop.Id)
	if err != nil {
		t.Fatalf("Failed to claim drop: %v", err)
	}
	if !claimed {
		t.Fatal("Expected claim to succeed")
	}

	// Second claim must fail: drop is no longer pending
	claimed, err = drops.ClaimDrop(ctx, drop.Id)
	if err != nil {
		t.Fatalf("Second claim errored: %v", err)
	}
	if claimed {
		t.Fatal("Expected second claim to fail")
	}

	if err := drops.CompleteDrop(ctx, drop.Id); err != nil {
		t.Fatalf("Failed to complete drop: %v", err)
	}

	retrieved, err := drops.GetDrop(ctx, drop.Id)
	if err != nil {
		t.Fatalf("Failed to get drop: %v", err)
	}
	if retrieved.Status != core.StatusCompleted {
		t.Fatalf("Expected completed, got %v", retrieved.Status)
	}

	// Completed drops are terminal
	if err := drops.CompleteDrop(ctx, drop.Id); err != storage.ErrInvalidTransition {
		t.Fatalf("Expected ErrInvalidTransition, got %v", err)
	}
}

func TestDropFailure(t *testing.T) {
	drops, _, _, backend, err := NewMemoryStores()
	if err != nil {
		t.Fatalf("Failed to create stores: %v", err)
	}
	defer backend.Close()

	ctx := context.Background()
	drop := testDrop("https://example.com/c", time.Now().UTC())
	if _, _, err := drops.AddDrop(ctx, drop); err != nil {
		t.Fatalf("Failed to add drop: %v", err)
	}

	if _, err := drops.ClaimDrop(ctx, drop.Id); err != nil {
		t.Fatalf("Failed to claim drop: %v", err)
	}
	if err := drops.FailDrop(ctx, drop.Id, "connection refused"); err != nil {
		t.Fatalf("Failed to fail drop: %v", err)
	}

	retrieved, err := drops.GetDrop(ctx, drop.Id)
	if err != nil {
		t.Fatalf("Failed to get drop: %v", err)
	}
	if retrieved.Status != core.StatusFailed {
		t.Fatalf("Expected failed, got %v", retrieved.Status)
	}
	if retrieved.Error != "connection refused" {
		t.Fatalf("Expected failure reason, got %q", retrieved.Error)
	}

	// Pending drops may fail directly without being claimed first
	unclaimed := testDrop("https://example.com/d", time.Now().UTC())
	if _, _, err := drops.AddDrop(ctx, unclaimed); err != nil {
		t.Fatalf("Failed to add drop: %v", err)
	}
	if err := drops.FailDrop(ctx, unclaimed.Id, "invalid record"); err != nil {
		t.Fatalf("Failed to fail pending drop: %v", err)
	}
}

func TestClaimDropConcurrent(t *testing.T) {
	drops, _, _, backend, err := NewMemoryStores()
	if err != nil {
		t.Fatalf("Failed to create stores: %v", err)
	}
	defer backend.Close()

	ctx := context.Background()
	drop := testDrop("https://example.com/contested", time.Now().UTC())
	if _, _, err := drops.AddDrop(ctx, drop); err != nil {
		t.Fatalf("Failed to add drop: %v", err)
	}

	const workers = 8
	results := make([]bool, workers)
	errs := make([]error, workers)
	var start, done sync.WaitGroup
	start.Add(1)
	done.Add(workers)

	for i := 0; i < workers; i++ {
		go func(i int) {
			defer done.Done()
			start.Wait()
			results[i], errs[i] = drops.ClaimDrop(ctx, drop.Id)
		}(i)
	}
	start.Done()
	done.Wait()

	winners := 0
	for i := 0; i < workers; i++ {
		if errs[i] != nil {
			t.Fatalf("Claim %d errored: %v", i, errs[i])
		}
		if results[i] {
			winners++
		}
	}
	if winners != 1 {
		t.Fatalf("Expected exactly one winning claim, got %d", winners)
	}

	retrieved, err := drops.GetDrop(ctx, drop.Id)
	if err != nil {
		t.Fatalf("Failed to get drop: %v", err)
	}
	if retrieved.Status != core.StatusProcessing {
		t.Fatalf("Expected processing, got %v", retrieved.Status)
	}
}

func TestRecoverProcessingDrops(t *testing.T) {
	drops, _, _, backend, err := NewMemoryStores()
	if err != nil {
		t.Fatalf("Failed to create stores: %v", err)
	}
	defer backend.Close()

	ctx := context.Background()
	now := time.Now().UTC()

	stranded := testDrop("https://example.com/stranded", now)
	settled := testDrop("https://example.com/settled", now)
	untouched := testDrop("https://example.com/untouched", now)
	for _, d := range []*core.Drop{stranded, settled, untouched} {
		if _, _, err := drops.AddDrop(ctx, d); err != nil {
			t.Fatalf("Failed to add drop: %v", err)
		}
	}

	// One drop claimed and abandoned, one claimed and completed
	for _, id := range []core.ID{stranded.Id, settled.Id} {
		if _, err := drops.ClaimDrop(ctx, id); err != nil {
			t.Fatalf("Failed to claim drop: %v", err)
		}
	}
	if err := drops.CompleteDrop(ctx, settled.Id); err != nil {
		t.Fatalf("Failed to complete drop: %v", err)
	}

	recovered, err := drops.RecoverProcessingDrops(ctx)
	if err != nil {
		t.Fatalf("Failed to recover drops: %v", err)
	}
	if recovered != 1 {
		t.Fatalf("Expected 1 recovered drop, got %d", recovered)
	}

	retrieved, err := drops.GetDrop(ctx, stranded.Id)
	if err != nil {
		t.Fatalf("Failed to get drop: %v", err)
	}
	if retrieved.Status != core.StatusPending {
		t.Fatalf("Expected recovered drop pending, got %v", retrieved.Status)
	}

	// Terminal drops stay put
	retrieved, err = drops.GetDrop(ctx, settled.Id)
	if err != nil {
		t.Fatalf("Failed to get drop: %v", err)
	}
	if retrieved.Status != core.StatusCompleted {
		t.Fatalf("Expected completed drop untouched, got %v", retrieved.Status)
	}

	// Nothing left in processing after a second sweep
	recovered, err = drops.RecoverProcessingDrops(ctx)
	if err != nil {
		t.Fatalf("Failed to recover drops: %v", err)
	}
	if recovered != 0 {
		t.Fatalf("Expected no drops recovered, got %d", recovered)
	}

	// Recovered drops are claimable again
	claimed, err := drops.ClaimDrop(ctx, stranded.Id)
	if err != nil {
		t.Fatalf("Failed to reclaim drop: %v", err)
	}
	if !claimed {
		t.Fatal("Expected recovered drop to be claimable")
	}
}

func TestDropStatusQueries(t *testing.T) {
	drops, _, _, backend, err := NewMemoryStores()
	if err != nil {
		t.Fatalf("Failed to create stores: %v", err)
	}
	defer backend.Close()

	ctx := context.Background()
	base := time.Now().UTC().Add(-time.Hour)

	for i, payload := range []string{"one", "two", "three"} {
		drop := testDrop("https://example.com/"+payload, base.Add(time.Duration(i)*time.Minute))
		if _, _, err := drops.AddDrop(ctx, drop); err != nil {
			t.Fatalf("Failed to add drop: %v", err)
		}
	}

	pending, err := drops.GetDropsByStatus(ctx, core.StatusPending, 0)
	if err != nil {
		t.Fatalf("Failed to get pending drops: %v", err)
	}
	if len(pending) != 3 {
		t.Fatalf("Expected 3 pending drops, got %d", len(pending))
	}
	// Arrival order
	if pending[0].Payload != "https://example.com/one" {
		t.Fatalf("Expected oldest first, got %s", pending[0].Payload)
	}

	if _, err := drops.ClaimDrop(ctx, pending[0].Id); err != nil {
		t.Fatalf("Failed to claim drop: %v", err)
	}
	if err := drops.CompleteDrop(ctx, pending[0].Id); err != nil {
		t.Fatalf("Failed to complete drop: %v", err)
	}

	counts, err := drops.CountDropsByStatus(ctx)
	if err != nil {
		t.Fatalf("Failed to count drops: %v", err)
	}
	if counts[core.StatusPending] != 2 || counts[core.StatusCompleted] != 1 {
		t.Fatalf("Unexpected counts: %v", counts)
	}

	last, err := drops.LastReceivedAt(ctx)
	if err != nil {
		t.Fatalf("Failed to get last received: %v", err)
	}
	want := base.Add(2 * time.Minute)
	if last.Unix() != want.Unix() {
		t.Fatalf("Expected last received %v, got %v", want, last)
	}
}

func TestDailyDropCounts(t *testing.T) {
	drops, _, _, backend, err := NewMemoryStores()
	if err != nil {
		t.Fatalf("Failed to create stores: %v", err)
	}
	defer backend.Close()

	ctx := context.Background()
	// Noon avoids date boundary flakes
	now := time.Now().UTC().Truncate(24 * time.Hour).Add(12 * time.Hour)

	// Two drops today, one two days ago
	for i, payload := range []string{"a", "b"} {
		drop := testDrop(payload, now.Add(time.Duration(-i)*time.Minute))
		if _, _, err := drops.AddDrop(ctx, drop); err != nil {
			t.Fatalf("Failed to add drop: %v", err)
		}
	}
	old := testDrop("c", now.AddDate(0, 0, -2))
	if _, _, err := drops.AddDrop(ctx, old); err != nil {
		t.Fatalf("Failed to add drop: %v", err)
	}

	counts, err := drops.GetDailyDropCounts(ctx, 7)
	if err != nil {
		t.Fatalf("Failed to get daily counts: %v", err)
	}
	if len(counts) != 7 {
		t.Fatalf("Expected 7 buckets, got %d", len(counts))
	}

	today := now.Format("2006-01-02")
	twoDaysAgo := now.AddDate(0, 0, -2).Format("2006-01-02")
	byDate := make(map[string]int)
	for _, c := range counts {
		byDate[c.Date] = c.Count
	}
	if byDate[today] != 2 {
		t.Fatalf("Expected 2 drops today, got %d", byDate[today])
	}
	if byDate[twoDaysAgo] != 1 {
		t.Fatalf("Expected 1 drop two days ago, got %d", byDate[twoDaysAgo])
	}
	// Empty days are zero-filled, not missing
	if counts[0].Count != 0 {
		t.Fatalf("Expected zero count for oldest day, got %d", counts[0].Count)
	}
}
