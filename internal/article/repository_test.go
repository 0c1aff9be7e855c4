package article

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestInMemoryRepository_PutGet(t *testing.T) {
	repo := NewInMemoryRepository()

	a := Article{ID: "a1", AuthorID: "u1", Status: StatusPublished, Tier: TierPending}
	repo.Put(a)

	got, err := repo.Get("a1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got.ID != "a1" || got.Tier != TierPending {
		t.Errorf("unexpected article: %+v", got)
	}

	// Mutating the returned copy must not affect the stored article.
	got.Tier = TierViral
	again, err := repo.Get("a1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if again.Tier != TierPending {
		t.Error("expected stored article to be unaffected by mutation of the returned copy")
	}
}

func TestInMemoryRepository_Get_NotFound(t *testing.T) {
	repo := NewInMemoryRepository()

	_, err := repo.Get("missing")
	if !errors.Is(err, ErrArticleNotFound) {
		t.Errorf("expected ErrArticleNotFound, got %v", err)
	}
}

func TestInMemoryRepository_ListPublished(t *testing.T) {
	repo := NewInMemoryRepository()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	repo.Put(Article{ID: "a1", Status: StatusPublished, Tier: TierPending, CreatedAt: base})
	repo.Put(Article{ID: "a2", Status: StatusPublished, Tier: TierGrowth, CreatedAt: base.Add(time.Hour)})
	repo.Put(Article{ID: "a3", Status: StatusDraft, Tier: TierPending, CreatedAt: base.Add(2 * time.Hour)})

	all, err := repo.ListPublished(context.Background(), Filter{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 published articles, got %d", len(all))
	}
	if all[0].ID != "a1" || all[1].ID != "a2" {
		t.Errorf("expected creation-time order a1,a2, got %s,%s", all[0].ID, all[1].ID)
	}

	growth, err := repo.ListPublished(context.Background(), Filter{Tiers: []Tier{TierGrowth}})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(growth) != 1 || growth[0].ID != "a2" {
		t.Errorf("expected only a2 in growth tier, got %+v", growth)
	}
}

func TestInMemoryRepository_ListPublished_CancelledContext(t *testing.T) {
	repo := NewInMemoryRepository()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := repo.ListPublished(ctx, Filter{}); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestInMemoryRepository_UpdateScores(t *testing.T) {
	repo := NewInMemoryRepository()
	repo.Put(Article{ID: "a1", Status: StatusPublished})

	updates := []ScoreUpdate{
		{ID: "a1", KVScore: KVHigh, IsEvergreen: true, RankScore: 42.5},
	}
	if err := repo.UpdateScores(context.Background(), updates); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	got, err := repo.Get("a1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got.KVScore != KVHigh || !got.IsEvergreen || got.RankScore != 42.5 {
		t.Errorf("unexpected scores: %+v", got)
	}
}

func TestInMemoryRepository_UpdateScores_EmptyBatch(t *testing.T) {
	repo := NewInMemoryRepository()

	err := repo.UpdateScores(context.Background(), nil)
	if !errors.Is(err, ErrEmptyBatch) {
		t.Errorf("expected ErrEmptyBatch, got %v", err)
	}
}

func TestInMemoryRepository_UpdateScores_AtomicOnFailure(t *testing.T) {
	repo := NewInMemoryRepository()
	repo.Put(Article{ID: "a1", Status: StatusPublished})
	repo.Put(Article{ID: "a2", Status: StatusPublished})
	repo.FailScoresFor("a2")

	updates := []ScoreUpdate{
		{ID: "a1", KVScore: KVMedium, RankScore: 10},
		{ID: "a2", KVScore: KVMedium, RankScore: 20},
	}
	if err := repo.UpdateScores(context.Background(), updates); err == nil {
		t.Fatal("expected error for fail-injected batch")
	}

	// The batch is transactional: a1 must be untouched.
	got, err := repo.Get("a1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got.KVScore == KVMedium {
		t.Error("expected a1 to be untouched after failed batch")
	}
}

func TestInMemoryRepository_UpdateScores_MissingArticle(t *testing.T) {
	repo := NewInMemoryRepository()

	err := repo.UpdateScores(context.Background(), []ScoreUpdate{{ID: "missing"}})
	if !errors.Is(err, ErrArticleNotFound) {
		t.Errorf("expected ErrArticleNotFound, got %v", err)
	}
}

func TestInMemoryRepository_UpdateTiers(t *testing.T) {
	repo := NewInMemoryRepository()
	repo.Put(Article{ID: "a1", Status: StatusPublished, Tier: TierPending})

	updates := []TierUpdate{{ID: "a1", Tier: TierDiscovery}}
	if err := repo.UpdateTiers(context.Background(), updates); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	got, err := repo.Get("a1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got.Tier != TierDiscovery {
		t.Errorf("expected tier discovery, got %s", got.Tier)
	}
}

func TestInMemoryRepository_UpdateTiers_AtomicOnFailure(t *testing.T) {
	repo := NewInMemoryRepository()
	repo.Put(Article{ID: "a1", Status: StatusPublished, Tier: TierPending})
	repo.Put(Article{ID: "a2", Status: StatusPublished, Tier: TierPending})
	repo.FailTiersFor("a2")

	updates := []TierUpdate{
		{ID: "a1", Tier: TierDiscovery},
		{ID: "a2", Tier: TierDiscovery},
	}
	if err := repo.UpdateTiers(context.Background(), updates); err == nil {
		t.Fatal("expected error for fail-injected batch")
	}

	got, err := repo.Get("a1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got.Tier != TierPending {
		t.Error("expected a1 tier to be untouched after failed batch")
	}
}
