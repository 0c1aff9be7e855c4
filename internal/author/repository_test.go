package author

import (
	"context"
	"errors"
	"testing"
)

func TestInMemoryRepository_AggregateContributions(t *testing.T) {
	repo := NewInMemoryRepository()
	repo.Put(Author{ID: "u1"})
	repo.Put(Author{ID: "u2"})
	repo.SetContributions(ContributionSum{AuthorID: "u1", Suggestions: 2, Saves: 4, Upvotes: 5})
	repo.SetContributions(ContributionSum{AuthorID: "u2", Upvotes: 1})

	sums, err := repo.AggregateContributions(context.Background(), nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(sums) != 2 {
		t.Fatalf("expected 2 sums, got %d", len(sums))
	}
	// Ordered by author ID for deterministic iteration.
	if sums[0].AuthorID != "u1" || sums[1].AuthorID != "u2" {
		t.Errorf("expected order u1,u2, got %s,%s", sums[0].AuthorID, sums[1].AuthorID)
	}
	if sums[0].Suggestions != 2 || sums[0].Saves != 4 || sums[0].Upvotes != 5 {
		t.Errorf("unexpected sums for u1: %+v", sums[0])
	}
}

func TestInMemoryRepository_AggregateContributions_SingleAuthor(t *testing.T) {
	repo := NewInMemoryRepository()
	repo.Put(Author{ID: "u1"})
	repo.Put(Author{ID: "u2"})
	repo.SetContributions(ContributionSum{AuthorID: "u1", Upvotes: 3})
	repo.SetContributions(ContributionSum{AuthorID: "u2", Upvotes: 7})

	authorID := "u2"
	sums, err := repo.AggregateContributions(context.Background(), &authorID)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(sums) != 1 || sums[0].AuthorID != "u2" {
		t.Errorf("expected only u2, got %+v", sums)
	}
}

func TestInMemoryRepository_UpdateReputations(t *testing.T) {
	repo := NewInMemoryRepository()
	repo.Put(Author{ID: "u1"})

	updates := []ReputationUpdate{
		{ID: "u1", KnowledgeScore: 1.66, ReputationScore: 166},
	}
	if err := repo.UpdateReputations(context.Background(), updates); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	got, err := repo.Get("u1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got.KnowledgeScore != 1.66 || got.ReputationScore != 166 {
		t.Errorf("unexpected author state: %+v", got)
	}
}

func TestInMemoryRepository_UpdateReputations_EmptyBatch(t *testing.T) {
	repo := NewInMemoryRepository()

	err := repo.UpdateReputations(context.Background(), nil)
	if !errors.Is(err, ErrEmptyBatch) {
		t.Errorf("expected ErrEmptyBatch, got %v", err)
	}
}

func TestInMemoryRepository_UpdateReputations_AtomicOnFailure(t *testing.T) {
	repo := NewInMemoryRepository()
	repo.Put(Author{ID: "u1"})
	repo.Put(Author{ID: "u2"})
	repo.FailFor("u2")

	updates := []ReputationUpdate{
		{ID: "u1", KnowledgeScore: 1, ReputationScore: 100},
		{ID: "u2", KnowledgeScore: 2, ReputationScore: 200},
	}
	if err := repo.UpdateReputations(context.Background(), updates); err == nil {
		t.Fatal("expected error for fail-injected batch")
	}

	got, err := repo.Get("u1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got.ReputationScore != 0 {
		t.Error("expected u1 to be untouched after failed batch")
	}
}

func TestInMemoryRepository_UpdateReputations_MissingAuthor(t *testing.T) {
	repo := NewInMemoryRepository()

	err := repo.UpdateReputations(context.Background(), []ReputationUpdate{{ID: "missing"}})
	if !errors.Is(err, ErrAuthorNotFound) {
		t.Errorf("expected ErrAuthorNotFound, got %v", err)
	}
}
