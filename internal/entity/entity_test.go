package entity_test

import (
	"errors"
	"sync"
	"testing"

	"ytmp3/internal/entity"
)

func TestFailureSetConcurrentAdd(t *testing.T) {
	var set entity.FailureSet

	var wg sync.WaitGroup
	for i := range 100 {
		wg.Add(1)

		go func() {
			defer wg.Done()
			set.Add(entity.FailureRecord{Item: entity.Item{ID: "x"}, Position: 99 - i})
		}()
	}

	wg.Wait()

	records := set.Records()
	if len(records) != 100 || set.Len() != 100 {
		t.Fatalf("expected 100 records, got %d", len(records))
	}

	for i, rec := range records {
		if rec.Position != i {
			t.Fatalf("records not ordered by position: index %d has position %d", i, rec.Position)
		}
	}
}

func TestOutcomeOK(t *testing.T) {
	ok := entity.Outcome{Path: "/tmp/a.mp3"}
	if !ok.OK() {
		t.Error("expected success outcome")
	}

	failed := entity.Outcome{Reason: entity.ReasonMoveFailed, Err: errors.New("boom")}
	if failed.OK() {
		t.Error("expected failed outcome")
	}
}

func TestItems(t *testing.T) {
	records := []entity.FailureRecord{
		{Item: entity.Item{ID: "A", Title: "a"}},
		{Item: entity.Item{ID: "C", Title: "c"}},
	}

	items := entity.Items(records)
	if len(items) != 2 || items[0].ID != "A" || items[1].ID != "C" {
		t.Errorf("Items() = %v", items)
	}
}
