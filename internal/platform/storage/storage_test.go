package storage

import (
	"testing"

	"plantdoc-server-go/internal/domain/capability"
	"plantdoc-server-go/internal/domain/features"
)

func openTestRepo(t *testing.T) *HistoryRepository {
	t.Helper()
	db, err := Open(t.TempDir(), "test.db")
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	return NewHistoryRepository(db)
}

func TestHistorySaveAndRecent(t *testing.T) {
	repo := openTestRepo(t)

	f := &features.Features{
		Width:       100,
		Height:      80,
		MeanChannel: [3]float64{30, 180, 40},
	}
	record := &AnalysisRecord{
		Filename:    "leaf.png",
		StoredName:  "plant_20240601_101500_ab12cd34.png",
		Fingerprint: "deadbeef00112233",
		Label:       "Apple — Healthy",
		Confidence:  76,
		Tier:        capability.TierFull,
		Healthy:     true,
	}

	if err := repo.Save(record, f); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	if record.ID == 0 {
		t.Error("expected assigned primary key")
	}
	if len(record.Features) == 0 {
		t.Error("expected features snapshot to be stored")
	}

	records, err := repo.Recent(10)
	if err != nil {
		t.Fatalf("Recent returned error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	got := records[0]
	if got.Label != record.Label || got.Confidence != record.Confidence || got.Tier != record.Tier {
		t.Errorf("unexpected stored record: %+v", got)
	}
}

func TestHistoryRecentOrderAndLimit(t *testing.T) {
	repo := openTestRepo(t)

	for i := 0; i < 5; i++ {
		record := &AnalysisRecord{
			Filename:   "leaf.png",
			StoredName: "plant_" + string(rune('a'+i)) + ".png",
			Label:      "Tomato — Healthy",
			Confidence: 50 + i,
			Tier:       capability.TierNone,
		}
		if err := repo.Save(record, nil); err != nil {
			t.Fatalf("Save %d returned error: %v", i, err)
		}
	}

	records, err := repo.Recent(3)
	if err != nil {
		t.Fatalf("Recent returned error: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	// Newest first.
	if records[0].Confidence != 54 {
		t.Errorf("expected newest record first, got confidence %d", records[0].Confidence)
	}

	count, err := repo.Count()
	if err != nil {
		t.Fatalf("Count returned error: %v", err)
	}
	if count != 5 {
		t.Errorf("expected count 5, got %d", count)
	}
}
