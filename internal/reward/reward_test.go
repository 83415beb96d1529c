package reward

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nidhogg/ruleta/internal/kv"
)

func TestFlatDrawsFromPool(t *testing.T) {
	pool := []string{"a", "b", "c"}
	f, err := NewFlat(pool)
	if err != nil {
		t.Fatalf("new flat: %v", err)
	}

	valid := map[string]bool{"a": true, "b": true, "c": true}
	for i := 0; i < 50; i++ {
		premio, big, err := f.Select(context.Background(), time.Now())
		if err != nil {
			t.Fatalf("select: %v", err)
		}
		if big {
			t.Error("flat policy must never report big")
		}
		if !valid[premio] {
			t.Fatalf("premio %q not in pool", premio)
		}
	}
}

func TestFlatEmptyPool(t *testing.T) {
	if _, err := NewFlat(nil); err != ErrNoPremios {
		t.Fatalf("expected ErrNoPremios, got %v", err)
	}
}

func TestTieredOneBigPerDay(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	td, err := NewTieredDaily(store, []string{"GRANDE"}, []string{"n1", "n2"}, time.UTC)
	if err != nil {
		t.Fatalf("new tiered: %v", err)
	}

	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	premio, big, err := td.Select(ctx, now)
	if err != nil {
		t.Fatalf("first select: %v", err)
	}
	if !big || premio != "GRANDE" {
		t.Fatalf("first spin of day should claim the big premio, got %q big=%v", premio, big)
	}

	// Every other spin that day draws from the normal pool.
	for i := 0; i < 20; i++ {
		premio, big, err := td.Select(ctx, now.Add(time.Duration(i)*time.Minute))
		if err != nil {
			t.Fatalf("select %d: %v", i, err)
		}
		if big {
			t.Fatal("second big premio handed out on the same day")
		}
		if premio != "n1" && premio != "n2" {
			t.Fatalf("premio %q not from normal pool", premio)
		}
	}

	// Next calendar day claims a fresh big premio.
	_, big, err = td.Select(ctx, now.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("next day select: %v", err)
	}
	if !big {
		t.Error("first spin of the next day should claim the big premio")
	}
}

// Concurrent first-of-day spins must still yield exactly one big premio.
func TestTieredConcurrentDayClaim(t *testing.T) {
	ctx := context.Background()
	td, err := NewTieredDaily(kv.NewMemory(), []string{"G1", "G2"}, []string{"n"}, time.UTC)
	if err != nil {
		t.Fatalf("new tiered: %v", err)
	}

	now := time.Date(2025, 3, 11, 0, 0, 1, 0, time.UTC)
	const workers = 20
	var wg sync.WaitGroup
	bigs := make(chan string, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			premio, big, err := td.Select(ctx, now)
			if err != nil {
				t.Errorf("select: %v", err)
				return
			}
			if big {
				bigs <- premio
			}
		}()
	}
	wg.Wait()
	close(bigs)

	var claimed []string
	for p := range bigs {
		claimed = append(claimed, p)
	}
	if len(claimed) != 1 {
		t.Fatalf("expected exactly 1 big premio, got %d", len(claimed))
	}
}

// The day boundary follows the configured location, not UTC.
func TestTieredTimezoneBoundary(t *testing.T) {
	ctx := context.Background()
	loc := time.FixedZone("UTC-3", -3*60*60)
	td, err := NewTieredDaily(kv.NewMemory(), []string{"G"}, []string{"n"}, loc)
	if err != nil {
		t.Fatalf("new tiered: %v", err)
	}

	// 01:00 UTC is still the previous day at UTC-3.
	t1 := time.Date(2025, 3, 12, 1, 0, 0, 0, time.UTC)
	if _, big, _ := td.Select(ctx, t1); !big {
		t.Fatal("expected big claim")
	}

	// 02:00 UTC same local day: no second big.
	t2 := time.Date(2025, 3, 12, 2, 0, 0, 0, time.UTC)
	if _, big, _ := td.Select(ctx, t2); big {
		t.Fatal("same local day claimed twice")
	}

	// 04:00 UTC crosses local midnight: new claim.
	t3 := time.Date(2025, 3, 12, 4, 0, 0, 0, time.UTC)
	if _, big, _ := td.Select(ctx, t3); !big {
		t.Fatal("expected big claim after local midnight")
	}
}
