package rotation

import (
	"context"
	"sync"
	"testing"

	"github.com/nidhogg/ruleta/internal/kv"
)

func TestNextRoundRobin(t *testing.T) {
	ctx := context.Background()
	a := New(kv.NewMemory())

	want := []int{0, 1, 2, 0, 1, 2, 0}
	for i, w := range want {
		got, err := a.Next(ctx, 3)
		if err != nil {
			t.Fatalf("next %d: %v", i, err)
		}
		if got != w {
			t.Errorf("assignment %d = %d, want %d", i, got, w)
		}
	}
}

func TestNextEmptyCatalog(t *testing.T) {
	a := New(kv.NewMemory())
	if _, err := a.Next(context.Background(), 0); err != ErrNoCajeros {
		t.Fatalf("expected ErrNoCajeros, got %v", err)
	}
}

// Concurrent first-time assignments must spread evenly: with catalog size k
// and n*k callers, every index comes back exactly n times.
func TestNextConcurrentFairness(t *testing.T) {
	ctx := context.Background()
	a := New(kv.NewMemory())

	const size = 3
	const rounds = 10
	var wg sync.WaitGroup
	results := make(chan int, size*rounds)
	for i := 0; i < size*rounds; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			idx, err := a.Next(ctx, size)
			if err != nil {
				t.Errorf("next: %v", err)
				return
			}
			results <- idx
		}()
	}
	wg.Wait()
	close(results)

	counts := make(map[int]int)
	for idx := range results {
		counts[idx]++
	}
	for i := 0; i < size; i++ {
		if counts[i] != rounds {
			t.Errorf("index %d assigned %d times, want %d", i, counts[i], rounds)
		}
	}
}
