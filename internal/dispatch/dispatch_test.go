package dispatch_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"aisubs/internal/dispatch"
	"aisubs/internal/logging"
	"aisubs/internal/services"
)

func TestMapPreservesInputOrder(t *testing.T) {
	d := dispatch.New(4, logging.NewNop())
	items := []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	// Later items finish first.
	results, err := dispatch.Map(context.Background(), d, items, func(_ context.Context, index int, item int) (string, error) {
		time.Sleep(time.Duration(len(items)-index) * 2 * time.Millisecond)
		return fmt.Sprintf("r%d", item), nil
	})
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	for i, r := range results {
		if r != fmt.Sprintf("r%d", i) {
			t.Fatalf("result %d = %q", i, r)
		}
	}
}

func TestMapBoundsInFlight(t *testing.T) {
	for _, limit := range []int{1, 2, 3, 5} {
		d := dispatch.New(limit, logging.NewNop())
		var inFlight, peak int32
		items := make([]int, 20)
		_, err := dispatch.Map(context.Background(), d, items, func(context.Context, int, int) (int, error) {
			current := atomic.AddInt32(&inFlight, 1)
			for {
				old := atomic.LoadInt32(&peak)
				if current <= old || atomic.CompareAndSwapInt32(&peak, old, current) {
					break
				}
			}
			time.Sleep(3 * time.Millisecond)
			atomic.AddInt32(&inFlight, -1)
			return 0, nil
		})
		if err != nil {
			t.Fatalf("limit %d: Map: %v", limit, err)
		}
		if peak > int32(limit) {
			t.Fatalf("limit %d: observed %d in flight", limit, peak)
		}
		if peak < 1 {
			t.Fatalf("limit %d: expected at least one request", limit)
		}
	}
}

func TestMapSurfacesFailure(t *testing.T) {
	d := dispatch.New(3, logging.NewNop())
	boom := errors.New("service unavailable")
	var active int32
	results, err := dispatch.Map(context.Background(), d, []int{0, 1, 2, 3, 4, 5}, func(ctx context.Context, index int, _ int) (int, error) {
		atomic.AddInt32(&active, 1)
		defer atomic.AddInt32(&active, -1)
		if index == 2 {
			return 0, boom
		}
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(20 * time.Millisecond):
			return index, nil
		}
	})
	if results != nil {
		t.Fatalf("expected no results on failure, got %v", results)
	}
	if !errors.Is(err, services.ErrDispatchFailure) {
		t.Fatalf("expected ErrDispatchFailure, got %v", err)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("expected cause to be preserved, got %v", err)
	}
	var itemErr *dispatch.ItemError
	if !errors.As(err, &itemErr) || itemErr.Index != 2 {
		t.Fatalf("expected item 2 failure, got %v", err)
	}
	if n := atomic.LoadInt32(&active); n != 0 {
		t.Fatalf("expected all requests settled, %d still active", n)
	}
}

func TestMapStopsLaunchingAfterFailure(t *testing.T) {
	d := dispatch.New(1, logging.NewNop())
	var calls int32
	_, err := dispatch.Map(context.Background(), d, make([]int, 10), func(_ context.Context, index int, _ int) (int, error) {
		atomic.AddInt32(&calls, 1)
		if index == 0 {
			return 0, errors.New("first fails")
		}
		return 0, nil
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("expected one call with limit 1, got %d", n)
	}
}

func TestMapParentCancellation(t *testing.T) {
	d := dispatch.New(2, logging.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	var once sync.Once
	_, err := dispatch.Map(ctx, d, make([]int, 8), func(itemCtx context.Context, _ int, _ int) (int, error) {
		once.Do(cancel)
		<-itemCtx.Done()
		return 0, itemCtx.Err()
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if services.FailureStatus(err) != services.StatusCanceled {
		t.Fatalf("expected canceled status, got %s", services.FailureStatus(err))
	}
}

func TestMapTagsChunkIndex(t *testing.T) {
	d := dispatch.New(2, nil)
	results, err := dispatch.Map(context.Background(), d, []string{"a", "b", "c"}, func(ctx context.Context, index int, _ string) (int, error) {
		got, ok := services.ChunkIndexFromContext(ctx)
		if !ok || got != index {
			return 0, fmt.Errorf("chunk index %d ok=%v, want %d", got, ok, index)
		}
		return got, nil
	})
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	if len(results) != 3 || results[2] != 2 {
		t.Fatalf("unexpected results %v", results)
	}
}

func TestMapEmptyInput(t *testing.T) {
	results, err := dispatch.Map(context.Background(), dispatch.New(0, nil), []int(nil), func(context.Context, int, int) (int, error) {
		t.Fatal("fn must not be called")
		return 0, nil
	})
	if err != nil || len(results) != 0 {
		t.Fatalf("unexpected result %v %v", results, err)
	}
}

func TestNewClampsLimit(t *testing.T) {
	if got := dispatch.New(0, nil).Limit(); got != 1 {
		t.Fatalf("expected limit 1, got %d", got)
	}
	if got := dispatch.New(-3, nil).Limit(); got != 1 {
		t.Fatalf("expected limit 1, got %d", got)
	}
}
