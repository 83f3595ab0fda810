package preference

import (
	"context"
	"reflect"
	"sync"
	"testing"
)

func TestSequencer_FlushRunsEarlierJobsAndKeepsAccepting(t *testing.T) {
	s := newSequencer()
	go s.Run(context.Background())
	defer s.Close()

	var mu sync.Mutex
	var ran []int
	record := func(i int) job {
		return func(context.Context) {
			mu.Lock()
			ran = append(ran, i)
			mu.Unlock()
		}
	}

	s.Submit(record(1))
	s.Submit(func(ctx context.Context) {
		// submitted while running, lands after the flush barrier
		s.Submit(record(3))
		record(2)(ctx)
	})
	s.Flush()

	mu.Lock()
	got := append([]int(nil), ran...)
	mu.Unlock()
	if !reflect.DeepEqual(got, []int{1, 2}) {
		t.Errorf("after Flush ran %v, want [1 2]", got)
	}

	s.Close()
	if !reflect.DeepEqual(ran, []int{1, 2, 3}) {
		t.Errorf("after Close ran %v, want [1 2 3]", ran)
	}
	if s.Submit(record(4)) {
		t.Error("Submit accepted a job after Close")
	}
}
