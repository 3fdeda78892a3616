package cronrunner

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestRunnerRunsJobWithBaseContext(t *testing.T) {
	type key struct{}
	base := context.WithValue(context.Background(), key{}, "base")
	r := New(nil, base)

	var hits int32
	got := make(chan any, 1)
	if _, err := r.Add("tick", "@every 1s", func(ctx context.Context) {
		if atomic.AddInt32(&hits, 1) == 1 {
			got <- ctx.Value(key{})
		}
	}); err != nil {
		t.Fatalf("Add err=%v", err)
	}
	if r.Len() != 1 {
		t.Fatalf("len=%d want 1", r.Len())
	}
	r.Start()
	defer r.Stop()

	select {
	case v := <-got:
		if v != "base" {
			t.Fatalf("ctx value=%v want base", v)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("job did not run")
	}
}

func TestRunnerRejectsBadSpec(t *testing.T) {
	r := New(nil, nil)
	if _, err := r.Add("bad", "not a spec", func(context.Context) {}); err == nil {
		t.Fatalf("expected error")
	}
}
