package httpmiddleware

import (
	"context"
	"testing"
)

func TestSimpleTokenBucketExhausts(t *testing.T) {
	l := NewSimpleTokenBucket(3, 3)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if !l.Allow(ctx, "1.2.3.4") {
			t.Fatalf("request %d should be allowed", i)
		}
	}
	if l.Allow(ctx, "1.2.3.4") {
		t.Fatal("bucket should be exhausted")
	}
	// Other keys are unaffected.
	if !l.Allow(ctx, "5.6.7.8") {
		t.Fatal("separate key should have its own bucket")
	}
}

func TestSimpleTokenBucketDefaultsCapacity(t *testing.T) {
	l := NewSimpleTokenBucket(0, 10)
	if l.capacity != 10 {
		t.Fatalf("capacity = %d, want rate as fallback", l.capacity)
	}
}
