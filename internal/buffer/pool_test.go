package buffer

import "testing"

func TestGetPutRoundTrip(t *testing.T) {
	b := Get(100)
	if b.Len() != 0 {
		t.Fatalf("Get() returned non-empty buffer, Len()=%d", b.Len())
	}
	b.AppendString("data")
	Put(b)

	b2 := Get(100)
	if b2.Len() != 0 {
		t.Fatalf("reused buffer not cleared, Len()=%d", b2.Len())
	}
}

func TestGetOversizeBypassesPool(t *testing.T) {
	b := Get(bucket1M + 1)
	if cap(b.data) < bucket1M+2 {
		t.Fatalf("expected capacity beyond largest bucket, got %d", cap(b.data))
	}
	// Put should be a no-op for odd-sized buffers, not panic.
	Put(b)
}

func TestBucketForPicksSmallestFit(t *testing.T) {
	if got := bucketFor(10); buckets[got] != bucket4K {
		t.Fatalf("bucketFor(10) = bucket %d, want bucket4K", buckets[got])
	}
	if got := bucketFor(bucket4K + 1); buckets[got] != bucket64K {
		t.Fatalf("bucketFor(bucket4K+1) = bucket %d, want bucket64K", buckets[got])
	}
}
