package memory

import (
	"context"
	"testing"
)

func TestPublisherStoresMessages(t *testing.T) {
	t.Parallel()

	pub := New()
	attrs := map[string]string{"outcome": "succeeded"}
	id1, err := pub.Publish(context.Background(), attrs, map[string]string{"k": "v"})
	if err != nil || id1 != "memory-1" {
		t.Fatalf("unexpected publish result id=%s err=%v", id1, err)
	}
	attrs["outcome"] = "mutated"
	id2, err := pub.Publish(context.Background(), nil, "payload")
	if err != nil || id2 != "memory-2" {
		t.Fatalf("unexpected publish result id=%s err=%v", id2, err)
	}

	msgs := pub.Messages()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Attributes["outcome"] != "succeeded" {
		t.Fatalf("expected attributes to be copied, got %v", msgs[0].Attributes)
	}
	if msgs[1].Payload != "payload" {
		t.Fatalf("unexpected payload %v", msgs[1].Payload)
	}
}
