package redeem

import "testing"

func TestQueueLIFO(t *testing.T) {
	q := NewQueue(OrderLIFO)
	q.Push(Request{RedemptionID: "1"})
	q.Push(Request{RedemptionID: "2"})
	q.Push(Request{RedemptionID: "3"})

	for _, want := range []string{"3", "2", "1"} {
		r, ok := q.Pop()
		if !ok || r.RedemptionID != want {
			t.Fatalf("expected %s, got %q (ok=%v)", want, r.RedemptionID, ok)
		}
	}
	if _, ok := q.Pop(); ok {
		t.Error("expected empty queue")
	}
}

func TestQueueFIFO(t *testing.T) {
	q := NewQueue(OrderFIFO)
	q.Push(Request{RedemptionID: "1"})
	q.Push(Request{RedemptionID: "2"})

	if r, _ := q.Pop(); r.RedemptionID != "1" {
		t.Errorf("expected oldest first, got %s", r.RedemptionID)
	}
	if q.Len() != 1 {
		t.Errorf("expected 1 left, got %d", q.Len())
	}
}
