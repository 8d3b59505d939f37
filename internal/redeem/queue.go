package redeem

import "sync"

// Request is one viewer redemption waiting to be served.
type Request struct {
	BroadcasterID string `json:"broadcaster_id"`
	UserName      string `json:"user_name"`
	RewardID      string `json:"reward_id"`
	RedemptionID  string `json:"redemption_id"`
	Title         string `json:"title"`
	Prompt        string `json:"prompt,omitempty"`
}

// Queue orders.
const (
	OrderLIFO = "lifo"
	OrderFIFO = "fifo"
)

// Queue holds pending redemptions. Producers always append; Pop takes the
// newest entry in lifo order and the oldest in fifo order.
type Queue struct {
	mu    sync.Mutex
	items []Request
	fifo  bool
}

func NewQueue(order string) *Queue {
	return &Queue{fifo: order == OrderFIFO}
}

func (q *Queue) Push(r Request) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, r)
}

func (q *Queue) Pop() (Request, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return Request{}, false
	}
	var r Request
	if q.fifo {
		r = q.items[0]
		q.items = q.items[1:]
	} else {
		last := len(q.items) - 1
		r = q.items[last]
		q.items = q.items[:last]
	}
	return r, true
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
