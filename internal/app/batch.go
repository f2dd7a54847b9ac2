package app

import (
	"fmt"
	"time"
)

// ItemStatus is the outcome of one unit of work in a batch job.
type ItemStatus string

const (
	ItemCreated ItemStatus = "created"
	ItemSkipped ItemStatus = "skipped"
	ItemErrored ItemStatus = "errored"
)

// BatchItem is the per-payment (or per-user) detail of a batch run.
type BatchItem struct {
	UserID    int64      `json:"user_id,omitempty"`
	PaymentID int64      `json:"payment_id,omitempty"`
	Date      string     `json:"date,omitempty"`
	Status    ItemStatus `json:"status"`
	Detail    string     `json:"detail,omitempty"`
}

// BatchResult summarises a sweep. Partial success is normal: a failing item
// is recorded and the sweep moves on.
type BatchResult struct {
	Checked int         `json:"checked"`
	Created int         `json:"created"`
	Skipped int         `json:"skipped"`
	Errored int         `json:"errored"`
	Items   []BatchItem `json:"items"`
}

func (b *BatchResult) add(item BatchItem) {
	switch item.Status {
	case ItemCreated:
		b.Created++
	case ItemSkipped:
		b.Skipped++
	case ItemErrored:
		b.Errored++
	}
	b.Items = append(b.Items, item)
}

// Merge folds another result into b.
func (b *BatchResult) Merge(other BatchResult) {
	b.Checked += other.Checked
	b.Created += other.Created
	b.Skipped += other.Skipped
	b.Errored += other.Errored
	b.Items = append(b.Items, other.Items...)
}

func dateString(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}

// isolate runs one batch item, turning a panic into an error so a single bad
// payment cannot end the sweep.
func isolate(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}
