// Package analytics computes derived views over on-chain records: the
// payment chart buckets and the set of scheduled payments the current
// account could execute right now. Everything here is pure — same
// inputs, same outputs — so views can be recomputed on every poll.
package analytics

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/vitwit/chainvoice/registry"
	"github.com/vitwit/chainvoice/types"
	"github.com/vitwit/chainvoice/utils"
)

// Window selects the bucket granularity of an aggregation.
type Window string

const (
	// WindowWeek buckets by day of week, Monday first.
	WindowWeek Window = "week"
	// WindowMonth buckets by day of month.
	WindowMonth Window = "month"
	// WindowYear buckets by month of year.
	WindowYear Window = "year"
)

// Bucket is one chart data point.
type Bucket struct {
	Label string
	Value decimal.Decimal
}

// Aggregate buckets paid invoices into the window anchored at ref and
// sums their amounts, each scaled by its own token's configured decimal
// count. Unpaid invoices and zero paidAt timestamps are skipped; bucket
// matching uses UTC date components; unmatched buckets stay zero.
func Aggregate(invoices []*types.InvoiceRecord, window Window, ref time.Time, cfg registry.Config) []Bucket {
	ref = ref.UTC()
	buckets := makeBuckets(window, ref)

	for _, inv := range invoices {
		if inv == nil || !inv.IsPaid || inv.PaidAt == 0 {
			continue
		}
		paidAt := time.Unix(int64(inv.PaidAt), 0).UTC()
		idx := bucketIndex(window, ref, paidAt)
		if idx < 0 {
			continue
		}
		amount := utils.ScaledDecimal(inv.Amount, tokenDecimals(cfg, inv.Token))
		buckets[idx].Value = buckets[idx].Value.Add(amount)
	}
	return buckets
}

func tokenDecimals(cfg registry.Config, token common.Address) int32 {
	if token == (common.Address{}) {
		return types.NativeDecimals
	}
	return cfg.TokenDecimals(token)
}

func makeBuckets(window Window, ref time.Time) []Bucket {
	switch window {
	case WindowWeek:
		labels := []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}
		buckets := make([]Bucket, len(labels))
		for i, l := range labels {
			buckets[i] = Bucket{Label: l, Value: decimal.Zero}
		}
		return buckets
	case WindowMonth:
		days := daysInMonth(ref)
		buckets := make([]Bucket, days)
		for i := range buckets {
			buckets[i] = Bucket{Label: fmt.Sprintf("%d", i+1), Value: decimal.Zero}
		}
		return buckets
	case WindowYear:
		buckets := make([]Bucket, 12)
		for i := range buckets {
			buckets[i] = Bucket{Label: time.Month(i + 1).String()[:3], Value: decimal.Zero}
		}
		return buckets
	default:
		return nil
	}
}

// bucketIndex maps a paid-at time onto a bucket of the window anchored
// at ref, or -1 when it falls outside the window.
func bucketIndex(window Window, ref, paidAt time.Time) int {
	switch window {
	case WindowWeek:
		start := weekStart(ref)
		for i := 0; i < 7; i++ {
			day := start.AddDate(0, 0, i)
			if sameDate(day, paidAt) {
				return i
			}
		}
		return -1
	case WindowMonth:
		if paidAt.Year() == ref.Year() && paidAt.Month() == ref.Month() {
			return paidAt.Day() - 1
		}
		return -1
	case WindowYear:
		if paidAt.Year() == ref.Year() {
			return int(paidAt.Month()) - 1
		}
		return -1
	default:
		return -1
	}
}

// weekStart returns the Monday of ref's week, truncated to the date.
func weekStart(ref time.Time) time.Time {
	offset := (int(ref.Weekday()) + 6) % 7
	d := ref.AddDate(0, 0, -offset)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}

func sameDate(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

func daysInMonth(ref time.Time) int {
	return time.Date(ref.Year(), ref.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
