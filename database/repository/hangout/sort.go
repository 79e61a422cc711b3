package hangoutRepo

import (
	"sort"
	"time"

	"proxo/models"
)

// SortRequests orders reqs in place by keys. The sort is stable, so records
// equal on every key keep their relative order.
func SortRequests(reqs []models.HangoutRequest, keys []SortKey) {
	if len(keys) == 0 {
		return
	}
	sort.SliceStable(reqs, func(i, j int) bool {
		for _, k := range keys {
			c := compareField(reqs[i], reqs[j], k.Field)
			if c == 0 {
				continue
			}
			if k.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

func compareField(a, b models.HangoutRequest, field string) int {
	switch field {
	case FieldExpiresAt:
		return compareTime(a.ExpiresAt, b.ExpiresAt)
	case FieldCreatedAt:
		return compareTime(a.CreatedAt, b.CreatedAt)
	case FieldCreatedBy:
		switch {
		case a.CreatedBy < b.CreatedBy:
			return -1
		case a.CreatedBy > b.CreatedBy:
			return 1
		}
	}
	return 0
}

// compareTime treats a missing timestamp as earlier than any present one.
func compareTime(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	return a.Compare(*b)
}
