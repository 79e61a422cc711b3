package feed

import (
	"fmt"
	"sort"
	"time"

	"proxo/models"
	"proxo/services/geo"
)

// Input is everything a feed view is computed from.
type Input struct {
	Own             []models.HangoutRequest
	Nearby          []models.HangoutRequest
	Fix             *models.UserLocationFix
	Now             time.Time
	OwnAvailable    bool
	NearbyAvailable bool
	Status          models.LocationStatus
}

// Assemble builds a complete view. It is pure: equal inputs give equal views.
// Own requests keep the store order; nearby requests are ranked by distance.
func Assemble(in Input) models.FeedView {
	own := make([]models.RankedRequest, 0, len(in.Own))
	for _, r := range in.Own {
		own = append(own, models.RankedRequest{
			HangoutRequest: r,
			TimeRemaining:  FormatTimeRemaining(r.ExpiresAt, in.Now),
		})
	}

	var location *models.UserLocationFix
	if in.Fix != nil {
		fix := *in.Fix
		location = &fix
	}

	return models.FeedView{
		GeneratedAt:     in.Now,
		Location:        location,
		LocationStatus:  in.Status,
		OwnRequests:     own,
		NearbyRequests:  RankNearby(in.Nearby, in.Fix, in.Now),
		OwnAvailable:    in.OwnAvailable,
		NearbyAvailable: in.NearbyAvailable,
	}
}

// RankNearby decorates reqs with their distance from fix and sorts them:
// known distances ascending, then requests without a distance in arrival order.
// A distance of zero is known.
func RankNearby(reqs []models.HangoutRequest, fix *models.UserLocationFix, now time.Time) []models.RankedRequest {
	ranked := make([]models.RankedRequest, 0, len(reqs))
	for _, r := range reqs {
		rr := models.RankedRequest{
			HangoutRequest: r,
			TimeRemaining:  FormatTimeRemaining(r.ExpiresAt, now),
		}
		if fix != nil && r.Coordinates != nil {
			d := geo.Distance(fix.Coordinates(), *r.Coordinates)
			rr.DistanceMiles = &d
		}
		ranked = append(ranked, rr)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i].DistanceMiles, ranked[j].DistanceMiles
		switch {
		case a != nil && b != nil:
			return *a < *b
		case a != nil:
			return true
		default:
			return false
		}
	})
	return ranked
}

// FormatTimeRemaining renders max(0, expiresAt-now) as "H:MM remaining", or
// "Expired" once nothing is left.
func FormatTimeRemaining(expiresAt *time.Time, now time.Time) string {
	if expiresAt == nil {
		return "Expired"
	}
	left := expiresAt.Sub(now)
	if left <= 0 {
		return "Expired"
	}
	hours := int(left / time.Hour)
	minutes := int((left % time.Hour) / time.Minute)
	return fmt.Sprintf("%d:%02d remaining", hours, minutes)
}
