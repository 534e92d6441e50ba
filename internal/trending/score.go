// Encore - Concert Discovery Ingestion and Trending Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/encore

package trending

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tomtom215/encore/internal/models"
)

// Artist score weights.
const (
	artistRecentWeight    = 10
	artistWeekWeight      = 3
	artistTotalLogWeight  = 2
	artistUpcomingWeight  = 5
	artistFollowersWeight = 1.5
)

// ArtistScore is recent*10 + week*3 + ln(total+1)*2 + upcoming*5 +
// ln(followers+1)*1.5, rounded half away from zero to two decimals.
func ArtistScore(in models.ArtistTrendingInputs) float64 {
	raw := float64(in.RecentVotes)*artistRecentWeight +
		float64(in.WeekVotes)*artistWeekWeight +
		math.Log(float64(in.TotalVotes)+1)*artistTotalLogWeight +
		float64(in.UpcomingShows)*artistUpcomingWeight +
		math.Log(float64(in.Followers)+1)*artistFollowersWeight
	f, _ := decimal.NewFromFloat(raw).Round(2).Float64()
	return f
}

// ShowScore is (votes*2 + recent*5) times the proximity multiplier.
func ShowScore(in models.ShowTrendingInputs, now time.Time) float64 {
	base := float64(in.VoteCount)*2 + float64(in.RecentVotes)*5
	return base * ProximityMultiplier(DaysUntil(in.Date, now))
}

// SongScore is popularity*0.1 + votes + recent*5 + week*2.
func SongScore(in models.SongTrendingInputs) float64 {
	return float64(in.Popularity)*0.1 +
		float64(in.VoteCount) +
		float64(in.RecentVotes)*5 +
		float64(in.WeekVotes)*2
}

// DaysUntil is the number of calendar days from now to date, both read in
// now's location: 0 for any time today, 1 for tomorrow, negative for earlier
// days. Counting dates rather than elapsed hours keeps a show tomorrow night
// in the tomorrow band.
func DaysUntil(date, now time.Time) int {
	y1, m1, d1 := now.Date()
	y2, m2, d2 := date.In(now.Location()).Date()
	from := time.Date(y1, m1, d1, 0, 0, 0, 0, time.UTC)
	to := time.Date(y2, m2, d2, 0, 0, 0, 0, time.UTC)
	return int(to.Sub(from).Hours() / 24)
}

// ProximityMultiplier boosts shows that are close: 3 today or tomorrow, 2
// within a week, 1.5 within a month, 1 otherwise (earlier days included).
func ProximityMultiplier(days int) float64 {
	switch {
	case days < 0:
		return 1
	case days <= 1:
		return 3
	case days <= 7:
		return 2
	case days <= 30:
		return 1.5
	default:
		return 1
	}
}
