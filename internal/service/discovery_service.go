package service

import (
	"context"
	"math"
	"sort"
	"time"

	"pwani/internal/cache"
	"pwani/internal/models"
	"pwani/internal/observability"
	"pwani/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

const earthRadiusKm = 6371.0

// Haversine returns the great-circle distance in kilometers between two
// coordinates.
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLng := (lng2 - lng1) * math.Pi / 180

	rLat1 := lat1 * math.Pi / 180
	rLat2 := lat2 * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

// DiscoverOptions carries per-request overrides and pagination for the feed.
type DiscoverOptions struct {
	// Lat/Lng override the requester's stored location for this request.
	Lat *float64
	Lng *float64
	// MaxDistanceKm overrides the requester's stored distance preference.
	MaxDistanceKm *float64
	Page          int
	Limit         int
}

// Pagination describes the slice of the feed that was returned. Total is the
// count of this page only, not of the whole result set.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}

// Discover filters, sorts and paginates an in-memory candidate slice for one
// requester. Candidates must already exclude the requester and anyone they
// have swiped on or matched with.
//
// A candidate passes when their calendar-year age falls in the requester's
// preferred window and each side's gender preference accepts the other.
// When both sides have coordinates the haversine distance is computed and
// candidates beyond the distance cap are dropped; when either side has no
// coordinates the candidate is kept with no distance, which sorts as zero.
func Discover(requester *models.User, candidates []models.User, opts DiscoverOptions, now time.Time) ([]models.PublicProfile, Pagination) {
	ageMin, ageMax := requester.AgeWindow()

	lat, lng := requester.Latitude, requester.Longitude
	if opts.Lat != nil && opts.Lng != nil {
		lat, lng = opts.Lat, opts.Lng
	}

	maxDistance := float64(requester.PrefMaxDistanceKm)
	if maxDistance <= 0 {
		maxDistance = models.DefaultPrefMaxDistanceKm
	}
	if opts.MaxDistanceKm != nil && *opts.MaxDistanceKm > 0 {
		maxDistance = *opts.MaxDistanceKm
	}

	profiles := make([]models.PublicProfile, 0, len(candidates))
	for i := range candidates {
		c := &candidates[i]
		if !c.IsProfileComplete {
			continue
		}

		age := c.Age(now)
		if age < ageMin || age > ageMax {
			continue
		}
		if !requester.AcceptsGender(c.Gender) {
			continue
		}
		if !c.AcceptsGender(requester.Gender) {
			continue
		}

		profile := c.Public(now)
		if lat != nil && lng != nil && c.HasLocation() {
			d := Haversine(*lat, *lng, *c.Latitude, *c.Longitude)
			if d > maxDistance {
				continue
			}
			profile.DistanceKm = &d
		}
		profiles = append(profiles, profile)
	}

	// Ascending by distance; unknown distance sorts as zero.
	sort.SliceStable(profiles, func(i, j int) bool {
		return distanceOrZero(profiles[i]) < distanceOrZero(profiles[j])
	})

	page := opts.Page
	if page < 1 {
		page = 1
	}
	limit := opts.Limit
	if limit < 1 || limit > 100 {
		limit = 20
	}

	start := (page - 1) * limit
	if start > len(profiles) {
		start = len(profiles)
	}
	end := start + limit
	if end > len(profiles) {
		end = len(profiles)
	}
	paged := profiles[start:end]

	return paged, Pagination{Page: page, Limit: limit, Total: len(paged)}
}

func distanceOrZero(p models.PublicProfile) float64 {
	if p.DistanceKm == nil {
		return 0
	}
	return *p.DistanceKm
}

// DiscoveryService assembles the candidate pool and runs the feed for a user.
type DiscoveryService struct {
	users   repository.UserRepository
	swipes  repository.SwipeRepository
	matches repository.MatchRepository
}

// NewDiscoveryService returns a new DiscoveryService.
func NewDiscoveryService(users repository.UserRepository, swipes repository.SwipeRepository, matches repository.MatchRepository) *DiscoveryService {
	return &DiscoveryService{users: users, swipes: swipes, matches: matches}
}

// Feed returns the discovery page for userID.
func (s *DiscoveryService) Feed(ctx context.Context, userID uint, opts DiscoverOptions) ([]models.PublicProfile, Pagination, error) {
	start := time.Now()

	requester, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, Pagination{}, err
	}
	if !requester.IsProfileComplete {
		return nil, Pagination{}, models.NewValidationError("Complete your profile before discovering people")
	}

	decided, err := s.swipes.DecidedUserIDs(ctx, userID)
	if err != nil {
		return nil, Pagination{}, err
	}
	matched, err := s.matches.MatchedUserIDs(ctx, userID)
	if err != nil {
		return nil, Pagination{}, err
	}

	seen := make(map[uint]struct{}, len(decided)+len(matched))
	exclude := make([]uint, 0, len(decided)+len(matched))
	for _, id := range append(decided, matched...) {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		exclude = append(exclude, id)
	}

	// The candidate query is the expensive part of the feed; swipes and
	// profile edits invalidate this key.
	var candidates []models.User
	err = cache.Aside(ctx, cache.DiscoveryKey(userID), &candidates, cache.DiscoveryTTL, func() error {
		var loadErr error
		candidates, loadErr = s.users.ListCandidates(ctx, userID, exclude)
		return loadErr
	})
	if err != nil {
		return nil, Pagination{}, err
	}

	profiles, pagination := Discover(requester, candidates, opts, time.Now())
	observability.ObserveDiscovery(start, len(profiles))
	observability.SetSpanAttributes(ctx,
		attribute.Int("discovery.candidates", len(candidates)),
		attribute.Int("discovery.results", len(profiles)),
	)
	return profiles, pagination, nil
}
