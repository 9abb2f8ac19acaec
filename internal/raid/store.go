package raid

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Raid is one active raid at a gym. Tier 0 means the tier was not
// reported.
type Raid struct {
	Gym  Gym
	Tier int
	Ends time.Time
}

// Filter narrows an Active listing. Zero values leave a dimension
// unfiltered.
type Filter struct {
	MinTier int
	MaxTier int
	// Places are doublestar glob patterns matched against gym place
	// tags.
	Places []string
}

// Store is the in-memory active-raid table, keyed by gym name.
type Store struct {
	mu    sync.Mutex
	raids map[string]*Raid
	now   func() time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		raids: make(map[string]*Raid),
		now:   time.Now,
	}
}

// Add records a raid at a gym ending after the given number of
// minutes. A gym with an unexpired raid rejects the report.
func (s *Store) Add(gym Gym, tier, minutes int) (*Raid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if existing, ok := s.raids[gym.Name]; ok && existing.Ends.After(now) {
		return nil, fmt.Errorf("gym %q already has an active raid", gym.Name)
	}

	raid := &Raid{
		Gym:  gym,
		Tier: tier,
		Ends: now.Add(time.Duration(minutes) * time.Minute),
	}
	s.raids[gym.Name] = raid
	return raid, nil
}

// Remove deletes the raid at a gym.
func (s *Store) Remove(gym Gym) (*Raid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raid, ok := s.raids[gym.Name]
	if !ok || !raid.Ends.After(s.now()) {
		delete(s.raids, gym.Name)
		return nil, fmt.Errorf("gym %q has no active raid", gym.Name)
	}
	delete(s.raids, gym.Name)
	return raid, nil
}

// Active returns unexpired raids passing the filter, soonest-ending
// first. Expired entries are pruned as a side effect.
func (s *Store) Active(f Filter) []*Raid {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var out []*Raid
	for name, raid := range s.raids {
		if !raid.Ends.After(now) {
			delete(s.raids, name)
			continue
		}
		if f.MinTier > 0 && raid.Tier < f.MinTier {
			continue
		}
		if f.MaxTier > 0 && raid.Tier > f.MaxTier {
			continue
		}
		if !raid.Gym.InPlace(f.Places) {
			continue
		}
		out = append(out, raid)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Ends.Before(out[j].Ends) })
	return out
}
