// Package raid provides the caller-side collaborators wired around the
// command pipeline: a gym directory, an active-raid store and the raid
// command set itself.
package raid

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/agnivade/levenshtein"
	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

// Gym is one entry of the gym directory.
type Gym struct {
	Name    string   `yaml:"name"`
	Aliases []string `yaml:"aliases,omitempty"`
	Places  []string `yaml:"places,omitempty"`
}

// InPlace reports whether any of the gym's place tags matches any of
// the given glob patterns.
func (g Gym) InPlace(patterns []string) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, p := range patterns {
		for _, place := range g.Places {
			if ok, err := doublestar.Match(strings.ToLower(p), strings.ToLower(place)); err == nil && ok {
				return true
			}
		}
	}
	return false
}

type gymFile struct {
	Gyms []Gym `yaml:"gyms"`
}

// Directory is a reloadable, name-and-alias indexed gym lookup.
type Directory struct {
	mu    sync.RWMutex
	path  string
	gyms  []Gym
	byKey map[string]int
}

// maxLookupDistance caps the edit distance accepted by fuzzy lookup,
// scaled to the query length.
func maxLookupDistance(query string) int {
	return 1 + len(query)/4
}

// NewDirectory builds a directory from an in-memory gym list.
func NewDirectory(gyms []Gym) *Directory {
	d := &Directory{}
	d.replace(gyms)
	return d
}

// Load reads the YAML gym file at path.
func Load(path string) (*Directory, error) {
	d := &Directory{path: path}
	if err := d.Reload(); err != nil {
		return nil, err
	}
	return d, nil
}

// Reload re-reads the backing file. The previous directory stays in
// place when the reload fails.
func (d *Directory) Reload() error {
	if d.path == "" {
		return nil
	}
	data, err := os.ReadFile(d.path)
	if err != nil {
		return fmt.Errorf("raid: read gym file: %w", err)
	}
	var file gymFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("raid: parse gym file %s: %w", d.path, err)
	}
	if len(file.Gyms) == 0 {
		return fmt.Errorf("raid: gym file %s declares no gyms", d.path)
	}
	d.replace(file.Gyms)
	return nil
}

func (d *Directory) replace(gyms []Gym) {
	byKey := make(map[string]int, len(gyms))
	for i, g := range gyms {
		byKey[normalize(g.Name)] = i
		for _, alias := range g.Aliases {
			byKey[normalize(alias)] = i
		}
	}
	d.mu.Lock()
	d.gyms = gyms
	d.byKey = byKey
	d.mu.Unlock()
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Path returns the backing file path, empty for in-memory directories.
func (d *Directory) Path() string {
	return d.path
}

// Len returns the number of gyms.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.gyms)
}

// Gyms returns all entries sorted by name.
func (d *Directory) Gyms() []Gym {
	d.mu.RLock()
	out := make([]Gym, len(d.gyms))
	copy(out, d.gyms)
	d.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Lookup resolves a free-form gym query. Resolution order: exact name
// or alias, unique prefix/substring, then closest key by edit
// distance. A query matching several distinct gyms equally well is an
// error, as is one matching nothing within the distance cap.
func (d *Directory) Lookup(query string) (Gym, error) {
	q := normalize(query)
	if q == "" {
		return Gym{}, fmt.Errorf("raid: empty gym query")
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if i, ok := d.byKey[q]; ok {
		return d.gyms[i], nil
	}

	// Unique substring match across names and aliases.
	candidates := make(map[int]struct{})
	for key, i := range d.byKey {
		if strings.Contains(key, q) {
			candidates[i] = struct{}{}
		}
	}
	switch len(candidates) {
	case 1:
		for i := range candidates {
			return d.gyms[i], nil
		}
	case 0:
		// fall through to fuzzy matching
	default:
		return Gym{}, fmt.Errorf("raid: gym %q is ambiguous, matches %s", query, d.candidateNames(candidates))
	}

	// Closest key by edit distance, for typos like "panited lot".
	best, bestDist := -1, maxLookupDistance(q)+1
	tied := false
	for key, i := range d.byKey {
		dist := levenshtein.ComputeDistance(q, key)
		switch {
		case dist < bestDist:
			best, bestDist, tied = i, dist, false
		case dist == bestDist && best >= 0 && i != best:
			tied = true
		}
	}
	if best < 0 {
		return Gym{}, fmt.Errorf("raid: no gym matches %q", query)
	}
	if tied {
		return Gym{}, fmt.Errorf("raid: gym %q is ambiguous", query)
	}
	return d.gyms[best], nil
}

func (d *Directory) candidateNames(candidates map[int]struct{}) string {
	names := make([]string, 0, len(candidates))
	for i := range candidates {
		names = append(names, d.gyms[i].Name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}
