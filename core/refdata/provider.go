// Package refdata serves the read-only directory of cities, regions and schools
// that accounts are registered against.
package refdata

import (
	"encoding/json"
	"io"
	"io/fs"
	"os"
	"sort"

	"github.com/pkg/errors"
)

type (
	School struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}

	region struct {
		Name    string   `json:"name"`
		Schools []School `json:"schools"`
	}

	city struct {
		City    string   `json:"city"`
		Regions []region `json:"regions"`
	}

	// Provider is built once at startup and shared; it is never mutated after Load.
	Provider struct {
		cities []city
		names  map[string]string // school id -> name
	}
)

// Load reads a dataset shaped as [{city, regions: [{name, schools: [{id, name}]}]}].
func Load(r io.Reader) (*Provider, error) {
	var cities []city
	if err := json.NewDecoder(r).Decode(&cities); err != nil {
		return nil, errors.Wrap(err, "decoding reference data")
	}

	p := &Provider{cities: cities, names: make(map[string]string)}
	for _, c := range cities {
		for _, r := range c.Regions {
			for _, s := range r.Schools {
				if s.ID == "" {
					return nil, errors.Errorf("school %q in %s/%s has no id", s.Name, c.City, r.Name)
				}
				if _, dup := p.names[s.ID]; dup {
					return nil, errors.Errorf("duplicate school id %q", s.ID)
				}
				p.names[s.ID] = s.Name
			}
		}
	}
	return p, nil
}

func LoadFile(path string) (*Provider, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening reference data")
	}
	defer func() { _ = f.Close() }()
	return Load(f)
}

func LoadFS(fsys fs.FS, path string) (*Provider, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening reference data")
	}
	defer func() { _ = f.Close() }()
	return Load(f)
}

// Cities returns the city names in dataset order.
func (p *Provider) Cities() []string {
	names := make([]string, 0, len(p.cities))
	for _, c := range p.cities {
		names = append(names, c.City)
	}
	return names
}

// Regions returns the regions of a city, or an empty list for an unknown city.
func (p *Provider) Regions(cityName string) []string {
	names := make([]string, 0)
	if c, ok := p.city(cityName); ok {
		for _, r := range c.Regions {
			names = append(names, r.Name)
		}
	}
	return names
}

// Schools returns the schools of a region sorted by name.
func (p *Provider) Schools(cityName, regionName string) []School {
	schools := make([]School, 0)
	if c, ok := p.city(cityName); ok {
		for _, r := range c.Regions {
			if r.Name == regionName {
				schools = append(schools, r.Schools...)
				break
			}
		}
	}
	sort.SliceStable(schools, func(i, j int) bool { return schools[i].Name < schools[j].Name })
	return schools
}

func (p *Provider) SchoolName(id string) (string, bool) {
	name, ok := p.names[id]
	return name, ok
}

// Each calls fn for every school in dataset order.
func (p *Provider) Each(fn func(cityName, regionName string, s School)) {
	for _, c := range p.cities {
		for _, r := range c.Regions {
			for _, s := range r.Schools {
				fn(c.City, r.Name, s)
			}
		}
	}
}

func (p *Provider) city(name string) (city, bool) {
	for _, c := range p.cities {
		if c.City == name {
			return c, true
		}
	}
	return city{}, false
}
