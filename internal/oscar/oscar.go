// Package oscar provides the station-registry lookup interface consulted
// by the projector, plus a reference JSON loader for WMO OSCAR/Surface
// stationSearchResults exports (supplementing spec.md's lookup-interface-
// only scope, grounded on Oscar.cpp's small bounded loader).
package oscar

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/metno/gobufr/internal/wsi"
)

// Station is a station's observable attributes, keyed by WIGOS id.
type Station struct {
	WIGOS     wsi.ID
	Name      string
	Latitude  float64
	Longitude float64
	HasLatLon bool
}

// StationLookup is the interface the projector consults; Oscar misses
// return (Station{}, false) with no logging, per §7's "External" error
// kind (an Oscar miss is not itself an error).
type StationLookup interface {
	Lookup(w wsi.ID) (Station, bool)
}

// Registry is an in-memory, read-only (after load) station lookup table,
// immutable once built and safe to share across decoder instances.
type Registry struct {
	stations map[wsi.ID]Station
}

// rawResult mirrors the subset of OSCAR's stationSearchResults entry shape
// the spec requires (§6): wigosId, optional wigosStationIdentifiers, name,
// latitude, longitude.
type rawResult struct {
	WigosID                string `json:"wigosId"`
	WigosStationIdentifiers []struct {
		WigosStationIdentifier string `json:"wigosStationIdentifier"`
	} `json:"wigosStationIdentifiers"`
	Name      string   `json:"name"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

type rawDocument struct {
	StationSearchResults []rawResult `json:"stationSearchResults"`
}

// LoadRegistry reads an OSCAR JSON export from path and indexes every
// entry's wigosId (and any additional wigosStationIdentifiers) by parsed
// WSI, so Lookup is an O(1) map hit once built.
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("oscar: read %s: %w", path, err)
	}
	var doc rawDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("oscar: parse %s: %w", path, err)
	}

	reg := &Registry{stations: make(map[wsi.ID]Station)}
	for _, r := range doc.StationSearchResults {
		st := Station{Name: r.Name}
		if r.Latitude != nil && r.Longitude != nil {
			st.Latitude = *r.Latitude
			st.Longitude = *r.Longitude
			st.HasLatLon = true
		}

		ids := make([]string, 0, len(r.WigosStationIdentifiers)+1)
		if r.WigosID != "" {
			ids = append(ids, r.WigosID)
		}
		for _, extra := range r.WigosStationIdentifiers {
			if extra.WigosStationIdentifier != "" {
				ids = append(ids, extra.WigosStationIdentifier)
			}
		}
		for _, idStr := range ids {
			id, err := wsi.Parse(idStr)
			if err != nil {
				continue
			}
			st.WIGOS = id
			reg.stations[id] = st
		}
	}
	return reg, nil
}

// Lookup returns the station registered under w, if any.
func (r *Registry) Lookup(w wsi.ID) (Station, bool) {
	st, ok := r.stations[w]
	return st, ok
}

// Size returns the number of indexed stations.
func (r *Registry) Size() int { return len(r.stations) }
