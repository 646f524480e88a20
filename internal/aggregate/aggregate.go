// Package aggregate derives the silver-layer summaries from bronze readings.
// Every transform is a pure function over its input slice: no I/O, no clock,
// and deterministic output for any permutation of the same rows.
package aggregate

import (
	"github.com/couchcryptid/weather-lakehouse-etl/internal/domain"
)

// Geohash cell precision of the daily grouping key. Seven characters
// resolves to roughly 150 m, enough to tell apart grid points inside one
// city.
const geohashPrecision uint = 7

// stats accumulates one metric. Readings missing the metric do not
// contribute, so an all-missing group reports nil for min, max and avg.
type stats struct {
	lo, hi, total float64
	n             int64
}

func (s *stats) add(v *float64) {
	if v == nil {
		return
	}
	if s.n == 0 || *v < s.lo {
		s.lo = *v
	}
	if s.n == 0 || *v > s.hi {
		s.hi = *v
	}
	s.total += *v
	s.n++
}

func (s *stats) min() *float64 {
	if s.n == 0 {
		return nil
	}
	v := s.lo
	return &v
}

func (s *stats) max() *float64 {
	if s.n == 0 {
		return nil
	}
	v := s.hi
	return &v
}

func (s *stats) avg() *float64 {
	if s.n == 0 {
		return nil
	}
	v := s.total / float64(s.n)
	return &v
}

// checkGroupingKey validates the fields every transform groups or carries
// by. A violation poisons the whole batch; silently dropping the row would
// make reruns disagree about partition contents.
func checkGroupingKey(index int, time int64, city, dateRetrieved string) error {
	if time == 0 {
		return &domain.MalformedRowError{Index: index, Field: "time"}
	}
	if city == "" {
		return &domain.MalformedRowError{Index: index, Field: "city"}
	}
	if dateRetrieved == "" {
		return &domain.MalformedRowError{Index: index, Field: "date_retrieved"}
	}
	return nil
}

// earlier orders readings for carrier selection: smallest observation time
// wins, ties broken by station latitude, then longitude, so the carried
// coordinates do not depend on input order.
func earlier(t1 int64, lat1, lon1 float64, t2 int64, lat2, lon2 float64) bool {
	if t1 != t2 {
		return t1 < t2
	}
	if lat1 != lat2 {
		return lat1 < lat2
	}
	return lon1 < lon2
}
