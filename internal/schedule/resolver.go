// Package schedule answers "what leaves this stop next" against a loaded
// static GTFS dataset.
package schedule

import (
	"sort"
	"time"

	"pulsetransit/internal/gtfs"
)

// Departure is one upcoming scheduled departure from a stop.
type Departure struct {
	RouteShortName string
	TripHeadsign   string
	DepartureTime  string // raw GTFS clock string, e.g. "10:15:00"
	MinutesUntil   int
}

// Resolver indexes a dataset for repeated next-departure queries. It holds
// no mutable state after construction; a query is a pure computation over
// the indexed tables.
type Resolver struct {
	stopTimes map[int][]*gtfs.StopTime
	trips     map[string]*gtfs.Trip
	routes    map[string]*gtfs.Route
	calendar  []*gtfs.CalendarDate
}

// NewResolver builds the per-stop, per-trip and per-route indexes once.
// Stop times keep their file order so ties in minutes-until resolve
// deterministically.
func NewResolver(ds *gtfs.Dataset) *Resolver {
	r := &Resolver{
		stopTimes: make(map[int][]*gtfs.StopTime),
		trips:     make(map[string]*gtfs.Trip, len(ds.Trips)),
		routes:    make(map[string]*gtfs.Route, len(ds.Routes)),
		calendar:  ds.CalendarDates,
	}
	for _, st := range ds.StopTimes {
		r.stopTimes[st.StopID] = append(r.stopTimes[st.StopID], st)
	}
	for _, t := range ds.Trips {
		r.trips[t.TripID] = t
	}
	for _, rt := range ds.Routes {
		r.routes[rt.RouteID] = rt
	}
	return r
}

// ActiveServices returns the set of service_ids running on the given
// YYYYMMDD date. Only calendar_dates rows with exception_type 1 on that
// exact date count; there is no weekly-recurrence fallback in this feed.
func (r *Resolver) ActiveServices(dateKey int) map[string]struct{} {
	active := make(map[string]struct{})
	for _, cd := range r.calendar {
		if cd.Date == dateKey && cd.ExceptionType == 1 {
			active[cd.ServiceID] = struct{}{}
		}
	}
	return active
}

// NextDepartures returns at most limit upcoming departures from stopID at
// the reference instant, ordered ascending by minutes until departure.
// A stop with no stop times, or a date with no active service, yields an
// empty result rather than an error.
//
// Trips coded past 24:00 keep their large minute values and therefore sort
// after all same-day service; a query just before true midnight will not
// roll over into the next service day.
func (r *Resolver) NextDepartures(stopID int, ref time.Time, limit int) []Departure {
	stopTimes := r.stopTimes[stopID]
	if len(stopTimes) == 0 {
		return nil
	}

	active := r.ActiveServices(gtfs.DateKey(ref))
	if len(active) == 0 {
		return nil
	}

	refMinutes := ref.Hour()*60 + ref.Minute()

	var out []Departure
	for _, st := range stopTimes {
		trip, ok := r.trips[st.TripID]
		if !ok {
			continue
		}
		if _, ok := active[trip.ServiceID]; !ok {
			continue
		}
		route, ok := r.routes[trip.RouteID]
		if !ok {
			continue
		}
		depMinutes, err := gtfs.DepartureMinutes(st.DepartureTime)
		if err != nil {
			continue
		}
		minutesUntil := depMinutes - refMinutes
		if minutesUntil < 0 {
			continue
		}
		out = append(out, Departure{
			RouteShortName: route.ShortName,
			TripHeadsign:   trip.Headsign,
			DepartureTime:  st.DepartureTime,
			MinutesUntil:   minutesUntil,
		})
	}

	// Stable keeps join-encounter order on equal minutes.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].MinutesUntil < out[j].MinutesUntil
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
