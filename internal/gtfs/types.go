package gtfs

import (
	"strconv"
	"strings"
)

// Stop is a boarding location from stops.txt. Reference data, immutable
// once loaded.
type Stop struct {
	StopID int      `csv:"stop_id"`
	Name   string   `csv:"stop_name"`
	Lat    CSVFloat `csv:"stop_lat"`
	Lon    CSVFloat `csv:"stop_lon"`
}

// Route is a line from routes.txt.
type Route struct {
	RouteID   string `csv:"route_id"`
	ShortName string `csv:"route_short_name"`
	LongName  string `csv:"route_long_name"`
	Color     string `csv:"route_color"`
}

// defaultRouteColor is used when routes.txt leaves route_color empty.
const defaultRouteColor = "#888888"

// ColorHex returns the display color as "#RRGGBB", falling back to gray
// when the feed does not specify one.
func (r *Route) ColorHex() string {
	c := strings.TrimSpace(r.Color)
	if c == "" {
		return defaultRouteColor
	}
	if !strings.HasPrefix(c, "#") {
		c = "#" + c
	}
	return c
}

// Trip is a single scheduled run of a route, from trips.txt.
type Trip struct {
	TripID    string `csv:"trip_id"`
	RouteID   string `csv:"route_id"`
	ServiceID string `csv:"service_id"`
	Headsign  string `csv:"trip_headsign"`
	ShapeID   string `csv:"shape_id"`
}

// StopTime records when a trip serves a stop, from stop_times.txt.
// DepartureTime keeps the raw GTFS clock string; hours may exceed 23 for
// service that runs past midnight.
type StopTime struct {
	TripID        string `csv:"trip_id"`
	ArrivalTime   string `csv:"arrival_time"`
	DepartureTime string `csv:"departure_time"`
	StopID        int    `csv:"stop_id"`
	Sequence      CSVInt `csv:"stop_sequence"`
}

// CalendarDate is a service exception from calendar_dates.txt. An
// exception_type of 1 activates the service on that exact date; this feed
// models no weekly recurrence, so these rows are the only source of truth
// for active services.
type CalendarDate struct {
	ServiceID     string `csv:"service_id"`
	Date          int    `csv:"date"`
	ExceptionType CSVInt `csv:"exception_type"`
}

// ShapePoint is one vertex of a route polyline, from shapes.txt. Kept for
// map consumers; the resolver does not use it.
type ShapePoint struct {
	ShapeID  string   `csv:"shape_id"`
	Lat      CSVFloat `csv:"shape_pt_lat"`
	Lon      CSVFloat `csv:"shape_pt_lon"`
	Sequence CSVInt   `csv:"shape_pt_sequence"`
}

// CSVInt is an integer field that tolerates being absent from a row.
type CSVInt int

// MarshalCSV marshals the value into a string format.
func (i *CSVInt) MarshalCSV() (string, error) {
	return strconv.Itoa(int(*i)), nil
}

// UnmarshalCSV parses the CSV cell, treating an empty cell as zero.
func (i *CSVInt) UnmarshalCSV(csv string) error {
	csv = strings.TrimSpace(csv)
	if csv == "" {
		*i = 0
		return nil
	}
	val, err := strconv.ParseInt(csv, 10, 32)
	if err != nil {
		return err
	}
	*i = CSVInt(val)
	return nil
}

// CSVFloat is a float64 field that tolerates being absent from a row.
type CSVFloat float64

// MarshalCSV marshals the value into a string format.
func (f CSVFloat) MarshalCSV() (string, error) {
	return strconv.FormatFloat(float64(f), 'f', -1, 64), nil
}

// UnmarshalCSV parses the CSV cell, treating an empty cell as zero.
func (f *CSVFloat) UnmarshalCSV(csv string) error {
	csv = strings.TrimSpace(csv)
	if csv == "" {
		*f = 0
		return nil
	}
	val, err := strconv.ParseFloat(csv, 64)
	if err != nil {
		return err
	}
	*f = CSVFloat(val)
	return nil
}
