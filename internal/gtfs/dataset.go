package gtfs

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
	"go.uber.org/zap"
)

func init() {
	// GTFS allows rows to omit trailing optional columns; do not treat a
	// short row as an error.
	gocsv.SetCSVReader(func(in io.Reader) gocsv.CSVReader {
		r := csv.NewReader(in)
		r.FieldsPerRecord = -1
		return r
	})
}

// Dataset holds the full static schedule for one GTFS directory.
type Dataset struct {
	Stops         []*Stop
	Routes        []*Route
	Trips         []*Trip
	StopTimes     []*StopTime
	CalendarDates []*CalendarDate
	ShapePoints   []*ShapePoint

	logger *zap.Logger
}

// NewDataset creates an empty dataset.
func NewDataset(logger *zap.Logger) *Dataset {
	return &Dataset{logger: logger}
}

// LoadFromDir loads every reference table from the given GTFS directory.
// A missing or malformed required file fails the whole load; there is no
// partial loading. shapes.txt is optional since some feeds omit it.
func (ds *Dataset) LoadFromDir(dir string) error {
	var err error
	if ds.Stops, err = LoadStops(dir); err != nil {
		return err
	}
	if ds.Routes, err = LoadRoutes(dir); err != nil {
		return err
	}
	if ds.Trips, err = LoadTrips(dir); err != nil {
		return err
	}
	if ds.StopTimes, err = LoadStopTimes(dir); err != nil {
		return err
	}
	if ds.CalendarDates, err = LoadCalendarDates(dir); err != nil {
		return err
	}
	if ds.ShapePoints, err = LoadShapePoints(dir); err != nil {
		if !os.IsNotExist(err) {
			return err
		}
		ds.logger.Debug("shapes.txt not present, skipping", zap.String("dir", dir))
		ds.ShapePoints = nil
	}

	ds.logger.Info("loaded gtfs dataset",
		zap.String("dir", dir),
		zap.Int("stops", len(ds.Stops)),
		zap.Int("routes", len(ds.Routes)),
		zap.Int("trips", len(ds.Trips)),
		zap.Int("stop_times", len(ds.StopTimes)),
		zap.Int("calendar_dates", len(ds.CalendarDates)),
		zap.Int("shape_points", len(ds.ShapePoints)),
	)
	return nil
}

// LoadStops reads stops.txt and returns the full table.
func LoadStops(dir string) ([]*Stop, error) {
	var stops []*Stop
	if err := unmarshalFile(filepath.Join(dir, "stops.txt"), &stops); err != nil {
		return nil, err
	}
	return stops, nil
}

// LoadRoutes reads routes.txt and returns the full table.
func LoadRoutes(dir string) ([]*Route, error) {
	var routes []*Route
	if err := unmarshalFile(filepath.Join(dir, "routes.txt"), &routes); err != nil {
		return nil, err
	}
	return routes, nil
}

// LoadTrips reads trips.txt and returns the full table.
func LoadTrips(dir string) ([]*Trip, error) {
	var trips []*Trip
	if err := unmarshalFile(filepath.Join(dir, "trips.txt"), &trips); err != nil {
		return nil, err
	}
	return trips, nil
}

// LoadStopTimes reads stop_times.txt and returns the full table.
func LoadStopTimes(dir string) ([]*StopTime, error) {
	var stopTimes []*StopTime
	if err := unmarshalFile(filepath.Join(dir, "stop_times.txt"), &stopTimes); err != nil {
		return nil, err
	}
	return stopTimes, nil
}

// LoadCalendarDates reads calendar_dates.txt and returns the full table.
func LoadCalendarDates(dir string) ([]*CalendarDate, error) {
	var dates []*CalendarDate
	if err := unmarshalFile(filepath.Join(dir, "calendar_dates.txt"), &dates); err != nil {
		return nil, err
	}
	return dates, nil
}

// LoadShapePoints reads shapes.txt and returns the full table, ordered as
// stored in the file.
func LoadShapePoints(dir string) ([]*ShapePoint, error) {
	var pts []*ShapePoint
	if err := unmarshalFile(filepath.Join(dir, "shapes.txt"), &pts); err != nil {
		return nil, err
	}
	return pts, nil
}

func unmarshalFile(path string, out any) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := gocsv.Unmarshal(f, out); err != nil {
		return fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return nil
}
