// departures is a debugging CLI for the next-departure resolver: it loads
// the static GTFS directory and prints what leaves a stop next.
package main

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"go.uber.org/zap"

	"pulsetransit/internal/config"
	"pulsetransit/internal/gtfs"
	"pulsetransit/internal/schedule"
)

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <stop_id> [limit]\n", os.Args[0])
		os.Exit(1)
	}
	stopID, err := strconv.Atoi(os.Args[1])
	if err != nil {
		logger.Fatal("bad stop_id argument", zap.String("arg", os.Args[1]), zap.Error(err))
	}
	limit := 10
	if len(os.Args) > 2 {
		limit, err = strconv.Atoi(os.Args[2])
		if err != nil || limit <= 0 {
			logger.Fatal("bad limit argument", zap.String("arg", os.Args[2]))
		}
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config error", zap.Error(err))
	}

	ds := gtfs.NewDataset(logger)
	if err := ds.LoadFromDir(cfg.GTFSDir); err != nil {
		logger.Fatal("error loading dataset", zap.Error(err))
	}

	stopName := ""
	for _, s := range ds.Stops {
		if s.StopID == stopID {
			stopName = s.Name
			break
		}
	}

	now := time.Now().In(cfg.Location)
	resolver := schedule.NewResolver(ds)
	departures := resolver.NextDepartures(stopID, now, limit)

	fmt.Printf("Stop %d %s — next departures after %s\n", stopID, stopName, now.Format("15:04"))
	if len(departures) == 0 {
		fmt.Println("no upcoming departures")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "LINE\tHEADSIGN\tDEPARTS\tIN")
	for _, d := range departures {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d min\n", d.RouteShortName, d.TripHeadsign, d.DepartureTime, d.MinutesUntil)
	}
	w.Flush()
}
