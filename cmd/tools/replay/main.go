// Command replay re-runs the stored throws of a session through the
// triangulation engine with a chosen tuning configuration and prints the
// aggregate accuracy statistics, optionally rendering an HTML report.
package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/dartsense/dartsense/internal/board"
	"github.com/dartsense/dartsense/internal/config"
	"github.com/dartsense/dartsense/internal/replay"
	"github.com/dartsense/dartsense/internal/throwdb"
	"github.com/dartsense/dartsense/internal/tps"
	"github.com/dartsense/dartsense/internal/triangulate"
)

func main() {
	var (
		dbPath     = flag.String("db", "throws.db", "path to the throw database")
		calibPath  = flag.String("calib", "", "path to the camera calibration JSON (required)")
		configPath = flag.String("config", "", "path to a tuning config JSON (defaults applied when empty)")
		sessionID  = flag.String("session", "", "session to replay (latest when empty)")
		reportPath = flag.String("report", "", "write an HTML report to this path")
		list       = flag.Bool("list", false, "list sessions and exit")
	)
	flag.Parse()

	db, err := throwdb.NewThrowDB(*dbPath)
	if err != nil {
		log.Fatalf("open throw db: %v", err)
	}
	defer db.Close()
	store := throwdb.NewThrowStore(db)

	if *list {
		listSessions(store)
		return
	}

	if *calibPath == "" {
		log.Fatal("-calib is required")
	}
	cameras, err := loadCameras(*calibPath)
	if err != nil {
		log.Fatalf("load cameras: %v", err)
	}

	cfg := engineConfig(*configPath)

	session := *sessionID
	if session == "" {
		session, err = latestSession(store)
		if err != nil {
			log.Fatalf("pick session: %v", err)
		}
	}

	runner := replay.NewRunner(store, cameras, cfg)
	comps, err := runner.ReplaySession(session)
	if err != nil {
		log.Fatalf("replay session %s: %v", session, err)
	}

	stats := replay.Aggregate(comps)
	fmt.Printf("session %s\n%s", session, stats.Summary())

	if *reportPath != "" {
		if err := replay.SaveReport(*reportPath, comps, stats); err != nil {
			log.Fatalf("write report: %v", err)
		}
		fmt.Printf("report written to %s\n", *reportPath)
	}
}

func listSessions(store *throwdb.ThrowStore) {
	sessions, err := store.Sessions()
	if err != nil {
		log.Fatalf("list sessions: %v", err)
	}
	for _, s := range sessions {
		fmt.Printf("%s  %s\n", s.SessionID, s.Name)
	}
}

func latestSession(store *throwdb.ThrowStore) (string, error) {
	sessions, err := store.Sessions()
	if err != nil {
		return "", err
	}
	if len(sessions) == 0 {
		return "", fmt.Errorf("no sessions in database")
	}
	return sessions[0].SessionID, nil
}

func loadCameras(path string) ([]triangulate.Camera, error) {
	cals, err := board.LoadCalibrations(path)
	if err != nil {
		return nil, err
	}
	cameras := make([]triangulate.Camera, 0, len(cals))
	for id, cal := range cals {
		warp := tps.Build(cal)
		if !warp.Valid() {
			return nil, fmt.Errorf("camera %s: calibration does not produce a valid warp", id)
		}
		cameras = append(cameras, triangulate.Camera{ID: id, Warp: warp, Calibration: cal})
	}
	return cameras, nil
}

func engineConfig(path string) triangulate.Config {
	if path == "" {
		return triangulate.DefaultConfig()
	}
	tuning, err := config.LoadTuningConfig(path)
	if err != nil {
		log.Fatalf("load tuning config: %v", err)
	}
	return tuning.EngineConfig()
}
