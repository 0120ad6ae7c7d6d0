// Command dartsense scores a single detection event: it loads the camera
// calibrations, projects each camera's detected tip and axis into board
// space, triangulates, and prints the fused result as JSON. The event can
// optionally be persisted to a throw database and rendered to PNG.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/dartsense/dartsense/internal/board"
	"github.com/dartsense/dartsense/internal/boardplot"
	"github.com/dartsense/dartsense/internal/config"
	"github.com/dartsense/dartsense/internal/throwdb"
	"github.com/dartsense/dartsense/internal/tps"
	"github.com/dartsense/dartsense/internal/triangulate"
	"github.com/dartsense/dartsense/internal/version"
)

func main() {
	var (
		calibPath   = flag.String("calib", "", "path to the camera calibration JSON (required)")
		configPath  = flag.String("config", "", "path to a tuning config JSON (defaults applied when empty)")
		detPath     = flag.String("detections", "", "path to a detections JSON file (camera id -> detection)")
		dbPath      = flag.String("db", "", "persist the throw to this database")
		sessionID   = flag.String("session", "", "session to attach the persisted throw to (created when empty)")
		plotPath    = flag.String("plot", "", "render the event to this PNG path")
		showVersion = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("dartsense %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}
	if *calibPath == "" || *detPath == "" {
		log.Fatal("-calib and -detections are required")
	}

	cameras, err := loadCameras(*calibPath)
	if err != nil {
		log.Fatalf("load cameras: %v", err)
	}
	dets, err := loadDetections(*detPath)
	if err != nil {
		log.Fatalf("load detections: %v", err)
	}

	cfg := triangulate.DefaultConfig()
	if *configPath != "" {
		tuning, err := config.LoadTuningConfig(*configPath)
		if err != nil {
			log.Fatalf("load tuning config: %v", err)
		}
		cfg = tuning.EngineConfig()
	}

	res, err := triangulate.FromDetections(cameras, dets, cfg)
	if err != nil {
		log.Fatalf("triangulate: %v", err)
	}

	out, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		log.Fatalf("encode result: %v", err)
	}
	fmt.Println(string(out))

	if *dbPath != "" {
		if err := persistThrow(*dbPath, *sessionID, res, dets); err != nil {
			log.Fatalf("persist throw: %v", err)
		}
	}
	if *plotPath != "" {
		if err := plotThrow(*plotPath, cameras, dets, cfg, res); err != nil {
			log.Fatalf("plot throw: %v", err)
		}
	}
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

func loadDetections(path string) (map[string]*triangulate.DetectionInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read detections file: %w", err)
	}
	return parseDetections(data)
}

// parseDetections decodes a camera-id -> detection JSON document and drops
// entries without a usable tip and axis. Errors only when nothing usable
// remains.
func parseDetections(data []byte) (map[string]*triangulate.DetectionInput, error) {
	var raw map[string]*triangulate.DetectionInput
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse detections JSON: %w", err)
	}

	out := make(map[string]*triangulate.DetectionInput, len(raw))
	for id, det := range raw {
		if !det.Usable() {
			continue
		}
		out[id] = det
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no usable detections in file")
	}
	return out, nil
}

func persistThrow(dbPath, sessionID string, res *triangulate.Result, dets map[string]*triangulate.DetectionInput) error {
	db, err := throwdb.NewThrowDB(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()
	store := throwdb.NewThrowStore(db)

	if sessionID == "" {
		sess := &throwdb.Session{Name: "cli"}
		if err := store.CreateSession(sess); err != nil {
			return fmt.Errorf("create session: %w", err)
		}
		sessionID = sess.SessionID
	}

	var diag json.RawMessage
	if res.Diagnostics != nil {
		diag, _ = json.Marshal(res.Diagnostics)
	}
	th := &throwdb.Throw{
		SessionID:       sessionID,
		Segment:         res.Segment,
		Multiplier:      res.Multiplier,
		Score:           res.Score,
		Method:          res.Method,
		Confidence:      res.Confidence,
		BoardX:          res.X,
		BoardY:          res.Y,
		TotalError:      res.TotalError,
		DiagnosticsJSON: diag,
	}

	rows := make([]throwdb.CameraDetection, 0, len(dets))
	for id, d := range dets {
		row := throwdb.CameraDetection{
			CameraID:          id,
			TipX:              d.TipX,
			TipY:              d.TipY,
			DirX:              d.DirX,
			DirY:              d.DirY,
			BarrelPixelCount:  d.BarrelPixelCount,
			BarrelAspectRatio: d.BarrelAspectRatio,
			InlierRatio:       d.InlierRatio,
			MaskQuality:       d.MaskQuality,
		}
		if vote, ok := res.PerCamera[id]; ok {
			row.VoteSegment = vote.Segment
			row.VoteMultiplier = vote.Multiplier
		}
		rows = append(rows, row)
	}

	if err := store.InsertThrow(th, rows); err != nil {
		return err
	}
	fmt.Printf("persisted throw %s in session %s\n", th.ThrowID, sessionID)
	return nil
}

func plotThrow(path string, cameras []triangulate.Camera, dets map[string]*triangulate.DetectionInput, cfg triangulate.Config, res *triangulate.Result) error {
	var obs []*triangulate.Observation
	for _, cam := range cameras {
		if o := triangulate.ProjectObservation(cam.ID, dets[cam.ID], cam.Warp, cam.Calibration, cfg); o != nil {
			obs = append(obs, o)
		}
	}
	return boardplot.DrawThrow(path, obs, res)
}
