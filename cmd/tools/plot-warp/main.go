// Command plot-warp renders stored detection events to PNG: the warped
// camera lines and fused point of one throw, or a camera's ring
// reprojection for calibration sanity checks.
package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/dartsense/dartsense/internal/board"
	"github.com/dartsense/dartsense/internal/boardplot"
	"github.com/dartsense/dartsense/internal/config"
	"github.com/dartsense/dartsense/internal/throwdb"
	"github.com/dartsense/dartsense/internal/tps"
	"github.com/dartsense/dartsense/internal/triangulate"
)

func main() {
	var (
		dbPath     = flag.String("db", "throws.db", "path to the throw database")
		calibPath  = flag.String("calib", "", "path to the camera calibration JSON (required)")
		configPath = flag.String("config", "", "path to a tuning config JSON (defaults applied when empty)")
		throwID    = flag.String("throw", "", "throw ID to render")
		ringCam    = flag.String("ring-cam", "", "render this camera's ring reprojection instead")
		outPath    = flag.String("out", "throw.png", "output PNG path")
	)
	flag.Parse()

	if *calibPath == "" {
		log.Fatal("-calib is required")
	}
	cals, err := board.LoadCalibrations(*calibPath)
	if err != nil {
		log.Fatalf("load calibrations: %v", err)
	}

	if *ringCam != "" {
		if err := plotRings(cals, *ringCam, *outPath); err != nil {
			log.Fatalf("plot rings: %v", err)
		}
		fmt.Printf("wrote %s\n", *outPath)
		return
	}

	if *throwID == "" {
		log.Fatal("one of -throw or -ring-cam is required")
	}
	if err := plotThrow(*dbPath, *configPath, cals, *throwID, *outPath); err != nil {
		log.Fatalf("plot throw: %v", err)
	}
	fmt.Printf("wrote %s\n", *outPath)
}

func plotRings(cals map[string]*board.CameraCalibration, camID, outPath string) error {
	cal, ok := cals[camID]
	if !ok {
		return fmt.Errorf("no calibration for camera %s", camID)
	}
	inv := tps.Build(cal).Inverse()
	return boardplot.DrawRingReprojection(outPath, cal, inv)
}

func plotThrow(dbPath, configPath string, cals map[string]*board.CameraCalibration, throwID, outPath string) error {
	db, err := throwdb.NewThrowDB(dbPath)
	if err != nil {
		return fmt.Errorf("open throw db: %w", err)
	}
	defer db.Close()
	store := throwdb.NewThrowStore(db)

	dets, err := store.Detections(throwID)
	if err != nil {
		return err
	}
	if len(dets) == 0 {
		return fmt.Errorf("throw %s has no detections", throwID)
	}

	cfg := triangulate.DefaultConfig()
	if configPath != "" {
		tuning, err := config.LoadTuningConfig(configPath)
		if err != nil {
			return fmt.Errorf("load tuning config: %w", err)
		}
		cfg = tuning.EngineConfig()
	}

	var obs []*triangulate.Observation
	for i := range dets {
		d := &dets[i]
		cal, ok := cals[d.CameraID]
		if !ok {
			continue
		}
		det := &triangulate.DetectionInput{
			HasTip: true, TipX: d.TipX, TipY: d.TipY,
			HasAxis: true, DirX: d.DirX, DirY: d.DirY,
			BarrelPixelCount:  d.BarrelPixelCount,
			BarrelAspectRatio: d.BarrelAspectRatio,
			InlierRatio:       d.InlierRatio,
			MaskQuality:       d.MaskQuality,
		}
		if o := triangulate.ProjectObservation(d.CameraID, det, tps.Build(cal), cal, cfg); o != nil {
			obs = append(obs, o)
		}
	}
	if len(obs) == 0 {
		return fmt.Errorf("throw %s: no projectable observations", throwID)
	}

	res, err := triangulate.Triangulate(obs, cfg)
	if err != nil {
		// Still draw the lines so the failure can be inspected.
		return boardplot.DrawThrow(outPath, obs, nil)
	}
	return boardplot.DrawThrow(outPath, obs, res)
}
