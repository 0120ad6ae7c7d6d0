package main

import "testing"

func TestParseDetections(t *testing.T) {
	data := []byte(`{
		"cam0": {"has_tip": true, "tip_x": 740, "tip_y": 500, "has_axis": true, "dir_x": 1, "dir_y": 0, "inlier_ratio": 0.9},
		"cam1": {"has_tip": true, "tip_x": 700, "tip_y": 480},
		"cam2": null
	}`)

	dets, err := parseDetections(data)
	if err != nil {
		t.Fatalf("parseDetections: %v", err)
	}
	if len(dets) != 1 {
		t.Fatalf("got %d detections, want 1 (axis-less and null entries dropped)", len(dets))
	}
	if d := dets["cam0"]; d == nil || d.TipX != 740 {
		t.Errorf("cam0 detection = %+v", dets["cam0"])
	}
}

func TestParseDetectionsRejectsEmpty(t *testing.T) {
	if _, err := parseDetections([]byte(`{}`)); err == nil {
		t.Error("expected an error for an empty document")
	}
	if _, err := parseDetections([]byte(`not json`)); err == nil {
		t.Error("expected an error for malformed JSON")
	}
}
