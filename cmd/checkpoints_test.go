package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cwbudde/qaoasim/internal/store"
)

func testInfos(now time.Time) []store.CheckpointInfo {
	return []store.CheckpointInfo{
		{JobID: "job1", Timestamp: now.AddDate(0, 0, -10)}, // 10 days old
		{JobID: "job2", Timestamp: now.AddDate(0, 0, -5)},  // 5 days old
		{JobID: "job3", Timestamp: now.AddDate(0, 0, -1)},  // 1 day old
		{JobID: "job4", Timestamp: now.AddDate(0, 0, -30)}, // 30 days old
	}
}

func jobIDs(infos []store.CheckpointInfo) string {
	ids := make([]string, len(infos))
	for i, info := range infos {
		ids[i] = info.JobID
	}
	return strings.Join(ids, ",")
}

func TestSelectCheckpointsForDeletion(t *testing.T) {
	now := time.Now()
	infos := testInfos(now)
	infos = append(infos, store.CheckpointInfo{JobID: "job5", Timestamp: now.AddDate(0, 0, -2)})

	tests := []struct {
		name          string
		keepLast      int
		olderThanDays int
		want          string // oldest first
	}{
		{"by age", 0, 7, "job4,job1"},
		{"by count", 2, 0, "job4,job1,job2"},
		{"combined overlapping", 3, 7, "job4,job1"},
		{"combined count wins", 1, 7, "job4,job1,job2,job5"},
		{"keep more than exist", 10, 0, ""},
		{"nothing old enough", 0, 60, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := jobIDs(selectCheckpointsForDeletion(infos, tt.keepLast, tt.olderThanDays, now))
			if got != tt.want {
				t.Errorf("selected %q, want %q", got, tt.want)
			}
		})
	}

	// The input order is left alone.
	if infos[0].JobID != "job1" {
		t.Error("selectCheckpointsForDeletion reordered its input")
	}
}

func TestGetDirSize(t *testing.T) {
	tmpDir := t.TempDir()

	content := []byte("Hello, World!")
	if err := os.WriteFile(filepath.Join(tmpDir, "test.txt"), content, 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(tmpDir, "sub"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(tmpDir, "sub", "more.txt"), content, 0644); err != nil {
		t.Fatal(err)
	}

	size, err := getDirSize(tmpDir)
	if err != nil {
		t.Fatalf("getDirSize failed: %v", err)
	}
	if size != int64(2*len(content)) {
		t.Errorf("Expected size %d, got %d", 2*len(content), size)
	}

	if _, err := getDirSize(filepath.Join(tmpDir, "missing")); err == nil {
		t.Error("Expected an error for a missing directory")
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		bytes    int64
		expected string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1023, "1023 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{1048576, "1.0 MB"},
		{1073741824, "1.0 GB"},
	}

	for _, tt := range tests {
		result := formatBytes(tt.bytes)
		if result != tt.expected {
			t.Errorf("formatBytes(%d) = %s, expected %s", tt.bytes, result, tt.expected)
		}
	}
}

func TestShortID(t *testing.T) {
	if got := shortID("abc"); got != "abc" {
		t.Errorf("shortID(abc) = %s", got)
	}
	if got := shortID("0123456789abcdef"); got != "0123456789ab..." {
		t.Errorf("shortID = %s", got)
	}
}

func TestConfirm(t *testing.T) {
	for in, want := range map[string]bool{"y\n": true, "Y": true, "n\n": false, "": false, "yes\n": false} {
		if got := confirm(strings.NewReader(in), ""); got != want {
			t.Errorf("confirm(%q) = %v, want %v", in, got, want)
		}
	}
}

func withDataDir(t *testing.T, dir string) {
	t.Helper()
	original := dataDir
	dataDir = dir
	t.Cleanup(func() { dataDir = original })
}

func saveTestCheckpoint(t *testing.T, s *store.FSStore, jobID string, age time.Duration) {
	t.Helper()
	checkpoint := store.NewCheckpoint(jobID, []float64{0.4, -0.4}, -2.9, -2, 120, store.JobConfig{
		InstancePath: "/tmp/ring4.txt",
		NumQubits:    4,
		MaxDepth:     1,
		Strategy:     "fixed",
		Optimizer:    "mayfly",
		Iters:        100,
		PopSize:      20,
	})
	checkpoint.MaxCut = 4
	checkpoint.Timestamp = time.Now().Add(-age)
	if err := s.SaveCheckpoint(jobID, checkpoint); err != nil {
		t.Fatalf("Failed to save checkpoint: %v", err)
	}
}

func TestPrintCheckpoints(t *testing.T) {
	tmpDir := t.TempDir()
	checkpointStore, err := store.NewFSStore(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	var buf bytes.Buffer
	if err := printCheckpoints(&buf, checkpointStore, nil); err != nil {
		t.Fatalf("printCheckpoints failed: %v", err)
	}
	if !strings.Contains(buf.String(), "No checkpoints found.") {
		t.Errorf("unexpected output for an empty store: %q", buf.String())
	}

	saveTestCheckpoint(t, checkpointStore, "test-job-id", 0)
	infos, err := checkpointStore.ListCheckpoints()
	if err != nil {
		t.Fatalf("ListCheckpoints failed: %v", err)
	}
	buf.Reset()
	if err := printCheckpoints(&buf, checkpointStore, infos); err != nil {
		t.Fatalf("printCheckpoints failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"test-job-id", "fixed", "-2.900000", "0.7250", "Total checkpoints: 1"} {
		if !strings.Contains(out, want) {
			t.Errorf("output is missing %q:\n%s", want, out)
		}
	}
}

func TestCheckpointsListCommand(t *testing.T) {
	withDataDir(t, t.TempDir())
	if err := runListCheckpoints(nil, nil); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
}

func TestCheckpointsCleanCommand_NoFlags(t *testing.T) {
	withDataDir(t, t.TempDir())
	keepLast, olderThanDays = 0, 0

	if err := runCleanCheckpoints(nil, nil); err == nil {
		t.Error("Expected error when no flags specified")
	}
}

func TestCheckpointsCleanCommand_WithForce(t *testing.T) {
	tmpDir := t.TempDir()
	checkpointStore, err := store.NewFSStore(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	saveTestCheckpoint(t, checkpointStore, "old-job", 30*24*time.Hour)
	saveTestCheckpoint(t, checkpointStore, "new-job", time.Hour)

	withDataDir(t, tmpDir)
	keepLast, olderThanDays, forceClean = 0, 7, true
	t.Cleanup(func() { keepLast, olderThanDays, forceClean = 0, 0, false })

	if err := runCleanCheckpoints(nil, nil); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}

	if _, err := checkpointStore.LoadCheckpoint("old-job"); err == nil {
		t.Error("Expected old checkpoint to be deleted")
	}
	if _, err := checkpointStore.LoadCheckpoint("new-job"); err != nil {
		t.Errorf("Expected new checkpoint to survive, got %v", err)
	}
}
