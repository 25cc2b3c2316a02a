package journal

import (
	"path/filepath"
	"testing"
	"time"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "state", "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndRecent(t *testing.T) {
	s := openStore(t)

	started := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)
	run := Run{
		StartedAt:  started,
		FinishedAt: started.Add(12 * time.Second),
		Service:    "Thunderbolt Bridge",
		Mode:       "manual",
		OK:         true,
		Summary:    "configured 2/2 nodes",
		Nodes: []NodeResult{
			{Node: "msm1", Address: "169.254.10.1", Outcome: "configured", Probed: true, Reachable: true},
			{Node: "msm2", Address: "169.254.10.2", Outcome: "failed", Stage: "verify", Detail: "fabric IP did not apply", Probed: false},
		},
	}

	id, err := s.Record(run)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if id == 0 {
		t.Error("Record returned id 0")
	}

	runs, err := s.Recent(10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("len(runs) = %d, want 1", len(runs))
	}

	got := runs[0]
	if got.ID != id || !got.OK || got.Service != "Thunderbolt Bridge" || got.Mode != "manual" {
		t.Errorf("run = %+v", got)
	}
	if !got.StartedAt.Equal(started) {
		t.Errorf("StartedAt = %v, want %v", got.StartedAt, started)
	}
	if len(got.Nodes) != 2 {
		t.Fatalf("len(Nodes) = %d, want 2", len(got.Nodes))
	}
	if n := got.Nodes[0]; n.Node != "msm1" || !n.Probed || !n.Reachable {
		t.Errorf("node[0] = %+v", n)
	}
	if n := got.Nodes[1]; n.Outcome != "failed" || n.Stage != "verify" || n.Probed {
		t.Errorf("node[1] = %+v", n)
	}
}

func TestRecentOrderAndLimit(t *testing.T) {
	s := openStore(t)

	base := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		_, err := s.Record(Run{
			StartedAt:  base.Add(time.Duration(i) * time.Minute),
			FinishedAt: base.Add(time.Duration(i)*time.Minute + 5*time.Second),
			Service:    "Thunderbolt Bridge",
			Mode:       "manual",
			OK:         i != 1,
			Summary:    "run",
		})
		if err != nil {
			t.Fatalf("Record #%d: %v", i, err)
		}
	}

	runs, err := s.Recent(2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("len(runs) = %d, want 2", len(runs))
	}
	if runs[0].ID <= runs[1].ID {
		t.Errorf("runs not newest-first: %d then %d", runs[0].ID, runs[1].ID)
	}
	if runs[1].OK {
		t.Errorf("second-newest run OK = true, want the failed one")
	}
}

func TestOpenCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "history.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if _, err := s.Record(Run{StartedAt: time.Now(), FinishedAt: time.Now(), Summary: "x"}); err != nil {
		t.Fatalf("Record into nested path: %v", err)
	}
}
