package results

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestInitRunAllPending(t *testing.T) {
	agg := New()
	agg.InitRun("010101", "1", []string{"h1", "h2"})

	got, err := agg.View("010101", "1")
	if err != nil {
		t.Fatalf("View() error = %v", err)
	}

	want := RunResult{"h1": Pending(), "h2": Pending()}
	if diff := cmp.Diff(got, want); diff != "" {
		t.Errorf("Mismatch (-got +want):\n%s", diff)
	}
}

func TestInitRunNoHost(t *testing.T) {
	agg := New()
	agg.InitRun("a", "1", nil)

	got, err := agg.View("a", "1")
	if err != nil {
		t.Fatalf("View() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("View() = %v, want empty", got)
	}
}

func TestApplyResultOnlyTouchesTargetHost(t *testing.T) {
	agg := New()
	agg.InitRun("010101", "1", []string{"h1", "h2"})

	output := map[string]string{"insights": "success", "compliance": "success", "drift": "success"}
	if err := agg.ApplyResult("010101", "1", "h1", output); err != nil {
		t.Fatalf("ApplyResult() error = %v", err)
	}

	got, err := agg.View("010101", "1")
	if err != nil {
		t.Fatalf("View() error = %v", err)
	}

	if got["h1"].Status != StatusReported {
		t.Errorf("h1 status = %s, want %s", got["h1"].Status, StatusReported)
	}
	var decoded map[string]string
	if err := json.Unmarshal(got["h1"].Value, &decoded); err != nil {
		t.Fatalf("invalid stored value: %v", err)
	}
	if diff := cmp.Diff(decoded, output); diff != "" {
		t.Errorf("h1 value mismatch (-got +want):\n%s", diff)
	}
	if diff := cmp.Diff(got["h2"], Pending()); diff != "" {
		t.Errorf("h2 mismatch (-got +want):\n%s", diff)
	}
}

func TestApplyResultRawMessage(t *testing.T) {
	agg := New()
	agg.InitRun("a", "1", []string{"h1"})

	raw := json.RawMessage(`{"no response received":"N/A"}`)
	if err := agg.ApplyResult("a", "1", "h1", raw); err != nil {
		t.Fatalf("ApplyResult() error = %v", err)
	}

	got, _ := agg.View("a", "1")
	if string(got["h1"].Value) != string(raw) {
		t.Errorf("value = %s, want %s", got["h1"].Value, raw)
	}
}

func TestApplyResultErrors(t *testing.T) {
	tests := []struct {
		name    string
		account string
		runID   string
		hostID  string
		want    error
	}{
		{name: "unknown account", account: "b", runID: "1", hostID: "h1", want: ErrUnknownRun},
		{name: "unknown run", account: "a", runID: "2", hostID: "h1", want: ErrUnknownRun},
		{name: "host not targeted", account: "a", runID: "1", hostID: "h9", want: ErrUnknownHost},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg := New()
			agg.InitRun("a", "1", []string{"h1"})

			err := agg.ApplyResult(tt.account, tt.runID, tt.hostID, "value")
			if !errors.Is(err, tt.want) {
				t.Errorf("ApplyResult() error = %v, want %v", err, tt.want)
			}

			got, _ := agg.View("a", "1")
			if diff := cmp.Diff(got, RunResult{"h1": Pending()}); diff != "" {
				t.Errorf("stored result changed (-got +want):\n%s", diff)
			}
		})
	}
}

func TestApplyResultFirstReportWins(t *testing.T) {
	agg := New()
	agg.InitRun("a", "1", []string{"h1"})

	if err := agg.ApplyResult("a", "1", "h1", "first"); err != nil {
		t.Fatalf("ApplyResult() error = %v", err)
	}
	err := agg.ApplyResult("a", "1", "h1", "second")
	if !errors.Is(err, ErrAlreadyReported) {
		t.Errorf("second ApplyResult() error = %v, want %v", err, ErrAlreadyReported)
	}

	got, _ := agg.View("a", "1")
	if string(got["h1"].Value) != `"first"` {
		t.Errorf("value = %s, want \"first\"", got["h1"].Value)
	}
}

func TestMarkDispatchFailed(t *testing.T) {
	agg := New()
	agg.InitRun("a", "1", []string{"h1", "h2"})

	if err := agg.MarkDispatchFailed("a", "1", "h1", "timeout"); err != nil {
		t.Fatalf("MarkDispatchFailed() error = %v", err)
	}

	got, _ := agg.View("a", "1")
	want := RunResult{"h1": DispatchFailed("timeout"), "h2": Pending()}
	if diff := cmp.Diff(got, want); diff != "" {
		t.Errorf("Mismatch (-got +want):\n%s", diff)
	}

	if err := agg.MarkDispatchFailed("a", "1", "h1", "again"); err == nil {
		t.Error("marking a non pending host should fail")
	}
	if err := agg.MarkDispatchFailed("a", "9", "h1", "x"); !errors.Is(err, ErrUnknownRun) {
		t.Errorf("MarkDispatchFailed() error = %v, want %v", err, ErrUnknownRun)
	}

	// a late completion still lands
	if err := agg.ApplyResult("a", "1", "h1", "late"); err != nil {
		t.Errorf("ApplyResult() after dispatch failure error = %v", err)
	}
	got, _ = agg.View("a", "1")
	if got["h1"].Status != StatusReported {
		t.Errorf("h1 status = %s, want %s", got["h1"].Status, StatusReported)
	}
}

func TestViewReturnsCopy(t *testing.T) {
	agg := New()
	agg.InitRun("a", "1", []string{"h1"})

	got, _ := agg.View("a", "1")
	got["h1"] = DispatchFailed("tampered")
	delete(got, "h1")

	again, _ := agg.View("a", "1")
	if diff := cmp.Diff(again, RunResult{"h1": Pending()}); diff != "" {
		t.Errorf("Mismatch (-got +want):\n%s", diff)
	}
}

func TestViewUnknown(t *testing.T) {
	agg := New()
	if _, err := agg.View("a", "1"); !errors.Is(err, ErrUnknownRun) {
		t.Errorf("View() error = %v, want %v", err, ErrUnknownRun)
	}
}

func TestSweep(t *testing.T) {
	agg := New()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	agg.now = func() time.Time { return start }
	agg.InitRun("a", "1", []string{"h1"})
	agg.now = func() time.Time { return start.Add(2 * time.Hour) }
	agg.InitRun("a", "2", []string{"h1"})

	removed := agg.Sweep(start.Add(time.Hour))
	if removed != 1 {
		t.Errorf("Sweep() removed %d, want 1", removed)
	}

	if _, err := agg.View("a", "1"); !errors.Is(err, ErrUnknownRun) {
		t.Errorf("swept run still visible: %v", err)
	}
	if _, err := agg.View("a", "2"); err != nil {
		t.Errorf("recent run swept: %v", err)
	}
	if err := agg.ApplyResult("a", "1", "h1", "late"); !errors.Is(err, ErrUnknownRun) {
		t.Errorf("ApplyResult() on swept run error = %v, want %v", err, ErrUnknownRun)
	}
}

func TestConcurrentApply(t *testing.T) {
	agg := New()
	hosts := make([]string, 50)
	for i := range hosts {
		hosts[i] = fmt.Sprintf("h%d", i)
	}
	agg.InitRun("a", "1", hosts)

	wg := sync.WaitGroup{}
	for _, h := range hosts {
		wg.Go(func() {
			if err := agg.ApplyResult("a", "1", h, map[string]string{"insights": "success"}); err != nil {
				t.Errorf("ApplyResult(%s) error = %v", h, err)
			}
			_, _ = agg.View("a", "1")
		})
	}
	wg.Wait()

	got, _ := agg.View("a", "1")
	for _, h := range hosts {
		if got[h].Status != StatusReported {
			t.Errorf("%s status = %s, want %s", h, got[h].Status, StatusReported)
		}
	}
}
