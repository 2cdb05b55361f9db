package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/akhanalpacksize/ADO-Time-Sheet/internal/alert"
	"github.com/akhanalpacksize/ADO-Time-Sheet/internal/config"
	"github.com/akhanalpacksize/ADO-Time-Sheet/internal/domo"
	"github.com/akhanalpacksize/ADO-Time-Sheet/internal/export"
	"github.com/akhanalpacksize/ADO-Time-Sheet/internal/merge"
)

type fakeExporter struct {
	res *export.Result
	err error
}

func (f *fakeExporter) Run(context.Context, string) (*export.Result, error) { return f.res, f.err }

type fakeMerger struct {
	res    *merge.Result
	err    error
	called bool
}

func (f *fakeMerger) Run(context.Context, string, string) (*merge.Result, error) {
	f.called = true
	return f.res, f.err
}

type fakeUploader struct {
	err    error
	called bool
}

func (f *fakeUploader) Upload(context.Context, string, string, []string, string, string) error {
	f.called = true
	return f.err
}

type recordingSink struct {
	messages []string
}

func (s *recordingSink) Notify(message string, _ time.Time) {
	s.messages = append(s.messages, message)
}

func testConfig() *config.AppConfig {
	return &config.AppConfig{
		Domo:          domo.Config{DatasetID: "ds-1", DatasetName: "n", DatasetDescription: "d"},
		WorkItemsFile: "work_items.csv",
		MergedFile:    "merged.csv",
	}
}

func TestRun_Success(t *testing.T) {
	runner := NewRunner(
		&fakeExporter{res: &export.Result{Items: 5}},
		&fakeMerger{res: &merge.Result{Items: 5, Rows: 8}},
		&fakeUploader{},
		alert.Noop{},
		testConfig(),
	)

	if status := runner.Run(context.Background()); status != StatusSuccess {
		t.Errorf("Expected success, got %s", status)
	}
}

func TestRun_ExportFailureStopsPipeline(t *testing.T) {
	merger := &fakeMerger{res: &merge.Result{}}
	uploader := &fakeUploader{}
	sink := &recordingSink{}
	runner := NewRunner(
		&fakeExporter{err: errors.New("boom")},
		merger,
		uploader,
		sink,
		testConfig(),
	)

	if status := runner.Run(context.Background()); status != StatusFailed {
		t.Errorf("Expected failed, got %s", status)
	}
	if merger.called || uploader.called {
		t.Error("Later stages must not run after a failed export")
	}
	if len(sink.messages) != 1 {
		t.Errorf("Expected 1 alert, got %d", len(sink.messages))
	}
}

func TestRun_SkippedTeamsDegradeToPartial(t *testing.T) {
	runner := NewRunner(
		&fakeExporter{res: &export.Result{Items: 3, TeamsSkipped: []string{"Team_B"}}},
		&fakeMerger{res: &merge.Result{Items: 3, Rows: 3}},
		&fakeUploader{},
		alert.Noop{},
		testConfig(),
	)

	if status := runner.Run(context.Background()); status != StatusPartial {
		t.Errorf("Expected partial, got %s", status)
	}
}

func TestRun_UploadFailureAlertsAndDegrades(t *testing.T) {
	sink := &recordingSink{}
	runner := NewRunner(
		&fakeExporter{res: &export.Result{Items: 3}},
		&fakeMerger{res: &merge.Result{Items: 3, Rows: 3}},
		&fakeUploader{err: errors.New("dataset import failed")},
		sink,
		testConfig(),
	)

	if status := runner.Run(context.Background()); status != StatusPartial {
		t.Errorf("Expected partial, got %s", status)
	}
	if len(sink.messages) != 1 {
		t.Fatalf("Expected 1 alert, got %d", len(sink.messages))
	}
	if sink.messages[0] != "dataset import failed" {
		t.Errorf("Alert message = %q", sink.messages[0])
	}
}

func TestStatusString(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{StatusSuccess, "success"},
		{StatusPartial, "partial"},
		{StatusFailed, "failed"},
		{Status(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.status.String(); got != tt.want {
			t.Errorf("Status(%d).String() = %q, want %q", tt.status, got, tt.want)
		}
	}
}
