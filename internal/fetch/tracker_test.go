package fetch

import (
	"testing"
)

func TestTrackerEmitsAndRollsBack(t *testing.T) {
	var events []Progress
	tr := newTracker(100, func(p Progress) { events = append(events, p) })
	tr.lastEmit = tr.lastEmit.Add(-emitInterval) // defeat throttling

	tr.add(40)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].DownloadedBytes != 40 || events[0].TotalBytes != 100 {
		t.Errorf("event = %+v, want 40/100", events[0])
	}
	if events[0].Status != ProgressDownloading {
		t.Errorf("status = %s, want downloading", events[0].Status)
	}

	tr.rollback(40)
	tr.lastEmit = tr.lastEmit.Add(-emitInterval)
	tr.add(10)
	if last := events[len(events)-1]; last.DownloadedBytes != 10 {
		t.Errorf("after rollback DownloadedBytes = %d, want 10", last.DownloadedBytes)
	}
}

func TestTrackerRollbackNeverNegative(t *testing.T) {
	tr := newTracker(0, func(Progress) {})
	tr.rollback(50)
	if tr.written != 0 {
		t.Errorf("written = %d, want 0", tr.written)
	}
}

func TestTrackerProcessingEvent(t *testing.T) {
	var events []Progress
	tr := newTracker(100, func(p Progress) { events = append(events, p) })

	tr.processing()
	if len(events) != 1 || events[0].Status != ProgressProcessing {
		t.Fatalf("expected one processing event, got %+v", events)
	}
}

func TestTrackerNilCallback(t *testing.T) {
	tr := newTracker(100, nil)
	tr.add(10) // must not panic
	tr.processing()
}
