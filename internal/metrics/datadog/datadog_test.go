package datadog

import (
	"reflect"
	"testing"

	"bggetl/internal/metrics"
)

type call struct {
	kind  string
	name  string
	value float64
	tags  []string
}

type fakeClient struct {
	calls  []call
	closed bool
}

func (f *fakeClient) Count(name string, value int64, tags []string, _ float64) error {
	f.calls = append(f.calls, call{"count", name, float64(value), tags})
	return nil
}

func (f *fakeClient) Histogram(name string, value float64, tags []string, _ float64) error {
	f.calls = append(f.calls, call{"histogram", name, value, tags})
	return nil
}

func (f *fakeClient) Flush() error { return nil }
func (f *fakeClient) Close() error { f.closed = true; return nil }

func TestBackendForwardsWithTags(t *testing.T) {
	t.Parallel()

	fc := &fakeClient{}
	b := &Backend{client: fc}

	b.IncCounter(metrics.RecordsTotal, 7.9, metrics.Labels{"kind": "games", "job": "bgg"})
	b.ObserveHistogram(metrics.StepDuration, 0.25, metrics.Labels{"step": "load"})
	if err := b.Flush(); err != nil {
		t.Fatal(err)
	}

	want := []call{
		{"count", metrics.RecordsTotal, 7, []string{"job:bgg", "kind:games"}},
		{"histogram", metrics.StepDuration, 0.25, []string{"step:load"}},
	}
	if !reflect.DeepEqual(fc.calls, want) {
		t.Fatalf("calls = %+v, want %+v", fc.calls, want)
	}
	if !fc.closed {
		t.Fatal("Flush should close the client")
	}
}

func TestNewBackend(t *testing.T) {
	t.Parallel()

	if _, err := NewBackend(Config{}); err == nil {
		t.Fatal("expected error for empty Addr")
	}
	b, err := NewBackend(Config{Addr: "127.0.0.1:8125", Namespace: "bgg.", GlobalTags: []string{"env:test"}})
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	_ = b.Flush()
}

func TestLabelsToTagsEmpty(t *testing.T) {
	t.Parallel()

	if got := labelsToTags(nil); got != nil {
		t.Fatalf("got %v", got)
	}
}
