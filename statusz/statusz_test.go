package statusz

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestHealthz(t *testing.T) {
	mux := http.NewServeMux()
	New("final", 4, 3).Register(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("Status code %d, want 200", rec.Code)
	}
	if got := rec.Body.String(); got != "200 OK" {
		t.Errorf("Body %q, want %q", got, "200 OK")
	}
}

func TestStatusz(t *testing.T) {
	start := time.Date(2021, 5, 1, 12, 0, 0, 0, time.UTC)
	s := New("cornell-box", 600, 600)
	s.status.StartTime = start
	s.now = func() time.Time { return start.Add(90 * time.Second) }

	mux := http.NewServeMux()
	s.Register(mux)

	get := func() Status {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest("GET", "/statusz", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("Status code %d, want 200", rec.Code)
		}
		got := Status{}
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("Error while decoding body: %v", err)
		}
		return got
	}

	s.Progress(250, 1000)
	want := Status{
		Scene:        "cornell-box",
		Width:        600,
		Height:       600,
		SamplesDone:  250,
		SamplesTotal: 1000,
		Fraction:     0.25,
		StartTime:    start,
		Elapsed:      "1m30s",
	}
	if diff := cmp.Diff(get(), want); diff != "" {
		t.Errorf("Bad status; diff (-got +want)\n%s", diff)
	}

	s.Progress(1000, 1000)
	s.MarkDone()
	want.SamplesDone = 1000
	want.Fraction = 1
	want.Done = true
	if diff := cmp.Diff(get(), want); diff != "" {
		t.Errorf("Bad finished status; diff (-got +want)\n%s", diff)
	}
}

func TestStatuszNothingToDo(t *testing.T) {
	s := New("final", 1, 1)
	s.MarkDone()
	if got := s.Snapshot().Fraction; got != 1 {
		t.Errorf("Fraction of a render with no work = %v, want 1", got)
	}
}
