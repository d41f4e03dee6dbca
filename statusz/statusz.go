// Package statusz serves health and render progress for the debug listener.
package statusz

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// Healthz always answers 200 OK once the process is serving.
type Healthz struct {
}

func NewHealthz() *Healthz {
	return &Healthz{}
}

func (h *Healthz) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("200 OK"))
}

// Status is the JSON body served by Statusz.
type Status struct {
	Scene        string    `json:"scene"`
	Width        int       `json:"width"`
	Height       int       `json:"height"`
	SamplesDone  uint64    `json:"samplesDone"`
	SamplesTotal uint64    `json:"samplesTotal"`
	Fraction     float64   `json:"fraction"`
	StartTime    time.Time `json:"startTime"`
	Elapsed      string    `json:"elapsed"`
	Done         bool      `json:"done"`
}

// Statusz tracks one render's progress.  Its methods are safe for concurrent
// use.
type Statusz struct {
	mu     sync.Mutex
	status Status

	now func() time.Time
}

func New(scene string, width, height int) *Statusz {
	s := &Statusz{now: time.Now}
	s.status = Status{
		Scene:     scene,
		Width:     width,
		Height:    height,
		StartTime: s.now(),
	}
	return s
}

// Progress matches render.ProgressFunction.
func (s *Statusz) Progress(done, total uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.SamplesDone = done
	s.status.SamplesTotal = total
}

func (s *Statusz) MarkDone() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.Done = true
}

func (s *Statusz) Snapshot() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.status
	if st.SamplesTotal > 0 {
		st.Fraction = float64(st.SamplesDone) / float64(st.SamplesTotal)
	} else if st.Done {
		st.Fraction = 1
	}
	st.Elapsed = s.now().Sub(st.StartTime).Round(time.Second).String()
	return st
}

func (s *Statusz) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s.Snapshot()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// Register installs /healthz and /statusz on mux.
func (s *Statusz) Register(mux *http.ServeMux) {
	mux.Handle("/healthz", NewHealthz())
	mux.Handle("/statusz", s)
}
