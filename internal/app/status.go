package app

import (
	"sync"
	"sync/atomic"

	"ytmp3/internal/coordinator"
	"ytmp3/internal/entity"
	"ytmp3/internal/proxy"
)

// Run phases reported on /v1/status.
const (
	phaseResolving  = "resolving"
	phaseConverting = "converting"
	phaseDone       = "done"
)

// runStatus tracks progress for the status endpoint and forwards to the console presenter.
type runStatus struct {
	runID   string
	queryID string
	mode    string

	mu      sync.Mutex
	phase   string
	items   int
	outDir  string
	proxies *proxy.Manager

	started atomic.Int64
	failed  atomic.Int64

	next coordinator.Presenter
}

// Snapshot is the JSON body of /v1/status.
type Snapshot struct {
	RunID   string `json:"run_id"`
	QueryID string `json:"query_id"`
	Mode    string `json:"mode"`
	Phase   string `json:"phase"`
	OutDir  string `json:"out_dir,omitempty"`
	Items   int    `json:"items"`
	Started int64  `json:"started"`
	Failed  int64  `json:"failed"`

	Proxies          int `json:"proxies,omitempty"`
	ProxiesAvailable int `json:"proxies_available,omitempty"`
}

func (s *runStatus) Status() any {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Snapshot{
		RunID:   s.runID,
		QueryID: s.queryID,
		Mode:    s.mode,
		Phase:   s.phase,
		OutDir:  s.outDir,
		Items:   s.items,
		Started: s.started.Load(),
		Failed:  s.failed.Load(),

		Proxies:          s.proxies.Count(),
		ProxiesAvailable: s.proxies.AvailableCount(),
	}
}

func (s *runStatus) setOutput(dir string, proxies *proxy.Manager) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.outDir = dir
	s.proxies = proxies
}

func (s *runStatus) setPhase(phase string, items int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.phase = phase
	if items >= 0 {
		s.items = items
	}
}

func (s *runStatus) Downloading(item entity.Item, started, total int) {
	s.started.Add(1)
	s.next.Downloading(item, started, total)
}

func (s *runStatus) Failed(rec entity.FailureRecord) {
	s.failed.Add(1)
	s.next.Failed(rec)
}
