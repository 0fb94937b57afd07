package scheduler

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// OnBulkDue is called when the library is due for a scheduled enrichment.
type OnBulkDue func()

// Scheduler triggers bulk enrichment on a cron spec. The trigger only
// enqueues; the single-run guarantee lives in the persisted run record,
// not here.
type Scheduler struct {
	cron     *cron.Cron
	callback OnBulkDue

	mu      sync.Mutex
	entryID cron.EntryID
	spec    string
}

func New(cb OnBulkDue) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		callback: cb,
	}
}

// Start installs the cron spec and begins scheduling.
func (s *Scheduler) Start(spec string) error {
	if err := s.SetSpec(spec); err != nil {
		return err
	}
	s.cron.Start()
	log.Printf("[scheduler] bulk enrichment scheduled: %q", spec)
	return nil
}

// SetSpec replaces the schedule. An empty spec disables scheduled runs.
func (s *Scheduler) SetSpec(spec string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.entryID != 0 {
		s.cron.Remove(s.entryID)
		s.entryID = 0
	}
	s.spec = spec
	if spec == "" {
		return nil
	}

	id, err := s.cron.AddFunc(spec, func() {
		log.Println("[scheduler] scheduled bulk enrichment due")
		s.callback()
	})
	if err != nil {
		return fmt.Errorf("invalid cron spec %q: %w", spec, err)
	}
	s.entryID = id
	return nil
}

// NextRun returns the next scheduled trigger time, or zero when disabled.
func (s *Scheduler) NextRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entryID == 0 {
		return time.Time{}
	}
	return s.cron.Entry(s.entryID).Next
}

// Stop halts scheduling; a trigger already running is unaffected.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Println("[scheduler] stopped")
}
