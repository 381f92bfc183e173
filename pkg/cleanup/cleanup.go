package cleanup

import (
	"context"
	"log"
	"time"
)

// EventLog is the pruning surface of the telemetry event store.
type EventLog interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Pruner periodically trims old rows from the telemetry event log so
// the append-only collection does not grow without bound.
type Pruner struct {
	events    EventLog
	retention time.Duration
	interval  time.Duration
	stopChan  chan bool
}

func NewPruner(events EventLog, retention, interval time.Duration) *Pruner {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Pruner{
		events:    events,
		retention: retention,
		interval:  interval,
		stopChan:  make(chan bool, 1),
	}
}

// Start begins the pruning loop. Runs once immediately, then on the
// configured interval. A zero retention disables pruning entirely.
func (p *Pruner) Start() {
	if p.retention <= 0 {
		log.Println("Event log pruning disabled")
		return
	}
	log.Printf("Starting event log pruner (retention: %v, interval: %v)", p.retention, p.interval)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.prune()

	for {
		select {
		case <-ticker.C:
			p.prune()
		case <-p.stopChan:
			log.Println("Stopping event log pruner")
			return
		}
	}
}

// Stop stops the pruning loop.
func (p *Pruner) Stop() {
	p.stopChan <- true
}

func (p *Pruner) prune() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	count, err := p.events.DeleteOlderThan(ctx, time.Now().Add(-p.retention))
	if err != nil {
		log.Printf("Error pruning telemetry events: %v", err)
		return
	}
	if count > 0 {
		log.Printf("Pruned %d telemetry events", count)
	}
}
