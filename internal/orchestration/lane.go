package orchestration

import (
	"context"
	"sync"
	"time"
)

// lane arbitrates turn submissions for one sessionId according to its
// configured mode.
type lane struct {
	cfg LaneConfig

	mu      sync.Mutex
	active  *TurnInput
	queued  []TurnInput
	cancel  context.CancelFunc
	emit    func(Event)

	collectTimer *time.Timer
	collectBuf   []TurnInput
}

func newLane(cfg LaneConfig, emit func(Event)) *lane {
	return &lane{cfg: cfg, emit: emit}
}

// submit admits a turn per the lane's mode. For queue/collect modes it
// may run asynchronously; callers observe completion via emitted events.
func (l *lane) submit(ctx context.Context, in TurnInput) {
	l.emit(Event{Type: EventSubmitted, SessionID: in.SessionID, TurnID: in.ID, At: time.Now().UTC()})

	switch l.cfg.Mode {
	case ModeInterrupt:
		l.submitInterrupt(ctx, in)
	case ModeCollect:
		l.submitCollect(in)
	case ModeSteer, ModeSteerBacklog:
		l.submitSteer(ctx, in)
	default:
		l.submitQueue(ctx, in)
	}
}

func (l *lane) submitQueue(ctx context.Context, in TurnInput) {
	l.mu.Lock()
	if l.active == nil {
		l.active = &in
		l.mu.Unlock()
		l.run(ctx, in)
		return
	}

	if l.cfg.DefaultCap > 0 && len(l.queued) >= l.cfg.DefaultCap {
		switch l.cfg.DropPolicy {
		case DropOld:
			dropped := l.queued[0]
			l.queued = append(l.queued[1:], in)
			l.mu.Unlock()
			l.emit(Event{Type: EventDropped, SessionID: dropped.SessionID, TurnID: dropped.ID, Reason: "old", At: time.Now().UTC()})
			return
		case DropSummarize:
			merged := summarizeInputs(append(l.queued, in))
			l.queued = []TurnInput{merged}
			l.mu.Unlock()
			return
		default: // DropNew
			l.mu.Unlock()
			l.emit(Event{Type: EventDropped, SessionID: in.SessionID, TurnID: in.ID, Reason: "new", At: time.Now().UTC()})
			return
		}
	}

	l.queued = append(l.queued, in)
	l.mu.Unlock()
}

func summarizeInputs(inputs []TurnInput) TurnInput {
	merged := inputs[len(inputs)-1]
	content := ""
	for i, in := range inputs {
		if i > 0 {
			content += "\n---\n"
		}
		content += in.Content
	}
	merged.Content = content
	return merged
}

func (l *lane) submitInterrupt(ctx context.Context, in TurnInput) {
	l.mu.Lock()
	if l.cancel != nil {
		l.cancel()
	}
	l.mu.Unlock()
	l.run(ctx, in)
}

func (l *lane) submitCollect(in TurnInput) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.collectBuf = append(l.collectBuf, in)
	if l.collectTimer != nil {
		l.collectTimer.Stop()
	}
	l.collectTimer = time.AfterFunc(time.Duration(l.cfg.CollectDebounceMs)*time.Millisecond, func() {
		l.mu.Lock()
		batch := l.collectBuf
		l.collectBuf = nil
		l.mu.Unlock()
		if len(batch) == 0 {
			return
		}
		merged := summarizeInputs(batch)
		l.run(context.Background(), merged)
	})
}

func (l *lane) submitSteer(ctx context.Context, in TurnInput) {
	l.mu.Lock()
	if l.active != nil {
		// A real adapter integration would forward in.Content as a
		// mid-turn steer event; here we just track backlog intent.
		if l.cfg.Mode == ModeSteerBacklog {
			l.queued = append(l.queued, in)
		}
		l.mu.Unlock()
		return
	}
	l.active = &in
	l.mu.Unlock()
	l.run(ctx, in)
}

func (l *lane) run(ctx context.Context, in TurnInput) {
	runCtx, cancel := context.WithCancel(ctx)
	l.mu.Lock()
	l.cancel = cancel
	l.mu.Unlock()

	l.emit(Event{Type: EventStarted, SessionID: in.SessionID, TurnID: in.ID, At: time.Now().UTC()})

	var err error
	if in.Run != nil {
		err = in.Run(runCtx, in.Content)
	}

	reason := ""
	if err != nil {
		reason = err.Error()
	}
	l.emit(Event{Type: EventCompleted, SessionID: in.SessionID, TurnID: in.ID, Reason: reason, At: time.Now().UTC()})

	l.mu.Lock()
	l.active = nil
	l.cancel = nil
	var next *TurnInput
	if len(l.queued) > 0 {
		n := l.queued[0]
		l.queued = l.queued[1:]
		next = &n
	}
	l.mu.Unlock()

	if next != nil {
		l.active = next
		l.run(ctx, *next)
	}
}

// snapshot returns the lane's persisted shape.
func (l *lane) snapshot(sessionID string) laneSnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	snap := laneSnapshot{SessionID: sessionID, Mode: l.cfg.Mode}
	if l.active != nil {
		snap.ActiveInput = l.active.Content
	}
	for _, q := range l.queued {
		snap.QueuedInputs = append(snap.QueuedInputs, q.Content)
	}
	return snap
}
