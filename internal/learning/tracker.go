// Package learning keeps the append-only ledger of user corrections and
// forwards them, best-effort, to the remote learning endpoint. A
// correction is never rejected or lost because the network failed; only
// its remote acknowledgment is deferred.
package learning

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"framesight/internal/model"
)

// DefaultRetrainEvery: every Nth accepted correction fires an async
// retraining signal.
const DefaultRetrainEvery = 5

// Forwarder is the slice of the remote service the tracker needs.
type Forwarder interface {
	SubmitOverride(ctx context.Context, corr model.Correction) (string, error)
	SignalRetrain(ctx context.Context) error
}

type overrideKey struct {
	kind    model.CorrectionKind
	subject string
}

// Tracker is the only shared mutable state in the pipeline. It is
// constructed per session and threaded explicitly through the
// classifier and tagger; there are no package-level singletons.
type Tracker struct {
	mu sync.Mutex

	log          *zap.Logger
	svc          Forwarder // nil disables forwarding entirely
	retrainEvery int

	ledger   []model.Correction
	latest   map[overrideKey]int // ledger index of the newest correction per subject
	pending  []string            // correction ids awaiting remote ack
	accepted int
	retrains int
}

func NewTracker(svc Forwarder, retrainEvery int, log *zap.Logger) *Tracker {
	if log == nil {
		log = zap.NewNop()
	}
	if retrainEvery <= 0 {
		retrainEvery = DefaultRetrainEvery
	}
	return &Tracker{
		log:          log,
		svc:          svc,
		retrainEvery: retrainEvery,
		latest:       make(map[overrideKey]int),
	}
}

// SubmitResult reports what happened to one correction. Accepted is
// always true once the ledger write happened.
type SubmitResult struct {
	CorrectionID string
	Accepted     bool
	RemoteAck    bool
}

// SubmitCorrection stores the correction locally first, then attempts
// the remote forward. Forward failures queue the correction for a later
// FlushPending and still report success to the caller.
func (t *Tracker) SubmitCorrection(ctx context.Context, corr model.Correction) SubmitResult {
	if corr.ID == "" {
		corr.ID = uuid.NewString()
	}
	if corr.At.IsZero() {
		corr.At = time.Now()
	}

	t.mu.Lock()
	t.ledger = append(t.ledger, corr)
	idx := len(t.ledger) - 1
	t.latest[overrideKey{corr.Kind, corr.SubjectID}] = idx
	t.accepted++
	fireRetrain := t.accepted%t.retrainEvery == 0
	t.mu.Unlock()

	res := SubmitResult{CorrectionID: corr.ID, Accepted: true}

	if t.svc != nil {
		if _, err := t.svc.SubmitOverride(ctx, corr); err != nil {
			t.log.Warn("correction forward failed, queued for retry",
				zap.String("correction_id", corr.ID),
				zap.Error(err))
			t.mu.Lock()
			t.pending = append(t.pending, corr.ID)
			t.mu.Unlock()
		} else {
			res.RemoteAck = true
			t.mu.Lock()
			t.ledger[idx].RemoteAck = true
			t.mu.Unlock()
		}
	}

	if fireRetrain && t.svc != nil {
		go t.signalRetrain()
	}

	return res
}

// signalRetrain is fire-and-forget: its failure is logged, never
// surfaced to the correction submitter.
func (t *Tracker) signalRetrain() {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := t.svc.SignalRetrain(ctx); err != nil {
		t.log.Warn("retraining signal failed", zap.Error(err))
		return
	}
	t.mu.Lock()
	t.retrains++
	t.mu.Unlock()
	t.log.Info("retraining signal sent")
}

// FlushPending retries every queued forward and returns how many were
// acknowledged this round.
func (t *Tracker) FlushPending(ctx context.Context) int {
	if t.svc == nil {
		return 0
	}

	t.mu.Lock()
	queued := t.pending
	t.pending = nil
	byID := make(map[string]int, len(t.ledger))
	for i := range t.ledger {
		byID[t.ledger[i].ID] = i
	}
	t.mu.Unlock()

	acked := 0
	for _, id := range queued {
		idx, ok := byID[id]
		if !ok {
			continue
		}
		t.mu.Lock()
		corr := t.ledger[idx]
		t.mu.Unlock()

		if _, err := t.svc.SubmitOverride(ctx, corr); err != nil {
			t.mu.Lock()
			t.pending = append(t.pending, id)
			t.mu.Unlock()
			continue
		}
		t.mu.Lock()
		t.ledger[idx].RemoteAck = true
		t.mu.Unlock()
		acked++
	}
	return acked
}

// Ledger returns the ordered, append-only correction sequence.
func (t *Tracker) Ledger() []model.Correction {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]model.Correction, len(t.ledger))
	copy(out, t.ledger)
	return out
}

// OverrideFor returns the newest correction for a subject, if any.
func (t *Tracker) OverrideFor(kind model.CorrectionKind, subjectID string) (model.Correction, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	idx, ok := t.latest[overrideKey{kind, subjectID}]
	if !ok {
		return model.Correction{}, false
	}
	return t.ledger[idx], true
}

// BuildingOverride resolves the active building-type override for a
// model, when one exists and names a known type.
func (t *Tracker) BuildingOverride(modelID string) (model.BuildingType, bool) {
	corr, ok := t.OverrideFor(model.CorrectionBuildingType, modelID)
	if !ok {
		return model.BuildingUnknown, false
	}
	bt, err := model.ParseBuildingType(corr.NewValue)
	if err != nil {
		t.log.Warn("ignoring building override with unknown type",
			zap.String("model_id", modelID),
			zap.String("value", corr.NewValue))
		return model.BuildingUnknown, false
	}
	return bt, true
}

// MemberTagOverrides returns the active per-member tag overrides; the
// tagger re-applies these last so they win over any cascade output.
func (t *Tracker) MemberTagOverrides() map[string]model.MemberTag {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[string]model.MemberTag)
	for key, idx := range t.latest {
		if key.kind != model.CorrectionMemberTag {
			continue
		}
		tag, err := model.ParseMemberTag(t.ledger[idx].NewValue)
		if err != nil {
			continue
		}
		out[key.subject] = tag
	}
	return out
}

// Metrics aggregates the learning ledger for dashboards.
type Metrics struct {
	Total           int                          `json:"total"`
	ByKind          map[model.CorrectionKind]int `json:"byKind"`
	RemoteAcked     int                          `json:"remoteAcked"`
	PendingForwards int                          `json:"pendingForwards"`
	RetrainSignals  int                          `json:"retrainSignals"`
	LastCorrection  time.Time                    `json:"lastCorrection"`
}

func (t *Tracker) Metrics() Metrics {
	t.mu.Lock()
	defer t.mu.Unlock()

	m := Metrics{ByKind: make(map[model.CorrectionKind]int)}
	m.Total = len(t.ledger)
	m.PendingForwards = len(t.pending)
	m.RetrainSignals = t.retrains
	for _, c := range t.ledger {
		m.ByKind[c.Kind]++
		if c.RemoteAck {
			m.RemoteAcked++
		}
		if c.At.After(m.LastCorrection) {
			m.LastCorrection = c.At
		}
	}
	return m
}
