package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shaiso/Anton/internal/domain"
)

// --- Fakes ---

type fakeDelivery struct {
	body       []byte
	retryCount int

	acked    bool
	rejected bool
	requeued bool

	ackErr    error
	rejectErr error
}

func (d *fakeDelivery) Body() []byte    { return d.body }
func (d *fakeDelivery) RetryCount() int { return d.retryCount }
func (d *fakeDelivery) Ack() error {
	d.acked = true
	return d.ackErr
}
func (d *fakeDelivery) Reject(requeue bool) error {
	d.rejected = true
	d.requeued = requeue
	return d.rejectErr
}

type fakeBroker struct {
	retryPublishes []int // retry counts passed to PublishRetry
	dlqPublishes   []int // retry counts passed to PublishDLQ

	retryErr error
	dlqErr   error
}

func (b *fakeBroker) PublishRetry(_ context.Context, _ []byte, retryCount int) error {
	if b.retryErr != nil {
		return b.retryErr
	}
	b.retryPublishes = append(b.retryPublishes, retryCount)
	return nil
}

func (b *fakeBroker) PublishDLQ(_ context.Context, _ []byte, retryCount int) error {
	if b.dlqErr != nil {
		return b.dlqErr
	}
	b.dlqPublishes = append(b.dlqPublishes, retryCount)
	return nil
}

type fakeClassifier struct {
	plan *domain.RouterPlan
	err  error
}

func (c *fakeClassifier) Route(_ context.Context, _ *domain.AgentTask) (*domain.RouterPlan, error) {
	return c.plan, c.err
}

// classifierFunc — классификатор из функции, для сценариев
// с side effects посреди Route.
type classifierFunc func(ctx context.Context, task *domain.AgentTask) (*domain.RouterPlan, error)

func (f classifierFunc) Route(ctx context.Context, task *domain.AgentTask) (*domain.RouterPlan, error) {
	return f(ctx, task)
}

type fakeDispatcher struct {
	dispatched int
	err        error
}

func (d *fakeDispatcher) Dispatch(_ context.Context, _ *domain.AgentTask, _ *domain.RouterPlan) (string, error) {
	if d.err != nil {
		return "", d.err
	}
	d.dispatched++
	return "agent-job-test", nil
}

func validPlan() *domain.RouterPlan {
	return &domain.RouterPlan{
		TemplateID:     domain.TemplateJavaBackend,
		Complexity:     domain.ComplexityMedium,
		RequiredSkills: []string{"spring"},
		ContextSummary: "fix the login endpoint",
	}
}

func taskBody(t *testing.T) []byte {
	t.Helper()
	task := domain.NewAgentTask(domain.SourceJira, "PROJ-1", "Fix login", domain.PriorityP2, []byte(`{}`))
	body, err := json.Marshal(task)
	if err != nil {
		t.Fatalf("marshal task: %v", err)
	}
	return body
}

func newTestOrchestrator(broker *fakeBroker, classifier Classifier, dispatcher *fakeDispatcher) *Orchestrator {
	return New(Config{
		Broker:     broker,
		Classifier: classifier,
		Dispatcher: dispatcher,
		MaxRetries: 3,
	})
}

// --- HandleDelivery Tests ---

func TestHandleDelivery_Success(t *testing.T) {
	broker := &fakeBroker{}
	dispatcher := &fakeDispatcher{}
	orch := newTestOrchestrator(broker, &fakeClassifier{plan: validPlan()}, dispatcher)

	d := &fakeDelivery{body: taskBody(t)}
	state, err := orch.HandleDelivery(context.Background(), d)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state != StateAcknowledged {
		t.Errorf("state: got %s, want %s", state, StateAcknowledged)
	}
	if !d.acked {
		t.Error("delivery should be acked")
	}
	if d.rejected {
		t.Error("delivery should not be rejected")
	}
	if dispatcher.dispatched != 1 {
		t.Errorf("dispatched: got %d, want 1", dispatcher.dispatched)
	}
	if len(broker.retryPublishes) != 0 || len(broker.dlqPublishes) != 0 {
		t.Error("no republishes expected on success")
	}
}

func TestHandleDelivery_RetryBelowCeiling(t *testing.T) {
	broker := &fakeBroker{}
	orch := newTestOrchestrator(broker, &fakeClassifier{err: errors.New("llm down")}, &fakeDispatcher{})

	d := &fakeDelivery{body: taskBody(t), retryCount: 0}
	state, err := orch.HandleDelivery(context.Background(), d)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state != StateRetried {
		t.Errorf("state: got %s, want %s", state, StateRetried)
	}
	if !d.rejected || d.requeued {
		t.Error("delivery should be rejected without requeue")
	}
	if d.acked {
		t.Error("delivery should not be acked")
	}
	if len(broker.retryPublishes) != 1 || broker.retryPublishes[0] != 1 {
		t.Errorf("retry publishes: got %v, want [1]", broker.retryPublishes)
	}
	if len(broker.dlqPublishes) != 0 {
		t.Error("no DLQ publish expected below ceiling")
	}
}

func TestHandleDelivery_DeadLetterAtCeiling(t *testing.T) {
	broker := &fakeBroker{}
	orch := newTestOrchestrator(broker, &fakeClassifier{err: errors.New("llm down")}, &fakeDispatcher{})

	// retryCount=2 with maxRetries=3: the next attempt would be the fourth
	d := &fakeDelivery{body: taskBody(t), retryCount: 2}
	state, err := orch.HandleDelivery(context.Background(), d)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state != StateDeadLettered {
		t.Errorf("state: got %s, want %s", state, StateDeadLettered)
	}
	if len(broker.dlqPublishes) != 1 {
		t.Fatalf("dlq publishes: got %d, want exactly 1", len(broker.dlqPublishes))
	}
	// The DLQ copy carries the current counter, not an incremented one
	if broker.dlqPublishes[0] != 2 {
		t.Errorf("dlq retry count: got %d, want 2", broker.dlqPublishes[0])
	}
	if !d.acked {
		t.Error("original delivery must be acked after the DLQ copy")
	}
	if len(broker.retryPublishes) != 0 {
		t.Error("no retry publish expected at ceiling")
	}
}

func TestHandleDelivery_Shutdown(t *testing.T) {
	broker := &fakeBroker{}
	orch := newTestOrchestrator(broker, &fakeClassifier{plan: validPlan()}, &fakeDispatcher{})
	orch.Shutdown()

	d := &fakeDelivery{body: taskBody(t), retryCount: 1}
	state, err := orch.HandleDelivery(context.Background(), d)

	if !errors.Is(err, ErrShuttingDown) {
		t.Fatalf("got %v, want ErrShuttingDown", err)
	}
	if state != StateReceived {
		t.Errorf("state: got %s, want %s", state, StateReceived)
	}
	// Requeue, no counter mutation, no republishes
	if !d.rejected || !d.requeued {
		t.Error("delivery should be requeued")
	}
	if len(broker.retryPublishes) != 0 || len(broker.dlqPublishes) != 0 {
		t.Error("no republishes expected during shutdown")
	}
}

func TestHandleDelivery_ShutdownMidProcessing(t *testing.T) {
	// Signal arrives while the message is already being classified:
	// the canceled call must not count as a failed attempt.
	broker := &fakeBroker{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var orch *Orchestrator
	classifier := classifierFunc(func(ctx context.Context, _ *domain.AgentTask) (*domain.RouterPlan, error) {
		orch.Shutdown()
		cancel()
		return nil, ctx.Err()
	})
	orch = New(Config{
		Broker:     broker,
		Classifier: classifier,
		Dispatcher: &fakeDispatcher{},
		MaxRetries: 3,
	})

	// At the ceiling: the ordinary failure path would dead-letter it
	d := &fakeDelivery{body: taskBody(t), retryCount: 2}
	state, err := orch.HandleDelivery(ctx, d)

	if !errors.Is(err, ErrShuttingDown) {
		t.Fatalf("got %v, want ErrShuttingDown", err)
	}
	if state != StateReceived {
		t.Errorf("state: got %s, want %s", state, StateReceived)
	}
	if !d.rejected || !d.requeued {
		t.Error("delivery should be requeued")
	}
	if d.acked {
		t.Error("delivery must never be acked during shutdown")
	}
	if len(broker.retryPublishes) != 0 || len(broker.dlqPublishes) != 0 {
		t.Errorf("no republishes expected, got retry=%v dlq=%v", broker.retryPublishes, broker.dlqPublishes)
	}
}

func TestHandleDelivery_ContextCanceledMidProcessing(t *testing.T) {
	// Context canceled without the shutdown flag (consumer torn down
	// first): a context.Canceled failure still means requeue, not retry.
	broker := &fakeBroker{}
	ctx, cancel := context.WithCancel(context.Background())

	classifier := classifierFunc(func(ctx context.Context, _ *domain.AgentTask) (*domain.RouterPlan, error) {
		cancel()
		return nil, ctx.Err()
	})
	orch := newTestOrchestrator(broker, classifier, &fakeDispatcher{})

	d := &fakeDelivery{body: taskBody(t), retryCount: 0}
	state, err := orch.HandleDelivery(ctx, d)

	if !errors.Is(err, ErrShuttingDown) {
		t.Fatalf("got %v, want ErrShuttingDown", err)
	}
	if state != StateReceived {
		t.Errorf("state: got %s, want %s", state, StateReceived)
	}
	if !d.rejected || !d.requeued {
		t.Error("delivery should be requeued")
	}
	if len(broker.retryPublishes) != 0 {
		t.Error("canceled attempt must not increment the retry count")
	}
}

func TestHandleDelivery_DecodeFailureRidesRetryPath(t *testing.T) {
	broker := &fakeBroker{}
	orch := newTestOrchestrator(broker, &fakeClassifier{plan: validPlan()}, &fakeDispatcher{})

	d := &fakeDelivery{body: []byte(`not json`), retryCount: 0}
	state, err := orch.HandleDelivery(context.Background(), d)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state != StateRetried {
		t.Errorf("state: got %s, want %s", state, StateRetried)
	}
	if len(broker.retryPublishes) != 1 {
		t.Errorf("retry publishes: got %d, want 1", len(broker.retryPublishes))
	}
}

func TestHandleDelivery_DispatchFailure(t *testing.T) {
	broker := &fakeBroker{}
	orch := newTestOrchestrator(broker, &fakeClassifier{plan: validPlan()}, &fakeDispatcher{err: errors.New("k8s api unavailable")})

	d := &fakeDelivery{body: taskBody(t), retryCount: 1}
	state, err := orch.HandleDelivery(context.Background(), d)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state != StateRetried {
		t.Errorf("state: got %s, want %s", state, StateRetried)
	}
	if len(broker.retryPublishes) != 1 || broker.retryPublishes[0] != 2 {
		t.Errorf("retry publishes: got %v, want [2]", broker.retryPublishes)
	}
}

func TestHandleDelivery_DLQPublishFailure(t *testing.T) {
	// When the DLQ itself is unavailable, the message must go back
	// to the live queue instead of being lost.
	broker := &fakeBroker{dlqErr: errors.New("dlq unavailable")}
	orch := newTestOrchestrator(broker, &fakeClassifier{err: errors.New("llm down")}, &fakeDispatcher{})

	d := &fakeDelivery{body: taskBody(t), retryCount: 2}
	state, err := orch.HandleDelivery(context.Background(), d)

	if err == nil {
		t.Fatal("expected error")
	}
	if state != StateProcessing {
		t.Errorf("state: got %s, want %s", state, StateProcessing)
	}
	if !d.rejected || !d.requeued {
		t.Error("delivery should be requeued")
	}
	if d.acked {
		t.Error("delivery must not be acked")
	}
}

func TestHandleDelivery_DLQAndRequeueBothFail(t *testing.T) {
	// Both broker calls fail: the returned error must surface
	// the requeue failure too, not swallow it.
	broker := &fakeBroker{dlqErr: errors.New("dlq unavailable")}
	orch := newTestOrchestrator(broker, &fakeClassifier{err: errors.New("llm down")}, &fakeDispatcher{})

	d := &fakeDelivery{
		body:       taskBody(t),
		retryCount: 2,
		rejectErr:  errors.New("channel closed"),
	}
	state, err := orch.HandleDelivery(context.Background(), d)

	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "channel closed") {
		t.Errorf("error should mention the requeue failure, got: %v", err)
	}
	if state != StateProcessing {
		t.Errorf("state: got %s, want %s", state, StateProcessing)
	}
	if d.acked {
		t.Error("delivery must not be acked")
	}
}

func TestHandleDelivery_DefaultMaxRetries(t *testing.T) {
	orch := New(Config{
		Broker:     &fakeBroker{},
		Classifier: &fakeClassifier{plan: validPlan()},
		Dispatcher: &fakeDispatcher{},
	})
	if orch.maxRetries != defaultMaxRetries {
		t.Errorf("maxRetries: got %d, want %d", orch.maxRetries, defaultMaxRetries)
	}
}

// --- Archive Tests ---

type fakeArchive struct {
	dispatched   []uuid.UUID
	retried      []int
	deadLettered []int
	err          error
}

func (a *fakeArchive) MarkDispatched(_ context.Context, taskID uuid.UUID, _ string) error {
	a.dispatched = append(a.dispatched, taskID)
	return a.err
}

func (a *fakeArchive) MarkRetried(_ context.Context, _ uuid.UUID, attempts int, _ string) error {
	a.retried = append(a.retried, attempts)
	return a.err
}

func (a *fakeArchive) MarkDeadLettered(_ context.Context, _ uuid.UUID, attempts int, _ string) error {
	a.deadLettered = append(a.deadLettered, attempts)
	return a.err
}

func TestHandleDelivery_ArchiveUpdated(t *testing.T) {
	archive := &fakeArchive{}
	orch := New(Config{
		Broker:     &fakeBroker{},
		Classifier: &fakeClassifier{plan: validPlan()},
		Dispatcher: &fakeDispatcher{},
		Archive:    archive,
		MaxRetries: 3,
	})

	d := &fakeDelivery{body: taskBody(t)}
	if _, err := orch.HandleDelivery(context.Background(), d); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(archive.dispatched) != 1 {
		t.Errorf("archive dispatched: got %d, want 1", len(archive.dispatched))
	}
}

func TestHandleDelivery_ArchiveFailureIsBestEffort(t *testing.T) {
	archive := &fakeArchive{err: errors.New("db down")}
	orch := New(Config{
		Broker:     &fakeBroker{},
		Classifier: &fakeClassifier{plan: validPlan()},
		Dispatcher: &fakeDispatcher{},
		Archive:    archive,
		MaxRetries: 3,
	})

	d := &fakeDelivery{body: taskBody(t)}
	state, err := orch.HandleDelivery(context.Background(), d)

	// Archive errors must never affect the message outcome
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state != StateAcknowledged {
		t.Errorf("state: got %s, want %s", state, StateAcknowledged)
	}
	if !d.acked {
		t.Error("delivery should still be acked")
	}
}
