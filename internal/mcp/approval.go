package mcpserver

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventEmitter allows the approval queue to notify the frontend.
type EventEmitter interface {
	Emit(ctx context.Context, event string, data any)
}

// Approval events.
const (
	EventApprovalRequired  = "mcp:approval-required"
	EventApprovalDismissed = "mcp:approval-dismissed"
)

// PendingAction represents a destructive operation awaiting user approval.
type PendingAction struct {
	ID          string `json:"id"`
	Tool        string `json:"tool"`
	Description string `json:"description"`
	CreatedAt   string `json:"createdAt"`
}

// actionResult is sent through the channel when user approves/rejects.
type actionResult struct {
	approved bool
}

// ApprovalQueue manages human-in-the-loop approval for destructive MCP tool
// calls. With a frontend attached the request is shown through an event and
// answered by Approve or Reject. Without one (stdio mode) auto-approve lets
// the calling agent act for the user.
type ApprovalQueue struct {
	mu          sync.Mutex
	pending     map[string]chan actionResult
	ctx         context.Context
	emitter     EventEmitter
	timeout     time.Duration
	autoApprove bool
}

func NewApprovalQueue(ctx context.Context, emitter EventEmitter) *ApprovalQueue {
	return &ApprovalQueue{
		pending: make(map[string]chan actionResult),
		ctx:     ctx,
		emitter: emitter,
		timeout: 120 * time.Second,
	}
}

// SetAutoApprove approves every request without asking.
func (q *ApprovalQueue) SetAutoApprove(on bool) {
	q.autoApprove = on
}

// SetTimeout changes how long a request waits for an answer.
func (q *ApprovalQueue) SetTimeout(d time.Duration) {
	q.timeout = d
}

// Request sends an approval request and blocks until approved/rejected.
func (q *ApprovalQueue) Request(tool, description string) (bool, error) {
	if q.autoApprove {
		return true, nil
	}

	id := uuid.New().String()
	ch := make(chan actionResult, 1)

	q.mu.Lock()
	q.pending[id] = ch
	q.mu.Unlock()

	q.emitter.Emit(q.ctx, EventApprovalRequired, PendingAction{
		ID:          id,
		Tool:        tool,
		Description: description,
		CreatedAt:   time.Now().UTC().Format(time.RFC3339),
	})

	select {
	case result := <-ch:
		q.cleanup(id)
		if !result.approved {
			return false, fmt.Errorf("action rejected by user: %s", tool)
		}
		return true, nil
	case <-time.After(q.timeout):
		q.cleanup(id)
		q.emitter.Emit(q.ctx, EventApprovalDismissed, map[string]string{"id": id})
		return false, fmt.Errorf("action timed out after %s: %s", q.timeout, tool)
	case <-q.ctx.Done():
		q.cleanup(id)
		return false, fmt.Errorf("context cancelled")
	}
}

// Approve marks a pending action as approved.
func (q *ApprovalQueue) Approve(actionID string) {
	q.resolve(actionID, true)
}

// Reject marks a pending action as rejected.
func (q *ApprovalQueue) Reject(actionID string) {
	q.resolve(actionID, false)
}

func (q *ApprovalQueue) resolve(actionID string, approved bool) {
	q.mu.Lock()
	ch, ok := q.pending[actionID]
	q.mu.Unlock()
	if ok {
		select {
		case ch <- actionResult{approved: approved}:
		default:
		}
	}
}

func (q *ApprovalQueue) cleanup(id string) {
	q.mu.Lock()
	delete(q.pending, id)
	q.mu.Unlock()
}
