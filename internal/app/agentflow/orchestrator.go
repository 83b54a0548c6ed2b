package agentflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/PabloGalante/hospital-erp-agent/internal/app/session"
	"github.com/PabloGalante/hospital-erp-agent/internal/domain"
	"github.com/PabloGalante/hospital-erp-agent/internal/observability"
)

var (
	ErrEmptyInput   = errors.New("empty input")
	ErrTurnInFlight = errors.New("a turn is already in flight")
)

const (
	MsgSystemError   = "System Error encountered."
	MsgNarrowRequest = "The request touches several departments at once. Please ask about one department per message."
)

// Multi-tool policies.
const (
	MultiToolFirst  = "first"
	MultiToolReject = "reject"
)

// ModelSession is the part of the session manager the cycle talks to.
type ModelSession interface {
	SendUserMessage(ctx context.Context, text string) session.Reply
	SendToolResult(ctx context.Context, call domain.ToolCall, payload string) session.Reply
}

// Transcript receives every message the cycle produces.
type Transcript interface {
	// Append stamps id and timestamp and returns the stored copy.
	Append(msg domain.Message) domain.Message
}

// Listener is notified of every observable transition.
type Listener interface {
	OnActivity(ev domain.ActivityEvent)
}

type ListenerFunc func(ev domain.ActivityEvent)

func (f ListenerFunc) OnActivity(ev domain.ActivityEvent) { f(ev) }

type Options struct {
	DispatchDelay   time.Duration
	TurnTimeout     time.Duration // zero disables the timeout
	MultiToolPolicy string

	Policy domain.DispatchPolicy // nil allows every known route
	Audit  domain.AuditStore     // nil disables audit entries

	Now func() time.Time
}

// Activity is a snapshot of the presentation-visible state.
type Activity struct {
	Processing  bool             `json:"processing"`
	ActiveAgent domain.AgentID   `json:"active_agent"`
	State       domain.TurnState `json:"state"`
}

// TurnResult summarises one submitted turn.
type TurnResult struct {
	State    domain.TurnState `json:"state"`
	Agent    domain.AgentID   `json:"agent"` // specialist the turn was routed to, if any
	ToolCall *domain.ToolCall `json:"tool_call,omitempty"`
	Messages []domain.Message `json:"messages"`
}

// Orchestrator runs the orchestration cycle, one turn at a time.
type Orchestrator struct {
	session    ModelSession
	transcript Transcript
	opts       Options

	inFlight atomic.Bool

	mu        sync.Mutex
	activity  Activity
	cancel    context.CancelFunc
	listeners []Listener
}

func NewOrchestrator(sess ModelSession, transcript Transcript, opts Options) *Orchestrator {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.MultiToolPolicy == "" {
		opts.MultiToolPolicy = MultiToolFirst
	}
	if opts.DispatchDelay < 0 {
		opts.DispatchDelay = 0
	}

	return &Orchestrator{
		session:    sess,
		transcript: transcript,
		opts:       opts,
		activity: Activity{
			ActiveAgent: domain.AgentOrchestrator,
			State:       domain.TurnIdle,
		},
	}
}

// Subscribe registers l for activity events. Listeners are called
// synchronously and must not block.
func (o *Orchestrator) Subscribe(l Listener) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.listeners = append(o.listeners, l)
}

func (o *Orchestrator) Activity() Activity {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.activity
}

// Cancel aborts the turn in flight, if any. It reports whether there was one.
func (o *Orchestrator) Cancel() bool {
	o.mu.Lock()
	cancel := o.cancel
	o.mu.Unlock()

	if cancel == nil {
		return false
	}
	cancel()
	return true
}

// SubmitTurn runs one full cycle for text. Blank input and a turn already in
// flight are rejected without touching any state. Model failures do not
// produce an error: they end the turn in TurnFailed with a system message.
func (o *Orchestrator) SubmitTurn(ctx context.Context, text string) (res *TurnResult, err error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}
	if !o.inFlight.CompareAndSwap(false, true) {
		return nil, ErrTurnInFlight
	}
	defer o.inFlight.Store(false)

	var turnCtx context.Context
	var cancel context.CancelFunc
	if o.opts.TurnTimeout > 0 {
		turnCtx, cancel = context.WithTimeout(ctx, o.opts.TurnTimeout)
	} else {
		turnCtx, cancel = context.WithCancel(ctx)
	}
	o.setCancel(cancel)
	defer func() {
		o.setCancel(nil)
		cancel()
	}()

	log := observability.LoggerFromContext(ctx)
	res = &TurnResult{Agent: domain.AgentOrchestrator}

	defer o.finish(res)
	defer func() {
		if r := recover(); r != nil {
			log.Error("panic during turn", "panic", r)
			o.fail(ctx, res, MsgSystemError, fmt.Errorf("panic: %v", r))
			err = nil
		}
	}()

	start := o.opts.Now()
	log.Info("turn started")

	o.appendMessage(res, domain.Message{Role: domain.RoleUser, Content: text})
	o.setProcessing(true)
	o.setAgent(domain.AgentOrchestrator)
	o.setState(domain.TurnSentToOrchestrator)
	o.audit(ctx, "Inbound Request", domain.AgentOrchestrator,
		fmt.Sprintf("Analyzing User Intent: %q", preview(text)), domain.AuditSuccess)

	reply := o.session.SendUserMessage(turnCtx, text)
	if reply.Err != nil {
		o.fail(ctx, res, reply.Text, reply.Err)
		return res, nil
	}

	if len(reply.ToolCalls) == 0 {
		o.appendMessage(res, domain.Message{Role: domain.RoleModel, Content: reply.Text, Agent: domain.AgentOrchestrator})
		o.setState(domain.TurnDirectReply)
		o.audit(ctx, "Direct Response", domain.AgentOrchestrator, "Request clarification or general inquiry.", domain.AuditSuccess)
		res.State = domain.TurnDirectReply
		log.Info("turn answered directly", "elapsed_ms", o.opts.Now().Sub(start).Milliseconds())
		return res, nil
	}

	if len(reply.ToolCalls) > 1 {
		names := make([]string, 0, len(reply.ToolCalls))
		for _, c := range reply.ToolCalls {
			names = append(names, string(c.Name))
		}
		log.Warn("model requested several tools", "tools", names, "policy", o.opts.MultiToolPolicy)

		if o.opts.MultiToolPolicy == MultiToolReject {
			o.rejectMultiTool(turnCtx, ctx, res, reply.ToolCalls[0])
			return res, nil
		}
	}

	call := reply.ToolCalls[0]
	o.dispatch(turnCtx, ctx, res, call)
	log.Info("turn completed", "state", res.State, "agent", res.Agent, "elapsed_ms", o.opts.Now().Sub(start).Milliseconds())
	return res, nil
}

// dispatch carries out the selected tool call and delivers the final answer.
func (o *Orchestrator) dispatch(turnCtx, ctx context.Context, res *TurnResult, call domain.ToolCall) {
	log := observability.LoggerFromContext(ctx).With("tool", call.Name)

	route := Resolve(call.Name)
	agent, payload, status := route.Agent, route.Payload, domain.AuditSuccess

	decision, err := o.authorize(ctx, call, route)
	if err != nil {
		log.Error("dispatch policy failed", "error", err)
		decision = domain.DispatchDecision{Allowed: false, Reason: "policy error"}
	}
	if !decision.Allowed {
		status = domain.AuditDenied
		if route.Known {
			agent = domain.AgentOrchestrator
			payload = fmt.Sprintf("Access denied by dispatch policy: %s", decision.Reason)
		}
	}

	res.ToolCall = &call
	res.Agent = agent

	o.setAgent(agent)
	o.setState(domain.TurnDispatched)
	o.audit(ctx, "Dispatch Event", domain.AgentOrchestrator, fmt.Sprintf("Routing to %s", route.Agent), status)
	log.Info("dispatching", "agent", agent, "known", route.Known, "allowed", decision.Allowed)

	if err := o.wait(turnCtx); err != nil {
		o.fail(ctx, res, session.Describe(err), err)
		return
	}

	o.audit(ctx, "Data Processing", agent, fmt.Sprintf("Executing Tool: %s", call.Name), status)

	reply := o.session.SendToolResult(turnCtx, call, payload)
	if reply.Err != nil {
		o.fail(ctx, res, reply.Text, reply.Err)
		return
	}

	o.setAgent(domain.AgentOrchestrator)
	o.appendMessage(res, domain.Message{Role: domain.RoleModel, Content: reply.Text, Agent: domain.AgentOrchestrator})
	o.setState(domain.TurnToolResultSent)
	o.audit(ctx, "Response Delivery", domain.AgentOrchestrator, "Consolidated response sent to user.", domain.AuditSuccess)
	res.State = domain.TurnToolResultSent
}

// rejectMultiTool answers the first pending call with a refusal so the model
// session stays consistent, then asks the user to narrow the request.
func (o *Orchestrator) rejectMultiTool(turnCtx, ctx context.Context, res *TurnResult, first domain.ToolCall) {
	reply := o.session.SendToolResult(turnCtx, first, "Rejected: several specialists were requested for one message.")
	if reply.Err != nil {
		o.fail(ctx, res, reply.Text, reply.Err)
		return
	}

	o.appendMessage(res, domain.Message{Role: domain.RoleSystem, Content: MsgNarrowRequest, Agent: domain.AgentOrchestrator})
	o.setState(domain.TurnDirectReply)
	o.audit(ctx, "Dispatch Event", domain.AgentOrchestrator, "Several specialists requested, dispatch rejected.", domain.AuditDenied)
	res.State = domain.TurnDirectReply
}

func (o *Orchestrator) authorize(ctx context.Context, call domain.ToolCall, route Route) (domain.DispatchDecision, error) {
	if o.opts.Policy == nil {
		return domain.DispatchDecision{Allowed: route.Known, Reason: "no policy"}, nil
	}
	return o.opts.Policy.Authorize(ctx, domain.DispatchRequest{
		Tool:  call.Name,
		Agent: route.Agent,
		Known: route.Known,
		Query: call.Query(),
	})
}

func (o *Orchestrator) wait(ctx context.Context) error {
	if o.opts.DispatchDelay == 0 {
		return contextFailure(ctx.Err())
	}

	timer := time.NewTimer(o.opts.DispatchDelay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return contextFailure(ctx.Err())
	}
}

func contextFailure(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled):
		return &domain.ModelError{Kind: domain.ErrorKindCancelled, Err: err}
	default:
		return &domain.ModelError{Kind: domain.ErrorKindNetwork, Err: err}
	}
}

func (o *Orchestrator) fail(ctx context.Context, res *TurnResult, text string, cause error) {
	observability.LoggerFromContext(ctx).Error("turn failed", "kind", domain.KindOf(cause), "error", cause)

	if text == "" {
		text = MsgSystemError
	}
	o.appendMessage(res, domain.Message{Role: domain.RoleSystem, Content: text, Agent: domain.AgentOrchestrator})
	o.setState(domain.TurnFailed)
	res.State = domain.TurnFailed
}

// finish returns the cycle to idle whatever happened during the turn.
func (o *Orchestrator) finish(res *TurnResult) {
	o.setProcessing(false)
	o.setAgent(domain.AgentOrchestrator)
	o.setState(domain.TurnIdle)
}

func (o *Orchestrator) appendMessage(res *TurnResult, msg domain.Message) {
	stored := o.transcript.Append(msg)
	res.Messages = append(res.Messages, stored)
	o.emit(domain.ActivityEvent{Type: domain.EventMessageAppended, Message: &stored})
}

func (o *Orchestrator) setProcessing(v bool) {
	o.update(domain.EventProcessingChanged, func(a *Activity) bool {
		changed := a.Processing != v
		a.Processing = v
		return changed
	})
}

func (o *Orchestrator) setAgent(agent domain.AgentID) {
	o.update(domain.EventAgentChanged, func(a *Activity) bool {
		changed := a.ActiveAgent != agent
		a.ActiveAgent = agent
		return changed
	})
}

func (o *Orchestrator) setState(state domain.TurnState) {
	o.update(domain.EventStateChanged, func(a *Activity) bool {
		changed := a.State != state
		a.State = state
		return changed
	})
}

func (o *Orchestrator) update(typ domain.ActivityEventType, apply func(a *Activity) bool) {
	o.mu.Lock()
	changed := apply(&o.activity)
	o.mu.Unlock()

	if changed {
		o.emit(domain.ActivityEvent{Type: typ})
	}
}

func (o *Orchestrator) emit(ev domain.ActivityEvent) {
	o.mu.Lock()
	ev.Processing = o.activity.Processing
	ev.Agent = o.activity.ActiveAgent
	ev.State = o.activity.State
	listeners := make([]Listener, len(o.listeners))
	copy(listeners, o.listeners)
	o.mu.Unlock()

	ev.Timestamp = o.opts.Now()
	for _, l := range listeners {
		l.OnActivity(ev)
	}
}

func (o *Orchestrator) setCancel(cancel context.CancelFunc) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.cancel = cancel
}

func (o *Orchestrator) audit(ctx context.Context, action string, agent domain.AgentID, details string, status domain.AuditStatus) {
	if o.opts.Audit == nil {
		return
	}
	entry := &domain.AuditEntry{
		Timestamp: o.opts.Now(),
		Action:    action,
		Agent:     agent,
		Details:   details,
		Status:    status,
	}
	if err := o.opts.Audit.AppendAuditEntry(ctx, entry); err != nil {
		observability.LoggerFromContext(ctx).Error("failed to append audit entry", "action", action, "error", err)
	}
}

func preview(text string) string {
	r := []rune(text)
	if len(r) <= 30 {
		return text
	}
	return string(r[:30]) + "..."
}
