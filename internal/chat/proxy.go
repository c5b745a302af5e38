// Package chat implements the site assistant: a rate-limited proxy that
// forwards a bounded conversation to a completion provider.
package chat

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	"github.com/ixra/ixra-api/internal/ailink"
	"github.com/ixra/ixra-api/internal/ailink/content"
	"github.com/ixra/ixra-api/internal/ailink/driver"
	"github.com/ixra/ixra-api/internal/ailink/prompt"
	"github.com/ixra/ixra-api/internal/core/engine"
	"github.com/ixra/ixra-api/internal/metrics"
)

// Mode selects how replies are delivered.
type Mode string

const (
	ModeComplete Mode = "complete"
	ModeStream   Mode = "stream"
)

// ParseMode maps a config value to a Mode. Unknown values fall back to ModeComplete.
func ParseMode(v string) Mode {
	if Mode(strings.ToLower(strings.TrimSpace(v))) == ModeStream {
		return ModeStream
	}
	return ModeComplete
}

// State is the terminal state of a chat request.
type State string

const (
	StateAdmitted     State = "admitted"
	StateRejected     State = "rejected"
	StateInvalid      State = "invalid"
	StateUnconfigured State = "unconfigured"
	StateCompleted    State = "completed"
	StateStreamed     State = "streamed"
	StateFailed       State = "failed"
)

// Canned replies shown to visitors.
const (
	RateLimitedMessage  = "You've sent a lot of messages. Please wait a bit and try again, or email LandonKancir@Ixra.tech."
	UnconfiguredMessage = "Our assistant is being set up. In the meantime, use the contact form below or email LandonKancir@Ixra.tech."
	FailureMessage      = "Sorry, I'm having trouble connecting right now. Please try again or email LandonKancir@Ixra.tech."
	EmptyReplyMessage   = "I couldn't come up with a response. Please try again or email LandonKancir@Ixra.tech."
)

// Defaults for conversation bounds.
const (
	DefaultMaxTurns     = 10
	DefaultMaxTurnChars = 4000
)

// Turn is one message of the visitor's conversation, oldest first.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Options tunes a Proxy.
type Options struct {
	Mode         Mode
	Limit        engine.RateLimit
	MaxTurns     int
	MaxTurnChars int
	AILink       ailink.Config
}

// Reply is the outcome of a chat request.
type Reply struct {
	State      State
	Content    string
	RetryAfter time.Duration
	Remaining  int
	// Started is true once at least one chunk was handed to the stream callback.
	Started bool
	Err     error
}

// Proxy enforces the per-client quota and forwards conversations upstream.
type Proxy struct {
	limiter *engine.RateLimiter
	driver  driver.Driver
	prompts *prompt.Source
	opts    Options
	logger  *logging.Logger
}

// NewProxy wires a proxy. drv may be nil when no provider is configured.
func NewProxy(limiter *engine.RateLimiter, drv driver.Driver, prompts *prompt.Source, opts Options, logger *logging.Logger) *Proxy {
	if opts.Limit.Validate() != nil {
		opts.Limit = engine.DefaultChatLimit
	}
	if opts.MaxTurns <= 0 {
		opts.MaxTurns = DefaultMaxTurns
	}
	if opts.MaxTurnChars <= 0 {
		opts.MaxTurnChars = DefaultMaxTurnChars
	}
	if opts.Mode == "" {
		opts.Mode = ModeComplete
	}
	opts.AILink = opts.AILink.WithDefaults()

	return &Proxy{
		limiter: limiter,
		driver:  drv,
		prompts: prompts,
		opts:    opts,
		logger:  logger,
	}
}

// Mode returns the configured delivery mode.
func (p *Proxy) Mode() Mode {
	return p.opts.Mode
}

// Handle runs the full pipeline: quota, validation, credential guard, forward.
func (p *Proxy) Handle(ctx context.Context, clientID string, turns []Turn, emit func(string) error) Reply {
	if reply := p.Admit(ctx, clientID); reply.State != StateAdmitted {
		return reply
	}
	return p.Respond(ctx, turns, emit)
}

// Admit counts one request against the client's quota.
func (p *Proxy) Admit(ctx context.Context, clientID string) Reply {
	key := "chat:" + clientID
	res, err := p.limiter.Check(ctx, key, p.opts.Limit)
	if err != nil {
		// The limiter admits on store failures; only log here.
		p.warn("rate limit store unavailable, admitting request", zap.String("client_id", clientID), zap.Error(err))
	}

	metrics.RecordRateLimitDecision("chat", res.Success)
	if !res.Success {
		retry := res.RetryAfter(p.now())
		p.info("chat_rate_limited", zap.String("client_id", clientID), zap.Duration("retry_after", retry))
		metrics.RecordChatOutcome(string(StateRejected), string(p.opts.Mode))
		return Reply{State: StateRejected, Content: RateLimitedMessage, RetryAfter: retry}
	}

	return Reply{State: StateAdmitted, Remaining: res.Remaining}
}

// Respond validates the conversation and produces the assistant reply.
//
// In stream mode with a non-nil emit, text deltas are passed to emit as they
// arrive. Any reply whose Started is false has not written anything yet.
func (p *Proxy) Respond(ctx context.Context, turns []Turn, emit func(string) error) Reply {
	if err := p.Validate(turns); err != nil {
		metrics.RecordChatOutcome(string(StateInvalid), string(p.opts.Mode))
		return Reply{State: StateInvalid, Content: err.Error(), Err: err}
	}

	if p.driver == nil || !p.opts.AILink.Configured() {
		p.warn("chat_unconfigured", zap.String("provider", p.opts.AILink.Provider))
		metrics.RecordChatOutcome(string(StateUnconfigured), string(p.opts.Mode))
		return Reply{State: StateUnconfigured, Content: UnconfiguredMessage}
	}

	req := p.BuildRequest(turns)

	ctx, cancel := context.WithTimeout(ctx, p.opts.AILink.Timeout)
	defer cancel()

	var reply Reply
	if streamer, ok := p.driver.(driver.Streamer); ok && p.opts.Mode == ModeStream && emit != nil {
		reply = p.stream(ctx, streamer, req, emit)
	} else {
		reply = p.complete(ctx, req)
	}

	metrics.RecordChatOutcome(string(reply.State), string(p.opts.Mode))
	return reply
}

// Validate checks roles and sizes of the conversation.
func (p *Proxy) Validate(turns []Turn) error {
	if len(turns) == 0 {
		return fmt.Errorf("messages are required")
	}
	for i, turn := range turns {
		switch turn.Role {
		case content.RoleUser, content.RoleAssistant:
		default:
			return fmt.Errorf("message %d has invalid role %q", i, turn.Role)
		}
		if strings.TrimSpace(turn.Content) == "" {
			return fmt.Errorf("message %d is empty", i)
		}
		if utf8.RuneCountInString(turn.Content) > p.opts.MaxTurnChars {
			return fmt.Errorf("message %d exceeds %d characters", i, p.opts.MaxTurnChars)
		}
	}
	return nil
}

// BuildRequest truncates the conversation and prepends the system prompt.
func (p *Proxy) BuildRequest(turns []Turn) *driver.Request {
	turns = Truncate(turns, p.opts.MaxTurns)

	messages := make([]content.Message, 0, len(turns)+1)
	if system := p.prompts.System(); system != "" {
		messages = append(messages, content.TextMessage(content.RoleSystem, system))
	}
	for _, turn := range turns {
		messages = append(messages, content.TextMessage(turn.Role, turn.Content))
	}

	maxTokens := p.opts.AILink.MaxCompletionTokens
	return &driver.Request{
		Model:               p.opts.AILink.Model,
		Messages:            messages,
		MaxCompletionTokens: &maxTokens,
		ReasoningEffort:     p.opts.AILink.ReasoningEffort,
	}
}

// Truncate keeps the most recent max turns.
func Truncate(turns []Turn, max int) []Turn {
	if max <= 0 || len(turns) <= max {
		return turns
	}
	return turns[len(turns)-max:]
}

func (p *Proxy) complete(ctx context.Context, req *driver.Request) Reply {
	start := time.Now()
	resp, err := p.driver.Complete(ctx, req)
	metrics.RecordChatUpstream(p.driver.Name(), err == nil, time.Since(start))
	if err != nil {
		p.upstreamFailed(err, false)
		return Reply{State: StateFailed, Content: FailureMessage, Err: err}
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		p.warn("chat_empty_reply", zap.String("finish_reason", resp.FinishReason))
		return Reply{State: StateCompleted, Content: EmptyReplyMessage}
	}

	p.debugUsage(resp)
	return Reply{State: StateCompleted, Content: text}
}

func (p *Proxy) stream(ctx context.Context, streamer driver.Streamer, req *driver.Request, emit func(string) error) Reply {
	start := time.Now()
	started := false
	resp, err := streamer.Stream(ctx, req, func(delta string) error {
		started = true
		return emit(delta)
	})
	metrics.RecordChatUpstream(p.driver.Name(), err == nil, time.Since(start))
	if err != nil {
		p.upstreamFailed(err, started)
		if started {
			return Reply{State: StateFailed, Started: true, Err: err}
		}
		return Reply{State: StateFailed, Content: FailureMessage, Err: err}
	}
	if !started {
		p.warn("chat_empty_reply", zap.String("finish_reason", resp.FinishReason))
		return Reply{State: StateCompleted, Content: EmptyReplyMessage}
	}

	p.debugUsage(resp)
	return Reply{State: StateStreamed, Content: resp.Text(), Started: true}
}

func (p *Proxy) upstreamFailed(err error, midStream bool) {
	failure := ailink.ClassifyError(err)
	fields := []zap.Field{
		zap.String("provider", p.driver.Name()),
		zap.String("failure_code", failure.Code),
		zap.Bool("mid_stream", midStream),
		zap.Error(err),
	}
	if failure.StatusCode > 0 {
		fields = append(fields, zap.Int("provider_status", failure.StatusCode))
	}
	if failure.Code == "AILINK_CLIENT_CANCELED" {
		p.info("chat_client_canceled", fields...)
		return
	}
	p.error("chat_upstream_failed", fields...)
}

func (p *Proxy) debugUsage(resp *driver.Response) {
	if resp == nil || resp.Usage == nil {
		return
	}
	if l := p.log(); l != nil {
		l.Debug("chat_completed",
			zap.Int("prompt_tokens", resp.Usage.PromptTokens),
			zap.Int("completion_tokens", resp.Usage.CompletionTokens),
			zap.String("finish_reason", resp.FinishReason))
	}
}

func (p *Proxy) now() time.Time {
	if p.limiter != nil && p.limiter.Clock != nil {
		return p.limiter.Clock()
	}
	return time.Now().UTC()
}

func (p *Proxy) log() *logging.Logger {
	return p.logger
}

func (p *Proxy) info(msg string, fields ...zap.Field) {
	if l := p.log(); l != nil {
		l.Info(msg, fields...)
	}
}

func (p *Proxy) warn(msg string, fields ...zap.Field) {
	if l := p.log(); l != nil {
		l.Warn(msg, fields...)
	}
}

func (p *Proxy) error(msg string, fields ...zap.Field) {
	if l := p.log(); l != nil {
		l.Error(msg, fields...)
	}
}
