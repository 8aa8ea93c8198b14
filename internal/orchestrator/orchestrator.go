package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"lmbridge/internal/catalog"
	"lmbridge/internal/llm"
	"lmbridge/internal/registrar"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ToolResultEvent is the caller-visible outcome of one tool invocation.
type ToolResultEvent struct {
	ID      string
	Name    string
	Result  string
	IsError bool
}

// Sink receives turn output in model emission order. A sink error means
// the transport is gone; the turn is abandoned without retry.
type Sink interface {
	Text(ctx context.Context, text string) error
	ToolCall(ctx context.Context, call llm.ToolCall) error
	ToolResult(ctx context.Context, event ToolResultEvent) error
}

// Invoker is the slice of the model runtime used to execute tool calls.
type Invoker interface {
	InvokeTool(ctx context.Context, name string, input map[string]any) (llm.ToolResult, error)
}

// Discoverer resolves signatures for tools the runtime reports as unknown.
type Discoverer interface {
	Discover(ctx context.Context, name string) catalog.ToolSignature
}

// Registrar binds discovered signatures so a retried turn can call them.
type Registrar interface {
	EnsureDiscoveredRegistered(sig catalog.ToolSignature) bool
}

// Orchestrator drives one logical chat turn: dispatch, cooperative stream
// consumption, synchronous tool execution, and bounded re-dispatch when a
// tool result carries the discovery sentinel. One orchestrator serves
// concurrent turns; all per-turn state lives in a retryContext.
type Orchestrator struct {
	invoker    Invoker
	discovery  Discoverer
	registrar  Registrar
	logger     *slog.Logger
	maxRetries int
	retryDelay time.Duration
}

func New(invoker Invoker, discovery Discoverer, reg Registrar, maxRetries int, retryDelay time.Duration, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}

	return &Orchestrator{
		invoker:    invoker,
		discovery:  discovery,
		registrar:  reg,
		logger:     logger,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
	}
}

// retryContext is the per-turn state threaded through the dispatch loop.
// The same messages and options are re-sent on every retry. lastCall is
// the tool call that triggered the pending retry; a failed re-dispatch is
// reported against it.
type retryContext struct {
	messages   []llm.Message
	opts       llm.Options
	retryCount int
	maxRetries int
	lastCall   llm.ToolCall
}

// Run executes the turn against model, forwarding output to sink. The
// returned usage is the runtime's accounting for the final dispatch, nil
// when the runtime reported none. Only an error from the initial dispatch
// is returned to the caller; once anything may have been streamed, a
// failed re-dispatch is reported in-band as an error-flagged tool result
// so the stream still closes well-formed. Sink write failures abandon the
// turn silently.
func (o *Orchestrator) Run(ctx context.Context, model llm.Model, messages []llm.Message, opts llm.Options, sink Sink) (*llm.Usage, error) {
	rc := retryContext{
		messages:   messages,
		opts:       opts,
		maxRetries: o.maxRetries,
	}

	for {
		usage, retry, err := o.runOnce(ctx, model, &rc, sink)
		if err != nil {
			if rc.retryCount == 0 {
				return nil, err
			}

			o.logger.Error("Re-dispatch failed",
				"model", model.ID(),
				"retry", rc.retryCount,
				"error", err,
			)

			_ = o.emit(ctx, sink, ToolResultEvent{
				ID:      rc.lastCall.ID,
				Name:    rc.lastCall.Name,
				Result:  fmt.Sprintf("model dispatch failed after tool registration: %v", err),
				IsError: true,
			})

			return nil, nil
		}

		if !retry {
			return usage, nil
		}

		rc.retryCount++
		o.logger.Info("Re-dispatching turn after tool discovery",
			"model", model.ID(),
			"retry", rc.retryCount,
			"max_retries", rc.maxRetries,
		)

		// Let the fresh registration settle before the next dispatch.
		select {
		case <-time.After(o.retryDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (o *Orchestrator) runOnce(ctx context.Context, model llm.Model, rc *retryContext, sink Sink) (*llm.Usage, bool, error) {
	// Each dispatch gets its own cancel so an abandoned stream (retry or
	// dead sink) releases the producer.
	sendCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream, err := model.Send(sendCtx, rc.messages, rc.opts)
	if err != nil {
		return nil, false, err
	}

	var usage *llm.Usage

	for part := range stream {
		switch part.Type {
		case llm.PartText:
			if err := sink.Text(ctx, part.Text); err != nil {
				o.logger.Debug("Sink write failed, abandoning turn", "error", err)
				return nil, false, nil
			}
		case llm.PartToolCall:
			retry, err := o.handleToolCall(ctx, *part.ToolCall, rc, sink)
			if err != nil {
				return nil, false, nil
			}

			if retry {
				cancel()
				go drain(stream)

				return nil, true, nil
			}
		case llm.PartDone:
			usage = part.Usage
		case llm.PartError:
			o.logger.Error("Model stream reported error", "model", model.ID(), "error", part.Err)

			// Forward the failure in-band so the stream stays well-formed.
			event := ToolResultEvent{
				Name:    model.ID(),
				Result:  part.Err,
				IsError: true,
			}
			if err := o.emit(ctx, sink, event); err != nil {
				return nil, false, nil
			}
		}
	}

	return usage, false, nil
}

// handleToolCall forwards the call event, executes the tool synchronously,
// and decides between forwarding the result and triggering a retry. The
// returned error only ever reports a dead sink.
func (o *Orchestrator) handleToolCall(ctx context.Context, call llm.ToolCall, rc *retryContext, sink Sink) (bool, error) {
	if err := sink.ToolCall(ctx, call); err != nil {
		o.logger.Debug("Sink write failed, abandoning turn", "error", err)
		return false, err
	}

	result, err := o.invoker.InvokeTool(ctx, call.Name, decodeArguments(call.Arguments))
	if err != nil {
		return o.handleInvokeFailure(ctx, call, rc, sink, err)
	}

	text := result.Text()

	if strings.Contains(text, registrar.DiscoverySentinel) && rc.retryCount < rc.maxRetries {
		// The sentinel stays internal while retries remain.
		rc.lastCall = call
		return true, nil
	}

	event := ToolResultEvent{
		ID:      call.ID,
		Name:    call.Name,
		Result:  text,
		IsError: result.IsError,
	}

	if err := sink.ToolResult(ctx, event); err != nil {
		o.logger.Debug("Sink write failed, abandoning turn", "error", err)
		return false, err
	}

	return false, nil
}

// handleInvokeFailure classifies the invoke error. Unknown-tool errors go
// through discovery and registration, then trigger the sentinel path;
// everything else becomes an error-flagged result in the stream.
func (o *Orchestrator) handleInvokeFailure(ctx context.Context, call llm.ToolCall, rc *retryContext, sink Sink, invokeErr error) (bool, error) {
	if isUnknownTool(invokeErr) && o.discovery != nil && o.registrar != nil {
		sig := o.discovery.Discover(ctx, call.Name)
		registered := o.registrar.EnsureDiscoveredRegistered(sig)

		o.logger.Info("Discovered tool after unknown-tool failure",
			"tool", call.Name,
			"registered", registered,
		)

		if rc.retryCount < rc.maxRetries {
			rc.lastCall = call
			return true, nil
		}

		return false, o.emit(ctx, sink, ToolResultEvent{
			ID:     call.ID,
			Name:   call.Name,
			Result: registrar.DiscoveryNotice(call.Name),
		})
	}

	o.logger.Warn("Tool invocation failed", "tool", call.Name, "error", invokeErr)

	return false, o.emit(ctx, sink, ToolResultEvent{
		ID:      call.ID,
		Name:    call.Name,
		Result:  invokeErr.Error(),
		IsError: true,
	})
}

func (o *Orchestrator) emit(ctx context.Context, sink Sink, event ToolResultEvent) error {
	if err := sink.ToolResult(ctx, event); err != nil {
		o.logger.Debug("Sink write failed, abandoning turn", "error", err)
		return err
	}

	return nil
}

func isUnknownTool(err error) bool {
	if errors.Is(err, llm.ErrToolNotRegistered) {
		return true
	}

	msg := strings.ToLower(err.Error())

	return strings.Contains(msg, "not found") || strings.Contains(msg, "not registered")
}

func decodeArguments(raw string) map[string]any {
	if raw == "" {
		return map[string]any{}
	}

	var input map[string]any
	if err := json.Unmarshal([]byte(raw), &input); err != nil {
		return map[string]any{"input": raw}
	}

	return input
}

func drain(stream <-chan llm.Part) {
	for range stream {
	}
}
