// Package handler holds the four destination handlers and the registry that
// binds them to destinations.
package handler

import (
	"context"
	"errors"
	"fmt"

	contractx "github.com/tanpawarit/Chative-Multi-Route-Dialogue/agent/contract"
)

// Registry maps every destination to exactly one handler.
type Registry struct {
	handlers map[contractx.Destination]contractx.Handler
}

// NewRegistry requires all four handlers; the default handler must always
// resolve.
func NewRegistry(sql, rag, action, general contractx.Handler) (*Registry, error) {
	if sql == nil {
		return nil, fmt.Errorf("%w: sql handler is required", contractx.ErrConfiguration)
	}
	if rag == nil {
		return nil, fmt.Errorf("%w: rag handler is required", contractx.ErrConfiguration)
	}
	if action == nil {
		return nil, fmt.Errorf("%w: action handler is required", contractx.ErrConfiguration)
	}
	if general == nil {
		return nil, fmt.Errorf("%w: default handler is required", contractx.ErrConfiguration)
	}

	return &Registry{
		handlers: map[contractx.Destination]contractx.Handler{
			contractx.DestinationSQL:     sql,
			contractx.DestinationRAG:     rag,
			contractx.DestinationAction:  action,
			contractx.DestinationDefault: general,
		},
	}, nil
}

func (r *Registry) Lookup(dest contractx.Destination) (contractx.Handler, error) {
	h, ok := r.handlers[dest]
	if !ok {
		return nil, fmt.Errorf("%w: destination=%q", contractx.ErrUnknownDestination, dest)
	}
	return h, nil
}

// Handle runs the handler registered for in.Destination. Every failure is
// tagged with contract.ErrHandlerFailure.
func (r *Registry) Handle(ctx context.Context, in contractx.HandlerInput, ictx contractx.InvocationContext) (contractx.HandlerResult, error) {
	h, err := r.Lookup(in.Destination)
	if err != nil {
		return contractx.HandlerResult{}, fmt.Errorf("%w: %w", contractx.ErrHandlerFailure, err)
	}

	out, err := h.Handle(ctx, in, ictx)
	if err != nil {
		if errors.Is(err, contractx.ErrHandlerFailure) {
			return contractx.HandlerResult{}, err
		}
		return contractx.HandlerResult{}, fmt.Errorf("%w: %s: %w", contractx.ErrHandlerFailure, in.Destination, err)
	}
	return out, nil
}
