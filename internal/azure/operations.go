package azure

import (
	"context"
	"fmt"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
)

// Operation tracks an in-flight asynchronous provider operation. It is
// created by a create/update/delete call and discarded once terminal.
type Operation[T any] interface {
	// Wait blocks until the operation reaches a terminal state and returns
	// the resulting resource. Terminal failures are returned unchanged.
	Wait(ctx context.Context) (T, error)
}

// pollerOperation adapts an ARM long-running-operation poller to Operation,
// extracting the resource from the final response envelope.
type pollerOperation[R any, T any] struct {
	poller   *runtime.Poller[R]
	extract  func(R) T
	interval time.Duration
}

func (p *pollerOperation[R, T]) Wait(ctx context.Context) (T, error) {
	var zero T
	resp, err := p.poller.PollUntilDone(ctx, &runtime.PollUntilDoneOptions{Frequency: p.interval})
	if err != nil {
		return zero, err
	}
	return p.extract(resp), nil
}

func newPollerOperation[R any, T any](poller *runtime.Poller[R], interval time.Duration, extract func(R) T) Operation[T] {
	return &pollerOperation[R, T]{poller: poller, extract: extract, interval: interval}
}

// completedOperation wraps the result of a synchronous provider call so it
// satisfies Operation.
type completedOperation[T any] struct {
	resource T
}

func (c *completedOperation[T]) Wait(context.Context) (T, error) {
	return c.resource, nil
}

// EnsureOperation encapsulates get-or-create for any Azure resource.
//
// Lookup hits are returned unchanged: there is no drift correction. On a
// lookup miss the desired state is validated and the create request is
// submitted; in synchronous mode the operation is awaited to its terminal
// provisioning state.
type EnsureOperation[T any, Opts any] struct {
	Name         string
	ResourceType string

	// Get retrieves the resource. A miss must surface as a not-found error.
	Get func(ctx context.Context) (T, error)

	// Preflight runs read-only checks (name availability) before creation.
	// Optional.
	Preflight func(ctx context.Context) error

	// BuildOpts validates the desired state and maps it to create options.
	// Missing required fields fail here, before any request is made.
	BuildOpts func() (Opts, error)

	// Create submits the create/update request.
	Create func(ctx context.Context, opts Opts) (Operation[T], error)
}

// Execute performs the ensure operation. When wait is false the create
// request is submitted and the in-progress resource is returned from a fresh
// lookup; the caller polls independently.
func (op *EnsureOperation[T, Opts]) Execute(ctx context.Context, wait bool) (T, error) {
	var zero T

	resource, err := op.Get(ctx)
	if err == nil {
		return resource, nil
	}
	if !IsNotFound(err) {
		return zero, fmt.Errorf("failed to get %s %q: %w", op.ResourceType, op.Name, err)
	}

	if op.Preflight != nil {
		if err := op.Preflight(ctx); err != nil {
			return zero, err
		}
	}

	opts, err := op.BuildOpts()
	if err != nil {
		return zero, err
	}

	handle, err := op.Create(ctx, opts)
	if err != nil {
		return zero, fmt.Errorf("failed to create %s %q: %w", op.ResourceType, op.Name, err)
	}

	if wait {
		resource, err = handle.Wait(ctx)
		if err != nil {
			return zero, fmt.Errorf("failed waiting for %s %q: %w", op.ResourceType, op.Name, err)
		}
		return resource, nil
	}

	resource, err = op.Get(ctx)
	if err != nil {
		return zero, fmt.Errorf("failed to get %s %q after create: %w", op.ResourceType, op.Name, err)
	}
	return resource, nil
}

// DeleteOperation encapsulates deletion for any Azure resource. In tolerant
// mode an already-absent resource counts as success.
type DeleteOperation struct {
	Name         string
	ResourceType string

	// Delete submits the delete request.
	Delete func(ctx context.Context) (Operation[struct{}], error)

	// TolerateMissing treats not-found as success.
	TolerateMissing bool
}

// Execute performs the delete operation, awaiting the terminal state when
// wait is true.
func (op *DeleteOperation) Execute(ctx context.Context, wait bool) error {
	handle, err := op.Delete(ctx)
	if err != nil {
		if op.TolerateMissing && IsNotFound(err) {
			return nil
		}
		return fmt.Errorf("failed to delete %s %q: %w", op.ResourceType, op.Name, err)
	}

	if !wait {
		return nil
	}

	if _, err := handle.Wait(ctx); err != nil {
		if op.TolerateMissing && IsNotFound(err) {
			return nil
		}
		return fmt.Errorf("failed waiting for deletion of %s %q: %w", op.ResourceType, op.Name, err)
	}
	return nil
}
