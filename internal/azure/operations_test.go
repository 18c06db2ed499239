package azure

import (
	"context"
	"errors"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func notFoundErr() error {
	return &azcore.ResponseError{StatusCode: 404, ErrorCode: "ResourceNotFound"}
}

type fakeResource struct {
	Name  string
	State string
}

func TestEnsureOperation_ExistingReturnedUnchanged(t *testing.T) {
	t.Parallel()

	existing := &fakeResource{Name: "web", State: "Succeeded"}
	creates := 0

	op := &EnsureOperation[*fakeResource, struct{}]{
		Name:         "web",
		ResourceType: "widget",
		Get: func(context.Context) (*fakeResource, error) {
			return existing, nil
		},
		BuildOpts: func() (struct{}, error) { return struct{}{}, nil },
		Create: func(context.Context, struct{}) (Operation[*fakeResource], error) {
			creates++
			return &completedOperation[*fakeResource]{resource: &fakeResource{Name: "web"}}, nil
		},
	}

	got, err := op.Execute(context.Background(), true)
	require.NoError(t, err)
	assert.Same(t, existing, got, "lookup hits bypass creation")
	assert.Zero(t, creates)
}

func TestEnsureOperation_CreatesOnMiss(t *testing.T) {
	t.Parallel()

	created := &fakeResource{Name: "web", State: "Succeeded"}
	creates := 0

	op := &EnsureOperation[*fakeResource, string]{
		Name:         "web",
		ResourceType: "widget",
		Get: func(context.Context) (*fakeResource, error) {
			return nil, notFoundErr()
		},
		BuildOpts: func() (string, error) { return "opts", nil },
		Create: func(_ context.Context, opts string) (Operation[*fakeResource], error) {
			creates++
			assert.Equal(t, "opts", opts)
			return &completedOperation[*fakeResource]{resource: created}, nil
		},
	}

	got, err := op.Execute(context.Background(), true)
	require.NoError(t, err)
	assert.Same(t, created, got)
	assert.Equal(t, 1, creates)
}

func TestEnsureOperation_SecondEnsureIsLookupHit(t *testing.T) {
	t.Parallel()

	var stored *fakeResource
	creates := 0

	op := &EnsureOperation[*fakeResource, struct{}]{
		Name:         "web",
		ResourceType: "widget",
		Get: func(context.Context) (*fakeResource, error) {
			if stored == nil {
				return nil, notFoundErr()
			}
			return stored, nil
		},
		BuildOpts: func() (struct{}, error) { return struct{}{}, nil },
		Create: func(context.Context, struct{}) (Operation[*fakeResource], error) {
			creates++
			stored = &fakeResource{Name: "web", State: "Succeeded"}
			return &completedOperation[*fakeResource]{resource: stored}, nil
		},
	}

	_, err := op.Execute(context.Background(), true)
	require.NoError(t, err)
	_, err = op.Execute(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, 1, creates, "repeated ensure must not create twice")
}

func TestEnsureOperation_AsyncRefetches(t *testing.T) {
	t.Parallel()

	var stored *fakeResource

	op := &EnsureOperation[*fakeResource, struct{}]{
		Name:         "web",
		ResourceType: "widget",
		Get: func(context.Context) (*fakeResource, error) {
			if stored == nil {
				return nil, notFoundErr()
			}
			return stored, nil
		},
		BuildOpts: func() (struct{}, error) { return struct{}{}, nil },
		Create: func(context.Context, struct{}) (Operation[*fakeResource], error) {
			stored = &fakeResource{Name: "web", State: "Creating"}
			return &completedOperation[*fakeResource]{resource: &fakeResource{Name: "web", State: "Succeeded"}}, nil
		},
	}

	got, err := op.Execute(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, "Creating", got.State, "async mode returns the in-progress resource")
}

func TestEnsureOperation_GetFailurePropagates(t *testing.T) {
	t.Parallel()

	creates := 0
	op := &EnsureOperation[*fakeResource, struct{}]{
		Name:         "web",
		ResourceType: "widget",
		Get: func(context.Context) (*fakeResource, error) {
			return nil, errors.New("transport down")
		},
		BuildOpts: func() (struct{}, error) { return struct{}{}, nil },
		Create: func(context.Context, struct{}) (Operation[*fakeResource], error) {
			creates++
			return nil, nil
		},
	}

	_, err := op.Execute(context.Background(), true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transport down")
	assert.Zero(t, creates, "only a not-found miss triggers creation")
}

func TestEnsureOperation_PreflightBlocksCreate(t *testing.T) {
	t.Parallel()

	creates := 0
	taken := &NameTakenError{ResourceType: "widget", Name: "web"}

	op := &EnsureOperation[*fakeResource, struct{}]{
		Name:         "web",
		ResourceType: "widget",
		Get: func(context.Context) (*fakeResource, error) {
			return nil, notFoundErr()
		},
		Preflight: func(context.Context) error { return taken },
		BuildOpts: func() (struct{}, error) { return struct{}{}, nil },
		Create: func(context.Context, struct{}) (Operation[*fakeResource], error) {
			creates++
			return nil, nil
		},
	}

	_, err := op.Execute(context.Background(), true)
	var nameErr *NameTakenError
	require.ErrorAs(t, err, &nameErr)
	assert.Zero(t, creates)
}

func TestEnsureOperation_MissingFieldBlocksCreate(t *testing.T) {
	t.Parallel()

	creates := 0
	op := &EnsureOperation[*fakeResource, struct{}]{
		Name:         "web",
		ResourceType: "widget",
		Get: func(context.Context) (*fakeResource, error) {
			return nil, notFoundErr()
		},
		BuildOpts: func() (struct{}, error) {
			return struct{}{}, &MissingFieldError{ResourceType: "widget", Field: "size"}
		},
		Create: func(context.Context, struct{}) (Operation[*fakeResource], error) {
			creates++
			return nil, nil
		},
	}

	_, err := op.Execute(context.Background(), true)
	var missing *MissingFieldError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "size", missing.Field)
	assert.Zero(t, creates)
}

func TestDeleteOperation_TolerantMissing(t *testing.T) {
	t.Parallel()

	op := &DeleteOperation{
		Name:            "web",
		ResourceType:    "widget",
		TolerateMissing: true,
		Delete: func(context.Context) (Operation[struct{}], error) {
			return nil, notFoundErr()
		},
	}

	assert.NoError(t, op.Execute(context.Background(), true), "deleting an absent resource succeeds")
}

func TestDeleteOperation_StrictMissing(t *testing.T) {
	t.Parallel()

	op := &DeleteOperation{
		Name:         "web",
		ResourceType: "widget",
		Delete: func(context.Context) (Operation[struct{}], error) {
			return nil, notFoundErr()
		},
	}

	assert.Error(t, op.Execute(context.Background(), true))
}

func TestDeleteOperation_AsyncSkipsWait(t *testing.T) {
	t.Parallel()

	waited := false
	op := &DeleteOperation{
		Name:         "web",
		ResourceType: "widget",
		Delete: func(context.Context) (Operation[struct{}], error) {
			return &waitTracker{waited: &waited}, nil
		},
	}

	require.NoError(t, op.Execute(context.Background(), false))
	assert.False(t, waited)

	require.NoError(t, op.Execute(context.Background(), true))
	assert.True(t, waited)
}

type waitTracker struct {
	waited *bool
}

func (w *waitTracker) Wait(context.Context) (struct{}, error) {
	*w.waited = true
	return struct{}{}, nil
}
