package dispatcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSubmitReturnsResult(t *testing.T) {
	p := New(WithWorkers(2))
	defer p.Close()

	val, err := p.Submit(context.Background(), func(ctx context.Context) (interface{}, error) {
		return 42, nil
	})
	require.NoError(t, err)
	require.Equal(t, 42, val)
}

func TestSubmitPropagatesError(t *testing.T) {
	p := New(WithWorkers(1))
	defer p.Close()

	boom := errors.New("boom")
	_, err := p.Submit(context.Background(), func(ctx context.Context) (interface{}, error) {
		return nil, boom
	})
	require.ErrorIs(t, err, boom)
}

func TestSubmitCancellation(t *testing.T) {
	p := New(WithWorkers(1))
	defer p.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Submit(ctx, func(ctx context.Context) (interface{}, error) {
		time.Sleep(50 * time.Millisecond)
		return nil, nil
	})
	require.ErrorIs(t, err, context.Canceled)
}

func TestSubmitRecoversPanic(t *testing.T) {
	p := New(WithWorkers(1))
	defer p.Close()

	_, err := p.Submit(context.Background(), func(ctx context.Context) (interface{}, error) {
		panic("kaboom")
	})
	require.Error(t, err)
}
