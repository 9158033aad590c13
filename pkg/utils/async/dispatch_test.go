package async_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/riskledger/pkg/utils/async"
)

func TestDispatch_Wait(t *testing.T) {
	var ran atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())

	for range 3 {
		async.Dispatch(ctx, "count", func(ctx context.Context) error {
			time.Sleep(10 * time.Millisecond)
			// the caller's cancellation does not reach the handler
			if ctx.Err() != nil {
				return ctx.Err()
			}
			ran.Add(1)
			return nil
		})
	}
	cancel()

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer waitCancel()
	gt.NoError(t, async.Wait(waitCtx))
	gt.Value(t, ran.Load()).Equal(int32(3))
}

func TestDispatch_ErrorAndPanic(t *testing.T) {
	ctx := context.Background()
	async.Dispatch(ctx, "fail", func(ctx context.Context) error {
		return goerr.New("boom")
	})
	async.Dispatch(ctx, "panic", func(ctx context.Context) error {
		panic("boom")
	})

	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	gt.NoError(t, async.Wait(waitCtx))
}

func TestWait_Timeout(t *testing.T) {
	release := make(chan struct{})
	async.Dispatch(context.Background(), "block", func(ctx context.Context) error {
		<-release
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	gt.Error(t, async.Wait(ctx))

	close(release)
	gt.NoError(t, async.Wait(context.Background()))
}
