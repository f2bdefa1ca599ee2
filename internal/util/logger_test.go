package util

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestLoggerFromContext(t *testing.T) {
	fallback := zap.NewNop()
	scoped := zap.NewNop().With(zap.String("request_id", "r1"))

	assert.Same(t, fallback, LoggerFromContext(context.Background(), fallback))
	assert.Same(t, scoped, LoggerFromContext(WithLogger(context.Background(), scoped), fallback))
	assert.NotNil(t, LoggerFromContext(context.Background(), nil))
}

func TestGetLoggerIsSafeForConcurrentUse(t *testing.T) {
	var wg sync.WaitGroup
	got := make([]*zap.Logger, 16)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i] = GetLogger()
		}(i)
	}
	wg.Wait()

	for _, l := range got {
		assert.Same(t, got[0], l)
	}
}
