package consumer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/wyfcoding/quotebook/pkg/mq"
)

func TestRebuildRequestHandler(t *testing.T) {
	calls := 0
	var failWith error
	h := NewRebuildRequestHandler(RebuildFunc(func(context.Context) (uint64, error) {
		calls++
		return 42, failWith
	}))
	ctx := context.Background()

	err := h.Handle(ctx, &mq.Message{Value: []byte(`{"reason":"new file","requested_by":"loader"}`)})
	assert.NoError(t, err)
	assert.Equal(t, 1, calls)

	// 无法解析的消息不触发重建，也不阻塞消费
	err = h.Handle(ctx, &mq.Message{Value: []byte(`not-json`)})
	assert.NoError(t, err)
	assert.Equal(t, 1, calls)

	failWith = errors.New("source unavailable")
	err = h.Handle(ctx, &mq.Message{Value: []byte(`{"reason":"retry"}`)})
	assert.ErrorIs(t, err, failWith)
	assert.Equal(t, 2, calls)
}
