// Package source 为报价来源提供重试与熔断包装
package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/sony/gobreaker"
	"github.com/wyfcoding/quotebook/internal/quotebook/domain"
	"github.com/wyfcoding/quotebook/pkg/config"
	"github.com/wyfcoding/quotebook/pkg/logger"
)

// Resilient 对底层 QuoteSource 加指数退避重试与熔断
// 数据本身无效（ErrInvalidQuote、ErrInvalidTimestamp）属于永久错误，不重试
type Resilient struct {
	next    domain.QuoteSource
	retry   config.RetryConfig
	breaker *gobreaker.CircuitBreaker
}

// NewResilient 创建带重试与熔断的报价来源；cb.Enabled 为 false 时不启用熔断
func NewResilient(next domain.QuoteSource, retry config.RetryConfig, cb config.CircuitBreakerConfig) *Resilient {
	r := &Resilient{next: next, retry: retry}
	if cb.Enabled {
		failures := cb.ConsecutiveFailures
		if failures == 0 {
			failures = 5
		}
		r.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        next.Describe(),
			MaxRequests: cb.MaxRequests,
			Timeout:     time.Duration(cb.Timeout) * time.Millisecond,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= failures
			},
			IsSuccessful: func(err error) bool {
				return err == nil || isPermanent(err)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn(context.Background(), "quote source circuit breaker state changed",
					"source", name, "from", from.String(), "to", to.String())
			},
		})
	}
	return r
}

// Describe 返回底层来源描述
func (r *Resilient) Describe() string {
	return r.next.Describe()
}

// Load 带重试地加载报价
func (r *Resilient) Load(ctx context.Context) ([]domain.Quote, error) {
	b := backoff.NewExponentialBackOff()
	if r.retry.InitialInterval > 0 {
		b.InitialInterval = time.Duration(r.retry.InitialInterval) * time.Millisecond
	}
	if r.retry.MaxInterval > 0 {
		b.MaxInterval = time.Duration(r.retry.MaxInterval) * time.Millisecond
	}
	attempts := r.retry.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	return backoff.Retry(ctx, func() ([]domain.Quote, error) {
		quotes, err := r.loadOnce(ctx)
		if err != nil && (isPermanent(err) || errors.Is(err, gobreaker.ErrOpenState)) {
			return nil, backoff.Permanent(err)
		}
		return quotes, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(attempts)),
		backoff.WithNotify(func(err error, next time.Duration) {
			logger.Warn(ctx, "quote source load failed, retrying",
				"source", r.next.Describe(), "error", err, "retry_in", next)
		}),
	)
}

func (r *Resilient) loadOnce(ctx context.Context) ([]domain.Quote, error) {
	if r.breaker == nil {
		return r.next.Load(ctx)
	}
	res, err := r.breaker.Execute(func() (any, error) {
		return r.next.Load(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", r.next.Describe(), err)
	}
	return res.([]domain.Quote), nil
}

func isPermanent(err error) bool {
	return errors.Is(err, domain.ErrInvalidQuote) ||
		errors.Is(err, domain.ErrInvalidTimestamp) ||
		errors.Is(err, context.Canceled)
}
