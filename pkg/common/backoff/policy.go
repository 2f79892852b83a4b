// Copyright (c) 2019 Uber Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package backoff

import (
	"time"
)

const (
	// Done is returned by a Retrier once the policy's attempt budget is
	// spent. Callers must treat it as "stop retrying", never as a delay.
	Done time.Duration = -1
)

// Retrier hands out successive backoff intervals for one retried operation.
// A Retrier holds per-operation state and must not be shared between
// operations; the policy backing it may be.
type Retrier interface {
	NextBackOff() time.Duration
}

// NewRetrier creates a Retrier starting at the first attempt of the given
// policy.
func NewRetrier(policy RetryPolicy) Retrier {
	return &retrierImpl{
		policy:         policy,
		currentAttempt: 1,
	}
}

type retrierImpl struct {
	policy         RetryPolicy
	currentAttempt int
}

// NextBackOff returns the delay to apply after the current attempt failed,
// or Done when the attempt budget is exhausted.
func (r *retrierImpl) NextBackOff() time.Duration {
	next := r.policy.CalculateNextDelay(r.currentAttempt)
	r.currentAttempt++
	return next
}

// RetryPolicy decides the delay after a given number of completed attempts.
type RetryPolicy interface {
	CalculateNextDelay(attempts int) time.Duration
}

// NewRetryPolicy returns a policy retrying up to maxAttempts times with a
// constant interval between attempts.
func NewRetryPolicy(maxAttempts int, retryInterval time.Duration) RetryPolicy {
	return &retryPolicy{
		maxAttempts:   maxAttempts,
		retryInterval: retryInterval,
	}
}

type retryPolicy struct {
	maxAttempts   int
	retryInterval time.Duration
}

// CalculateNextDelay returns the constant interval, or Done past maxAttempts.
func (p *retryPolicy) CalculateNextDelay(attempts int) time.Duration {
	if attempts >= p.maxAttempts {
		return Done
	}
	return p.retryInterval
}

// NewExponentialRetryPolicy returns a policy retrying up to maxAttempts times
// where the delay after the n-th failed attempt is initialInterval doubled
// n-1 times, optionally capped at maxInterval (0 means uncapped).
func NewExponentialRetryPolicy(
	maxAttempts int,
	initialInterval time.Duration,
	maxInterval time.Duration,
) RetryPolicy {
	return &exponentialRetryPolicy{
		maxAttempts:     maxAttempts,
		initialInterval: initialInterval,
		maxInterval:     maxInterval,
	}
}

type exponentialRetryPolicy struct {
	maxAttempts     int
	initialInterval time.Duration
	maxInterval     time.Duration
}

// CalculateNextDelay returns initialInterval * 2^(attempts-1), capped at
// maxInterval when one is set, or Done past maxAttempts.
func (p *exponentialRetryPolicy) CalculateNextDelay(attempts int) time.Duration {
	if attempts >= p.maxAttempts {
		return Done
	}
	if attempts < 1 {
		attempts = 1
	}
	delay := p.initialInterval << uint(attempts-1)
	if p.maxInterval > 0 && delay > p.maxInterval {
		delay = p.maxInterval
	}
	return delay
}
