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
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type RetryPolicyTestSuite struct {
	suite.Suite
}

func TestRetryPolicyTestSuite(t *testing.T) {
	suite.Run(t, new(RetryPolicyTestSuite))
}

func (s *RetryPolicyTestSuite) TestConstantPolicyNextBackOff() {
	policy := NewRetryPolicy(5, 5*time.Millisecond)
	r := NewRetrier(policy)
	for i := 0; i < 4; i++ {
		s.Equal(5*time.Millisecond, r.NextBackOff())
	}
}

func (s *RetryPolicyTestSuite) TestConstantPolicyMaxAttempts() {
	policy := NewRetryPolicy(5, 5*time.Millisecond)
	r := NewRetrier(policy)
	var next time.Duration
	for i := 0; i < 6; i++ {
		next = r.NextBackOff()
	}
	s.Equal(Done, next)
}

func (s *RetryPolicyTestSuite) TestExponentialPolicyDoubles() {
	policy := NewExponentialRetryPolicy(3, 2*time.Second, 0)
	r := NewRetrier(policy)

	s.Equal(2*time.Second, r.NextBackOff())
	s.Equal(4*time.Second, r.NextBackOff())
	s.Equal(Done, r.NextBackOff())
}

func (s *RetryPolicyTestSuite) TestExponentialPolicyCapped() {
	policy := NewExponentialRetryPolicy(6, time.Second, 4*time.Second)
	r := NewRetrier(policy)

	s.Equal(time.Second, r.NextBackOff())
	s.Equal(2*time.Second, r.NextBackOff())
	s.Equal(4*time.Second, r.NextBackOff())
	s.Equal(4*time.Second, r.NextBackOff())
	s.Equal(4*time.Second, r.NextBackOff())
	s.Equal(Done, r.NextBackOff())
}

func (s *RetryPolicyTestSuite) TestExponentialPolicyClampsAttempts() {
	policy := NewExponentialRetryPolicy(3, 2*time.Second, 0)

	// Attempt counts below 1 behave as the first attempt.
	s.Equal(2*time.Second, policy.CalculateNextDelay(0))
	s.Equal(2*time.Second, policy.CalculateNextDelay(-1))
}

func (s *RetryPolicyTestSuite) TestRetrierIsIndependentPerOperation() {
	policy := NewExponentialRetryPolicy(3, 2*time.Second, 0)

	first := NewRetrier(policy)
	s.Equal(2*time.Second, first.NextBackOff())
	s.Equal(4*time.Second, first.NextBackOff())

	// A fresh retrier on the same policy starts over.
	second := NewRetrier(policy)
	s.Equal(2*time.Second, second.NextBackOff())
}
