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

package offermgr

import (
	"github.com/uber-go/tally"
)

// Metrics is the struct containing all the counters that track the offer
// dispatch internals.
type Metrics struct {
	Attempts  tally.Counter
	Accepted  tally.Counter
	Retries   tally.Counter
	Exhausted tally.Counter

	InFlight tally.Gauge

	AttemptDuration tally.Timer
}

// NewMetrics returns a new Metrics struct, with all metrics initialized
// and rooted at the given tally.Scope
func NewMetrics(scope tally.Scope) *Metrics {
	return &Metrics{
		Attempts:        scope.Counter("attempts"),
		Accepted:        scope.Counter("accepted"),
		Retries:         scope.Counter("retries"),
		Exhausted:       scope.Counter("exhausted"),
		InFlight:        scope.Gauge("in_flight"),
		AttemptDuration: scope.Timer("attempt_duration"),
	}
}
