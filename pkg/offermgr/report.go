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
	"time"
)

// JobResult is the terminal outcome of one offer job.
type JobResult struct {
	// Name of the offer the job was creating
	Name string

	// Attempts made before the job reached a terminal state
	Attempts int

	// Err is nil when the offer was accepted, otherwise it is the error
	// of the last attempt
	Err error
}

// Succeeded returns whether the offer was accepted.
func (r JobResult) Succeeded() bool {
	return r.Err == nil
}

// Report aggregates the terminal results of a run. Every dispatched job is
// accounted for, failed ones included.
type Report struct {
	Total     int
	Succeeded int
	Exhausted int
	Duration  time.Duration
	Results   []JobResult
}

// Failures returns the results of the jobs that ran out of attempts.
func (r *Report) Failures() []JobResult {
	var failed []JobResult
	for _, res := range r.Results {
		if !res.Succeeded() {
			failed = append(failed, res)
		}
	}
	return failed
}
