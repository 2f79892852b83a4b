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
	"context"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/uber-go/tally"
	"go.uber.org/atomic"

	"github.com/uber/offerload/pkg/common/backoff"
)

// Submitter pushes one configure document to the ingestion API. The
// ingestion.Client struct implements this.
type Submitter interface {
	Configure(ctx context.Context, payload []byte) error
}

// job tracks one offer through its attempts. A job holds a worker only
// while an attempt runs, during a backoff wait it lives in a timer.
type job struct {
	index   int
	name    string
	payload []byte

	attempts int
	retrier  backoff.Retrier
}

// Dispatcher fans offer jobs out over a fixed pool of workers, bounding
// the number of configure requests in flight. Failed attempts are retried
// with exponential backoff until the per-offer attempt budget runs out.
type Dispatcher struct {
	cfg       Config
	submitter Submitter
	builder   *Builder
	metrics   *Metrics

	inFlight atomic.Int64
}

// NewDispatcher returns a Dispatcher submitting through the given
// Submitter.
func NewDispatcher(cfg Config, submitter Submitter, parent tally.Scope) *Dispatcher {
	cfg.Normalize()
	return &Dispatcher{
		cfg:       cfg,
		submitter: submitter,
		builder:   NewBuilder(cfg.Payload),
		metrics:   NewMetrics(parent.SubScope("offers")),
	}
}

// Run creates all configured offers and blocks until every job reached a
// terminal state, accepted or out of attempts.
func (d *Dispatcher) Run(ctx context.Context) (*Report, error) {
	start := time.Now()

	jobs := make([]*job, d.cfg.Count)
	for i := range jobs {
		name := fmt.Sprintf("%s%d", d.cfg.NamePrefix, i)
		payload, err := d.builder.Build(name)
		if err != nil {
			return nil, err
		}
		jobs[i] = &job{
			index:   i,
			name:    name,
			payload: payload,
			retrier: backoff.NewRetrier(backoff.NewExponentialRetryPolicy(
				d.cfg.MaxAttempts, d.cfg.InitialBackoff, 0)),
		}
	}

	// A job occupies at most one slot at a time, waiting for its first
	// attempt or re-enqueued by a backoff timer, so sends never block.
	queue := make(chan *job, len(jobs))

	results := make([]JobResult, len(jobs))
	var terminal sync.WaitGroup
	terminal.Add(len(jobs))

	workers := d.cfg.MaxConcurrency
	if workers > len(jobs) {
		workers = len(jobs)
	}
	var workersDone sync.WaitGroup
	for i := 0; i < workers; i++ {
		workersDone.Add(1)
		go func() {
			defer workersDone.Done()
			for j := range queue {
				d.process(ctx, j, queue, results, &terminal)
			}
		}()
	}

	log.WithFields(log.Fields{
		"offers":  len(jobs),
		"workers": workers,
	}).Info("Dispatching offer creation jobs")
	for _, j := range jobs {
		queue <- j
	}

	// Once every job is terminal no backoff timer is pending, so closing
	// the queue cannot race a re-enqueue.
	terminal.Wait()
	close(queue)
	workersDone.Wait()

	report := &Report{
		Total:    len(jobs),
		Duration: time.Since(start),
		Results:  results,
	}
	for _, res := range results {
		if res.Succeeded() {
			report.Succeeded++
		} else {
			report.Exhausted++
		}
	}
	return report, nil
}

// process runs a single attempt for the job and either finishes it or
// hands it to a backoff timer for another round.
func (d *Dispatcher) process(
	ctx context.Context,
	j *job,
	queue chan<- *job,
	results []JobResult,
	terminal *sync.WaitGroup) {

	j.attempts++
	d.metrics.Attempts.Inc(1)
	d.metrics.InFlight.Update(float64(d.inFlight.Inc()))

	attemptStart := time.Now()
	err := d.submitter.Configure(ctx, j.payload)
	d.metrics.AttemptDuration.Record(time.Since(attemptStart))
	d.metrics.InFlight.Update(float64(d.inFlight.Dec()))

	if err == nil {
		d.metrics.Accepted.Inc(1)
		log.WithFields(log.Fields{
			"offer":    j.name,
			"attempts": j.attempts,
		}).Info("Offer accepted")
		results[j.index] = JobResult{Name: j.name, Attempts: j.attempts}
		terminal.Done()
		return
	}

	log.WithFields(log.Fields{
		"offer":   j.name,
		"attempt": j.attempts,
		"error":   err.Error(),
	}).Error("Offer attempt failed")

	delay := j.retrier.NextBackOff()
	if delay == backoff.Done {
		d.metrics.Exhausted.Inc(1)
		log.WithFields(log.Fields{
			"offer":    j.name,
			"attempts": j.attempts,
		}).Error("Giving up on offer, out of attempts")
		results[j.index] = JobResult{
			Name:     j.name,
			Attempts: j.attempts,
			Err:      err,
		}
		terminal.Done()
		return
	}

	d.metrics.Retries.Inc(1)
	log.WithFields(log.Fields{
		"offer": j.name,
		"delay": delay,
	}).Info("Retrying offer after backoff")
	time.AfterFunc(delay, func() {
		queue <- j
	})
}
