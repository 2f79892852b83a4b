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

package metrics

import (
	"runtime"
	"time"

	"github.com/uber-go/tally"
)

// Closer stops the runtime metrics collection.
type Closer func()

// _gcPauseBufferSize is the size of the PauseNs circular buffer in
// runtime.MemStats.
const _gcPauseBufferSize = uint32(256)

type runtimeCollector struct {
	collectInterval time.Duration

	numGoroutines   tally.Gauge
	goMaxProcs      tally.Gauge
	memoryAllocated tally.Gauge
	memoryHeapInuse tally.Gauge
	memoryStack     tally.Gauge
	numGC           tally.Counter
	gcPause         tally.Timer
	lastNumGC       uint32

	quit chan struct{}
}

// StartCollectingRuntimeMetrics periodically emits goroutine, memory and GC
// metrics under the given scope. The returned Closer stops the collection.
func StartCollectingRuntimeMetrics(
	scope tally.Scope,
	enabled bool,
	collectInterval time.Duration,
) Closer {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	c := &runtimeCollector{
		collectInterval: collectInterval,
		numGoroutines:   scope.Gauge("num_goroutines"),
		goMaxProcs:      scope.Gauge("gomaxprocs"),
		memoryAllocated: scope.Gauge("memory_allocated"),
		memoryHeapInuse: scope.Gauge("memory_heapinuse"),
		memoryStack:     scope.Gauge("memory_stack"),
		numGC:           scope.Counter("memory_num_gc"),
		gcPause:         scope.Timer("memory_gc_pause"),
		lastNumGC:       memStats.NumGC,
		quit:            make(chan struct{}),
	}
	if enabled {
		go c.run()
	}
	return func() { close(c.quit) }
}

func (c *runtimeCollector) run() {
	ticker := time.NewTicker(c.collectInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.generate()
		case <-c.quit:
			return
		}
	}
}

func (c *runtimeCollector) generate() {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	c.numGoroutines.Update(float64(runtime.NumGoroutine()))
	c.goMaxProcs.Update(float64(runtime.GOMAXPROCS(0)))
	c.memoryAllocated.Update(float64(memStats.Alloc))
	c.memoryHeapInuse.Update(float64(memStats.HeapInuse))
	c.memoryStack.Update(float64(memStats.StackInuse))

	// memStats.NumGC increments forever, PauseNs only keeps the last 256
	// cycles.
	num := memStats.NumGC
	lastNum := c.lastNumGC
	c.lastNumGC = num
	if delta := num - lastNum; delta > 0 {
		c.numGC.Inc(int64(delta))
		if delta >= _gcPauseBufferSize {
			lastNum = num - _gcPauseBufferSize
		}
		for i := lastNum; i != num; i++ {
			pause := memStats.PauseNs[i%_gcPauseBufferSize]
			c.gcPause.Record(time.Duration(pause))
		}
	}
}
