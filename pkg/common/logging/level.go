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

package logging

import (
	"fmt"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"go.uber.org/atomic"
)

const (
	// LevelOverwrite is the endpoint for the temporary log level override
	// handler.
	LevelOverwrite = "/logging-level"

	_usage = "usage: GET /logging-level?level=[info|debug]&duration=<duration>"
)

var _initialLevel atomic.Int32

// LevelOverwriteHandler returns a handler that switches the process log
// level to info or debug for a bounded duration, then restores the initial
// level. Lets a long bulk run be inspected without restarting it.
func LevelOverwriteHandler(initialLevel log.Level) func(http.ResponseWriter, *http.Request) {
	_initialLevel.Store(int32(initialLevel))
	log.SetLevel(initialLevel)
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		newLevel, err := log.ParseLevel(q.Get("level"))
		if err != nil || (newLevel != log.InfoLevel && newLevel != log.DebugLevel) {
			http.Error(w, _usage, http.StatusBadRequest)
			return
		}
		duration, err := time.ParseDuration(q.Get("duration"))
		if err != nil {
			http.Error(w, _usage, http.StatusBadRequest)
			return
		}

		log.WithFields(log.Fields{
			"new_level": newLevel,
			"duration":  duration,
		}).Info("Overriding log level")
		log.SetLevel(newLevel)

		time.AfterFunc(duration, func() {
			restored := log.Level(_initialLevel.Load())
			log.WithField("level", restored).Info("Restoring log level after override window")
			log.SetLevel(restored)
		})

		fmt.Fprintf(w, "Level changed to %s for the next %v.\n", newLevel, duration)
	}
}
