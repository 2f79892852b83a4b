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
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cactus/go-statsd-client/statsd"
	log "github.com/sirupsen/logrus"
	"github.com/uber-go/tally"
	tallyprom "github.com/uber-go/tally/prometheus"
	tallystatsd "github.com/uber-go/tally/statsd"
)

// TallyFlushInterval is the flush interval for the tally root scope.
const TallyFlushInterval = 1 * time.Second

const _defaultCollectInterval = 10 * time.Second

// Config holds the metrics backend configuration.
type Config struct {
	Prometheus     *prometheusConfig `yaml:"prometheus"`
	Statsd         *statsdConfig     `yaml:"statsd"`
	RuntimeMetrics runtimeConfig     `yaml:"runtime_metrics"`
}

type prometheusConfig struct {
	Enable bool `yaml:"enable"`
}

type statsdConfig struct {
	Enable   bool   `yaml:"enable"`
	Endpoint string `yaml:"endpoint"`
}

type runtimeConfig struct {
	Enabled         bool          `yaml:"enabled"`
	CollectInterval time.Duration `yaml:"collect_interval"`
}

// Normalize configuration by setting unassigned fields to default values.
func (c *Config) Normalize() {
	if c.RuntimeMetrics.CollectInterval <= 0 {
		c.RuntimeMetrics.CollectInterval = _defaultCollectInterval
	}
}

// InitMetricScope initializes a tally root scope and its closer, plus a http
// mux serving the metrics exposition and health endpoints.
func InitMetricScope(
	cfg *Config,
	rootMetricScope string,
	metricFlushInterval time.Duration) (tally.Scope, io.Closer, *http.ServeMux) {
	mux := http.NewServeMux()
	scopeOpts := tally.ScopeOptions{
		Tags:      map[string]string{},
		Separator: ".",
	}
	var promHandler http.Handler
	if cfg.Prometheus != nil && cfg.Prometheus.Enable {
		// tally panics if scope name contains "-", hence force convert to "_"
		rootMetricScope = strings.Replace(rootMetricScope, "-", "_", -1)
		promReporter := tallyprom.NewReporter(tallyprom.Options{})
		scopeOpts.CachedReporter = promReporter
		scopeOpts.Separator = tallyprom.DefaultSeparator
		promHandler = promReporter.HTTPHandler()
	} else if cfg.Statsd != nil && cfg.Statsd.Enable {
		log.Infof("Metrics configured with statsd endpoint %s", cfg.Statsd.Endpoint)
		c, err := statsd.NewClient(cfg.Statsd.Endpoint, "")
		if err != nil {
			log.Fatalf("Unable to setup Statsd client: %v", err)
		}
		scopeOpts.Reporter = tallystatsd.NewReporter(c, tallystatsd.Options{})
	} else {
		log.Warnf("No metrics backends configured, using the statsd.NoopClient")
		c, _ := statsd.NewNoopClient()
		scopeOpts.Reporter = tallystatsd.NewReporter(c, tallystatsd.Options{})
	}
	scopeOpts.Prefix = rootMetricScope

	if promHandler != nil {
		log.Infof("Setting up prometheus metrics handler at /metrics")
		mux.Handle("/metrics", promHandler)
	}
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "OK")
	})

	metricScope, scopeCloser := tally.NewRootScope(scopeOpts, metricFlushInterval)
	return metricScope, scopeCloser, mux
}
