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

const (
	_defaultNamePrefix     = "dynamic_offer_1000_workers_"
	_defaultMaxConcurrency = 50
	_defaultMaxAttempts    = 3
	_defaultInitialBackoff = 2 * time.Second
)

// Config is the offer creation run configuration.
type Config struct {
	// Number of offers to create in this run
	Count int `yaml:"count" validate:"min=1"`

	// Prefix of generated offer names, the job index is appended
	NamePrefix string `yaml:"name_prefix"`

	// Upper bound on configure requests in flight at once
	MaxConcurrency int `yaml:"max_concurrency"`

	// Attempts per offer before it is given up
	MaxAttempts int `yaml:"max_attempts"`

	// Delay before the second attempt on an offer, doubled for every
	// attempt after that
	InitialBackoff time.Duration `yaml:"initial_backoff"`

	// Template values for the configure documents
	Payload PayloadConfig `yaml:"payload"`
}

// Normalize configuration by setting unassigned fields to default values.
// If 0 or less is given for the concurrency, attempt, or backoff knobs,
// the default is used instead.
func (c *Config) Normalize() {
	if c.NamePrefix == "" {
		c.NamePrefix = _defaultNamePrefix
	}
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = _defaultMaxConcurrency
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = _defaultMaxAttempts
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = _defaultInitialBackoff
	}
	c.Payload.Normalize()
}
