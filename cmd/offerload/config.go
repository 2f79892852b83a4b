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

package main

import (
	"github.com/uber/offerload/pkg/auth"
	"github.com/uber/offerload/pkg/common/metrics"
	"github.com/uber/offerload/pkg/ingestion"
	"github.com/uber/offerload/pkg/offermgr"
)

// Config holds all config to run an offerload job.
type Config struct {
	Metrics   metrics.Config   `yaml:"metrics"`
	Auth      auth.Config      `yaml:"auth"`
	Ingestion ingestion.Config `yaml:"ingestion"`
	Offers    offermgr.Config  `yaml:"offers"`

	// DebugPort serves the metrics, health and log level endpoints when
	// set
	DebugPort int `yaml:"debug_port"`
}

// normalize fills defaults on every section.
func (c *Config) normalize() {
	c.Metrics.Normalize()
	c.Auth.Normalize()
	c.Ingestion.Normalize()
	c.Offers.Normalize()
}
