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

package ingestion

import (
	"time"
)

const (
	_defaultBaseURL    = "https://graph.microsoft.com/rp/product-ingestion"
	_defaultAPIVersion = "2022-07-01"
	_defaultTimeout    = 15 * time.Second
)

// Config is the product ingestion API configuration.
type Config struct {
	// Base URL of the product ingestion API
	BaseURL string `yaml:"base_url"`

	// Schema version sent as the $version query parameter
	APIVersion string `yaml:"api_version"`

	// Timeout for a single configure request
	Timeout time.Duration `yaml:"timeout"`
}

// Normalize configuration by setting unassigned fields to default values.
func (c *Config) Normalize() {
	if c.BaseURL == "" {
		c.BaseURL = _defaultBaseURL
	}
	if c.APIVersion == "" {
		c.APIVersion = _defaultAPIVersion
	}
	if c.Timeout <= 0 {
		c.Timeout = _defaultTimeout
	}
}
