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

package auth

import (
	"time"
)

const (
	_defaultTokenURL     = "https://login.microsoftonline.com/df09f37c-c395-4f26-b28e-356eb3c11d64/oauth2/token"
	_defaultResource     = "https://graph.microsoft.com/"
	_defaultExpiryMargin = 300 * time.Second
)

// Config is the token endpoint configuration.
type Config struct {
	// OAuth2 token endpoint for the client credentials grant
	TokenURL string `yaml:"token_url"`

	// Resource the issued token is scoped to
	Resource string `yaml:"resource"`

	// Application credentials used for the exchange
	ClientID     string `yaml:"client_id" validate:"nonzero"`
	ClientSecret string `yaml:"client_secret" validate:"nonzero"`

	// A cached token is treated as expired this long before its actual
	// expiry, so requests never go out with a token about to lapse
	ExpiryMargin time.Duration `yaml:"expiry_margin"`
}

// Normalize configuration by setting unassigned fields to default values.
func (c *Config) Normalize() {
	if c.TokenURL == "" {
		c.TokenURL = _defaultTokenURL
	}
	if c.Resource == "" {
		c.Resource = _defaultResource
	}
	if c.ExpiryMargin <= 0 {
		c.ExpiryMargin = _defaultExpiryMargin
	}
}
