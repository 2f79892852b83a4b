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
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/uber-go/tally"
	"golang.org/x/sync/singleflight"
)

const (
	_grantType = "client_credentials"

	// All callers refreshing the shared token collapse onto this one
	// singleflight key.
	_refreshKey = "token"

	_defaultExchangeTimeout = 15 * time.Second
)

// Provider supplies bearer tokens for outbound requests.
type Provider interface {
	// GetToken returns a token valid for at least the configured expiry
	// margin, exchanging credentials with the token endpoint if the cached
	// one is missing or about to lapse.
	GetToken(ctx context.Context) (string, error)
}

// Doer is the subset of http.Client used by the provider. *http.Client
// implements it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Error is returned when the token endpoint answers with a non-200 status
// or a body that does not carry a usable token. The cached token, if any,
// is left untouched in that case.
type Error struct {
	StatusCode int
	Body       string
}

func (e *Error) Error() string {
	return fmt.Sprintf(
		"token exchange failed: status %d: %s", e.StatusCode, e.Body)
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	// The endpoint has been observed returning expires_in both as a number
	// and as a quoted string.
	ExpiresIn json.Number `json:"expires_in"`
}

// provider caches one token for the whole process and coalesces concurrent
// refreshes into a single exchange.
type provider struct {
	cfg     Config
	client  Doer
	metrics *Metrics

	group singleflight.Group

	sync.RWMutex
	token     string
	expiresAt time.Time
}

// NewProvider returns a Provider backed by the OAuth2 client credentials
// grant. A nil client falls back to a default http.Client.
func NewProvider(cfg Config, client Doer, parent tally.Scope) Provider {
	cfg.Normalize()
	if client == nil {
		client = &http.Client{Timeout: _defaultExchangeTimeout}
	}
	return &provider{
		cfg:     cfg,
		client:  client,
		metrics: NewMetrics(parent.SubScope("auth")),
	}
}

func (p *provider) GetToken(ctx context.Context) (string, error) {
	if token, ok := p.cached(); ok {
		p.metrics.CacheHit.Inc(1)
		return token, nil
	}
	p.metrics.CacheMiss.Inc(1)

	v, err, _ := p.group.Do(_refreshKey, func() (interface{}, error) {
		// A caller that waited on an in-flight exchange lands here after
		// the cache was already repopulated.
		if token, ok := p.cached(); ok {
			return token, nil
		}
		return p.refresh(ctx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// cached returns the stored token if it stays valid past the expiry margin.
func (p *provider) cached() (string, bool) {
	p.RLock()
	defer p.RUnlock()
	if p.token == "" {
		return "", false
	}
	if !time.Now().Before(p.expiresAt.Add(-p.cfg.ExpiryMargin)) {
		return "", false
	}
	return p.token, true
}

func (p *provider) refresh(ctx context.Context) (string, error) {
	start := time.Now()

	form := url.Values{
		"grant_type":    {_grantType},
		"client_id":     {p.cfg.ClientID},
		"client_secret": {p.cfg.ClientSecret},
		"resource":      {p.cfg.Resource},
	}
	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		p.cfg.TokenURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", errors.Wrapf(err, "failed to build token request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		p.metrics.RefreshFail.Inc(1)
		return "", errors.Wrapf(err, "failed to call token endpoint")
	}
	defer resp.Body.Close()

	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		p.metrics.RefreshFail.Inc(1)
		return "", errors.Wrapf(err, "failed to read token response")
	}
	if resp.StatusCode != http.StatusOK {
		p.metrics.RefreshFail.Inc(1)
		return "", &Error{StatusCode: resp.StatusCode, Body: string(body)}
	}

	// A 200 whose body cannot be decoded into a token is reported the
	// same way as a rejection, with the status and raw body attached.
	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		p.metrics.RefreshFail.Inc(1)
		return "", &Error{StatusCode: resp.StatusCode, Body: string(body)}
	}
	if tr.AccessToken == "" {
		p.metrics.RefreshFail.Inc(1)
		return "", &Error{StatusCode: resp.StatusCode, Body: string(body)}
	}
	expiresIn, err := tr.ExpiresIn.Int64()
	if err != nil {
		p.metrics.RefreshFail.Inc(1)
		return "", &Error{StatusCode: resp.StatusCode, Body: string(body)}
	}

	expiresAt := time.Now().Add(time.Duration(expiresIn) * time.Second)
	p.Lock()
	p.token = tr.AccessToken
	p.expiresAt = expiresAt
	p.Unlock()

	p.metrics.Refresh.Inc(1)
	p.metrics.RefreshDuration.Record(time.Since(start))
	log.WithFields(log.Fields{
		"expires_in": expiresIn,
	}).Debug("Refreshed access token")
	return tr.AccessToken, nil
}
