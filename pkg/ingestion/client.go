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
	"bytes"
	"context"
	"fmt"
	"io/ioutil"
	"net/http"

	"github.com/pborman/uuid"
	"github.com/pkg/errors"

	"github.com/uber/offerload/pkg/auth"
)

// HTTPDoer is the interface that is needed to interact with the ingestion
// API. The *http.Client struct implements this.
type HTTPDoer interface {
	Do(req *http.Request) (resp *http.Response, err error)
}

// RequestError is returned when the configure endpoint answers with
// anything but 202 Accepted.
type RequestError struct {
	StatusCode int
	Body       string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf(
		"configure request rejected: status %d: %s", e.StatusCode, e.Body)
}

// Client submits configure documents to the product ingestion API.
type Client struct {
	cfg    Config
	tokens auth.Provider
	client HTTPDoer

	configureURL string
}

// New returns a Client authenticating through the given token provider. A
// nil http client falls back to one with the configured timeout.
func New(cfg Config, tokens auth.Provider, client HTTPDoer) *Client {
	cfg.Normalize()
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		cfg:          cfg,
		tokens:       tokens,
		client:       client,
		configureURL: cfg.BaseURL + "/configure?$version=" + cfg.APIVersion,
	}
}

// Configure submits one configure document. The endpoint acknowledges an
// accepted document with 202, every other status comes back as a
// *RequestError carrying the response body.
func (c *Client) Configure(ctx context.Context, payload []byte) error {
	token, err := c.tokens.GetToken(ctx)
	if err != nil {
		return errors.Wrapf(err, "failed to get access token")
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, c.configureURL, bytes.NewReader(payload))
	if err != nil {
		return errors.Wrapf(err, "failed to build configure request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Request-ID", uuid.New())

	resp, err := c.client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "failed to call configure endpoint")
	}
	defer resp.Body.Close()

	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrapf(err, "failed to read configure response")
	}
	if resp.StatusCode != http.StatusAccepted {
		return &RequestError{
			StatusCode: resp.StatusCode,
			Body:       string(body),
		}
	}
	return nil
}
