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
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/uber-go/tally"
	"go.uber.org/atomic"
)

const (
	_testClientID     = "test-client"
	_testClientSecret = "test-secret"
)

type TokenProviderTestSuite struct {
	suite.Suite

	exchanges atomic.Int32
}

func TestTokenProvider(t *testing.T) {
	suite.Run(t, new(TokenProviderTestSuite))
}

func (suite *TokenProviderTestSuite) SetupTest() {
	suite.exchanges.Store(0)
}

// tokenHandler answers like the token endpoint, numbering tokens by
// exchange so tests can tell a cached token from a refreshed one.
func (suite *TokenProviderTestSuite) tokenHandler(expiresIn string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n := suite.exchanges.Inc()
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(
			w,
			`{"access_token": "tok-%d", "expires_in": %s}`,
			n,
			expiresIn)
	}
}

func (suite *TokenProviderTestSuite) newProvider(url string) Provider {
	return NewProvider(Config{
		TokenURL:     url,
		ClientID:     _testClientID,
		ClientSecret: _testClientSecret,
	}, nil, tally.NoopScope)
}

// A fresh token is served from cache without touching the endpoint again.
func (suite *TokenProviderTestSuite) TestCachedTokenIsReused() {
	srv := httptest.NewServer(suite.tokenHandler("3600"))
	defer srv.Close()

	p := suite.newProvider(srv.URL)
	for i := 0; i < 5; i++ {
		token, err := p.GetToken(context.Background())
		suite.NoError(err)
		suite.Equal("tok-1", token)
	}
	suite.Equal(int32(1), suite.exchanges.Load())
}

func (suite *TokenProviderTestSuite) TestExchangeSendsClientCredentialsForm() {
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			suite.exchanges.Inc()
			suite.Equal(http.MethodPost, r.Method)
			suite.Equal(
				"application/x-www-form-urlencoded",
				r.Header.Get("Content-Type"))
			suite.NoError(r.ParseForm())
			suite.Equal(_grantType, r.FormValue("grant_type"))
			suite.Equal(_testClientID, r.FormValue("client_id"))
			suite.Equal(_testClientSecret, r.FormValue("client_secret"))
			suite.Equal(_defaultResource, r.FormValue("resource"))
			fmt.Fprint(w, `{"access_token": "tok", "expires_in": 3600}`)
		}))
	defer srv.Close()

	token, err := suite.newProvider(srv.URL).GetToken(context.Background())
	suite.NoError(err)
	suite.Equal("tok", token)
	suite.Equal(int32(1), suite.exchanges.Load())
}

// Concurrent callers hitting a cold cache share one exchange.
func (suite *TokenProviderTestSuite) TestConcurrentCallersCoalesce() {
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			suite.exchanges.Inc()
			time.Sleep(50 * time.Millisecond)
			fmt.Fprint(w, `{"access_token": "tok-1", "expires_in": 3600}`)
		}))
	defer srv.Close()

	p := suite.newProvider(srv.URL)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			token, err := p.GetToken(context.Background())
			suite.NoError(err)
			suite.Equal("tok-1", token)
		}()
	}
	wg.Wait()
	suite.Equal(int32(1), suite.exchanges.Load())
}

// A token expiring within the margin is not served from cache.
func (suite *TokenProviderTestSuite) TestTokenInsideExpiryMarginIsRefreshed() {
	srv := httptest.NewServer(suite.tokenHandler("200"))
	defer srv.Close()

	p := suite.newProvider(srv.URL)

	token, err := p.GetToken(context.Background())
	suite.NoError(err)
	suite.Equal("tok-1", token)

	// 200s is inside the default 300s margin, so the next call exchanges
	// again instead of reusing the cache.
	token, err = p.GetToken(context.Background())
	suite.NoError(err)
	suite.Equal("tok-2", token)
	suite.Equal(int32(2), suite.exchanges.Load())
}

func (suite *TokenProviderTestSuite) TestStringExpiresInIsAccepted() {
	srv := httptest.NewServer(suite.tokenHandler(`"3600"`))
	defer srv.Close()

	p := suite.newProvider(srv.URL)
	token, err := p.GetToken(context.Background())
	suite.NoError(err)
	suite.Equal("tok-1", token)

	token, err = p.GetToken(context.Background())
	suite.NoError(err)
	suite.Equal("tok-1", token)
	suite.Equal(int32(1), suite.exchanges.Load())
}

// A rejected exchange surfaces the endpoint status and body and leaves the
// cache empty, so the next call tries again.
func (suite *TokenProviderTestSuite) TestRejectedExchangeLeavesCacheUnchanged() {
	var fail atomic.Bool
	fail.Store(true)
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			suite.exchanges.Inc()
			if fail.Load() {
				w.WriteHeader(http.StatusUnauthorized)
				fmt.Fprint(w, `{"error": "invalid_client"}`)
				return
			}
			fmt.Fprint(w, `{"access_token": "tok-good", "expires_in": 3600}`)
		}))
	defer srv.Close()

	p := suite.newProvider(srv.URL)

	_, err := p.GetToken(context.Background())
	suite.Error(err)
	authErr, ok := err.(*Error)
	suite.True(ok)
	suite.Equal(http.StatusUnauthorized, authErr.StatusCode)
	suite.Contains(authErr.Body, "invalid_client")

	fail.Store(false)
	token, err := p.GetToken(context.Background())
	suite.NoError(err)
	suite.Equal("tok-good", token)
	suite.Equal(int32(2), suite.exchanges.Load())
}

// A 200 with an undecodable body fails like a rejection, carrying the
// status and the raw body.
func (suite *TokenProviderTestSuite) TestMalformedTokenResponse() {
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"access_token": `)
		}))
	defer srv.Close()

	_, err := suite.newProvider(srv.URL).GetToken(context.Background())
	suite.Error(err)
	authErr, ok := err.(*Error)
	suite.True(ok)
	suite.Equal(http.StatusOK, authErr.StatusCode)
	suite.Contains(authErr.Body, `"access_token"`)
}

func (suite *TokenProviderTestSuite) TestMissingAccessToken() {
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"expires_in": 3600}`)
		}))
	defer srv.Close()

	_, err := suite.newProvider(srv.URL).GetToken(context.Background())
	suite.Error(err)
	authErr, ok := err.(*Error)
	suite.True(ok)
	suite.Equal(http.StatusOK, authErr.StatusCode)
	suite.Contains(authErr.Body, "expires_in")
}

func (suite *TokenProviderTestSuite) TestTransportErrorIsWrapped() {
	srv := httptest.NewServer(suite.tokenHandler("3600"))
	srv.Close()

	_, err := suite.newProvider(srv.URL).GetToken(context.Background())
	suite.Error(err)
	suite.Contains(err.Error(), "failed to call token endpoint")
}

func (suite *TokenProviderTestSuite) TestConfigNormalize() {
	c := Config{}
	c.Normalize()

	suite.Equal(_defaultTokenURL, c.TokenURL)
	suite.Equal(_defaultResource, c.Resource)
	suite.Equal(_defaultExpiryMargin, c.ExpiryMargin)

	// A negative margin would stretch token validity past its real
	// expiry, it clamps to the default like an unset one.
	c = Config{ExpiryMargin: -time.Minute}
	c.Normalize()
	suite.Equal(_defaultExpiryMargin, c.ExpiryMargin)
}
