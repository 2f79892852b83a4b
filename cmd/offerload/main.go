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
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/pborman/uuid"
	log "github.com/sirupsen/logrus"
	_ "go.uber.org/automaxprocs"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/uber/offerload/pkg/auth"
	"github.com/uber/offerload/pkg/common"
	"github.com/uber/offerload/pkg/common/config"
	"github.com/uber/offerload/pkg/common/logging"
	"github.com/uber/offerload/pkg/common/metrics"
	"github.com/uber/offerload/pkg/ingestion"
	"github.com/uber/offerload/pkg/offermgr"
)

var (
	version string
	app     = kingpin.New(common.OfferLoad, "Bulk private offer creation")

	debug = app.Flag(
		"debug", "enable debug mode (print full json responses)").
		Short('d').
		Default("false").
		Envar("ENABLE_DEBUG_LOGGING").
		Bool()

	cfgFiles = app.Flag(
		"config",
		"YAML config files (can be provided multiple times to merge configs)").
		Short('c').
		ExistingFiles()

	clientID = app.Flag(
		"client-id", "Application client id (auth.client_id override) "+
			"(set $MS_CLIENT_ID to override)").
		Envar("MS_CLIENT_ID").
		String()

	clientSecret = app.Flag(
		"client-secret", "Application client secret (auth.client_secret "+
			"override) (set $MS_CLIENT_SECRET to override)").
		Envar("MS_CLIENT_SECRET").
		String()

	numOffers = app.Flag(
		"offers", "Number of offers to create (offers.count override) "+
			"(set $NUM_OFFERS to override)").
		Envar("NUM_OFFERS").
		Int()

	concurrency = app.Flag(
		"concurrency", "Maximum requests in flight "+
			"(offers.max_concurrency override) "+
			"(set $MAX_CONCURRENCY to override)").
		Envar("MAX_CONCURRENCY").
		Int()

	offerPrefix = app.Flag(
		"offer-prefix", "Prefix of generated offer names "+
			"(offers.name_prefix override) "+
			"(set $OFFER_NAME_PREFIX to override)").
		Envar("OFFER_NAME_PREFIX").
		String()

	debugPort = app.Flag(
		"debug-port", "Port serving metrics, health and log level "+
			"endpoints (debug_port override) (set $DEBUG_PORT to override)").
		Envar("DEBUG_PORT").
		Int()
)

func main() {
	app.Version(version)
	app.HelpFlag.Short('h')
	kingpin.MustParse(app.Parse(os.Args[1:]))

	initialLevel := log.InfoLevel
	if *debug {
		initialLevel = log.DebugLevel
	}
	log.SetLevel(initialLevel)

	log.SetFormatter(
		&logging.LogFieldFormatter{
			Formatter: &logging.SecretsFormatter{
				Formatter: &log.JSONFormatter{}},
			Fields: log.Fields{
				common.AppLogField:   app.Name,
				common.RunIDLogField: uuid.New(),
			},
		},
	)

	var cfg Config
	if len(*cfgFiles) > 0 {
		log.WithField("files", *cfgFiles).Info("Loading offerload config")
		if err := config.Parse(&cfg, *cfgFiles...); err != nil {
			log.WithError(err).Fatal("Cannot parse yaml config")
		}
	}

	if *clientID != "" {
		cfg.Auth.ClientID = *clientID
	}
	if *clientSecret != "" {
		cfg.Auth.ClientSecret = *clientSecret
	}
	if *numOffers != 0 {
		cfg.Offers.Count = *numOffers
	}
	if *concurrency != 0 {
		cfg.Offers.MaxConcurrency = *concurrency
	}
	if *offerPrefix != "" {
		cfg.Offers.NamePrefix = *offerPrefix
	}
	if *debugPort != 0 {
		cfg.DebugPort = *debugPort
	}

	cfg.normalize()

	// Credentials and the offer count are checked before anything talks to
	// the network.
	if err := config.Validate(&cfg); err != nil {
		log.WithError(err).Fatal("Invalid configuration")
	}

	log.WithFields(log.Fields{
		"offers":      cfg.Offers.Count,
		"concurrency": cfg.Offers.MaxConcurrency,
	}).Info("Loaded offerload configuration")

	rootScope, scopeCloser, mux := metrics.InitMetricScope(
		&cfg.Metrics,
		common.OfferLoad,
		metrics.TallyFlushInterval,
	)
	defer scopeCloser.Close()

	defer metrics.StartCollectingRuntimeMetrics(
		rootScope,
		cfg.Metrics.RuntimeMetrics.Enabled,
		cfg.Metrics.RuntimeMetrics.CollectInterval)()

	mux.HandleFunc(
		logging.LevelOverwrite,
		logging.LevelOverwriteHandler(initialLevel),
	)

	if cfg.DebugPort != 0 {
		go func() {
			addr := fmt.Sprintf(":%d", cfg.DebugPort)
			log.WithField("addr", addr).Info("Serving debug endpoints")
			if err := http.ListenAndServe(addr, mux); err != nil {
				log.WithError(err).Error("Debug server returned")
			}
		}()
	}

	// Token and configure calls share one transport.
	httpClient := &http.Client{Timeout: cfg.Ingestion.Timeout}
	tokens := auth.NewProvider(cfg.Auth, httpClient, rootScope)
	client := ingestion.New(cfg.Ingestion, tokens, httpClient)
	dispatcher := offermgr.NewDispatcher(cfg.Offers, client, rootScope)

	report, err := dispatcher.Run(context.Background())
	if err != nil {
		log.WithError(err).Fatal("Offer creation run failed")
	}

	for _, res := range report.Failures() {
		fields := log.Fields{
			"offer":    res.Name,
			"attempts": res.Attempts,
			"error":    res.Err.Error(),
		}
		var reqErr *ingestion.RequestError
		if errors.As(res.Err, &reqErr) {
			fields["status"] = reqErr.StatusCode
		}
		log.WithFields(fields).Error("Offer not created")
	}
	log.WithFields(log.Fields{
		"total":     report.Total,
		"succeeded": report.Succeeded,
		"exhausted": report.Exhausted,
		"duration":  report.Duration.Round(time.Millisecond).String(),
	}).Info("Offer creation run finished")

	if report.Exhausted > 0 {
		scopeCloser.Close()
		os.Exit(1)
	}
}
