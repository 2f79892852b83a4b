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

package common

const (
	// OfferLoad is the application name, used as the root metric scope
	// and as the app log field value.
	OfferLoad = "offerload"

	// AppLogField is the log field key carrying the application name.
	AppLogField = "app"

	// RunIDLogField is the log field key carrying the identifier of one
	// bulk-creation run, so that interleaved runs can be told apart in
	// aggregated logs.
	RunIDLogField = "run_id"
)
