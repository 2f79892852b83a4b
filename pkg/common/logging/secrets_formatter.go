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

package logging

import (
	"strings"

	log "github.com/sirupsen/logrus"
)

const redactedStr = "REDACTED"

// Field keys whose values are credential material and must never reach a
// log sink. Matched case-insensitively.
var _sensitiveLogFields = map[string]struct{}{
	"client_secret": {},
	"access_token":  {},
	"authorization": {},
	"token":         {},
}

// Substrings that mark a free-form string value as carrying credential
// material, e.g. a logged form body or a dumped request header.
var _sensitiveSubstrings = []string{
	"client_secret=",
	"Bearer ",
}

// SecretsFormatter scrubs OAuth credential material from log entries before
// the wrapped formatter emits them. A field carrying credential material is
// replaced whole, never partially rewritten.
type SecretsFormatter struct {
	log.Formatter
}

// Format is called by logrus; it redacts sensitive fields and delegates.
func (f *SecretsFormatter) Format(entry *log.Entry) ([]byte, error) {
	for k, v := range entry.Data {
		if _, ok := _sensitiveLogFields[strings.ToLower(k)]; ok {
			entry.Data[k] = redactedStr
			continue
		}
		s, ok := v.(string)
		if !ok {
			continue
		}
		for _, marker := range _sensitiveSubstrings {
			if strings.Contains(s, marker) {
				entry.Data[k] = redactedStr
				break
			}
		}
	}
	return f.Formatter.Format(entry)
}
