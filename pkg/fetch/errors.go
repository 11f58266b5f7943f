// Copyright © 2024 OpenIM. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package fetch

import (
	"fmt"

	"github.com/openimsdk/tools/errs"
)

// UserError wraps the error value passed to Error(e); it surfaces e
// unchanged to the caller of Run/RunEnv/RunFetch.
type UserError struct {
	Err error
}

func (e *UserError) Error() string { return e.Err.Error() }
func (e *UserError) Unwrap() error { return e.Err }

// SourceError wraps a failure of the effectful DataSource.Fetch call
// itself, as opposed to a well-formed-but-partial response.
type SourceError struct {
	Source DataSourceName
	Err    error
}

func (e *SourceError) Error() string {
	return errs.WrapMsg(e.Err, fmt.Sprintf("fetch: source %q failed", e.Source)).Error()
}
func (e *SourceError) Unwrap() error { return e.Err }

// MissingIdentityError reports that a source's Fetch response omitted a
// requested id. It is fatal for the run and carries the Environment
// observed at the point of failure (the round that detected the miss is
// the log's final entry) for caller diagnostics.
type MissingIdentityError struct {
	Identity    DataSourceIdentity
	Environment Environment
}

func (e *MissingIdentityError) Error() string {
	return fmt.Sprintf("fetch: source %q has no value for identity %v", e.Identity.Source, e.Identity.ID)
}
