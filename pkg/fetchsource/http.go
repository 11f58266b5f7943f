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

package fetchsource

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/openimsdk/fetchkit/pkg/fetch"
	"github.com/openimsdk/tools/errs"
)

// HTTPSource is a fetch.DataSource[string, V] that resolves a batch of ids
// with a single outbound HTTP call: GET baseURL?id=a&id=b&..., expecting a
// JSON object of id -> V in response. It exists to demonstrate wiring a
// real network boundary into the engine; services with a bespoke RPC
// client should implement fetch.DataSource directly instead.
type HTTPSource[V any] struct {
	name    fetch.DataSourceName
	baseURL string
	client  *http.Client
}

// NewHTTPSource builds an HTTPSource named name issuing batched GETs
// against baseURL via client (http.DefaultClient if nil).
func NewHTTPSource[V any](name, baseURL string, client *http.Client) *HTTPSource[V] {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPSource[V]{name: fetch.DataSourceName(name), baseURL: baseURL, client: client}
}

func (s *HTTPSource[V]) Name() fetch.DataSourceName { return s.name }

func (s *HTTPSource[V]) Identity(id string) fetch.DataSourceIdentity {
	return fetch.DataSourceIdentity{Source: s.name, ID: id}
}

func (s *HTTPSource[V]) Fetch(ctx context.Context, ids []string) (map[string]V, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL, nil)
	if err != nil {
		return nil, errs.WrapMsg(err, "fetchsource: build request")
	}
	q := req.URL.Query()
	for _, id := range ids {
		q.Add("id", id)
	}
	req.URL.RawQuery = q.Encode()

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, errs.WrapMsg(err, "fetchsource: http call")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errs.New(fmt.Sprintf("fetchsource: unexpected status %d from %q", resp.StatusCode, s.name)).Wrap()
	}

	var out map[string]V
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, errs.WrapMsg(err, "fetchsource: decode response")
	}
	return out, nil
}
