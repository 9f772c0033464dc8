// Copyright 2026 The Graphwright Authors
// SPDX-License-Identifier: Apache-2.0

package introspect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/graphwright/graphwright/lib/netutil"
)

// DefaultTimeout bounds a single introspection request when the caller
// does not supply an http.Client.
const DefaultTimeout = 10 * time.Second

const subgraphQuery = "query SubgraphIntrospectQuery { _service { sdl } }"

// Client sends introspection queries. The zero value is not usable;
// construct with [New].
type Client struct {
	httpClient *http.Client
}

// New returns a Client. A nil httpClient gets a default with
// [DefaultTimeout].
func New(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &Client{httpClient: httpClient}
}

// QueryError is a GraphQL-level failure: the endpoint answered, but
// with errors or without the requested data. For the federated query
// it usually means the service is not a federation subgraph.
type QueryError struct {
	URL      string
	Messages []string
}

func (e *QueryError) Error() string {
	if len(e.Messages) == 0 {
		return fmt.Sprintf("introspecting %s: response contained no data", e.URL)
	}
	return fmt.Sprintf("introspecting %s: %s", e.URL, strings.Join(e.Messages, "; "))
}

type graphqlRequest struct {
	Query         string `json:"query"`
	OperationName string `json:"operationName,omitempty"`
}

type graphqlError struct {
	Message string `json:"message"`
}

type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphqlError  `json:"errors"`
}

// FetchSubgraphSDL runs federated introspection against url.
func (c *Client) FetchSubgraphSDL(ctx context.Context, url string, headers map[string]string) (string, error) {
	data, err := c.query(ctx, url, headers, graphqlRequest{
		Query:         subgraphQuery,
		OperationName: "SubgraphIntrospectQuery",
	})
	if err != nil {
		return "", err
	}

	var payload struct {
		Service *struct {
			SDL *string `json:"sdl"`
		} `json:"_service"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return "", fmt.Errorf("decoding federated introspection from %s: %w", url, err)
	}
	if payload.Service == nil || payload.Service.SDL == nil {
		return "", &QueryError{URL: url, Messages: []string{"_service.sdl missing from response"}}
	}
	return *payload.Service.SDL, nil
}

// FetchGraphSDL runs standard introspection against url and prints the
// schema as SDL.
func (c *Client) FetchGraphSDL(ctx context.Context, url string, headers map[string]string) (string, error) {
	data, err := c.query(ctx, url, headers, graphqlRequest{
		Query:         introspectionQuery,
		OperationName: "IntrospectionQuery",
	})
	if err != nil {
		return "", err
	}

	var payload struct {
		Schema *schemaJSON `json:"__schema"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return "", fmt.Errorf("decoding introspection from %s: %w", url, err)
	}
	if payload.Schema == nil {
		return "", &QueryError{URL: url, Messages: []string{"__schema missing from response"}}
	}
	return printSchema(payload.Schema)
}

func (c *Client) query(ctx context.Context, url string, headers map[string]string, request graphqlRequest) (json.RawMessage, error) {
	body, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("encoding introspection query: %w", err)
	}

	httpRequest, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building introspection request for %s: %w", url, err)
	}
	httpRequest.Header.Set("Content-Type", "application/json")
	httpRequest.Header.Set("Accept", "application/json")
	for name, value := range headers {
		httpRequest.Header.Set(name, value)
	}

	response, err := c.httpClient.Do(httpRequest)
	if err != nil {
		return nil, fmt.Errorf("introspecting %s: %w", url, err)
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		// GraphQL servers commonly answer unknown fields with 400 and an
		// errors body. Surface those as query errors so callers can fall
		// back to standard introspection.
		var decoded graphqlResponse
		if err := netutil.DecodeResponse(response.Body, &decoded); err == nil && len(decoded.Errors) > 0 {
			return nil, &QueryError{URL: url, Messages: errorMessages(decoded.Errors)}
		}
		return nil, fmt.Errorf("introspecting %s: HTTP %d", url, response.StatusCode)
	}

	var decoded graphqlResponse
	if err := netutil.DecodeResponse(response.Body, &decoded); err != nil {
		return nil, fmt.Errorf("decoding response from %s: %w", url, err)
	}
	if len(decoded.Errors) > 0 {
		return nil, &QueryError{URL: url, Messages: errorMessages(decoded.Errors)}
	}
	if len(decoded.Data) == 0 || string(decoded.Data) == "null" {
		return nil, &QueryError{URL: url}
	}
	return decoded.Data, nil
}

func errorMessages(errors []graphqlError) []string {
	messages := make([]string, len(errors))
	for i, graphqlErr := range errors {
		messages[i] = graphqlErr.Message
	}
	return messages
}
