package algolia

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"

	"github.com/algolia/algoliasearch-client-go/v4/algolia/call"
	"github.com/algolia/algoliasearch-client-go/v4/algolia/search"
	"github.com/algolia/algoliasearch-client-go/v4/algolia/transport"
	"golang.org/x/time/rate"

	"github.com/farmasearch/backend/internal/domain"
)

const defaultRequestsPerSecond = 50

// ClientConfig holds the settings needed to reach one index
type ClientConfig struct {
	AppID     string
	APIKey    string
	IndexName string
	// BaseURL overrides the hosts serving search queries; empty uses Algolia's defaults
	BaseURL string
	// WriteURL overrides the host serving indexing operations; defaults to BaseURL
	WriteURL string
	// RequestsPerSecond bounds outgoing traffic; defaults to 50
	RequestsPerSecond float64
}

// Client handles communication with the hosted Algolia search index
type Client struct {
	api         *search.APIClient
	indexName   string
	rateLimiter *rate.Limiter
	debug       bool
}

// NewClient creates a new search index client
func NewClient(cfg ClientConfig) (*Client, error) {
	hosts, err := customHosts(cfg.AppID, cfg.BaseURL, cfg.WriteURL)
	if err != nil {
		return nil, err
	}

	api, err := search.NewClientWithConfig(search.SearchConfiguration{
		Configuration: transport.Configuration{
			AppID:  cfg.AppID,
			ApiKey: cfg.APIKey,
			Hosts:  hosts,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrIndexNotConfigured, err)
	}

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = defaultRequestsPerSecond
	}

	return &Client{
		api:         api,
		indexName:   cfg.IndexName,
		rateLimiter: rate.NewLimiter(rate.Limit(rps), 10),
	}, nil
}

// customHosts turns URL overrides into SDK hosts. No overrides keeps the SDK's
// default host list with its own failover.
func customHosts(appID, baseURL, writeURL string) ([]transport.StatefulHost, error) {
	if baseURL == "" && writeURL == "" {
		return nil, nil
	}
	if writeURL == "" {
		writeURL = baseURL
	}
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s-dsn.algolia.net", appID)
	}

	if baseURL == writeURL {
		host, err := statefulHost(baseURL, call.IsReadWrite)
		if err != nil {
			return nil, err
		}
		return []transport.StatefulHost{host}, nil
	}

	read, err := statefulHost(baseURL, call.IsRead)
	if err != nil {
		return nil, err
	}
	write, err := statefulHost(writeURL, call.IsWrite)
	if err != nil {
		return nil, err
	}
	return []transport.StatefulHost{read, write}, nil
}

func statefulHost(raw string, accept func(call.Kind) bool) (transport.StatefulHost, error) {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return transport.StatefulHost{}, fmt.Errorf("%w: invalid host URL %q", domain.ErrIndexNotConfigured, raw)
	}
	return transport.NewStatefulHost(u.Scheme, u.Host, accept), nil
}

// SetDebug enables verbose request logging
func (c *Client) SetDebug(debug bool) {
	c.debug = debug
}

// IndexName returns the name of the index the client talks to
func (c *Client) IndexName() string {
	return c.indexName
}

func (c *Client) debugLog(format string, args ...interface{}) {
	if c.debug {
		log.Printf("[ALGOLIA] "+format, args...)
	}
}

// Search runs a keyword or vector query against the index
func (c *Client) Search(ctx context.Context, query domain.IndexQuery) (*domain.SearchResult, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w: %v", domain.ErrSearchIndexFailure, domain.ErrRateLimited, err)
	}

	var (
		raw interface{}
		err error
	)
	if len(query.Vector) > 0 {
		c.debugLog("Vector search (%d dims) on index %q", len(query.Vector), c.indexName)
		raw, err = c.vectorQuery(ctx, query)
	} else {
		c.debugLog("Keyword search %q on index %q", query.Query, c.indexName)
		raw, err = c.keywordQuery(ctx, query)
	}
	if err != nil {
		log.Printf("[ALGOLIA] Query on index %q failed: %v", c.indexName, err)
		return nil, fmt.Errorf("%w: %v", domain.ErrSearchIndexFailure, err)
	}

	resp, err := decodeQueryResponse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSearchIndexFailure, err)
	}

	log.Printf("[ALGOLIA] %d hits for index %q", resp.NbHits, c.indexName)
	return mapQueryResponse(resp), nil
}

func (c *Client) keywordQuery(ctx context.Context, query domain.IndexQuery) (interface{}, error) {
	params := search.NewEmptySearchParamsObject().
		SetQuery(query.Query).
		SetHitsPerPage(int32(query.HitsPerPage)).
		SetPage(int32(query.Page))
	if filters := BuildFilters(query.Filters); filters != "" {
		params.SetFilters(filters)
	}

	request := c.api.NewApiSearchSingleIndexRequest(c.indexName).
		WithSearchParams(search.SearchParamsObjectAsSearchParams(params))

	return c.api.SearchSingleIndex(request, search.WithContext(ctx))
}

// vectorQuery sends the vector as a JSON-encoded custom parameter, which the typed
// search params cannot carry, so it goes through the SDK's custom request.
func (c *Client) vectorQuery(ctx context.Context, query domain.IndexQuery) (interface{}, error) {
	encoded, err := json.Marshal(query.Vector)
	if err != nil {
		return nil, fmt.Errorf("failed to encode vector: %w", err)
	}

	body := map[string]any{
		"query":       "",
		"hitsPerPage": query.HitsPerPage,
		"page":        query.Page,
		"customParameters": map[string]any{
			"vector": string(encoded),
		},
	}
	if filters := BuildFilters(query.Filters); filters != "" {
		body["filters"] = filters
	}

	path := fmt.Sprintf("1/indexes/%s/query", url.PathEscape(c.indexName))
	request := c.api.NewApiCustomPostRequest(path).WithBody(body)

	return c.api.CustomPost(request, search.WithContext(ctx))
}

// SaveObjects adds or replaces the given objects in the index
func (c *Client) SaveObjects(ctx context.Context, objects []domain.IndexedProduct) (*domain.SaveResult, error) {
	if len(objects) == 0 {
		return &domain.SaveResult{}, nil
	}

	requests := make([]search.BatchRequest, 0, len(objects))
	for _, obj := range objects {
		if obj.ObjectID == "" {
			obj.ObjectID = obj.ID
		}
		body, err := objectBody(obj)
		if err != nil {
			return nil, err
		}
		requests = append(requests, *search.NewBatchRequest(search.ACTION_ADD_OBJECT, body))
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w: %v", domain.ErrSearchIndexFailure, domain.ErrRateLimited, err)
	}

	resp, err := c.api.Batch(
		c.api.NewApiBatchRequest(c.indexName, search.NewBatchWriteParams(requests)),
		search.WithContext(ctx),
	)
	if err != nil {
		log.Printf("[ALGOLIA] Batch of %d objects to index %q failed: %v", len(objects), c.indexName, err)
		return nil, fmt.Errorf("%w: %v", domain.ErrSearchIndexFailure, err)
	}

	log.Printf("[ALGOLIA] Saved %d objects to index %q (task %d)", len(objects), c.indexName, resp.TaskID)
	return &domain.SaveResult{TaskID: resp.TaskID, ObjectIDs: resp.ObjectIDs}, nil
}
