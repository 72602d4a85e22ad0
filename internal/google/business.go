package google

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"sponte/internal/agents"
	"sponte/internal/store"

	"github.com/google/uuid"
)

// DefaultBusinessBaseURL is the Business Profile v4 API host.
const DefaultBusinessBaseURL = "https://mybusiness.googleapis.com"

// ClientSource hands out authenticated clients per location.
type ClientSource interface {
	HTTPClient(ctx context.Context, locationID uuid.UUID) (*http.Client, error)
}

// BusinessClient publishes local posts and reads location insights.
type BusinessClient struct {
	baseURL string
	clients ClientSource
}

var _ agents.Publisher = (*BusinessClient)(nil)

// NewBusinessClient returns a client for baseURL, or the public API when empty.
func NewBusinessClient(baseURL string, clients ClientSource) *BusinessClient {
	if baseURL == "" {
		baseURL = DefaultBusinessBaseURL
	}
	return &BusinessClient{baseURL: strings.TrimRight(baseURL, "/"), clients: clients}
}

// APIError is a non-2xx answer from the Business Profile API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("google business api error (status %d): %s", e.StatusCode, e.Message)
}

type callToAction struct {
	ActionType string `json:"actionType"`
	URL        string `json:"url,omitempty"`
}

type localPost struct {
	LanguageCode string        `json:"languageCode"`
	Summary      string        `json:"summary"`
	TopicType    string        `json:"topicType"`
	CallToAction *callToAction `json:"callToAction,omitempty"`
}

type localPostResponse struct {
	Name      string `json:"name"`
	SearchURL string `json:"searchUrl"`
}

// Publish creates a local post under req.Resource ("accounts/x/locations/y").
func (c *BusinessClient) Publish(ctx context.Context, req agents.PublishRequest) (*agents.PublishResult, error) {
	if req.Resource == "" {
		return nil, fmt.Errorf("publish: location has no business profile binding")
	}

	post := localPost{LanguageCode: "en-US", Summary: req.Content, TopicType: "STANDARD"}
	if req.CallToAction != nil {
		post.CallToAction = &callToAction{ActionType: string(*req.CallToAction)}
		// CALL uses the profile's phone number and takes no URL.
		if *req.CallToAction != store.CTACall {
			post.CallToAction.URL = req.WebsiteURL
		}
	}

	var resp localPostResponse
	path := fmt.Sprintf("/v4/%s/localPosts", req.Resource)
	if err := c.do(ctx, req.LocationID, path, post, &resp); err != nil {
		return nil, err
	}
	return &agents.PublishResult{ExternalID: resp.Name, URL: resp.SearchURL}, nil
}

// Insights are the summed location metrics over a period.
type Insights struct {
	Calls             int64
	Views             int64
	DirectionRequests int64
	WebsiteClicks     int64
	DirectQueries     int64
	IndirectQueries   int64
}

type metricRequest struct {
	Metric string `json:"metric"`
}

type insightsRequest struct {
	LocationNames []string `json:"locationNames"`
	BasicRequest  struct {
		MetricRequests []metricRequest `json:"metricRequests"`
		TimeRange      struct {
			StartTime string `json:"startTime"`
			EndTime   string `json:"endTime"`
		} `json:"timeRange"`
	} `json:"basicRequest"`
}

type insightsResponse struct {
	LocationMetrics []struct {
		MetricValues []struct {
			Metric     string `json:"metric"`
			TotalValue struct {
				// v4 encodes int64 values as strings.
				Value json.Number `json:"value"`
			} `json:"totalValue"`
		} `json:"metricValues"`
	} `json:"locationMetrics"`
}

var insightMetrics = []string{
	"QUERIES_DIRECT", "QUERIES_INDIRECT", "VIEWS_MAPS", "VIEWS_SEARCH",
	"ACTIONS_WEBSITE", "ACTIONS_PHONE", "ACTIONS_DRIVING_DIRECTIONS",
}

// FetchInsights reads the location's metrics for [start, end).
func (c *BusinessClient) FetchInsights(ctx context.Context, locationID uuid.UUID, resource string, start, end time.Time) (*Insights, error) {
	account, _, ok := strings.Cut(strings.TrimPrefix(resource, "accounts/"), "/")
	if !ok || !strings.HasPrefix(resource, "accounts/") {
		return nil, fmt.Errorf("insights: resource %q is not accounts/{account}/locations/{location}", resource)
	}

	var body insightsRequest
	body.LocationNames = []string{resource}
	for _, m := range insightMetrics {
		body.BasicRequest.MetricRequests = append(body.BasicRequest.MetricRequests, metricRequest{Metric: m})
	}
	body.BasicRequest.TimeRange.StartTime = start.UTC().Format(time.RFC3339)
	body.BasicRequest.TimeRange.EndTime = end.UTC().Format(time.RFC3339)

	var resp insightsResponse
	path := fmt.Sprintf("/v4/accounts/%s/locations:reportInsights", account)
	if err := c.do(ctx, locationID, path, body, &resp); err != nil {
		return nil, err
	}
	return parseInsights(resp), nil
}

func parseInsights(resp insightsResponse) *Insights {
	out := &Insights{}
	if len(resp.LocationMetrics) == 0 {
		return out
	}
	for _, mv := range resp.LocationMetrics[0].MetricValues {
		v, err := strconv.ParseInt(mv.TotalValue.Value.String(), 10, 64)
		if err != nil {
			continue
		}
		switch mv.Metric {
		case "ACTIONS_PHONE":
			out.Calls = v
		case "VIEWS_MAPS", "VIEWS_SEARCH":
			out.Views += v
		case "ACTIONS_DRIVING_DIRECTIONS":
			out.DirectionRequests = v
		case "ACTIONS_WEBSITE":
			out.WebsiteClicks = v
		case "QUERIES_DIRECT":
			out.DirectQueries = v
		case "QUERIES_INDIRECT":
			out.IndirectQueries = v
		}
	}
	return out
}

func (c *BusinessClient) do(ctx context.Context, locationID uuid.UUID, path string, in, out any) error {
	client, err := c.clients.HTTPClient(ctx, locationID)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("google business request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var e struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		msg := strings.TrimSpace(string(raw))
		if json.Unmarshal(raw, &e) == nil && e.Error.Message != "" {
			msg = e.Error.Message
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
