package flights

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/sirupsen/logrus"

	"github.com/random-robbie/Flight-Search-MCP-Server/internal/config"
)

const defaultBaseURL = "https://serpapi.com/search"

// Trip type classification, derived from the presence of a return date.
const (
	TripOneWay    = "one_way"
	TripRoundTrip = "round_trip"
)

// Query describes a single flight search.
type Query struct {
	Origin       string
	Destination  string
	OutboundDate string
	ReturnDate   string // empty means one-way
}

// Option is one flight summary in a search result.
type Option struct {
	Price         any    `json:"price"`
	DepartureTime string `json:"departure_time"`
	ArrivalTime   string `json:"arrival_time"`
	Airline       string `json:"airline"`
	Duration      int    `json:"duration"`
	Stops         int    `json:"stops"`
}

// Result is a successful flight search payload. Lookup failures are
// returned as errors and folded into an ErrorResult by the caller.
type Result struct {
	Status       string   `json:"status"`
	Origin       string   `json:"origin"`
	Destination  string   `json:"destination"`
	OutboundDate string   `json:"outbound_date"`
	ReturnDate   string   `json:"return_date,omitempty"`
	TripType     string   `json:"trip_type"`
	Flights      []Option `json:"flights"`
}

// ErrorResult is the domain-level failure payload. A failed lookup is
// still a successful tool call from the protocol's perspective; it is
// reported as ordinary tool output, never as a JSON-RPC error.
type ErrorResult struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Failure wraps a lookup failure message as a domain error payload.
func Failure(message string) ErrorResult {
	return ErrorResult{Status: "error", Message: message}
}

// Client looks up flight prices through SerpAPI's Google Flights engine.
type Client struct {
	apiKey     string
	currency   string
	maxResults int
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a flight search client. Currency and result limit
// come from the search config; zero values fall back to USD and 5.
func NewClient(apiKey string, search config.SearchConfig) *Client {
	currency := search.Currency
	if currency == "" {
		currency = "USD"
	}
	maxResults := search.MaxResults
	if maxResults <= 0 {
		maxResults = 5
	}
	return &Client{
		apiKey:     apiKey,
		currency:   currency,
		maxResults: maxResults,
		baseURL:    defaultBaseURL,
		// No timeout: a hung lookup stalls the session, which is an
		// accepted limitation of the strictly sequential design.
		httpClient: &http.Client{},
	}
}

// serpResponse is the subset of the SerpAPI payload we consume.
type serpResponse struct {
	Error       string       `json:"error"`
	BestFlights []serpFlight `json:"best_flights"`
}

type serpFlight struct {
	Price         any       `json:"price"`
	TotalDuration int       `json:"total_duration"`
	Flights       []serpLeg `json:"flights"`
}

type serpLeg struct {
	DepartureAirport serpAirport `json:"departure_airport"`
	ArrivalAirport   serpAirport `json:"arrival_airport"`
	Airline          string      `json:"airline"`
}

type serpAirport struct {
	Time string `json:"time"`
}

// Search performs a blocking flight lookup. All failure modes come back
// as errors carrying a caller-facing message; the transport never sees
// them as protocol errors.
func (c *Client) Search(ctx context.Context, q Query) (*Result, error) {
	params := url.Values{}
	params.Set("engine", "google_flights")
	params.Set("departure_id", q.Origin)
	params.Set("arrival_id", q.Destination)
	params.Set("outbound_date", q.OutboundDate)
	params.Set("currency", c.currency)
	params.Set("api_key", c.apiKey)

	tripType := TripOneWay
	if q.ReturnDate != "" {
		params.Set("return_date", q.ReturnDate)
		params.Set("type", "1") // round trip
		tripType = TripRoundTrip
	} else {
		params.Set("type", "2") // one way
	}

	logrus.WithFields(logrus.Fields{
		"origin":        q.Origin,
		"destination":   q.Destination,
		"outbound_date": q.OutboundDate,
		"trip_type":     tripType,
	}).Debug("searching flights")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %v", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("API request failed: unexpected status %s", resp.Status)
	}

	var data serpResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("Error processing flight data: %v", err)
	}
	if data.Error != "" {
		return nil, fmt.Errorf("SerpAPI error: %s", data.Error)
	}

	options := make([]Option, 0, c.maxResults)
	for _, f := range data.BestFlights {
		if len(options) == c.maxResults {
			break
		}
		options = append(options, summarize(f))
	}

	return &Result{
		Status:       "success",
		Origin:       q.Origin,
		Destination:  q.Destination,
		OutboundDate: q.OutboundDate,
		ReturnDate:   q.ReturnDate,
		TripType:     tripType,
		Flights:      options,
	}, nil
}

// summarize reduces a raw SerpAPI flight to the fields we expose.
// Times and airline come from the first leg; stops is legs minus one.
func summarize(f serpFlight) Option {
	opt := Option{
		Price:    f.Price,
		Duration: f.TotalDuration,
		Stops:    len(f.Flights) - 1,
	}
	if opt.Price == nil {
		opt.Price = "N/A"
	}
	if len(f.Flights) > 0 {
		first := f.Flights[0]
		opt.DepartureTime = first.DepartureAirport.Time
		opt.ArrivalTime = first.ArrivalAirport.Time
		opt.Airline = first.Airline
	}
	return opt
}
