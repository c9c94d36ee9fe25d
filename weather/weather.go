// Package weather looks up current conditions from OpenWeatherMap.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const DefaultBaseURL = "http://api.openweathermap.org/data/2.5/weather"

var (
	ErrCityNotFound = errors.New("city not found")
	ErrNoAPIKey     = errors.New("no weather API key configured")
)

// Report is the current weather for a city.
type Report struct {
	City        string
	Description string
	TempC       float64
}

// Lookup fetches the current weather for a city.
type Lookup interface {
	Current(ctx context.Context, city string) (Report, error)
}

// Client talks to the OpenWeatherMap current-weather endpoint.
type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

type response struct {
	// cod is a number on success and a string on most failures.
	Cod     json.RawMessage `json:"cod"`
	Message string          `json:"message"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
	Main struct {
		Temp float64 `json:"temp"`
	} `json:"main"`
}

func (r response) ok() bool {
	return strings.Trim(string(r.Cod), `" `) == "200"
}

func (c *Client) Current(ctx context.Context, city string) (Report, error) {
	if c.APIKey == "" {
		return Report{}, ErrNoAPIKey
	}

	q := url.Values{}
	q.Set("q", city)
	q.Set("appid", c.APIKey)
	q.Set("units", "metric")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return Report{}, err
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return Report{}, fmt.Errorf("requesting weather: %w", err)
	}
	defer resp.Body.Close()

	var body response
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Report{}, fmt.Errorf("decoding weather response: %w", err)
	}
	if !body.ok() {
		return Report{}, fmt.Errorf("%s: %w", city, ErrCityNotFound)
	}
	if len(body.Weather) == 0 {
		return Report{}, fmt.Errorf("decoding weather response: no conditions")
	}

	return Report{
		City:        city,
		Description: body.Weather[0].Description,
		TempC:       body.Main.Temp,
	}, nil
}
