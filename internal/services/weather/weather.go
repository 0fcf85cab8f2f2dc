// Package weather reports current conditions from OpenWeather.
package weather

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Himanshu040604/PregelFlow/internal/services"
)

// DefaultBaseURL is the OpenWeather data API root.
const DefaultBaseURL = "https://api.openweathermap.org/data/2.5"

// Skipped is returned for topics that are not plausibly a place.
const Skipped = "Weather: N/A (Global/Stock Context)"

// MissingKey is returned when no API key is configured.
const MissingKey = "Weather Error: API Key missing. Please check your .env file."

// Source fetches the weather for a city-like topic.
type Source struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// New returns a Source against the public API.
func New(apiKey string) *Source {
	return &Source{BaseURL: DefaultBaseURL, APIKey: apiKey, Client: services.NewHTTPClient()}
}

type response struct {
	Name string `json:"name"`
	Main struct {
		Temp float64 `json:"temp"`
	} `json:"main"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
	Sys struct {
		Country string `json:"country"`
	} `json:"sys"`
}

// Fetch implements collaborator.Collaborator.
func (s *Source) Fetch(ctx context.Context, city string) string {
	if skip(city) {
		return Skipped
	}
	if s.APIKey == "" {
		return MissingKey
	}

	client := s.Client
	if client == nil {
		client = services.NewHTTPClient()
	}
	q := url.Values{"q": {city}, "appid": {s.APIKey}, "units": {"metric"}}

	var body response
	status, err := services.GetJSON(ctx, client, s.BaseURL, "weather", q, &body)
	switch {
	case err != nil:
		return fmt.Sprintf("Connection Error: %v", err)
	case status == http.StatusNotFound:
		return fmt.Sprintf("Weather: Bruhh you need to enter a valid city name instead of '%s'", city)
	case status != http.StatusOK:
		return fmt.Sprintf("Weather Error: Status %d", status)
	}

	desc := ""
	if len(body.Weather) > 0 {
		desc = body.Weather[0].Description
	}
	country := body.Sys.Country
	if country == "" {
		country = "Unknown"
	}
	return fmt.Sprintf("Weather in %s, %s: %s, %s°C",
		body.Name, country, capitalize(desc), strconv.FormatFloat(body.Main.Temp, 'f', -1, 64))
}

// skip reports whether the topic looks like a ticker or the general overview.
func skip(city string) bool {
	return city == "" ||
		strings.EqualFold(city, "general") ||
		strings.Contains(city, ".") ||
		utf8.RuneCountInString(city) <= 2
}

// capitalize upper-cases the first letter and lower-cases the rest.
func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}
