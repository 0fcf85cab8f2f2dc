// Package news summarises headlines from NewsAPI.
package news

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/Himanshu040604/PregelFlow/internal/services"
)

// DefaultBaseURL is the NewsAPI root.
const DefaultBaseURL = "https://newsapi.org/v2"

// MissingKey is returned when no API key is configured.
const MissingKey = "News Error: API Key missing."

// PageSize is the number of headlines requested.
const PageSize = 3

// Source fetches headlines for a topic. An empty or "general" topic asks
// for the top US headlines instead of a search.
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
	Articles []struct {
		Title  string `json:"title"`
		Source struct {
			Name string `json:"name"`
		} `json:"source"`
	} `json:"articles"`
}

// Fetch implements collaborator.Collaborator.
func (s *Source) Fetch(ctx context.Context, topic string) string {
	if s.APIKey == "" {
		return MissingKey
	}
	client := s.Client
	if client == nil {
		client = services.NewHTTPClient()
	}

	path, header := "everything", fmt.Sprintf("News about %s", topic)
	q := url.Values{"apiKey": {s.APIKey}, "pageSize": {fmt.Sprint(PageSize)}}
	if topic == "" || strings.EqualFold(topic, "general") {
		path, header = "top-headlines", "Top global headlines"
		q.Set("country", "us")
	} else {
		q.Set("q", topic)
	}

	var body response
	status, err := services.GetJSON(ctx, client, s.BaseURL, path, q, &body)
	switch {
	case err != nil:
		return fmt.Sprintf("News Error: %v", err)
	case status != http.StatusOK:
		return fmt.Sprintf("News Error: API returned status %d", status)
	case len(body.Articles) == 0:
		return fmt.Sprintf("No news found for '%s'.", topic)
	}

	lines := make([]string, 0, len(body.Articles))
	for _, a := range body.Articles {
		lines = append(lines, fmt.Sprintf("- %s (%s)", a.Title, a.Source.Name))
	}
	return header + ":\n" + strings.Join(lines, "\n")
}
