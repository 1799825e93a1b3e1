// Package giphy decorates the chat with greeting and celebration GIFs. Every
// failure falls back to a stock GIF; this service never errors.
package giphy

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"time"
)

const (
	defaultAPIURL = "https://api.giphy.com/v1/gifs/search"

	// FallbackGif is used whenever the API is unavailable or unconfigured.
	FallbackGif = "https://media.giphy.com/media/3o7TKsQ8UQZrJtXXLi/giphy.gif"
)

var greetingKeyword = "hello there"

var celebrationKeywords = []string{"happy_dancing", "yay"}

type Service struct {
	apiKey string
	client *http.Client
	apiURL string
}

func NewService(apiKey string) *Service {
	return &Service{
		apiKey: apiKey,
		client: &http.Client{Timeout: 5 * time.Second},
		apiURL: defaultAPIURL,
	}
}

// SetTestURL points the service at a fake Giphy server.
func (s *Service) SetTestURL(url string) {
	s.apiURL = url
}

// RandomGif returns the URL of a random GIF matching the keyword.
func (s *Service) RandomGif(ctx context.Context, keyword string) string {
	if s.apiKey == "" {
		return FallbackGif
	}

	reqURL := fmt.Sprintf("%s?api_key=%s&q=%s&limit=10", s.apiURL, s.apiKey, url.QueryEscape(keyword))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return FallbackGif
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return FallbackGif
	}
	defer resp.Body.Close()

	var parsed struct {
		Data []struct {
			Images struct {
				Original struct {
					URL string `json:"url"`
				} `json:"original"`
			} `json:"images"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return FallbackGif
	}
	if len(parsed.Data) == 0 {
		return FallbackGif
	}
	return parsed.Data[rand.Intn(len(parsed.Data))].Images.Original.URL
}

// GreetingGif returns a GIF for the start of a chat.
func (s *Service) GreetingGif(ctx context.Context) string {
	return s.RandomGif(ctx, greetingKeyword)
}

// CelebrationGif returns a GIF for the moment signup intent is confirmed.
func (s *Service) CelebrationGif(ctx context.Context) string {
	return s.RandomGif(ctx, celebrationKeywords[rand.Intn(len(celebrationKeywords))])
}
