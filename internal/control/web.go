package control

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"

	"vecna/internal/tool"
)

const (
	userAgent    = "vecna/1.0"
	maxBodyBytes = 2 << 20
)

var videoIDRe = regexp.MustCompile(`"videoId":"([\w-]{11})"`)

func (h *handlers) get(ctx context.Context, endpoint string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := h.HTTP.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}

func (h *handlers) checkWeather(ctx context.Context, args tool.Args) (string, error) {
	city := args.String("city")

	// wttr.in expands %C and %t itself, so the format is not escaped
	endpoint := h.Endpoints.Weather + url.PathEscape(city) + "?format=%C+%t"

	body, status, err := h.get(ctx, endpoint)
	if err != nil {
		return "", fmt.Errorf("Connection error while checking weather: %v", err)
	}
	if status != http.StatusOK {
		return "", errors.New("I couldn't reach the weather service.")
	}

	return fmt.Sprintf("The weather in %s is %s.", city, strings.TrimSpace(string(body))), nil
}

func (h *handlers) searchWikipedia(ctx context.Context, args tool.Args) (string, error) {
	title := strings.ReplaceAll(args.String("query"), " ", "_")

	body, status, err := h.get(ctx, h.Endpoints.Wikipedia+url.PathEscape(title))
	if err != nil {
		return "", fmt.Errorf("Connection error while searching Wikipedia: %v", err)
	}
	if status != http.StatusOK || !gjson.ValidBytes(body) {
		return "", errors.New("No wikipedia page found.")
	}

	extract := gjson.GetBytes(body, "extract").String()
	if extract == "" {
		return "", errors.New("No wikipedia page found.")
	}
	return firstSentences(extract, 2), nil
}

func (h *handlers) playYouTube(ctx context.Context, args tool.Args) (string, error) {
	query := args.String("query")

	body, status, err := h.get(ctx, h.Endpoints.YouTube+"?search_query="+url.QueryEscape(query))
	if err != nil {
		return "", fmt.Errorf("Error: %v", err)
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("Error: YouTube returned %d", status)
	}

	m := videoIDRe.FindSubmatch(body)
	if m == nil {
		return "", fmt.Errorf("Nothing found on YouTube for %s.", query)
	}

	if err := h.Runner.Start("xdg-open", h.Endpoints.Watch+string(m[1])); err != nil {
		return "", fmt.Errorf("Error: %v", err)
	}
	return fmt.Sprintf("Playing %s on YouTube.", query), nil
}

// firstSentences keeps at most n sentences of text.
func firstSentences(text string, n int) string {
	text = strings.TrimSpace(text)
	end := 0
	for range n {
		i := sentenceEnd(text[end:])
		if i < 0 {
			return text
		}
		end += i
	}
	return strings.TrimSpace(text[:end])
}

// sentenceEnd returns the index just past the first terminator that is
// followed by whitespace or the end of text.
func sentenceEnd(s string) int {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '.', '!', '?':
			if i+1 == len(s) || s[i+1] == ' ' || s[i+1] == '\n' {
				return i + 1
			}
		}
	}
	return -1
}
