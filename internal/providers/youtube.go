package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/enricharr/enricharr/internal/models"
)

// YouTubeProvider searches the YouTube Data API for trailer candidates.
// It only knows the watch URL; resolution is unknown until a later probe,
// so its candidates carry no quality attributes and rank below providers
// that declare one.
type YouTubeProvider struct {
	apiKey string
	region string
	client *http.Client
}

func NewYouTubeProvider(apiKey, region string) *YouTubeProvider {
	return &YouTubeProvider{
		apiKey: apiKey,
		region: region,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *YouTubeProvider) Name() string { return "youtube" }

func (p *YouTubeProvider) Capabilities() []models.Capability {
	return []models.Capability{models.CapTrailer}
}

func (p *YouTubeProvider) Budget() (int, time.Duration) { return 100, 100 * time.Second }

func (p *YouTubeProvider) RequiresAuth() bool { return true }

func (p *YouTubeProvider) Fetch(ctx context.Context, target *models.Target, capability models.Capability) ([]models.Candidate, error) {
	if capability != models.CapTrailer {
		return nil, NewError(models.ErrClassFormatError, fmt.Sprintf("youtube does not supply %s", capability))
	}
	if p.apiKey == "" {
		return nil, NewError(models.ErrClassAuthError, "YouTube API key not configured")
	}

	query := target.Title + " trailer"
	if target.Year != nil {
		query = fmt.Sprintf("%s %d trailer", target.Title, *target.Year)
	}

	reqURL := fmt.Sprintf(
		"https://www.googleapis.com/youtube/v3/search?part=snippet&type=video&videoEmbeddable=true&maxResults=5&q=%s&key=%s",
		url.QueryEscape(query), url.QueryEscape(p.apiKey))
	if p.region != "" {
		reqURL += "&regionCode=" + url.QueryEscape(p.region)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return nil, statusError("YouTube", resp.StatusCode)
	}

	var result struct {
		Items []struct {
			ID struct {
				VideoID string `json:"videoId"`
			} `json:"id"`
			Snippet struct {
				Title string `json:"title"`
			} `json:"snippet"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	var candidates []models.Candidate
	for _, item := range result.Items {
		if item.ID.VideoID == "" {
			continue
		}
		candidates = append(candidates, models.Candidate{
			ID:         uuid.New(),
			Capability: models.CapTrailer,
			Provider:   p.Name(),
			URL:        "https://www.youtube.com/watch?v=" + item.ID.VideoID,
		})
	}
	return candidates, nil
}
