package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/enricharr/enricharr/internal/models"
)

// TVDBProvider fetches artwork and plot from TheTVDB API v4. The v4 API
// trades the API key for a short-lived JWT on first use.
type TVDBProvider struct {
	apiKey string
	client *http.Client

	mu    sync.Mutex
	token string
}

func NewTVDBProvider(apiKey string) *TVDBProvider {
	return &TVDBProvider{
		apiKey: apiKey,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *TVDBProvider) Name() string { return "tvdb" }

func (p *TVDBProvider) Capabilities() []models.Capability {
	return []models.Capability{models.CapPoster, models.CapBanner, models.CapPlot}
}

func (p *TVDBProvider) Budget() (int, time.Duration) { return 60, 60 * time.Second }

func (p *TVDBProvider) RequiresAuth() bool { return true }

// authenticate gets a JWT token from TVDB API v4.
func (p *TVDBProvider) authenticate(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.token != "" {
		return p.token, nil
	}

	body := fmt.Sprintf(`{"apikey":%q}`, p.apiKey)
	req, err := http.NewRequestWithContext(ctx, "POST", "https://api4.thetvdb.com/v4/login", strings.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return "", statusError("TVDB login", resp.StatusCode)
	}

	var result struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	p.token = result.Data.Token
	return p.token, nil
}

func (p *TVDBProvider) Fetch(ctx context.Context, target *models.Target, capability models.Capability) ([]models.Candidate, error) {
	if p.apiKey == "" {
		return nil, NewError(models.ErrClassAuthError, "TVDB API key not configured")
	}
	if target.TVDBID == nil || *target.TVDBID == "" {
		return nil, NewError(models.ErrClassNotFound, "target has no tvdb id")
	}

	token, err := p.authenticate(ctx)
	if err != nil {
		return nil, err
	}

	reqURL := fmt.Sprintf("https://api4.thetvdb.com/v4/movies/%s/extended", *target.TVDBID)
	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == 401 {
		// Token expired; drop it so the next call re-authenticates.
		p.mu.Lock()
		p.token = ""
		p.mu.Unlock()
	}
	if resp.StatusCode != 200 {
		return nil, statusError("TVDB", resp.StatusCode)
	}

	var result struct {
		Data struct {
			Overview string `json:"overview"`
			Artworks []struct {
				Image  string `json:"image"`
				Type   int    `json:"type"` // 14=poster, 15=background, 16=banner (movies)
				Width  int    `json:"width"`
				Height int    `json:"height"`
				Score  int    `json:"score"`
				Lang   string `json:"language"`
			} `json:"artworks"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	if capability == models.CapPlot {
		if result.Data.Overview == "" {
			return nil, nil
		}
		return []models.Candidate{{
			ID:         uuid.New(),
			Capability: models.CapPlot,
			Provider:   p.Name(),
			Value:      result.Data.Overview,
			Confidence: 0.7,
		}}, nil
	}

	wantType := 14 // movie poster
	if capability == models.CapBanner {
		wantType = 16
	}

	var candidates []models.Candidate
	for _, art := range result.Data.Artworks {
		if art.Type != wantType || art.Image == "" {
			continue
		}
		candidates = append(candidates, models.Candidate{
			ID:         uuid.New(),
			Capability: capability,
			Provider:   p.Name(),
			URL:        art.Image,
			Width:      art.Width,
			Height:     art.Height,
			Votes:      art.Score,
			Language:   art.Lang,
		})
	}
	return candidates, nil
}
