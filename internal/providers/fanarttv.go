package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/enricharr/enricharr/internal/models"
)

// FanartTVProvider fetches extended artwork from fanart.tv. Images there
// have fixed dimensions per slot, so width/height are filled from the
// published image specs rather than the API response.
type FanartTVProvider struct {
	apiKey string
	client *http.Client
}

func NewFanartTVProvider(apiKey string) *FanartTVProvider {
	return &FanartTVProvider{
		apiKey: apiKey,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *FanartTVProvider) Name() string { return "fanarttv" }

func (p *FanartTVProvider) Capabilities() []models.Capability {
	return []models.Capability{
		models.CapPoster, models.CapFanart, models.CapBanner, models.CapClearLogo,
	}
}

func (p *FanartTVProvider) Budget() (int, time.Duration) { return 30, 60 * time.Second }

func (p *FanartTVProvider) RequiresAuth() bool { return true }

type fanartImage struct {
	ID    string `json:"id"`
	URL   string `json:"url"`
	Likes string `json:"likes"`
	Lang  string `json:"lang"`
}

// Fixed image dimensions per fanart.tv slot.
var fanartDimensions = map[models.Capability][2]int{
	models.CapPoster:    {1000, 1426},
	models.CapFanart:    {1920, 1080},
	models.CapBanner:    {1000, 185},
	models.CapClearLogo: {800, 310},
}

func (p *FanartTVProvider) Fetch(ctx context.Context, target *models.Target, capability models.Capability) ([]models.Candidate, error) {
	if p.apiKey == "" {
		return nil, NewError(models.ErrClassAuthError, "fanart.tv API key not configured")
	}
	if target.TMDBID == nil || *target.TMDBID == "" {
		return nil, NewError(models.ErrClassNotFound, "target has no tmdb id")
	}

	reqURL := fmt.Sprintf("https://webservice.fanart.tv/v3/movies/%s?api_key=%s", *target.TMDBID, p.apiKey)
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
		return nil, statusError("fanart.tv", resp.StatusCode)
	}

	var result struct {
		MoviePosters     []fanartImage `json:"movieposter"`
		MovieBackgrounds []fanartImage `json:"moviebackground"`
		MovieBanners     []fanartImage `json:"moviebanner"`
		HDMovieLogos     []fanartImage `json:"hdmovielogo"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	var images []fanartImage
	switch capability {
	case models.CapPoster:
		images = result.MoviePosters
	case models.CapFanart:
		images = result.MovieBackgrounds
	case models.CapBanner:
		images = result.MovieBanners
	case models.CapClearLogo:
		images = result.HDMovieLogos
	}

	dims := fanartDimensions[capability]
	var candidates []models.Candidate
	for _, img := range images {
		if img.URL == "" {
			continue
		}
		likes, _ := strconv.Atoi(img.Likes)
		candidates = append(candidates, models.Candidate{
			ID:         uuid.New(),
			Capability: capability,
			Provider:   p.Name(),
			URL:        img.URL,
			Width:      dims[0],
			Height:     dims[1],
			Votes:      likes,
			Language:   img.Lang,
		})
	}
	return candidates, nil
}
