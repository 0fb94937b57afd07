package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/enricharr/enricharr/internal/models"
)

// TMDBProvider fetches artwork, trailers, and core metadata fields from
// The Movie Database.
type TMDBProvider struct {
	apiKey   string
	language string
	client   *http.Client
}

func NewTMDBProvider(apiKey, language string) *TMDBProvider {
	if language == "" {
		language = "en"
	}
	return &TMDBProvider{
		apiKey:   apiKey,
		language: language,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *TMDBProvider) Name() string { return "tmdb" }

func (p *TMDBProvider) Capabilities() []models.Capability {
	return []models.Capability{
		models.CapPoster, models.CapFanart, models.CapTrailer,
		models.CapTitle, models.CapPlot, models.CapRating, models.CapGenres,
	}
}

// Budget mirrors TMDB's legacy rate limit of 40 requests per 10 seconds.
func (p *TMDBProvider) Budget() (int, time.Duration) { return 40, 10 * time.Second }

func (p *TMDBProvider) RequiresAuth() bool { return true }

func (p *TMDBProvider) Fetch(ctx context.Context, target *models.Target, capability models.Capability) ([]models.Candidate, error) {
	if p.apiKey == "" {
		return nil, NewError(models.ErrClassAuthError, "TMDB API key not configured")
	}
	if target.TMDBID == nil || *target.TMDBID == "" {
		return nil, NewError(models.ErrClassNotFound, "target has no tmdb id")
	}

	switch capability {
	case models.CapPoster, models.CapFanart:
		return p.fetchImages(ctx, *target.TMDBID, capability)
	case models.CapTrailer:
		return p.fetchVideos(ctx, *target.TMDBID)
	case models.CapTitle, models.CapPlot, models.CapRating, models.CapGenres:
		return p.fetchDetails(ctx, *target.TMDBID, capability)
	}
	return nil, NewError(models.ErrClassFormatError, fmt.Sprintf("tmdb does not supply %s", capability))
}

type tmdbImage struct {
	FilePath  string  `json:"file_path"`
	Width     int     `json:"width"`
	Height    int     `json:"height"`
	VoteCount int     `json:"vote_count"`
	Lang      string  `json:"iso_639_1"`
	VoteAvg   float64 `json:"vote_average"`
}

func (p *TMDBProvider) fetchImages(ctx context.Context, tmdbID string, capability models.Capability) ([]models.Candidate, error) {
	reqURL := fmt.Sprintf("https://api.themoviedb.org/3/movie/%s/images?api_key=%s&include_image_language=%s,null",
		tmdbID, p.apiKey, p.language)

	var result struct {
		Posters   []tmdbImage `json:"posters"`
		Backdrops []tmdbImage `json:"backdrops"`
	}
	if err := p.getJSON(ctx, reqURL, &result); err != nil {
		return nil, err
	}

	images := result.Posters
	if capability == models.CapFanart {
		images = result.Backdrops
	}

	var candidates []models.Candidate
	for _, img := range images {
		candidates = append(candidates, models.Candidate{
			ID:         uuid.New(),
			Capability: capability,
			Provider:   p.Name(),
			URL:        "https://image.tmdb.org/t/p/original" + img.FilePath,
			Width:      img.Width,
			Height:     img.Height,
			Votes:      img.VoteCount,
			Language:   img.Lang,
		})
	}
	return candidates, nil
}

func (p *TMDBProvider) fetchVideos(ctx context.Context, tmdbID string) ([]models.Candidate, error) {
	reqURL := fmt.Sprintf("https://api.themoviedb.org/3/movie/%s/videos?api_key=%s", tmdbID, p.apiKey)

	var result struct {
		Results []struct {
			Key      string `json:"key"`
			Site     string `json:"site"`
			Type     string `json:"type"`
			Size     int    `json:"size"` // 360/480/720/1080/2160
			Official bool   `json:"official"`
			Lang     string `json:"iso_639_1"`
		} `json:"results"`
	}
	if err := p.getJSON(ctx, reqURL, &result); err != nil {
		return nil, err
	}

	var candidates []models.Candidate
	for _, v := range result.Results {
		if v.Site != "YouTube" || !strings.EqualFold(v.Type, "trailer") {
			continue
		}
		votes := 0
		if v.Official {
			votes = 1
		}
		candidates = append(candidates, models.Candidate{
			ID:         uuid.New(),
			Capability: models.CapTrailer,
			Provider:   p.Name(),
			URL:        "https://www.youtube.com/watch?v=" + v.Key,
			Width:      widthForVideoSize(v.Size),
			Height:     v.Size,
			Votes:      votes,
			Language:   v.Lang,
		})
	}
	return candidates, nil
}

// widthForVideoSize maps TMDB's video "size" (height) to a nominal 16:9 width.
func widthForVideoSize(size int) int {
	switch size {
	case 2160:
		return 3840
	case 1080:
		return 1920
	case 720:
		return 1280
	case 480:
		return 854
	case 360:
		return 640
	}
	return size * 16 / 9
}

func (p *TMDBProvider) fetchDetails(ctx context.Context, tmdbID string, capability models.Capability) ([]models.Candidate, error) {
	reqURL := fmt.Sprintf("https://api.themoviedb.org/3/movie/%s?api_key=%s&language=%s",
		tmdbID, p.apiKey, p.language)

	var r struct {
		Title       string  `json:"title"`
		Overview    string  `json:"overview"`
		VoteAverage float64 `json:"vote_average"`
		VoteCount   int     `json:"vote_count"`
		Genres      []struct {
			Name string `json:"name"`
		} `json:"genres"`
	}
	if err := p.getJSON(ctx, reqURL, &r); err != nil {
		return nil, err
	}

	var value string
	switch capability {
	case models.CapTitle:
		value = r.Title
	case models.CapPlot:
		value = r.Overview
	case models.CapRating:
		value = strconv.FormatFloat(r.VoteAverage, 'f', 1, 64)
	case models.CapGenres:
		var names []string
		for _, g := range r.Genres {
			names = append(names, g.Name)
		}
		value = strings.Join(names, ", ")
	}
	if value == "" {
		return nil, nil
	}

	return []models.Candidate{{
		ID:         uuid.New(),
		Capability: capability,
		Provider:   p.Name(),
		Value:      value,
		Votes:      r.VoteCount,
		Language:   p.language,
		Confidence: 0.9,
	}}, nil
}

func (p *TMDBProvider) getJSON(ctx context.Context, reqURL string, dst interface{}) error {
	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return statusError("TMDB", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}
