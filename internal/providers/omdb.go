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

// OMDbProvider fetches ratings and plot text from the OMDb API by IMDB id.
type OMDbProvider struct {
	apiKey string
	client *http.Client
}

func NewOMDbProvider(apiKey string) *OMDbProvider {
	return &OMDbProvider{
		apiKey: apiKey,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *OMDbProvider) Name() string { return "omdb" }

func (p *OMDbProvider) Capabilities() []models.Capability {
	return []models.Capability{models.CapRating, models.CapPlot}
}

// Budget reflects OMDb's free-tier daily cap, spread over the day.
func (p *OMDbProvider) Budget() (int, time.Duration) { return 40, 60 * time.Second }

func (p *OMDbProvider) RequiresAuth() bool { return true }

func (p *OMDbProvider) Fetch(ctx context.Context, target *models.Target, capability models.Capability) ([]models.Candidate, error) {
	if p.apiKey == "" {
		return nil, NewError(models.ErrClassAuthError, "OMDb API key not configured")
	}
	if target.IMDBId == nil || *target.IMDBId == "" {
		return nil, NewError(models.ErrClassNotFound, "target has no imdb id")
	}

	reqURL := fmt.Sprintf("http://www.omdbapi.com/?i=%s&apikey=%s&plot=full",
		url.QueryEscape(*target.IMDBId), url.QueryEscape(p.apiKey))
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
		return nil, statusError("OMDb", resp.StatusCode)
	}

	var omdb struct {
		Response   string `json:"Response"`
		Error      string `json:"Error"`
		Plot       string `json:"Plot"`
		IMDBRating string `json:"imdbRating"`
		IMDBVotes  string `json:"imdbVotes"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&omdb); err != nil {
		return nil, err
	}
	if omdb.Response == "False" {
		return nil, NewError(models.ErrClassNotFound, "OMDb: "+omdb.Error)
	}

	var votes int
	fmt.Sscanf(stripCommas(omdb.IMDBVotes), "%d", &votes)

	switch capability {
	case models.CapRating:
		if omdb.IMDBRating == "" || omdb.IMDBRating == "N/A" {
			return nil, nil
		}
		return []models.Candidate{{
			ID:         uuid.New(),
			Capability: models.CapRating,
			Provider:   p.Name(),
			Value:      omdb.IMDBRating,
			Votes:      votes,
			Confidence: 0.95,
		}}, nil
	case models.CapPlot:
		if omdb.Plot == "" || omdb.Plot == "N/A" {
			return nil, nil
		}
		return []models.Candidate{{
			ID:         uuid.New(),
			Capability: models.CapPlot,
			Provider:   p.Name(),
			Value:      omdb.Plot,
			Votes:      votes,
			Confidence: 0.8,
		}}, nil
	}
	return nil, NewError(models.ErrClassFormatError, fmt.Sprintf("omdb does not supply %s", capability))
}

func stripCommas(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != ',' {
			out = append(out, s[i])
		}
	}
	return string(out)
}
