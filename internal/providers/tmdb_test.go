package providers

import (
	"context"
	"testing"

	"github.com/enricharr/enricharr/internal/models"
)

func TestTMDBWidthForVideoSize(t *testing.T) {
	cases := []struct{ size, want int }{
		{2160, 3840},
		{1080, 1920},
		{720, 1280},
		{480, 854},
		{360, 640},
	}
	for _, c := range cases {
		if got := widthForVideoSize(c.size); got != c.want {
			t.Errorf("widthForVideoSize(%d) = %d, want %d", c.size, got, c.want)
		}
	}
}

func TestTMDBFetchWithoutCredentials(t *testing.T) {
	p := NewTMDBProvider("", "en")
	id := "603"
	_, err := p.Fetch(context.Background(), &models.Target{TMDBID: &id}, models.CapPoster)
	if Classify(err) != models.ErrClassAuthError {
		t.Errorf("missing key should classify auth_error, got %q", Classify(err))
	}
}

func TestTMDBFetchWithoutExternalID(t *testing.T) {
	p := NewTMDBProvider("key", "en")
	_, err := p.Fetch(context.Background(), &models.Target{Title: "Unmatched"}, models.CapPoster)
	if Classify(err) != models.ErrClassNotFound {
		t.Errorf("missing tmdb id should classify not_found, got %q", Classify(err))
	}
}
