package gitutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCommitURL(t *testing.T) {
	const sha = "cabe27e5c8b8cb7cdc4e152f1cf013a89adc7a71"

	tests := []struct {
		name      string
		url       string
		wantOwner string
		wantRepo  string
		wantSHA   string
		wantErr   bool
	}{
		{
			name:      "Valid HTTPS URL",
			url:       "https://github.com/sevigo/ci-warden/commit/" + sha,
			wantOwner: "sevigo",
			wantRepo:  "ci-warden",
			wantSHA:   sha,
		},
		{
			name:      "Valid URL without scheme",
			url:       "github.com/sevigo/ci-warden/commit/" + sha,
			wantOwner: "sevigo",
			wantRepo:  "ci-warden",
			wantSHA:   sha,
		},
		{
			name:      "URL with trailing slash and upper case sha",
			url:       "https://github.com/sevigo/ci-warden/commit/CABE27E5C8B8CB7CDC4E152F1CF013A89ADC7A71/",
			wantOwner: "sevigo",
			wantRepo:  "ci-warden",
			wantSHA:   sha,
		},
		{
			name:    "Short SHA",
			url:     "https://github.com/sevigo/ci-warden/commit/cabe27e",
			wantErr: true,
		},
		{
			name:    "Invalid format (pull instead of commit)",
			url:     "https://github.com/sevigo/ci-warden/pull/123",
			wantErr: true,
		},
		{
			name:    "Empty URL",
			url:     "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			owner, repo, gotSHA, err := ParseCommitURL(tt.url)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.wantOwner, owner)
			assert.Equal(t, tt.wantRepo, repo)
			assert.Equal(t, tt.wantSHA, gotSHA)
		})
	}
}
