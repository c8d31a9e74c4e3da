package services

import (
	"context"
	"testing"
	"time"
	"watchsync/internal/remote"
	"watchsync/internal/structures"
	"watchsync/internal/testutil"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCatalog(t *testing.T) CatalogServiceInterface {
	t.Helper()
	fm := testutil.NewFakeMetadata()
	t.Cleanup(fm.Close)
	conf := &structures.Config{
		Metadata: structures.MetadataConfig{BaseURL: fm.URL, APIKey: testutil.FakeAPIKey, Timeout: time.Second},
	}
	return NewCatalogService(remote.NewMetadataClient(conf, &testutil.MockLogger{}))
}

func TestCatalogService_DetailsWithCredits(t *testing.T) {
	cs := newCatalog(t)
	details, err := cs.Details(context.Background(), "movie", 603)
	require.NoError(t, err)
	assert.Equal(t, 136, details.Runtime)
	require.NotNil(t, details.Credits)
	assert.Len(t, details.Credits.Cast, 1)
}

func TestCatalogService_DetailsWithoutCredits(t *testing.T) {
	cs := newCatalog(t)
	details, err := cs.Details(context.Background(), "tv", 1399)
	require.NoError(t, err)
	assert.Equal(t, 8, details.NumberOfSeasons)
	assert.Nil(t, details.Credits)
}

func TestTitleDetails_MarshalFlat(t *testing.T) {
	tests := []struct {
		name    string
		credits *remote.Credits
	}{
		{"without credits", nil},
		{"with credits", &remote.Credits{ID: 603, Cast: []remote.CastMember{{ID: 6384, Name: "Keanu Reeves"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := &TitleDetails{
				Details: remote.Details{Title: remote.Title{ID: 603, Title: "The Matrix"}, Runtime: 136},
				Credits: tt.credits,
			}
			raw, err := json.Marshal(in)
			require.NoError(t, err)

			var out map[string]interface{}
			require.NoError(t, json.Unmarshal(raw, &out))
			assert.EqualValues(t, 603, out["id"])
			assert.Equal(t, "The Matrix", out["title"])
			assert.EqualValues(t, 136, out["runtime"])
			_, hasCredits := out["credits"]
			assert.Equal(t, tt.credits != nil, hasCredits)
		})
	}
}

func TestCatalogService_Passthrough(t *testing.T) {
	cs := newCatalog(t)
	assert.True(t, cs.Enabled())

	page, err := cs.Search(context.Background(), "matrix", 1)
	require.NoError(t, err)
	assert.Len(t, page.Results, 2)

	page, err = cs.Discover(context.Background(), "tv", 18, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Page)

	page, err = cs.Trending(context.Background(), "", 1)
	require.NoError(t, err)
	assert.NotEmpty(t, page.Results)
}
