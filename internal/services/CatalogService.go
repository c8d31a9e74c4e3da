package services

import (
	"context"
	"watchsync/internal/remote"
)

// TitleDetails flattens the title record next to its credits.
type TitleDetails struct {
	remote.Details
	Credits *remote.Credits `json:"credits,omitempty"`
}

type CatalogServiceInterface interface {
	Enabled() bool
	Search(ctx context.Context, query string, page int) (*remote.TitlePage, error)
	Trending(ctx context.Context, mediaType string, page int) (*remote.TitlePage, error)
	Discover(ctx context.Context, mediaType string, genreID int, page int) (*remote.TitlePage, error)
	Details(ctx context.Context, mediaType string, id int64) (*TitleDetails, error)
}

type CatalogService struct {
	metadata remote.MetadataClientInterface
}

func NewCatalogService(metadata remote.MetadataClientInterface) CatalogServiceInterface {
	return &CatalogService{metadata: metadata}
}

func (cs *CatalogService) Enabled() bool {
	return cs.metadata.Enabled()
}

func (cs *CatalogService) Search(ctx context.Context, query string, page int) (*remote.TitlePage, error) {
	return cs.metadata.Search(ctx, query, page)
}

func (cs *CatalogService) Trending(ctx context.Context, mediaType string, page int) (*remote.TitlePage, error) {
	return cs.metadata.Trending(ctx, mediaType, page)
}

func (cs *CatalogService) Discover(ctx context.Context, mediaType string, genreID int, page int) (*remote.TitlePage, error) {
	return cs.metadata.Discover(ctx, mediaType, genreID, page)
}

// Details joins the title record with its credits. Missing credits do not
// fail the lookup.
func (cs *CatalogService) Details(ctx context.Context, mediaType string, id int64) (*TitleDetails, error) {
	details, err := cs.metadata.Details(ctx, mediaType, id)
	if err != nil {
		return nil, err
	}
	out := &TitleDetails{Details: *details}
	if credits, err := cs.metadata.Credits(ctx, mediaType, id); err == nil {
		out.Credits = credits
	}
	return out, nil
}
