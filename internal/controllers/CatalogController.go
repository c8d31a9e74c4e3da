package controllers

import (
	"net/http"
	"strconv"
	"strings"
	"watchsync/internal/providers"
	"watchsync/internal/services"

	json "github.com/goccy/go-json"
)

type CatalogController struct {
	logger  providers.Logger
	catalog services.CatalogServiceInterface
	cache   providers.CacheProviderInterface
}

func NewCatalogController(logger providers.Logger, catalog services.CatalogServiceInterface, cache providers.CacheProviderInterface) *CatalogController {
	return &CatalogController{
		logger:  logger,
		catalog: catalog,
		cache:   cache,
	}
}

// serveFromCacheOrCompute answers from the response cache and falls back to
// compute. Failed lookups are not cached.
func (cc *CatalogController) serveFromCacheOrCompute(w http.ResponseWriter, cacheKey string, compute func() (any, error)) {
	if data, ok := cc.cache.Get(cacheKey); ok {
		writeRaw(w, http.StatusOK, data)
		return
	}

	result, err := compute()
	if err != nil {
		cc.logger.Warnf(providers.TypeGet, "Catalog lookup %s failed: %s", cacheKey, err)
		writeError(w, err)
		return
	}

	gson, err := json.Marshal(result)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	cc.cache.Set(cacheKey, gson)
	writeRaw(w, http.StatusOK, gson)
}

func mediaTypeParam(r *http.Request, allowAll bool) (string, bool) {
	t := r.URL.Query().Get("type")
	switch t {
	case "movie", "tv":
		return t, true
	case "", "all":
		return "all", allowAll
	}
	return "", false
}

func (cc *CatalogController) Search(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	page := queryInt(r, "page", 1)
	key := "search:" + strings.ToLower(q) + ":" + strconv.Itoa(page)
	cc.serveFromCacheOrCompute(w, key, func() (any, error) {
		return cc.catalog.Search(r.Context(), q, page)
	})
}

func (cc *CatalogController) Trending(w http.ResponseWriter, r *http.Request) {
	mediaType, ok := mediaTypeParam(r, true)
	if !ok {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	page := queryInt(r, "page", 1)
	cc.serveFromCacheOrCompute(w, "trending:"+mediaType+":"+strconv.Itoa(page), func() (any, error) {
		return cc.catalog.Trending(r.Context(), mediaType, page)
	})
}

func (cc *CatalogController) Discover(w http.ResponseWriter, r *http.Request) {
	mediaType, ok := mediaTypeParam(r, false)
	if !ok {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	genre := queryInt(r, "genre", 0)
	page := queryInt(r, "page", 1)
	key := "discover:" + mediaType + ":" + strconv.Itoa(genre) + ":" + strconv.Itoa(page)
	cc.serveFromCacheOrCompute(w, key, func() (any, error) {
		return cc.catalog.Discover(r.Context(), mediaType, genre, page)
	})
}

func (cc *CatalogController) Details(w http.ResponseWriter, r *http.Request) {
	mediaType, ok := mediaTypeParam(r, false)
	if !ok {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	id, err := queryID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	key := "details:" + mediaType + ":" + strconv.FormatInt(id, 10)
	cc.serveFromCacheOrCompute(w, key, func() (any, error) {
		return cc.catalog.Details(r.Context(), mediaType, id)
	})
}
