package search

import (
	"context"

	"instauto_backend/internal/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Searcher is the query side of the oficina directory.
type Searcher interface {
	Search(ctx context.Context, q Query) ([]Document, int64, error)
}

// OficinaResult is one public search hit.
type OficinaResult struct {
	Slug string      `json:"slug"`
	Name string      `json:"name"`
	City string      `json:"city,omitempty"`
	Plan common.Plan `json:"plan"`
}

type Handler struct {
	searcher Searcher
	logger   *zap.Logger
}

func NewHandler(searcher Searcher, logger *zap.Logger) *Handler {
	return &Handler{searcher: searcher, logger: logger.Named("SearchHandler")}
}

// RegisterRoutes mounts GET /search/oficinas. It is public.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/search/oficinas", h.searchOficinas)
}

func (h *Handler) searchOficinas(c *gin.Context) {
	page, pageSize := common.GetPaginationParams(c)
	q := Query{
		Text:     c.Query("q"),
		City:     c.Query("city"),
		Page:     page,
		PageSize: pageSize,
	}

	docs, total, err := h.searcher.Search(c.Request.Context(), q)
	if err != nil {
		h.logger.Error("Oficina search failed", zap.Error(err))
		common.RespondWithError(c, common.ErrServiceUnavailable.WithDetails("Search is temporarily unavailable."))
		return
	}

	results := make([]OficinaResult, 0, len(docs))
	for _, d := range docs {
		results = append(results, OficinaResult{Slug: d.Slug, Name: d.Name, City: d.City, Plan: d.EffectivePlan})
	}
	common.RespondPaginated(c, "Oficinas found.", results, common.NewPagination(total, page, pageSize))
}
