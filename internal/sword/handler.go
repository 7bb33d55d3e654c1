package sword

import (
	"errors"
	"math"
	"net/http"
	"sort"
	"strconv"

	"github.com/chandama/touken-west-sub001/internal/httpx"
	"github.com/chandama/touken-west-sub001/internal/logger"

	"github.com/gin-gonic/gin"
)

// filterKeys maps the /filters response keys to record fields.
var filterKeys = []struct {
	key   string
	field string
}{
	{"schools", "School"},
	{"types", "Type"},
	{"smiths", "Smith"},
	{"authentications", "Authentication"},
	{"provinces", "Province"},
}

// Guards are the access checks the catalogue routes depend on.
type Guards struct {
	// FilterMedia shapes public responses.
	FilterMedia gin.HandlerFunc
	// RequireLibrary guards the full-library listing.
	RequireLibrary gin.HandlerFunc
	// RequireAdmin guards writes.
	RequireAdmin gin.HandlerFunc
}

type Handler struct {
	store Store
}

func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

func (h *Handler) RegisterRoutes(r gin.IRouter, g Guards) {
	swords := r.Group("/swords", g.FilterMedia)
	swords.GET("", h.list)
	swords.GET("/:index", h.get)
	swords.POST("", g.RequireAdmin, h.create)
	swords.PATCH("/:index", g.RequireAdmin, h.update)
	swords.DELETE("/:index", g.RequireAdmin, h.delete)

	r.GET("/filters", h.filters)
	r.GET("/library/swords", g.RequireLibrary, h.list)
}

func (h *Handler) list(c *gin.Context) {
	q, err := parseQuery(c)
	if err != nil {
		httpx.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.store.Search(c.Request.Context(), q)
	if err != nil {
		logger.Error("failed to list swords", map[string]any{"error": err})
		httpx.Error(c, http.StatusInternalServerError, "failed to fetch swords")
		return
	}

	httpx.Respond(c, http.StatusOK, gin.H{
		"swords": res.Swords,
		"total":  res.Total,
		"page":   q.Page,
		"limit":  q.Limit,
		"pages":  int64(math.Ceil(float64(res.Total) / float64(q.Limit))),
	})
}

func parseQuery(c *gin.Context) (Query, error) {
	q := Query{
		Search:         c.QueryArray("search"),
		Authentication: c.Query("authentication"),
		Exact:          map[string]string{},
	}
	for _, f := range ExactFields {
		if v := c.Query(lowerFirst(f)); v != "" {
			q.Exact[f] = v
		}
	}
	switch c.Query("hasMedia") {
	case "true":
		v := true
		q.HasMedia = &v
	case "false":
		v := false
		q.HasMedia = &v
	}

	var err error
	if q.Page, err = parsePositive(c.Query("page")); err != nil {
		return Query{}, errors.New("invalid page")
	}
	if q.Limit, err = parsePositive(c.Query("limit")); err != nil {
		return Query{}, errors.New("invalid limit")
	}
	return q.Normalize(), nil
}

func parsePositive(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, errors.New("not a positive integer")
	}
	return n, nil
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'A' && b[0] <= 'Z' {
		b[0] += 'a' - 'A'
	}
	return string(b)
}

func (h *Handler) get(c *gin.Context) {
	s, err := h.store.FindByIndex(c.Request.Context(), c.Param("index"))
	if errors.Is(err, ErrNotFound) {
		httpx.Error(c, http.StatusNotFound, "Sword not found")
		return
	}
	if err != nil {
		logger.Error("failed to fetch sword", map[string]any{
			"index": c.Param("index"),
			"error": err,
		})
		httpx.Error(c, http.StatusInternalServerError, "failed to fetch sword")
		return
	}

	httpx.Respond(c, http.StatusOK, s)
}

// filters lists the distinct values offered as filter options. Blank
// and unset values are left out.
func (h *Handler) filters(c *gin.Context) {
	resp := gin.H{}
	for _, fk := range filterKeys {
		values, err := h.store.Distinct(c.Request.Context(), fk.field)
		if err != nil {
			logger.Error("failed to fetch filter values", map[string]any{
				"field": fk.field,
				"error": err,
			})
			httpx.Error(c, http.StatusInternalServerError, "failed to fetch filters")
			return
		}
		out := make([]string, 0, len(values))
		for _, v := range values {
			if v != "" && v != Unset {
				out = append(out, v)
			}
		}
		sort.Strings(out)
		resp[fk.key] = out
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) create(c *gin.Context) {
	var input map[string]string
	if err := c.ShouldBindJSON(&input); err != nil {
		httpx.Error(c, http.StatusBadRequest, httpx.InvalidInput)
		return
	}

	s, err := h.store.Create(c.Request.Context(), NewRecord(input))
	if errors.Is(err, ErrDuplicate) {
		httpx.Error(c, http.StatusConflict, "Sword index conflict, retry")
		return
	}
	if err != nil {
		logger.Error("failed to create sword", map[string]any{"error": err})
		httpx.Error(c, http.StatusInternalServerError, "failed to create sword")
		return
	}

	logger.Info("sword created", map[string]any{"index": s[FieldIndex]})
	httpx.Respond(c, http.StatusOK, gin.H{"success": true, "sword": s})
}

func (h *Handler) update(c *gin.Context) {
	var input map[string]string
	if err := c.ShouldBindJSON(&input); err != nil {
		httpx.Error(c, http.StatusBadRequest, httpx.InvalidInput)
		return
	}

	index := c.Param("index")
	current, err := h.store.FindByIndex(c.Request.Context(), index)
	if errors.Is(err, ErrNotFound) {
		httpx.Error(c, http.StatusNotFound, "Sword not found")
		return
	}
	if err != nil {
		logger.Error("failed to fetch sword", map[string]any{"index": index, "error": err})
		httpx.Error(c, http.StatusInternalServerError, "failed to update sword")
		return
	}

	changes := Changes(current, input)
	if len(changes) == 0 {
		httpx.Respond(c, http.StatusOK, gin.H{"success": true, "sword": current})
		return
	}

	s, err := h.store.Update(c.Request.Context(), index, changes)
	if errors.Is(err, ErrNotFound) {
		httpx.Error(c, http.StatusNotFound, "Sword not found")
		return
	}
	if err != nil {
		logger.Error("failed to update sword", map[string]any{"index": index, "error": err})
		httpx.Error(c, http.StatusInternalServerError, "failed to update sword")
		return
	}

	logger.Info("sword updated", map[string]any{"index": index, "changes": len(changes)})
	httpx.Respond(c, http.StatusOK, gin.H{"success": true, "sword": s})
}

func (h *Handler) delete(c *gin.Context) {
	index := c.Param("index")
	err := h.store.Delete(c.Request.Context(), index)
	if errors.Is(err, ErrNotFound) {
		httpx.Error(c, http.StatusNotFound, "Sword not found")
		return
	}
	if err != nil {
		logger.Error("failed to delete sword", map[string]any{"index": index, "error": err})
		httpx.Error(c, http.StatusInternalServerError, "failed to delete sword")
		return
	}

	logger.Info("sword deleted", map[string]any{"index": index})
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Sword record deleted successfully"})
}
