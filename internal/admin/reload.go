package admin

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"tablero/internal/reference"
)

type reloadReq struct {
	CatalogsDir string `json:"catalogs_dir"`
}

// reload перечитывает справочники выбора и атомарно подменяет текущий
// набор. Перед подменой все view перепроверяются против нового набора:
// кривой каталог не должен уронить работающий процесс.
func (e *Engine) reload(c *gin.Context) {
	var req reloadReq
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, "Invalid JSON", nil)
		return
	}
	dir := strings.TrimSpace(req.CatalogsDir)
	if dir == "" {
		errorJSON(c, http.StatusBadRequest, "catalogs_dir is required", nil)
		return
	}

	fresh, err := reference.LoadCatalogs(dir)
	if err != nil {
		errorJSON(c, http.StatusBadRequest, "Catalog load error: "+err.Error(), nil)
		return
	}

	e.mu.RLock()
	views := make([]*View, 0, len(e.views))
	for _, v := range e.views {
		views = append(views, v)
	}
	e.mu.RUnlock()

	for _, v := range views {
		if err := v.lint(e, fresh); err != nil {
			errorJSON(c, http.StatusBadRequest, "Catalog set rejected: "+err.Error(), nil)
			return
		}
	}

	e.mu.Lock()
	e.refs = fresh
	e.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{
		"ok":       true,
		"catalogs": len(fresh),
	})
}
