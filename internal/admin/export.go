package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"tablero/internal/meta"
)

// export отдаёт xlsx по отфильтрованной, но НЕ пагинированной выборке.
// Требует зарегистрированных экспортных колонок.
func (e *Engine) export(c *gin.Context, v *View) {
	if len(v.Export) == 0 {
		err := meta.ConfigErr(v.desc.Name, "export columns are not registered")
		e.log.Printf("admin: %v", err)
		errorJSON(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}

	req := e.queryRequest(c, v)
	items, err := e.filteredItems(v, req)
	if err != nil {
		panic(err)
	}

	headers := make([]string, 0, len(v.Export))
	cells := make([]func(any) string, 0, len(v.Export))
	for _, col := range v.Export {
		headers = append(headers, e.columnHeader(v.desc, col))
		cells = append(cells, e.exportCell(v.desc, col))
	}

	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			panic(err)
		}
	}
	for r, obj := range items {
		for i, cf := range cells {
			cell, _ := excelize.CoordinatesToCellName(i+1, r+2)
			if err := f.SetCellValue(sheet, cell, cf(obj)); err != nil {
				panic(err)
			}
		}
	}

	c.Header("Content-Disposition", `attachment; filename="`+v.desc.Name+`.xlsx"`)
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	if err := f.Write(c.Writer); err != nil {
		e.log.Printf("admin: export %s write failed: %v", v.desc.Name, err)
	}
}
