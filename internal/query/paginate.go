package query

import "strconv"

// PageResult — одна страница выдачи. Создаётся заново на каждый запрос.
type PageResult struct {
	Items      []any
	Page       int
	TotalPages int
	Total      int
	HasNext    bool
	HasPrev    bool
}

// Paginate нормализует сырой номер страницы и режет срез.
// Мусорный или отсутствующий номер — первая страница, за последней — последняя.
// pageSize <= 0 — без пагинации: всё одной страницей.
func Paginate(items []any, rawPage string, pageSize int) PageResult {
	total := len(items)

	if pageSize <= 0 {
		return PageResult{
			Items:      items,
			Page:       1,
			TotalPages: 1,
			Total:      total,
		}
	}

	totalPages := (total + pageSize - 1) / pageSize
	if totalPages < 1 {
		totalPages = 1
	}

	page, err := strconv.Atoi(rawPage)
	if err != nil || page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	lo := (page - 1) * pageSize
	hi := lo + pageSize
	if lo > total {
		lo = total
	}
	if hi > total {
		hi = total
	}

	return PageResult{
		Items:      items[lo:hi],
		Page:       page,
		TotalPages: totalPages,
		Total:      total,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
}
