package admin

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"

	"tablero/internal/forms"
	"tablero/internal/layout"
	"tablero/internal/meta"
	"tablero/internal/query"
	"tablero/internal/reference"
	"tablero/internal/repo"
	"tablero/internal/resolve"
)

const (
	defaultPageSize = 25
	// PageSizeAll отключает пагинацию у view.
	PageSizeAll = -1
)

// Engine связывает реестр сущностей, хранилище и настроенные view.
// Между запросами мутабельного состояния нет; views и каталоги меняются
// только через Register/Reload под мьютексом.
type Engine struct {
	reg  *meta.Registry
	repo repo.Repository
	res  *resolve.Resolver
	base string
	log  *log.Logger

	mu    sync.RWMutex
	refs  reference.Set
	views map[string]*View
}

func NewEngine(reg *meta.Registry, store repo.Repository, refs reference.Set, basePath string) *Engine {
	if basePath == "" {
		basePath = "/admin"
	}
	if refs == nil {
		refs = reference.Set{}
	}
	return &Engine{
		reg:   reg,
		repo:  store,
		res:   resolve.New(),
		base:  strings.TrimSuffix(basePath, "/"),
		log:   log.Default(),
		refs:  refs,
		views: make(map[string]*View),
	}
}

// Repo — хранилище движка; доступно обработчикам нестандартных действий.
func (e *Engine) Repo() repo.Repository { return e.repo }

func (e *Engine) catalogs() reference.Set {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.refs
}

// Register валидирует view и публикует её по slug сущности.
// Ошибка конфигурации здесь — повод не стартовать процесс.
func (e *Engine) Register(v *View) error {
	d, ok := e.reg.LookupType(v.Proto)
	if !ok {
		return meta.ConfigErr(fmt.Sprintf("%T", v.Proto), "type is not registered")
	}
	v.desc = d
	if v.Title == "" {
		v.Title = d.Label
	}
	if len(v.ListDisplay) == 0 {
		v.ListDisplay = Cols(d.PK.Name)
	}
	if err := v.lint(e, e.catalogs()); err != nil {
		return err
	}
	// форма должна собираться уже на регистрации
	if _, err := e.composite(v, nil); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, dup := e.views[d.Name]; dup {
		return meta.ConfigErr(d.Name, "view already registered")
	}
	e.views[d.Name] = v
	return nil
}

func (e *Engine) view(slug string) *View {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.views[slug]
}

// Mount вешает маршруты движка на роутер.
func (e *Engine) Mount(r *gin.Engine) {
	grp := r.Group(e.base)
	grp.GET("", e.index)
	grp.POST("/_reload", e.reload)
	grp.GET("/:entity", e.dispatch)
	grp.POST("/:entity", e.dispatch)
}

// URL-ы действий.
func (e *Engine) listURL(v *View) string { return e.base + "/" + v.desc.Name }
func (e *Engine) actionURL(v *View, action, id string) string {
	u := e.listURL(v) + "?action=" + action
	if id != "" {
		u += "&id=" + id
	}
	return u
}

func (e *Engine) index(c *gin.Context) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]gin.H, 0, len(e.views))
	for _, d := range e.reg.All() {
		v, ok := e.views[d.Name]
		if !ok {
			continue
		}
		out = append(out, gin.H{"entity": d.Name, "title": v.Title, "url": e.base + "/" + d.Name})
	}
	c.JSON(http.StatusOK, out)
}

// dispatch — граница обработки действия. Паника здесь логируется и
// превращается в общий ответ об ошибке; подробность — только
// привилегированному пользователю.
func (e *Engine) dispatch(c *gin.Context) {
	defer func() {
		if r := recover(); r != nil {
			e.failsafe(c, r)
		}
	}()

	v := e.view(c.Param("entity"))
	if v == nil {
		errorJSON(c, http.StatusNotFound, "Unknown entity", nil)
		return
	}

	action := c.Query("action")
	if action == "" {
		action = c.PostForm("action")
	}
	if action == "" {
		action = "list"
	}

	if v.Actions != nil {
		if fn, ok := v.Actions[action]; ok {
			fn(c, e, v)
			return
		}
	}

	switch action {
	case "list":
		e.list(c, v)
	case "add":
		if c.Request.Method == http.MethodPost {
			e.save(c, v, nil)
		} else {
			e.renderForm(c, v, nil)
		}
	case "edit":
		instance, ok := e.loadInstance(c, v)
		if !ok {
			return
		}
		if c.Request.Method == http.MethodPost {
			e.save(c, v, instance)
		} else {
			e.renderForm(c, v, instance)
		}
	case "delete":
		instance, ok := e.loadInstance(c, v)
		if !ok {
			return
		}
		if c.Request.Method == http.MethodPost {
			e.delete(c, v, instance)
		} else {
			e.renderDeleteConfirm(c, v, instance)
		}
	case "export":
		e.export(c, v)
	default:
		errorJSON(c, http.StatusBadRequest, "Unknown action '"+action+"'", nil)
	}
}

func (e *Engine) failsafe(c *gin.Context, r any) {
	e.log.Printf("admin: panic on %s %s: %v", c.Request.Method, c.Request.URL.Path, r)
	msg := "Unexpected error, try again"
	if c.GetBool("superuser") {
		msg = fmt.Sprintf("Unexpected error: %v", r)
	}
	errorJSON(c, http.StatusInternalServerError, msg, nil)
}

// loadInstance достаёт запись по id из запроса. Отсутствие — ошибка
// запроса, не тихий no-op: edit не должен молча превратиться в create.
func (e *Engine) loadInstance(c *gin.Context, v *View) (any, bool) {
	id := c.Query("id")
	if id == "" {
		id = c.PostForm("id")
	}
	if id == "" {
		errorJSON(c, http.StatusBadRequest, "Missing id", nil)
		return nil, false
	}
	instance, err := e.repo.Get(v.desc.Name, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			errorJSON(c, http.StatusNotFound, "Record not found", nil)
			return nil, false
		}
		panic(err)
	}
	return instance, true
}

// composite собирает первичную форму + inline-наборы.
func (e *Engine) composite(v *View, instance any) (*forms.Composite, error) {
	refs := e.catalogs()
	primary, err := forms.New(v.desc, forms.Options{
		Fields:   v.FormFields,
		Catalogs: refs,
		Repo:     e.repo,
		Instance: instance,
	})
	if err != nil {
		return nil, err
	}
	parentID := ""
	if instance != nil {
		parentID = v.desc.PKString(instance)
	}
	comp := &forms.Composite{Primary: primary}
	for _, inl := range v.Inlines {
		fs, err := forms.NewInlineFormSet(forms.InlineOptions{
			Child:     inl.desc,
			FK:        inl.FK,
			Prefix:    inl.Prefix,
			Fields:    inl.Fields,
			Extra:     inl.Extra,
			CanDelete: inl.CanDelete,
			Catalogs:  refs,
			Repo:      e.repo,
		}, parentID)
		if err != nil {
			return nil, err
		}
		comp.Inlines = append(comp.Inlines, fs)
	}
	return comp, nil
}

// save — общий POST для add и edit. Вся запись — в одной транзакции;
// любая ошибка внутри откатывает и родителя, и inline-строки.
func (e *Engine) save(c *gin.Context, v *View, instance any) {
	comp, err := e.composite(v, instance)
	if err != nil {
		panic(err)
	}
	if err := c.Request.ParseForm(); err != nil {
		errorJSON(c, http.StatusBadRequest, "Malformed form data", nil)
		return
	}
	if err := comp.Bind(c.Request.PostForm); err != nil {
		panic(err)
	}
	if !comp.IsValid() {
		errorJSON(c, http.StatusBadRequest, "The form has errors", comp.Errors())
		return
	}

	var saved any
	err = e.repo.Atomic(func(tx repo.Repository) error {
		// между GET и POST запись могла исчезнуть — не создаём дубликат молча
		if instance != nil {
			if _, err := tx.Get(v.desc.Name, v.desc.PKString(instance)); err != nil {
				return err
			}
		}
		var serr error
		saved, serr = comp.Save(tx)
		return serr
	})
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			errorJSON(c, http.StatusNotFound, "Record not found", nil)
			return
		}
		e.log.Printf("admin: save %s failed: %v", v.desc.Name, err)
		msg := "Unexpected error, try again"
		if c.GetBool("superuser") {
			msg = "Unexpected error: " + err.Error()
		}
		errorJSON(c, http.StatusInternalServerError, msg, nil)
		return
	}

	successJSON(c, "Saved successfully", e.redirectURL(c, v, saved))
}

// redirectURL повторяет семантику кнопок "сохранить и добавить ещё" /
// "сохранить и продолжить".
func (e *Engine) redirectURL(c *gin.Context, v *View, saved any) string {
	if c.PostForm("_addanother") != "" {
		return e.actionURL(v, "add", "")
	}
	if c.PostForm("_continue") != "" {
		return e.actionURL(v, "edit", v.desc.PKString(saved))
	}
	return e.listURL(v)
}

func (e *Engine) delete(c *gin.Context, v *View, instance any) {
	id := v.desc.PKString(instance)
	err := e.repo.Atomic(func(tx repo.Repository) error {
		if v.DeleteGuard != nil {
			if err := v.DeleteGuard(tx, instance); err != nil {
				return err
			}
		}
		return tx.Delete(v.desc.Name, id)
	})
	if err != nil {
		var ie *repo.IntegrityError
		if errors.As(err, &ie) {
			errorJSON(c, http.StatusConflict,
				"Cannot delete: referenced by "+ie.By, nil)
			return
		}
		var guard *GuardError
		if errors.As(err, &guard) {
			errorJSON(c, http.StatusConflict, guard.Message, nil)
			return
		}
		e.log.Printf("admin: delete %s/%s failed: %v", v.desc.Name, id, err)
		errorJSON(c, http.StatusInternalServerError, "Unexpected error, try again", nil)
		return
	}
	successJSON(c, "Deleted successfully", e.listURL(v))
}

// GuardError — отказ DeleteGuard с сообщением для пользователя.
type GuardError struct {
	Message string
}

func (g *GuardError) Error() string { return g.Message }

// rowActions — действия строки по умолчанию: изменить и удалить.
func (e *Engine) rowActions(c *gin.Context, v *View, obj any) []RowAction {
	if v.RowActions != nil {
		return v.RowActions(c, e, v, obj)
	}
	id := v.desc.PKString(obj)
	return []RowAction{
		{Name: "edit", Label: "Editar", Icon: "bi bi-pencil", URL: e.actionURL(v, "edit", id)},
		{Name: "delete", Label: "Eliminar", Icon: "bi bi-trash", URL: e.actionURL(v, "delete", id), Modal: true},
	}
}

// formLayout — раскладка view либо дефолтная: все поля столбцом.
func formLayout(v *View, f *forms.Form) *layout.Layout {
	if v.Layout != nil {
		return v.Layout
	}
	return layout.Default(f)
}

// queryRequest разбирает листинговые параметры с учётом настроек view.
func (e *Engine) queryRequest(c *gin.Context, v *View) query.Request {
	req := query.Parse(c.Request.URL.Query())
	switch {
	case v.PageSize == PageSizeAll:
		req.PageSize = 0
	case v.PageSize > 0:
		req.PageSize = v.PageSize
	default:
		req.PageSize = defaultPageSize
	}
	return req
}

func (e *Engine) specifier(v *View) *query.Specifier {
	paths := make([]string, 0, len(v.Filters))
	for _, f := range v.Filters {
		paths = append(paths, f.Path)
	}
	return &query.Specifier{
		Desc:         v.desc,
		Res:          e.res,
		SearchFields: v.SearchFields,
		FilterPaths:  paths,
	}
}

// filteredItems — общий read-путь list и export: поиск, фильтры,
// дедупликация, сортировка. Без пагинации.
func (e *Engine) filteredItems(v *View, req query.Request) ([]any, error) {
	items, err := e.repo.List(v.desc.Name)
	if err != nil {
		return nil, err
	}
	spec := e.specifier(v)
	items = spec.Apply(items, req)

	ordering := req.Ordering
	if len(ordering) == 0 {
		ordering = v.Ordering
	}
	if len(ordering) == 0 {
		ordering = v.desc.Ordering
	}
	spec.Order(items, ordering, req.Nulls)
	return items, nil
}
