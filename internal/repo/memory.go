package repo

import (
	"fmt"
	"io"
	"math/rand"
	"reflect"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"tablero/internal/meta"
)

// Memory — процессное хранилище: entity -> id -> экземпляр.
// Запись хранится как неизменяемая копия (copy-on-write), поэтому снапшот
// для отката — это копия бакетов, а не глубокая копия объектов.
type Memory struct {
	mu      sync.RWMutex
	reg     *meta.Registry
	data    map[string]map[string]any
	order   map[string][]string // порядок вставки
	entropy io.Reader
}

func NewMemory(reg *meta.Registry) *Memory {
	src := rand.New(rand.NewSource(time.Now().UnixNano()))
	return &Memory{
		reg:     reg,
		data:    make(map[string]map[string]any),
		order:   make(map[string][]string),
		entropy: ulid.Monotonic(src, 0),
	}
}

func (m *Memory) newID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), m.entropy).String()
}

func (m *Memory) List(entity string) ([]any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listLocked(entity)
}

func (m *Memory) Get(entity, id string) (any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getLocked(entity, id)
}

func (m *Memory) ListChildren(childEntity, fkField, parentID string) ([]any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listChildrenLocked(childEntity, fkField, parentID)
}

func (m *Memory) Save(obj any) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveLocked(obj)
}

func (m *Memory) Delete(entity, id string) error {
	return m.Atomic(func(tx Repository) error {
		return tx.Delete(entity, id)
	})
}

// Atomic держит write-lock на всю единицу работы; ошибка или паника fn
// возвращают бакеты в состояние на момент входа.
func (m *Memory) Atomic(fn func(Repository) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapData := make(map[string]map[string]any, len(m.data))
	for k, bucket := range m.data {
		cp := make(map[string]any, len(bucket))
		for id, v := range bucket {
			cp[id] = v
		}
		snapData[k] = cp
	}
	snapOrder := make(map[string][]string, len(m.order))
	for k, ids := range m.order {
		snapOrder[k] = append([]string(nil), ids...)
	}

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("repo: atomic aborted: %v", r)
			}
		}()
		return fn(&memTx{m})
	}()
	if err != nil {
		m.data = snapData
		m.order = snapOrder
	}
	return err
}

// memTx — та же память, но без захвата мьютекса: он уже у Atomic.
type memTx struct{ m *Memory }

func (t *memTx) List(entity string) ([]any, error) { return t.m.listLocked(entity) }
func (t *memTx) Get(entity, id string) (any, error) {
	return t.m.getLocked(entity, id)
}
func (t *memTx) ListChildren(child, fk, parent string) ([]any, error) {
	return t.m.listChildrenLocked(child, fk, parent)
}
func (t *memTx) Save(obj any) (string, error) { return t.m.saveLocked(obj) }
func (t *memTx) Delete(entity, id string) error {
	return t.m.deleteLocked(entity, id)
}
func (t *memTx) Atomic(fn func(Repository) error) error { return fn(t) }

// ---- внутренности, зовутся только под мьютексом ----

func (m *Memory) listLocked(entity string) ([]any, error) {
	if _, ok := m.reg.Lookup(entity); !ok {
		return nil, fmt.Errorf("repo: unknown entity %q", entity)
	}
	bucket := m.data[entity]
	out := make([]any, 0, len(bucket))
	for _, id := range m.order[entity] {
		if v, ok := bucket[id]; ok {
			out = append(out, m.freshen(v))
		}
	}
	return out, nil
}

func (m *Memory) getLocked(entity, id string) (any, error) {
	bucket := m.data[entity]
	if bucket == nil {
		return nil, ErrNotFound
	}
	v, ok := bucket[id]
	if !ok {
		return nil, ErrNotFound
	}
	return m.freshen(v), nil
}

func (m *Memory) listChildrenLocked(childEntity, fkField, parentID string) ([]any, error) {
	desc, ok := m.reg.Lookup(childEntity)
	if !ok {
		return nil, fmt.Errorf("repo: unknown entity %q", childEntity)
	}
	f, ok := desc.FieldByName(fkField)
	if !ok || f.Kind != meta.KindRelation {
		return nil, fmt.Errorf("repo: %s.%s is not a relation", childEntity, fkField)
	}
	var out []any
	for _, id := range m.order[childEntity] {
		v, ok := m.data[childEntity][id]
		if !ok {
			continue
		}
		if relationPK(f, v) == parentID {
			out = append(out, m.freshen(v))
		}
	}
	return out, nil
}

func (m *Memory) saveLocked(obj any) (string, error) {
	desc, ok := m.reg.LookupType(obj)
	if !ok {
		return "", fmt.Errorf("repo: unregistered type %T", obj)
	}
	cp := shallowCopy(obj)
	id := desc.PKString(cp)
	isNew := id == ""
	if isNew {
		id = m.newID()
		setPK(desc, cp, id)
	}
	// перевешиваем связи на канонические экземпляры хранилища
	m.repoint(desc, cp)

	bucket := m.data[desc.Name]
	if bucket == nil {
		bucket = make(map[string]any)
		m.data[desc.Name] = bucket
	}
	if _, exists := bucket[id]; !exists {
		m.order[desc.Name] = append(m.order[desc.Name], id)
	}
	bucket[id] = cp
	return id, nil
}

func (m *Memory) deleteLocked(entity, id string) error {
	desc, ok := m.reg.Lookup(entity)
	if !ok {
		return fmt.Errorf("repo: unknown entity %q", entity)
	}
	bucket := m.data[entity]
	if bucket == nil {
		return ErrNotFound
	}
	if _, ok := bucket[id]; !ok {
		return ErrNotFound
	}

	// входящие ссылки: сначала все restrict, потом побочные политики
	for _, other := range m.reg.All() {
		for _, f := range other.Fields {
			if f.Kind != meta.KindRelation || f.Target == nil || f.Target.Name != desc.Name {
				continue
			}
			if f.OnDelete != "restrict" {
				continue
			}
			for _, recID := range m.order[other.Name] {
				rec, ok := m.data[other.Name][recID]
				if ok && relationPK(f, rec) == id {
					return &IntegrityError{Entity: entity, By: other.Name, Field: f.Name}
				}
			}
		}
	}

	for _, other := range m.reg.All() {
		for _, f := range other.Fields {
			if f.Kind != meta.KindRelation || f.Target == nil || f.Target.Name != desc.Name {
				continue
			}
			switch f.OnDelete {
			case "set_null":
				for _, recID := range append([]string(nil), m.order[other.Name]...) {
					rec, ok := m.data[other.Name][recID]
					if !ok || relationPK(f, rec) != id {
						continue
					}
					cp := shallowCopy(rec)
					reflect.ValueOf(cp).Elem().Field(f.Index).Set(reflect.Zero(reflect.ValueOf(cp).Elem().Field(f.Index).Type()))
					m.data[other.Name][recID] = cp
				}
			case "cascade":
				for _, recID := range append([]string(nil), m.order[other.Name]...) {
					rec, ok := m.data[other.Name][recID]
					if !ok || relationPK(f, rec) != id {
						continue
					}
					if err := m.deleteLocked(other.Name, recID); err != nil {
						return err
					}
				}
			}
		}
	}

	delete(bucket, id)
	ids := m.order[entity]
	for i, v := range ids {
		if v == id {
			m.order[entity] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	return nil
}

// freshen отдаёт копию записи со связями, перевешенными на актуальные
// экземпляры хранилища. Мутации копии хранилище не трогают.
func (m *Memory) freshen(obj any) any {
	desc, ok := m.reg.LookupType(obj)
	if !ok {
		return obj
	}
	cp := shallowCopy(obj)
	m.repoint(desc, cp)
	return cp
}

// repoint заменяет указатели связей на канонические записи по их PK.
func (m *Memory) repoint(desc *meta.Descriptor, obj any) {
	rv := reflect.ValueOf(obj).Elem()
	for _, f := range desc.Fields {
		if f.Kind != meta.KindRelation || f.Target == nil {
			continue
		}
		pk := relationPK(f, obj)
		if pk == "" {
			continue
		}
		if canonical, ok := m.data[f.Target.Name][pk]; ok {
			rv.Field(f.Index).Set(reflect.ValueOf(canonical))
		}
	}
}

// Hydrate наполняет collection-поля экземпляра дочерними записями.
// Один уровень, без рекурсии.
func (m *Memory) Hydrate(obj any) error {
	desc, ok := m.reg.LookupType(obj)
	if !ok {
		return fmt.Errorf("repo: unregistered type %T", obj)
	}
	rv := reflect.ValueOf(obj).Elem()
	id := desc.PKString(obj)
	for _, f := range desc.Fields {
		if f.Kind != meta.KindCollection || f.Target == nil {
			continue
		}
		children, err := m.ListChildren(f.Target.Name, f.FK, id)
		if err != nil {
			return err
		}
		slice := reflect.MakeSlice(rv.Field(f.Index).Type(), 0, len(children))
		for _, c := range children {
			slice = reflect.Append(slice, reflect.ValueOf(c))
		}
		rv.Field(f.Index).Set(slice)
	}
	return nil
}

func setPK(desc *meta.Descriptor, obj any, id string) {
	reflect.ValueOf(obj).Elem().Field(desc.PK.Index).SetString(id)
}

func shallowCopy(obj any) any {
	rv := reflect.ValueOf(obj)
	for rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}
	cp := reflect.New(rv.Type())
	cp.Elem().Set(rv)
	return cp.Interface()
}

func relationPK(f *meta.Field, obj any) string {
	rv := reflect.ValueOf(obj)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return ""
		}
		rv = rv.Elem()
	}
	fv := rv.Field(f.Index)
	if fv.Kind() != reflect.Ptr || fv.IsNil() {
		return ""
	}
	if f.Target == nil || f.Target.PK == nil {
		return ""
	}
	pk := fv.Elem().Field(f.Target.PK.Index)
	if pk.Kind() == reflect.String {
		return pk.String()
	}
	return ""
}
