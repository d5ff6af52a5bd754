package meta

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
)

// ConfigurationError — ошибка декларации (неизвестное поле, кривой путь,
// незарегистрированная связь). Ломает старт, а не запрос.
type ConfigurationError struct {
	Subject string // сущность или view
	Detail  string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s: %s", e.Subject, e.Detail)
}

func ConfigErr(subject, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Subject: subject, Detail: fmt.Sprintf(format, args...)}
}

// Registry держит дескрипторы всех сущностей процесса.
// Чтение — под RLock, полная перезагрузка — под Lock (атомарная подмена).
type Registry struct {
	mu     sync.RWMutex
	byName map[string]*Descriptor
	byType map[reflect.Type]*Descriptor
}

func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]*Descriptor),
		byType: make(map[reflect.Type]*Descriptor),
	}
}

// Register разбирает и добавляет сущности. Связи разрешаются вторым проходом,
// поэтому порядок аргументов не важен.
func (r *Registry) Register(protos ...any) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range protos {
		d, err := parseDescriptor(reflect.TypeOf(p))
		if err != nil {
			return err
		}
		if prev, ok := r.byName[d.Name]; ok && prev.Type != d.Type {
			return ConfigErr(d.Name, "slug collision with %s", prev.Type)
		}
		r.byName[d.Name] = d
		r.byType[d.Type] = d
	}
	return r.linkLocked()
}

// linkLocked — второй проход: разрешение relation/collection на дескрипторы.
func (r *Registry) linkLocked() error {
	for _, d := range r.byType {
		for _, f := range d.Fields {
			if f.TargetType == nil {
				continue
			}
			target, ok := r.byType[f.TargetType]
			if !ok {
				return ConfigErr(d.Name, "field %s references unregistered type %s", f.Name, f.TargetType)
			}
			f.Target = target
			if f.Kind == KindCollection {
				cf, ok := target.FieldMap[f.FK]
				if !ok {
					return ConfigErr(d.Name, "collection %s: no field %q in %s", f.Name, f.FK, target.Name)
				}
				if cf.Kind != KindRelation || cf.TargetType != d.Type {
					return ConfigErr(d.Name, "collection %s: %s.%s is not a relation back to %s", f.Name, target.Name, f.FK, d.Name)
				}
			}
		}
	}
	return nil
}

// Refresh валидирует новый набор сущностей и атомарно подменяет текущий.
// При ошибке реестр остаётся прежним.
func (r *Registry) Refresh(protos ...any) error {
	fresh := NewRegistry()
	if err := fresh.Register(protos...); err != nil {
		return err
	}
	r.mu.Lock()
	r.byName = fresh.byName
	r.byType = fresh.byType
	r.mu.Unlock()
	return nil
}

// Lookup находит дескриптор по slug.
func (r *Registry) Lookup(name string) (*Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byName[name]
	return d, ok
}

// LookupType находит дескриптор по типу значения (указатель снимается).
func (r *Registry) LookupType(v any) (*Descriptor, bool) {
	if v == nil {
		return nil, false
	}
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byType[t]
	return d, ok
}

// All возвращает дескрипторы, отсортированные по slug.
func (r *Registry) All() []*Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Descriptor, 0, len(r.byName))
	for _, d := range r.byName {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
