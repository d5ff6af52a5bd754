// repo: хранилище сущностей. Интерфейс узкий — движку нужны листинг,
// точечное чтение, запись и атомарная единица работы на POST.
package repo

import (
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("repo: not found")

// IntegrityError — попытка удалить запись, на которую ссылаются (restrict).
// Отдаётся пользователю как ошибка формы, не как 500.
type IntegrityError struct {
	Entity string // сущность, которую удаляли
	By     string // сущность, которая держит ссылку
	Field  string // поле-ссылка
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("repo: %s is referenced by %s.%s", e.Entity, e.By, e.Field)
}

type Repository interface {
	// List — все записи сущности в порядке вставки.
	List(entity string) ([]any, error)
	// Get — по PK. Нет записи — ErrNotFound.
	Get(entity, id string) (any, error)
	// ListChildren — дочерние записи по FK-полю (для inline-наборов).
	ListChildren(childEntity, fkField, parentID string) ([]any, error)
	// Save — вставка (пустой PK, проставляется ULID) или замена по PK.
	// Возвращает итоговый PK.
	Save(obj any) (string, error)
	// Delete — по PK, с учётом политик on_delete входящих ссылок.
	Delete(entity, id string) error
	// Atomic выполняет fn в одной единице работы: ошибка или паника
	// откатывают все изменения fn целиком.
	Atomic(fn func(tx Repository) error) error
}
