package forms

import (
	"net/url"
	"reflect"

	"tablero/internal/repo"
)

// Composite — первичная форма плюс inline-наборы. Валидность — логическое И,
// но проверяются все ветки, чтобы ошибки всплыли разом. Сохранение —
// всё-или-ничего: сначала родитель, потом строки, внутри одной транзакции.
type Composite struct {
	Primary *Form
	Inlines []*InlineFormSet
}

func (c *Composite) Bind(values url.Values) error {
	c.Primary.Bind(values)
	for _, fs := range c.Inlines {
		if err := fs.Bind(values); err != nil {
			return err
		}
	}
	return nil
}

func (c *Composite) IsValid() bool {
	ok := c.Primary.IsValid()
	for _, fs := range c.Inlines {
		if !fs.IsValid() {
			ok = false
		}
	}
	return ok
}

// Errors — объединённая карта: поля первичной формы по имени,
// inline-строки как "<prefix>-<index>-<field>".
func (c *Composite) Errors() map[string][]string {
	out := c.Primary.Errors()
	for _, fs := range c.Inlines {
		for k, msgs := range fs.Errors() {
			out[k] = append(out[k], msgs...)
		}
	}
	return out
}

// Save персистит родителя (создавая при необходимости), затем каждый
// inline против канонической записи родителя. Вызывать внутри tx.
func (c *Composite) Save(tx repo.Repository) (any, error) {
	instance := c.Primary.Instance
	if instance == nil {
		instance = reflect.New(c.Primary.Desc.Type).Interface()
	}
	if err := c.Primary.Apply(instance); err != nil {
		return nil, err
	}
	id, err := tx.Save(instance)
	if err != nil {
		return nil, err
	}

	// inline-строкам нужна каноническая запись родителя с проставленным PK
	parent, err := tx.Get(c.Primary.Desc.Name, id)
	if err != nil {
		return nil, err
	}
	for _, fs := range c.Inlines {
		if err := fs.Save(tx, parent); err != nil {
			return nil, err
		}
	}
	return parent, nil
}
