package forms

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"tablero/internal/meta"
)

// coerce приводит сырое значение формы к типу поля.
// Строгая проверка: мусор не пролезает дальше валидации.
func coerce(f *meta.Field, raw string) (any, error) {
	switch f.Kind {
	case meta.KindString, meta.KindText, meta.KindChoice:
		return raw, nil
	case meta.KindInt:
		n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return nil, errors.New("must be integer")
		}
		return n, nil
	case meta.KindFloat:
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, errors.New("must be float")
		}
		return v, nil
	case meta.KindDecimal:
		d, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil {
			return nil, errors.New("must be decimal")
		}
		return d, nil
	case meta.KindBool:
		return toBool(raw)
	case meta.KindDate:
		t, err := time.Parse("2006-01-02", strings.TrimSpace(raw))
		if err != nil {
			return nil, errors.New("must match YYYY-MM-DD")
		}
		return t, nil
	case meta.KindDateTime:
		s := strings.TrimSpace(raw)
		// RFC3339 либо datetime-local из браузера
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return t, nil
		}
		if t, err := time.Parse("2006-01-02T15:04", s); err == nil {
			return t, nil
		}
		if t, err := time.Parse("2006-01-02T15:04:05", s); err == nil {
			return t, nil
		}
		return nil, errors.New("must be RFC3339 datetime")
	}
	return raw, nil
}

func toBool(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "1", "yes", "y", "on":
		return true, nil
	case "false", "0", "no", "n", "off", "":
		return false, nil
	default:
		return false, errors.New("must be boolean")
	}
}
