package nodes

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Kind — ожидаемый тип значения на порту.
type Kind string

const (
	KindAny    Kind = "any"
	KindString Kind = "string"
	KindNumber Kind = "number"
	KindBool   Kind = "bool"
	KindObject Kind = "object"
	KindList   Kind = "list"
)

// Schema — валидатор формы значения на порту.
//
// Kind проверяет тип значения, Rule — дополнительные ограничения
// в синтаксисе тегов go-playground/validator:
//
//	Schema{Kind: KindString, Rule: "required,email"}
//	Schema{Kind: KindNumber, Rule: "gte=0,lte=100"}
type Schema struct {
	Kind Kind   `json:"kind"`
	Rule string `json:"rule,omitempty"`
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate проверяет значение по схеме.
// Возвращает ошибку, оборачивающую ErrSchemaViolation.
func (s Schema) Validate(value any) error {
	if value == nil {
		if s.required() {
			return fmt.Errorf("%w: value is required", ErrSchemaViolation)
		}
		return nil
	}

	if !s.matchesKind(value) {
		return fmt.Errorf("%w: expected %s, got %T", ErrSchemaViolation, s.Kind, value)
	}

	if s.Rule == "" {
		return nil
	}

	if err := getValidator().Var(value, s.Rule); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return fmt.Errorf("%w: failed on %q rule", ErrSchemaViolation, fieldErrs[0].Tag())
		}
		return fmt.Errorf("%w: %v", ErrSchemaViolation, err)
	}

	return nil
}

// required проверяет, есть ли в Rule тег required.
func (s Schema) required() bool {
	for _, tag := range strings.Split(s.Rule, ",") {
		if strings.TrimSpace(tag) == "required" {
			return true
		}
	}
	return false
}

// matchesKind проверяет тип значения.
func (s Schema) matchesKind(value any) bool {
	switch s.Kind {
	case KindString:
		_, ok := value.(string)
		return ok
	case KindNumber:
		switch value.(type) {
		case int, int8, int16, int32, int64,
			uint, uint8, uint16, uint32, uint64,
			float32, float64, json.Number:
			return true
		}
		return false
	case KindBool:
		_, ok := value.(bool)
		return ok
	case KindObject:
		_, ok := value.(map[string]any)
		return ok
	case KindList:
		_, ok := value.([]any)
		return ok
	default:
		return true
	}
}

// Схемы, которые часто используются в дескрипторах.
var (
	AnySchema      = Schema{Kind: KindAny}
	RequiredAny    = Schema{Kind: KindAny, Rule: "required"}
	StringSchema   = Schema{Kind: KindString}
	NumberSchema   = Schema{Kind: KindNumber}
	ObjectSchema   = Schema{Kind: KindObject}
	RequiredObject = Schema{Kind: KindObject, Rule: "required"}
)
