package nodes

import (
	"encoding/json"
	"fmt"
)

// InputMode — политика готовности узла к запуску.
type InputMode int

const (
	// InputNone — узел готов сразу, как только для него есть pending запись.
	// Пришедшие данные отбрасываются.
	InputNone InputMode = iota

	// InputSingle — узел ждёт одно значение. Каждая новая доставка
	// перезаписывает предыдущее значение целиком.
	InputSingle

	// InputNamedSet — узел ждёт значения на всех портах из Requirement.Ports.
	// Значения накапливаются по имени порта.
	InputNamedSet
)

// String возвращает строковое представление InputMode.
func (m InputMode) String() string {
	switch m {
	case InputNone:
		return "none"
	case InputSingle:
		return "single"
	case InputNamedSet:
		return "named_set"
	default:
		return fmt.Sprintf("InputMode(%d)", int(m))
	}
}

// MarshalJSON сериализует InputMode строкой.
func (m InputMode) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// Requirement — требование к входам узла.
type Requirement struct {
	// Mode — политика готовности.
	Mode InputMode `json:"mode"`

	// Ports — обязательные порты для InputNamedSet.
	Ports []string `json:"ports,omitempty"`
}

// RequireNone возвращает требование "входы не нужны".
func RequireNone() Requirement {
	return Requirement{Mode: InputNone}
}

// RequireSingle возвращает требование "одно значение от любого предшественника".
func RequireSingle() Requirement {
	return Requirement{Mode: InputSingle}
}

// RequireNamed возвращает требование "значения на всех перечисленных портах".
func RequireNamed(ports ...string) Requirement {
	return Requirement{Mode: InputNamedSet, Ports: ports}
}

// Port — именованный вход или выход узла.
type Port struct {
	// Name — имя порта.
	Name string `json:"name"`

	// Schema — ожидаемая форма значения.
	Schema Schema `json:"schema"`
}

// Descriptor — неизменяемое описание типа узла.
//
// Определяется один раз для каждого тега типа.
// Порядок Inputs и Outputs значим: для InputSingle схема
// первого входа применяется к доставленному значению.
type Descriptor struct {
	// Type — уникальный тег типа узла.
	Type string `json:"type"`

	// Title — короткое имя для каталога.
	Title string `json:"title"`

	// Description — описание операции.
	Description string `json:"description,omitempty"`

	// Inputs — входные порты.
	Inputs []Port `json:"inputs"`

	// Outputs — выходные порты. Если их больше одного, результат executor'а
	// должен быть объектом с ключами по именам портов.
	Outputs []Port `json:"outputs"`

	// Required — политика готовности.
	Required Requirement `json:"required"`
}

// MultiOutput возвращает true, если у узла несколько выходных портов.
func (d *Descriptor) MultiOutput() bool {
	return len(d.Outputs) > 1
}

// Input возвращает входной порт по имени.
func (d *Descriptor) Input(name string) (Port, bool) {
	for _, p := range d.Inputs {
		if p.Name == name {
			return p, true
		}
	}
	return Port{}, false
}

// Output возвращает выходной порт по имени.
func (d *Descriptor) Output(name string) (Port, bool) {
	for _, p := range d.Outputs {
		if p.Name == name {
			return p, true
		}
	}
	return Port{}, false
}

// ValidateInput проверяет собранные для узла данные по схемам входных портов.
//
// Для InputNone данные не проверяются, для InputSingle значение проверяется
// схемой первого входа, для InputNamedSet каждый порт проверяется своей схемой.
func (d *Descriptor) ValidateInput(input any) error {
	switch d.Required.Mode {
	case InputSingle:
		if len(d.Inputs) == 0 {
			return nil
		}
		port := d.Inputs[0]
		if err := port.Schema.Validate(input); err != nil {
			return fmt.Errorf("input %q: %w", port.Name, err)
		}

	case InputNamedSet:
		values, _ := input.(map[string]any)
		for _, port := range d.Inputs {
			if err := port.Schema.Validate(values[port.Name]); err != nil {
				return fmt.Errorf("input %q: %w", port.Name, err)
			}
		}
	}

	return nil
}
