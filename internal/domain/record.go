package domain

import (
	"time"

	"github.com/google/uuid"
)

// Record — запись во внешнем хранилище, которую создают и читают узлы графа.
//
// Записи — побочный эффект run: при падении графа они не откатываются.
type Record struct {
	// ID — уникальный идентификатор записи.
	ID uuid.UUID `json:"id"`

	// Collection — имя коллекции (например, "users", "tickets").
	Collection string `json:"collection"`

	// Data — содержимое записи.
	Data map[string]any `json:"data"`

	// CreatedAt — время создания.
	CreatedAt time.Time `json:"created_at"`
}

// AsMap возвращает запись в виде объекта для передачи по рёбрам графа.
func (r *Record) AsMap() map[string]any {
	data := make(map[string]any, len(r.Data)+1)
	for k, v := range r.Data {
		data[k] = v
	}
	data["id"] = r.ID.String()
	return data
}
