package document

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/shaiso/flowgraph/internal/domain"
)

// CurrentVersion — версия формата, которую понимает движок.
const CurrentVersion = 2

// Ошибки разбора документа.
var (
	// ErrInvalidDocument — документ не является корректным JSON графа.
	ErrInvalidDocument = errors.New("invalid graph document")

	// ErrUnsupportedVersion — неизвестная или будущая версия формата.
	ErrUnsupportedVersion = errors.New("unsupported schema version")
)

// Document — сохранённый редактором граф в текущем формате.
//
//	{
//	    "schema_version": 2,
//	    "name": "onboard-user",
//	    "nodes": [{"id": "trigger", "type": "manual_trigger"}],
//	    "edges": [{"source": "trigger", "target": "find", "target_port": ""}],
//	    "node_config": {"find": {...}}
//	}
type Document struct {
	SchemaVersion int    `json:"schema_version"`
	Name          string `json:"name,omitempty"`
	domain.Graph

	// SourceVersion — версия, в которой документ был прочитан (до миграций).
	SourceVersion int `json:"-"`
}

// Migrated возвращает true, если документ был прочитан в старом формате.
func (d *Document) Migrated() bool {
	return d.SourceVersion != 0 && d.SourceVersion != d.SchemaVersion
}

// versionProbe читает только версию. Старый формат редактора
// хранил её в camelCase, а совсем ранние документы — не хранили вовсе.
type versionProbe struct {
	SchemaVersion *int `json:"schema_version"`
	LegacyVersion *int `json:"schemaVersion"`
}

// detectVersion определяет версию документа.
// Документ без версии считается версией 1.
func detectVersion(data []byte) (int, error) {
	var probe versionProbe
	if err := json.Unmarshal(data, &probe); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	switch {
	case probe.SchemaVersion != nil:
		return *probe.SchemaVersion, nil
	case probe.LegacyVersion != nil:
		return *probe.LegacyVersion, nil
	default:
		return 1, nil
	}
}

// Decode разбирает документ любой поддерживаемой версии
// и мигрирует его в текущий формат.
func Decode(data []byte) (*Document, error) {
	version, err := detectVersion(data)
	if err != nil {
		return nil, err
	}
	if version < 1 || version > CurrentVersion {
		return nil, fmt.Errorf("%w: %d (current is %d)", ErrUnsupportedVersion, version, CurrentVersion)
	}

	sourceVersion := version
	for version < CurrentVersion {
		migrate, ok := migrations[version]
		if !ok {
			return nil, fmt.Errorf("%w: no migration from %d", ErrUnsupportedVersion, version)
		}
		data, err = migrate(data)
		if err != nil {
			return nil, fmt.Errorf("migrate from v%d: %w", version, err)
		}
		version++
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	doc.SchemaVersion = CurrentVersion
	doc.SourceVersion = sourceVersion

	if doc.Nodes == nil {
		doc.Nodes = []domain.Node{}
	}
	if doc.Edges == nil {
		doc.Edges = []domain.Edge{}
	}

	return &doc, nil
}

// Read читает и разбирает документ из r.
func Read(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	return Decode(data)
}

// ReadFile читает и разбирает документ из файла.
func ReadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	return Decode(data)
}

// Encode сериализует граф в документ текущей версии.
func Encode(name string, g domain.Graph) ([]byte, error) {
	doc := Document{
		SchemaVersion: CurrentVersion,
		Name:          name,
		Graph:         g,
	}
	return json.MarshalIndent(doc, "", "  ")
}
