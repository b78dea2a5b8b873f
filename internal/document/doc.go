// Package document читает и пишет JSON документы графов.
//
// Движок принимает только текущий формат (CurrentVersion).
// Документы старых версий мигрируются при чтении, по одной
// версии за шаг (migrations). Неизвестная или будущая версия
// даёт ErrUnsupportedVersion.
package document
