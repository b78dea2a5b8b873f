// flowgraph — инструмент командной строки для запуска графов.
//
// Использование:
//
//	flowgraph [--api-url URL] [--json] <command> [flags]
//
// Команды:
//
//	run         Выполнить документ графа локально
//	validate    Проверить документ без запуска
//	node-types  Показать встроенные типы узлов
//	export      Переписать документ в текущей версии формата
//	watch       Запускать граф по cron-расписанию
//	graph       Управление графами на сервере
package main

import (
	"fmt"
	"os"

	"github.com/shaiso/flowgraph/internal/cli"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	if err := cli.NewRootCmd(version).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
