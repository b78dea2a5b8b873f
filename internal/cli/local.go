package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/shaiso/flowgraph/internal/document"
	"github.com/shaiso/flowgraph/internal/engine"
	"github.com/shaiso/flowgraph/internal/mq"
	"github.com/shaiso/flowgraph/internal/nodes"
	"github.com/shaiso/flowgraph/internal/repo"
	"github.com/shaiso/flowgraph/internal/telemetry"
)

// engineFlags — флаги локального движка. Значения по умолчанию
// берутся из ENGINE_* переменных окружения.
type engineFlags struct {
	parallelism int
	allOrigins  bool
	checkCycles bool
	nodeTimeout time.Duration
	withDB      bool
	withMQ      bool
}

func (f *engineFlags) register(cmd *cobra.Command) {
	env := engine.OptionsFromEnv()

	cmd.Flags().IntVar(&f.parallelism, "parallelism", env.Parallelism, "Max nodes executed at once")
	cmd.Flags().BoolVar(&f.allOrigins, "all-origins", env.Origins == engine.OriginAll, "Seed every node without incoming edges")
	cmd.Flags().BoolVar(&f.checkCycles, "check-cycles", env.CheckCycles, "Reject graphs with cycles before running")
	cmd.Flags().DurationVar(&f.nodeTimeout, "node-timeout", env.NodeTimeout, "Per-node timeout (0 = none)")
	cmd.Flags().BoolVar(&f.withDB, "with-db", false, "Connect record nodes to PostgreSQL (DB_URL)")
	cmd.Flags().BoolVar(&f.withMQ, "with-mq", false, "Connect send_message to RabbitMQ (RABBITMQ_URL)")
}

func (f *engineFlags) options() engine.Options {
	opts := engine.DefaultOptions()
	opts.Parallelism = f.parallelism
	opts.CheckCycles = f.checkCycles
	opts.NodeTimeout = f.nodeTimeout
	if f.allOrigins {
		opts.Origins = engine.OriginAll
	}
	return opts
}

// build собирает каталог и движок. cleanup закрывает внешние соединения
// и должен вызываться даже при ошибке.
func (f *engineFlags) build(ctx context.Context, logger *slog.Logger) (*engine.Engine, *nodes.Registry, func(), error) {
	var (
		deps    nodes.Deps
		closers []func()
	)
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if f.withDB {
		pool, err := repo.NewPool(ctx)
		if err != nil {
			return nil, nil, cleanup, fmt.Errorf("connect database: %w", err)
		}
		closers = append(closers, pool.Close)
		if err := repo.EnsureSchema(ctx, pool); err != nil {
			return nil, nil, cleanup, err
		}
		deps.Records = repo.NewRecordRepo(pool)
	}

	if f.withMQ {
		conn, err := mq.NewConnection(mq.URLFromEnv(), logger)
		if err != nil {
			return nil, nil, cleanup, fmt.Errorf("connect rabbitmq: %w", err)
		}
		closers = append(closers, func() { conn.Close() })
		if err := mq.SetupTopology(ctx, conn); err != nil {
			return nil, nil, cleanup, err
		}
		deps.Messages = mq.NewPublisher(conn, logger)
	}

	registry := nodes.DefaultRegistry(deps)
	opts := f.options()
	eng := engine.New(engine.Config{
		Catalog: registry,
		Options: &opts,
		Logger:  logger,
	})
	return eng, registry, cleanup, nil
}

// parseInput разбирает значение флага --input.
// "@path" читает файл, пустая строка — нет входных данных,
// невалидный JSON передаётся как строка.
func parseInput(raw string) (any, error) {
	if raw == "" {
		return nil, nil
	}

	data := []byte(raw)
	if path, ok := strings.CutPrefix(raw, "@"); ok {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read input: %w", err)
		}
	}

	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return string(data), nil
	}
	return v, nil
}

// NewRunCmd создаёт команду локального запуска графа из файла.
func NewRunCmd(outputFn func(cmd *cobra.Command) *Output) *cobra.Command {
	var (
		flags engineFlags
		input string
	)

	cmd := &cobra.Command{
		Use:   "run FILE",
		Short: "Run a graph document locally",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn(cmd)

			doc, err := document.ReadFile(args[0])
			if err != nil {
				return err
			}
			trigger, err := parseInput(input)
			if err != nil {
				return err
			}

			logger := telemetry.NewCLILogger(cmd.ErrOrStderr())
			eng, _, cleanup, err := flags.build(cmd.Context(), logger)
			defer cleanup()
			if err != nil {
				return err
			}

			result, runErr := eng.Run(cmd.Context(), &doc.Graph, trigger)
			printResult(out, result, runErr)

			if runErr != nil {
				return fmt.Errorf("run %s failed (%s): %w", result.RunID, engine.ErrorKind(runErr), runErr)
			}
			out.Success(fmt.Sprintf("Run %s succeeded in %s", result.RunID, result.Duration().Round(time.Millisecond)))
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&input, "input", "", "Run input: JSON or @file")
	return cmd
}

// NewValidateCmd создаёт команду статической проверки документа.
func NewValidateCmd(outputFn func(cmd *cobra.Command) *Output) *cobra.Command {
	var flags engineFlags

	cmd := &cobra.Command{
		Use:   "validate FILE",
		Short: "Check a graph document without running it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn(cmd)

			doc, err := document.ReadFile(args[0])
			if err != nil {
				return err
			}

			registry := nodes.DefaultRegistry(nodes.Deps{})
			if err := engine.Validate(&doc.Graph, registry, flags.options()); err != nil {
				var vErr *engine.ValidationError
				if errors.As(err, &vErr) && vErr.Field != "" {
					return fmt.Errorf("%s [%s, field %s]", err, engine.ErrorKind(err), vErr.Field)
				}
				return fmt.Errorf("%s [%s]", err, engine.ErrorKind(err))
			}

			if doc.Migrated() {
				out.Success(fmt.Sprintf("Document migrated from schema version %d to %d",
					doc.SourceVersion, doc.SchemaVersion))
			}
			out.Success(fmt.Sprintf("Graph is valid: %d nodes, %d edges", len(doc.Nodes), len(doc.Edges)))
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

// NewNodeTypesCmd выводит встроенный каталог типов узлов.
func NewNodeTypesCmd(outputFn func(cmd *cobra.Command) *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "node-types",
		Short: "List built-in node types",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn(cmd)
			descs := nodes.DefaultRegistry(nodes.Deps{}).Descriptors()

			rows := make([][]string, len(descs))
			for i, d := range descs {
				rows[i] = []string{d.Type, d.Required.Mode.String(), portNames(d.Inputs), portNames(d.Outputs), d.Description}
			}

			out.Print([]string{"TYPE", "MODE", "INPUTS", "OUTPUTS", "DESCRIPTION"}, rows, descs)
			return nil
		},
	}
}

// NewExportCmd переписывает документ в текущей версии формата.
func NewExportCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "export FILE",
		Short: "Print a graph document migrated to the current schema version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := document.ReadFile(args[0])
			if err != nil {
				return err
			}
			if name == "" {
				name = doc.Name
			}

			data, err := document.Encode(name, doc.Graph)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return err
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Override the graph name")
	return cmd
}

func portNames(ports []nodes.Port) string {
	names := make([]string, len(ports))
	for i, p := range ports {
		names[i] = p.Name
	}
	return strings.Join(names, ",")
}

// printResult выводит выполнения узлов run.
func printResult(out *Output, result *engine.Result, runErr error) {
	if out.JSONMode() {
		out.JSON(struct {
			*engine.Result
			ErrorKind string `json:"error_kind,omitempty"`
		}{result, engine.ErrorKind(runErr)})
		return
	}

	rows := make([][]string, len(result.Executions))
	for i, exec := range result.Executions {
		rows[i] = []string{
			exec.NodeID,
			exec.Type,
			string(exec.Status),
			exec.Duration().Round(time.Millisecond).String(),
			compact(exec.Output, 60),
			exec.Error,
		}
	}
	out.Table([]string{"NODE", "TYPE", "STATUS", "DURATION", "OUTPUT", "ERROR"}, rows)
}
