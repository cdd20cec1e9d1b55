package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shaiso/Machina/internal/connector"
	"github.com/shaiso/Machina/internal/fulfillment"
	"github.com/shaiso/Machina/internal/mail"
	"github.com/shaiso/Machina/internal/runner"
)

// NewRunCmd создаёт команду одноразового выполнения fulfillment workflow.
//
// Событие покупки читается из JSON-файла и проходит через
// purchase-handler так же, как событие из очереди. Конфигурация
// (endpoint'ы, секреты) берётся из окружения.
func NewRunCmd(outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run EVENT_FILE",
		Short: "Execute the fulfillment workflow for a purchase event file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			event, err := readEvent(args[0])
			if err != nil {
				return err
			}

			cfg, err := fulfillment.ConfigFromEnv()
			if err != nil {
				return err
			}

			connectors, err := cfg.Connectors()
			if err != nil {
				return err
			}

			creds := connector.EnvCredentials{}
			mailer := mail.NewAPIMailer(cfg.EmailConnector(), creds)

			r := runner.New(runner.Config{
				Invokers: runner.NewRegistry(connectors, creds, mailer),
			})

			svc, err := fulfillment.NewService(fulfillment.ServiceConfig{
				Definition: fulfillment.Definition(cfg),
				Runner:     r,
			})
			if err != nil {
				return err
			}

			run, err := svc.Fulfill(cmd.Context(), event)
			if run != nil {
				out.JSON(run)
			}
			if err != nil {
				return err
			}

			out.Success("Run succeeded: " + run.ID.String())
			return nil
		},
	}

	return cmd
}

// readEvent читает событие покупки из JSON-файла.
func readEvent(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read event file: %w", err)
	}

	var event map[string]any
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("parse event file %s: %w", path, err)
	}

	return event, nil
}
