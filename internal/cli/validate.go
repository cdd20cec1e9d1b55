package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shaiso/Machina/internal/domain"
	"github.com/shaiso/Machina/internal/engine"
	"github.com/shaiso/Machina/internal/fulfillment"
)

// NewValidateCmd создаёт команду проверки определения workflow.
//
// С аргументом проверяется JSON-файл definition; без аргумента —
// встроенный purchase-handler. Проверка структурная: path-выражения,
// шаблоны и селекторы парсятся, но внешние вызовы не выполняются.
func NewValidateCmd(outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [DEFINITION_FILE]",
		Short: "Validate a workflow definition",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			def, err := loadDefinition(args)
			if err != nil {
				return err
			}

			if err := engine.Validate(def); err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Definition %q is valid (%d top-level nodes)", def.Name, len(def.Nodes)))
			return nil
		},
	}

	return cmd
}

// loadDefinition загружает definition из файла или встроенный.
func loadDefinition(args []string) (*domain.Definition, error) {
	if len(args) == 0 {
		// Структура встроенного definition не зависит от значений конфига
		return fulfillment.Definition(fulfillment.Config{
			LicensingPolicyID: "policy",
			FromAddress:       "noreply@example.com",
		}), nil
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("read definition file: %w", err)
	}

	var def domain.Definition
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("parse definition file %s: %w", args[0], err)
	}

	return &def, nil
}
