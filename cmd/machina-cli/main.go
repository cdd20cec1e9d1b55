// Machina CLI — инструмент командной строки для fulfillment workflow.
//
// Использование:
//
//	machina <command> [flags]
//
// Команды:
//
//	run       Выполнить fulfillment workflow для события из файла
//	publish   Опубликовать событие покупки в очередь
//	validate  Проверить определение workflow
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/shaiso/Machina/internal/cli"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:           "machina",
		Short:         "Machina CLI — license-fulfillment workflow tool",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	outputFn := func() *cli.Output { return cli.NewOutput() }

	rootCmd.AddCommand(
		cli.NewRunCmd(outputFn),
		cli.NewPublishCmd(outputFn),
		cli.NewValidateCmd(outputFn),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
