package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Output управляет форматированием вывода CLI.
//
// Данные выводятся в stdout, сообщения (Success/Error) — в stderr.
// Это позволяет использовать pipe: machina run event.json | jq .
type Output struct {
	w    io.Writer // stdout для данных
	errW io.Writer // stderr для сообщений
}

// NewOutput создаёт Output.
func NewOutput() *Output {
	return &Output{
		w:    os.Stdout,
		errW: os.Stderr,
	}
}

// JSON выводит данные в формате JSON с отступами.
func (o *Output) JSON(v any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}

// Success выводит сообщение об успехе в stderr.
func (o *Output) Success(msg string) {
	fmt.Fprintln(o.errW, msg)
}

// Error выводит сообщение об ошибке в stderr.
func (o *Output) Error(msg string) {
	fmt.Fprintln(o.errW, "Error: "+msg)
}
