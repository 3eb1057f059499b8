// Anton CLI — операционные команды: осмотр и replay DLQ,
// просмотр архива задач.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shaiso/Anton/internal/cli"
	"github.com/shaiso/Anton/internal/mq"
)

// version подставляется через ldflags при сборке.
var version = "dev"

func main() {
	var (
		mqURL    string
		jsonMode bool
	)

	root := &cobra.Command{
		Use:           "anton",
		Short:         "Операционный CLI для пайплайна Anton",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&mqURL, "mq-url", mq.DefaultURL(), "адрес RabbitMQ (или RABBITMQ_URL)")
	root.PersistentFlags().BoolVar(&jsonMode, "json", false, "вывод в формате JSON")

	mqURLFn := func() string {
		if v := os.Getenv("RABBITMQ_URL"); v != "" && !root.PersistentFlags().Changed("mq-url") {
			return v
		}
		return mqURL
	}
	outputFn := func() *cli.Output {
		return cli.NewOutput(jsonMode)
	}

	root.AddCommand(
		cli.NewDLQCmd(mqURLFn, outputFn),
		cli.NewTasksCmd(outputFn),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
