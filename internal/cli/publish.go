package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/shaiso/Machina/internal/mq"
	"github.com/shaiso/Machina/internal/telemetry"
)

// NewPublishCmd создаёт команду публикации события покупки в очередь.
//
// В отличие от run, команда не выполняет workflow сама: событие
// уходит в purchases.incoming, его подберёт работающий fulfiller.
func NewPublishCmd(outputFn func() *Output) *cobra.Command {
	var mqURL string

	cmd := &cobra.Command{
		Use:   "publish EVENT_FILE",
		Short: "Publish a purchase event to the fulfillment queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			event, err := readEvent(args[0])
			if err != nil {
				return err
			}

			url := mqURL
			if url == "" {
				url = os.Getenv("RABBITMQ_URL")
			}
			if url == "" {
				url = mq.DefaultURL()
			}

			logger := telemetry.SetupLogger()
			conn, err := mq.NewConnection(url, logger)
			if err != nil {
				return err
			}
			defer conn.Close()

			if err := mq.SetupTopology(cmd.Context(), conn); err != nil {
				return err
			}

			publisher := mq.NewPublisher(conn, logger)
			if err := publisher.PublishPurchaseReceived(cmd.Context(), event); err != nil {
				return err
			}

			out.Success("Purchase event published to " + string(mq.QueuePurchasesIncoming))
			return nil
		},
	}

	cmd.Flags().StringVar(&mqURL, "mq-url", "", "RabbitMQ URL (default: RABBITMQ_URL env)")

	return cmd
}
