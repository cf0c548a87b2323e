package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ihavelanded/ms-go-esim/app/service"
)

var pollCmd = &cobra.Command{
	Use:   "poll <session-id>",
	Short: "Poll one checkout session until provisioning reaches a terminal state",
	Long:  "Operator tool: drive verify-and-provision for a single checkout session the way the storefront poller does, and report the final order state.",
	Args:  cobra.ExactArgs(1),
	Run:   runPoll,
}

func init() {
	rootCmd.AddCommand(pollCmd)
}

func runPoll(_ *cobra.Command, args []string) {
	cfg, services, cleanup := mustCreateServices()
	defer cleanup()

	sessionID := args[0]
	poller := service.NewPoller(service.PollPolicy{
		Interval:    cfg.Provisioning.PollInterval,
		MaxAttempts: cfg.Provisioning.PollMaxAttempts,
	}, services.orders)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	order, err := poller.Run(ctx, sessionID)
	if err != nil {
		logrus.WithError(err).WithField("session_id", sessionID).Fatal("Polling failed")
	}
	if order == nil {
		logrus.WithField("session_id", sessionID).Warn("No order state observed")
		return
	}

	entry := logrus.WithFields(logrus.Fields{
		"session_id": order.SessionID,
		"status":     order.Status,
	})
	if order.CarrierOrderNo != nil {
		entry = entry.WithField("carrier_order_no", *order.CarrierOrderNo)
	}
	if order.ICCID != nil {
		entry = entry.WithField("iccid", *order.ICCID)
	}
	if order.Terminal() {
		entry.Info("Provisioning reached a terminal state")
		return
	}
	entry.Warn("Attempt ceiling reached before a terminal state")
}
