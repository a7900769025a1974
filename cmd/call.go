package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dixie/callvehicle/app"
	"github.com/dixie/callvehicle/config"
	"github.com/dixie/callvehicle/core/events"
	"github.com/dixie/callvehicle/infra/logger"
)

var (
	callRequester string
	callVehicle   string
)

var callCmd = &cobra.Command{
	Use:   "call",
	Short: "Request a vehicle and wait for the outcome",
	RunE:  callVehicleRun,
}

func init() {
	callCmd.Flags().StringVar(&callRequester, "requester", "", "requester ID")
	callCmd.Flags().StringVar(&callVehicle, "vehicle", "", "vehicle ID")
	_ = callCmd.MarkFlagRequired("requester")
	_ = callCmd.MarkFlagRequired("vehicle")
	rootCmd.AddCommand(callCmd)
}

func callVehicleRun(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	svc, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("call-command").Errorf("service close: %v", err)
		}
	}()

	courier := svc.Options.Get().CourierName
	sub := svc.Subscribe()
	session, err := svc.Manager.RequestDispatch(ctx, callRequester, callVehicle)
	if err != nil {
		return err
	}
	quote := session.Quote()
	fmt.Printf("session %s: %.1f km, $%d (%s)\n", session.ID, quote.DistanceKm, quote.TotalCost, quote.Band)

	for {
		select {
		case ev, ok := <-sub:
			if !ok {
				return fmt.Errorf("event stream closed")
			}
			switch e := ev.(type) {
			case events.NotificationEvent:
				if e.RequesterID == callRequester {
					fmt.Printf("%s: %s\n", courier, e.Text)
				}
			case events.SessionEvent:
				if e.SessionID == session.ID && e.State.Terminal() {
					fmt.Printf("session %s ended: %s", session.ID, e.State)
					if e.Reason != "" {
						fmt.Printf(" (%s)", e.Reason)
					}
					fmt.Println()
					return nil
				}
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
