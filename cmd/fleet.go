package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dixie/callvehicle/app"
	"github.com/dixie/callvehicle/config"
	"github.com/dixie/callvehicle/core/model"
	"github.com/dixie/callvehicle/infra/logger"
)

var (
	fleetRequester string
	fleetWatch     time.Duration
)

var fleetCmd = &cobra.Command{
	Use:   "fleet",
	Short: "List the requester's vehicles",
	RunE:  fleetRun,
}

func init() {
	fleetCmd.Flags().StringVar(&fleetRequester, "requester", "", "requester ID")
	fleetCmd.Flags().DurationVar(&fleetWatch, "watch", 0, "refresh interval, 0 prints once")
	_ = fleetCmd.MarkFlagRequired("requester")
	rootCmd.AddCommand(fleetCmd)
}

func fleetRun(cmd *cobra.Command, args []string) error {
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
			logger.New("fleet-command").Errorf("service close: %v", err)
		}
	}()

	printFleet(svc.Manager.Fleet(fleetRequester))
	if fleetWatch <= 0 {
		return nil
	}
	ticker := time.NewTicker(fleetWatch)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			printFleet(svc.Manager.Fleet(fleetRequester))
		case <-ctx.Done():
			return nil
		}
	}
}

func printFleet(vehicles []model.Vehicle) {
	if len(vehicles) == 0 {
		fmt.Println("no vehicles")
		return
	}
	for _, v := range vehicles {
		status := "idle"
		switch {
		case v.Reserved:
			status = "reserved"
		case v.Driving:
			status = "driving"
		}
		fmt.Printf("%-12s %-24s %6.1f km  %s\n", v.ID, v.DisplayName(), v.DistanceKm, status)
	}
}
