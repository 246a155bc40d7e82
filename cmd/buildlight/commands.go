package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/dokzlo13/buildlight/internal/app"
	"github.com/dokzlo13/buildlight/internal/coordinator"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Watch the configured bindings and receive Jenkins notifications",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		log.Info().Str("config", configPath).Msg("Starting buildlight")

		application, err := app.New(cfg)
		if err != nil {
			return fmt.Errorf("failed to create application: %w", err)
		}

		return application.Run(app.SignalContext())
	},
}

var jobCmd = &cobra.Command{
	Use:   "job <light> <job>",
	Short: "Show the state of a Jenkins job on a light",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCoordinator(cmd.Context(), func(ctx context.Context, c *coordinator.Coordinator) error {
			d, err := c.UpdateForJob(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			printDecision(cmd, d)
			return nil
		})
	},
}

var viewCmd = &cobra.Command{
	Use:   "view <light>",
	Short: "Show the aggregated state of the configured view on a light",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCoordinator(cmd.Context(), func(ctx context.Context, c *coordinator.Coordinator) error {
			d, err := c.UpdateForView(ctx, args[0])
			if err != nil {
				return err
			}
			printDecision(cmd, d)
			return nil
		})
	},
}

var offCmd = &cobra.Command{
	Use:   "off <light>",
	Short: "Switch a light off",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCoordinator(cmd.Context(), func(ctx context.Context, c *coordinator.Coordinator) error {
			d, err := c.SwitchOff(ctx, args[0])
			if err != nil {
				return err
			}
			printDecision(cmd, d)
			return nil
		})
	},
}

var blinkCmd = &cobra.Command{
	Use:   "blink <light>",
	Short: "Flash a light once",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCoordinator(cmd.Context(), func(ctx context.Context, c *coordinator.Coordinator) error {
			return c.BlinkLight(ctx, args[0])
		})
	},
}

var statusCmd = &cobra.Command{
	Use:   "status <light>",
	Short: "Report whether a light is switched on",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCoordinator(cmd.Context(), func(ctx context.Context, c *coordinator.Coordinator) error {
			on, err := c.IsLightOn(ctx, args[0])
			if err != nil {
				return err
			}
			power := "off"
			if on {
				power = "on"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "light %s is %s\n", args[0], power)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, jobCmd, viewCmd, offCmd, blinkCmd, statusCmd)
}

// withCoordinator runs fn against a freshly built application and waits for
// dispatched pushes before returning.
func withCoordinator(ctx context.Context, fn func(context.Context, *coordinator.Coordinator) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	application, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer application.Stop()

	if ctx == nil {
		ctx = context.Background()
	}
	return fn(ctx, application.Coordinator())
}

func printDecision(cmd *cobra.Command, d coordinator.Decision) {
	action := "unchanged"
	if d.Pushed {
		action = "pushed"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "light %s: %s (%s)\n", d.LightID, d.State, action)
}
