// Command buswatch-dbtool loads vehicle and stop fixtures into the document
// store and mints development bearer tokens. Intended for development and
// demo environments; production catalogs are managed elsewhere.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"

	"buswatch.io/buswatch/internal/hub/core/model"
	"buswatch.io/buswatch/internal/hub/storage/redisstore"
	"buswatch.io/buswatch/pkg/log"
	"buswatch.io/buswatch/pkg/options"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "buswatch-dbtool",
		Short:        "Seed the buswatch catalog and mint development tokens",
		SilenceUsage: true,
	}
	root.AddCommand(newSeedCommand(), newTokenCommand())
	return root
}

// seedFile is the on-disk fixture format.
type seedFile struct {
	Vehicles []seedVehicle `json:"vehicles"`
	Stops    []model.Stop  `json:"stops"`
}

type seedVehicle struct {
	ID          string `json:"id"`
	RouteID     string `json:"routeId"`
	OperatorID  string `json:"operatorId"`
	Status      string `json:"status"`
	Capacity    int    `json:"capacity"`
	PlateNumber string `json:"plateNumber"`
	DisplayName string `json:"displayName"`
	ImageKey    string `json:"imageKey"`
}

func newSeedCommand() *cobra.Command {
	redisOpts := options.NewRedisOptions()
	logOpts := log.NewOptions()
	var seedPath string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load vehicles and stops from a JSON fixture file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			log.Init(logOpts)

			raw, err := os.ReadFile(seedPath)
			if err != nil {
				return fmt.Errorf("failed to read seed file: %w", err)
			}
			var fixtures seedFile
			if err := json.Unmarshal(raw, &fixtures); err != nil {
				return fmt.Errorf("failed to parse seed file %s: %w", seedPath, err)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			rdb := redisOpts.NewClient()
			defer rdb.Close()

			catalog := redisstore.NewCatalog(rdb)
			for _, sv := range fixtures.Vehicles {
				status := model.VehicleStatus(sv.Status)
				if !status.Valid() {
					status = model.VehicleStatusIdle
				}
				v := &model.Vehicle{
					ID:          sv.ID,
					RouteID:     sv.RouteID,
					OperatorID:  sv.OperatorID,
					Status:      status,
					Capacity:    sv.Capacity,
					PlateNumber: sv.PlateNumber,
					DisplayName: sv.DisplayName,
					ImageKey:    sv.ImageKey,
				}
				if err := catalog.PutVehicle(ctx, v); err != nil {
					return fmt.Errorf("failed to seed vehicle %s: %w", sv.ID, err)
				}
			}
			log.Info("Seeded vehicles", "count", len(fixtures.Vehicles))

			stops := redisstore.NewStopIndex(rdb)
			for i := range fixtures.Stops {
				if err := stops.PutStop(ctx, &fixtures.Stops[i]); err != nil {
					return fmt.Errorf("failed to seed stop %s: %w", fixtures.Stops[i].ID, err)
				}
			}
			log.Info("Seeded stops", "count", len(fixtures.Stops))

			return nil
		},
	}

	cmd.Flags().StringVar(&seedPath, "seed", "data/seeds/fixtures.json", "Path to the JSON fixture file.")
	redisOpts.AddFlags(cmd.Flags())
	logOpts.AddFlags(cmd.Flags())

	return cmd
}

func newTokenCommand() *cobra.Command {
	authOpts := options.NewAuthOptions()
	var (
		subject string
		role    string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a signed bearer token for development use",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !model.Role(role).Valid() {
				return fmt.Errorf("unknown role %q", role)
			}

			now := time.Now()
			claims := jwt.MapClaims{
				"sub":  subject,
				"role": role,
				"iat":  now.Unix(),
				"exp":  now.Add(ttl).Unix(),
			}
			token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(authOpts.JWTSecret))
			if err != nil {
				return fmt.Errorf("failed to sign token: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "dev-user", "Subject id embedded in the token.")
	cmd.Flags().StringVar(&role, "role", string(model.RolePassenger), "Role claim: PASSENGER, DRIVER or ADMIN.")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime.")
	authOpts.AddFlags(cmd.Flags())

	return cmd
}
