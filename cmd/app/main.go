package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"tujane/internal/auth"
	"tujane/internal/config"
	matchingservice "tujane/internal/matching-service"
	"tujane/internal/matching-service/core/domain/model"
	"tujane/internal/mylogger"
)

const usage = `usage: tujane <command> [flags]

commands:
  matcher     run the matching service
  migrate     apply the database schema
  driver-add  register or update a driver
  token       mint a bridge or operator token`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.New()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := mylogger.New("tujane-"+os.Args[1], cfg.Log.Level)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	ctx := context.Background()
	switch os.Args[1] {
	case "matcher":
		appLogger.Action("tujane_started").Info("Tujane matcher starting up")
		if err := matchingservice.Execute(ctx, appLogger, cfg); err != nil {
			appLogger.Action("tujane_failed").Error("Matcher stopped with error", err)
			os.Exit(1)
		}

	case "migrate":
		if err := matchingservice.Migrate(ctx, appLogger, cfg); err != nil {
			appLogger.Action("migrate_failed").Error("Migration failed", err)
			os.Exit(1)
		}
		appLogger.Action("migrate_completed").Info("Schema is up to date")

	case "driver-add":
		driverCmd := flag.NewFlagSet("driver-add", flag.ExitOnError)
		phone := driverCmd.String("phone", "", "driver phone number, e.g. 25761000001")
		name := driverCmd.String("name", "", "full name")
		plate := driverCmd.String("plate", "", "registration plate number")
		carType := driverCmd.String("car", "", "car type")
		photo := driverCmd.String("photo", "", "car photo URL")
		capacity := driverCmd.Int("capacity", 4, "passenger seats, 1 to 6")
		driverCmd.Parse(os.Args[2:])

		driver, err := matchingservice.AddDriver(ctx, appLogger, cfg, model.Driver{
			Phone:    *phone,
			FullName: *name,
			Plate:    *plate,
			CarType:  *carType,
			PhotoURL: *photo,
			Capacity: *capacity,
		})
		if err != nil {
			appLogger.Action("driver_add_failed").Error("Cannot save driver", err)
			os.Exit(1)
		}
		appLogger.Action("driver_saved").Info("Driver saved", "id", driver.ID, "phone", driver.Phone)

	case "token":
		tokenCmd := flag.NewFlagSet("token", flag.ExitOnError)
		subject := tokenCmd.String("subject", "", "token subject, e.g. bridge-1")
		role := tokenCmd.String("role", auth.RoleBridge, "bridge or operator")
		ttl := tokenCmd.Duration("ttl", 30*24*time.Hour, "token lifetime")
		tokenCmd.Parse(os.Args[2:])

		if *subject == "" || (*role != auth.RoleBridge && *role != auth.RoleOperator) {
			tokenCmd.Usage()
			os.Exit(2)
		}
		token, err := auth.Issue(cfg.Auth.JwtSecret, *subject, *role, *ttl)
		if err != nil {
			appLogger.Action("token_failed").Error("Cannot sign token", err)
			os.Exit(1)
		}
		fmt.Println(token)

	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
}
