// Command seed creates the bootstrap admin and employee accounts.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/ovaphlow/pitchfork/service-staff-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-staff-go/internal/photo"
	"github.com/ovaphlow/pitchfork/service-staff-go/internal/staff"
	"github.com/ovaphlow/pitchfork/service-staff-go/internal/staff/repo"
	"github.com/ovaphlow/pitchfork/service-staff-go/pkg/database"
	"github.com/ovaphlow/pitchfork/service-staff-go/pkg/utilities"
)

func main() {
	_ = godotenv.Load()

	lg, err := utilities.Init(utilities.ConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()
	sugar := lg.Sugar()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.Open(ctx, database.ConfigFromEnv())
	if err != nil {
		sugar.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(ctx, db.DB); err != nil {
		sugar.Fatalf("migrate: %v", err)
	}

	photos, err := photo.New(ctx, photo.ConfigFromEnv())
	if err != nil {
		sugar.Fatalf("photo store: %v", err)
	}

	svc := staff.NewService(repo.NewStaffRepo(db), photos, auth.BcryptHasher{Cost: 10}, sugar)
	n, err := svc.Seed(ctx)
	if err != nil {
		sugar.Fatalf("seed: %v", err)
	}
	sugar.Infow("seed complete", "created", n)
	sugar.Info("admin login: Admin1122 / 1122 (admin@example.com)")
	sugar.Info("employee login: ISARED025014 / 1234 (employee@example.com)")
}
