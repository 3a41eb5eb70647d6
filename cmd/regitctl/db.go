package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/regit-contracts/regit/config"
	"github.com/regit-contracts/regit/internal/observability"
	"github.com/regit-contracts/regit/internal/policy"
	"github.com/regit-contracts/regit/models"
	"github.com/regit-contracts/regit/repositories/postgres"
	"github.com/regit-contracts/regit/services/contract"
	"github.com/regit-contracts/regit/services/department"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

func openFactory(ctx context.Context, cmd *cli.Command) (*postgres.RepositoryFactory, *config.Config, *zap.Logger, error) {
	logger, err := observability.NewLogger(cmd.Root().String("log-level"), "console")
	if err != nil {
		return nil, nil, nil, err
	}
	cfg, err := config.New(ctx)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	factory, err := postgres.NewRepositoryFactory(cfg, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	return factory, cfg, logger, nil
}

func executeMigrate(ctx context.Context, cmd *cli.Command) error {
	factory, _, _, err := openFactory(ctx, cmd)
	if err != nil {
		return err
	}
	defer factory.Close()

	if err := factory.InitSchema(ctx); err != nil {
		return err
	}
	fmt.Fprintln(cmd.Root().Writer, "schema is up to date")
	return nil
}

func executeSeed(ctx context.Context, cmd *cli.Command) error {
	factory, cfg, logger, err := openFactory(ctx, cmd)
	if err != nil {
		return err
	}
	defer factory.Close()

	if err := factory.InitSchema(ctx); err != nil {
		return err
	}

	clock := clockwork.NewRealClock()
	repos := factory.NewRepositories()
	departments := department.NewService(repos.Departments, department.NewCache(len(department.DefaultNames), time.Minute, clock), nil, clock, logger)
	contracts := contract.NewService(contract.Params{
		Contracts:   repos.Contracts,
		Files:       repos.Files,
		TxManager:   factory.GetTransactionManager(),
		Departments: departments,
		Engine:      policy.NewDefaultEngine(),
		Clock:       clock,
		Logger:      logger,
		MaxFileSize: cfg.Uploads.MaxFileSize,
	})

	created, err := seed(ctx, departments, contracts, cmd.String("owner"), clock.Now())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.Root().Writer, "seeded %d departments and %d contracts\n", len(department.DefaultNames), created)
	return nil
}

type departmentSeeder interface {
	EnsureDefaults(ctx context.Context, names []string) ([]*models.Department, error)
}

type contractSeeder interface {
	List(ctx context.Context, principal *policy.Principal, q contract.ListQuery) (*contract.ListResult, error)
	Create(ctx context.Context, principal *policy.Principal, in contract.Input) (*models.Contract, error)
}

// seed creates the default departments and, unless owner already has
// contracts, the sample contracts. It returns the number of contracts created.
func seed(ctx context.Context, departments departmentSeeder, contracts contractSeeder, owner string, now time.Time) (int, error) {
	depts, err := departments.EnsureDefaults(ctx, department.DefaultNames)
	if err != nil {
		return 0, fmt.Errorf("failed to seed departments: %w", err)
	}

	if strings.TrimSpace(owner) == "" {
		return 0, fmt.Errorf("owner is required")
	}
	principal := policy.NewPrincipal(owner)
	existing, err := contracts.List(ctx, principal, contract.ListQuery{Limit: 1})
	if err != nil {
		return 0, err
	}
	if len(existing.Contracts) > 0 {
		return 0, nil
	}

	inputs := sampleContracts(now, depts)
	for _, in := range inputs {
		if _, err := contracts.Create(ctx, principal, in); err != nil {
			return 0, fmt.Errorf("failed to seed contract %s: %w", in.RegNum, err)
		}
	}
	return len(inputs), nil
}

func sampleContracts(now time.Time, depts []*models.Department) []contract.Input {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	inputs := []contract.Input{
		{Subject: "Consultation", RegNum: "123-321", SignedOn: today, ValidFrom: date(2023, time.February, 28), Value: 2337.99},
		{Subject: "Delivery of materials", RegNum: "321", SignedOn: today.AddDate(0, 0, 1), ValidFrom: date(2023, time.March, 1), Value: 3537.99},
		{Subject: "Support", RegNum: "365-698", SignedOn: today.AddDate(0, 0, 2), ValidFrom: date(2023, time.March, 2), Value: 2337.99},
		{Subject: "Something else", RegNum: "94", SignedOn: today.AddDate(0, 0, 3), ValidFrom: date(2023, time.March, 4), Value: 2337.99},
	}
	for i := range inputs {
		if len(depts) > 0 {
			id := depts[i%len(depts)].ID
			inputs[i].ResponsibleID = &id
		}
	}
	return inputs
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
