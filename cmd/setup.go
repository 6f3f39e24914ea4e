package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/kozaktomas/attendance/internal/attendance"
	"github.com/kozaktomas/attendance/internal/config"
	"github.com/kozaktomas/attendance/internal/database"
	"github.com/kozaktomas/attendance/internal/database/postgres"
	"github.com/kozaktomas/attendance/internal/faces"
	"github.com/kozaktomas/attendance/internal/storage"
)

// app bundles what the data commands need.
type app struct {
	cfg     *config.Config
	pool    *postgres.Pool
	repos   attendance.Repositories
	service *attendance.Service
}

// openApp connects to PostgreSQL, runs migrations and builds the attendance service.
// withIndex additionally loads all enrollments into the in-memory HNSW index.
func openApp(ctx context.Context, withIndex bool) (*app, error) {
	cfg := config.Load()
	if cfg.Database.URL == "" {
		return nil, errors.New("DATABASE_URL environment variable is required")
	}

	if err := postgres.Initialize(&cfg.Database); err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	pool := postgres.GetGlobalPool()
	postgres.RegisterBackend(pool)

	repos, err := attendance.RepositoriesFromBackend(ctx)
	if err != nil {
		pool.Close()
		return nil, err
	}

	photos, err := storage.NewPhotoStore(cfg.Storage.PhotoDir)
	if err != nil {
		pool.Close()
		return nil, err
	}

	matching := cfg.Matching()
	var index *database.EnrollmentIndex
	if withIndex {
		index = database.NewEnrollmentIndex(matching.Metric)
	}

	svc := attendance.NewService(repos, photos,
		faces.NewClient(cfg.Embedding.URL, cfg.Embedding.MaxImageSize),
		index,
		attendance.Options{
			Model:        cfg.Embedding.Model,
			Metric:       matching.Metric,
			Threshold:    matching.Threshold,
			MaxImageSize: cfg.Embedding.MaxImageSize,
		})

	if withIndex {
		n, err := svc.RebuildIndex(ctx)
		if err != nil {
			fmt.Printf("Warning: failed to build enrollment index: %v\n", err)
			fmt.Printf("Duplicate hints will use PostgreSQL queries\n")
		} else {
			fmt.Printf("Enrollment index built with %d faces (in-memory only)\n", n)
		}
	}

	return &app{cfg: cfg, pool: pool, repos: repos, service: svc}, nil
}

func (a *app) Close() {
	if err := a.pool.Close(); err != nil {
		fmt.Printf("Warning: %v\n", err)
	}
}
