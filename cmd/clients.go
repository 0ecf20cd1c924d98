// Copyright (C) 2025 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cardinalhq/strikeetl/config"
	"github.com/cardinalhq/strikeetl/internal/cloudstorage"
	"github.com/cardinalhq/strikeetl/internal/gcpclient"
	"github.com/cardinalhq/strikeetl/internal/ledger"
	"github.com/cardinalhq/strikeetl/internal/storageprofile"
)

// clients owns every service client built for one command invocation.
type clients struct {
	cfg      *config.Config
	gcp      *gcpclient.Manager
	storage  *cloudstorage.CloudManagers
	profiles storageprofile.StorageProfileProvider
}

func newClients(ctx context.Context, cfg *config.Config) (*clients, error) {
	profiles, err := storageprofile.Setup(cfg.Storage.ProfilesFile, cfg.Storage.Default)
	if err != nil {
		return nil, fmt.Errorf("failed to load storage profiles: %w", err)
	}
	gcp, err := gcpclient.NewManager(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCP manager: %w", err)
	}
	return &clients{
		cfg:      cfg,
		gcp:      gcp,
		storage:  cloudstorage.NewCloudManagers(gcp),
		profiles: profiles,
	}, nil
}

func (c *clients) gcpOptions() []gcpclient.ClientOption {
	opts := []gcpclient.ClientOption{gcpclient.WithProject(c.cfg.GCP.ProjectID)}
	if c.cfg.GCP.ImpersonateServiceAccount != "" {
		opts = append(opts, gcpclient.WithImpersonateServiceAccount(c.cfg.GCP.ImpersonateServiceAccount))
	}
	return opts
}

func (c *clients) bucket(ctx context.Context, name string) (cloudstorage.Client, error) {
	client, err := cloudstorage.ForBucket(ctx, c.profiles, c.storage, name)
	if err != nil {
		return nil, fmt.Errorf("storage client for %s: %w", name, err)
	}
	return client, nil
}

func (c *clients) bigQuery(ctx context.Context) (*gcpclient.BigQueryClient, error) {
	return c.gcp.GetBigQuery(ctx, c.gcpOptions()...)
}

func (c *clients) pubSub(ctx context.Context) (*gcpclient.PubSubClient, error) {
	return c.gcp.GetPubSub(ctx, c.gcpOptions()...)
}

// ledger opens the configured ledger backend.
func (c *clients) ledger(ctx context.Context, cfg ledger.Config) (ledger.Store, error) {
	switch cfg.Backend {
	case ledger.BackendPostgres:
		return ledger.ConnectPostgres(ctx, cfg)
	case ledger.BackendBigQuery:
		table, err := gcpclient.ParseTableID(cfg.Table)
		if err != nil {
			return nil, err
		}
		bq, err := c.bigQuery(ctx)
		if err != nil {
			return nil, err
		}
		return ledger.NewBigQueryStore(bq, table), nil
	default:
		return nil, fmt.Errorf("unknown ledger backend %q", cfg.Backend)
	}
}

func (c *clients) Close() {
	if err := c.gcp.Close(); err != nil {
		slog.Error("Error closing GCP clients", slog.Any("error", err))
	}
}

// runCommand runs fn with telemetry set up and shut down around it.
func runCommand(servicename string, fn func(ctx context.Context, cfg *config.Config) error) error {
	doneCtx, doneFx, err := setupTelemetry(servicename, nil)
	if err != nil {
		return fmt.Errorf("failed to setup telemetry: %w", err)
	}
	defer func() {
		if err := doneFx(); err != nil {
			slog.Error("Error shutting down telemetry", slog.Any("error", err))
		}
	}()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	err = fn(doneCtx, cfg)
	if errors.Is(err, context.Canceled) {
		slog.Warn("Run cancelled by signal")
	}
	return err
}
