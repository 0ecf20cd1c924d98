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

package cloudstorage

import (
	"context"
	"fmt"
	"sync"

	"github.com/cardinalhq/strikeetl/internal/awsclient"
	"github.com/cardinalhq/strikeetl/internal/azureclient"
	"github.com/cardinalhq/strikeetl/internal/gcpclient"
	"github.com/cardinalhq/strikeetl/internal/storageprofile"
)

// CloudManagers creates provider managers on first use, so a run that only
// touches GCS never needs AWS or Azure credentials.
type CloudManagers struct {
	mu    sync.Mutex
	GCP   *gcpclient.Manager
	AWS   *awsclient.Manager
	Azure *azureclient.Manager
}

var _ ClientProvider = (*CloudManagers)(nil)

// NewCloudManagers wraps an existing GCP manager, which is shared with the
// BigQuery and Pub/Sub code paths.
func NewCloudManagers(gcp *gcpclient.Manager) *CloudManagers {
	return &CloudManagers{GCP: gcp}
}

// defaultAWSRegion applies when neither the environment nor the bucket's
// profile sets a region.
const defaultAWSRegion = "us-east-1"

func (m *CloudManagers) awsManager(ctx context.Context) (*awsclient.Manager, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.AWS == nil {
		mgr, err := awsclient.NewManager(ctx, awsclient.WithDefaultRegion(defaultAWSRegion))
		if err != nil {
			return nil, fmt.Errorf("failed to create AWS manager: %w", err)
		}
		m.AWS = mgr
	}
	return m.AWS, nil
}

func (m *CloudManagers) azureManager(ctx context.Context) (*azureclient.Manager, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Azure == nil {
		mgr, err := azureclient.NewManager(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create Azure manager: %w", err)
		}
		m.Azure = mgr
	}
	return m.Azure, nil
}

func (m *CloudManagers) NewClient(ctx context.Context, profile storageprofile.StorageProfile) (Client, error) {
	switch profile.CloudProvider {
	case storageprofile.ProviderGCP, "":
		if m.GCP == nil {
			return nil, fmt.Errorf("no GCP manager configured for bucket %s", profile.Bucket)
		}
		sc, err := m.GCP.GetStorageForProfile(ctx, profile)
		if err != nil {
			return nil, fmt.Errorf("failed to create GCS client: %w", err)
		}
		return &gcsClient{storageClient: sc}, nil
	case storageprofile.ProviderAWS:
		mgr, err := m.awsManager(ctx)
		if err != nil {
			return nil, err
		}
		s3c, err := mgr.GetS3ForProfile(ctx, profile)
		if err != nil {
			return nil, fmt.Errorf("failed to create S3 client: %w", err)
		}
		return &s3Client{awsS3Client: s3c}, nil
	case storageprofile.ProviderAzure:
		mgr, err := m.azureManager(ctx)
		if err != nil {
			return nil, err
		}
		bc, err := mgr.GetBlobForProfile(ctx, profile)
		if err != nil {
			return nil, fmt.Errorf("failed to create Azure blob client: %w", err)
		}
		return &azureClient{blobClient: bc}, nil
	case storageprofile.ProviderFile:
		return &fileClient{base: profile.BasePath}, nil
	default:
		return nil, fmt.Errorf("unsupported cloud provider: %s", profile.CloudProvider)
	}
}
