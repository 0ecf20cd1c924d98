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

package storageprofile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Supported cloud providers.
const (
	ProviderGCP   = "gcp"
	ProviderAWS   = "aws"
	ProviderAzure = "azure"
	ProviderFile  = "file"
)

// ErrProfileNotFound is returned when no profile exists for a bucket.
var ErrProfileNotFound = errors.New("storage profile not found")

// StorageProfile describes how to reach one bucket.
type StorageProfile struct {
	Bucket         string `json:"bucket" yaml:"bucket" mapstructure:"bucket"`
	CloudProvider  string `json:"cloud_provider" yaml:"cloud_provider" mapstructure:"cloud_provider"`
	Region         string `json:"region,omitempty" yaml:"region,omitempty" mapstructure:"region"`
	Role           string `json:"role,omitempty" yaml:"role,omitempty" mapstructure:"role"`
	Endpoint       string `json:"endpoint,omitempty" yaml:"endpoint,omitempty" mapstructure:"endpoint"`
	StorageAccount string `json:"storage_account,omitempty" yaml:"storage_account,omitempty" mapstructure:"storage_account"`
	InsecureTLS    bool   `json:"insecure_tls,omitempty" yaml:"insecure_tls,omitempty" mapstructure:"insecure_tls"`
	UsePathStyle   bool   `json:"use_path_style,omitempty" yaml:"use_path_style,omitempty" mapstructure:"use_path_style"`
	// BasePath is the root directory for the "file" provider.
	BasePath string `json:"base_path,omitempty" yaml:"base_path,omitempty" mapstructure:"base_path"`
}

// Validate checks the fields required by the profile's provider.
func (p StorageProfile) Validate() error {
	if p.Bucket == "" {
		return errors.New("bucket is required")
	}
	switch p.CloudProvider {
	case ProviderGCP, ProviderAWS, "":
	case ProviderAzure:
		if p.StorageAccount == "" && p.Endpoint == "" {
			return fmt.Errorf("bucket %s: azure requires storage_account or endpoint", p.Bucket)
		}
	case ProviderFile:
		if p.BasePath == "" {
			return fmt.Errorf("bucket %s: file provider requires base_path", p.Bucket)
		}
	default:
		return fmt.Errorf("bucket %s: unsupported cloud provider %q", p.Bucket, p.CloudProvider)
	}
	return nil
}

type StorageProfileProvider interface {
	GetStorageProfileForBucket(ctx context.Context, bucketName string) (StorageProfile, error)
}

// Setup returns a file provider when filename is set, otherwise a static
// provider that serves defaults for every bucket.
func Setup(filename string, defaults StorageProfile) (StorageProfileProvider, error) {
	if filename != "" {
		slog.Info("Using file storage profile provider", slog.String("path", filename))
		return NewFileProvider(filename)
	}
	slog.Info("Using static storage profile provider", slog.String("cloud_provider", defaults.CloudProvider))
	return NewStaticProvider(defaults), nil
}

type staticProvider struct {
	defaults StorageProfile
}

var _ StorageProfileProvider = (*staticProvider)(nil)

// NewStaticProvider returns a provider that answers every bucket with
// defaults, with Bucket replaced by the requested name.
func NewStaticProvider(defaults StorageProfile) StorageProfileProvider {
	if defaults.CloudProvider == "" {
		defaults.CloudProvider = ProviderGCP
	}
	return &staticProvider{defaults: defaults}
}

func (p *staticProvider) GetStorageProfileForBucket(_ context.Context, bucketName string) (StorageProfile, error) {
	profile := p.defaults
	profile.Bucket = bucketName
	if err := profile.Validate(); err != nil {
		return StorageProfile{}, err
	}
	return profile, nil
}
