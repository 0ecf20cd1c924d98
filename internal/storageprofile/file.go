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
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type fileConfig struct {
	Version int              `yaml:"version"`
	Buckets []StorageProfile `yaml:"buckets"`
}

type fileProvider struct {
	profiles map[string]StorageProfile
}

var _ StorageProfileProvider = (*fileProvider)(nil)

// NewFileProvider loads profiles from a YAML file. A filename of the form
// "env:NAME" reads the YAML from the environment variable NAME.
func NewFileProvider(filename string) (StorageProfileProvider, error) {
	if envVar, ok := strings.CutPrefix(filename, "env:"); ok {
		contents := os.Getenv(envVar)
		if contents == "" {
			return nil, fmt.Errorf("environment variable %s is not set", envVar)
		}
		return newFileProviderFromContents(filename, []byte(contents))
	}

	contents, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read storage profiles from file %s: %w", filename, err)
	}
	return newFileProviderFromContents(filename, contents)
}

func newFileProviderFromContents(filename string, contents []byte) (StorageProfileProvider, error) {
	var cfg fileConfig
	dec := yaml.NewDecoder(bytes.NewReader(contents))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal storage profiles from file %s: %w", filename, err)
	}
	if cfg.Version != 0 && cfg.Version != 1 {
		return nil, fmt.Errorf("storage profiles file %s: unsupported version %d", filename, cfg.Version)
	}

	profiles := make(map[string]StorageProfile, len(cfg.Buckets))
	for _, p := range cfg.Buckets {
		if p.CloudProvider == "" {
			p.CloudProvider = ProviderGCP
		}
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("storage profiles file %s: %w", filename, err)
		}
		if _, dup := profiles[p.Bucket]; dup {
			return nil, fmt.Errorf("storage profiles file %s: duplicate bucket %s", filename, p.Bucket)
		}
		profiles[p.Bucket] = p
	}
	return &fileProvider{profiles: profiles}, nil
}

func (p *fileProvider) GetStorageProfileForBucket(_ context.Context, bucketName string) (StorageProfile, error) {
	profile, ok := p.profiles[bucketName]
	if !ok {
		return StorageProfile{}, fmt.Errorf("bucket %s: %w", bucketName, ErrProfileNotFound)
	}
	return profile, nil
}
