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

package config

import (
	"reflect"
	"slices"
	"strings"

	"github.com/spf13/viper"

	"github.com/cardinalhq/strikeetl/internal/extract"
	"github.com/cardinalhq/strikeetl/internal/load"
	"github.com/cardinalhq/strikeetl/internal/storageprofile"
)

// Config aggregates configuration for the application.
// Each field is owned by its respective package.
type Config struct {
	GCP     GCPConfig      `mapstructure:"gcp"`
	Storage StorageConfig  `mapstructure:"storage"`
	Extract extract.Config `mapstructure:"extract"`
	Load    load.Config    `mapstructure:"load"`
}

type GCPConfig struct {
	// ProjectID runs and bills BigQuery jobs.
	ProjectID                 string `mapstructure:"project_id"`
	ImpersonateServiceAccount string `mapstructure:"impersonate_service_account"`
}

type StorageConfig struct {
	// ProfilesFile is a YAML file of per-bucket storage profiles. When
	// empty, Default serves every bucket.
	ProfilesFile string                        `mapstructure:"profiles_file"`
	Default      storageprofile.StorageProfile `mapstructure:"default"`
}

func defaultConfig() *Config {
	return &Config{
		GCP: GCPConfig{
			ProjectID: "luminous-wharf-450412-p2",
		},
		Storage: StorageConfig{
			Default: storageprofile.StorageProfile{CloudProvider: storageprofile.ProviderGCP},
		},
		Extract: extract.DefaultConfig(),
		Load:    load.DefaultConfig(),
	}
}

// Load reads configuration from files and environment variables.
// Environment variables use the prefix "STRIKEETL" and the dot character
// in keys is replaced by an underscore. For example,
// "extract.fetch.row_limit" becomes "STRIKEETL_EXTRACT_FETCH_ROW_LIMIT".
func Load() (*Config, error) {
	cfg := defaultConfig()

	v := viper.New()
	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.SetEnvPrefix("STRIKEETL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvs(v, cfg)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// bindEnvs registers all keys within cfg so that viper will look up
// corresponding environment variables when unmarshalling.
func bindEnvs(v *viper.Viper, cfg any, parts ...string) {
	val := reflect.ValueOf(cfg)
	typ := reflect.TypeOf(cfg)
	if typ.Kind() == reflect.Ptr {
		val = val.Elem()
		typ = typ.Elem()
	}
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		tag := f.Tag.Get("mapstructure")
		if tag == "" {
			tag = strings.ToLower(f.Name)
		}
		key := append(slices.Clone(parts), tag)
		if f.Type.Kind() == reflect.Struct {
			bindEnvs(v, val.Field(i).Interface(), key...)
			continue
		}
		_ = v.BindEnv(strings.Join(key, "."))
	}
}
