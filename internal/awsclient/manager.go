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

package awsclient

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-sdk-go-v2/otelaws"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultSessionPrefix = "strikeetl"
	maxSessionNameLen    = 64
)

// Manager loads the AWS config once and hands out S3 clients. Assumed
// role credentials are cached per role and bucket session name.
type Manager struct {
	baseCfg       aws.Config
	stsClient     *sts.Client
	sessionPrefix string
	tracer        trace.Tracer

	mu    sync.Mutex
	creds map[roleKey]aws.CredentialsProvider
}

type roleKey struct {
	RoleARN     string
	SessionName string
}

type managerConfig struct {
	sessionPrefix string
	loadOpts      []func(*config.LoadOptions) error
}

type ManagerOption func(*managerConfig)

// WithSessionPrefix replaces the "strikeetl" prefix of assumed role
// session names.
func WithSessionPrefix(prefix string) ManagerOption {
	return func(c *managerConfig) {
		c.sessionPrefix = prefix
	}
}

// WithDefaultRegion is used when neither the environment nor a storage
// profile names a region.
func WithDefaultRegion(region string) ManagerOption {
	return func(c *managerConfig) {
		c.loadOpts = append(c.loadOpts, config.WithDefaultRegion(region))
	}
}

func NewManager(ctx context.Context, opts ...ManagerOption) (*Manager, error) {
	mc := managerConfig{sessionPrefix: defaultSessionPrefix}
	for _, opt := range opts {
		opt(&mc)
	}

	cfg, err := config.LoadDefaultConfig(ctx, mc.loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	otelaws.AppendMiddlewares(&cfg.APIOptions)

	return &Manager{
		baseCfg:       cfg,
		stsClient:     sts.NewFromConfig(cfg),
		sessionPrefix: mc.sessionPrefix,
		tracer:        otel.Tracer("github.com/cardinalhq/strikeetl/internal/awsclient"),
		creds:         make(map[roleKey]aws.CredentialsProvider),
	}, nil
}

// credentials returns the base credentials when roleARN is empty, and a
// cached assume-role provider otherwise.
func (m *Manager) credentials(roleARN, bucket string) aws.CredentialsProvider {
	if roleARN == "" {
		return m.baseCfg.Credentials
	}
	key := roleKey{RoleARN: roleARN, SessionName: sessionName(m.sessionPrefix, bucket)}

	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.creds[key]; ok {
		return p
	}
	p := aws.NewCredentialsCache(stscreds.NewAssumeRoleProvider(m.stsClient, roleARN, func(o *stscreds.AssumeRoleOptions) {
		o.RoleSessionName = key.SessionName
	}))
	m.creds[key] = p
	return p
}

// sessionName builds "<prefix>-<bucket>" limited to the characters and
// length STS accepts for RoleSessionName.
func sessionName(prefix, bucket string) string {
	name := prefix
	if bucket != "" {
		name += "-" + bucket
	}
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case strings.ContainsRune("_+=,.@-", r):
			return r
		}
		return '-'
	}, name)
	if len(name) > maxSessionNameLen {
		name = name[:maxSessionNameLen]
	}
	if len(name) < 2 {
		name = defaultSessionPrefix
	}
	return name
}
