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
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"

	"github.com/cardinalhq/strikeetl/internal/storageprofile"
)

func TestProfileOptions(t *testing.T) {
	p := storageprofile.StorageProfile{
		Bucket:       "b",
		Role:         "arn:aws:iam::1:role/r",
		Region:       "eu-west-1",
		Endpoint:     "http://minio:9000",
		UsePathStyle: true,
		InsecureTLS:  true,
	}

	sc := s3Config{Region: "us-east-1"}
	for _, o := range profileOptions(p) {
		o(&sc)
	}

	assert.Equal(t, "b", sc.Bucket)
	assert.Equal(t, "arn:aws:iam::1:role/r", sc.RoleARN)
	assert.Equal(t, "eu-west-1", sc.Region)
	assert.Len(t, sc.applyConfigs, 1)
	assert.Len(t, sc.applyS3s, 2)

	var opts s3.Options
	for _, fn := range sc.applyS3s {
		fn(&opts)
	}
	assert.Equal(t, "http://minio:9000", aws.ToString(opts.BaseEndpoint))
	assert.True(t, opts.UsePathStyle)

	var cfg aws.Config
	sc.applyConfigs[0](&cfg)
	assert.NotNil(t, cfg.HTTPClient)
}

func TestProfileOptions_BucketOnly(t *testing.T) {
	opts := profileOptions(storageprofile.StorageProfile{Bucket: "b"})
	assert.Len(t, opts, 1)

	var sc s3Config
	opts[0](&sc)
	assert.Equal(t, s3Config{Bucket: "b"}, sc)
}
