// Package amazon adapts AWS service clients to the ports the comment
// pipeline depends on.
package amazon

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/comprehend"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/translate"

	"github.com/okian/commentsense/pkg/metrics"
)

// Clients bundles the SDK clients built once per process and shared by
// every invocation.
type Clients struct {
	Translate  *translate.Client
	Comprehend *comprehend.Client
	SNS        *sns.Client
	DynamoDB   *dynamodb.Client
}

// NewClients loads the default AWS config chain (env, shared config, role)
// and builds the service clients. region overrides the chain when non-empty.
func NewClients(ctx context.Context, region string) (*Clients, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return FromConfig(cfg), nil
}

// FromConfig builds the service clients from an existing aws.Config.
func FromConfig(cfg aws.Config) *Clients {
	return &Clients{
		Translate:  translate.NewFromConfig(cfg),
		Comprehend: comprehend.NewFromConfig(cfg),
		SNS:        sns.NewFromConfig(cfg),
		DynamoDB:   dynamodb.NewFromConfig(cfg),
	}
}

// observe records the latency and result of one SDK call.
func observe(dependency string, start time.Time, err error) {
	metrics.RecordDependencyCall(dependency, float64(time.Since(start).Milliseconds()), err)
}
