// Package awsenv builds AWS clients for the apothecary command.
package awsenv

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// Local endpoints such as DynamoDB Local accept any credentials.
const (
	localAccessKey = "local"
	localSecretKey = "local"
	localRegion    = "us-east-1"
)

// Options select the region and, for local development, an endpoint override.
type Options struct {
	Region   string
	Endpoint string
}

// LoadConfig loads the shared AWS configuration. When an endpoint is set and no credentials can
// be resolved, static placeholder credentials are used so that a local endpoint works without an
// AWS account.
func LoadConfig(ctx context.Context, opts Options) (aws.Config, error) {
	var loadOpts []func(*config.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(opts.Region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return cfg, fmt.Errorf("unable to load AWS config: %w", err)
	}
	if opts.Endpoint == "" {
		return cfg, nil
	}
	if cfg.Region == "" {
		cfg.Region = localRegion
	}
	if !hasCredentials(ctx, cfg) {
		cfg.Credentials = aws.NewCredentialsCache(
			credentials.NewStaticCredentialsProvider(localAccessKey, localSecretKey, ""))
	}
	return cfg, nil
}

func hasCredentials(ctx context.Context, cfg aws.Config) bool {
	if cfg.Credentials == nil {
		return false
	}
	creds, err := cfg.Credentials.Retrieve(ctx)
	return err == nil && creds.HasKeys()
}

// NewDynamoDB returns a DynamoDB client, pointed at the endpoint if one is set.
func NewDynamoDB(cfg aws.Config, endpoint string) *dynamodb.Client {
	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
}

// STSAPI is the subset of the STS client used to check credentials.
type STSAPI interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// Identity is the principal behind the resolved credentials.
type Identity struct {
	Account string `json:"account"`
	ARN     string `json:"arn"`
	UserID  string `json:"userId"`
}

func (i Identity) String() string {
	return fmt.Sprintf("%s (account %s)", i.ARN, i.Account)
}

// CallerIdentity asks STS who the credentials belong to.
func CallerIdentity(ctx context.Context, client STSAPI) (Identity, error) {
	out, err := client.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return Identity{}, fmt.Errorf("error checking AWS credentials: %w", err)
	}
	return Identity{
		Account: aws.ToString(out.Account),
		ARN:     aws.ToString(out.Arn),
		UserID:  aws.ToString(out.UserId),
	}, nil
}

// NewSTS returns an STS client.
func NewSTS(cfg aws.Config) *sts.Client {
	return sts.NewFromConfig(cfg)
}
