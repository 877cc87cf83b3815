package awsenv

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/stretchr/testify/assert"
)

var ctx = context.Background()

type stsFunc func(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)

func (f stsFunc) GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
	return f(ctx, params, optFns...)
}

func TestCallerIdentity(t *testing.T) {
	expect := assert.New(t)
	client := stsFunc(func(context.Context, *sts.GetCallerIdentityInput, ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
		return &sts.GetCallerIdentityOutput{
			Account: aws.String("123456789012"),
			Arn:     aws.String("arn:aws:iam::123456789012:user/alex"),
			UserId:  aws.String("AIDAEXAMPLE"),
		}, nil
	})
	id, err := CallerIdentity(ctx, client)
	if expect.NoError(err) {
		expect.Equal("123456789012", id.Account)
		expect.Equal("AIDAEXAMPLE", id.UserID)
		expect.Equal("arn:aws:iam::123456789012:user/alex (account 123456789012)", id.String())
	}

	denied := errors.New("expired token")
	_, err = CallerIdentity(ctx, stsFunc(func(context.Context, *sts.GetCallerIdentityInput, ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
		return nil, denied
	}))
	expect.ErrorIs(err, denied)
}

func TestLoadConfig_LocalEndpoint(t *testing.T) {
	expect := assert.New(t)
	t.Setenv("AWS_ACCESS_KEY_ID", "")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "")
	t.Setenv("AWS_PROFILE", "")
	t.Setenv("AWS_REGION", "")
	t.Setenv("AWS_DEFAULT_REGION", "")
	t.Setenv("AWS_CONFIG_FILE", t.TempDir()+"/config")
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", t.TempDir()+"/credentials")
	t.Setenv("AWS_EC2_METADATA_DISABLED", "true")

	cfg, err := LoadConfig(ctx, Options{Endpoint: "http://localhost:8000"})
	if !expect.NoError(err) {
		return
	}
	expect.Equal(localRegion, cfg.Region)
	creds, err := cfg.Credentials.Retrieve(ctx)
	if expect.NoError(err) {
		expect.Equal(localAccessKey, creds.AccessKeyID)
	}

	cfg, err = LoadConfig(ctx, Options{Region: "us-west-2", Endpoint: "http://localhost:8000"})
	if expect.NoError(err) {
		expect.Equal("us-west-2", cfg.Region)
	}

	client := NewDynamoDB(cfg, "http://localhost:8000")
	expect.Equal("http://localhost:8000", aws.ToString(client.Options().BaseEndpoint))
}
