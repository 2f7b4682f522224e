// Package paramstore resolves provider API keys from AWS Systems Manager
// Parameter Store so they never live in the environment or the binary.
package paramstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

var (
	ErrEmptyName    = errors.New("parameter name is required")
	ErrMissingValue = errors.New("parameter has no value")
)

// ssmAPI is the part of *ssm.Client used here.
type ssmAPI interface {
	GetParameter(ctx context.Context, in *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

type Store struct {
	api ssmAPI
}

func New(api ssmAPI) *Store {
	return &Store{api: api}
}

// NewFromEnvironment builds a Store from the default AWS credential chain.
func NewFromEnvironment(ctx context.Context) (*Store, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	return New(ssm.NewFromConfig(cfg)), nil
}

// Get returns the decrypted value of a SecureString or String parameter.
func (s *Store) Get(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrEmptyName
	}

	out, err := s.api.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("failed to get parameter %q: %w", name, err)
	}
	if out == nil || out.Parameter == nil || aws.ToString(out.Parameter.Value) == "" {
		return "", fmt.Errorf("%w: %q", ErrMissingValue, name)
	}
	return strings.TrimSpace(aws.ToString(out.Parameter.Value)), nil
}
