// Package secrets fetches the google service account credentials used to
// write to the spreadsheet.
package secrets

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// DefaultParameter is where the credentials live in the parameter store.
const DefaultParameter = "/quizgame/google_credentials"

// Source returns the raw json credentials.
//
// note: fault injection point
type Source interface {
	Credentials(ctx context.Context) ([]byte, error)
}

// File reads the credentials from a local file.
type File struct {
	Path string
}

func (f File) Credentials(ctx context.Context) ([]byte, error) {
	buff, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	if len(buff) == 0 {
		return nil, fmt.Errorf("credentials file %s is empty", f.Path)
	}
	return buff, nil
}

// ParameterAPI is the part of the ssm client used by SSM.
type ParameterAPI interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// SSM reads the credentials from a (possibly encrypted) parameter of the AWS
// systems manager parameter store.
type SSM struct {
	client    ParameterAPI
	parameter string
}

func NewSSM(client ParameterAPI, parameter string) SSM {
	if parameter == "" {
		parameter = DefaultParameter
	}
	return SSM{client: client, parameter: parameter}
}

// NewDefaultSSM creates an SSM source from the environment's AWS configuration.
func NewDefaultSSM(ctx context.Context, region, parameter string) (SSM, error) {
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return SSM{}, fmt.Errorf("load aws config: %w", err)
	}
	return NewSSM(ssm.NewFromConfig(cfg), parameter), nil
}

func (s SSM) Credentials(ctx context.Context) ([]byte, error) {
	res, err := s.client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(s.parameter),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get parameter %s: %w", s.parameter, err)
	}
	if res.Parameter == nil || aws.ToString(res.Parameter.Value) == "" {
		return nil, fmt.Errorf("parameter %s has no value", s.parameter)
	}
	return []byte(aws.ToString(res.Parameter.Value)), nil
}

// Config selects where credentials come from, File takes precedence.
type Config struct {
	File      string `json:"file"`
	Parameter string `json:"ssm_parameter"`
	Region    string `json:"aws_region"`
}

func (c Config) Source(ctx context.Context) (Source, error) {
	if c.File != "" {
		return File{Path: c.File}, nil
	}
	return NewDefaultSSM(ctx, c.Region, c.Parameter)
}
