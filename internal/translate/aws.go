package translate

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awstranslate "github.com/aws/aws-sdk-go-v2/service/translate"
)

// AWSProvider translates through Amazon Translate.
type AWSProvider struct {
	client *awstranslate.Client
}

// AWSConfig holds the Amazon Translate connection settings. Empty keys fall back
// to the default AWS credential chain.
type AWSConfig struct {
	Region    string
	AccessKey string
	SecretKey string
}

// NewAWSProvider loads AWS configuration and builds a Translate client.
func NewAWSProvider(ctx context.Context, cfg AWSConfig) (*AWSProvider, error) {
	if cfg.Region == "" {
		return nil, errors.New("aws region not configured")
	}
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &AWSProvider{client: awstranslate.NewFromConfig(awsCfg)}, nil
}

func (p *AWSProvider) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	out, err := p.client.TranslateText(ctx, &awstranslate.TranslateTextInput{
		Text:               aws.String(text),
		SourceLanguageCode: aws.String(sourceLang),
		TargetLanguageCode: aws.String(targetLang),
	})
	if err != nil {
		return "", fmt.Errorf("translate text: %w", err)
	}
	return aws.ToString(out.TranslatedText), nil
}
