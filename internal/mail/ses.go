package mail

import (
	"context"
	"fmt"

	"cardauth/internal/dto"
	"cardauth/internal/observability/metrics"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

// SESAPI is the subset of the SES v2 client the sender uses.
type SESAPI interface {
	SendEmail(ctx context.Context, in *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

type SESSender struct {
	client  SESAPI
	from    string
	replyTo string
}

var loadDefaultAWSConfig = config.LoadDefaultConfig

// NewSESSender loads the AWS config for cfg.AWSRegion. Static credentials
// are used when both keys are set; otherwise the default provider chain
// applies.
func NewSESSender(ctx context.Context, cfg Config) (*SESSender, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.AWSRegion)}
	if cfg.AWSAccessKeyID != "" && cfg.AWSSecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AWSAccessKeyID,
			cfg.AWSSecretAccessKey,
			"",
		)))
	}
	awsCfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("mail: load aws config: %w", err)
	}
	client := sesv2.NewFromConfig(awsCfg, func(o *sesv2.Options) {
		if cfg.SESEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.SESEndpoint)
		}
	})
	return NewSESSenderWithClient(client, cfg.From, cfg.ReplyTo), nil
}

func NewSESSenderWithClient(client SESAPI, from, replyTo string) *SESSender {
	return &SESSender{client: client, from: from, replyTo: replyTo}
}

func (s *SESSender) Send(ctx context.Context, msg dto.EmailMessage) (id string, err error) {
	defer func() { metrics.EmailsSentTotal.WithLabelValues(ProviderSES, metrics.Result(err)).Inc() }()

	body := &types.Body{}
	if msg.HTML != "" {
		body.Html = &types.Content{Data: aws.String(msg.HTML), Charset: aws.String("UTF-8")}
	}
	if msg.Text != "" {
		body.Text = &types.Content{Data: aws.String(msg.Text), Charset: aws.String("UTF-8")}
	}
	in := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(firstNonEmpty(msg.From, s.from)),
		Destination:      &types.Destination{ToAddresses: []string{msg.To}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
				Body:    body,
			},
		},
	}
	if replyTo := firstNonEmpty(msg.ReplyTo, s.replyTo); replyTo != "" {
		in.ReplyToAddresses = []string{replyTo}
	}

	out, err := s.client.SendEmail(ctx, in)
	if err != nil {
		return "", fmt.Errorf("%w: ses: %v", ErrSend, err)
	}
	return aws.ToString(out.MessageId), nil
}
