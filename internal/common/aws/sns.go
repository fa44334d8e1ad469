// Package aws wraps the SNS client used for farmer SMS notifications.
package aws

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

const (
	smsTypeAttribute     = "AWS.SNS.SMS.SMSType"
	senderIDAttribute    = "AWS.SNS.SMS.SenderID"
	smsTypeTransactional = "Transactional"
)

// SNSService is the part of the SNS API the client needs.
type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type SNSClient struct {
	client   SNSService
	senderID string
}

func NewSNSClient(ctx context.Context, region, senderID string) (*SNSClient, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return NewSNSClientWithService(sns.NewFromConfig(cfg), senderID), nil
}

func NewSNSClientWithService(svc SNSService, senderID string) *SNSClient {
	return &SNSClient{client: svc, senderID: senderID}
}

// SendSMS publishes a transactional SMS and returns the SNS message id.
func (s *SNSClient) SendSMS(ctx context.Context, phone, message string) (string, error) {
	if phone == "" {
		return "", errors.New("phone number is required")
	}

	attrs := map[string]types.MessageAttributeValue{
		smsTypeAttribute: {
			DataType:    aws.String("String"),
			StringValue: aws.String(smsTypeTransactional),
		},
	}
	if s.senderID != "" {
		attrs[senderIDAttribute] = types.MessageAttributeValue{
			DataType:    aws.String("String"),
			StringValue: aws.String(s.senderID),
		}
	}

	out, err := s.client.Publish(ctx, &sns.PublishInput{
		PhoneNumber:       aws.String(phone),
		Message:           aws.String(message),
		MessageAttributes: attrs,
	})
	if err != nil {
		return "", fmt.Errorf("sns publish: %w", err)
	}
	return aws.ToString(out.MessageId), nil
}
