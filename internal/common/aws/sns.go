// internal/common/aws/sns.go
package aws

import (
	"context"
	"encoding/json"
	"fmt"

	"crm-decision-engine/internal/common/config"
	"crm-decision-engine/internal/common/errors"
	"crm-decision-engine/internal/common/format"
	"crm-decision-engine/internal/common/logger"
	"crm-decision-engine/internal/models"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// EscalationPublisher sends at-risk deal alerts to an SNS topic.
type EscalationPublisher struct {
	client   SNSService
	topicARN string
	logger   logger.Logger
}

// NewEscalationPublisher loads the default AWS credential chain for the configured region.
func NewEscalationPublisher(ctx context.Context, cfg config.EscalationConfig, log logger.Logger) (*EscalationPublisher, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	return NewEscalationPublisherWithClient(sns.NewFromConfig(awsCfg), cfg.TopicARN, log), nil
}

func NewEscalationPublisherWithClient(client SNSService, topicARN string, log logger.Logger) *EscalationPublisher {
	return &EscalationPublisher{
		client:   client,
		topicARN: topicARN,
		logger:   log.WithFields(map[string]interface{}{"component": "escalation"}),
	}
}

// Escalate publishes the escalation as JSON with the stage as a message attribute.
func (p *EscalationPublisher) Escalate(ctx context.Context, e models.DealEscalation) error {
	body, err := json.Marshal(e)
	if err != nil {
		return errors.NewInternalError(err)
	}

	subject := fmt.Sprintf("Deal at risk: %s (%s)", dealLabel(e.DealID), format.Title(e.Stage))
	out, err := p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: awssdk.String(p.topicARN),
		Subject:  awssdk.String(subject),
		Message:  awssdk.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"stage": {DataType: awssdk.String("String"), StringValue: awssdk.String(e.Stage)},
		},
	})
	if err != nil {
		return errors.NewNotificationSendFailedError("sns", err)
	}

	p.logger.Info("deal escalated", map[string]interface{}{
		"dealId":    e.DealID,
		"riskScore": e.RiskScore,
		"messageId": awssdk.ToString(out.MessageId),
	})
	return nil
}

func dealLabel(id string) string {
	if id == "" {
		return "unidentified deal"
	}
	return id
}
