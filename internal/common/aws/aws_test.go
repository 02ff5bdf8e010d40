package aws

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSNS struct {
	input *sns.PublishInput
	err   error
}

func (f *fakeSNS) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sns.PublishOutput{MessageId: aws.String("msg-1")}, nil
}

type fakeSES struct {
	input *ses.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &ses.SendEmailOutput{MessageId: aws.String("mail-1")}, nil
}

func TestSNSClient_Publish(t *testing.T) {
	api := &fakeSNS{}
	client := NewSNSClientWithAPI(api, "arn:aws:sns:us-east-1:123:support")

	id, err := client.Publish(context.Background(), "subject", "body", map[string]string{"attemptId": "a-1"})
	require.NoError(t, err)
	assert.Equal(t, "msg-1", id)
	assert.Equal(t, "arn:aws:sns:us-east-1:123:support", aws.ToString(api.input.TopicArn))
	assert.Equal(t, "a-1", aws.ToString(api.input.MessageAttributes["attemptId"].StringValue))

	api.err = errors.New("throttled")
	_, err = client.Publish(context.Background(), "subject", "body", nil)
	assert.Error(t, err)
}

func TestSESClient_SendText(t *testing.T) {
	api := &fakeSES{}
	client := NewSESClientWithAPI(api, "alerts@example.com")

	id, err := client.SendText(context.Background(), []string{"support@example.com"}, "subject", "body")
	require.NoError(t, err)
	assert.Equal(t, "mail-1", id)
	assert.Equal(t, "alerts@example.com", aws.ToString(api.input.Source))
	assert.Equal(t, []string{"support@example.com"}, api.input.Destination.ToAddresses)
	assert.Equal(t, "body", aws.ToString(api.input.Message.Body.Text.Data))
}
