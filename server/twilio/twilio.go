package twilio

import (
	"fmt"

	"github.com/Daskott/famtree/shared"
	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

type ClientWrapper struct {
	client *twilio.RestClient
	config shared.TwilioConfig
}

func NewClient(config shared.TwilioConfig) (*ClientWrapper, error) {
	if config.AccountSid == "" || config.AuthToken == "" || config.MessagingServiceSid == "" {
		return nil, fmt.Errorf("twilio accountSid, authToken & messagingServiceSid are required")
	}

	client := twilio.NewRestClientWithParams(twilio.RestClientParams{
		Username: config.AccountSid,
		Password: config.AuthToken,
	})

	return &ClientWrapper{client: client, config: config}, nil
}

// SendMessage sends msg as an SMS to the E.164 number 'to'.
func (cw *ClientWrapper) SendMessage(to, msg string) error {
	params := &openapi.CreateMessageParams{}
	params.SetMessagingServiceSid(cw.config.MessagingServiceSid)
	params.SetTo(to)
	params.SetBody(msg)

	resp, err := cw.client.ApiV2010.CreateMessage(params)
	if err != nil {
		return err
	}

	if resp.ErrorMessage != nil && *resp.ErrorMessage != "" {
		return fmt.Errorf("twilio: %v", *resp.ErrorMessage)
	}

	return nil
}
