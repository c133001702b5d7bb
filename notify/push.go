package notify

import (
	"context"

	expo "github.com/oliveroneill/exponent-server-sdk-golang/sdk"
	"go.uber.org/zap"
)

// Sender delivers one push message to one device token.
type Sender interface {
	Send(ctx context.Context, token, title, body string, data map[string]string) error
}

// ExpoSender pushes through the Expo push service.
type ExpoSender struct {
	client *expo.PushClient
	logger *zap.Logger
}

// NewExpoSender creates an Expo-backed sender.
func NewExpoSender(logger *zap.Logger) *ExpoSender {
	return &ExpoSender{client: expo.NewPushClient(nil), logger: logger}
}

func (s *ExpoSender) Send(_ context.Context, token, title, body string, data map[string]string) error {
	pushToken, err := expo.NewExponentPushToken(token)
	if err != nil {
		return err
	}
	resp, err := s.client.Publish(&expo.PushMessage{
		To:       []expo.ExponentPushToken{pushToken},
		Title:    title,
		Body:     body,
		Data:     data,
		Sound:    "default",
		Priority: expo.DefaultPriority,
	})
	if err != nil {
		return err
	}
	return resp.ValidateResponse()
}

// NopSender drops all pushes; used when push delivery is disabled.
type NopSender struct{}

func (NopSender) Send(context.Context, string, string, string, map[string]string) error {
	return nil
}
