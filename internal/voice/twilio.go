package voice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twilio/twilio-go"
	twilioclient "github.com/twilio/twilio-go/client"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"tweet_monitor/internal/domain"
)

type TwilioConfig struct {
	AccountSID        string
	AuthToken         string
	FromNumber        string
	StatusCallbackURL string
	MaxLen            int
	Timeout           time.Duration
}

// callCreator is the subset of the Twilio REST API used here.
type callCreator interface {
	CreateCall(params *twilioApi.CreateCallParams) (*twilioApi.ApiV2010Call, error)
}

// Twilio places international calls that read a TwiML script.
type Twilio struct {
	api    callCreator
	cfg    TwilioConfig
	logger *slog.Logger
}

func NewTwilio(cfg TwilioConfig, logger *slog.Logger) *Twilio {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}
	return newTwilio(client.Api, cfg, logger)
}

func newTwilio(api callCreator, cfg TwilioConfig, logger *slog.Logger) *Twilio {
	if cfg.MaxLen == 0 {
		cfg.MaxLen = DefaultMaxContentLen
	}
	return &Twilio{
		api:    api,
		cfg:    cfg,
		logger: logger.With("provider", domain.ProviderInternational),
	}
}

func (t *Twilio) Provider() domain.CallProvider { return domain.ProviderInternational }

// PlaceCall respects ctx only before dispatch; the SDK call itself is bounded
// by the client timeout.
func (t *Twilio) PlaceCall(ctx context.Context, req domain.CallRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	params := &twilioApi.CreateCallParams{}
	params.SetTo(req.To)
	params.SetFrom(t.cfg.FromNumber)
	params.SetTwiml(BuildTwiML(req.AccountName, req.Content, t.cfg.MaxLen))
	if t.cfg.StatusCallbackURL != "" {
		params.SetStatusCallback(t.cfg.StatusCallbackURL)
		params.SetStatusCallbackMethod("POST")
	}

	call, err := t.api.CreateCall(params)
	if err != nil {
		var restErr *twilioclient.TwilioRestError
		if errors.As(err, &restErr) {
			return "", &ProviderError{
				Provider:   domain.ProviderInternational,
				StatusCode: restErr.Status,
				Code:       fmt.Sprint(restErr.Code),
				Message:    restErr.Message,
			}
		}
		return "", fmt.Errorf("create call: %w", err)
	}
	if call == nil || call.Sid == nil || *call.Sid == "" {
		return "", &ProviderError{Provider: domain.ProviderInternational, Message: "empty call sid"}
	}

	t.logger.Info("call initiated", "call_sid", *call.Sid)
	return *call.Sid, nil
}

// BuildTwiML renders the spoken notification script.
func BuildTwiML(accountName, content string, maxLen int) string {
	return fmt.Sprintf(
		`<Response><Say language="en-US">Hello, this is a Twitter monitor notification. %s has posted a new tweet: %s</Say>`+
			`<Pause length="1"/><Say language="en-US">Thank you for using our service. Goodbye.</Say></Response>`,
		SanitizeMarkup(accountName, 64),
		SanitizeMarkup(content, maxLen),
	)
}
