package voice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	openapi "github.com/alibabacloud-go/darabonba-openapi/v2/client"
	dyvms "github.com/alibabacloud-go/dyvmsapi-20170525/v4/client"
	"github.com/alibabacloud-go/tea/tea"

	"tweet_monitor/internal/domain"
)

const (
	domesticCodeOK          = "OK"
	DefaultDomesticEndpoint = "dyvmsapi.aliyuncs.com"
)

type DomesticConfig struct {
	Endpoint     string
	AccessKey    string
	AccessSecret string
	CallerNumber string
	TemplateID   string
	Prefixes     []string
	MaxLen       int
	Timeout      time.Duration
}

// ttsCaller is the subset of the Dyvms API used here.
type ttsCaller interface {
	SingleCallByTts(request *dyvms.SingleCallByTtsRequest) (*dyvms.SingleCallByTtsResponse, error)
}

// Domestic places template-driven TTS calls for mainland numbers.
type Domestic struct {
	api    ttsCaller
	cfg    DomesticConfig
	logger *slog.Logger
	now    func() time.Time
}

func NewDomestic(cfg DomesticConfig, logger *slog.Logger) (*Domestic, error) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultDomesticEndpoint
	}
	apiCfg := &openapi.Config{
		AccessKeyId:     tea.String(cfg.AccessKey),
		AccessKeySecret: tea.String(cfg.AccessSecret),
		Endpoint:        tea.String(cfg.Endpoint),
	}
	if cfg.Timeout > 0 {
		ms := int(cfg.Timeout.Milliseconds())
		apiCfg.ConnectTimeout = tea.Int(ms)
		apiCfg.ReadTimeout = tea.Int(ms)
	}

	client, err := dyvms.NewClient(apiCfg)
	if err != nil {
		return nil, fmt.Errorf("create dyvms client: %w", err)
	}
	return newDomestic(client, cfg, logger), nil
}

func newDomestic(api ttsCaller, cfg DomesticConfig, logger *slog.Logger) *Domestic {
	if cfg.MaxLen == 0 {
		cfg.MaxLen = DefaultMaxContentLen
	}
	return &Domestic{
		api:    api,
		cfg:    cfg,
		logger: logger.With("provider", domain.ProviderDomestic),
		now:    time.Now,
	}
}

func (d *Domestic) Provider() domain.CallProvider { return domain.ProviderDomestic }

// PlaceCall respects ctx only before dispatch; the SDK call itself is bounded
// by the client timeouts.
func (d *Domestic) PlaceCall(ctx context.Context, req domain.CallRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	content := SanitizeTemplate(req.Content, d.cfg.MaxLen)
	account := SanitizeTemplate(req.AccountName, 64)

	params, err := json.Marshal(map[string]string{
		"account_name": account,
		"content":      fmt.Sprintf("您好，您关注的账号 %s 有新动态：%s", account, content),
	})
	if err != nil {
		return "", fmt.Errorf("marshal tts params: %w", err)
	}

	request := &dyvms.SingleCallByTtsRequest{
		CalledNumber:     tea.String(StripPrefix(req.To, d.cfg.Prefixes)),
		CalledShowNumber: tea.String(d.cfg.CallerNumber),
		TtsCode:          tea.String(d.cfg.TemplateID),
		TtsParam:         tea.String(string(params)),
		OutId:            tea.String(fmt.Sprintf("%s-%s-%d", account, req.UserID, d.now().UnixMilli())),
	}

	resp, err := d.api.SingleCallByTts(request)
	if err != nil {
		var sdkErr *tea.SDKError
		if errors.As(err, &sdkErr) {
			return "", &ProviderError{
				Provider:   domain.ProviderDomestic,
				StatusCode: tea.IntValue(sdkErr.StatusCode),
				Code:       tea.StringValue(sdkErr.Code),
				Message:    tea.StringValue(sdkErr.Message),
			}
		}
		return "", fmt.Errorf("single call by tts: %w", err)
	}
	if resp == nil || resp.Body == nil {
		return "", &ProviderError{Provider: domain.ProviderDomestic, Message: "empty response"}
	}

	body := resp.Body
	if code := tea.StringValue(body.Code); code != domesticCodeOK {
		return "", &ProviderError{
			Provider:   domain.ProviderDomestic,
			StatusCode: int(tea.Int32Value(resp.StatusCode)),
			Code:       code,
			Message:    tea.StringValue(body.Message),
		}
	}

	callID := tea.StringValue(body.CallId)
	if callID == "" {
		return "", &ProviderError{Provider: domain.ProviderDomestic, Code: domesticCodeOK, Message: "empty call id"}
	}

	d.logger.Info("call initiated", "call_id", callID, "request_id", tea.StringValue(body.RequestId))
	return callID, nil
}
