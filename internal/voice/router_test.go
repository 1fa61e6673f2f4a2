package voice

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tweet_monitor/internal/domain"
)

type stubCaller struct {
	provider domain.CallProvider
}

func (s stubCaller) Provider() domain.CallProvider { return s.provider }

func (s stubCaller) PlaceCall(context.Context, domain.CallRequest) (string, error) {
	return "stub", nil
}

var cnPrefixes = []string{"+86", "86"}

func TestRegionalRouter_RoutesByPrefix(t *testing.T) {
	domestic := stubCaller{provider: domain.ProviderDomestic}
	intl := stubCaller{provider: domain.ProviderInternational}
	router := NewRegionalRouter(cnPrefixes, domestic, intl)

	c, err := router.Route("+8613800000000")
	require.NoError(t, err)
	assert.Equal(t, domain.ProviderDomestic, c.Provider())

	c, err = router.Route("8613800000000")
	require.NoError(t, err)
	assert.Equal(t, domain.ProviderDomestic, c.Provider())

	c, err = router.Route("+447911123456")
	require.NoError(t, err)
	assert.Equal(t, domain.ProviderInternational, c.Provider())
}

func TestRegionalRouter_DisabledProvider(t *testing.T) {
	router := NewRegionalRouter(cnPrefixes, stubCaller{provider: domain.ProviderDomestic}, nil)

	_, err := router.Route("+447911123456")
	assert.ErrorIs(t, err, domain.ErrNoRoute)
	assert.True(t, router.Enabled())

	// A domestic number never falls through to the international provider.
	router = NewRegionalRouter(cnPrefixes, nil, stubCaller{provider: domain.ProviderInternational})
	_, err = router.Route("+8613800000000")
	assert.ErrorIs(t, err, domain.ErrNoRoute)

	assert.False(t, NewRegionalRouter(cnPrefixes, nil, nil).Enabled())
}

func TestRouter_ThirdProvider(t *testing.T) {
	uk := stubCaller{provider: "uk_voice"}
	router := NewRouter(
		Route{Name: "uk", Match: HasPrefix([]string{"+44"}), Caller: uk},
		Route{Name: "rest", Match: func(string) bool { return true }, Caller: stubCaller{provider: domain.ProviderInternational}},
	)

	c, err := router.Route("+447911123456")
	require.NoError(t, err)
	assert.Equal(t, domain.CallProvider("uk_voice"), c.Provider())
}

func TestStripPrefix(t *testing.T) {
	assert.Equal(t, "13800000000", StripPrefix("+8613800000000", cnPrefixes))
	assert.Equal(t, "13800000000", StripPrefix("8613800000000", cnPrefixes))
	assert.Equal(t, "+447911123456", StripPrefix("+447911123456", cnPrefixes))
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "Tom and Jerry b", SanitizeMarkup("Tom & Jerry <b>", 280))
	assert.Equal(t, "abc", SanitizeMarkup("abcdef", 3))
	assert.Equal(t, "你好世", SanitizeMarkup("你好世界", 3))
	assert.Equal(t, "hi name there", SanitizeTemplate("hi ${name}\nthere", 280))
}
