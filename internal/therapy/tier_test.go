package therapy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveTier(t *testing.T) {
	tests := []struct {
		name          string
		authenticated bool
		subscribed    bool
		userMessages  int
		want          Tier
	}{
		{"anonymous first message", false, false, 1, TierAnonymous},
		{"anonymous at guest limit", false, false, 8, TierAnonymous},
		{"anonymous past guest limit", false, false, 9, TierAnonymousLimited},
		{"anonymous far past guest limit", false, false, 30, TierAnonymousLimited},
		{"authenticated under free limit", true, false, 14, TierFull},
		{"authenticated at free limit", true, false, 15, TierAuthenticatedLimited},
		{"authenticated past free limit", true, false, 40, TierAuthenticatedLimited},
		{"subscribed past free limit", true, true, 40, TierFull},
		{"subscribed first message", true, true, 1, TierFull},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveTier(tt.authenticated, tt.subscribed, tt.userMessages)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTierLimited(t *testing.T) {
	assert.False(t, TierAnonymous.Limited())
	assert.False(t, TierFull.Limited())
	assert.True(t, TierAnonymousLimited.Limited())
	assert.True(t, TierAuthenticatedLimited.Limited())
}

func TestGatingMessage(t *testing.T) {
	assert.Empty(t, TierAnonymous.GatingMessage())
	assert.Empty(t, TierFull.GatingMessage())
	assert.Contains(t, TierAnonymousLimited.GatingMessage(), "sign in")
	assert.Contains(t, TierAuthenticatedLimited.GatingMessage(), "subscribe")
}
