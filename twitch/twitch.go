// Package twitch looks up Twitch users through the Helix API.
package twitch

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/nicklaw5/helix/v2"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"
)

// Client holds the context for requests to the Twitch API.
type Client struct {
	helix *helix.Client
	rate  *rate.Limiter
}

// Config configures a [Client].
type Config struct {
	// ID is the application's client ID.
	ID string
	// Secret is the application's client secret, used to obtain app access
	// tokens through the client credentials grant.
	Secret string
	// HTTP is the HTTP client for performing requests. If nil, a client
	// which authorizes requests with an app access token is used.
	HTTP *http.Client
	// Rate limits requests. A zero rate means no limit.
	Rate rate.Limit
	// Burst is the burst size for Rate.
	Burst int
}

// tokenURL is the Twitch OAuth2 token endpoint.
const tokenURL = "https://id.twitch.tv/oauth2/token"

// New creates a Twitch API client. ctx is used to obtain and refresh app
// access tokens for the lifetime of the client.
func New(ctx context.Context, cfg Config) (*Client, error) {
	hc := cfg.HTTP
	if hc == nil {
		cc := clientcredentials.Config{
			ClientID:     cfg.ID,
			ClientSecret: cfg.Secret,
			TokenURL:     tokenURL,
			AuthStyle:    oauth2.AuthStyleInParams,
		}
		hc = cc.Client(ctx)
		hc.Timeout = 30 * time.Second
	}
	h, err := helix.NewClient(&helix.Options{
		ClientID:   cfg.ID,
		HTTPClient: hc,
	})
	if err != nil {
		return nil, fmt.Errorf("couldn't create Helix client: %w", err)
	}
	lim := rate.NewLimiter(rate.Inf, 1)
	if cfg.Rate > 0 {
		lim = rate.NewLimiter(cfg.Rate, max(cfg.Burst, 1))
	}
	return &Client{helix: h, rate: lim}, nil
}
