package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/testnet-portal/internal/config"
	"github.com/spec-kit/testnet-portal/internal/domain"
)

// codeInvalidUser is the JSON-RPC error code the provider returns when a
// syntactically valid token does not belong to a known user.
const codeInvalidUser = -32603

// Client resolves provider-side metadata for identity tokens.
type Client struct {
	baseURL   string
	secretKey string
	verifier  *Verifier
	http      *http.Client
	logger    *zap.Logger
}

// NewClient builds a provider client from configuration.
func NewClient(cfg config.IdentityConfig, logger *zap.Logger) *Client {
	timeout := cfg.RequestTimeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		secretKey: cfg.SecretKey,
		verifier:  NewVerifier(cfg.TokenSecret, cfg.Audience),
		http:      &http.Client{Timeout: timeout},
		logger:    logger,
	}
}

// Verifier exposes the token verifier.
func (c *Client) Verifier() *Verifier {
	return c.verifier
}

type metadataResponse struct {
	Data *struct {
		Issuer        string `json:"issuer"`
		PublicAddress string `json:"public_address"`
		Email         string `json:"email"`
	} `json:"data"`
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
	Status    string `json:"status"`
	Error     *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Metadata verifies token and fetches the provider's record for its issuer.
func (c *Client) Metadata(ctx context.Context, token string) (*domain.IdentityMetadata, error) {
	claims, err := c.verifier.Verify(token)
	if err != nil {
		return nil, err
	}
	if c.baseURL == "" {
		return &domain.IdentityMetadata{
			Issuer:        claims.Issuer,
			PublicAddress: claims.PublicAddress,
			Email:         claims.Email,
		}, nil
	}

	endpoint := c.baseURL + "/v1/admin/auth/user/get?" + url.Values{"issuer": {claims.Issuer}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, domain.WrapLocalError("build identity request", err)
	}
	req.Header.Set("X-Magic-Secret-Key", c.secretKey)
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return nil, domain.WrapLocalError("identity metadata request", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, domain.WrapLocalError("read identity metadata", err)
	}

	var decoded metadataResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, domain.WrapLocalError("decode identity metadata", err)
	}
	if decoded.Error != nil && decoded.Error.Code == codeInvalidUser {
		c.logger.Debug("identity provider rejected issuer", zap.String("issuer", claims.Issuer))
		return nil, fmt.Errorf("%w: %s", domain.ErrUnauthenticated, decoded.Error.Message)
	}
	if res.StatusCode != http.StatusOK || decoded.Data == nil {
		msg := decoded.Message
		if msg == "" {
			msg = http.StatusText(res.StatusCode)
		}
		return nil, &domain.LocalError{
			Message:    fmt.Sprintf("identity metadata: %s", msg),
			StatusCode: res.StatusCode,
		}
	}

	return &domain.IdentityMetadata{
		Issuer:        decoded.Data.Issuer,
		PublicAddress: decoded.Data.PublicAddress,
		Email:         decoded.Data.Email,
	}, nil
}
