// Package target talks to the target identity platform's management API.
// All calls go through the resilient transport; authentication is a bearer
// pair of project id and management key.
package target

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"exodus/internal/flatten"
	"exodus/internal/identity"
	"exodus/internal/transport"
	"exodus/pkg/platform/sentinel"
)

// Invoker is the slice of the resilient transport this client needs.
type Invoker interface {
	Invoke(ctx context.Context, method, url string, headers map[string]string, body []byte) (*transport.Response, error)
}

// AttributeDefinition describes one custom attribute to declare in the
// target schema before values referencing it are written.
type AttributeDefinition struct {
	Name         string   `json:"name"`
	Type         int      `json:"type"`
	DisplayName  string   `json:"displayName"`
	Editable     bool     `json:"editable"`
	DefaultValue any      `json:"defaultValue,omitempty"`
	Permissions  []string `json:"viewPermissions,omitempty"`
}

// Attribute type codes understood by the management API.
const (
	typeCodeString  = 1
	typeCodeNumber  = 2
	typeCodeBoolean = 3
)

// DefinitionFor builds the schema definition for a named attribute of the
// given inferred kind.
func DefinitionFor(name string, kind flatten.Kind) AttributeDefinition {
	def := AttributeDefinition{
		Name:        name,
		DisplayName: name,
		Editable:    true,
	}
	switch kind {
	case flatten.KindBoolean:
		def.Type = typeCodeBoolean
	case flatten.KindNumber:
		def.Type = typeCodeNumber
	default:
		def.Type = typeCodeString
	}
	return def
}

// Client is the management API client.
type Client struct {
	baseURL       string
	projectID     string
	managementKey string
	invoker       Invoker
	logger        *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New builds a Client. The invoker is required; nil invokers fail fast here
// rather than mid-run.
func New(baseURL, projectID, managementKey string, invoker Invoker, opts ...Option) (*Client, error) {
	if invoker == nil {
		return nil, fmt.Errorf("transport invoker is required")
	}
	c := &Client{
		baseURL:       baseURL,
		projectID:     projectID,
		managementKey: managementKey,
		invoker:       invoker,
		logger:        slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// InviteBatch creates the given identities in one batched call, without
// sending invite mail or SMS. Credentials ride along when present.
func (c *Client) InviteBatch(ctx context.Context, identities []identity.Identity, inviteURL string, sendMail, sendSMS bool) error {
	users := make([]map[string]any, 0, len(identities))
	for _, ident := range identities {
		users = append(users, userPayload(ident))
	}

	body := map[string]any{
		"users":     users,
		"invite":    true,
		"inviteUrl": inviteURL,
		"sendMail":  sendMail,
		"sendSMS":   sendSMS,
	}
	return c.post(ctx, "/v1/mgmt/user/create/batch", body)
}

// Activate enables the login id in the target platform.
func (c *Client) Activate(ctx context.Context, loginID string) error {
	return c.post(ctx, "/v1/mgmt/user/activate", map[string]any{"loginId": loginID})
}

// Deactivate disables the login id in the target platform.
func (c *Client) Deactivate(ctx context.Context, loginID string) error {
	return c.post(ctx, "/v1/mgmt/user/deactivate", map[string]any{"loginId": loginID})
}

// RegisterAttributes declares the given custom attributes in one batched
// call. The platform treats re-registration of an existing attribute as a
// no-op, so callers may safely re-issue definitions.
func (c *Client) RegisterAttributes(ctx context.Context, definitions []AttributeDefinition) error {
	return c.post(ctx, "/v1/mgmt/user/customattribute/create", map[string]any{
		"attributes": definitions,
	})
}

func (c *Client) post(ctx context.Context, path string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode payload for %s: %w", path, err)
	}

	headers := map[string]string{
		"Authorization": fmt.Sprintf("Bearer %s:%s", c.projectID, c.managementKey),
		"Content-Type":  "application/json",
	}

	resp, err := c.invoker.Invoke(ctx, http.MethodPost, c.baseURL+path, headers, payload)
	if err != nil {
		return err
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%s: %w: %s", path, sentinel.ErrUnauthorized, providerMessage(resp.Body))
	default:
		return fmt.Errorf("%s: status %d: %s", path, resp.StatusCode, providerMessage(resp.Body))
	}
}

// userPayload maps a canonical identity onto the management API's user
// shape. The credential switch is exhaustive over the closed variant set.
func userPayload(ident identity.Identity) map[string]any {
	user := map[string]any{
		"loginId":          ident.LoginID,
		"email":            ident.Email,
		"phone":            ident.Phone,
		"displayName":      ident.DisplayName,
		"givenName":        ident.GivenName,
		"familyName":       ident.FamilyName,
		"picture":          ident.Picture,
		"verifiedEmail":    ident.VerifiedEmail,
		"verifiedPhone":    ident.VerifiedPhone,
		"customAttributes": ident.CustomAttributes,
	}

	switch cred := ident.Credential.(type) {
	case identity.HashedPassword:
		user["password"] = map[string]any{
			"hashed": map[string]any{
				"algorithm":     cred.Params.Algorithm,
				"hash":          cred.Hash,
				"salt":          cred.Salt,
				"saltSeparator": cred.Params.SaltSeparator,
				"signerKey":     cred.Params.SignerKey,
				"memory":        cred.Params.MemCost,
				"rounds":        cred.Params.Rounds,
			},
		}
	case identity.PlaceholderPassword:
		user["password"] = map[string]any{"cleartext": cred.Cleartext}
	case nil:
		// Created without a password.
	}

	return user
}

func providerMessage(body []byte) string {
	var parsed struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Message != "" {
			return parsed.Message
		}
		if parsed.Error != "" {
			return parsed.Error
		}
	}
	return string(body)
}
