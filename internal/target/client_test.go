package target

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/suite"

	"exodus/internal/flatten"
	"exodus/internal/identity"
	"exodus/internal/transport"
	"exodus/pkg/platform/sentinel"
)

// fakeInvoker captures outbound calls and serves canned responses.
type fakeInvoker struct {
	calls []capturedCall
	next  *transport.Response
	err   error
}

type capturedCall struct {
	method  string
	url     string
	headers map[string]string
	body    []byte
}

func (f *fakeInvoker) Invoke(_ context.Context, method, url string, headers map[string]string, body []byte) (*transport.Response, error) {
	f.calls = append(f.calls, capturedCall{method: method, url: url, headers: headers, body: body})
	if f.err != nil {
		return nil, f.err
	}
	if f.next != nil {
		return f.next, nil
	}
	return &transport.Response{StatusCode: http.StatusOK}, nil
}

type ClientSuite struct {
	suite.Suite
	invoker *fakeInvoker
	client  *Client
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientSuite))
}

func (s *ClientSuite) SetupTest() {
	s.invoker = &fakeInvoker{}

	var err error
	s.client, err = New("https://api.example.com", "proj", "key", s.invoker)
	s.Require().NoError(err)
}

func (s *ClientSuite) lastBody() map[string]any {
	s.Require().NotEmpty(s.invoker.calls)
	var body map[string]any
	s.Require().NoError(json.Unmarshal(s.invoker.calls[len(s.invoker.calls)-1].body, &body))
	return body
}

func (s *ClientSuite) TestNew() {
	_, err := New("https://api.example.com", "proj", "key", nil)
	s.Error(err)
}

func (s *ClientSuite) TestAuthorizationHeader() {
	s.Require().NoError(s.client.Activate(context.Background(), "user@example.com"))

	call := s.invoker.calls[0]
	s.Equal(http.MethodPost, call.method)
	s.Equal("https://api.example.com/v1/mgmt/user/activate", call.url)
	s.Equal("Bearer proj:key", call.headers["Authorization"])
	s.Equal("application/json", call.headers["Content-Type"])
}

func (s *ClientSuite) TestInviteBatch() {
	s.Run("hashed credential rides along with the hash params", func() {
		ident := identity.Identity{
			LoginID:       "user@example.com",
			Email:         "user@example.com",
			VerifiedEmail: true,
			CustomAttributes: map[string]any{
				identity.AttrFreshlyMigrated: true,
			},
			Credential: identity.HashedPassword{
				Hash: "h",
				Salt: "s",
				Params: identity.HashParams{
					Algorithm:     "SCRYPT",
					SignerKey:     "signer",
					SaltSeparator: "Bw==",
					Rounds:        8,
					MemCost:       14,
				},
			},
		}

		err := s.client.InviteBatch(context.Background(), []identity.Identity{ident}, "https://localhost", false, false)
		s.Require().NoError(err)

		body := s.lastBody()
		s.Equal("https://localhost", body["inviteUrl"])
		s.Equal(false, body["sendMail"])
		s.Equal(false, body["sendSMS"])

		users := body["users"].([]any)
		s.Require().Len(users, 1)
		user := users[0].(map[string]any)
		s.Equal("user@example.com", user["loginId"])
		s.Equal(true, user["verifiedEmail"])

		hashed := user["password"].(map[string]any)["hashed"].(map[string]any)
		s.Equal("h", hashed["hash"])
		s.Equal("s", hashed["salt"])
		s.Equal("signer", hashed["signerKey"])
		s.Equal("Bw==", hashed["saltSeparator"])
		s.Equal(float64(8), hashed["rounds"])
		s.Equal(float64(14), hashed["memory"])
	})

	s.Run("placeholder credential is sent as cleartext", func() {
		ident := identity.Identity{
			LoginID:    "anon_user_0@anonymous.com",
			Credential: identity.PlaceholderPassword{Cleartext: "pw"},
		}
		s.Require().NoError(s.client.InviteBatch(context.Background(), []identity.Identity{ident}, "https://localhost", false, false))

		user := s.lastBody()["users"].([]any)[0].(map[string]any)
		s.Equal("pw", user["password"].(map[string]any)["cleartext"])
	})

	s.Run("no credential means no password key", func() {
		ident := identity.Identity{LoginID: "user2@example.com"}
		s.Require().NoError(s.client.InviteBatch(context.Background(), []identity.Identity{ident}, "https://localhost", false, false))

		user := s.lastBody()["users"].([]any)[0].(map[string]any)
		s.NotContains(user, "password")
	})
}

func (s *ClientSuite) TestRegisterAttributes() {
	defs := []AttributeDefinition{
		DefinitionFor("active", flatten.KindBoolean),
		DefinitionFor("age", flatten.KindNumber),
		DefinitionFor("tier", flatten.KindString),
	}
	s.Require().NoError(s.client.RegisterAttributes(context.Background(), defs))

	call := s.invoker.calls[0]
	s.Equal("https://api.example.com/v1/mgmt/user/customattribute/create", call.url)

	attrs := s.lastBody()["attributes"].([]any)
	s.Require().Len(attrs, 3)
	first := attrs[0].(map[string]any)
	s.Equal("active", first["name"])
	s.Equal(float64(typeCodeBoolean), first["type"])
}

func (s *ClientSuite) TestErrorMapping() {
	s.Run("401 maps to unauthorized with the provider message", func() {
		s.invoker.next = &transport.Response{
			StatusCode: http.StatusUnauthorized,
			Body:       []byte(`{"message":"bad management key"}`),
		}
		err := s.client.Activate(context.Background(), "user@example.com")
		s.Require().Error(err)
		s.ErrorIs(err, sentinel.ErrUnauthorized)
		s.Contains(err.Error(), "bad management key")
	})

	s.Run("other 4xx keeps the provider message", func() {
		s.invoker.next = &transport.Response{
			StatusCode: http.StatusBadRequest,
			Body:       []byte(`{"error":"duplicate login id"}`),
		}
		err := s.client.Deactivate(context.Background(), "user@example.com")
		s.Require().Error(err)
		s.Contains(err.Error(), "status 400")
		s.Contains(err.Error(), "duplicate login id")
	})

	s.Run("transport errors pass through", func() {
		s.invoker.err = sentinel.ErrUnavailable
		err := s.client.Activate(context.Background(), "user@example.com")
		s.ErrorIs(err, sentinel.ErrUnavailable)
	})
}
