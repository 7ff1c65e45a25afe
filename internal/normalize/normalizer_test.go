package normalize

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"

	"exodus/internal/flatten"
	"exodus/internal/identity"
	"exodus/internal/source"
	"exodus/pkg/platform/sentinel"
)

// fakeRegistrar records registered kinds and can be told to fail.
type fakeRegistrar struct {
	calls   []map[string]flatten.Kind
	failing bool
}

func (f *fakeRegistrar) Register(_ context.Context, kinds map[string]flatten.Kind) error {
	f.calls = append(f.calls, kinds)
	if f.failing {
		return errors.New("registration down")
	}
	return nil
}

// fakeFetcher serves canned nested documents per user id.
type fakeFetcher struct {
	docs map[string]map[string]any
	err  error
}

func (f *fakeFetcher) FetchCustomAttributes(_ context.Context, userID string, _ source.AttributeStoreKind) (map[string]any, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.docs[userID], nil
}

type NormalizerSuite struct {
	suite.Suite
	registrar *fakeRegistrar
}

func TestNormalizerSuite(t *testing.T) {
	suite.Run(t, new(NormalizerSuite))
}

func (s *NormalizerSuite) SetupTest() {
	s.registrar = &fakeRegistrar{}
}

func (s *NormalizerSuite) newNormalizer(opts ...Option) *Normalizer {
	n, err := New(s.registrar, opts...)
	s.Require().NoError(err)
	return n
}

func (s *NormalizerSuite) TestLoginIDDerivation() {
	ctx := context.Background()
	n := s.newNormalizer()

	s.Run("email wins", func() {
		ident, err := n.Normalize(ctx, source.Record{
			"email":       "user@example.com",
			"phoneNumber": "+15550001111",
		})
		s.Require().NoError(err)
		s.Equal("user@example.com", ident.LoginID)
	})

	s.Run("phone when email absent", func() {
		ident, err := n.Normalize(ctx, source.Record{"phoneNumber": "+15550001111"})
		s.Require().NoError(err)
		s.Equal("+15550001111", ident.LoginID)
	})

	s.Run("anonymous ids are synthesized in strict sequence", func() {
		for i := 0; i < 3; i++ {
			ident, err := n.Normalize(ctx, source.Record{})
			s.Require().NoError(err)
			s.Equal(fmt.Sprintf("anon_user_%d@anonymous.com", i), ident.LoginID)
		}
	})

	s.Run("a record with email never consumes the counter", func() {
		before := n.anon.next
		_, err := n.Normalize(ctx, source.Record{"email": "other@example.com"})
		s.Require().NoError(err)
		s.Equal(before, n.anon.next)
	})
}

func (s *NormalizerSuite) TestVerificationFlags() {
	ctx := context.Background()
	n := s.newNormalizer()

	s.Run("phone verification is dropped when phone is absent", func() {
		ident, err := n.Normalize(ctx, source.Record{
			"email":         "user@example.com",
			"phoneVerified": true,
		})
		s.Require().NoError(err)
		s.False(ident.VerifiedPhone)
	})

	s.Run("phone verification is kept when phone is present", func() {
		ident, err := n.Normalize(ctx, source.Record{
			"phoneNumber":   "+15550001111",
			"phoneVerified": true,
			"emailVerified": true,
		})
		s.Require().NoError(err)
		s.True(ident.VerifiedPhone)
		s.True(ident.VerifiedEmail)
	})
}

func (s *NormalizerSuite) TestDefaultCustomAttributes() {
	ctx := context.Background()
	n := s.newNormalizer()

	s.Run("freshly-migrated marker is always set", func() {
		ident, err := n.Normalize(ctx, source.Record{"email": "a@example.com"})
		s.Require().NoError(err)
		s.Equal(true, ident.CustomAttributes[identity.AttrFreshlyMigrated])
	})

	s.Run("source user id is recorded when present", func() {
		ident, err := n.Normalize(ctx, source.Record{"email": "a@example.com", "localId": "uid-1"})
		s.Require().NoError(err)
		s.Equal("uid-1", ident.CustomAttributes[identity.AttrSourceUserID])
	})

	s.Run("no source user id key without a stable id", func() {
		ident, err := n.Normalize(ctx, source.Record{"email": "a@example.com"})
		s.Require().NoError(err)
		s.NotContains(ident.CustomAttributes, identity.AttrSourceUserID)
	})
}

func (s *NormalizerSuite) TestAttributeImport() {
	ctx := context.Background()
	record := source.Record{"email": "a@example.com", "localId": "uid-1"}

	s.Run("fetched attributes are flattened, registered, and merged", func() {
		fetcher := &fakeFetcher{docs: map[string]map[string]any{
			"uid-1": {
				"billing": map[string]any{"plan": "pro", "seats": 4},
				"active":  true,
			},
		}}
		n := s.newNormalizer(WithAttributeSource(fetcher, source.AttributeStoreDocument))

		ident, err := n.Normalize(ctx, record)
		s.Require().NoError(err)
		s.Equal("pro", ident.CustomAttributes["billing_plan"])
		s.Equal(4, ident.CustomAttributes["billing_seats"])
		s.Equal(true, ident.CustomAttributes["active"])

		s.Require().Len(s.registrar.calls, 1)
		s.Equal(flatten.KindBoolean, s.registrar.calls[0]["active"])
		s.Equal(flatten.KindNumber, s.registrar.calls[0]["billing_seats"])
		s.Equal(flatten.KindString, s.registrar.calls[0]["billing_plan"])
	})

	s.Run("fetched values win on collision except the migration marker", func() {
		fetcher := &fakeFetcher{docs: map[string]map[string]any{
			"uid-1": {
				identity.AttrFreshlyMigrated: false,
				identity.AttrSourceUserID:    "spoofed",
			},
		}}
		n := s.newNormalizer(WithAttributeSource(fetcher, source.AttributeStoreTree))

		ident, err := n.Normalize(ctx, record)
		s.Require().NoError(err)
		s.Equal(true, ident.CustomAttributes[identity.AttrFreshlyMigrated])
		s.Equal("spoofed", ident.CustomAttributes[identity.AttrSourceUserID])
	})

	s.Run("registration failure is degraded, not fatal", func() {
		s.registrar.failing = true
		defer func() { s.registrar.failing = false }()

		fetcher := &fakeFetcher{docs: map[string]map[string]any{
			"uid-1": {"tier": "gold"},
		}}
		n := s.newNormalizer(WithAttributeSource(fetcher, source.AttributeStoreDocument))

		ident, err := n.Normalize(ctx, record)
		s.Require().NoError(err)
		s.Equal("gold", ident.CustomAttributes["tier"])
	})

	s.Run("fetch failure is a tagged failure, no partial identity", func() {
		fetcher := &fakeFetcher{err: fmt.Errorf("token rejected: %w", sentinel.ErrUnauthorized)}
		n := s.newNormalizer(WithAttributeSource(fetcher, source.AttributeStoreDocument))

		_, err := n.Normalize(ctx, record)
		s.Require().Error(err)

		var failure *Failure
		s.Require().ErrorAs(err, &failure)
		s.Equal("a@example.com", failure.LoginID)
		s.ErrorIs(err, sentinel.ErrUnauthorized)
	})

	s.Run("no fetch without a stable id", func() {
		fetcher := &fakeFetcher{err: errors.New("should not be called")}
		n := s.newNormalizer(WithAttributeSource(fetcher, source.AttributeStoreDocument))

		_, err := n.Normalize(ctx, source.Record{"email": "b@example.com"})
		s.NoError(err)
	})
}
