package auth

import (
	"errors"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func newTestTokenService(t *testing.T, clock *fakeClock, ttl time.Duration) *TokenService {
	t.Helper()
	svc, err := NewTokenService("test-secret", ttl, TokenOptions{Now: clock.Now})
	if err != nil {
		t.Fatalf("new token service: %v", err)
	}
	return svc
}

func TestTokenServiceIssueAndVerify(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)}
	svc := newTestTokenService(t, clock, time.Minute)

	token, err := svc.Issue("user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	subject, err := svc.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if subject != "user-1" {
		t.Fatalf("expected subject user-1, got %q", subject)
	}
}

func TestTokenServiceExpiry(t *testing.T) {
	start := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	clock := &fakeClock{now: start}
	svc := newTestTokenService(t, clock, time.Minute)

	token, err := svc.Issue("user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	clock.now = start.Add(59 * time.Second)
	if _, err := svc.Verify(token); err != nil {
		t.Fatalf("expected token valid before ttl, got %v", err)
	}

	clock.now = start.Add(61 * time.Second)
	if _, err := svc.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken after ttl, got %v", err)
	}
}

func TestTokenServiceRejectsAlteredBytes(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)}
	svc := newTestTokenService(t, clock, time.Hour)

	token, err := svc.Issue("user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	for i := 0; i < len(token); i++ {
		altered := []byte(token)
		if altered[i] == 'A' {
			altered[i] = 'B'
		} else {
			altered[i] = 'A'
		}
		if _, err := svc.Verify(string(altered)); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("expected ErrInvalidToken for byte %d altered, got %v", i, err)
		}
	}
}

func TestTokenServiceRejectsWrongSecret(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)}
	svc := newTestTokenService(t, clock, time.Hour)
	other, err := NewTokenService("other-secret", time.Hour, TokenOptions{Now: clock.Now})
	if err != nil {
		t.Fatalf("new token service: %v", err)
	}

	token, err := other.Issue("user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := svc.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestTokenServiceRejectsOtherAlgorithms(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)}
	svc := newTestTokenService(t, clock, time.Hour)

	claims := jwt.RegisteredClaims{
		Subject:   "user-1",
		Issuer:    defaultTokenIssuer,
		ExpiresAt: jwt.NewNumericDate(clock.now.Add(time.Hour)),
		IssuedAt:  jwt.NewNumericDate(clock.now),
	}
	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign hs512: %v", err)
	}
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	for name, token := range map[string]string{"hs512": hs512, "none": none} {
		t.Run(name, func(t *testing.T) {
			if _, err := svc.Verify(token); !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}

func TestTokenServiceRejectsMissingClaims(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)}
	svc := newTestTokenService(t, clock, time.Hour)

	cases := map[string]jwt.RegisteredClaims{
		"missing subject": {
			Issuer:    defaultTokenIssuer,
			ExpiresAt: jwt.NewNumericDate(clock.now.Add(time.Hour)),
		},
		"missing expiry": {
			Subject: "user-1",
			Issuer:  defaultTokenIssuer,
		},
		"wrong issuer": {
			Subject:   "user-1",
			Issuer:    "someone-else",
			ExpiresAt: jwt.NewNumericDate(clock.now.Add(time.Hour)),
		},
	}
	for name, claims := range cases {
		t.Run(name, func(t *testing.T) {
			token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
			if err != nil {
				t.Fatalf("sign: %v", err)
			}
			if _, err := svc.Verify(token); !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}

func TestTokenServiceRejectsMalformed(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	svc := newTestTokenService(t, clock, time.Hour)
	for _, token := range []string{"", "   ", "abc", "a.b.c", "a.b"} {
		if _, err := svc.Verify(token); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("expected ErrInvalidToken for %q, got %v", token, err)
		}
	}
}

func TestNewTokenServiceDefaults(t *testing.T) {
	if _, err := NewTokenService(" ", time.Minute, TokenOptions{}); !errors.Is(err, ErrSecretRequired) {
		t.Fatalf("expected ErrSecretRequired, got %v", err)
	}
	svc, err := NewTokenService("secret", 0, TokenOptions{})
	if err != nil {
		t.Fatalf("new token service: %v", err)
	}
	if svc.TTL() != DefaultTokenTTL {
		t.Fatalf("expected default ttl %v, got %v", DefaultTokenTTL, svc.TTL())
	}
}
