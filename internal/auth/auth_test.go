package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/matheus3301/parley/internal/chat"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

const secret = "test-secret"

func TestMintAndVerify(t *testing.T) {
	now := time.Now()
	id := chat.Identity{Subject: "user-1", Name: "Ana", Email: "ana@example.com", PictureURL: "https://img/ana.png"}
	token, err := Mint(secret, "parley", id, time.Hour, now)
	if err != nil {
		t.Fatal(err)
	}

	got, err := NewVerifier(secret, "parley").Verify(token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if *got != id {
		t.Errorf("got %+v, want %+v", *got, id)
	}
}

func TestVerifyRejects(t *testing.T) {
	now := time.Now()
	id := chat.Identity{Subject: "user-1"}
	valid, _ := Mint(secret, "parley", id, time.Hour, now)
	expired, _ := Mint(secret, "parley", id, time.Minute, now.Add(-time.Hour))
	otherIssuer, _ := Mint(secret, "someone-else", id, time.Hour, now)

	tests := []struct {
		name   string
		token  string
		secret string
	}{
		{"wrong secret", valid, "other-secret"},
		{"expired", expired, secret},
		{"wrong issuer", otherIssuer, secret},
		{"garbage", "not.a.token", secret},
		{"empty", "", secret},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewVerifier(tt.secret, "parley").Verify(tt.token); err == nil {
				t.Error("Verify() should fail")
			}
		})
	}
}

func TestMintRequiresSubject(t *testing.T) {
	if _, err := Mint(secret, "parley", chat.Identity{Name: "nobody"}, time.Hour, time.Now()); err == nil {
		t.Error("Mint() without subject should fail")
	}
}

func TestUnaryInterceptor(t *testing.T) {
	v := NewVerifier(secret, "parley")
	token, _ := Mint(secret, "parley", chat.Identity{Subject: "user-1"}, time.Hour, time.Now())
	intercept := v.UnaryServerInterceptor(zap.NewNop())
	info := &grpc.UnaryServerInfo{FullMethod: "/parley.v1.UserService/ResolveUser"}

	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"valid bearer", "Bearer " + token, "user-1"},
		{"no scheme", token, ""},
		{"bad token", "Bearer nope", ""},
		{"absent", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			if tt.header != "" {
				ctx = metadata.NewIncomingContext(ctx, metadata.Pairs(MetadataKey, tt.header))
			}
			var got string
			_, err := intercept(ctx, nil, info, func(ctx context.Context, _ any) (any, error) {
				if id := IdentityFrom(ctx); id != nil {
					got = id.Subject
				}
				return nil, nil
			})
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("subject = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBearerToken(t *testing.T) {
	md, err := BearerToken("abc").GetRequestMetadata(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(md[MetadataKey], "Bearer ") {
		t.Errorf("got %q, want Bearer prefix", md[MetadataKey])
	}
	md, _ = BearerToken("").GetRequestMetadata(context.Background())
	if len(md) != 0 {
		t.Errorf("empty token sent %v", md)
	}
}
