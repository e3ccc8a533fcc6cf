package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/matheus3301/parley/internal/auth"
	"github.com/matheus3301/parley/internal/chat"
	"github.com/matheus3301/parley/internal/config"
	"github.com/matheus3301/parley/internal/profile"
	"github.com/skip2/go-qrcode"
)

// cmdToken mints a token with the daemon's configured secret. It stands in
// for an external identity provider during development.
func cmdToken(args []string, g globals) {
	fs := flag.NewFlagSet("token", flag.ExitOnError)
	sub := fs.String("sub", "", "external identity (required)")
	name := fs.String("name", "", "display name")
	email := fs.String("email", "", "email address")
	picture := fs.String("picture", "", "profile image URL")
	ttl := fs.Duration("ttl", 0, "token lifetime (default from config)")
	qr := fs.Bool("qr", false, "also print the token as a QR code")
	_ = fs.Parse(args)

	if *sub == "" {
		fail(errors.New("--sub is required"))
	}
	cfg, err := config.LoadEnv(profile.ConfigPath(), profile.EnvPath())
	if err != nil {
		fail(err)
	}
	if cfg.Auth.JWTSecret == "" {
		fail(errors.New("auth.jwt_secret is not set in config or PARLEY_JWT_SECRET"))
	}
	lifetime := cfg.Auth.TokenTTL
	if *ttl > 0 {
		lifetime = *ttl
	}

	tok, err := auth.Mint(cfg.Auth.JWTSecret, cfg.Auth.Issuer, chat.Identity{
		Subject:    *sub,
		Name:       *name,
		Email:      *email,
		PictureURL: *picture,
	}, lifetime, time.Now())
	if err != nil {
		fail(err)
	}
	if g.json {
		outputJSON(map[string]string{"token": tok})
		return
	}
	fmt.Println(tok)
	if *qr {
		fmt.Fprint(os.Stderr, renderQR(tok))
	}
}

// renderQR converts a string to a compact text QR code using Unicode
// half-block characters.
func renderQR(content string) string {
	qr, err := qrcode.New(content, qrcode.Low)
	if err != nil {
		return "  (QR generation failed: " + err.Error() + ")\n"
	}
	qr.DisableBorder = false

	bitmap := qr.Bitmap()
	rows := len(bitmap)
	cols := 0
	if rows > 0 {
		cols = len(bitmap[0])
	}

	var sb strings.Builder
	for y := 0; y < rows; y += 2 {
		sb.WriteString("  ")
		for x := 0; x < cols; x++ {
			top := bitmap[y][x]
			bot := false
			if y+1 < rows {
				bot = bitmap[y+1][x]
			}
			switch {
			case top && bot:
				sb.WriteRune('█')
			case top:
				sb.WriteRune('▀')
			case bot:
				sb.WriteRune('▄')
			default:
				sb.WriteRune(' ')
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
