package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/crmsync/backend/internal/infrastructure/auth"
	"github.com/crmsync/backend/internal/infrastructure/config"
)

// Mints a bearer token for the admin API. Tokens are issued out of
// band: there is no login endpoint, an operator with access to the
// deployment config runs this tool and passes the token to whoever
// needs admin access.
func main() {
	var operator string
	flag.StringVar(&operator, "operator", "", "Name recorded as the token subject (required)")
	flag.Parse()

	if operator == "" {
		fmt.Fprintln(os.Stderr, "Usage: token -operator <name>")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	jwtService := auth.NewJWTService(cfg.JWT)
	token, expiresAt, err := jwtService.GenerateToken(operator)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to generate token: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(token)
	fmt.Fprintf(os.Stderr, "expires: %s\n", expiresAt.Format(time.RFC3339))
}
