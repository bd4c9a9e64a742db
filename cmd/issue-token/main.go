// issue-token mints a signed bearer token for local testing. Production
// tokens come from the identity provider that shares JWT_SECRET.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/hackgods/doctor-slot-booking/internal/auth"
	"github.com/hackgods/doctor-slot-booking/internal/logging"
)

func main() {
	role := flag.String("role", auth.RolePatient, "doctor or patient")
	name := flag.String("name", "", "patient display name")
	phone := flag.String("phone", "", "patient phone, required for patient tokens")
	subject := flag.String("sub", "", "subject, defaults to a random UUID")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	_ = godotenv.Load()
	logger := logging.Bootstrap()

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		logger.Fatal().Msg("JWT_SECRET is required")
	}
	if *role != auth.RoleDoctor && *role != auth.RolePatient {
		logger.Fatal().Str("role", *role).Msg("role must be doctor or patient")
	}
	if *role == auth.RolePatient && *phone == "" {
		logger.Fatal().Msg("patient tokens need -phone")
	}
	if *subject == "" {
		*subject = uuid.NewString()
	}

	a := auth.New(secret, os.Getenv("JWT_ISSUER"), false)
	tok, err := a.Issue(auth.Identity{
		Subject: *subject,
		Roles:   []string{*role},
		Name:    *name,
		Phone:   *phone,
	}, *ttl)
	if err != nil {
		logger.Fatal().Err(err).Msg("issue token")
	}

	fmt.Println(tok)
}
