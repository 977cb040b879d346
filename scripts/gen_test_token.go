//go:build ignore

package main

import (
	"flag"
	"fmt"
	"log"

	"codeberg.org/docsuite/server/internal/auth"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

func main() {
	userID := flag.String("user", "", "user id, random when empty")
	name := flag.String("name", "Test User", "display name")
	role := flag.String("role", auth.RoleEditor, "editor, reviewer, viewer or service")
	ttl := flag.Duration("ttl", auth.DefaultTokenTTL, "token lifetime")
	flag.Parse()

	// load environment
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found")
	}

	if *userID == "" {
		*userID = uuid.NewString()
	}

	token, err := auth.GenerateJWT(*userID, *name, "", *role, *ttl)
	if err != nil {
		log.Fatalf("Failed to generate token: %v", err)
	}

	fmt.Printf("user_id: %s\nrole:    %s\n\n%s\n", *userID, *role, token)
}
