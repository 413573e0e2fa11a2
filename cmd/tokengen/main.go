// Command tokengen mints a dev-only {userId, role} token, adapted from the
// teacher's scripts/generate-token.go to the widened claim shape authn.Verifier
// expects. It is not part of the running service — C1 only ever verifies.
package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func main() {
	if len(os.Args) < 3 {
		fmt.Println("usage: tokengen <userId> <role> [expirationHours]")
		fmt.Println("example: tokengen 42 operator 720")
		os.Exit(1)
	}

	userID, err := strconv.ParseInt(os.Args[1], 10, 64)
	if err != nil {
		log.Fatalf("invalid userId: %v", err)
	}
	role := os.Args[2]

	expirationHours := 720
	if len(os.Args) > 3 {
		h, err := strconv.Atoi(os.Args[3])
		if err != nil {
			log.Fatalf("invalid expirationHours: %v", err)
		}
		expirationHours = h
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("JWT_SECRET must be set")
	}

	now := time.Now()
	expiry := now.Add(time.Duration(expirationHours) * time.Hour)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"userId": userID,
		"role":   role,
		"iat":    now.Unix(),
		"exp":    expiry.Unix(),
	})

	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		log.Fatalf("failed to sign token: %v", err)
	}

	fmt.Printf("userId: %d\n", userID)
	fmt.Printf("role: %s\n", role)
	fmt.Printf("expires: %s\n\n", expiry.Format(time.RFC3339))
	fmt.Printf("token:\n%s\n\n", tokenString)
	fmt.Printf("ws://localhost:8080/ws?token=%s\n", tokenString)
}
