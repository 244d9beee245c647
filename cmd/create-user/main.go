// create-user заводит учётную запись покупателя и печатает её API-токен.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/shop/internal/domain"
	"github.com/vladislavdragonenkov/shop/internal/storage/postgres"
)

const defaultTimeout = 10 * time.Second

func main() {
	var (
		username string
		token    string
		dsn      string
	)

	flag.StringVar(&username, "username", "", "username of the new account (required)")
	flag.StringVar(&token, "token", "", "API token (generated when empty)")
	flag.StringVar(&dsn, "dsn", "", "PostgreSQL DSN (fallback: SHOP_POSTGRES_DSN)")
	flag.Parse()

	username = strings.TrimSpace(username)
	if username == "" {
		fail("-username is required")
	}
	if strings.TrimSpace(dsn) == "" {
		dsn = strings.TrimSpace(os.Getenv("SHOP_POSTGRES_DSN"))
	}
	if dsn == "" {
		fail("SHOP_POSTGRES_DSN (or -dsn) is required")
	}
	if token == "" {
		token = generateToken()
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	store, err := postgres.Open(ctx, dsn)
	if err != nil {
		fail("open postgres store: %v", err)
	}
	defer store.Close()

	users := postgres.NewUserRepository(store)
	user := domain.User{
		ID:        uuid.NewString(),
		Username:  username,
		Token:     token,
		CreatedAt: time.Now().UTC(),
	}
	if err := users.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrUserExists) {
			fail("user %q already exists", username)
		}
		fail("create user: %v", err)
	}

	fmt.Printf("user created: id=%s username=%s\n", user.ID, user.Username)
	fmt.Printf("token: %s\n", user.Token)
}

// generateToken собирает непрозрачный ключ для заголовка Authorization.
func generateToken() string {
	return strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
}

func fail(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
