package auth

import (
	"log"

	"consolegw/internal/utils"
)

const (
	EnvRedisHost     = "REDIS_HOST"
	EnvRedisPort     = "REDIS_PORT"
	EnvRedisUser     = "REDIS_USERNAME"
	EnvRedisPassword = "REDIS_PASSWORD"
)

// NewAuthorizer picks the authorization backend from the environment: a
// remote service when authURL is set, redis when REDIS_HOST is set, and the
// in-memory store otherwise.
func NewAuthorizer(authURL string) (Authorizer, error) {
	if authURL != "" {
		log.Printf("🔑 Using remote authorization service: %s", authURL)
		return NewHTTPAuthorizer(authURL), nil
	}

	redisHost := utils.GetEnv(EnvRedisHost, "")
	if redisHost != "" {
		redisPort := utils.GetEnv(EnvRedisPort, "6379")
		redisUser := utils.GetEnv(EnvRedisUser, "")
		redisPassword := utils.GetEnv(EnvRedisPassword, "")

		store, err := NewRedisStore(redisHost, redisPort, redisUser, redisPassword)
		if err != nil {
			log.Printf("⚠️  Redis connection failed: %v", err)
			log.Println("💾 Falling back to in-memory token store")
			return NewMemoryStore(), nil
		}
		log.Printf("💾 Using Redis token store: %s:%s", redisHost, redisPort)
		return store, nil
	}

	log.Println("💾 Using in-memory token store")
	return NewMemoryStore(), nil
}
