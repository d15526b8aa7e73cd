package cache

import (
	"fmt"
)

type EntityType string

const (
	EntityAccount EntityType = "account"
)

type KeyType string

const (
	KeyID KeyType = "id"
)

// GenerateKey creates a standardized cache key
func GenerateKey(entity EntityType, keyType KeyType, value interface{}) string {
	return fmt.Sprintf("%s:%s:%v", entity, keyType, value)
}

// AccountKey is the cache key of an account snapshot.
func AccountKey(accountID string) string {
	return GenerateKey(EntityAccount, KeyID, accountID)
}
