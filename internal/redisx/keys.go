package redisx

import (
	"fmt"
	"time"
)

const (
	// Идемпотентность оформления: idem:order:create:{user_id}:{key} -> order_id
	keyIdemOrderCreate = "idem:order:create:%s:%s"
)

// TTLIdempotency — срок хранения ключей идемпотентности оформления.
var TTLIdempotency = 24 * time.Hour

// IdemOrderCreateKey возвращает ключ идемпотентности для пары
// пользователь + Idempotency-Key.
func IdemOrderCreateKey(userID, key string) string {
	return fmt.Sprintf(keyIdemOrderCreate, userID, key)
}
