package domain

import "time"

// User — учётная запись покупателя. Аутентификация токеном выполняется
// внешним HTTP-слоем, ядро оформления заказов видит только UserID.
type User struct {
	ID       string
	Username string
	// Token — непрозрачный ключ для Authorization: Token <key>.
	Token     string
	CreatedAt time.Time
}
