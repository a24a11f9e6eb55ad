// Package session - вход в консоль: учетные данные оператора, хранилище сессий и подписанный cookie.
package session

import (
	"encoding/base64"
	"strings"
)

// Credential - base64("username:password"), то, что уходит в заголовок Basic.
type Credential string

// NewCredential кодирует пару логин/пароль.
func NewCredential(username, password string) Credential {
	return Credential(base64.StdEncoding.EncodeToString([]byte(username + ":" + password)))
}

// Username возвращает имя пользователя для аудита. Пустая строка, если credential поврежден.
func (c Credential) Username() string {
	raw, err := base64.StdEncoding.DecodeString(string(c))
	if err != nil {
		return ""
	}
	name, _, ok := strings.Cut(string(raw), ":")
	if !ok {
		return ""
	}
	return name
}
