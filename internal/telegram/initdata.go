package telegram

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

var ErrInvalidInitData = errors.New("invalid telegram init data")

// Identity is what the mini-app hands us once per session: a stable
// external user identifier plus display-name fields.
type Identity struct {
	TelegramID int64
	FirstName  string
	LastName   string
	Username   string
}

// ResolveIdentity extracts the Telegram user from WebApp init data.
// Accepts the standard query-string form ("user=<json>&auth_date=..."),
// a bare numeric id, or falls back to a hash-derived id so local
// development without Telegram still gets a stable identity.
func ResolveIdentity(initData string) (Identity, error) {
	trimmed := strings.TrimSpace(initData)
	if trimmed == "" {
		return Identity{}, fmt.Errorf("init data is empty: %w", ErrInvalidInitData)
	}

	if parsed, err := strconv.ParseInt(trimmed, 10, 64); err == nil && parsed > 0 {
		return Identity{TelegramID: parsed}, nil
	}

	query, err := url.ParseQuery(trimmed)
	if err == nil && len(query) > 0 {
		if rawUser := query.Get("user"); rawUser != "" {
			var payload struct {
				ID        int64  `json:"id"`
				FirstName string `json:"first_name"`
				LastName  string `json:"last_name"`
				Username  string `json:"username"`
			}
			if unmarshalErr := json.Unmarshal([]byte(rawUser), &payload); unmarshalErr == nil && payload.ID > 0 {
				return Identity{
					TelegramID: payload.ID,
					FirstName:  payload.FirstName,
					LastName:   payload.LastName,
					Username:   payload.Username,
				}, nil
			}
		}

		for _, key := range []string{"user_id", "id", "tg_user_id"} {
			if value := query.Get(key); value != "" {
				if parsed, parseErr := strconv.ParseInt(value, 10, 64); parseErr == nil && parsed > 0 {
					return Identity{TelegramID: parsed}, nil
				}
			}
		}
	}

	return Identity{TelegramID: fallbackTelegramID(trimmed)}, nil
}

func fallbackTelegramID(initData string) int64 {
	hash := sha256.Sum256([]byte(initData))
	v := binary.BigEndian.Uint64(hash[:8]) & 0x7fffffffffffffff
	if v == 0 {
		v = 1
	}
	return int64(v)
}
