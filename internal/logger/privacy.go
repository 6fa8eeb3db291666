package logger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
)

const defaultHashSalt = "default-salt-change-in-production"

var hashSalt = defaultHashSalt

// InitHashSalt loads the hashing salt from LOG_HASH_SALT.
// In production, set LOG_HASH_SALT so hashes cannot be reversed by lookup.
func InitHashSalt() {
	hashSalt = os.Getenv("LOG_HASH_SALT")
	if hashSalt == "" {
		hashSalt = defaultHashSalt
		Log.Warn().Msg("LOG_HASH_SALT not set, using default salt")
	}
}

// InitHashSaltForTesting sets a fixed salt.
func InitHashSaltForTesting(salt string) {
	hashSalt = salt
}

// HashUserID creates a privacy-preserving hash of a user ID.
// This allows tracking user actions without exposing actual user IDs.
func HashUserID(userID int64) string {
	return hash(fmt.Sprintf("%d:%s", userID, hashSalt))
}

// HashChatID creates a privacy-preserving hash of a chat ID.
func HashChatID(chatID int64) string {
	return hash(fmt.Sprintf("%d:%s", chatID, hashSalt))
}

// HashExternalChatID hashes a chat ID kept in its stored string form.
func HashExternalChatID(chatID string) string {
	return hash(chatID + ":" + hashSalt)
}

// HashUsername hashes a Telegram username, ignoring case and the @ prefix.
func HashUsername(username string) string {
	username = strings.ToLower(strings.TrimPrefix(username, "@"))
	return hash("u:" + username + ":" + hashSalt)
}

func hash(data string) string {
	sum := sha256.Sum256([]byte(data))
	// First 8 characters are enough to correlate log lines.
	return hex.EncodeToString(sum[:])[:8]
}

// MaskPhone keeps the operator prefix and the last three digits of a phone number.
func MaskPhone(phone string) string {
	if len(phone) <= 6 {
		return strings.Repeat("*", len(phone))
	}
	return phone[:3] + strings.Repeat("*", len(phone)-6) + phone[len(phone)-3:]
}

// SanitizeText is a general-purpose sanitizer for any user-provided text.
func SanitizeText(text string) string {
	if text == "" {
		return "<empty>"
	}

	// For short text, show first few characters
	if len(text) <= 10 {
		return fmt.Sprintf("<%d chars>", len(text))
	}

	// For longer text, show prefix and length
	return fmt.Sprintf("%s...<%d chars>", text[:3], len(text))
}
