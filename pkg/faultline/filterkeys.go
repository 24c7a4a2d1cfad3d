package faultline

import (
	"regexp"
	"strings"
)

// defaultFilterKeys are redacted from notice data unless UseDefaultFilterKeys is false.
// Matching is case-insensitive substring, so "password" also covers "user_password".
var defaultFilterKeys = []string{
	// Authentication
	"password",
	"passwd",
	"passphrase",
	"secret",
	"token",
	"api_key",
	"apikey",
	"access_token",
	"refresh_token",
	"authorization",
	"auth",
	"credential",
	"session",
	"cookie",
	"csrf",
	"xsrf",
	"jwt",
	"bearer",
	"otp",

	// Financial
	"credit_card",
	"creditcard",
	"card_number",
	"cardnumber",
	"cvv",
	"cvc",
	"iban",
	"account_number",
	"routing_number",
	"bank_account",

	// Personally identifying
	"ssn",
	"social_security",
	"date_of_birth",
	"dob",
	"passport",
	"drivers_license",
	"tax_id",

	// Access control secrets
	"private_key",
	"secret_key",
	"client_secret",
	"access_key",
	"signing_key",
	"encryption_key",
	"signature",
}

// DefaultFilterKeys returns a copy of the built-in sensitive key list.
func DefaultFilterKeys() []string {
	return append([]string(nil), defaultFilterKeys...)
}

// filterKeys computes the effective key set for cfg, deduplicated case-insensitively
// with first occurrence order preserved.
func filterKeys(cfg Config) []string {
	var all []string
	if cfg.UseDefaultFilterKeys {
		all = append(all, defaultFilterKeys...)
	}
	all = append(all, cfg.FilterKeys...)

	seen := make(map[string]struct{}, len(all))
	keys := make([]string, 0, len(all))
	for _, k := range all {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		lower := strings.ToLower(k)
		if _, ok := seen[lower]; ok {
			continue
		}
		seen[lower] = struct{}{}
		keys = append(keys, k)
	}
	return keys
}

// compileFilterPattern builds one case-insensitive alternation. Returns nil for no keys.
func compileFilterPattern(keys []string) *regexp.Regexp {
	if len(keys) == 0 {
		return nil
	}
	quoted := make([]string, len(keys))
	for i, k := range keys {
		quoted[i] = regexp.QuoteMeta(k)
	}
	return regexp.MustCompile(`(?i)(?:` + strings.Join(quoted, "|") + `)`)
}
