// redact маскирует PII перед записью в логи.
package redact

import "strings"

// Email оставляет первые два символа локальной части и домен: "jo***@example.com".
// Работает по рунам, чтобы не резать многобайтовые символы.
func Email(s string) string {
	local, domain, ok := strings.Cut(s, "@")
	if !ok || strings.Contains(domain, "@") {
		return "***"
	}

	r := []rune(local)
	if len(r) > 2 {
		local = string(r[:2]) + "***"
	} else {
		local = "***"
	}

	return local + "@" + domain
}
