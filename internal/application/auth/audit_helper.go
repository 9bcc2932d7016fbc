package auth

import "github.com/baechuer/real-time-ressys/services/identity-bridge/internal/domain"

func domainCode(err error) string {
	if err == nil {
		return ""
	}
	if c := domain.CodeOf(err); c != "" {
		return c
	}
	return "non_domain_error"
}
