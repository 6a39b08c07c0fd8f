package service

import (
	"fmt"
	"strings"
	"unicode"
)

const maxNameLength = 50

// forbiddenChars are rejected in free-text identity fields to keep user
// input out of query and markup contexts.
const forbiddenChars = `,"';\{}<>`

const passwordSpecials = "@$!%*?&.^"

// fieldRule checks one property of one input and reports the violated
// rule, or "" when the input passes.
type fieldRule func(value string) string

func checkName(name string) []string {
	return runRules(name,
		ruleRequired("name"),
		ruleMaxLength("name", maxNameLength),
		ruleCleanText("name"),
	)
}

func checkEmail(email string) []string {
	return runRules(email,
		ruleRequired("email"),
		ruleMaxLength("email", 100),
		ruleCleanText("email"),
		func(v string) string {
			if v == "" {
				return ""
			}
			at := strings.Index(v, "@")
			if at < 1 || !strings.Contains(v[at:], ".") {
				return "email must be a valid address"
			}
			return ""
		},
	)
}

func checkPassword(password, confirm string) []string {
	var reasons []string
	if password == "" {
		reasons = append(reasons, "password is required")
		return reasons
	}
	if len(password) < 8 {
		reasons = append(reasons, "password must be at least 8 characters")
	}
	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		}
	}
	if !upper || !lower || !digit || !special {
		reasons = append(reasons, "password must contain at least 1 uppercase letter, 1 lowercase letter, 1 number and 1 special character ("+passwordSpecials+")")
	}
	if password != confirm {
		reasons = append(reasons, "passwords must match")
	}
	return reasons
}

func runRules(value string, rules ...fieldRule) []string {
	var reasons []string
	for _, rule := range rules {
		if reason := rule(value); reason != "" {
			reasons = append(reasons, reason)
		}
	}
	return reasons
}

func ruleRequired(field string) fieldRule {
	return func(v string) string {
		if strings.TrimSpace(v) == "" {
			return field + " is required"
		}
		return ""
	}
}

func ruleMaxLength(field string, max int) fieldRule {
	return func(v string) string {
		if len(v) > max {
			return fmt.Sprintf("%s must be at most %d characters", field, max)
		}
		return ""
	}
}

func ruleCleanText(field string) fieldRule {
	return func(v string) string {
		for _, r := range v {
			if strings.ContainsRune(forbiddenChars, r) || unicode.IsControl(r) {
				return field + " contains forbidden characters"
			}
		}
		return ""
	}
}
