package fields

import (
	"encoding/json"
	"fmt"
	"html"
	"math"
	"net/mail"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"github.com/nyaruka/phonenumbers"
)

// strict removes every tag from visitor-entered text.
var strict = bluemonday.StrictPolicy()

// maxDecodeDepth bounds how many layers of entity encoding plainText peels.
const maxDecodeDepth = 4

var defaultMessages = map[Kind]string{
	KindText:    "Please fill in the field",
	KindPhone:   "Invalid phone number",
	KindEmail:   "Invalid email address",
	KindCount:   "Enter a whole number of at least %d",
	KindConsent: "You must accept the terms",
}

func message(f Field) string {
	if f.Message != "" {
		return f.Message
	}
	if f.Kind == KindCount {
		return fmt.Sprintf(defaultMessages[KindCount], f.Min)
	}
	return defaultMessages[f.Kind]
}

func normalize(f Field, value any) (any, error) {
	switch f.Kind {
	case KindConsent:
		return normalizeConsent(value)
	case KindCount:
		return normalizeCount(value)
	}

	s, ok := value.(string)
	if !ok {
		if value == nil {
			return "", nil
		}
		return nil, fmt.Errorf("%w: want string, got %T", ErrWrongType, value)
	}
	s = strings.TrimSpace(s)

	switch f.Kind {
	case KindText:
		return strings.TrimSpace(plainText(s)), nil
	case KindPhone:
		if num, err := phonenumbers.Parse(s, f.Region); err == nil && phonenumbers.IsValidNumber(num) {
			return phonenumbers.Format(num, phonenumbers.E164), nil
		}
		return s, nil
	default:
		return s, nil
	}
}

// plainText strips markup from s, including markup hidden behind entity
// encoding. Entities are decoded before sanitizing so an encoded tag cannot
// come back to life afterwards. The result never contains '<'.
func plainText(s string) string {
	for range maxDecodeDepth {
		u := html.UnescapeString(s)
		if strings.ContainsRune(u, '<') {
			s = strict.Sanitize(u)
			continue
		}
		if u == s {
			return s
		}
		s = u
	}
	return strings.ReplaceAll(html.UnescapeString(s), "<", "")
}

func normalizeConsent(value any) (any, error) {
	switch v := value.(type) {
	case nil:
		return false, nil
	case bool:
		return v, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "on", "1", "yes":
			return true, nil
		default:
			return false, nil
		}
	default:
		return nil, fmt.Errorf("%w: want bool, got %T", ErrWrongType, value)
	}
}

// normalizeCount keeps counts as strings, which is what the request
// contracts carry.
func normalizeCount(value any) (any, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return strings.TrimSpace(v), nil
	case json.Number:
		return v.String(), nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		if v == math.Trunc(v) && math.Abs(v) < 1<<53 {
			return strconv.FormatInt(int64(v), 10), nil
		}
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	default:
		return nil, fmt.Errorf("%w: want number, got %T", ErrWrongType, value)
	}
}

// check returns the error message for value, or "" when it is valid.
func check(f Field, value any) string {
	ok := false
	switch f.Kind {
	case KindText:
		s, isStr := value.(string)
		ok = isStr && utf8.RuneCountInString(strings.TrimSpace(s)) >= f.MinLength
	case KindPhone:
		s, isStr := value.(string)
		ok = isStr && validPhone(s, f.Region)
	case KindEmail:
		s, isStr := value.(string)
		ok = isStr && validEmail(s)
	case KindCount:
		s, isStr := value.(string)
		if isStr {
			n, err := strconv.Atoi(strings.TrimSpace(s))
			ok = err == nil && n >= f.Min
		}
	case KindConsent:
		accepted, isBool := value.(bool)
		ok = isBool && accepted
	}
	if ok {
		return ""
	}
	return message(f)
}

func validPhone(s, region string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	num, err := phonenumbers.Parse(s, region)
	if err != nil {
		return false
	}
	return phonenumbers.IsValidNumber(num)
}

func validEmail(s string) bool {
	s = strings.TrimSpace(s)
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return false
	}
	at := strings.LastIndexByte(s, '@')
	domain := s[at+1:]
	return strings.Contains(domain, ".") && !strings.HasPrefix(domain, ".") && !strings.HasSuffix(domain, ".")
}
