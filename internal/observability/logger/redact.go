package logger

import (
	"net/http"
	"sort"
	"strings"
)

const redacted = "[redacted]"

// redactor masks a single value. Keys are matched lower-cased.
type redactor func(string) string

var headerRedactors = map[string]redactor{
	"authorization": redactCredential,
	"cookie":        redactCookie,
	"x-api-key":     redactTail,
}

// fieldRedactors apply to JSON object keys that contain the map key.
var fieldRedactors = []struct {
	needle string
	mask   redactor
}{
	{"password", redactAll},
	{"secret", redactAll},
	{"token", redactTail},
	{"email", RedactEmail},
	{"bank_account", redactTail},
	{"iban", redactTail},
	{"tax_id", redactTail},
}

// RedactEmail keeps the first rune of the local part and the domain.
func RedactEmail(value string) string {
	value = strings.TrimSpace(value)
	at := strings.LastIndex(value, "@")
	if at <= 0 {
		return redactTail(value)
	}
	local := []rune(value[:at])
	return string(local[0]) + "***" + value[at:]
}

// RedactHeaders flattens headers and masks credentials. Output keys are
// canonical header names.
func RedactHeaders(headers http.Header) map[string]string {
	out := make(map[string]string, len(headers))
	for key, values := range headers {
		joined := strings.Join(values, ",")
		if mask, ok := headerRedactors[strings.ToLower(key)]; ok {
			joined = mask(joined)
		}
		out[http.CanonicalHeaderKey(key)] = joined
	}
	return out
}

// RedactFields returns a copy of fields with personal and secret values
// masked. Nested objects and arrays are walked.
func RedactFields(fields map[string]any) map[string]any {
	if fields == nil {
		return nil
	}
	out := make(map[string]any, len(fields))
	for key, value := range fields {
		if mask := fieldRedactor(key); mask != nil {
			out[key] = redactValue(value, mask)
			continue
		}
		out[key] = redactNested(value)
	}
	return out
}

// RequestSummary describes req for error logs without bodies or secrets.
func RequestSummary(req *http.Request) map[string]any {
	if req == nil {
		return map[string]any{}
	}
	summary := map[string]any{
		"method":  req.Method,
		"path":    req.URL.Path,
		"headers": RedactHeaders(req.Header),
	}
	if req.ContentLength > 0 {
		summary["content_length"] = req.ContentLength
	}
	if keys := queryKeys(req); len(keys) > 0 {
		summary["query_keys"] = keys
	}
	return summary
}

func queryKeys(req *http.Request) []string {
	if req.URL == nil {
		return nil
	}
	query := req.URL.Query()
	keys := make([]string, 0, len(query))
	for key := range query {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func fieldRedactor(key string) redactor {
	key = strings.ToLower(strings.TrimSpace(key))
	for _, rule := range fieldRedactors {
		if strings.Contains(key, rule.needle) {
			return rule.mask
		}
	}
	return nil
}

func redactNested(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		return RedactFields(typed)
	case []any:
		items := make([]any, len(typed))
		for i, entry := range typed {
			items[i] = redactNested(entry)
		}
		return items
	default:
		return value
	}
}

func redactValue(value any, mask redactor) any {
	switch typed := value.(type) {
	case string:
		return mask(typed)
	case []byte:
		return mask(string(typed))
	case nil:
		return nil
	default:
		return redacted
	}
}

func redactCredential(value string) string {
	scheme, rest, found := strings.Cut(strings.TrimSpace(value), " ")
	if found && strings.EqualFold(scheme, "bearer") {
		return "Bearer " + redactTail(rest)
	}
	return redactTail(value)
}

func redactCookie(value string) string {
	var parts []string
	for _, segment := range strings.Split(value, ";") {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}
		name, _, found := strings.Cut(segment, "=")
		if !found {
			parts = append(parts, redacted)
			continue
		}
		parts = append(parts, strings.TrimSpace(name)+"="+redacted)
	}
	return strings.Join(parts, "; ")
}

func redactAll(string) string { return redacted }

// redactTail keeps the last four characters of values longer than eight.
func redactTail(value string) string {
	value = strings.TrimSpace(value)
	switch {
	case value == "":
		return ""
	case len(value) <= 8:
		return redacted
	default:
		return "..." + value[len(value)-4:]
	}
}
