package migrator

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var userInfoPattern = regexp.MustCompile(`://([^:/@\s]+):([^@\s]+)@`)

// sanitizeConnectionError strips credentials from an error that may quote the
// database URL.
func sanitizeConnectionError(err error, dbURL string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("migrate.New: %s", redactCredentials(err.Error(), dbURL))
}

func redactCredentials(msg, dbURL string) string {
	if dbURL != "" && strings.Contains(msg, dbURL) {
		if u, err := url.Parse(dbURL); err == nil && u.Host != "" {
			msg = strings.ReplaceAll(msg, dbURL, fmt.Sprintf("%s://[REDACTED]@%s/[REDACTED]", u.Scheme, u.Host))
		} else {
			msg = strings.ReplaceAll(msg, dbURL, "[DATABASE_URL_REDACTED]")
		}
	}

	if password := passwordOf(dbURL); password != "" {
		msg = strings.ReplaceAll(msg, password, "[REDACTED]")
		if escaped := url.QueryEscape(password); escaped != password {
			msg = strings.ReplaceAll(msg, escaped, "[REDACTED]")
		}
	}

	return userInfoPattern.ReplaceAllString(msg, "://$1:[REDACTED]@")
}

// passwordOf extracts the password from dbURL, falling back to string
// matching when the URL does not parse.
func passwordOf(dbURL string) string {
	if u, err := url.Parse(dbURL); err == nil && u.User != nil {
		if p, ok := u.User.Password(); ok {
			return p
		}
		return ""
	}

	_, rest, ok := strings.Cut(dbURL, "://")
	if !ok {
		return ""
	}
	userInfo, _, ok := strings.Cut(rest, "@")
	if !ok {
		return ""
	}
	_, password, _ := strings.Cut(userInfo, ":")
	return password
}
