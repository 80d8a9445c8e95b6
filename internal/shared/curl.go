// Utilities for importing upstream credentials from a browser "Copy as cURL" capture.
package shared

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"
)

var (
	curlHeaderRegex = regexp.MustCompile(`-H\s+'([^']+)'|-H\s+"([^"]+)"`)
	curlURLRegex    = regexp.MustCompile(`curl\s+(?:-X\s+\w+\s+)?'([^']+)'|curl\s+(?:-X\s+\w+\s+)?"([^"]+)"|curl\s+(?:-X\s+\w+\s+)?(https?://\S+)`)
)

// CurlCapture is a request copied from the browser's network panel.
type CurlCapture struct {
	URL     string
	Headers map[string]string // Keys are lower-cased
}

// CapturedCredential is what a capture says about the caller's identity.
type CapturedCredential struct {
	AppID string
	Token string
}

// ParseCurlFile reads a .sh file containing a cURL command.
func ParseCurlFile(filepath string) (*CurlCapture, error) {
	content, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read curl file: %w", err)
	}

	return ParseCurlCommand(content)
}

// ParseCurlCommand extracts the target URL and headers from a cURL command.
func ParseCurlCommand(data []byte) (*CurlCapture, error) {
	curlCmd := string(data)
	curlCmd = strings.ReplaceAll(curlCmd, "\\\n", " ")
	curlCmd = strings.ReplaceAll(curlCmd, "\\", "")

	capture := &CurlCapture{Headers: make(map[string]string)}

	if m := curlURLRegex.FindStringSubmatch(curlCmd); m != nil {
		for _, g := range m[1:] {
			if g != "" {
				capture.URL = g
				break
			}
		}
	}

	for _, match := range curlHeaderRegex.FindAllStringSubmatch(curlCmd, -1) {
		headerLine := match[1]
		if headerLine == "" {
			headerLine = match[2]
		}

		key, value, ok := strings.Cut(headerLine, ":")
		if !ok {
			continue
		}
		capture.Headers[strings.ToLower(strings.TrimSpace(key))] = strings.TrimSpace(value)
	}

	if len(capture.Headers) == 0 && capture.URL == "" {
		return nil, fmt.Errorf("%w: no url or headers found in curl command", ErrInvalidInput)
	}

	return capture, nil
}

// Credential returns the app id and user token carried by the capture.
//
// Headers win over query parameters. A capture without a token is an error.
func (c *CurlCapture) Credential() (CapturedCredential, error) {
	cred := CapturedCredential{
		AppID: c.Headers["x-app-id"],
		Token: c.Headers["x-user-auth-token"],
	}

	if c.URL != "" && (cred.AppID == "" || cred.Token == "") {
		if u, err := url.Parse(c.URL); err == nil {
			q := u.Query()
			if cred.AppID == "" {
				cred.AppID = q.Get("app_id")
			}
			if cred.Token == "" {
				cred.Token = q.Get("user_auth_token")
			}
		}
	}

	if cred.Token == "" {
		return cred, fmt.Errorf("%w: no user auth token in curl command", ErrInvalidInput)
	}
	return cred, nil
}
