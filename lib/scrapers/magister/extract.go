package magister

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ErrPatternNotFound is returned by the extractors below when the
// upstream artifact no longer matches the shape they scrape. Whether
// that is fatal depends on the extractor: the login sequence cannot
// proceed without the account bundle URL or the OIDC script fields,
// but a missing auth-code cipher just falls back to the default code.
var ErrPatternNotFound = errors.New("pattern not found")

// SchoolConfig holds the fields the authorization request needs,
// scraped from the school's oidc_config.js.
type SchoolConfig struct {
	ClientId     string
	RedirectUri  string
	ResponseType string
	AcrValues    string
}

var oidcLine = regexp.MustCompile(`^\s*(\w+):\s*(.*?),?$`)
var oidcLineBreak = regexp.MustCompile(`[\r\n]+`)
var quotedValue = regexp.MustCompile(`^'(.*)',?$`)

// ParseOidcScript decodes the javascript object literal in
// oidc_config.js line by line. `hostname: 'x' + window.location.hostname`
// style concatenations are resolved against the school server.
func ParseOidcScript(script, schoolServer string) map[string]any {
	cfg := map[string]any{}
	for _, line := range oidcLineBreak.Split(script, -1) {
		if line == "" {
			continue
		}
		m := oidcLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		key := m[1]
		value := m[2]
		value = strings.ReplaceAll(value, `' + window.location.hostname`, schoolServer+`'`)
		value = strings.ReplaceAll(value, `' + '`, "")
		switch value {
		case "false":
			cfg[key] = false
			continue
		case "true":
			cfg[key] = true
			continue
		}
		if q := quotedValue.FindStringSubmatch(value); q != nil {
			value = q[1]
		}
		cfg[key] = value
	}
	return cfg
}

// SchoolConfigFromScript parses oidc_config.js and checks the fields
// the authorization request cannot do without.
func SchoolConfigFromScript(script, schoolServer string) (SchoolConfig, error) {
	raw := ParseOidcScript(script, schoolServer)

	get := func(key string) string {
		s, _ := raw[key].(string)
		return s
	}
	cfg := SchoolConfig{
		ClientId:     get("client_id"),
		RedirectUri:  get("redirect_uri"),
		ResponseType: get("response_type"),
		AcrValues:    get("acr_values"),
	}

	var missing []string
	for key, val := range map[string]string{
		"client_id":     cfg.ClientId,
		"redirect_uri":  cfg.RedirectUri,
		"response_type": cfg.ResponseType,
		"acr_values":    cfg.AcrValues,
	} {
		if val == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return cfg, fmt.Errorf("school oidc config is missing %s: %w", strings.Join(missing, ", "), ErrPatternNotFound)
	}
	return cfg, nil
}

var accountBundlePath = regexp.MustCompile(`js/account-\w+\.js`)

// ExtractAccountBundlePath finds the dynamically named account-<hash>.js
// reference in the login landing page. Script tags are checked first,
// with a raw scan as fallback since the page sometimes references the
// bundle outside a src attribute.
func ExtractAccountBundlePath(page []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(page))
	if err == nil {
		found := ""
		doc.Find("script").Each(func(_ int, s *goquery.Selection) {
			if found != "" {
				return
			}
			src := s.AttrOr("src", "")
			if m := accountBundlePath.FindString(src); m != "" {
				found = m
			}
		})
		if found != "" {
			return found, nil
		}
	}

	if m := accountBundlePath.Find(page); m != nil {
		return string(m), nil
	}
	return "", fmt.Errorf("account bundle reference: %w", ErrPatternNotFound)
}

var authCodeCipher = regexp.MustCompile(`\(\w=\["([0-9a-f",]+?)"\],\["([0-9",]+)"\]\.map`)

// ExtractAuthCode decodes the substitution cipher the account bundle
// hides the challenge auth code in: a quoted list of hex fragments
// and a parallel list of indices that reassemble them. Only this
// obfuscation scheme is handled; the variant that spreads the
// fragments over separate variables is not.
func ExtractAuthCode(bundle string) (string, error) {
	m := authCodeCipher.FindStringSubmatch(bundle)
	if m == nil {
		return "", fmt.Errorf("auth code cipher: %w", ErrPatternNotFound)
	}

	codes := strings.Split(m[1], `","`)
	var out strings.Builder
	for _, idx := range strings.Split(m[2], `","`) {
		i, err := strconv.Atoi(idx)
		if err != nil || i < 0 || i >= len(codes) {
			return "", fmt.Errorf("auth code cipher index %q: %w", idx, ErrPatternNotFound)
		}
		out.WriteString(codes[i])
	}
	return out.String(), nil
}
