package utils

import (
	"net/url"
	"strings"
)

// EncodeURLWithSpaces encodes a URL that may contain unencoded spaces.
// OMDb poster URLs sometimes arrive with raw spaces which need to be %20
// encoded before the URL is usable in a request.
func EncodeURLWithSpaces(rawURL string) (string, error) {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}

	encoded := parsedURL.Scheme + "://" + parsedURL.Host + parsedURL.EscapedPath()
	if parsedURL.RawQuery != "" {
		encodedQuery := strings.ReplaceAll(parsedURL.RawQuery, " ", "%20")
		encoded += "?" + encodedQuery
	}
	return encoded, nil
}
