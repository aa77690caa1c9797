package restyutil

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/go-resty/resty/v2"
)

func formatHeaders(headers http.Header) string {
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var out strings.Builder
	for _, k := range keys {
		for _, v := range headers[k] {
			fmt.Fprintf(&out, "%s: %s\n", k, v)
		}
	}
	return strings.TrimSuffix(out.String(), "\n")
}

func formatRequestBody(req *http.Request) string {
	if req == nil || req.GetBody == nil {
		return ""
	}
	body, err := req.GetBody()
	if err != nil {
		return fmt.Sprintf("failed to get request body: %s", err.Error())
	}
	// resty hands out a nil reader for requests without a body
	if body == nil {
		return ""
	}
	defer body.Close()
	read, err := io.ReadAll(body)
	if err != nil {
		return fmt.Sprintf("failed to read request body: %s", err.Error())
	}
	return string(read)
}

// 1: request method
// 2: request url
// 3: request headers
// 4: request body
// 5: response status
// 6: response headers
// 7: response body
const exchangeTemplate = `---- REQUEST ----

%s %s

%s

%s

---- RESPONSE ----

%s

%s

%s`

// SecretParams are query and form parameters whose values never reach a dump.
var SecretParams = []string{"parole", "password"}

// redactURL masks the values of secret query parameters.
func redactURL(u *url.URL) string {
	query := u.Query()
	redacted := false
	for _, name := range SecretParams {
		if query.Has(name) {
			query.Set(name, "REDACTED")
			redacted = true
		}
	}
	if !redacted {
		return u.String()
	}
	masked := *u
	masked.RawQuery = query.Encode()
	return masked.String()
}

// redactForm masks the values of secret parameters in a form encoded body.
func redactForm(body string) string {
	form, err := url.ParseQuery(body)
	if err != nil {
		return body
	}
	redacted := false
	for _, name := range SecretParams {
		if form.Has(name) {
			form.Set(name, "REDACTED")
			redacted = true
		}
	}
	if !redacted {
		return body
	}
	return form.Encode()
}

// FormatExchange renders a request and its response as plain text. Values of
// SecretParams are masked.
func FormatExchange(res *resty.Response) string {
	var requestHeaders http.Header
	requestURL := res.Request.URL
	requestBody := ""
	if raw := res.Request.RawRequest; raw != nil {
		requestHeaders = raw.Header
		if raw.URL != nil {
			requestURL = redactURL(raw.URL)
		}
		requestBody = formatRequestBody(raw)
		if strings.HasPrefix(raw.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
			requestBody = redactForm(requestBody)
		}
	}
	return fmt.Sprintf(
		exchangeTemplate,
		res.Request.Method, requestURL,
		formatHeaders(requestHeaders),
		requestBody,
		res.Status(),
		formatHeaders(res.Header()),
		res.String(),
	)
}
