package restyutil

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"
)

const redacted = "[REDACTED]"

// sensitiveFields are form fields and headers never written to a dump.
var sensitiveFields = map[string]bool{
	"password":         true,
	"confirm_password": true,
	"restore_password": true,
	"rpassword":        true,
	"x-password":       true,
	"x-pin":            true,
	"cookie":           true,
	"set-cookie":       true,
}

func formatHeaders(headers http.Header) string {
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out strings.Builder
	for _, k := range keys {
		for _, v := range headers[k] {
			if sensitiveFields[strings.ToLower(k)] {
				v = redacted
			}
			out.WriteString(fmt.Sprintf("%s: %s\n", k, v))
		}
	}
	return strings.TrimSuffix(out.String(), "\n")
}

func redactForm(body string) string {
	values, err := url.ParseQuery(body)
	if err != nil {
		return body
	}
	touched := false
	for k := range values {
		if sensitiveFields[strings.ToLower(k)] {
			values[k] = []string{redacted}
			touched = true
		}
	}
	if !touched {
		return body
	}
	return values.Encode()
}

func formatRequestBody(req *http.Request) string {
	if req == nil || req.GetBody == nil {
		return ""
	}
	body, err := req.GetBody()
	if err != nil {
		return fmt.Sprintf("failed to get request body: %s", err.Error())
	}
	readBody, err := io.ReadAll(body)
	if err != nil {
		return fmt.Sprintf("failed to read request body: %s", err.Error())
	}
	if strings.HasPrefix(req.Header.Get("Content-Type"), "multipart/") {
		return fmt.Sprintf("<multipart body, %d bytes>", len(readBody))
	}
	return redactForm(string(readBody))
}

// 1: request method
// 2: request url
// 3: request headers in ("Key: Value" format)
// 4: request body
// 5: response status
// 6: response url
// 7: response headers in ("Key: Value" format)
// 8: response body
const messageInfoTemplate = `---- REQUEST ----

%s %s

%s

%s

---- RESPONSE ----

%s %s

%s

%s`

func FormatHttpMessage(res *resty.Response) string {
	var requestHeaders, requestBody string
	if res.Request.RawRequest != nil {
		requestHeaders = formatHeaders(res.Request.RawRequest.Header)
		requestBody = formatRequestBody(res.Request.RawRequest)
	}

	responseUrl := res.Request.URL
	if res.RawResponse != nil {
		if redirected, err := res.RawResponse.Location(); err == nil {
			responseUrl = redirected.String()
		}
	}

	return fmt.Sprintf(
		messageInfoTemplate,

		res.Request.Method, res.Request.URL,
		requestHeaders,
		requestBody,

		strconv.Itoa(res.StatusCode()), responseUrl,
		formatHeaders(res.Header()),
		res.String(),
	)
}
