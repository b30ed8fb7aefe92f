package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// downstreamError mirrors the {"error":{"code","message"}} envelope.
type downstreamError struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ParseResponseError consumes and closes the body of a non-2xx response and
// converts it into an AppError carrying the same meaning. Bodies that are not
// the standard envelope become a plain error with the raw text.
func ParseResponseError(resp *http.Response, service string) error {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%s returned status %d (read body: %w)", service, resp.StatusCode, err)
	}

	var de downstreamError
	if json.Unmarshal(body, &de) == nil && de.Error != nil {
		return mapDownstreamError(resp.StatusCode, de.Error.Code, de.Error.Message, service)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return apperrors.ServiceUnavailable(fmt.Sprintf("%s returned status %d", service, resp.StatusCode))
	}
	return fmt.Errorf("%s returned status %d: %s", service, resp.StatusCode, body)
}

func mapDownstreamError(status int, code, message, service string) error {
	msg := fmt.Sprintf("%s: %s", service, message)

	switch {
	case status == http.StatusNotFound:
		return &apperrors.AppError{Code: "NOT_FOUND", Message: msg, Status: status, Err: apperrors.ErrNotFound}
	case status == http.StatusBadRequest:
		return apperrors.InvalidInput(msg)
	case status == http.StatusConflict:
		return apperrors.Conflict(msg)
	case status == http.StatusUnauthorized:
		return apperrors.Unauthorized(msg)
	case status == http.StatusForbidden:
		return apperrors.Forbidden(msg)
	case status == http.StatusGone:
		return apperrors.Gone(msg)
	case status == http.StatusUnprocessableEntity:
		return apperrors.PaymentFailed(msg)
	case status >= http.StatusInternalServerError:
		return apperrors.ServiceUnavailable(msg)
	default:
		return &apperrors.AppError{Code: code, Message: msg, Status: status}
	}
}

// IsClientError reports whether status is a 4xx.
func IsClientError(status int) bool {
	return status >= 400 && status < 500
}
