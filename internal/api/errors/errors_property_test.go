package errors

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// Property: every error response body carries code, message and requestId,
// and the status code follows the error code.
func TestPropertyStructuredErrorResponseFormat(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	genErrorCode := gen.OneConstOf(
		CodeValidationError,
		CodeUnknownAction,
		CodeNotFound,
		CodeInternalError,
	)
	genMessage := gen.AlphaString().SuchThat(func(s string) bool { return len(s) > 0 })
	genRequestID := gen.RegexMatch("[a-z0-9]{6}/[A-Za-z0-9]{10}-[0-9]{6}")

	expectedStatus := map[string]int{
		CodeValidationError: http.StatusBadRequest,
		CodeUnknownAction:   http.StatusBadRequest,
		CodeNotFound:        http.StatusNotFound,
		CodeInternalError:   http.StatusInternalServerError,
	}

	properties.Property("error response contains required fields", prop.ForAll(
		func(code, message, requestID string) bool {
			rr := httptest.NewRecorder()
			WriteErrorWithRequestID(rr, New(code, message), requestID)

			var body map[string]any
			if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
				t.Logf("decode: %v", err)
				return false
			}
			return body["code"] == code &&
				body["message"] == message &&
				body["requestId"] == requestID
		},
		genErrorCode, genMessage, genRequestID,
	))

	properties.Property("status code and content type follow the error code", prop.ForAll(
		func(code, message string) bool {
			rr := httptest.NewRecorder()
			WriteError(rr, New(code, message))
			return rr.Code == expectedStatus[code] &&
				rr.Header().Get("Content-Type") == "application/json"
		},
		genErrorCode, genMessage,
	))

	properties.TestingRun(t)
}

// Property: validation errors keep every field in details and summarize the
// first message.
func TestPropertyValidationErrorFieldDetails(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("validation details list all fields", prop.ForAll(
		func(fields []string) bool {
			var v ValidationErrors
			for _, f := range fields {
				v.Add(f, f+" is invalid")
			}
			apiErr := v.ToAPIError()
			if apiErr.Code != CodeValidationError {
				return false
			}
			if len(fields) == 0 {
				return apiErr.Message == "validation failed"
			}
			got, ok := apiErr.Details["fields"].(ValidationErrors)
			return ok && len(got) == len(fields) && got[0].Field == fields[0]
		},
		gen.SliceOfN(3, gen.OneConstOf("limit", "date", "q")),
	))

	properties.TestingRun(t)
}

func TestUnknownActionError(t *testing.T) {
	err := NewUnknownActionError("reboot")
	if err.HTTPStatusCode() != http.StatusBadRequest {
		t.Errorf("status = %d", err.HTTPStatusCode())
	}
	if err.Details["action"] != "reboot" {
		t.Errorf("details = %v", err.Details)
	}
}

func TestIncidentFieldNames(t *testing.T) {
	incident := NewIncident("req-1", CodeInternalError, "boom")
	if incident.Stack == "" {
		t.Fatal("expected stack trace")
	}

	raw, err := json.Marshal(incident)
	if err != nil {
		t.Fatal(err)
	}
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"requestId", "code", "message", "stack"} {
		if _, ok := body[key]; !ok {
			t.Errorf("missing %q in %s", key, raw)
		}
	}
	if _, ok := body["correlation_id"]; ok {
		t.Errorf("snake_case key leaked: %s", raw)
	}

	attrs := incident.LogAttrs()
	if len(attrs) != 8 {
		t.Fatalf("expected 4 key/value pairs, got %d values", len(attrs))
	}
	if attrs[0] != "request_id" || attrs[1] != "req-1" || attrs[3] != CodeInternalError || attrs[5] != "boom" {
		t.Errorf("unexpected attrs %v", attrs)
	}
}
