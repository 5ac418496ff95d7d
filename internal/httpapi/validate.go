package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kaptinlin/jsonschema"
)

// MustCompileSchema compiles a JSON Schema document at package init time.
// Panics on a malformed schema: that is a programming error, not input.
func MustCompileSchema(schemaJSON string) *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile([]byte(schemaJSON))
	if err != nil {
		panic(fmt.Sprintf("invalid request schema: %v", err))
	}
	return schema
}

// ValidateBody is a middleware that checks the request body against a JSON
// Schema before the handler runs. The body is restored afterwards so the
// handler can still bind it into a typed struct.
func ValidateBody(schema *jsonschema.Schema) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := io.ReadAll(c.Request.Body)
		if err != nil {
			Fail(c, http.StatusBadRequest, "failed to read request body")
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(raw))

		var instance map[string]interface{}
		if err := json.Unmarshal(raw, &instance); err != nil {
			Fail(c, http.StatusBadRequest, "invalid request body")
			c.Abort()
			return
		}

		result := schema.Validate(instance)
		if !result.IsValid() {
			Fail(c, http.StatusBadRequest, formatSchemaErrors(result))
			c.Abort()
			return
		}

		c.Next()
	}
}

func formatSchemaErrors(result *jsonschema.EvaluationResult) string {
	var messages []string
	for field, evalErr := range result.Errors {
		messages = append(messages, fmt.Sprintf("%s: %s", field, evalErr.Error()))
	}
	sort.Strings(messages)
	return strings.Join(messages, "; ")
}
