package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"go.uber.org/zap"
)

// ErrInvalidOutput is returned when the model produced schema-violating
// output on both the initial attempt and the corrective retry. The
// destination value is zeroed before this is returned.
var ErrInvalidOutput = errors.New("oracle: model output did not conform to schema")

// Client is the raw text-generation backend.
type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Oracle validates model output against caller-declared schemas.
type Oracle struct {
	Client Client

	// Logger records schema violations and retries. Nil disables logging.
	Logger *zap.Logger
}

// New returns an oracle over client.
func New(client Client, logger *zap.Logger) *Oracle {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Oracle{Client: client, Logger: logger}
}

func (o *Oracle) logger() *zap.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return zap.NewNop()
}

// Infer prompts the model and decodes its JSON output into out, which must
// be a non-nil pointer. Output is validated against schema before decoding;
// one corrective retry is made on violation. Transport errors are returned
// as-is. After a failed retry, out is zeroed and ErrInvalidOutput returned.
func (o *Oracle) Infer(ctx context.Context, prompt string, schema *jsonschema.Schema, out any) error {
	resolved, err := schema.Resolve(nil)
	if err != nil {
		return fmt.Errorf("oracle: resolve schema: %w", err)
	}

	raw, err := o.Client.Generate(ctx, prompt)
	if err != nil {
		return fmt.Errorf("oracle: generate: %w", err)
	}

	verr := decodeValidated(resolved, raw, out)
	if verr == nil {
		return nil
	}
	o.logger().Warn("oracle output violated schema, retrying with correction", zap.Error(verr))

	raw, err = o.Client.Generate(ctx, correctivePrompt(prompt, verr))
	if err != nil {
		return fmt.Errorf("oracle: corrective generate: %w", err)
	}
	if verr := decodeValidated(resolved, raw, out); verr != nil {
		o.logger().Warn("oracle output violated schema after correction", zap.Error(verr))
		zero(out)
		return ErrInvalidOutput
	}
	return nil
}

// decodeValidated parses raw as JSON, checks it against the resolved
// schema, and only then decodes it into out.
func decodeValidated(resolved *jsonschema.Resolved, raw string, out any) error {
	payload := ExtractJSON(raw)
	var instance any
	if err := json.Unmarshal([]byte(payload), &instance); err != nil {
		return fmt.Errorf("parse model output: %w", err)
	}
	if err := resolved.Validate(instance); err != nil {
		return fmt.Errorf("validate model output: %w", err)
	}
	if err := json.Unmarshal([]byte(payload), out); err != nil {
		return fmt.Errorf("decode model output: %w", err)
	}
	return nil
}

func correctivePrompt(prompt string, verr error) string {
	return prompt + "\n\nYour previous response was invalid: " + verr.Error() +
		"\nRespond again with only a JSON value that conforms to the schema."
}

// ExtractJSON strips markdown code fences and surrounding prose from model
// output, returning the innermost JSON payload.
func ExtractJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if i := strings.Index(s, "```"); i >= 0 {
		s = s[i+3:]
		s = strings.TrimPrefix(s, "json")
		if j := strings.Index(s, "```"); j >= 0 {
			s = s[:j]
		}
		return strings.TrimSpace(s)
	}
	// Without fences, trim any prose before the first brace or bracket.
	if i := strings.IndexAny(s, "{["); i > 0 {
		s = s[i:]
	}
	return s
}

func zero(out any) {
	v := reflect.ValueOf(out)
	if v.Kind() == reflect.Pointer && !v.IsNil() {
		v.Elem().Set(reflect.Zero(v.Elem().Type()))
	}
}
