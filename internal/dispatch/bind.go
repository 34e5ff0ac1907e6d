package dispatch

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// bind validates args against the compiled schema and decodes them into In.
// The schema sees the arguments as sent, after normalize; every failure is a
// bad_input Error naming the offending fields.
func bind[In any](desc *Descriptor, schema *jsonschema.Schema, args map[string]any) (In, *Error) {
	var in In

	if missing := desc.Missing(args); len(missing) > 0 {
		return in, BadInput("missing required arguments: %s", strings.Join(missing, ", "))
	}

	doc, err := toDocument(args)
	if err != nil {
		return in, BadInput("invalid arguments: %v", err)
	}
	normalize(desc, doc)

	if err := schema.Validate(doc); err != nil {
		return in, BadInput("invalid arguments: %s", validationMessage(err))
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "json",
		Result:  &in,
	})
	if err != nil {
		return in, BadInput("invalid arguments: %v", err)
	}
	if err := decoder.Decode(doc); err != nil {
		return in, BadInput("invalid arguments: %s", decodeMessage(err))
	}
	return in, nil
}

// toDocument round-trips args through JSON so the validator sees plain maps,
// strings, booleans and json.Number values.
func toDocument(args map[string]any) (map[string]any, error) {
	data, err := json.Marshal(args)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	doc := map[string]any{}
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// normalize applies the lossless conversions the prompt path and numeric chat
// IDs rely on. Integer properties accept decimal strings, boolean properties
// accept "true" and "false", and string properties accept integral numbers.
// Null values and empty strings for non-string properties count as absent.
// Anything else is left for the schema to reject.
func normalize(desc *Descriptor, doc map[string]any) {
	for name, value := range doc {
		if value == nil {
			delete(doc, name)
			continue
		}
		prop, _ := desc.Properties[name].(map[string]any)
		typ, _ := prop["type"].(string)

		switch v := value.(type) {
		case string:
			switch typ {
			case "integer":
				if v == "" {
					delete(doc, name)
				} else if _, err := strconv.ParseInt(v, 10, 64); err == nil {
					doc[name] = json.Number(v)
				}
			case "boolean":
				if v == "" {
					delete(doc, name)
				} else if v == "true" || v == "false" {
					doc[name] = v == "true"
				}
			}
		case json.Number:
			if typ == "string" {
				if _, err := strconv.ParseInt(v.String(), 10, 64); err == nil {
					doc[name] = v.String()
				}
			}
		}
	}
}

func decodeMessage(err error) string {
	var me *mapstructure.Error
	if errors.As(err, &me) && len(me.Errors) > 0 {
		return strings.Join(me.Errors, "; ")
	}
	return err.Error()
}

func validationMessage(err error) string {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return err.Error()
	}
	return strings.Join(leafMessages(ve), "; ")
}

// leafMessages flattens a validation error tree into "field: reason" lines.
func leafMessages(ve *jsonschema.ValidationError) []string {
	if len(ve.Causes) == 0 {
		field := strings.TrimPrefix(ve.InstanceLocation, "/")
		if field == "" {
			field = "arguments"
		}
		return []string{field + ": " + ve.Message}
	}
	var out []string
	for _, cause := range ve.Causes {
		out = append(out, leafMessages(cause)...)
	}
	return out
}
