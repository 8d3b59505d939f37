package telemetry

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const frameSchemaURL = "camdirector://telemetry/frame.json"

// frameSchema checks the shape of the blocks the director reads. Unknown
// fields are allowed so the bridge can relay the full session info.
const frameSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["type", "connected"],
  "properties": {
    "type": {"enum": ["snapshot"]},
    "connected": {"type": "boolean"},
    "data": {
      "type": "object",
      "properties": {
        "SessionNum": {"type": "integer"},
        "CarIdxLapDistPct": {"type": "array", "items": {"type": "number"}},
        "WeekendInfo": {
          "type": "object",
          "properties": {
            "SessionID": {"type": "integer"},
            "SubSessionID": {"type": "integer"},
            "TrackLength": {"type": "string"},
            "TeamRacing": {"type": "integer"}
          }
        },
        "DriverInfo": {
          "type": "object",
          "properties": {
            "Drivers": {
              "type": "array",
              "items": {
                "type": "object",
                "required": ["CarIdx", "UserID", "CarNumber"],
                "properties": {
                  "CarIdx": {"type": "integer", "minimum": 0},
                  "UserID": {"type": "integer"},
                  "TeamID": {"type": "integer"},
                  "CarNumber": {"type": "string"},
                  "IsSpectator": {"type": "integer"}
                }
              }
            }
          }
        },
        "CameraInfo": {
          "type": "object",
          "properties": {
            "Groups": {
              "type": "array",
              "items": {
                "type": "object",
                "required": ["GroupNum", "GroupName"],
                "properties": {
                  "GroupNum": {"type": "integer"},
                  "GroupName": {"type": "string"}
                }
              }
            }
          }
        }
      }
    }
  }
}`

// FrameValidator validates raw bridge frames before they are decoded into
// typed records.
type FrameValidator struct {
	schema *jsonschema.Schema
}

// NewFrameValidator compiles the frame schema.
func NewFrameValidator() (*FrameValidator, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(frameSchemaURL, strings.NewReader(frameSchema)); err != nil {
		return nil, fmt.Errorf("add frame schema: %w", err)
	}
	schema, err := compiler.Compile(frameSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile frame schema: %w", err)
	}
	return &FrameValidator{schema: schema}, nil
}

// Validate checks raw JSON against the frame schema.
func (v *FrameValidator) Validate(raw []byte) error {
	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFrame, err)
	}
	if err := v.schema.Validate(payload); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFrame, err)
	}
	return nil
}

// DecodeFrame validates (when v is non-nil) and decodes a raw frame.
func DecodeFrame(raw []byte, v *FrameValidator) (*Frame, error) {
	if v != nil {
		if err := v.Validate(raw); err != nil {
			return nil, err
		}
	}
	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFrame, err)
	}
	if f.Type != FrameTypeSnapshot {
		return nil, fmt.Errorf("%w: unexpected type %q", ErrInvalidFrame, f.Type)
	}
	return &f, nil
}
