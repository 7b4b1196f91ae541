package mcpserver

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	apperrors "github.com/mcp-anki/anki/internal/errors"
)

// optString reads an optional string argument, defaulting to "".
func optString(req mcp.CallToolRequest, key string) string {
	if v, ok := req.GetArguments()[key].(string); ok {
		return v
	}
	return ""
}

// optInt reads an optional numeric argument; JSON numbers decode as
// float64, per mcp-go's argument unmarshalling.
func optInt(req mcp.CallToolRequest, key string, def int) int {
	if v, ok := req.GetArguments()[key].(float64); ok {
		return int(v)
	}
	return def
}

// optInt64Ptr distinguishes "not provided" (nil) from "provided as 0", for
// tools where a deckId of 0 is meaningful only if explicitly given.
func optInt64Ptr(req mcp.CallToolRequest, key string) *int64 {
	if v, ok := req.GetArguments()[key].(float64); ok {
		id := int64(v)
		return &id
	}
	return nil
}

func optBool(req mcp.CallToolRequest, key string, def bool) bool {
	if v, ok := req.GetArguments()[key].(bool); ok {
		return v
	}
	return def
}

// optInt64Slice reads a JSON array argument of numbers into []int64.
func optInt64Slice(req mcp.CallToolRequest, key string) []int64 {
	raw, ok := req.GetArguments()[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]int64, 0, len(raw))
	for _, v := range raw {
		if f, ok := v.(float64); ok {
			out = append(out, int64(f))
		}
	}
	return out
}

// optStringSlice reads a JSON array argument of strings into []string.
func optStringSlice(req mcp.CallToolRequest, key string) []string {
	raw, ok := req.GetArguments()[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// optStringMap reads a JSON object argument into map[string]string.
func optStringMap(req mcp.CallToolRequest, key string) map[string]string {
	raw, ok := req.GetArguments()[key].(map[string]interface{})
	if !ok {
		return nil
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}

// jsonResult marshals payload as the tool's JSON result text.
func jsonResult(payload any) (*mcp.CallToolResult, error) {
	b, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(b)), nil
}

// marshalArg re-encodes an already-decoded object/array argument back to
// JSON bytes, so it can be handed to a []byte-based parser like
// deckconfig.ParsePatch.
func marshalArg(req mcp.CallToolRequest, key string) ([]byte, error) {
	v, ok := req.GetArguments()[key]
	if !ok || v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, apperrors.NewBadRequestError(fmt.Sprintf("invalid %s: %v", key, err))
	}
	return b, nil
}

// errResult renders err as the tool's structured error payload (spec §7:
// "{error: message}" with an error flag in the transport envelope, which
// mcp.NewToolResultError supplies).
func errResult(err error) (*mcp.CallToolResult, error) {
	if ae, ok := err.(*apperrors.AppError); ok {
		payload := map[string]any{"error": ae.Message, "code": ae.Code}
		if len(ae.Fields) > 0 {
			payload["fields"] = ae.Fields
		}
		b, _ := json.Marshal(payload)
		return mcp.NewToolResultError(string(b)), nil
	}
	return mcp.NewToolResultError(err.Error()), nil
}
